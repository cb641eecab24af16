package bpe

import (
	"github.com/armon/go-radix"
)

// VocabEntry is one (symbol, id) pair of an exported vocabulary.
type VocabEntry struct {
	Symbol string `json:"symbol"`
	ID     int32  `json:"id"`
}

// Vocabulary maps symbols to dense ids in insertion order.
// It grows during training and is read-only once frozen into a Model.
type Vocabulary struct {
	ids     map[string]int32
	symbols []string
	prefix  *radix.Tree // built by freeze
}

func newVocabulary() *Vocabulary {
	return &Vocabulary{ids: make(map[string]int32)}
}

// add inserts symbol if absent and returns its id and whether it was inserted.
func (v *Vocabulary) add(symbol string) (int32, bool) {
	if id, ok := v.ids[symbol]; ok {
		return id, false
	}
	id := int32(len(v.symbols)) //nolint:gosec // G115: vocabulary size is bounded by TargetVocabSize (int32 ids).
	v.ids[symbol] = id
	v.symbols = append(v.symbols, symbol)
	return id, true
}

func (v *Vocabulary) freeze() {
	tree := radix.New()
	for id, sym := range v.symbols {
		tree.Insert(sym, int32(id)) //nolint:gosec // G115: see add.
	}
	v.prefix = tree
}

// Len returns the number of symbols.
func (v *Vocabulary) Len() int {
	return len(v.symbols)
}

// ID returns the id of symbol.
func (v *Vocabulary) ID(symbol string) (int32, bool) {
	id, ok := v.ids[symbol]
	return id, ok
}

// Symbol returns the symbol with the given id.
func (v *Vocabulary) Symbol(id int32) (string, bool) {
	if id < 0 || int(id) >= len(v.symbols) {
		return "", false
	}
	return v.symbols[id], true
}

// Entries returns all (symbol, id) pairs in id order.
func (v *Vocabulary) Entries() []VocabEntry {
	out := make([]VocabEntry, len(v.symbols))
	for id, sym := range v.symbols {
		out[id] = VocabEntry{Symbol: sym, ID: int32(id)} //nolint:gosec // G115: see add.
	}
	return out
}

// WithPrefix returns the entries whose symbol starts with prefix, in lexicographic order.
// It returns nil for a vocabulary that has not been frozen.
func (v *Vocabulary) WithPrefix(prefix string) []VocabEntry {
	if v.prefix == nil {
		return nil
	}

	var out []VocabEntry
	v.prefix.WalkPrefix(prefix, func(s string, val interface{}) bool {
		out = append(out, VocabEntry{Symbol: s, ID: val.(int32)})
		return false
	})
	return out
}
