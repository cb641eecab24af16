package bpe

import (
	"fmt"
	"strings"
)

// Token is one encoded piece of a word. Start and End are byte offsets into the word.
type Token struct {
	ID    int32
	Value string
	Start int
	End   int
}

// MergeRule is a learned rule: Left and Right next to each other become Merged.
type MergeRule struct {
	Rank   int
	Left   string
	Right  string
	Merged string
}

type mergeInfo struct {
	rank int
	id   int32
}

type modelOptions struct {
	marker   string
	alphabet Alphabet
	unknown  UnknownPolicy
	special  []string
}

// Model is a trained BPE model: a frozen vocabulary plus ranked merge rules.
// It is immutable and safe for concurrent use.
type Model struct {
	vocab    *Vocabulary
	merges   []pair
	ranks    map[pair]mergeInfo
	marker   string
	alphabet Alphabet
	unknown  UnknownPolicy
	special  map[string]int32
	specials []string
}

func newModel(vocab *Vocabulary, merges []pair, opts modelOptions) (*Model, error) {
	m := &Model{
		vocab:    vocab,
		merges:   merges,
		ranks:    make(map[pair]mergeInfo, len(merges)),
		marker:   opts.marker,
		alphabet: opts.alphabet,
		unknown:  opts.unknown,
		special:  make(map[string]int32, len(opts.special)),
		specials: append([]string(nil), opts.special...),
	}

	for rank, p := range merges {
		left, lok := vocab.Symbol(p.left)
		right, rok := vocab.Symbol(p.right)
		if !lok || !rok {
			return nil, invalidModel("merge %d refers to ids outside the vocabulary", rank)
		}
		id, ok := vocab.ID(left + right)
		if !ok {
			return nil, invalidModel("merge %d: %q is not in the vocabulary", rank, left+right)
		}
		if _, dup := m.ranks[p]; dup {
			return nil, invalidModel("merge %d: duplicate pair (%q, %q)", rank, left, right)
		}
		m.ranks[p] = mergeInfo{rank: rank, id: id}
	}

	for _, tok := range opts.special {
		id, ok := vocab.ID(tok)
		if !ok {
			return nil, invalidModel("special token %q is not in the vocabulary", tok)
		}
		m.special[tok] = id
	}

	switch opts.unknown.Kind {
	case UnknownRaise:
	case UnknownMapToID:
		if _, ok := vocab.Symbol(opts.unknown.ID); !ok {
			return nil, invalidModel("unknown token id %d outside a vocabulary of %d", opts.unknown.ID, vocab.Len())
		}
	default:
		return nil, invalidModel("unknown-token policy is not set")
	}

	vocab.freeze()
	return m, nil
}

// piece is a symbol of a word being encoded. id is -1 for symbols missing from the vocabulary.
type piece struct {
	id         int32
	symbol     string
	start, end int
}

// Tokenize encodes one pre-tokenized word.
//
// The word is split as during training, then the lowest-rank merge present anywhere in it is
// applied to all of its non-overlapping occurrences, left to right, until no merge applies.
// A word equal to a special token encodes to that token alone.
func (m *Model) Tokenize(word string) ([]Token, error) {
	if word == "" {
		return nil, nil
	}
	if id, ok := m.special[word]; ok {
		return []Token{{ID: id, Value: word, Start: 0, End: len(word)}}, nil
	}

	pieces := make([]piece, 0, len(word))
	offset := 0
	m.alphabet.split(word, m.marker, func(sym string, width int) {
		id, ok := m.vocab.ID(sym)
		if !ok {
			id = -1
		}
		pieces = append(pieces, piece{id: id, symbol: sym, start: offset, end: offset + width})
		offset += width
	})

	pieces = m.mergePieces(pieces)

	tokens := make([]Token, len(pieces))
	for i, p := range pieces {
		if p.id < 0 {
			if m.unknown.Kind != UnknownMapToID {
				return nil, &UnknownSymbolError{Symbol: m.alphabet.surface(p.symbol), Word: word}
			}
			p.id = m.unknown.ID
			p.symbol = m.vocab.symbols[p.id]
		}
		tokens[i] = Token{ID: p.id, Value: p.symbol, Start: p.start, End: p.end}
	}
	return tokens, nil
}

func (m *Model) mergePieces(pieces []piece) []piece {
	for len(pieces) > 1 {
		best := mergeInfo{rank: -1}
		var bestPair pair
		for i := 0; i+1 < len(pieces); i++ {
			if pieces[i].id < 0 || pieces[i+1].id < 0 {
				continue
			}
			p := pair{pieces[i].id, pieces[i+1].id}
			if info, ok := m.ranks[p]; ok && (best.rank < 0 || info.rank < best.rank) {
				best, bestPair = info, p
			}
		}
		if best.rank < 0 {
			break
		}

		out := pieces[:0]
		for i := 0; i < len(pieces); {
			if i+1 < len(pieces) && pieces[i].id == bestPair.left && pieces[i+1].id == bestPair.right {
				out = append(out, piece{
					id:     best.id,
					symbol: m.vocab.symbols[best.id],
					start:  pieces[i].start,
					end:    pieces[i+1].end,
				})
				i += 2
				continue
			}
			out = append(out, pieces[i])
			i++
		}
		pieces = out
	}
	return pieces
}

// EncodeWord returns the token ids of one pre-tokenized word.
func (m *Model) EncodeWord(word string) ([]int32, error) {
	tokens, err := m.Tokenize(word)
	if err != nil {
		return nil, err
	}
	ids := make([]int32, len(tokens))
	for i, t := range tokens {
		ids[i] = t.ID
	}
	return ids, nil
}

// Decode concatenates the surface text of ids. An end-of-word marker becomes a single space and
// the space after the last word is dropped. Special tokens decode verbatim as whole words.
// Whitespace of the original text is not reconstructed.
func (m *Model) Decode(ids []int32) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		sym, ok := m.vocab.Symbol(id)
		if !ok {
			return "", fmt.Errorf("%w: %d (vocabulary size %d)", ErrUnknownID, id, m.vocab.Len())
		}

		if _, special := m.special[sym]; special {
			b.WriteString(sym)
			b.WriteByte(' ')
			continue
		}
		if m.marker != "" && strings.HasSuffix(sym, m.marker) {
			b.WriteString(m.alphabet.surface(strings.TrimSuffix(sym, m.marker)))
			b.WriteByte(' ')
			continue
		}
		b.WriteString(m.alphabet.surface(sym))
	}
	return strings.TrimSuffix(b.String(), " "), nil
}

// Vocab returns the frozen vocabulary.
func (m *Model) Vocab() *Vocabulary {
	return m.vocab
}

// VocabSize returns the number of symbols.
func (m *Model) VocabSize() int {
	return m.vocab.Len()
}

// Merges returns the merge rules in rank order.
func (m *Model) Merges() []MergeRule {
	out := make([]MergeRule, len(m.merges))
	for rank, p := range m.merges {
		left, right := m.vocab.symbols[p.left], m.vocab.symbols[p.right]
		out[rank] = MergeRule{Rank: rank, Left: left, Right: right, Merged: left + right}
	}
	return out
}

// NumMerges returns the number of merge rules.
func (m *Model) NumMerges() int {
	return len(m.merges)
}

// EndOfWordMarker returns the marker carried by the last symbol of every word.
func (m *Model) EndOfWordMarker() string {
	return m.marker
}

// Alphabet returns the unit alphabet of the model.
func (m *Model) Alphabet() Alphabet {
	return m.alphabet
}

// UnknownPolicy returns the unknown-token policy.
func (m *Model) UnknownPolicy() UnknownPolicy {
	return m.unknown
}

// SpecialTokens returns the special tokens in vocabulary order.
func (m *Model) SpecialTokens() []string {
	return append([]string(nil), m.specials...)
}

// TokenToID returns the id of a vocabulary symbol.
func (m *Model) TokenToID(symbol string) (int32, bool) {
	return m.vocab.ID(symbol)
}

// IDToToken returns the symbol of id.
func (m *Model) IDToToken(id int32) (string, bool) {
	return m.vocab.Symbol(id)
}

// UnkToken returns the id unknown symbols map to, or -1 when encoding raises instead.
func (m *Model) UnkToken() int32 {
	if m.unknown.Kind == UnknownMapToID {
		return m.unknown.ID
	}
	return -1
}

// IsSpecialToken reports whether id is a special token.
func (m *Model) IsSpecialToken(id int32) bool {
	sym, ok := m.vocab.Symbol(id)
	if !ok {
		return false
	}
	_, special := m.special[sym]
	return special
}

// SymbolsWithPrefix returns the vocabulary entries starting with prefix, sorted by symbol.
func (m *Model) SymbolsWithPrefix(prefix string) []VocabEntry {
	return m.vocab.WithPrefix(prefix)
}
