package bpe

import "slices"

// Unknown-token policy names used in exports.
const (
	PolicyError = "error"
	PolicyMap   = "map"
)

// Export is the serializable form of a Model.
type Export struct {
	Vocab           []VocabEntry `json:"vocab"`
	Merges          [][2]string  `json:"merges"`
	EndOfWordMarker string       `json:"end_of_word_marker"`
	Alphabet        string       `json:"alphabet"`
	SpecialTokens   []string     `json:"special_tokens,omitempty"`
	UnknownPolicy   string       `json:"unknown_policy"`
	UnknownID       *int32       `json:"unknown_id,omitempty"`
}

// Export returns the vocabulary in id order and the merges in rank order, with the options needed
// to encode the same way.
func (m *Model) Export() Export {
	e := Export{
		Vocab:           m.vocab.Entries(),
		Merges:          make([][2]string, len(m.merges)),
		EndOfWordMarker: m.marker,
		Alphabet:        m.alphabet.String(),
		SpecialTokens:   m.SpecialTokens(),
		UnknownPolicy:   PolicyError,
	}
	for rank, p := range m.merges {
		e.Merges[rank] = [2]string{m.vocab.symbols[p.left], m.vocab.symbols[p.right]}
	}
	if m.unknown.Kind == UnknownMapToID {
		id := m.unknown.ID
		e.UnknownPolicy = PolicyMap
		e.UnknownID = &id
	}
	return e
}

// NewModel rebuilds a model from an export and checks that it is one training could produce:
// ids are dense and unique, every merge joins known symbols into a known symbol, and every merge
// operand is either a single alphabet unit, a special token or the product of a lower-rank merge.
func NewModel(e Export) (*Model, error) {
	alphabet, err := ParseAlphabet(e.Alphabet)
	if err != nil {
		return nil, invalidModel("alphabet %q", e.Alphabet)
	}

	var unknown UnknownPolicy
	switch e.UnknownPolicy {
	case PolicyError:
		unknown = RaiseOnUnknown()
	case PolicyMap:
		if e.UnknownID == nil {
			return nil, invalidModel("unknown policy %q without an id", e.UnknownPolicy)
		}
		unknown = MapUnknownTo(*e.UnknownID)
	default:
		return nil, invalidModel("unknown policy %q", e.UnknownPolicy)
	}

	vocab, err := importVocab(e.Vocab)
	if err != nil {
		return nil, err
	}

	merges := make([]pair, len(e.Merges))
	produced := make(map[string]int, len(e.Merges))
	for rank, mr := range e.Merges {
		left, lok := vocab.ID(mr[0])
		right, rok := vocab.ID(mr[1])
		if !lok || !rok {
			return nil, invalidModel("merge %d (%q, %q) uses a symbol missing from the vocabulary", rank, mr[0], mr[1])
		}
		for _, operand := range mr {
			if alphabet.isUnit(operand, e.EndOfWordMarker) || slices.Contains(e.SpecialTokens, operand) {
				continue
			}
			if r, ok := produced[operand]; !ok || r >= rank {
				return nil, invalidModel("merge %d uses %q before any merge produces it", rank, operand)
			}
		}
		if _, ok := produced[mr[0]+mr[1]]; !ok {
			produced[mr[0]+mr[1]] = rank
		}
		merges[rank] = pair{left, right}
	}

	return newModel(vocab, merges, modelOptions{
		marker:   e.EndOfWordMarker,
		alphabet: alphabet,
		unknown:  unknown,
		special:  e.SpecialTokens,
	})
}

func importVocab(entries []VocabEntry) (*Vocabulary, error) {
	symbols := make([]string, len(entries))
	filled := make([]bool, len(entries))
	for _, entry := range entries {
		if entry.ID < 0 || int(entry.ID) >= len(entries) {
			return nil, invalidModel("id %d of %q is outside 0..%d", entry.ID, entry.Symbol, len(entries)-1)
		}
		if filled[entry.ID] {
			return nil, invalidModel("id %d is assigned twice", entry.ID)
		}
		if entry.Symbol == "" {
			return nil, invalidModel("id %d has an empty symbol", entry.ID)
		}
		symbols[entry.ID] = entry.Symbol
		filled[entry.ID] = true
	}

	vocab := newVocabulary()
	for id, sym := range symbols {
		if _, added := vocab.add(sym); !added {
			return nil, invalidModel("symbol %q has more than one id (second is %d)", sym, id)
		}
	}
	return vocab, nil
}
