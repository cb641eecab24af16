package bpe

import (
	"fmt"
	"strings"
	"unicode"
)

// Alphabet selects the atomic units a word is split into before merging.
type Alphabet int

const (
	// AlphabetRunes splits words into Unicode code points.
	AlphabetRunes Alphabet = iota
	// AlphabetBytes splits words into bytes, each shown as a printable rune (GPT-2 byte table).
	AlphabetBytes
)

// String returns the persisted name of the alphabet.
func (a Alphabet) String() string {
	switch a {
	case AlphabetRunes:
		return "runes"
	case AlphabetBytes:
		return "bytes"
	default:
		return fmt.Sprintf("Alphabet(%d)", int(a))
	}
}

// ParseAlphabet parses "runes" or "bytes".
func ParseAlphabet(s string) (Alphabet, error) {
	switch strings.ToLower(s) {
	case "runes", "chars", "characters":
		return AlphabetRunes, nil
	case "bytes":
		return AlphabetBytes, nil
	default:
		return 0, &ConfigurationError{Field: "Alphabet", Reason: fmt.Sprintf("unknown alphabet %q", s)}
	}
}

// UnknownPolicyKind enumerates what encoding does with a symbol missing from the vocabulary.
type UnknownPolicyKind int

const (
	unknownUnset UnknownPolicyKind = iota
	// UnknownRaise makes encoding fail with UnknownSymbolError.
	UnknownRaise
	// UnknownMapToID replaces the symbol with a fixed token id.
	UnknownMapToID
)

// UnknownPolicy is the unknown-token policy. The zero value is not a valid policy, so every
// configuration has to choose one explicitly.
type UnknownPolicy struct {
	Kind UnknownPolicyKind
	ID   int32 // Used with UnknownMapToID
}

// RaiseOnUnknown returns the policy that fails encoding on unknown symbols.
func RaiseOnUnknown() UnknownPolicy {
	return UnknownPolicy{Kind: UnknownRaise}
}

// MapUnknownTo returns the policy that encodes unknown symbols as id.
func MapUnknownTo(id int32) UnknownPolicy {
	return UnknownPolicy{Kind: UnknownMapToID, ID: id}
}

// String returns "error" or "map(<id>)".
func (p UnknownPolicy) String() string {
	switch p.Kind {
	case UnknownRaise:
		return "error"
	case UnknownMapToID:
		return fmt.Sprintf("map(%d)", p.ID)
	default:
		return "unset"
	}
}

// TrainerConfig holds the options of a BPE training run.
type TrainerConfig struct {
	// TargetVocabSize bounds the final vocabulary, special tokens and seed alphabet included.
	TargetVocabSize int
	// MinPairFrequency stops training once the best pair is rarer than this.
	MinPairFrequency int64
	// EndOfWordMarker is appended to the last symbol of every word. Empty disables it.
	EndOfWordMarker string
	// Alphabet selects runes or bytes as initial symbols.
	Alphabet Alphabet
	// SpecialTokens are inserted first, in order, and never take part in merges.
	SpecialTokens []string
	// UnknownPolicy decides how the trained model encodes symbols it has never seen.
	UnknownPolicy UnknownPolicy
}

// DefaultTrainerConfig returns the defaults used by the command-line tool.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		TargetVocabSize:  30000,
		MinPairFrequency: 2,
		EndOfWordMarker:  "</w>",
		Alphabet:         AlphabetRunes,
		UnknownPolicy:    RaiseOnUnknown(),
	}
}

// Validate checks every option that can be checked before seeing the corpus.
func (c TrainerConfig) Validate() error {
	if c.TargetVocabSize < 1 {
		return &ConfigurationError{Field: "TargetVocabSize", Reason: fmt.Sprintf("must be positive, got %d", c.TargetVocabSize)}
	}
	if c.MinPairFrequency < 1 {
		return &ConfigurationError{Field: "MinPairFrequency", Reason: fmt.Sprintf("must be at least 1, got %d", c.MinPairFrequency)}
	}
	if strings.IndexFunc(c.EndOfWordMarker, unicode.IsSpace) >= 0 {
		return &ConfigurationError{Field: "EndOfWordMarker", Reason: "must not contain whitespace"}
	}
	if c.Alphabet != AlphabetRunes && c.Alphabet != AlphabetBytes {
		return &ConfigurationError{Field: "Alphabet", Reason: c.Alphabet.String() + " is not supported"}
	}

	seen := make(map[string]struct{}, len(c.SpecialTokens))
	for _, tok := range c.SpecialTokens {
		if tok == "" || strings.IndexFunc(tok, unicode.IsSpace) >= 0 {
			return &ConfigurationError{Field: "SpecialTokens", Reason: fmt.Sprintf("%q must be non-empty and contain no whitespace", tok)}
		}
		if _, dup := seen[tok]; dup {
			return &ConfigurationError{Field: "SpecialTokens", Reason: fmt.Sprintf("duplicate token %q", tok)}
		}
		seen[tok] = struct{}{}
	}
	if len(c.SpecialTokens) > c.TargetVocabSize {
		return &ConfigurationError{Field: "SpecialTokens", Reason: "more special tokens than TargetVocabSize"}
	}

	switch c.UnknownPolicy.Kind {
	case UnknownRaise:
	case UnknownMapToID:
		if c.UnknownPolicy.ID < 0 || int(c.UnknownPolicy.ID) >= c.TargetVocabSize {
			return &ConfigurationError{
				Field:  "UnknownPolicy",
				Reason: fmt.Sprintf("id %d is outside a vocabulary of at most %d tokens", c.UnknownPolicy.ID, c.TargetVocabSize),
			}
		}
	default:
		return &ConfigurationError{Field: "UnknownPolicy", Reason: "must be set to raise or map to an id"}
	}

	return nil
}
