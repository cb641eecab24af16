// Package normalizer maps raw text to the canonical form seen by the pre-tokenizer.
//
// Normalizers are pure and total. They can be chained with Sequence, and every built-in
// normalizer has a stable name so a configured chain can be persisted and rebuilt with FromNames.
package normalizer

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NameLowercase is the persisted name of Lowercase.
const NameLowercase = "lowercase"

// Normalizer converts text to its canonical form.
type Normalizer interface {
	Normalize(text string) string
}

// Func adapts an ordinary function to the Normalizer interface.
// Func normalizers have no name and cannot be persisted.
type Func func(text string) string

// Normalize implements Normalizer.
func (f Func) Normalize(text string) string {
	return f(text)
}

// Lowercase folds text to lower case using the root (language.Und) case table, so the result
// does not depend on the process locale.
type Lowercase struct{}

// Normalize implements Normalizer.
func (Lowercase) Normalize(text string) string {
	// A cases.Caser keeps state between calls and must not be shared across goroutines.
	return cases.Lower(language.Und).String(text)
}

// Sequence applies its normalizers in order, feeding the output of one to the next.
type Sequence []Normalizer

// Normalize implements Normalizer.
func (s Sequence) Normalize(text string) string {
	for _, n := range s {
		text = n.Normalize(text)
	}
	return text
}

// Names returns the persisted names of n, flattening nested sequences.
// It returns an error when n contains a normalizer without a stable name.
func Names(n Normalizer) ([]string, error) {
	switch v := n.(type) {
	case nil:
		return nil, nil
	case Lowercase, *Lowercase:
		return []string{NameLowercase}, nil
	case Sequence:
		var names []string
		for _, inner := range v {
			sub, err := Names(inner)
			if err != nil {
				return nil, err
			}
			names = append(names, sub...)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("normalizer %T has no persisted name", n)
	}
}

// FromNames rebuilds a normalizer chain from names produced by Names.
// An empty list yields nil, meaning "no normalization".
func FromNames(names []string) (Normalizer, error) {
	if len(names) == 0 {
		return nil, nil
	}

	seq := make(Sequence, 0, len(names))
	for _, name := range names {
		switch name {
		case NameLowercase:
			seq = append(seq, Lowercase{})
		default:
			return nil, fmt.Errorf("unknown normalizer %q", name)
		}
	}

	if len(seq) == 1 {
		return seq[0], nil
	}
	return seq, nil
}

// Apply normalizes text with n, treating a nil normalizer as the identity.
func Apply(n Normalizer, text string) string {
	if n == nil {
		return text
	}
	return n.Normalize(text)
}
