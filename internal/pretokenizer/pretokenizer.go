// Package pretokenizer splits normalized text into word-like segments before BPE is applied.
package pretokenizer

import (
	"unicode"
	"unicode/utf8"
)

// NameWhitespace is the persisted name of Whitespace.
const NameWhitespace = "whitespace"

// Segment is a piece of the input with its half-open byte span [Start, End).
type Segment struct {
	Text  string
	Start int
	End   int
}

// PreTokenizer splits text into ordered, non-empty segments.
type PreTokenizer interface {
	PreTokenize(text string) []Segment
}

// Whitespace emits every maximal run of non-whitespace characters as one segment.
// Whitespace runs produce nothing.
type Whitespace struct{}

// PreTokenize implements PreTokenizer.
func (Whitespace) PreTokenize(text string) []Segment {
	var segments []Segment
	start := -1

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if start >= 0 {
				segments = append(segments, Segment{Text: text[start:i], Start: start, End: i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}

	if start >= 0 {
		segments = append(segments, Segment{Text: text[start:], Start: start, End: len(text)})
	}

	return segments
}

// Name returns the persisted name of p, or false when p is not a built-in pre-tokenizer.
func Name(p PreTokenizer) (string, bool) {
	switch p.(type) {
	case Whitespace, *Whitespace:
		return NameWhitespace, true
	default:
		return "", false
	}
}

// FromName returns the built-in pre-tokenizer with the given persisted name.
func FromName(name string) (PreTokenizer, bool) {
	if name == NameWhitespace {
		return Whitespace{}, true
	}
	return nil, false
}
