package tokenizer

import (
	"context"
	"fmt"
	"iter"

	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/tokenforge/internal/pretokenizer"
)

// Comparison is the token count of a candidate tokenizer measured against a reference on the
// same texts.
type Comparison struct {
	Texts           int
	Words           int // Whitespace-separated words
	Tokens          int // Candidate tokens
	ReferenceTokens int
	Unknown         int // Candidate tokens equal to its unknown token

	TokensPerWord          float64
	ReferenceTokensPerWord float64

	// Ratio is Tokens / ReferenceTokens over all texts.
	Ratio float64
	// MeanTextRatio and StdDevTextRatio describe the per-text ratio. StdDevTextRatio is zero for
	// fewer than two texts.
	MeanTextRatio   float64
	StdDevTextRatio float64
}

// Compare encodes every text with candidate and reference and aggregates the token counts.
// It stops at the first encoding error.
func Compare(ctx context.Context, candidate, reference Tokenizer, texts iter.Seq[string]) (Comparison, error) {
	var (
		c      Comparison
		ratios []float64
		ws     pretokenizer.Whitespace
	)
	unk := candidate.UnkToken()

	for text := range texts {
		if err := ctx.Err(); err != nil {
			return Comparison{}, err
		}

		ids, err := candidate.Encode(text)
		if err != nil {
			return Comparison{}, fmt.Errorf("candidate: text %d: %w", c.Texts, err)
		}
		ref, err := reference.Encode(text)
		if err != nil {
			return Comparison{}, fmt.Errorf("reference: text %d: %w", c.Texts, err)
		}

		c.Texts++
		c.Words += len(ws.PreTokenize(text))
		c.Tokens += len(ids)
		c.ReferenceTokens += len(ref)
		if unk >= 0 {
			for _, id := range ids {
				if id == unk {
					c.Unknown++
				}
			}
		}
		if len(ref) > 0 {
			ratios = append(ratios, float64(len(ids))/float64(len(ref)))
		}
	}

	if c.Words > 0 {
		c.TokensPerWord = float64(c.Tokens) / float64(c.Words)
		c.ReferenceTokensPerWord = float64(c.ReferenceTokens) / float64(c.Words)
	}
	if c.ReferenceTokens > 0 {
		c.Ratio = float64(c.Tokens) / float64(c.ReferenceTokens)
	}
	switch len(ratios) {
	case 0:
	case 1:
		c.MeanTextRatio = ratios[0]
	default:
		c.MeanTextRatio, c.StdDevTextRatio = stat.MeanStdDev(ratios, nil)
	}

	return c, nil
}
