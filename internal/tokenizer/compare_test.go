package tokenizer

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tokenforge/internal/bpe"
	"github.com/born-ml/tokenforge/internal/corpus"
)

// runeTokenizer encodes every rune as one token.
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) ([]int32, error) {
	ids := make([]int32, 0, len(text))
	for _, r := range text {
		ids = append(ids, r)
	}
	return ids, nil
}

func (runeTokenizer) Decode(tokens []int32) (string, error) {
	buf := make([]byte, 0, len(tokens))
	for _, tok := range tokens {
		buf = utf8.AppendRune(buf, tok)
	}
	return string(buf), nil
}

func (runeTokenizer) VocabSize() int            { return utf8.MaxRune + 1 }
func (runeTokenizer) UnkToken() int32           { return -1 }
func (runeTokenizer) IsSpecialToken(int32) bool { return false }

func TestCompare(t *testing.T) {
	p := trainExample(t, NewBuilder())

	// "lower newer" -> 6 tokens vs 11 runes; "low" -> lo, w</w> = 2 tokens vs 3 runes.
	c, err := Compare(context.Background(), p, runeTokenizer{}, corpus.Strings("lower newer", "low"))
	require.NoError(t, err)

	assert.Equal(t, 2, c.Texts)
	assert.Equal(t, 3, c.Words)
	assert.Equal(t, 8, c.Tokens)
	assert.Equal(t, 14, c.ReferenceTokens)
	assert.Equal(t, 0, c.Unknown)
	assert.InDelta(t, 8.0/3, c.TokensPerWord, 1e-9)
	assert.InDelta(t, 14.0/3, c.ReferenceTokensPerWord, 1e-9)
	assert.InDelta(t, 8.0/14, c.Ratio, 1e-9)
	assert.InDelta(t, (6.0/11+2.0/3)/2, c.MeanTextRatio, 1e-9)
	assert.Greater(t, c.StdDevTextRatio, 0.0)
}

func TestCompare_CountsUnknown(t *testing.T) {
	trainer := exampleTrainer(t, 15, func(c *bpe.TrainerConfig) {
		c.SpecialTokens = []string{"<unk>"}
		c.UnknownPolicy = bpe.MapUnknownTo(0)
	})
	p, err := NewBuilder().Build().Train(context.Background(), trainer, corpus.Strings(exampleCorpus...), nil)
	require.NoError(t, err)

	c, err := Compare(context.Background(), p, runeTokenizer{}, corpus.Strings("zz lowz"))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Unknown)
	assert.Zero(t, c.StdDevTextRatio)
}

func TestCompare_Errors(t *testing.T) {
	p := trainExample(t, NewBuilder())

	_, err := Compare(context.Background(), p, runeTokenizer{}, corpus.Strings("low", "qqq"))
	assert.ErrorIs(t, err, bpe.ErrUnknownSymbol)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Compare(ctx, p, runeTokenizer{}, corpus.Strings("low"))
	assert.ErrorIs(t, err, context.Canceled)
}
