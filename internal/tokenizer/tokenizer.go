package tokenizer

import (
	"context"

	"github.com/born-ml/tokenforge/internal/bpe"
)

// Tokenizer is the core interface for text tokenization.
//
// It is implemented by a trained *Pipeline and by the reference TikToken encodings.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int32, error)

	// Decode converts token IDs back to text.
	Decode(tokens []int32) (string, error)

	// VocabSize returns the total vocabulary size.
	VocabSize() int

	// UnkToken returns the unknown token ID.
	// Returns -1 if not applicable.
	UnkToken() int32

	// IsSpecialToken checks if a token ID is a special token.
	IsSpecialToken(token int32) bool
}

// Kind names a model family.
type Kind string

// KindBPE is the byte-pair-encoding model family.
const KindBPE Kind = "BPE"

// Token is one encoded piece of a word.
type Token = bpe.Token

// Model encodes single pre-tokenized words. Models are immutable once trained.
type Model interface {
	Kind() Kind

	// Tokenize encodes one word. Token offsets are relative to the word.
	Tokenize(word string) ([]Token, error)

	Decode(ids []int32) (string, error)
	VocabSize() int
	UnkToken() int32
	IsSpecialToken(id int32) bool
}

// Trainer learns a Model from counted words.
type Trainer interface {
	Kind() Kind
	Train(ctx context.Context, words *bpe.WordCounts, observer bpe.Observer) (Model, error)
}
