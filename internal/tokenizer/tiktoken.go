package tokenizer

import (
	"fmt"
	"slices"

	"github.com/pkoukk/tiktoken-go"
)

// tiktokenEncoding describes the id space of a published tiktoken encoding.
type tiktokenEncoding struct {
	vocabSize int     // highest id + 1, special tokens included
	special   []int32 // ids of the special tokens
}

var tiktokenEncodings = map[string]tiktokenEncoding{
	// <|endoftext|>, <|fim_prefix|>, <|fim_middle|>, <|fim_suffix|>, <|endofprompt|>
	"cl100k_base": {vocabSize: 100277, special: []int32{100257, 100258, 100259, 100260, 100276}},
	// <|endoftext|>
	"p50k_base": {vocabSize: 50281, special: []int32{50256}},
	"r50k_base": {vocabSize: 50257, special: []int32{50256}},
}

var tiktokenModels = map[string]string{
	"gpt-4":                  "cl100k_base",
	"gpt-3.5-turbo":          "cl100k_base",
	"text-embedding-ada-002": "cl100k_base",
	"text-davinci-003":       "p50k_base",
	"code-davinci-002":       "p50k_base",
	"davinci":                "r50k_base",
	"gpt2":                   "r50k_base",
}

// TikToken wraps pkoukk/tiktoken-go. It serves as a reference tokenizer to compare trained
// models against.
//
// Supported encodings:
//   - cl100k_base: GPT-4, GPT-3.5-turbo, text-embedding-ada-002
//   - p50k_base: GPT-3, Codex
//   - r50k_base: GPT-3, davinci-002, babbage-002
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
	info     tiktokenEncoding
}

// NewTikToken creates a new TikToken tokenizer with the specified encoding.
func NewTikToken(encodingName string) (*TikToken, error) {
	info, ok := tiktokenEncodings[encodingName]
	if !ok {
		return nil, fmt.Errorf("unsupported tiktoken encoding %q", encodingName)
	}

	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}

	return &TikToken{encoding: encoding, name: encodingName, info: info}, nil
}

// NewTikTokenForModel creates a TikToken tokenizer for a specific model.
//
// Example models: "gpt-4", "gpt-3.5-turbo", "text-embedding-ada-002".
func NewTikTokenForModel(modelName string) (*TikToken, error) {
	name, ok := tiktokenModels[modelName]
	if !ok {
		return nil, fmt.Errorf("no tiktoken encoding known for model %q", modelName)
	}
	return NewTikToken(name)
}

// Encode converts text to token IDs. Special-token text is encoded as ordinary text.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)

	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}

	return result, nil
}

// Decode converts token IDs back to text.
func (t *TikToken) Decode(tokens []int32) (string, error) {
	intTokens := make([]int, len(tokens))
	for i, tok := range tokens {
		if tok < 0 || int(tok) >= t.info.vocabSize {
			return "", fmt.Errorf("token %d outside %s (vocabulary size %d)", tok, t.name, t.info.vocabSize)
		}
		intTokens[i] = int(tok)
	}

	return t.encoding.Decode(intTokens), nil
}

// VocabSize returns the size of the id space, special tokens included.
func (t *TikToken) VocabSize() int {
	return t.info.vocabSize
}

// UnkToken returns -1: byte-level BPE never meets an unknown symbol.
func (t *TikToken) UnkToken() int32 {
	return -1
}

// IsSpecialToken checks if a token ID is a special token of the encoding.
func (t *TikToken) IsSpecialToken(token int32) bool {
	return slices.Contains(t.info.special, token)
}

// Name returns the encoding name.
func (t *TikToken) Name() string {
	return t.name
}
