package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadTikToken loads an encoding, skipping the test when its ranks cannot be fetched.
func loadTikToken(t *testing.T, encoding string) *TikToken {
	t.Helper()
	tok, err := NewTikToken(encoding)
	if err != nil {
		t.Skipf("tiktoken encoding %s unavailable: %v", encoding, err)
	}
	return tok
}

func TestTikToken_NewTikToken(t *testing.T) {
	tests := []struct {
		encoding          string
		expectedVocabSize int
	}{
		{"cl100k_base", 100277},
		{"p50k_base", 50281},
		{"r50k_base", 50257},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			tok := loadTikToken(t, tt.encoding)
			assert.Equal(t, tt.expectedVocabSize, tok.VocabSize())
			assert.Equal(t, tt.encoding, tok.Name())
		})
	}
}

func TestTikToken_UnsupportedEncoding(t *testing.T) {
	tok, err := NewTikToken("invalid_encoding_xyz")
	assert.Error(t, err)
	assert.Nil(t, tok)
}

func TestTikToken_Roundtrip(t *testing.T) {
	tok := loadTikToken(t, "cl100k_base")

	tests := []struct {
		name string
		text string
	}{
		{
			name: "simple text",
			text: "Hello, world!",
		},
		{
			name: "with newlines",
			text: "Hello\nWorld\n",
		},
		{
			name: "unicode",
			text: "Hello 世界! 🌍",
		},
		{
			name: "empty string",
			text: "",
		},
		{
			name: "long text",
			text: "The quick brown fox jumps over the lazy dog. " +
				"This is a longer piece of text to test tokenization.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := tok.Encode(tt.text)
			require.NoError(t, err)

			decoded, err := tok.Decode(tokens)
			require.NoError(t, err)

			assert.Equal(t, tt.text, decoded)
		})
	}
}

func TestTikToken_SpecialTokens(t *testing.T) {
	tok := loadTikToken(t, "cl100k_base")

	assert.Equal(t, int32(-1), tok.UnkToken(), "byte-level BPE has no unknown token")
	assert.True(t, tok.IsSpecialToken(100257))
	assert.True(t, tok.IsSpecialToken(100276))
	assert.False(t, tok.IsSpecialToken(100256))
	assert.False(t, tok.IsSpecialToken(0))

	_, err := tok.Decode([]int32{-1})
	assert.Error(t, err)
	_, err = tok.Decode([]int32{100277})
	assert.Error(t, err)
}

func TestTikToken_NewTikTokenForModel(t *testing.T) {
	tok, err := NewTikTokenForModel("invalid-model-xyz")
	assert.Error(t, err)
	assert.Nil(t, tok)

	for model, encoding := range map[string]string{"gpt-4": "cl100k_base", "text-davinci-003": "p50k_base"} {
		t.Run(model, func(t *testing.T) {
			loadTikToken(t, encoding)

			tok, err := NewTikTokenForModel(model)
			require.NoError(t, err)
			assert.Equal(t, encoding, tok.Name())
		})
	}
}

func TestAutoLoadTokenizer_TikToken(t *testing.T) {
	loadTikToken(t, "cl100k_base")

	for _, name := range []string{"cl100k_base", "gpt-4"} {
		tok, err := AutoLoadTokenizer(name)
		require.NoError(t, err)

		tokens, err := tok.Encode("test")
		require.NoError(t, err)
		assert.NotEmpty(t, tokens)
	}
}
