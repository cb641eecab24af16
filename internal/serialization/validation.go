package serialization

import (
	"fmt"
	"strings"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize       = 16 * 1024 * 1024 // 16MB - maximum JSON header size
	MaxDataSize         = 1 << 30          // 1GB - maximum data section size
	MaxMetadataEntries  = 1024
	MaxMetadataKeyLen   = 256
	MaxMetadataValueLen = 64 * 1024
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default, recommended for production).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks the fields needed to load the model only.
	ValidationNormal
	// ValidationNone skips validation (dangerous! Use only with trusted input).
	ValidationNone
)

// ValidateMetadataKey rejects keys that are empty, too long or contain control characters.
func ValidateMetadataKey(key string) error {
	if key == "" {
		return &ValidationError{Type: "invalid_key", Field: "metadata", Details: "empty key"}
	}
	if len(key) > MaxMetadataKeyLen {
		return &ValidationError{
			Type:    "invalid_key",
			Field:   "metadata",
			Details: fmt.Sprintf("key length %d > max %d", len(key), MaxMetadataKeyLen),
		}
	}
	if strings.ContainsFunc(key, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return &ValidationError{Type: "invalid_key", Field: "metadata", Details: fmt.Sprintf("key %q contains a control character", key)}
	}
	return nil
}

// ValidateHeader performs header validation at the given level.
func ValidateHeader(h *Header, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	if h.ModelType == "" {
		return &ValidationError{Type: "missing_field", Field: "model_type", Details: "model type is required"}
	}
	if h.VocabSize <= 0 {
		return &ValidationError{Type: "vocab_size", Field: "vocab_size", Details: fmt.Sprintf("got %d, must be positive", h.VocabSize)}
	}
	if h.Merges < 0 {
		return &ValidationError{Type: "merge_count", Field: "merges", Details: fmt.Sprintf("got %d, must not be negative", h.Merges)}
	}
	if h.Pipeline.PreTokenizer == "" {
		return &ValidationError{Type: "missing_field", Field: "pipeline.pre_tokenizer", Details: "pre-tokenizer is required"}
	}

	if level != ValidationStrict {
		return nil
	}

	if len(h.SpecialTokens) > h.VocabSize {
		return &ValidationError{
			Type:    "special_tokens",
			Field:   "special_tokens",
			Details: fmt.Sprintf("%d special tokens in a vocabulary of %d", len(h.SpecialTokens), h.VocabSize),
		}
	}
	for _, name := range h.Pipeline.Normalizers {
		if name == "" {
			return &ValidationError{Type: "missing_field", Field: "pipeline.normalizers", Details: "empty normalizer name"}
		}
	}

	if len(h.Metadata) > MaxMetadataEntries {
		return &ValidationError{
			Type:    "too_much_metadata",
			Field:   "metadata",
			Details: fmt.Sprintf("got %d entries, max %d", len(h.Metadata), MaxMetadataEntries),
		}
	}
	for key, value := range h.Metadata {
		if err := ValidateMetadataKey(key); err != nil {
			return err
		}
		if len(value) > MaxMetadataValueLen {
			return &ValidationError{
				Type:    "too_much_metadata",
				Field:   "metadata",
				Details: fmt.Sprintf("value of %q is %d bytes, max %d", key, len(value), MaxMetadataValueLen),
			}
		}
	}

	return nil
}
