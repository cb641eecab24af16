package serialization

import "time"

// Format constants.
const (
	MagicBytes      = "TFRG"
	FormatVersion   = 1
	HeaderAlignment = 64   // Data section starts on a 64-byte boundary
	FixedHeaderSize = 64   // 0x40 bytes
	ChecksumSize    = 32   // SHA-256
	ChecksumOffset  = 0x20 // Checksum position in the fixed header
)

// Flags for the .tfm format.
const (
	FlagHasMetadata      uint32 = 1 << 0 // bit 0: custom metadata included
	FlagHasSpecialTokens uint32 = 1 << 1 // bit 1: model declares special tokens
	FlagHasNormalizer    uint32 = 1 << 2 // bit 2: pipeline normalizes input
)

// Header represents the JSON header in a .tfm file.
type Header struct {
	FormatVersion    int               `json:"format_version"`
	GeneratorVersion string            `json:"generator_version"` // tokenforge version that wrote the file
	ModelID          string            `json:"model_id"`          // UUID assigned when the file is written
	ModelType        string            `json:"model_type"`        // e.g. "BPE"
	CreatedAt        time.Time         `json:"created_at"`
	Pipeline         PipelineMeta      `json:"pipeline"`
	VocabSize        int               `json:"vocab_size"`
	Merges           int               `json:"merges"`
	SpecialTokens    []string          `json:"special_tokens,omitempty"`
	Metadata         map[string]string `json:"metadata"`
}

// PipelineMeta names the text processing stages in front of the model.
type PipelineMeta struct {
	Normalizers  []string `json:"normalizers,omitempty"`
	PreTokenizer string   `json:"pre_tokenizer"`
}

// flags derives the fixed-header flags from h.
func (h *Header) flags() uint32 {
	var flags uint32
	if len(h.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if len(h.SpecialTokens) > 0 {
		flags |= FlagHasSpecialTokens
	}
	if len(h.Pipeline.Normalizers) > 0 {
		flags |= FlagHasNormalizer
	}
	return flags
}

// dataOffset returns where the data section starts for a JSON header of headerSize bytes.
func dataOffset(headerSize int64) int64 {
	pos := int64(FixedHeaderSize) + headerSize
	return pos + (HeaderAlignment-pos%HeaderAlignment)%HeaderAlignment
}
