package tokenizer

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/born-ml/tokenforge/internal/bpe"
	"github.com/born-ml/tokenforge/internal/normalizer"
	"github.com/born-ml/tokenforge/internal/pretokenizer"
)

// HFTokenizerType identifies the tokenizer implementation type.
type HFTokenizerType string

const (
	// HFTypeBPE indicates Byte-Pair Encoding tokenizer.
	HFTypeBPE HFTokenizerType = "BPE"

	// HFTypeWordPiece indicates WordPiece tokenizer (BERT-style).
	HFTypeWordPiece HFTokenizerType = "WordPiece"

	// HFTypeUnigram indicates Unigram tokenizer (SentencePiece-style).
	HFTypeUnigram HFTokenizerType = "Unigram"

	// HFTypeUnknown indicates an unknown or unsupported tokenizer type.
	HFTypeUnknown HFTokenizerType = "Unknown"
)

// HFFileName is the file name HuggingFace uses inside a model directory.
const HFFileName = "tokenizer.json"

// ErrHFUnsupported is returned for tokenizer.json features this package cannot represent.
var ErrHFUnsupported = errors.New("unsupported tokenizer.json")

// HFTokenizerMetadata summarizes a tokenizer.json without building the model.
type HFTokenizerMetadata struct {
	Type            HFTokenizerType
	TokenizerType   string
	VocabSize       int
	Merges          int
	SpecialTokens   []string
	UnkToken        string
	EndOfWordSuffix string
}

type hfAddedToken struct {
	ID         int32  `json:"id"`
	Content    string `json:"content"`
	SingleWord bool   `json:"single_word"`
	LStrip     bool   `json:"lstrip"`
	RStrip     bool   `json:"rstrip"`
	Normalized bool   `json:"normalized"`
	Special    bool   `json:"special"`
}

type hfComponent struct {
	Type        string        `json:"type"`
	Normalizers []hfComponent `json:"normalizers,omitempty"`
	Suffix      *string       `json:"suffix,omitempty"`
}

type hfModel struct {
	Type                    string           `json:"type"`
	Dropout                 *float64         `json:"dropout"`
	UnkToken                *string          `json:"unk_token"`
	ContinuingSubwordPrefix *string          `json:"continuing_subword_prefix"`
	EndOfWordSuffix         *string          `json:"end_of_word_suffix"`
	FuseUnk                 bool             `json:"fuse_unk"`
	ByteFallback            bool             `json:"byte_fallback"`
	Vocab                   map[string]int32 `json:"vocab"`
	Merges                  hfMerges         `json:"merges"`
}

type hfFile struct {
	Version       string         `json:"version"`
	Truncation    any            `json:"truncation"`
	Padding       any            `json:"padding"`
	AddedTokens   []hfAddedToken `json:"added_tokens"`
	Normalizer    *hfComponent   `json:"normalizer"`
	PreTokenizer  *hfComponent   `json:"pre_tokenizer"`
	PostProcessor any            `json:"post_processor"`
	Decoder       *hfComponent   `json:"decoder"`
	Model         hfModel        `json:"model"`
}

// hfMerges reads both merge spellings: "left right" strings and [left, right] pairs.
type hfMerges [][2]string

// UnmarshalJSON implements json.Unmarshaler.
func (m *hfMerges) UnmarshalJSON(data []byte) error {
	var pairs [][2]string
	if err := json.Unmarshal(data, &pairs); err == nil {
		*m = pairs
		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("merges: %w", err)
	}
	out := make([][2]string, len(lines))
	for i, line := range lines {
		left, right, ok := strings.Cut(line, " ")
		if !ok || strings.Contains(right, " ") {
			return fmt.Errorf("merge %d: %q is not two space-separated symbols", i, line)
		}
		out[i] = [2]string{left, right}
	}
	*m = out
	return nil
}

// MarshalJSON writes merges as "left right" strings, the spelling every tokenizers release reads.
func (m hfMerges) MarshalJSON() ([]byte, error) {
	lines := make([]string, len(m))
	for i, p := range m {
		lines[i] = p[0] + " " + p[1]
	}
	return json.Marshal(lines)
}

func readHF(path string) (*hfFile, error) {
	//nolint:gosec // Loading tokenizer from user-specified path is intentional.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer.json: %w", err)
	}

	var f hfFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tokenizer.json: %w", err)
	}
	return &f, nil
}

// DetectHFTokenizerType determines the tokenizer type from tokenizer.json.
func DetectHFTokenizerType(path string) (*HFTokenizerMetadata, error) {
	f, err := readHF(path)
	if err != nil {
		return nil, err
	}

	metadata := &HFTokenizerMetadata{
		Type:          HFTypeUnknown,
		TokenizerType: f.Model.Type,
		VocabSize:     len(f.Model.Vocab),
		Merges:        len(f.Model.Merges),
	}
	switch f.Model.Type {
	case "BPE":
		metadata.Type = HFTypeBPE
	case "WordPiece":
		metadata.Type = HFTypeWordPiece
	case "Unigram":
		metadata.Type = HFTypeUnigram
	}
	if f.Model.UnkToken != nil {
		metadata.UnkToken = *f.Model.UnkToken
	}
	if f.Model.EndOfWordSuffix != nil {
		metadata.EndOfWordSuffix = *f.Model.EndOfWordSuffix
	}
	for _, tok := range f.AddedTokens {
		if tok.Special {
			metadata.SpecialTokens = append(metadata.SpecialTokens, tok.Content)
		}
	}

	return metadata, nil
}

// SaveHuggingFace writes the pipeline as a HuggingFace tokenizer.json file.
//
// Only rune-alphabet BPE models with lowercase-or-no normalization and whitespace
// pre-tokenization can be expressed in that format.
//
// Special tokens are written as added tokens. HuggingFace matches added tokens anywhere in the
// input, while a Pipeline only matches a special token that makes up a whole whitespace-separated
// word, so "a<unk>b" encodes differently in the two. Inputs that keep special tokens
// whitespace-separated encode the same.
func (p *Pipeline) SaveHuggingFace(path string) error {
	m, err := p.bpeModel()
	if err != nil {
		return err
	}
	if m.Alphabet() != bpe.AlphabetRunes {
		return fmt.Errorf("%w: %s alphabet has no tokenizer.json equivalent", ErrHFUnsupported, m.Alphabet())
	}
	if _, ok := p.pretokenizer.(pretokenizer.Whitespace); !ok {
		return fmt.Errorf("%w: pre-tokenizer %T", ErrHFUnsupported, p.pretokenizer)
	}
	names, err := normalizer.Names(p.normalizer)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHFUnsupported, err)
	}

	export := m.Export()
	suffix := export.EndOfWordMarker
	f := hfFile{
		Version:      "1.0",
		Normalizer:   hfNormalizer(names),
		PreTokenizer: &hfComponent{Type: "WhitespaceSplit"},
		Decoder:      &hfComponent{Type: "BPEDecoder", Suffix: &suffix},
		Model: hfModel{
			Type:   "BPE",
			Vocab:  make(map[string]int32, len(export.Vocab)),
			Merges: export.Merges,
		},
	}
	if suffix != "" {
		f.Model.EndOfWordSuffix = &suffix
	}
	for _, entry := range export.Vocab {
		f.Model.Vocab[entry.Symbol] = entry.ID
	}
	if unk := m.UnkToken(); unk >= 0 {
		sym, _ := m.IDToToken(unk)
		f.Model.UnkToken = &sym
	}
	for _, tok := range export.SpecialTokens {
		id, _ := m.TokenToID(tok)
		f.AddedTokens = append(f.AddedTokens, hfAddedToken{ID: id, Content: tok, Special: true})
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tokenizer.json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // tokenizer files are meant to be shared
		return fmt.Errorf("failed to write tokenizer.json: %w", err)
	}
	return nil
}

func hfNormalizer(names []string) *hfComponent {
	if len(names) == 0 {
		return nil
	}
	parts := make([]hfComponent, len(names))
	for i := range names {
		parts[i] = hfComponent{Type: "Lowercase"}
	}
	if len(parts) == 1 {
		return &parts[0]
	}
	return &hfComponent{Type: "Sequence", Normalizers: parts}
}

func hfNormalizerNames(c *hfComponent) ([]string, error) {
	if c == nil {
		return nil, nil
	}
	switch c.Type {
	case "Lowercase":
		return []string{normalizer.NameLowercase}, nil
	case "Sequence":
		var names []string
		for i := range c.Normalizers {
			sub, err := hfNormalizerNames(&c.Normalizers[i])
			if err != nil {
				return nil, err
			}
			names = append(names, sub...)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%w: normalizer %q", ErrHFUnsupported, c.Type)
	}
}

// LoadHuggingFace builds a pipeline from a BPE tokenizer.json file.
func LoadHuggingFace(path string) (*Pipeline, error) {
	f, err := readHF(path)
	if err != nil {
		return nil, err
	}
	if f.Model.Type != string(HFTypeBPE) {
		return nil, fmt.Errorf("%w: model type %q", ErrHFUnsupported, f.Model.Type)
	}
	if f.Model.ContinuingSubwordPrefix != nil && *f.Model.ContinuingSubwordPrefix != "" {
		return nil, fmt.Errorf("%w: continuing_subword_prefix", ErrHFUnsupported)
	}
	if f.Model.ByteFallback {
		return nil, fmt.Errorf("%w: byte_fallback", ErrHFUnsupported)
	}
	if f.PreTokenizer == nil || f.PreTokenizer.Type != "WhitespaceSplit" {
		return nil, fmt.Errorf("%w: pre-tokenizer must be WhitespaceSplit", ErrHFUnsupported)
	}

	names, err := hfNormalizerNames(f.Normalizer)
	if err != nil {
		return nil, err
	}
	norm, err := normalizer.FromNames(names)
	if err != nil {
		return nil, err
	}

	export := bpe.Export{
		Vocab:         make([]bpe.VocabEntry, 0, len(f.Model.Vocab)),
		Merges:        f.Model.Merges,
		Alphabet:      bpe.AlphabetRunes.String(),
		UnknownPolicy: bpe.PolicyError,
	}
	for sym, id := range f.Model.Vocab {
		export.Vocab = append(export.Vocab, bpe.VocabEntry{Symbol: sym, ID: id})
	}
	slices.SortFunc(export.Vocab, func(a, b bpe.VocabEntry) int { return cmp.Compare(a.ID, b.ID) })

	if f.Model.EndOfWordSuffix != nil {
		export.EndOfWordMarker = *f.Model.EndOfWordSuffix
	}
	if f.Model.UnkToken != nil {
		id, ok := f.Model.Vocab[*f.Model.UnkToken]
		if !ok {
			return nil, fmt.Errorf("%w: unk_token %q is not in the vocabulary", bpe.ErrInvalidModel, *f.Model.UnkToken)
		}
		export.UnknownPolicy = bpe.PolicyMap
		export.UnknownID = &id
	}

	added := slices.Clone(f.AddedTokens)
	slices.SortFunc(added, func(a, b hfAddedToken) int { return cmp.Compare(a.ID, b.ID) })
	for _, tok := range added {
		if tok.Special {
			export.SpecialTokens = append(export.SpecialTokens, tok.Content)
		}
	}

	m, err := bpe.NewModel(export)
	if err != nil {
		return nil, err
	}

	return NewBuilder().
		WithNormalizer(norm).
		WithModel(NewBPEModel(m)).
		Build(), nil
}

// LoadFromHuggingFace loads a tokenizer from a HuggingFace model directory.
//
// The directory should contain tokenizer.json.
func LoadFromHuggingFace(modelPath string) (*Pipeline, error) {
	tokenizerPath := filepath.Join(modelPath, HFFileName)

	metadata, err := DetectHFTokenizerType(tokenizerPath)
	if err != nil {
		return nil, err
	}

	switch metadata.Type {
	case HFTypeBPE:
		return LoadHuggingFace(tokenizerPath)
	case HFTypeWordPiece, HFTypeUnigram:
		return nil, fmt.Errorf("%w: %s models are not supported", ErrHFUnsupported, metadata.Type)
	default:
		return nil, fmt.Errorf("unknown tokenizer type: %s", metadata.TokenizerType)
	}
}

// TryLoadTikToken attempts to load a tiktoken encoding by model or encoding name.
func TryLoadTikToken(name string) (*TikToken, error) {
	if tok, err := NewTikTokenForModel(name); err == nil {
		return tok, nil
	}
	return NewTikToken(name)
}

// AutoLoadTokenizer attempts to automatically load the correct tokenizer.
//
// It tries, in order:
//  1. a HuggingFace model directory containing tokenizer.json
//  2. a tokenizer.json file
//  3. a native .tfm file
//  4. a tiktoken model or encoding name
func AutoLoadTokenizer(pathOrName string) (Tokenizer, error) {
	if info, err := os.Stat(pathOrName); err == nil {
		var p *Pipeline
		switch {
		case info.IsDir():
			p, err = LoadFromHuggingFace(pathOrName)
		case strings.EqualFold(filepath.Ext(pathOrName), ".json"):
			p, err = LoadHuggingFace(pathOrName)
		default:
			p, err = Load(pathOrName)
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	if tok, err := TryLoadTikToken(pathOrName); err == nil {
		return tok, nil
	}

	return nil, fmt.Errorf("failed to auto-load tokenizer from %q", pathOrName)
}
