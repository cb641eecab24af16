package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rs/zerolog"

	"github.com/born-ml/tokenforge/internal/bpe"
	"github.com/born-ml/tokenforge/internal/corpus"
	"github.com/born-ml/tokenforge/internal/normalizer"
	"github.com/born-ml/tokenforge/internal/parallel"
	"github.com/born-ml/tokenforge/internal/pretokenizer"
)

// DefaultBatchSize is the number of corpus texts counted per parallel round.
const DefaultBatchSize = 1024

// ErrUntrained is returned when encoding or decoding with a pipeline that has no model.
var ErrUntrained = errors.New("pipeline has no trained model")

// Pipeline chains a normalizer, a pre-tokenizer and a model.
//
// A Pipeline is immutable: training returns a new Pipeline and leaves the receiver untouched,
// so one value can be shared by concurrent encoders.
type Pipeline struct {
	normalizer   normalizer.Normalizer
	pretokenizer pretokenizer.PreTokenizer
	model        Model
	parallel     parallel.Config
	batchSize    int
	logger       zerolog.Logger
}

// Builder assembles a Pipeline. Every component is fixed when Build is called.
type Builder struct {
	p Pipeline
}

// NewBuilder returns a builder with whitespace pre-tokenization, no normalization and no model.
func NewBuilder() *Builder {
	return &Builder{p: Pipeline{
		pretokenizer: pretokenizer.Whitespace{},
		parallel:     parallel.DefaultConfig(),
		batchSize:    DefaultBatchSize,
		logger:       zerolog.Nop(),
	}}
}

// WithNormalizer replaces the normalizer. Nil disables normalization.
func (b *Builder) WithNormalizer(n normalizer.Normalizer) *Builder {
	b.p.normalizer = n
	return b
}

// WithLowercase appends case folding to the normalizer chain.
func (b *Builder) WithLowercase() *Builder {
	switch n := b.p.normalizer.(type) {
	case nil:
		b.p.normalizer = normalizer.Lowercase{}
	case normalizer.Sequence:
		b.p.normalizer = append(append(normalizer.Sequence(nil), n...), normalizer.Lowercase{})
	default:
		b.p.normalizer = normalizer.Sequence{n, normalizer.Lowercase{}}
	}
	return b
}

// WithPreTokenizer replaces the pre-tokenizer.
func (b *Builder) WithPreTokenizer(p pretokenizer.PreTokenizer) *Builder {
	b.p.pretokenizer = p
	return b
}

// WithParallel sets the worker configuration for word counting and batch encoding.
func (b *Builder) WithParallel(cfg parallel.Config) *Builder {
	b.p.parallel = cfg
	return b
}

// WithBatchSize sets how many corpus texts are counted per parallel round.
func (b *Builder) WithBatchSize(n int) *Builder {
	b.p.batchSize = max(n, 1)
	return b
}

// WithLogger sets the logger for training events.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.p.logger = logger
	return b
}

// WithModel sets an already trained model.
func (b *Builder) WithModel(m Model) *Builder {
	b.p.model = m
	return b
}

// Build returns the assembled pipeline. The builder can be reused afterwards.
func (b *Builder) Build() *Pipeline {
	p := b.p
	if p.pretokenizer == nil {
		p.pretokenizer = pretokenizer.Whitespace{}
	}
	return &p
}

// Normalizer returns the normalizer, or nil when text is used as is.
func (p *Pipeline) Normalizer() normalizer.Normalizer {
	return p.normalizer
}

// PreTokenizer returns the pre-tokenizer.
func (p *Pipeline) PreTokenizer() pretokenizer.PreTokenizer {
	return p.pretokenizer
}

// Model returns the model, or nil before training.
func (p *Pipeline) Model() Model {
	return p.model
}

// Normalize applies the pipeline normalizer to text.
func (p *Pipeline) Normalize(text string) string {
	return normalizer.Apply(p.normalizer, text)
}

// CountWords normalizes and pre-tokenizes every text of texts and counts the resulting words.
//
// Texts are processed in batches; each batch is split across workers and the per-worker tables
// are merged in input order, so the first-seen order of words never depends on the worker count.
func (p *Pipeline) CountWords(ctx context.Context, texts iter.Seq[string]) (*bpe.WordCounts, error) {
	counts := bpe.NewWordCounts()
	texts = corpus.SkipBlank(texts)

	for batch := range corpus.Batches(texts, p.batchSize) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("counting words: %w", err)
		}

		parts := parallel.Chunks(len(batch), p.parallel, func(start, end int) *bpe.WordCounts {
			local := bpe.NewWordCounts()
			for _, text := range batch[start:end] {
				for _, seg := range p.pretokenizer.PreTokenize(p.Normalize(text)) {
					local.Add(seg.Text, 1)
				}
			}
			return local
		})
		for _, part := range parts {
			counts.Merge(part)
		}
	}

	if counts.Len() == 0 {
		return nil, bpe.ErrEmptyCorpus
	}

	p.logger.Debug().
		Int("words", counts.Len()).
		Int64("occurrences", counts.Total()).
		Msg("corpus counted")
	return counts, nil
}

// Train counts the words of texts and trains a model on them with trainer. It returns a new
// pipeline holding the model; the receiver is not modified.
//
// The observer is called from the training goroutine. Wrap slow observers with NonBlocking.
func (p *Pipeline) Train(ctx context.Context, trainer Trainer, texts iter.Seq[string], observer bpe.Observer) (*Pipeline, error) {
	words, err := p.CountWords(ctx, texts)
	if err != nil {
		return nil, err
	}

	model, err := trainer.Train(ctx, words, observer)
	if err != nil {
		return nil, fmt.Errorf("train %s: %w", trainer.Kind(), err)
	}

	trained := *p
	trained.model = model
	return &trained, nil
}

// Offset is a half-open byte range [Start, End) into the normalized text.
type Offset struct {
	Start int
	End   int
}

// Encoding is the detailed result of encoding one text.
type Encoding struct {
	Normalized string
	IDs        []int32
	Tokens     []string
	Offsets    []Offset
}

// EncodeWithOffsets encodes text and reports, for every token, its symbol and its byte span in
// the normalized text.
func (p *Pipeline) EncodeWithOffsets(text string) (*Encoding, error) {
	if p.model == nil {
		return nil, ErrUntrained
	}

	enc := &Encoding{
		Normalized: p.Normalize(text),
		IDs:        []int32{},
		Tokens:     []string{},
		Offsets:    []Offset{},
	}
	for _, seg := range p.pretokenizer.PreTokenize(enc.Normalized) {
		tokens, err := p.model.Tokenize(seg.Text)
		if err != nil {
			return nil, fmt.Errorf("encode word at byte %d: %w", seg.Start, err)
		}
		for _, tok := range tokens {
			enc.IDs = append(enc.IDs, tok.ID)
			enc.Tokens = append(enc.Tokens, tok.Value)
			enc.Offsets = append(enc.Offsets, Offset{Start: seg.Start + tok.Start, End: seg.Start + tok.End})
		}
	}
	return enc, nil
}

// Encode converts text to token IDs.
func (p *Pipeline) Encode(text string) ([]int32, error) {
	enc, err := p.EncodeWithOffsets(text)
	if err != nil {
		return nil, err
	}
	return enc.IDs, nil
}

type batchResult struct {
	ids [][]int32
	err error
}

// EncodeBatch encodes texts in parallel. Results are in input order. If several texts fail, the
// error of the first one is returned.
func (p *Pipeline) EncodeBatch(texts []string) ([][]int32, error) {
	if p.model == nil {
		return nil, ErrUntrained
	}

	parts := parallel.Chunks(len(texts), p.parallel, func(start, end int) batchResult {
		ids := make([][]int32, 0, end-start)
		for i := start; i < end; i++ {
			one, err := p.Encode(texts[i])
			if err != nil {
				return batchResult{err: fmt.Errorf("text %d: %w", i, err)}
			}
			ids = append(ids, one)
		}
		return batchResult{ids: ids}
	})

	out := make([][]int32, 0, len(texts))
	for _, part := range parts {
		if part.err != nil {
			return nil, part.err
		}
		out = append(out, part.ids...)
	}
	return out, nil
}

// Decode converts token IDs back to text. Words are joined by single spaces.
func (p *Pipeline) Decode(ids []int32) (string, error) {
	if p.model == nil {
		return "", ErrUntrained
	}
	return p.model.Decode(ids)
}

// VocabSize returns the model vocabulary size, or 0 before training.
func (p *Pipeline) VocabSize() int {
	if p.model == nil {
		return 0
	}
	return p.model.VocabSize()
}

// UnkToken returns the id unknown symbols encode to, or -1.
func (p *Pipeline) UnkToken() int32 {
	if p.model == nil {
		return -1
	}
	return p.model.UnkToken()
}

// IsSpecialToken checks if a token ID is a special token.
func (p *Pipeline) IsSpecialToken(id int32) bool {
	return p.model != nil && p.model.IsSpecialToken(id)
}
