package bpe

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/rs/zerolog"

	"github.com/born-ml/tokenforge/internal/parallel"
)

// Observer receives training progress: merges learned so far and the merge budget.
// It is called from the training goroutine and must not block.
type Observer func(done, total int)

// Stop reasons reported in Report.StopReason.
const (
	StopTargetReached = "target vocabulary size reached"
	StopNoPairs       = "no pairs left"
	StopMinFrequency  = "best pair below minimum frequency"
)

// Trainer learns BPE merge rules from word counts.
//
// A Trainer holds only configuration; every Train call owns its own scratch state, so one Trainer
// may serve several runs, including concurrent ones.
type Trainer struct {
	cfg      TrainerConfig
	parallel parallel.Config
	logger   zerolog.Logger
	logEvery int
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithLogger sets the logger used for training events.
func WithLogger(logger zerolog.Logger) TrainerOption {
	return func(t *Trainer) { t.logger = logger }
}

// WithParallel sets the worker configuration for pair counting and word rewrites.
func WithParallel(cfg parallel.Config) TrainerOption {
	return func(t *Trainer) { t.parallel = cfg }
}

// WithLogEvery logs a debug line every n merges. Zero disables per-merge logging.
func WithLogEvery(n int) TrainerOption {
	return func(t *Trainer) { t.logEvery = n }
}

// NewTrainer validates cfg and returns a trainer.
func NewTrainer(cfg TrainerConfig, opts ...TrainerOption) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.SpecialTokens = append([]string(nil), cfg.SpecialTokens...)
	t := &Trainer{
		cfg:      cfg,
		parallel: parallel.DefaultConfig(),
		logger:   zerolog.Nop(),
		logEvery: 1000,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Config returns the trainer configuration.
func (t *Trainer) Config() TrainerConfig {
	return t.cfg
}

// session is the scratch state of one training run.
type session struct {
	*Trainer
	vocab  *Vocabulary
	words  []word
	counts map[pair]int64
	where  map[pair]*roaring.Bitmap
	queue  *pairQueue
	merges []pair
	ruled  map[pair]struct{}
}

// Train learns merges from words until the vocabulary reaches TargetVocabSize, no pair is left,
// or the best pair is rarer than MinPairFrequency. The context is checked before every merge.
//
// Either a complete model is returned or an error; no partial model escapes.
func (t *Trainer) Train(ctx context.Context, words *WordCounts, observer Observer) (*Model, Report, error) {
	if words == nil || words.Len() == 0 {
		return nil, Report{}, ErrEmptyCorpus
	}

	s := &session{
		Trainer: t,
		vocab:   newVocabulary(),
		ruled:   make(map[pair]struct{}),
	}
	for _, tok := range t.cfg.SpecialTokens {
		s.vocab.add(tok)
	}

	before := s.seed(words)
	seedSize := s.vocab.Len()
	if t.cfg.TargetVocabSize < seedSize {
		return nil, Report{}, &ConfigurationError{
			Field:  "TargetVocabSize",
			Reason: fmt.Sprintf("%d is smaller than the seed alphabet of %d symbols", t.cfg.TargetVocabSize, seedSize),
		}
	}

	budget := t.cfg.TargetVocabSize - seedSize
	t.logger.Info().
		Int("words", len(s.words)).
		Int64("occurrences", words.Total()).
		Int("seed", seedSize).
		Int("budget", budget).
		Msg("bpe training started")

	s.countPairs()

	reason, err := s.loop(ctx, budget, observer)
	if err != nil {
		return nil, Report{}, err
	}

	if unk := t.cfg.UnknownPolicy; unk.Kind == UnknownMapToID && int(unk.ID) >= s.vocab.Len() {
		return nil, Report{}, &ConfigurationError{
			Field:  "UnknownPolicy",
			Reason: fmt.Sprintf("id %d is outside the trained vocabulary of %d tokens", unk.ID, s.vocab.Len()),
		}
	}

	model, err := newModel(s.vocab, s.merges, modelOptions{
		marker:   t.cfg.EndOfWordMarker,
		alphabet: t.cfg.Alphabet,
		unknown:  t.cfg.UnknownPolicy,
		special:  t.cfg.SpecialTokens,
	})
	if err != nil {
		return nil, Report{}, fmt.Errorf("finalize: %w", err)
	}

	report := s.report(before, seedSize, reason)
	t.logger.Info().
		Int("vocab", report.VocabSize).
		Int("merges", report.Merges).
		Float64("compression", report.CompressionRatio).
		Str("reason", reason).
		Msg("bpe training finished")

	return model, report, nil
}

// seed builds the training words and the seed alphabet in first-seen order.
// It returns each word's initial length for the report.
func (s *session) seed(words *WordCounts) []float64 {
	s.words = make([]word, 0, words.Len())
	lengths := make([]float64, 0, words.Len())

	for text, count := range words.All() {
		var syms []int32
		s.cfg.Alphabet.split(text, s.cfg.EndOfWordMarker, func(sym string, _ int) {
			id, _ := s.vocab.add(sym)
			syms = append(syms, id)
		})
		s.words = append(s.words, word{symbols: syms, count: count})
		lengths = append(lengths, float64(len(syms)))
	}

	return lengths
}

// pairIndex holds pair counts and the words containing each pair for a range of words.
type pairIndex struct {
	counts map[pair]int64
	where  map[pair]*roaring.Bitmap
}

// countPairs computes pair counts and the pair → words index from scratch.
func (s *session) countPairs() {
	parts := parallel.Chunks(len(s.words), s.parallel, func(start, end int) pairIndex {
		idx := pairIndex{counts: make(map[pair]int64), where: make(map[pair]*roaring.Bitmap)}
		var scratch []pair
		for wi := start; wi < end; wi++ {
			w := &s.words[wi]
			scratch = w.pairs(scratch[:0])
			for _, p := range scratch {
				idx.counts[p] += w.count
				bm, ok := idx.where[p]
				if !ok {
					bm = roaring.New()
					idx.where[p] = bm
				}
				bm.Add(uint32(wi)) //nolint:gosec // G115: word count is far below 2^32.
			}
		}
		return idx
	})

	s.counts = make(map[pair]int64)
	s.where = make(map[pair]*roaring.Bitmap)
	for _, part := range parts {
		for p, c := range part.counts {
			s.counts[p] += c
		}
		for p, bm := range part.where {
			if dst, ok := s.where[p]; ok {
				dst.Or(bm)
			} else {
				s.where[p] = bm
			}
		}
	}

	s.queue = newPairQueue(s.vocab, s.counts)
}

func (s *session) loop(ctx context.Context, budget int, observer Observer) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("training cancelled after %d merges: %w", len(s.merges), err)
		}
		if s.vocab.Len() >= s.cfg.TargetVocabSize {
			return StopTargetReached, nil
		}

		best, ok := s.queue.pop()
		if !ok {
			return StopNoPairs, nil
		}
		if best.count < s.cfg.MinPairFrequency {
			return StopMinFrequency, nil
		}

		merged, _ := s.vocab.add(best.text)
		if _, dup := s.ruled[best.pair]; dup {
			// The merged text was reachable through another route and this pair reappeared.
			// Its rule already exists with a lower rank.
			s.logger.Debug().Str("pair", best.text).Msg("pair already has a merge rule")
		} else {
			s.ruled[best.pair] = struct{}{}
			s.merges = append(s.merges, best.pair)
		}

		s.apply(best.pair, merged)

		if s.logEvery > 0 && len(s.merges)%s.logEvery == 0 {
			s.logger.Debug().
				Int("merge", len(s.merges)).
				Str("left", best.left).
				Str("merged", best.text).
				Int64("count", best.count).
				Msg("merge")
		}
		if observer != nil {
			observer(len(s.merges), budget)
		}
	}
}

// rewrite is the effect of one merge on a range of affected words.
type rewrite struct {
	deltas map[pair]int64
	added  map[pair][]uint32 // words that gained a pair containing the merged symbol
}

// apply merges p into merged in every word that contains p and updates counts, index and queue.
// Each rewritten word's old pairs are subtracted and its new pairs added, which gives exactly the
// counts a full recount would.
func (s *session) apply(p pair, merged int32) {
	affected := s.where[p].ToArray()
	delete(s.where, p)

	parts := parallel.Chunks(len(affected), s.parallel, func(start, end int) rewrite {
		rw := rewrite{deltas: make(map[pair]int64), added: make(map[pair][]uint32)}
		var scratch []pair
		for _, wi := range affected[start:end] {
			w := &s.words[wi]
			scratch = w.pairs(scratch[:0])
			if !w.merge(p, merged) {
				continue
			}
			for _, old := range scratch {
				rw.deltas[old] -= w.count
			}
			scratch = w.pairs(scratch[:0])
			for _, cur := range scratch {
				rw.deltas[cur] += w.count
				if cur.left == merged || cur.right == merged {
					rw.added[cur] = append(rw.added[cur], wi)
				}
			}
		}
		return rw
	})

	touched := make(map[pair]struct{})
	for _, part := range parts {
		for q, d := range part.deltas {
			if d == 0 {
				continue
			}
			s.counts[q] += d
			touched[q] = struct{}{}
		}
		for q, wis := range part.added {
			bm, ok := s.where[q]
			if !ok {
				bm = roaring.New()
				s.where[q] = bm
			}
			bm.AddMany(wis)
		}
	}

	for q := range touched {
		if s.counts[q] <= 0 {
			delete(s.counts, q)
			delete(s.where, q)
			continue
		}
		s.queue.update(q)
	}
}
