package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tokenforge/internal/bpe"
	"github.com/born-ml/tokenforge/internal/corpus"
	"github.com/born-ml/tokenforge/internal/normalizer"
	"github.com/born-ml/tokenforge/internal/parallel"
)

var exampleCorpus = []string{
	"low low low low low",
	"lowest lowest",
	"newer newer newer newer newer newer",
	"wider wider wider",
}

func exampleTrainer(t *testing.T, target int, edit ...func(*bpe.TrainerConfig)) *BPETrainer {
	t.Helper()
	cfg := bpe.DefaultTrainerConfig()
	cfg.TargetVocabSize = target
	cfg.MinPairFrequency = 1
	for _, e := range edit {
		e(&cfg)
	}
	trainer, err := NewBPETrainer(cfg, bpe.WithParallel(parallel.Config{}))
	require.NoError(t, err)
	return trainer
}

// trainExample trains the pinned three-merge model on exampleCorpus.
func trainExample(t *testing.T, b *Builder) *Pipeline {
	t.Helper()
	p, err := b.Build().Train(context.Background(), exampleTrainer(t, 14), corpus.Strings(exampleCorpus...), nil)
	require.NoError(t, err)
	return p
}

func TestPipeline_TrainPinnedExample(t *testing.T) {
	base := NewBuilder().Build()
	p, err := base.Train(context.Background(), exampleTrainer(t, 14), corpus.Strings(exampleCorpus...), nil)
	require.NoError(t, err)

	assert.Nil(t, base.Model(), "training must not modify the receiver")
	require.NotNil(t, p.Model())
	assert.Equal(t, KindBPE, p.Model().Kind())
	assert.Equal(t, 14, p.VocabSize())

	m, ok := p.Model().(*BPEModel)
	require.True(t, ok)
	assert.Equal(t, 3, m.Report.Merges)
	assert.Equal(t, bpe.StopTargetReached, m.Report.StopReason)

	ids, err := p.Encode("lower newer")
	require.NoError(t, err)
	assert.Equal(t, []int32{12, 3, 11, 7, 13, 11}, ids)

	text, err := p.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, "lower newer", text)
}

func TestPipeline_Lowercase(t *testing.T) {
	upper := make([]string, len(exampleCorpus))
	for i, line := range exampleCorpus {
		upper[i] = strings.ToUpper(line)
	}

	p, err := NewBuilder().WithLowercase().Build().
		Train(context.Background(), exampleTrainer(t, 14), corpus.Strings(upper...), nil)
	require.NoError(t, err)

	ids, err := p.Encode("LOWER Newer")
	require.NoError(t, err)
	assert.Equal(t, []int32{12, 3, 11, 7, 13, 11}, ids)

	text, err := p.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, "lower newer", text)
}

func TestBuilder_WithLowercase(t *testing.T) {
	upper := normalizer.Func(strings.ToUpper)

	assert.Equal(t, normalizer.Lowercase{}, NewBuilder().WithLowercase().Build().Normalizer())
	assert.Equal(t,
		normalizer.Sequence{normalizer.Lowercase{}, normalizer.Lowercase{}},
		NewBuilder().WithNormalizer(normalizer.Sequence{normalizer.Lowercase{}}).WithLowercase().Build().Normalizer())

	seq, ok := NewBuilder().WithNormalizer(upper).WithLowercase().Build().Normalizer().(normalizer.Sequence)
	require.True(t, ok)
	assert.Len(t, seq, 2)
	assert.Equal(t, "abc", seq.Normalize("aBc"))
}

func TestBuilder_BuildIsIndependent(t *testing.T) {
	b := NewBuilder()
	first := b.Build()
	second := b.WithLowercase().Build()

	assert.Nil(t, first.Normalizer())
	assert.NotNil(t, second.Normalizer())
}

func TestPipeline_EncodeWithOffsets(t *testing.T) {
	p := trainExample(t, NewBuilder())

	enc, err := p.EncodeWithOffsets("  lower\tnewer")
	require.NoError(t, err)

	assert.Equal(t, []int32{12, 3, 11, 7, 13, 11}, enc.IDs)
	assert.Equal(t, []string{"lo", "w", "er</w>", "n", "ew", "er</w>"}, enc.Tokens)
	assert.Equal(t, []Offset{{2, 4}, {4, 5}, {5, 7}, {8, 9}, {9, 11}, {11, 13}}, enc.Offsets)
	for i, off := range enc.Offsets {
		assert.Equal(t, strings.TrimSuffix(enc.Tokens[i], "</w>"), enc.Normalized[off.Start:off.End])
	}
}

func TestPipeline_EncodeEmpty(t *testing.T) {
	p := trainExample(t, NewBuilder())

	ids, err := p.Encode(" \n\t ")
	require.NoError(t, err)
	assert.Empty(t, ids)

	text, err := p.Decode(ids)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestPipeline_UnknownSymbol(t *testing.T) {
	p := trainExample(t, NewBuilder())

	_, err := p.Encode("low zoo")
	require.Error(t, err)
	assert.ErrorIs(t, err, bpe.ErrUnknownSymbol)

	var unk *bpe.UnknownSymbolError
	require.ErrorAs(t, err, &unk)
	assert.Equal(t, "zoo", unk.Word)
}

func TestPipeline_Untrained(t *testing.T) {
	p := NewBuilder().Build()

	_, err := p.Encode("low")
	assert.ErrorIs(t, err, ErrUntrained)
	_, err = p.EncodeBatch([]string{"low"})
	assert.ErrorIs(t, err, ErrUntrained)
	_, err = p.Decode([]int32{0})
	assert.ErrorIs(t, err, ErrUntrained)

	assert.Equal(t, 0, p.VocabSize())
	assert.Equal(t, int32(-1), p.UnkToken())
	assert.False(t, p.IsSpecialToken(0))
}

func TestPipeline_EmptyCorpus(t *testing.T) {
	p := NewBuilder().Build()

	_, err := p.Train(context.Background(), exampleTrainer(t, 14), corpus.Strings("", "  ", "\t"), nil)
	assert.ErrorIs(t, err, bpe.ErrEmptyCorpus)
}

func TestPipeline_TrainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder().Build().Train(ctx, exampleTrainer(t, 14), corpus.Strings(exampleCorpus...), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_TrainError(t *testing.T) {
	// The seed alphabet of the example has 11 symbols.
	_, err := NewBuilder().Build().Train(context.Background(), exampleTrainer(t, 5), corpus.Strings(exampleCorpus...), nil)
	assert.ErrorIs(t, err, bpe.ErrConfiguration)
}

func generatedCorpus(lines int) []string {
	words := []string{"low", "lower", "lowest", "new", "newer", "newest", "wide", "wider", "widest", "show", "shower"}
	out := make([]string, lines)
	for i := range out {
		var b strings.Builder
		for j := range 1 + i%7 {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(words[(i*31+j*17)%len(words)])
		}
		out[i] = b.String()
	}
	return out
}

func TestPipeline_CountWordsDeterministic(t *testing.T) {
	texts := generatedCorpus(500)

	sequential := NewBuilder().WithParallel(parallel.Config{}).WithBatchSize(1000).Build()
	want, err := sequential.CountWords(context.Background(), corpus.Strings(texts...))
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			cfg := parallel.Config{Enabled: true, NumWorkers: workers, MinChunkSize: 1}
			p := NewBuilder().WithParallel(cfg).WithBatchSize(37).Build()

			got, err := p.CountWords(context.Background(), corpus.Strings(texts...))
			require.NoError(t, err)

			assert.Equal(t, collect(want), collect(got))
		})
	}
}

func collect(wc *bpe.WordCounts) []string {
	var out []string
	for word, n := range wc.All() {
		out = append(out, fmt.Sprintf("%s:%d", word, n))
	}
	return out
}

func TestPipeline_TrainDeterministicAcrossWorkers(t *testing.T) {
	texts := generatedCorpus(300)

	var exports []bpe.Export
	for _, workers := range []int{1, 2, 5} {
		cfg := parallel.Config{Enabled: workers > 1, NumWorkers: workers, MinChunkSize: 1}
		trainer := exampleTrainer(t, 60)
		p, err := NewBuilder().WithParallel(cfg).WithBatchSize(16).Build().
			Train(context.Background(), trainer, corpus.Strings(texts...), nil)
		require.NoError(t, err)
		exports = append(exports, p.Model().(*BPEModel).Export())
	}

	assert.Equal(t, exports[0], exports[1])
	assert.Equal(t, exports[0], exports[2])
}

func TestPipeline_RoundTrip(t *testing.T) {
	texts := generatedCorpus(200)
	p, err := NewBuilder().Build().
		Train(context.Background(), exampleTrainer(t, 80), corpus.Strings(texts...), nil)
	require.NoError(t, err)

	for _, text := range texts[:50] {
		ids, err := p.Encode(text)
		require.NoError(t, err)
		decoded, err := p.Decode(ids)
		require.NoError(t, err)
		assert.Equal(t, strings.Join(strings.Fields(text), " "), decoded)
	}
}

func TestPipeline_EncodeBatch(t *testing.T) {
	cfg := parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}
	p := trainExample(t, NewBuilder().WithParallel(cfg))

	texts := []string{"lower newer", "low", "", "wider lowest", "newer newer"}
	batch, err := p.EncodeBatch(texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		ids, err := p.Encode(text)
		require.NoError(t, err)
		assert.Equal(t, ids, batch[i], text)
	}
}

func TestPipeline_EncodeBatchError(t *testing.T) {
	cfg := parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}
	p := trainExample(t, NewBuilder().WithParallel(cfg))

	_, err := p.EncodeBatch([]string{"low", "low", "zap", "low", "qua"})
	require.Error(t, err)
	assert.ErrorIs(t, err, bpe.ErrUnknownSymbol)
	assert.Contains(t, err.Error(), "text 2")
}

func TestPipeline_ObserverProgress(t *testing.T) {
	var calls [][2]int
	observer := func(done, total int) { calls = append(calls, [2]int{done, total}) }

	_, err := NewBuilder().Build().
		Train(context.Background(), exampleTrainer(t, 14), corpus.Strings(exampleCorpus...), observer)
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
}

func TestPipeline_MapUnknown(t *testing.T) {
	trainer := exampleTrainer(t, 15, func(c *bpe.TrainerConfig) {
		c.SpecialTokens = []string{"<unk>"}
		c.UnknownPolicy = bpe.MapUnknownTo(0)
	})
	p, err := NewBuilder().Build().Train(context.Background(), trainer, corpus.Strings(exampleCorpus...), nil)
	require.NoError(t, err)

	assert.Equal(t, int32(0), p.UnkToken())
	assert.True(t, p.IsSpecialToken(0))

	ids, err := p.Encode("<unk> lowz")
	require.NoError(t, err)
	assert.Equal(t, int32(0), ids[0])
	assert.Equal(t, int32(0), ids[len(ids)-1])

	text, err := p.Decode([]int32{0, 13})
	require.NoError(t, err)
	assert.Equal(t, "<unk> lo", text)
}

func TestNonBlocking(t *testing.T) {
	release := make(chan struct{})
	var calls [][2]int
	observer := func(done, total int) {
		if len(calls) == 0 {
			<-release
		}
		calls = append(calls, [2]int{done, total})
	}

	notify, stop := NonBlocking(observer)
	for i := 1; i <= 100; i++ {
		notify(i, 100)
	}
	close(release)
	stop()
	stop()

	require.NotEmpty(t, calls)
	assert.Equal(t, [2]int{100, 100}, calls[len(calls)-1])
	for i := 1; i < len(calls); i++ {
		assert.Greater(t, calls[i][0], calls[i-1][0])
	}
}

func TestNonBlocking_Nil(t *testing.T) {
	notify, stop := NonBlocking(nil)
	notify(1, 2)
	stop()
}

func TestNonBlocking_WithTraining(t *testing.T) {
	var last [2]int
	notify, stop := NonBlocking(func(done, total int) { last = [2]int{done, total} })

	_, err := NewBuilder().Build().
		Train(context.Background(), exampleTrainer(t, 14), corpus.Strings(exampleCorpus...), notify)
	stop()
	require.NoError(t, err)

	assert.Equal(t, [2]int{3, 3}, last)
}

func TestTrainerKind(t *testing.T) {
	trainer := exampleTrainer(t, 14)
	assert.Equal(t, KindBPE, trainer.Kind())
	assert.Equal(t, 14, trainer.Config().TargetVocabSize)

	_, err := NewBPETrainer(bpe.TrainerConfig{})
	assert.True(t, errors.Is(err, bpe.ErrConfiguration))
}
