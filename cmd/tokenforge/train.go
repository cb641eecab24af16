package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v2"

	"github.com/born-ml/tokenforge/internal/bpe"
	"github.com/born-ml/tokenforge/internal/config"
	"github.com/born-ml/tokenforge/internal/corpus"
	"github.com/born-ml/tokenforge/internal/logging"
	"github.com/born-ml/tokenforge/internal/tokenizer"
)

func (a *app) train(ctx context.Context, args []string) error {
	fs := a.flagSet("train")
	configPath := fs.String("config", "", "config file (default ./config.yaml or ~/.config/tokenforge/config.yaml)")
	progress := fs.Bool("progress", true, "show a progress bar")
	fs.String("log-level", "info", "log level")
	fs.String("log-format", logging.FormatConsole, "log format: console or json")
	fs.Bool("lowercase", true, "fold input to lower case")
	fs.Int("target-vocab-size", 30000, "final vocabulary size, special tokens included")
	fs.Int64("min-pair-frequency", 2, "stop when the best pair is rarer than this")
	fs.String("end-of-word-marker", "</w>", "suffix of the last symbol of every word")
	fs.String("alphabet", bpe.AlphabetRunes.String(), "initial symbols: runes or bytes")
	fs.StringSlice("special-tokens", []string{"<unk>"}, "special tokens, inserted first")
	fs.String("unknown-token-policy", bpe.PolicyMap, "unknown symbols: error or map")
	fs.Int32("unknown-token-id", 0, "id unknown symbols map to")
	fs.StringSlice("files", nil, "corpus files (also accepted as arguments)")
	fs.Int("batch-size", tokenizer.DefaultBatchSize, "corpus lines counted per parallel round")
	fs.Int("workers", 0, "worker goroutines (0 = CPU count)")
	fs.Int("min-chunk-size", 64, "minimum items per worker")
	fs.String("out", "tokenizer.tfm", "output path")
	fs.String("format", config.OutputNative, "output format: native or huggingface")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(*configPath, fs)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log, a.stderr)
	if err != nil {
		return err
	}
	trainerCfg, err := cfg.TrainerConfig()
	if err != nil {
		return err
	}
	if f := cfg.Output.Format; f != config.OutputNative && f != config.OutputHuggingFace {
		return fmt.Errorf("unknown output format %q", f)
	}

	files := slices.Concat(cfg.Corpus.Files, fs.Args())
	if len(files) == 0 {
		return errors.New("no corpus files given")
	}
	src := corpus.Files(files...)
	size, err := src.Size()
	if err != nil {
		return err
	}
	logger.Info().Strs("files", src.Paths()).Int64("bytes", size).Msg("reading corpus")

	par := cfg.ParallelConfig()
	trainer, err := tokenizer.NewBPETrainer(trainerCfg, bpe.WithLogger(logger), bpe.WithParallel(par))
	if err != nil {
		return err
	}
	builder := tokenizer.NewBuilder().
		WithParallel(par).
		WithBatchSize(cfg.Corpus.BatchSize).
		WithLogger(logger)
	if cfg.Train.Lowercase {
		builder.WithLowercase()
	}

	var observer bpe.Observer
	stopBar := func() {}
	if *progress {
		observer, stopBar = a.progressBar()
	}
	notify, stop := tokenizer.NonBlocking(observer)

	p, err := builder.Build().Train(ctx, trainer, src.All(), notify)
	stop()
	stopBar()
	if srcErr := src.Err(); srcErr != nil {
		return srcErr
	}
	if err != nil {
		return err
	}

	out := cfg.Output.Path
	switch cfg.Output.Format {
	case config.OutputHuggingFace:
		if filepath.Ext(out) == ".tfm" {
			out = strings.TrimSuffix(out, ".tfm") + ".json"
		}
		err = p.SaveHuggingFace(out)
	default:
		_, err = p.Save(out, map[string]string{"corpus.files": strings.Join(files, ",")})
	}
	if err != nil {
		return err
	}

	report := p.Model().(*tokenizer.BPEModel).Report
	logger.Info().
		Str("path", out).
		Int("vocab", report.VocabSize).
		Int("merges", report.Merges).
		Str("reason", report.StopReason).
		Msg("tokenizer saved")
	_, err = fmt.Fprintf(a.stdout, "%s: %d symbols, %d merges, %.3f symbols per word (was %.3f), stopped: %s\n",
		out, report.VocabSize, report.Merges, report.SymbolsAfter, report.SymbolsBefore, report.StopReason)
	return err
}

// progressBar returns an observer drawing merge progress on stderr and a function that finishes
// the bar. The bar is created on the first update, once the merge budget is known.
func (a *app) progressBar() (bpe.Observer, func()) {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	observer := func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(a.stderr),
				progressbar.OptionSetDescription("merges"),
			)
		}
		_ = bar.Set(done)
	}
	finish := func() {
		mu.Lock()
		defer mu.Unlock()
		if bar != nil {
			_ = bar.Finish()
			_, _ = fmt.Fprintln(a.stderr)
		}
	}
	return observer, finish
}
