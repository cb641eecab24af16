package main

import (
	"context"
	"fmt"
	"iter"
	"text/tabwriter"

	"github.com/born-ml/tokenforge/internal/corpus"
	"github.com/born-ml/tokenforge/internal/tokenizer"
)

func (a *app) compare(ctx context.Context, args []string) error {
	fs := a.flagSet("compare")
	modelPath := fs.String("model", "", "tokenizer file (.tfm, tokenizer.json or a directory holding one)")
	reference := fs.String("reference", "cl100k_base", "reference tokenizer: a model path, a tiktoken encoding or an OpenAI model name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := loadPipeline(*modelPath)
	if err != nil {
		return err
	}
	ref, err := tokenizer.AutoLoadTokenizer(*reference)
	if err != nil {
		return fmt.Errorf("reference %s: %w", *reference, err)
	}

	var (
		texts iter.Seq[string]
		src   interface{ Err() error }
	)
	if fs.NArg() > 0 {
		files := corpus.Files(fs.Args()...)
		texts, src = files.All(), files
	} else {
		stdin := corpus.Lines(a.stdin)
		texts, src = stdin.All(), stdin
	}

	c, err := tokenizer.Compare(ctx, p, ref, corpus.SkipBlank(texts))
	if srcErr := src.Err(); srcErr != nil {
		return srcErr
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "\tcandidate\treference (%s)\n", *reference)
	_, _ = fmt.Fprintf(tw, "texts:\t%d\t%d\n", c.Texts, c.Texts)
	_, _ = fmt.Fprintf(tw, "words:\t%d\t%d\n", c.Words, c.Words)
	_, _ = fmt.Fprintf(tw, "tokens:\t%d\t%d\n", c.Tokens, c.ReferenceTokens)
	_, _ = fmt.Fprintf(tw, "tokens per word:\t%.3f\t%.3f\n", c.TokensPerWord, c.ReferenceTokensPerWord)
	_, _ = fmt.Fprintf(tw, "unknown tokens:\t%d\t\n", c.Unknown)
	_, _ = fmt.Fprintf(tw, "token ratio:\t%.3f\t\n", c.Ratio)
	_, _ = fmt.Fprintf(tw, "per-text ratio:\t%.3f ± %.3f\t\n", c.MeanTextRatio, c.StdDevTextRatio)
	return tw.Flush()
}
