package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/born-ml/tokenforge/internal/normalizer"
	"github.com/born-ml/tokenforge/internal/pretokenizer"
	"github.com/born-ml/tokenforge/internal/serialization"
	"github.com/born-ml/tokenforge/internal/tokenizer"
)

func (a *app) inspect(_ context.Context, args []string) error {
	fs := a.flagSet("inspect")
	modelPath := fs.String("model", "", "tokenizer file (.tfm, tokenizer.json or a directory holding one)")
	prefix := fs.String("prefix", "", "list the vocabulary symbols starting with this prefix")
	merges := fs.Int("merges", 0, "list the first n merge rules")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := loadPipeline(*modelPath)
	if err != nil {
		return err
	}
	m, ok := p.Model().(*tokenizer.BPEModel)
	if !ok {
		return fmt.Errorf("unsupported model %T", p.Model())
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	row := func(key string, value any) {
		_, _ = fmt.Fprintf(tw, "%s:\t%v\n", key, value)
	}

	if isNative(*modelPath) {
		h, err := readHeader(*modelPath)
		if err != nil {
			return err
		}
		row("model id", h.ModelID)
		row("created", h.CreatedAt.Format(time.RFC3339))
		row("generator", h.GeneratorVersion)
		for _, k := range slices.Sorted(maps.Keys(h.Metadata)) {
			row(k, h.Metadata[k])
		}
	}

	normalizers := "none"
	if names, err := normalizer.Names(p.Normalizer()); err == nil && len(names) > 0 {
		normalizers = strings.Join(names, ", ")
	}
	preTokenizer, ok := pretokenizer.Name(p.PreTokenizer())
	if !ok {
		preTokenizer = fmt.Sprintf("%T", p.PreTokenizer())
	}
	row("model", m.Kind())
	row("normalizers", normalizers)
	row("pre-tokenizer", preTokenizer)
	row("vocab size", m.VocabSize())
	row("merges", m.NumMerges())
	row("alphabet", m.Alphabet())
	row("end-of-word marker", fmt.Sprintf("%q", m.EndOfWordMarker()))
	row("unknown policy", m.UnknownPolicy())
	if specials := m.SpecialTokens(); len(specials) > 0 {
		row("special tokens", strings.Join(specials, " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if *prefix != "" {
		entries := m.SymbolsWithPrefix(*prefix)
		_, _ = fmt.Fprintf(a.stdout, "\n%d symbols with prefix %q:\n", len(entries), *prefix)
		for _, e := range entries {
			_, _ = fmt.Fprintf(a.stdout, "%d\t%q\n", e.ID, e.Symbol)
		}
	}

	if *merges > 0 {
		rules := m.Merges()
		rules = rules[:min(*merges, len(rules))]
		_, _ = fmt.Fprintf(a.stdout, "\nfirst %d merges:\n", len(rules))
		for _, r := range rules {
			_, _ = fmt.Fprintf(a.stdout, "%d\t%q + %q -> %q\n", r.Rank, r.Left, r.Right, r.Merged)
		}
	}
	return nil
}

func isNative(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && !strings.EqualFold(filepath.Ext(path), ".json")
}

func readHeader(path string) (serialization.Header, error) {
	r, err := serialization.NewReader(path)
	if err != nil {
		return serialization.Header{}, err
	}
	defer func() { _ = r.Close() }()
	return r.Header(), nil
}
