package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/born-ml/tokenforge/internal/corpus"
	"github.com/born-ml/tokenforge/internal/tokenizer"
)

const encodeBatchSize = 256

func (a *app) encode(ctx context.Context, args []string) error {
	fs := a.flagSet("encode")
	modelPath := fs.String("model", "", "tokenizer file (.tfm, tokenizer.json or a directory holding one)")
	offsets := fs.Bool("offsets", false, "print one token per line with its symbol and byte span")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := loadPipeline(*modelPath)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(a.stdout)
	defer func() { _ = w.Flush() }()

	if *offsets {
		texts := fs.Args()
		if len(texts) == 0 {
			return fmt.Errorf("--offsets needs the text as arguments")
		}
		return writeOffsets(w, p, strings.Join(texts, " "))
	}

	var src interface {
		Err() error
	}
	var lines = corpus.Strings(strings.Join(fs.Args(), " "))
	if fs.NArg() == 0 {
		stdin := corpus.Lines(a.stdin)
		src, lines = stdin, stdin.All()
	}

	for batch := range corpus.Batches(lines, encodeBatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		encoded, err := p.EncodeBatch(batch)
		if err != nil {
			return err
		}
		for _, ids := range encoded {
			if err := writeIDs(w, ids); err != nil {
				return err
			}
		}
	}
	if src != nil {
		return src.Err()
	}
	return nil
}

func writeOffsets(w io.Writer, p *tokenizer.Pipeline, text string) error {
	enc, err := p.EncodeWithOffsets(text)
	if err != nil {
		return err
	}
	for i, id := range enc.IDs {
		off := enc.Offsets[i]
		if _, err := fmt.Fprintf(w, "%d\t%q\t%d:%d\n", id, enc.Tokens[i], off.Start, off.End); err != nil {
			return err
		}
	}
	return nil
}

func writeIDs(w io.Writer, ids []int32) error {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatInt(int64(id), 10))
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func (a *app) decode(_ context.Context, args []string) error {
	fs := a.flagSet("decode")
	modelPath := fs.String("model", "", "tokenizer file (.tfm, tokenizer.json or a directory holding one)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := loadPipeline(*modelPath)
	if err != nil {
		return err
	}

	if fs.NArg() > 0 {
		return decodeLine(a.stdout, p, strings.Join(fs.Args(), " "))
	}

	stdin := corpus.Lines(a.stdin)
	for line := range corpus.SkipBlank(stdin.All()) {
		if err := decodeLine(a.stdout, p, line); err != nil {
			return err
		}
	}
	return stdin.Err()
}

func decodeLine(w io.Writer, p *tokenizer.Pipeline, line string) error {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	ids := make([]int32, len(fields))
	for i, f := range fields {
		id, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid token id %q: %w", f, err)
		}
		ids[i] = int32(id)
	}

	text, err := p.Decode(ids)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
