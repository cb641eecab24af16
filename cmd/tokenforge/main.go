// Package main provides the tokenforge CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/born-ml/tokenforge/internal/serialization"
	"github.com/born-ml/tokenforge/internal/tokenizer"
)

const version = "v0.3.0"

// app carries the standard streams so commands can be run from tests.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	usage string
	run   func(a *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"train":   {"train a tokenizer on corpus files", (*app).train},
	"encode":  {"encode text to token ids", (*app).encode},
	"decode":  {"decode token ids to text", (*app).decode},
	"inspect": {"show model details, vocabulary prefixes and merges", (*app).inspect},
	"compare": {"compare token counts against a reference tokenizer", (*app).compare},
	"version": {"show version", (*app).version},
}

var commandOrder = []string{"train", "encode", "decode", "inspect", "compare", "version"}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		a.usage()
		return 2
	}

	if err := cmd.run(a, ctx, args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "tokenforge %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func (a *app) usage() {
	_, _ = fmt.Fprintf(a.stderr, "tokenforge %s - BPE tokenizer trainer\n\nCommands:\n", version)
	for _, name := range commandOrder {
		_, _ = fmt.Fprintf(a.stderr, "  %-10s %s\n", name, commands[name].usage)
	}
	_, _ = fmt.Fprintln(a.stderr, "\nRun 'tokenforge <command> --help' for the flags of a command.")
}

func (a *app) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) version(_ context.Context, _ []string) error {
	_, err := fmt.Fprintf(a.stdout, "tokenforge %s (container format %d, generator %s)\n",
		version, serialization.FormatVersion, serialization.GeneratorVersion)
	return err
}

// loadPipeline opens a trained tokenizer: a .tfm file, a tokenizer.json file or a directory
// holding tokenizer.json.
func loadPipeline(path string) (*tokenizer.Pipeline, error) {
	if path == "" {
		return nil, errors.New("--model is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	switch {
	case info.IsDir():
		return tokenizer.LoadFromHuggingFace(path)
	case strings.EqualFold(filepath.Ext(path), ".json"):
		return tokenizer.LoadHuggingFace(path)
	default:
		return tokenizer.Load(path)
	}
}
