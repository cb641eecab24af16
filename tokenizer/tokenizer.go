// Package tokenizer trains and runs byte-pair-encoding tokenizers.
//
// This package wraps the internal implementation and provides the public API: build a
// pipeline, train it on a corpus, encode and decode, save and load.
//
// Example usage:
//
//	import "github.com/born-ml/tokenforge/tokenizer"
//
//	cfg := tokenizer.DefaultTrainerConfig()
//	cfg.TargetVocabSize = 8000
//	trainer, err := tokenizer.NewBPETrainer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p, err := tokenizer.NewBuilder().WithLowercase().Build().
//	    Train(ctx, trainer, tokenizer.Strings(lines...), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := p.Encode("Hello, world!")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := p.Save("tokenizer.tfm", nil); err != nil {
//	    log.Fatal(err)
//	}
package tokenizer

import (
	"iter"

	"github.com/born-ml/tokenforge/internal/bpe"
	"github.com/born-ml/tokenforge/internal/corpus"
	"github.com/born-ml/tokenforge/internal/tokenizer"
)

// Tokenizer is the core interface for text tokenization.
type Tokenizer = tokenizer.Tokenizer

// Pipeline chains normalization, pre-tokenization and a trained model.
type Pipeline = tokenizer.Pipeline

// Builder assembles a Pipeline.
type Builder = tokenizer.Builder

// Encoding is the detailed result of encoding one text.
type Encoding = tokenizer.Encoding

// Trainer learns a model from counted words.
type Trainer = tokenizer.Trainer

// TrainerConfig holds the options of a BPE training run.
type TrainerConfig = bpe.TrainerConfig

// Observer receives training progress: merges learned so far and the merge budget.
type Observer = bpe.Observer

// Report summarizes a training run.
type Report = bpe.Report

// Alphabet selects runes or bytes as initial symbols.
type Alphabet = bpe.Alphabet

// Alphabets.
const (
	AlphabetRunes = bpe.AlphabetRunes
	AlphabetBytes = bpe.AlphabetBytes
)

// Errors callers can match with errors.Is.
var (
	ErrConfiguration = bpe.ErrConfiguration
	ErrEmptyCorpus   = bpe.ErrEmptyCorpus
	ErrUnknownSymbol = bpe.ErrUnknownSymbol
	ErrInvalidModel  = bpe.ErrInvalidModel
	ErrUntrained     = tokenizer.ErrUntrained
)

// DefaultTrainerConfig returns the defaults used by the command-line tool.
func DefaultTrainerConfig() TrainerConfig {
	return bpe.DefaultTrainerConfig()
}

// RaiseOnUnknown returns the policy that fails encoding on unknown symbols.
func RaiseOnUnknown() bpe.UnknownPolicy {
	return bpe.RaiseOnUnknown()
}

// MapUnknownTo returns the policy that encodes unknown symbols as id.
func MapUnknownTo(id int32) bpe.UnknownPolicy {
	return bpe.MapUnknownTo(id)
}

// NewBuilder returns a pipeline builder with whitespace pre-tokenization and no normalization.
func NewBuilder() *Builder {
	return tokenizer.NewBuilder()
}

// NewBPETrainer validates cfg and returns a BPE trainer.
func NewBPETrainer(cfg TrainerConfig) (Trainer, error) {
	t, err := tokenizer.NewBPETrainer(cfg)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// NonBlocking wraps observer so that training never waits for it. Call stop after training.
func NonBlocking(observer Observer) (notify Observer, stop func()) {
	return tokenizer.NonBlocking(observer)
}

// Strings yields xs in order; the result can be ranged over any number of times.
func Strings(xs ...string) iter.Seq[string] {
	return corpus.Strings(xs...)
}

// Load reads a pipeline saved with Pipeline.Save.
func Load(path string) (*Pipeline, error) {
	return tokenizer.Load(path)
}

// LoadHuggingFace builds a pipeline from a BPE tokenizer.json file.
func LoadHuggingFace(path string) (*Pipeline, error) {
	return tokenizer.LoadHuggingFace(path)
}

// NewTikToken creates an OpenAI reference tokenizer with the specified encoding.
//
// Supported encodings: "cl100k_base", "p50k_base", "r50k_base".
func NewTikToken(encodingName string) (Tokenizer, error) {
	t, err := tokenizer.NewTikToken(encodingName)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// AutoLoad attempts to automatically load the correct tokenizer.
//
// It tries, in order: a HuggingFace model directory, a tokenizer.json file, a native .tfm
// file and a tiktoken model or encoding name.
func AutoLoad(pathOrName string) (Tokenizer, error) {
	return tokenizer.AutoLoadTokenizer(pathOrName)
}
