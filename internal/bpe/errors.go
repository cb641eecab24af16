package bpe

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrEmptyCorpus   = errors.New("corpus contains no trainable segments")
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrInvalidModel  = errors.New("invalid model")
	ErrUnknownID     = errors.New("token id out of range")
)

// ConfigurationError reports an invalid or contradictory trainer option.
// It matches ErrConfiguration with errors.Is.
type ConfigurationError struct {
	Field  string // Option name (e.g., "TargetVocabSize")
	Reason string // What is wrong with it
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnknownSymbolError is returned by encoding when a symbol is missing from the vocabulary and the
// model is configured to raise. It matches ErrUnknownSymbol with errors.Is.
type UnknownSymbolError struct {
	Symbol string // Symbol left over after all merges
	Word   string // Segment being encoded
}

// Error implements the error interface.
func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q in %q", e.Symbol, e.Word)
}

// Is reports whether target is ErrUnknownSymbol.
func (e *UnknownSymbolError) Is(target error) bool {
	return target == ErrUnknownSymbol
}

func invalidModel(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidModel, fmt.Sprintf(format, args...))
}
