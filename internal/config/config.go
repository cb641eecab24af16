// Package config loads tokenforge settings from a YAML file, TOKENFORGE_* environment variables
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/born-ml/tokenforge/internal/bpe"
	"github.com/born-ml/tokenforge/internal/logging"
	"github.com/born-ml/tokenforge/internal/parallel"
)

// AppName names the config directory and the environment prefix.
const AppName = "tokenforge"

// Output formats.
const (
	OutputNative      = "native"
	OutputHuggingFace = "huggingface"
)

// Config stores all configuration of the application.
type Config struct {
	Log      logging.Config `mapstructure:"log"`
	Train    TrainConfig    `mapstructure:"train"`
	Corpus   CorpusConfig   `mapstructure:"corpus"`
	Parallel ParallelConfig `mapstructure:"parallel"`
	Output   OutputConfig   `mapstructure:"output"`
}

// TrainConfig stores pipeline and trainer options.
type TrainConfig struct {
	Lowercase          bool     `mapstructure:"lowercase"`
	TargetVocabSize    int      `mapstructure:"target_vocab_size"`
	MinPairFrequency   int64    `mapstructure:"min_pair_frequency"`
	EndOfWordMarker    string   `mapstructure:"end_of_word_marker"`
	Alphabet           string   `mapstructure:"alphabet"`
	SpecialTokens      []string `mapstructure:"special_tokens"`
	UnknownTokenPolicy string   `mapstructure:"unknown_token_policy"`
	UnknownTokenID     int32    `mapstructure:"unknown_token_id"`
}

// CorpusConfig stores corpus input options.
type CorpusConfig struct {
	Files     []string `mapstructure:"files"`
	BatchSize int      `mapstructure:"batch_size"`
}

// ParallelConfig stores worker options. Zero workers selects the CPU count.
type ParallelConfig struct {
	Workers      int `mapstructure:"workers"`
	MinChunkSize int `mapstructure:"min_chunk_size"`
}

// OutputConfig stores where and how a trained tokenizer is written.
type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":            "log.level",
	"log-format":           "log.format",
	"lowercase":            "train.lowercase",
	"target-vocab-size":    "train.target_vocab_size",
	"min-pair-frequency":   "train.min_pair_frequency",
	"end-of-word-marker":   "train.end_of_word_marker",
	"alphabet":             "train.alphabet",
	"special-tokens":       "train.special_tokens",
	"unknown-token-policy": "train.unknown_token_policy",
	"unknown-token-id":     "train.unknown_token_id",
	"files":                "corpus.files",
	"batch-size":           "corpus.batch_size",
	"workers":              "parallel.workers",
	"min-chunk-size":       "parallel.min_chunk_size",
	"out":                  "output.path",
	"format":               "output.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatConsole)

	v.SetDefault("train.lowercase", true)
	v.SetDefault("train.target_vocab_size", 30000)
	v.SetDefault("train.min_pair_frequency", 2)
	v.SetDefault("train.end_of_word_marker", "</w>")
	v.SetDefault("train.alphabet", bpe.AlphabetRunes.String())
	v.SetDefault("train.special_tokens", []string{"<unk>"})
	v.SetDefault("train.unknown_token_policy", bpe.PolicyMap)
	v.SetDefault("train.unknown_token_id", 0)

	v.SetDefault("corpus.files", []string{})
	v.SetDefault("corpus.batch_size", 1024)

	v.SetDefault("parallel.workers", 0)
	v.SetDefault("parallel.min_chunk_size", 64)

	v.SetDefault("output.path", "tokenizer.tfm")
	v.SetDefault("output.format", OutputNative)
}

// LoadConfig reads configuration from configPath (or config.yaml in the working directory or
// $HOME/.config/tokenforge when empty), the environment and the flags that were set in flags.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// TrainerConfig converts the train section into a trainer configuration and validates it.
func (c *Config) TrainerConfig() (bpe.TrainerConfig, error) {
	alphabet, err := bpe.ParseAlphabet(c.Train.Alphabet)
	if err != nil {
		return bpe.TrainerConfig{}, err
	}

	var policy bpe.UnknownPolicy
	switch strings.ToLower(c.Train.UnknownTokenPolicy) {
	case bpe.PolicyError, "raise":
		policy = bpe.RaiseOnUnknown()
	case bpe.PolicyMap:
		policy = bpe.MapUnknownTo(c.Train.UnknownTokenID)
	default:
		return bpe.TrainerConfig{}, &bpe.ConfigurationError{
			Field:  "UnknownPolicy",
			Reason: fmt.Sprintf("unknown_token_policy must be %q or %q, got %q", bpe.PolicyError, bpe.PolicyMap, c.Train.UnknownTokenPolicy),
		}
	}

	tc := bpe.TrainerConfig{
		TargetVocabSize:  c.Train.TargetVocabSize,
		MinPairFrequency: c.Train.MinPairFrequency,
		EndOfWordMarker:  c.Train.EndOfWordMarker,
		Alphabet:         alphabet,
		SpecialTokens:    c.Train.SpecialTokens,
		UnknownPolicy:    policy,
	}
	if err := tc.Validate(); err != nil {
		return bpe.TrainerConfig{}, err
	}
	return tc, nil
}

// ParallelConfig converts the parallel section into a worker configuration.
func (c *Config) ParallelConfig() parallel.Config {
	cfg := parallel.DefaultConfig().WithWorkers(c.Parallel.Workers)
	if c.Parallel.MinChunkSize > 0 {
		cfg.MinChunkSize = c.Parallel.MinChunkSize
	}
	return cfg
}
