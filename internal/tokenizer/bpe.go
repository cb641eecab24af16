package tokenizer

import (
	"context"

	"github.com/born-ml/tokenforge/internal/bpe"
)

// BPEModel is a trained BPE model together with the report of the run that produced it.
// Report is zero for models loaded from disk.
type BPEModel struct {
	*bpe.Model
	Report bpe.Report
}

// NewBPEModel wraps an existing BPE model.
func NewBPEModel(m *bpe.Model) *BPEModel {
	return &BPEModel{Model: m}
}

// Kind implements Model.
func (m *BPEModel) Kind() Kind {
	return KindBPE
}

// BPETrainer adapts bpe.Trainer to the Trainer interface.
type BPETrainer struct {
	trainer *bpe.Trainer
}

// NewBPETrainer validates cfg and returns a BPE trainer.
func NewBPETrainer(cfg bpe.TrainerConfig, opts ...bpe.TrainerOption) (*BPETrainer, error) {
	t, err := bpe.NewTrainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &BPETrainer{trainer: t}, nil
}

// Kind implements Trainer.
func (t *BPETrainer) Kind() Kind {
	return KindBPE
}

// Config returns the trainer configuration.
func (t *BPETrainer) Config() bpe.TrainerConfig {
	return t.trainer.Config()
}

// Train implements Trainer. The returned model is a *BPEModel.
func (t *BPETrainer) Train(ctx context.Context, words *bpe.WordCounts, observer bpe.Observer) (Model, error) {
	m, report, err := t.trainer.Train(ctx, words, observer)
	if err != nil {
		return nil, err
	}
	return &BPEModel{Model: m, Report: report}, nil
}
