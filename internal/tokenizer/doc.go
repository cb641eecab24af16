// Package tokenizer assembles normalization, pre-tokenization and a trained model into a
// Pipeline, and trains, persists and compares such pipelines.
//
// Components:
//   - Pipeline: normalizer + whitespace pre-tokenizer + model, built with a Builder
//   - BPETrainer / BPEModel: the byte-pair-encoding model family
//   - Save / Load: native .tfm container with checksum
//   - SaveHuggingFace / LoadHuggingFace: tokenizer.json interchange
//   - TikToken: OpenAI encodings used as a reference by Compare
//
// Example usage:
//
//	trainer, err := tokenizer.NewBPETrainer(bpe.DefaultTrainerConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p, err := tokenizer.NewBuilder().WithLowercase().Build().
//	    Train(ctx, trainer, corpus.Strings("low lower", "newest widest"), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := p.Encode("lower newer")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	text, err := p.Decode(ids)
package tokenizer
