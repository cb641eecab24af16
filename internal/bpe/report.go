package bpe

import "gonum.org/v1/gonum/stat"

// Report summarizes a training run.
type Report struct {
	Words       int   // Distinct training words
	Occurrences int64 // Total word occurrences
	SeedSize    int   // Special tokens plus seed alphabet
	VocabSize   int
	Merges      int

	// Mean symbols per word occurrence before and after merging.
	SymbolsBefore float64
	SymbolsAfter  float64
	// CompressionRatio is SymbolsBefore / SymbolsAfter.
	CompressionRatio float64

	StopReason string
}

func (s *session) report(before []float64, seedSize int, reason string) Report {
	after := make([]float64, len(s.words))
	weights := make([]float64, len(s.words))
	var occurrences int64
	for i, w := range s.words {
		after[i] = float64(len(w.symbols))
		weights[i] = float64(w.count)
		occurrences += w.count
	}

	r := Report{
		Words:         len(s.words),
		Occurrences:   occurrences,
		SeedSize:      seedSize,
		VocabSize:     s.vocab.Len(),
		Merges:        len(s.merges),
		SymbolsBefore: stat.Mean(before, weights),
		SymbolsAfter:  stat.Mean(after, weights),
		StopReason:    reason,
	}
	if r.SymbolsAfter > 0 {
		r.CompressionRatio = r.SymbolsBefore / r.SymbolsAfter
	}
	return r
}
