package bpe

import "iter"

// WordCounts aggregates distinct words and their occurrence counts, remembering the order in
// which each word was first seen. That order fixes the seed alphabet order.
type WordCounts struct {
	index  map[string]int
	words  []string
	counts []int64
}

// NewWordCounts returns an empty table.
func NewWordCounts() *WordCounts {
	return &WordCounts{index: make(map[string]int)}
}

// Add records n more occurrences of word. Empty words and non-positive counts are ignored.
func (w *WordCounts) Add(word string, n int64) {
	if word == "" || n <= 0 {
		return
	}
	if i, ok := w.index[word]; ok {
		w.counts[i] += n
		return
	}
	w.index[word] = len(w.words)
	w.words = append(w.words, word)
	w.counts = append(w.counts, n)
}

// Merge adds every word of other, in other's first-seen order.
func (w *WordCounts) Merge(other *WordCounts) {
	if other == nil {
		return
	}
	for i, word := range other.words {
		w.Add(word, other.counts[i])
	}
}

// Len returns the number of distinct words.
func (w *WordCounts) Len() int {
	return len(w.words)
}

// Count returns the occurrences of word.
func (w *WordCounts) Count(word string) int64 {
	if i, ok := w.index[word]; ok {
		return w.counts[i]
	}
	return 0
}

// Total returns the number of occurrences of all words.
func (w *WordCounts) Total() int64 {
	var total int64
	for _, c := range w.counts {
		total += c
	}
	return total
}

// All yields every word with its count in first-seen order.
func (w *WordCounts) All() iter.Seq2[string, int64] {
	return func(yield func(string, int64) bool) {
		for i, word := range w.words {
			if !yield(word, w.counts[i]) {
				return
			}
		}
	}
}
