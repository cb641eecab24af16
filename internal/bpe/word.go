package bpe

// pair is an ordered pair of adjacent symbol ids.
type pair struct {
	left  int32
	right int32
}

// word is the training representation of one distinct segment.
type word struct {
	symbols []int32
	count   int64
}

// pairs appends every adjacent pair of w to dst, one entry per position.
func (w *word) pairs(dst []pair) []pair {
	for i := 0; i+1 < len(w.symbols); i++ {
		dst = append(dst, pair{w.symbols[i], w.symbols[i+1]})
	}
	return dst
}

// merge replaces every occurrence of p with merged, scanning left to right without overlap.
// It reports whether anything changed.
func (w *word) merge(p pair, merged int32) bool {
	syms := w.symbols
	out := syms[:0]
	changed := false

	for i := 0; i < len(syms); {
		if i+1 < len(syms) && syms[i] == p.left && syms[i+1] == p.right {
			out = append(out, merged)
			i += 2
			changed = true
			continue
		}
		out = append(out, syms[i])
		i++
	}

	w.symbols = out
	return changed
}
