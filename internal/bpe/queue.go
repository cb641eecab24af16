package bpe

import "container/heap"

// candidate is a pair with the count it had when pushed. Entries whose count no longer matches
// the live count are stale and skipped on pop.
type candidate struct {
	pair  pair
	count int64
	text  string // left + right
	left  string
}

// before orders candidates: higher count first, then smaller concatenated text, then smaller
// left symbol. Distinct pairs never compare equal, so selection is deterministic.
func (c candidate) before(o candidate) bool {
	if c.count != o.count {
		return c.count > o.count
	}
	if c.text != o.text {
		return c.text < o.text
	}
	return c.left < o.left
}

type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// pairQueue is a lazy max-queue over live pair counts.
type pairQueue struct {
	items  candidateHeap
	vocab  *Vocabulary
	counts map[pair]int64
}

func newPairQueue(vocab *Vocabulary, counts map[pair]int64) *pairQueue {
	q := &pairQueue{vocab: vocab, counts: counts}
	q.items = make(candidateHeap, 0, len(counts))
	for p, c := range counts {
		if c > 0 {
			q.items = append(q.items, q.candidate(p, c))
		}
	}
	heap.Init(&q.items)
	return q
}

func (q *pairQueue) candidate(p pair, count int64) candidate {
	left := q.vocab.symbols[p.left]
	return candidate{pair: p, count: count, text: left + q.vocab.symbols[p.right], left: left}
}

// update records that p now has its live count.
func (q *pairQueue) update(p pair) {
	if c := q.counts[p]; c > 0 {
		heap.Push(&q.items, q.candidate(p, c))
	}
}

// pop returns the best live pair.
func (q *pairQueue) pop() (candidate, bool) {
	for q.items.Len() > 0 {
		c := heap.Pop(&q.items).(candidate)
		if q.counts[c.pair] == c.count {
			return c, true
		}
	}
	return candidate{}, false
}
