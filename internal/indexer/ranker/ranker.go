// Package ranker orders index terms by document frequency.
package ranker

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/corpus-indexer/internal/indexer/index"
)

// TopN returns the n terms with the most postings, highest first. Equal
// counts are ordered by ascending term. n larger than the index is clamped;
// n <= 0 yields an empty result.
func TopN(idx *index.InvertedIndex, n int) []index.TermCount {
	if n <= 0 || idx == nil || idx.Len() == 0 {
		return []index.TermCount{}
	}
	if n > idx.Len() {
		n = idx.Len()
	}
	h := &termHeap{}
	heap.Init(h)
	for _, tc := range idx.Counts() {
		heap.Push(h, tc)
		if h.Len() > n {
			heap.Pop(h)
		}
	}
	result := make([]index.TermCount, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(index.TermCount)
	}
	return result
}

// less reports whether a ranks below b.
func less(a, b index.TermCount) bool {
	if a.Count != b.Count {
		return a.Count < b.Count
	}
	return a.Term > b.Term
}

// termHeap is a min-heap on rank, so the weakest kept term is popped first.
type termHeap []index.TermCount

func (h termHeap) Len() int { return len(h) }

func (h termHeap) Less(i, j int) bool { return less(h[i], h[j]) }

func (h termHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *termHeap) Push(x interface{}) {
	*h = append(*h, x.(index.TermCount))
}

func (h *termHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
