// Package merger combines ranked result lists from several indexes into one
// list with the same ordering rules as a single index.
package merger

import (
	"container/heap"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/ranker"
)

// Merge keeps the best limit results across all lists. A limit <= 0 keeps
// everything.
func Merge(resultSets [][]ranker.Result, limit int) []ranker.Result {
	if limit <= 0 {
		var all []ranker.Result
		for _, results := range resultSets {
			all = append(all, results...)
		}
		sort.Slice(all, func(i, j int) bool { return ranker.Less(all[i], all[j]) })
		if all == nil {
			all = []ranker.Result{}
		}
		return all
	}
	h := &resultHeap{}
	heap.Init(h)
	for _, results := range resultSets {
		for _, r := range results {
			heap.Push(h, r)
			if h.Len() > limit {
				heap.Pop(h)
			}
		}
	}
	merged := make([]ranker.Result, h.Len())
	for i := len(merged) - 1; i >= 0; i-- {
		merged[i] = heap.Pop(h).(ranker.Result)
	}
	return merged
}

// resultHeap is a min-heap: the root is the result that ranks last.
type resultHeap []ranker.Result

func (h resultHeap) Len() int { return len(h) }

func (h resultHeap) Less(i, j int) bool { return ranker.Less(h[j], h[i]) }

func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) {
	*h = append(*h, x.(ranker.Result))
}

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
