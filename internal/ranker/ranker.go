// Package ranker orders index terms under a scoring function and keeps the
// top allow-listed ones.
//
// Candidates are extracted from a max-heap ordered by (value desc, term asc),
// so equal values always resolve to the lexicographically smaller term. A
// non-allow-listed maximum is discarded and extraction continues. An
// allow-listed maximum whose value rounds to zero ends the pass.
package ranker

import (
	"container/heap"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
)

// DefaultTopN is used when Rank is given a non-positive limit.
const DefaultTopN = 10

// Entry is one ranked term. Rank starts at 1.
type Entry struct {
	Rank  int    `json:"rank"`
	Term  string `json:"term"`
	Value int64  `json:"value"`
}

// Ranking is the ordered output of one metric over one window.
type Ranking struct {
	Metric  Metric  `json:"-"`
	Name    string  `json:"metric"`
	Entries []Entry `json:"entries"`
}

// Rank returns up to topN allow-listed terms of ti in descending fn order.
// Values are rounded half to even before they are compared with zero and
// reported.
func Rank(ti index.TermIndex, window post.Archive, fn ScoreFunc, allow dictionary.Set, topN int) []Entry {
	if topN <= 0 {
		topN = DefaultTopN
	}
	h := make(candidateHeap, 0, len(ti))
	for term := range ti {
		h = append(h, candidate{term: term, value: fn(ti, window, term)})
	}
	heap.Init(&h)

	entries := make([]Entry, 0, topN)
	for len(entries) < topN && h.Len() > 0 {
		c := heap.Pop(&h).(candidate)
		if !allow.Contains(c.term) {
			continue
		}
		v := math.RoundToEven(c.value)
		if v == 0 {
			break
		}
		entries = append(entries, Entry{
			Rank:  len(entries) + 1,
			Term:  c.term,
			Value: int64(v),
		})
	}
	return entries
}

// RankAll ranks every metric for one window. Context ranks ctx; the others
// rank ti.
func RankAll(ti, ctx index.TermIndex, window post.Archive, allow dictionary.Set, topN int) []Ranking {
	out := make([]Ranking, 0, len(AllMetrics))
	for _, m := range AllMetrics {
		src := ti
		if m.UsesContext() {
			src = ctx
		}
		out = append(out, Ranking{
			Metric:  m,
			Name:    m.String(),
			Entries: Rank(src, window, m.ScoreFunc(), allow, topN),
		})
	}
	return out
}

type candidate struct {
	term  string
	value float64
}

type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].value != h[j].value {
		return h[i].value > h[j].value
	}
	return h[i].term < h[j].term
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x interface{}) {
	*h = append(*h, x.(candidate))
}

func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
