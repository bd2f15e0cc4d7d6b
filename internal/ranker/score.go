package ranker

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
)

// ScoreFunc computes a term's value within one window.
type ScoreFunc func(ti index.TermIndex, window post.Archive, term string) float64

// Count is the number of posts containing the term.
func Count(ti index.TermIndex, _ post.Archive, term string) float64 {
	return float64(len(ti[term]))
}

// Score sums the scores of the posts containing the term.
func Score(ti index.TermIndex, window post.Archive, term string) float64 {
	var sum int64
	for id := range ti[term] {
		sum += int64(window[id].Score)
	}
	return float64(sum)
}

// ScoreDensity is Score divided by Count. Every indexed term has at least one
// post, so a zero count means the index and window disagree.
func ScoreDensity(ti index.TermIndex, window post.Archive, term string) float64 {
	n := Count(ti, window, term)
	if n == 0 {
		panic(fmt.Sprintf("ranker: term %q has no posts in the index", term))
	}
	return Score(ti, window, term) / n
}

// Metric names one of the four rankings exported per window.
type Metric int

const (
	MetricCount Metric = iota
	MetricScore
	MetricSDensity
	MetricContext
)

// AllMetrics lists the metrics in export order.
var AllMetrics = []Metric{MetricCount, MetricScore, MetricContext, MetricSDensity}

func (m Metric) String() string {
	switch m {
	case MetricCount:
		return "Count"
	case MetricScore:
		return "Score"
	case MetricSDensity:
		return "SDensity"
	case MetricContext:
		return "Context"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// ParseMetric maps a metric name back to its Metric.
func ParseMetric(name string) (Metric, bool) {
	for _, m := range AllMetrics {
		if m.String() == name {
			return m, true
		}
	}
	return 0, false
}

// ScoreFunc returns the scoring function behind m.
func (m Metric) ScoreFunc() ScoreFunc {
	switch m {
	case MetricScore:
		return Score
	case MetricSDensity:
		return ScoreDensity
	default:
		return Count
	}
}

// UsesContext reports whether m ranks the context index.
func (m Metric) UsesContext() bool {
	return m == MetricContext
}
