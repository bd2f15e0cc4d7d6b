// Package index builds the per-window inverted index (term to the posts whose
// title contains it), the relevance set of marker-bearing posts, and the
// context index restricted to relevant posts.
package index

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
)

// TermIndex maps a normalised term to the posts containing it. A term is
// present only while its set is non-empty.
type TermIndex map[string]PostSet

// Builder carries the indexing configuration. The deny set is matched
// against the lower-cased term.
type Builder struct {
	deny    dictionary.Set
	markers []string
}

// NewBuilder folds deny to lower case once and keeps its own copy of markers.
func NewBuilder(deny dictionary.Set, markers []string) *Builder {
	m := make([]string, 0, len(markers))
	for _, mk := range markers {
		if mk = strings.ToLower(mk); mk != "" {
			m = append(m, mk)
		}
	}
	return &Builder{
		deny:    deny.Lowered(),
		markers: m,
	}
}

// Build indexes every post in window.
func (b *Builder) Build(window post.Archive) (TermIndex, RelevanceSet) {
	ti := make(TermIndex)
	relevant := make(RelevanceSet)
	for id, p := range window {
		for _, tok := range tokenizer.Tokenize(p.Title, b.markers) {
			if tok.Marker {
				relevant.Add(id)
			}
			if tok.Term == "" || b.deny.Contains(strings.ToLower(tok.Term)) {
				continue
			}
			set, ok := ti[tok.Term]
			if !ok {
				set = make(PostSet)
				ti[tok.Term] = set
			}
			set.Add(id)
		}
	}
	return ti, relevant
}

// Context keeps, for each term, only the posts that are also relevant. Terms
// left with no posts are omitted.
func Context(ti TermIndex, relevant RelevanceSet) TermIndex {
	ctx := make(TermIndex)
	if len(relevant) == 0 {
		return ctx
	}
	for term, ids := range ti {
		if hit := ids.Intersect(relevant); len(hit) > 0 {
			ctx[term] = hit
		}
	}
	return ctx
}
