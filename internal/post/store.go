package post

import (
	"context"
	"sort"
)

// LoadReport describes one archive load. Skipped counts persisted rows that
// could not be parsed and were left out of the archive.
type LoadReport struct {
	Rows    int `json:"rows"`
	Skipped int `json:"skipped"`
}

// Store persists the full archive between cycles.
type Store interface {
	Load(ctx context.Context) (Archive, LoadReport, error)
	Save(ctx context.Context, a Archive) error
}

// Sorted returns the archive's posts ordered by creation time, then id.
func (a Archive) Sorted() []Post {
	out := make([]Post, 0, len(a))
	for _, p := range a {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
