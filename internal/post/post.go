// Package post defines the archived post record and the pure operations over
// an archive: merging fresh fetches into history, finding the time span and
// selecting closed time windows.
package post

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
)

// TitleCommaReplacement stands in for ',' in archived titles so the archive
// file keeps a fixed column count. The substitution is not reversed.
const TitleCommaReplacement = "،"

// Post is one archived feed post.
type Post struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Score     int       `json:"score"`
	Ratio     float64   `json:"ratio"`
}

// Archive maps post id to its latest record.
type Archive map[string]Post

// SanitizeTitle applies the archive's comma substitution.
func SanitizeTitle(title string) string {
	return strings.ReplaceAll(title, ",", TitleCommaReplacement)
}

// Merge returns a new archive holding every persisted record plus every
// fetched record, where a fetched record replaces a persisted one with the
// same id. Later entries in fetched win over earlier ones. Neither input is
// modified.
func Merge(persisted Archive, fetched []Post) Archive {
	merged := make(Archive, len(persisted)+len(fetched))
	for id, p := range persisted {
		merged[id] = p
	}
	for _, p := range fetched {
		merged[p.ID] = p
	}
	return merged
}

// MinByTime returns the earliest post. Equal timestamps resolve to the
// smallest id.
func MinByTime(a Archive) (Post, error) {
	return pick(a, func(c, best Post) bool {
		if !c.CreatedAt.Equal(best.CreatedAt) {
			return c.CreatedAt.Before(best.CreatedAt)
		}
		return c.ID < best.ID
	})
}

// MaxByTime returns the latest post. Equal timestamps resolve to the
// smallest id.
func MaxByTime(a Archive) (Post, error) {
	return pick(a, func(c, best Post) bool {
		if !c.CreatedAt.Equal(best.CreatedAt) {
			return c.CreatedAt.After(best.CreatedAt)
		}
		return c.ID < best.ID
	})
}

// Span returns the creation times of the earliest and latest posts.
func Span(a Archive) (minTime, maxTime time.Time, err error) {
	lo, err := MinByTime(a)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	hi, err := MaxByTime(a)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return lo.CreatedAt, hi.CreatedAt, nil
}

func pick(a Archive, better func(candidate, best Post) bool) (Post, error) {
	if len(a) == 0 {
		return Post{}, fmt.Errorf("%w: no posts fetched or persisted", apperrors.ErrEmptyArchive)
	}
	var best Post
	first := true
	for _, p := range a {
		if first || better(p, best) {
			best = p
			first = false
		}
	}
	return best, nil
}

// Select returns the posts created within the closed interval [from, to].
// An inverted interval selects nothing.
func Select(a Archive, from, to time.Time) Archive {
	window := make(Archive)
	if from.After(to) {
		return window
	}
	for id, p := range a {
		if p.CreatedAt.Before(from) || p.CreatedAt.After(to) {
			continue
		}
		window[id] = p
	}
	return window
}
