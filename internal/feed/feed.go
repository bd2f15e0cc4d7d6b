// Package feed fetches the newest posts of a community. Reddit is read over
// its OAuth API; a Kafka topic of the same listing records can stand in for
// it when posts are collected elsewhere.
package feed

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
)

// Source returns up to limit of the newest posts of community, newest
// first. limit <= 0 asks for as many as the source will give.
type Source interface {
	Fetch(ctx context.Context, community string, limit int) ([]post.Post, error)
}

// RawPost is one listing record as the feed serves it.
type RawPost struct {
	ID          string  `json:"id"`
	Community   string  `json:"subreddit,omitempty"`
	CreatedUTC  float64 `json:"created_utc"`
	Title       string  `json:"title"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
}

// ToPost converts the record to an archive post: creation time in UTC at
// second precision and the title sanitised for the archive.
func (r RawPost) ToPost() (post.Post, error) {
	if r.ID == "" {
		return post.Post{}, fmt.Errorf("%w: listing record without id", apperrors.ErrInvalidInput)
	}
	if r.CreatedUTC <= 0 || math.IsNaN(r.CreatedUTC) {
		return post.Post{}, fmt.Errorf("%w: post %s has created_utc %v", apperrors.ErrInvalidInput, r.ID, r.CreatedUTC)
	}
	return post.Post{
		ID:        r.ID,
		CreatedAt: time.Unix(int64(r.CreatedUTC), 0).UTC(),
		Title:     post.SanitizeTitle(r.Title),
		Score:     r.Score,
		Ratio:     r.UpvoteRatio,
	}, nil
}
