// Package redisstore keeps the export watermark and cached window rankings
// in Redis.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/timefmt"
)

// Watermark stores the export watermark under <prefix>watermark.
type Watermark struct {
	client *pkgredis.Client
	key    string
}

var _ exporter.WatermarkStore = (*Watermark)(nil)

func NewWatermark(client *pkgredis.Client) *Watermark {
	return &Watermark{client: client, key: client.Key("watermark")}
}

// Load returns the zero time when no watermark has been saved.
func (w *Watermark) Load(ctx context.Context) (time.Time, error) {
	v, err := w.client.Get(ctx, w.key)
	if pkgredis.IsNilError(err) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading watermark: %w", err)
	}
	t, err := timefmt.Parse(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("watermark key %s: %w", w.key, err)
	}
	return t, nil
}

func (w *Watermark) Save(ctx context.Context, t time.Time) error {
	if err := w.client.Set(ctx, w.key, timefmt.String(t), 0); err != nil {
		return fmt.Errorf("writing watermark: %w", err)
	}
	return nil
}
