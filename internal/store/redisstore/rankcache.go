package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/ranker"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/timefmt"
)

// RankCache caches the rankings of ad-hoc windows served by the read API.
type RankCache struct {
	client *pkgredis.Client
	ttl    time.Duration
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func NewRankCache(client *pkgredis.Client, ttl time.Duration) *RankCache {
	return &RankCache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "rank-cache"),
	}
}

// Key identifies one window ranking request.
func (c *RankCache) Key(w exporter.Window, topN int) string {
	raw := fmt.Sprintf("%s|%s|top=%d", timefmt.String(w.From), timefmt.String(w.To), topN)
	hash := sha256.Sum256([]byte(raw))
	return c.client.Key("ranks", fmt.Sprintf("%x", hash[:16]))
}

func (c *RankCache) Get(ctx context.Context, key string) ([]ranker.Ranking, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var rankings []ranker.Ranking
	if err := json.Unmarshal([]byte(data), &rankings); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	for i := range rankings {
		rankings[i].Metric, _ = ranker.ParseMetric(rankings[i].Name)
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return rankings, true
}

func (c *RankCache) Set(ctx context.Context, key string, rankings []ranker.Ranking) {
	data, err := json.Marshal(rankings)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached ranking. The pipeline calls it after the
// archive changes.
func (c *RankCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, c.client.Key("ranks", "*"))
	if err != nil {
		return fmt.Errorf("invalidating rank cache: %w", err)
	}
	c.logger.Info("rank cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *RankCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
