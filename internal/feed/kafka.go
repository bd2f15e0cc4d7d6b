package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/kafka"
)

// Drainer is the part of kafka.Consumer the source needs.
type Drainer interface {
	Drain(ctx context.Context, max int, idle time.Duration, handler kafka.MessageHandler) (int, error)
}

// KafkaSource reads JSON RawPost messages from a topic. A fetch ends when
// limit posts were read or the topic stays idle for the idle timeout.
type KafkaSource struct {
	consumer Drainer
	idle     time.Duration
	logger   *slog.Logger
}

var _ Source = (*KafkaSource)(nil)

func NewKafkaSource(consumer Drainer, idle time.Duration) *KafkaSource {
	if idle <= 0 {
		idle = 5 * time.Second
	}
	return &KafkaSource{
		consumer: consumer,
		idle:     idle,
		logger:   slog.Default().With("component", "kafka-source"),
	}
}

// Fetch drops messages for other communities; records that carry no
// community are accepted.
func (s *KafkaSource) Fetch(ctx context.Context, community string, limit int) ([]post.Post, error) {
	var posts []post.Post
	_, err := s.consumer.Drain(ctx, limit, s.idle, func(_ context.Context, _ []byte, value []byte) error {
		raw, err := kafka.DecodeJSON[RawPost](value)
		if err != nil {
			return err
		}
		if raw.Community != "" && !strings.EqualFold(raw.Community, community) {
			return fmt.Errorf("post %s belongs to %s", raw.ID, raw.Community)
		}
		p, err := raw.ToPost()
		if err != nil {
			return err
		}
		posts = append(posts, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: draining posts topic: %w", apperrors.ErrFetch, err)
	}
	s.logger.Info("fetched posts", "community", community, "posts", len(posts))
	return posts, nil
}
