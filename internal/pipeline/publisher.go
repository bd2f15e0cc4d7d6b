package pipeline

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/timefmt"
)

type eventPublisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// WindowMessage is the JSON value of one window event on the rank topic.
type WindowMessage struct {
	From     string                    `json:"from"`
	To       string                    `json:"to"`
	Rankings map[string][]ranker.Entry `json:"rankings"`
}

// KafkaPublisher sends one message per exported window, keyed by the
// window end so a compacted topic keeps the latest ranking of each window.
type KafkaPublisher struct {
	producer eventPublisher
}

var _ exporter.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer eventPublisher) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) PublishWindow(ctx context.Context, ev exporter.WindowEvent) error {
	msg := WindowMessage{
		From:     timefmt.String(ev.Window.From),
		To:       timefmt.String(ev.Window.To),
		Rankings: make(map[string][]ranker.Entry, len(ev.Rankings)),
	}
	for _, r := range ev.Rankings {
		msg.Rankings[r.Name] = r.Entries
	}
	return p.producer.Publish(ctx, kafka.Event{Key: msg.To, Value: msg})
}
