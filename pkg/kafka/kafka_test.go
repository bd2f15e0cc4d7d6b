package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	fetchErr  error
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.fetchErr != nil {
		return kafka.Message{}, r.fetchErr
	}
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func messages(values ...string) []kafka.Message {
	out := make([]kafka.Message, len(values))
	for i, v := range values {
		out[i] = kafka.Message{Offset: int64(i), Value: []byte(v)}
	}
	return out
}

func TestDrain(t *testing.T) {
	tests := []struct {
		name          string
		values        []string
		max           int
		wantHandled   int
		wantCommitted int
	}{
		{name: "until idle", values: []string{"a", "b", "c"}, max: 0, wantHandled: 3, wantCommitted: 3},
		{name: "capped", values: []string{"a", "b", "c"}, max: 2, wantHandled: 2, wantCommitted: 2},
		{name: "rejected message committed", values: []string{"a", "bad", "c"}, max: 0, wantHandled: 2, wantCommitted: 3},
		{name: "empty topic", values: nil, max: 5, wantHandled: 0, wantCommitted: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeReader{msgs: messages(tt.values...)}
			c := newConsumer(r, "posts")
			var seen []string
			n, err := c.Drain(context.Background(), tt.max, 5*time.Millisecond, func(_ context.Context, _, value []byte) error {
				if string(value) == "bad" {
					return errors.New("rejected")
				}
				seen = append(seen, string(value))
				return nil
			})
			if err != nil {
				t.Fatalf("Drain: %v", err)
			}
			if n != tt.wantHandled || len(seen) != tt.wantHandled {
				t.Errorf("handled = %d (seen %v), want %d", n, seen, tt.wantHandled)
			}
			if len(r.committed) != tt.wantCommitted {
				t.Errorf("committed = %v, want %d", r.committed, tt.wantCommitted)
			}
		})
	}
}

func TestDrainFetchError(t *testing.T) {
	c := newConsumer(&fakeReader{fetchErr: errors.New("broker down")}, "posts")
	if _, err := c.Drain(context.Background(), 0, time.Second, func(context.Context, []byte, []byte) error { return nil }); err == nil {
		t.Fatal("expected fetch error")
	}
}

func TestDrainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newConsumer(&fakeReader{}, "posts")
	if _, err := c.Drain(ctx, 0, time.Second, func(context.Context, []byte, []byte) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type fakeWriter struct {
	written []kafka.Message
	err     error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "rank-events")
	err := p.Publish(context.Background(),
		Event{Key: "2021-01-28", Value: map[string]int{"GME": 2}},
		Event{Key: "2021-01-29", Value: map[string]int{"AMC": 1}},
	)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.written) != 2 {
		t.Fatalf("written = %d", len(w.written))
	}
	if string(w.written[0].Key) != "2021-01-28" || string(w.written[0].Value) != `{"GME":2}` {
		t.Errorf("message = %s %s", w.written[0].Key, w.written[0].Value)
	}
	if err := p.Publish(context.Background()); err != nil || len(w.written) != 2 {
		t.Errorf("empty publish wrote or failed: %v", err)
	}

	w.err = errors.New("broker down")
	if err := p.Publish(context.Background(), Event{Key: "k", Value: 1}); err == nil {
		t.Error("expected write error")
	}
	if err := p.Publish(context.Background(), Event{Key: "k", Value: make(chan int)}); err == nil {
		t.Error("expected marshal error")
	}
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[map[string]int]([]byte(`{"a":1}`))
	if err != nil || got["a"] != 1 {
		t.Errorf("DecodeJSON = %v, %v", got, err)
	}
	if _, err := DecodeJSON[int]([]byte("nope")); err == nil {
		t.Error("expected decode error")
	}
}
