// Package exporter walks an archive's time span in fixed-size windows and
// persists the four rankings of every window as (from, to, value) rows keyed
// by term and metric.
package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
)

// Mode selects the window walk.
type Mode string

const (
	// Forward rewrites every rank series from the earliest window to the
	// latest, clamping the last window to the newest post.
	Forward Mode = "forward"
	// ForwardResumable appends only complete windows newer than the
	// persisted watermark.
	ForwardResumable Mode = "forward-resumable"
	// Backward rewrites every rank series from the newest window back to
	// the oldest.
	Backward Mode = "backward"
	// UpTo is Backward with windows aligned to start at midnight.
	UpTo Mode = "up-to"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Forward, ForwardResumable, Backward, UpTo:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown export mode %q", apperrors.ErrConfiguration, s)
	}
}

// Resets reports whether the mode clears the rank store before walking.
func (m Mode) Resets() bool { return m != ForwardResumable }

// Window is a closed time interval.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.From.Format(time.DateTime), w.To.Format(time.DateTime))
}

// Row is one persisted rank observation.
type Row struct {
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	Value int64     `json:"value"`
}

// Series is the stored history of one (term, metric) pair in row order.
type Series struct {
	Term   string `json:"term"`
	Metric string `json:"metric"`
	Rows   []Row  `json:"rows"`
}

// RankStore persists rank rows keyed by (term, metric).
type RankStore interface {
	// Reset removes every stored series.
	Reset(ctx context.Context) error
	// Append adds row to the (term, metric) series. When overwrite is set the
	// series is truncated first.
	Append(ctx context.Context, term, metric string, row Row, overwrite bool) error
}

// WatermarkStore persists the upper bound of the latest exported window. A
// zero time means nothing has been exported.
type WatermarkStore interface {
	Load(ctx context.Context) (time.Time, error)
	Save(ctx context.Context, t time.Time) error
}

// WindowEvent is published once per exported window.
type WindowEvent struct {
	Window   Window           `json:"window"`
	Rankings []ranker.Ranking `json:"rankings"`
}

// Publisher receives window events. Publish failures are logged and do not
// fail the export.
type Publisher interface {
	PublishWindow(ctx context.Context, ev WindowEvent) error
}

// Observer is notified of export progress.
type Observer interface {
	WindowExported()
	WindowSkipped()
	RowsWritten(metric string, n int)
}

// Report summarises one export run.
type Report struct {
	Mode      Mode      `json:"mode"`
	Exported  int       `json:"windowsExported"`
	Skipped   int       `json:"windowsSkipped"`
	Rows      int       `json:"rowsWritten"`
	Watermark time.Time `json:"watermark"`
}

type nopObserver struct{}

func (nopObserver) WindowExported()         {}
func (nopObserver) WindowSkipped()          {}
func (nopObserver) RowsWritten(string, int) {}
