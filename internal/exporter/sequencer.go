package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
)

// DefaultWindow is the size of one export window.
const DefaultWindow = 24 * time.Hour

// Config wires a Sequencer. Watermark is required for ForwardResumable;
// Publisher and Observer are optional.
type Config struct {
	Mode       Mode
	Cumulative bool
	Window     time.Duration
	TopN       int
	Builder    *index.Builder
	Allow      dictionary.Set
	Ranks      RankStore
	Watermark  WatermarkStore
	Publisher  Publisher
	Observer   Observer
}

// Sequencer runs the select, index, rank, persist loop over every window of
// an archive.
type Sequencer struct {
	cfg    Config
	logger *slog.Logger
}

func NewSequencer(cfg Config) (*Sequencer, error) {
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.Builder == nil || cfg.Ranks == nil {
		return nil, fmt.Errorf("%w: exporter needs an index builder and a rank store", apperrors.ErrConfiguration)
	}
	if cfg.Mode == ForwardResumable && cfg.Watermark == nil {
		return nil, fmt.Errorf("%w: mode %s needs a watermark store", apperrors.ErrConfiguration, cfg.Mode)
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.TopN <= 0 {
		cfg.TopN = ranker.DefaultTopN
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Sequencer{
		cfg:    cfg,
		logger: slog.Default().With("component", "exporter", "mode", string(cfg.Mode)),
	}, nil
}

// Mode returns the configured walk.
func (s *Sequencer) Mode() Mode { return s.cfg.Mode }

// RankWindow computes the four rankings of the posts in w, keeping topN
// terms per metric. topN <= 0 uses the configured limit.
func (s *Sequencer) RankWindow(archive post.Archive, w Window, topN int) []ranker.Ranking {
	if topN <= 0 {
		topN = s.cfg.TopN
	}
	selected := post.Select(archive, w.From, w.To)
	ti, relevant := s.cfg.Builder.Build(selected)
	return ranker.RankAll(ti, index.Context(ti, relevant), selected, s.cfg.Allow, topN)
}

// Export walks archive according to the configured mode. An empty archive
// fails with ErrEmptyArchive before anything is written.
func (s *Sequencer) Export(ctx context.Context, archive post.Archive) (Report, error) {
	report := Report{Mode: s.cfg.Mode}
	min, max, err := post.Span(archive)
	if err != nil {
		return report, err
	}

	var watermark time.Time
	if s.cfg.Mode == ForwardResumable {
		if watermark, err = s.cfg.Watermark.Load(ctx); err != nil {
			return report, fmt.Errorf("loading watermark: %w", err)
		}
		report.Watermark = watermark
	}
	if s.cfg.Mode.Resets() {
		if err := s.cfg.Ranks.Reset(ctx); err != nil {
			return report, fmt.Errorf("resetting rank store: %w", err)
		}
	}

	windows := Windows(s.cfg.Mode, s.cfg.Cumulative, s.cfg.Window, min, max)
	s.logger.Info("export started",
		"archive_size", len(archive),
		"min", min.Format(time.DateTime),
		"max", max.Format(time.DateTime),
		"windows", len(windows),
		"watermark", watermark.Format(time.DateTime),
	)

	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if s.cfg.Mode == ForwardResumable && !w.To.After(watermark) {
			report.Skipped++
			s.cfg.Observer.WindowSkipped()
			continue
		}
		overwrite := s.cfg.Mode.Resets() && i == 0
		rows, err := s.exportWindow(ctx, archive, w, overwrite)
		report.Rows += rows
		if err != nil {
			return report, fmt.Errorf("exporting window %s: %w", w, err)
		}
		report.Exported++
		s.cfg.Observer.WindowExported()

		if s.cfg.Mode == ForwardResumable {
			// A clamped first window records its full end so it is not
			// appended again while it keeps filling.
			end := w.To
			if first := min.Add(s.cfg.Window - time.Second); end.Before(first) {
				end = first
			}
			if err := s.cfg.Watermark.Save(ctx, end); err != nil {
				return report, fmt.Errorf("saving watermark: %w", err)
			}
			report.Watermark = end
		}
	}

	s.logger.Info("export complete",
		"exported", report.Exported,
		"skipped", report.Skipped,
		"rows", report.Rows,
	)
	return report, nil
}

func (s *Sequencer) exportWindow(ctx context.Context, archive post.Archive, w Window, overwrite bool) (int, error) {
	rankings := s.RankWindow(archive, w, 0)
	written := 0
	for _, r := range rankings {
		for _, e := range r.Entries {
			row := Row{From: w.From, To: w.To, Value: e.Value}
			if err := s.cfg.Ranks.Append(ctx, e.Term, r.Name, row, overwrite); err != nil {
				return written, fmt.Errorf("appending %s/%s: %w", e.Term, r.Name, err)
			}
			written++
		}
		s.cfg.Observer.RowsWritten(r.Name, len(r.Entries))
	}
	s.logger.Debug("window exported", "window", w.String(), "rows", written)

	if s.cfg.Publisher != nil {
		ev := WindowEvent{Window: w, Rankings: rankings}
		if err := s.cfg.Publisher.PublishWindow(ctx, ev); err != nil {
			s.logger.Warn("publishing window event failed", "window", w.String(), "error", err)
		}
	}
	return written, nil
}
