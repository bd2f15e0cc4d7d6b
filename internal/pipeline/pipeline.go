// Package pipeline runs the polling cycle: fetch the newest posts, merge
// them into the archive, export rank windows, prune stale rank files and
// redraw the charts. A Scheduler repeats the cycle with an idle delay.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/feed"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/plot"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/metrics"
)

// RankFiles is the rank store view needed after an export.
type RankFiles interface {
	Series(ctx context.Context) ([]exporter.Series, error)
	Prune(ctx context.Context, maxAge time.Duration) ([]string, error)
}

// RunRecorder keeps a history of export reports.
type RunRecorder interface {
	RecordRun(ctx context.Context, at time.Time, report exporter.Report) error
}

// Invalidator drops derived data that an archive change makes stale.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type PlotConfig struct {
	Enabled bool
	Dir     string
	Width   float64
	Height  float64
}

// Deps wires a Pipeline. Source is only needed by RunCycle; Runs, Cache and
// Metrics are optional.
type Deps struct {
	Source     feed.Source
	Community  string
	Limit      int
	Archive    post.Store
	Exporter   *exporter.Sequencer
	Ranks      RankFiles
	PruneAfter time.Duration
	Plot       PlotConfig
	Runs       RunRecorder
	Cache      Invalidator
	Metrics    *metrics.Metrics
}

// CycleResult summarises one cycle.
type CycleResult struct {
	ID          string
	Fetched     int
	ArchiveSize int
	RowsSkipped int
	// EmptyArchive is set when there was nothing to export.
	EmptyArchive bool
	Export       exporter.Report
	Pruned      []string
	Charts      []string
	Duration    time.Duration
}

type Pipeline struct {
	deps   Deps
	now    func() time.Time
	logger *slog.Logger
}

func New(deps Deps) (*Pipeline, error) {
	if deps.Archive == nil || deps.Exporter == nil || deps.Ranks == nil {
		return nil, fmt.Errorf("%w: pipeline needs an archive store, an exporter and rank files", apperrors.ErrConfiguration)
	}
	return &Pipeline{
		deps:   deps,
		now:    time.Now,
		logger: slog.Default().With("component", "pipeline"),
	}, nil
}

// RunCycle fetches, merges and saves, then exports and runs the
// housekeeping steps. A fetch failure leaves the archive untouched. An
// empty archive skips the export without failing the cycle.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleResult, error) {
	if p.deps.Source == nil {
		return CycleResult{}, fmt.Errorf("%w: no feed source configured", apperrors.ErrConfiguration)
	}
	start := p.now()
	res := CycleResult{ID: uuid.NewString()}
	ctx = logger.WithCycleID(ctx, res.ID)
	log := logger.FromContext(ctx).With("component", "pipeline")
	log.Info("cycle started", "community", p.deps.Community, "limit", p.deps.Limit)

	err := p.cycle(ctx, &res)
	res.Duration = p.now().Sub(start)
	p.observeCycle(res, err)
	if err != nil {
		log.Error("cycle failed", "error", err, "duration", res.Duration)
		return res, err
	}
	log.Info("cycle complete",
		"fetched", res.Fetched,
		"archive_size", res.ArchiveSize,
		"windows_exported", res.Export.Exported,
		"rows_written", res.Export.Rows,
		"pruned", len(res.Pruned),
		"charts", len(res.Charts),
		"duration", res.Duration,
	)
	return res, nil
}

func (p *Pipeline) cycle(ctx context.Context, res *CycleResult) error {
	archive, err := p.load(ctx, res)
	if err != nil {
		return err
	}
	fetched, err := p.deps.Source.Fetch(ctx, p.deps.Community, p.deps.Limit)
	if err != nil {
		if !errors.Is(err, apperrors.ErrFetch) {
			err = fmt.Errorf("%w: %w", apperrors.ErrFetch, err)
		}
		return err
	}
	res.Fetched = len(fetched)
	if p.deps.Metrics != nil {
		p.deps.Metrics.PostsFetchedTotal.Add(float64(len(fetched)))
	}

	merged := post.Merge(archive, fetched)
	if err := p.deps.Archive.Save(ctx, merged); err != nil {
		return fmt.Errorf("saving archive: %w", err)
	}
	res.ArchiveSize = len(merged)
	if p.deps.Metrics != nil {
		p.deps.Metrics.ArchiveSize.Set(float64(len(merged)))
	}
	return p.afterMerge(ctx, merged, res)
}

// Export runs the export and housekeeping steps over the stored archive
// without fetching.
func (p *Pipeline) Export(ctx context.Context) (CycleResult, error) {
	start := p.now()
	res := CycleResult{ID: uuid.NewString()}
	ctx = logger.WithCycleID(ctx, res.ID)
	archive, err := p.load(ctx, &res)
	if err != nil {
		return res, err
	}
	res.ArchiveSize = len(archive)
	err = p.afterMerge(ctx, archive, &res)
	res.Duration = p.now().Sub(start)
	return res, err
}

func (p *Pipeline) load(ctx context.Context, res *CycleResult) (post.Archive, error) {
	archive, report, err := p.deps.Archive.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading archive: %w", err)
	}
	res.RowsSkipped = report.Skipped
	if p.deps.Metrics != nil && report.Skipped > 0 {
		p.deps.Metrics.RowsSkippedTotal.Add(float64(report.Skipped))
	}
	return archive, nil
}

func (p *Pipeline) afterMerge(ctx context.Context, archive post.Archive, res *CycleResult) error {
	log := logger.FromContext(ctx).With("component", "pipeline")
	report, err := p.deps.Exporter.Export(ctx, archive)
	res.Export = report
	switch {
	case errors.Is(err, apperrors.ErrEmptyArchive):
		log.Warn("archive is empty, export skipped")
		res.EmptyArchive = true
		return nil
	case err != nil:
		return fmt.Errorf("exporting: %w", err)
	}

	if p.deps.Runs != nil {
		if err := p.deps.Runs.RecordRun(ctx, p.now(), report); err != nil {
			log.Warn("recording export run failed", "error", err)
		}
	}
	if p.deps.Cache != nil {
		if err := p.deps.Cache.Invalidate(ctx); err != nil {
			log.Warn("rank cache invalidation failed", "error", err)
		}
	}
	if res.Pruned, err = p.Prune(ctx); err != nil {
		return err
	}
	if res.Charts, err = p.Plot(ctx); err != nil {
		return err
	}
	return nil
}

// Prune removes rank files that stopped receiving windows. It is a no-op
// when PruneAfter is not positive.
func (p *Pipeline) Prune(ctx context.Context) ([]string, error) {
	if p.deps.PruneAfter <= 0 {
		return nil, nil
	}
	removed, err := p.deps.Ranks.Prune(ctx, p.deps.PruneAfter)
	if err != nil {
		return removed, fmt.Errorf("pruning rank files: %w", err)
	}
	return removed, nil
}

// Plot redraws every chart from the stored rank series when plotting is
// enabled.
func (p *Pipeline) Plot(ctx context.Context) ([]string, error) {
	if !p.deps.Plot.Enabled {
		return nil, nil
	}
	series, err := p.deps.Ranks.Series(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading rank series: %w", err)
	}
	charts, err := plot.Render(series, p.deps.Plot.Dir, p.deps.Plot.Width, p.deps.Plot.Height)
	if err != nil {
		return charts, fmt.Errorf("rendering charts: %w", err)
	}
	return charts, nil
}

func (p *Pipeline) observeCycle(res CycleResult, err error) {
	m := p.deps.Metrics
	if m == nil {
		return
	}
	m.CycleDuration.Observe(res.Duration.Seconds())
	result := "ok"
	switch {
	case res.EmptyArchive:
		result = "empty_archive"
	case errors.Is(err, apperrors.ErrFetch):
		result = "fetch_error"
		m.FetchErrorsTotal.Inc()
	case err != nil:
		result = "error"
	}
	m.CyclesTotal.WithLabelValues(result).Inc()
}
