// Package api serves the read side over HTTP: on-demand window rankings
// computed from the archive, the exported rank series, and the latest export
// run.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/store/sqlstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/timefmt"
)

// MaxTopN caps the top query parameter.
const MaxTopN = 100

// WindowRanker ranks an arbitrary window of an archive.
type WindowRanker interface {
	RankWindow(archive post.Archive, w exporter.Window, topN int) []ranker.Ranking
}

// SeriesReader returns the exported rank series.
type SeriesReader interface {
	Series(ctx context.Context) ([]exporter.Series, error)
}

// RankCache stores computed window rankings.
type RankCache interface {
	Key(w exporter.Window, topN int) string
	Get(ctx context.Context, key string) ([]ranker.Ranking, bool)
	Set(ctx context.Context, key string, rankings []ranker.Ranking)
	Invalidate(ctx context.Context) error
	Stats() (hits, misses int64)
}

// RunHistory returns the latest recorded export run.
type RunHistory interface {
	LatestRun(ctx context.Context) (*sqlstore.Run, error)
}

// Deps wires a Handler. Cache, Runs and Metrics are optional.
type Deps struct {
	Archive post.Store
	Ranker  WindowRanker
	Series  SeriesReader
	Cache   RankCache
	Runs    RunHistory
	Metrics *metrics.Metrics
	TopN    int
	Window  time.Duration
}

type Handler struct {
	deps   Deps
	group  singleflight.Group
	logger *slog.Logger
}

func New(deps Deps) *Handler {
	if deps.TopN <= 0 {
		deps.TopN = ranker.DefaultTopN
	}
	if deps.Window <= 0 {
		deps.Window = exporter.DefaultWindow
	}
	return &Handler{
		deps:   deps,
		logger: slog.Default().With("component", "api"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ranks", h.Ranks)
	mux.HandleFunc("GET /api/v1/series", h.Series)
	mux.HandleFunc("GET /api/v1/runs/latest", h.LatestRun)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type ranksResponse struct {
	From     string           `json:"from"`
	To       string           `json:"to"`
	Top      int              `json:"top"`
	Cached   bool             `json:"cached"`
	Rankings []ranker.Ranking `json:"rankings"`
}

// Ranks computes the rankings of one window. from and to accept any
// timestamp the archive accepts. With neither given the window is the last
// Window ending at the newest post; with one given the other is derived from
// Window. metric narrows the response to one ranking.
func (h *Handler) Ranks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx).With("component", "api", "request_id", middleware.GetRequestID(ctx))
	q := r.URL.Query()

	metric, err := parseMetric(q.Get("metric"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	top := h.deps.TopN
	if s := q.Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "top must be a positive integer"))
			return
		}
		top = min(n, MaxTopN)
	}

	archive, _, err := h.deps.Archive.Load(ctx)
	if err != nil {
		log.Error("loading archive failed", "error", err)
		h.writeError(w, fmt.Errorf("%w: loading archive", apperrors.ErrInternal))
		return
	}
	win, err := h.window(archive, q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	rankings, cached, err := h.rank(ctx, archive, win, top)
	if err != nil {
		log.Error("ranking failed", "window", win.String(), "error", err)
		h.writeError(w, err)
		return
	}
	if metric != "" {
		rankings = filterMetric(rankings, metric)
	}
	log.Info("window ranked", "window", win.String(), "top", top, "cached", cached)
	h.writeJSON(w, http.StatusOK, ranksResponse{
		From:     timefmt.String(win.From),
		To:       timefmt.String(win.To),
		Top:      top,
		Cached:   cached,
		Rankings: rankings,
	})
}

func (h *Handler) window(archive post.Archive, fromStr, toStr string) (exporter.Window, error) {
	var win exporter.Window
	var err error
	if fromStr != "" {
		if win.From, err = timefmt.Parse(fromStr); err != nil {
			return win, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "from: %v", err)
		}
	}
	if toStr != "" {
		if win.To, err = timefmt.Parse(toStr); err != nil {
			return win, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "to: %v", err)
		}
	}
	span := h.deps.Window - time.Second
	switch {
	case fromStr == "" && toStr == "":
		_, max, err := post.Span(archive)
		if err != nil {
			return win, err
		}
		win.To = max
		win.From = max.Add(-span)
	case fromStr == "":
		win.From = win.To.Add(-span)
	case toStr == "":
		win.To = win.From.Add(span)
	}
	if win.From.After(win.To) {
		return win, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "from is after to")
	}
	return win, nil
}

// rank collapses concurrent identical requests into one computation and
// consults the cache first when one is configured.
func (h *Handler) rank(ctx context.Context, archive post.Archive, win exporter.Window, top int) ([]ranker.Ranking, bool, error) {
	key := fmt.Sprintf("%d|%d|%d", win.From.Unix(), win.To.Unix(), top)
	if h.deps.Cache != nil {
		key = h.deps.Cache.Key(win, top)
		if rankings, ok := h.deps.Cache.Get(ctx, key); ok {
			h.observeCache(true)
			return rankings, true, nil
		}
		h.observeCache(false)
	}
	val, err, _ := h.group.Do(key, func() (interface{}, error) {
		rankings := h.deps.Ranker.RankWindow(archive, win, top)
		if h.deps.Cache != nil {
			h.deps.Cache.Set(ctx, key, rankings)
		}
		return rankings, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]ranker.Ranking), false, nil
}

func (h *Handler) observeCache(hit bool) {
	if h.deps.Metrics == nil {
		return
	}
	if hit {
		h.deps.Metrics.RankCacheHitsTotal.Inc()
	} else {
		h.deps.Metrics.RankCacheMissesTotal.Inc()
	}
}

// Series returns the exported rank series, optionally narrowed by metric
// and by a comma-separated term list.
func (h *Handler) Series(w http.ResponseWriter, r *http.Request) {
	if h.deps.Series == nil {
		h.writeError(w, apperrors.New(apperrors.ErrNotFound, http.StatusNotFound, "no rank series configured"))
		return
	}
	q := r.URL.Query()
	metric, err := parseMetric(q.Get("metric"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	terms := map[string]bool{}
	for _, t := range strings.Split(q.Get("term"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms[t] = true
		}
	}

	all, err := h.deps.Series.Series(r.Context())
	if err != nil {
		h.logger.Error("reading series failed", "error", err)
		h.writeError(w, fmt.Errorf("%w: reading series", apperrors.ErrInternal))
		return
	}
	out := make([]exporter.Series, 0, len(all))
	for _, s := range all {
		if metric != "" && s.Metric != metric {
			continue
		}
		if len(terms) > 0 && !terms[s.Term] {
			continue
		}
		out = append(out, s)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"series": out})
}

func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	if h.deps.Runs == nil {
		h.writeError(w, apperrors.New(apperrors.ErrNotFound, http.StatusNotFound, "run history needs a sql archive backend"))
		return
	}
	run, err := h.deps.Runs.LatestRun(r.Context())
	if err != nil {
		h.logger.Error("reading latest run failed", "error", err)
		h.writeError(w, fmt.Errorf("%w: reading run history", apperrors.ErrInternal))
		return
	}
	if run == nil {
		h.writeError(w, apperrors.New(apperrors.ErrNotFound, http.StatusNotFound, "no export has run yet"))
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.deps.Cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.deps.Cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, fmt.Errorf("%w: cache invalidation failed", apperrors.ErrInternal))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func parseMetric(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	m, ok := ranker.ParseMetric(s)
	if !ok {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown metric %q", s)
	}
	return m.String(), nil
}

func filterMetric(rankings []ranker.Ranking, name string) []ranker.Ranking {
	out := make([]ranker.Ranking, 0, 1)
	for _, r := range rankings {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": msg})
}
