package api

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/middleware"
)

// RouterOptions tunes the request chain. Zero values disable the matching
// middleware.
type RouterOptions struct {
	Timeout     time.Duration
	RateLimit   int
	RateWindow  time.Duration
	CORSOrigins []string
}

// NewRouter mounts the API, health probes and /metrics behind the request
// chain RequestID → CORS → Metrics → RateLimit → Timeout. checker and m may
// be nil.
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	if checker != nil {
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	}
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	if opts.Timeout > 0 {
		chain = middleware.Timeout(opts.Timeout)(chain)
	}
	if opts.RateLimit > 0 {
		chain = middleware.RateLimit(middleware.NewLimiter(opts.RateLimit, opts.RateWindow))(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	if len(opts.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(opts.CORSOrigins...))(chain)
	}
	return middleware.RequestID(chain)
}
