package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

// StartServer serves /metrics plus any extra routes on port in the
// background and returns the server's Shutdown. The pipeline uses it for
// health probes when the read API is not running.
func StartServer(port int, routes map[string]http.Handler) (shutdown func(context.Context) error) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())
	paths := make([]string, 0, len(routes))
	for pattern, h := range routes {
		mux.Handle(pattern, h)
		paths = append(paths, pattern)
	}
	sort.Strings(paths)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Term Trend Metrics</h1><p><a href="/metrics">/metrics</a></p>`)
		for _, p := range paths {
			fmt.Fprintf(w, `<p>%s</p>`, strings.TrimPrefix(p, "GET "))
		}
		fmt.Fprint(w, `</body></html>`)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr, "extra_routes", len(paths))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}
