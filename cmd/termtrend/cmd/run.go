package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/api"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the feed and export rank windows until interrupted",
	Long: `Run the polling loop: fetch the newest posts, merge them into the
archive, export rank windows, prune stale rank files and redraw the charts,
then sleep for scheduler.interval and repeat.

Only one loop may run per data directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		lock := pipeline.NewFileLock(filepath.Join(cfg.Storage.DataDir, pipeline.LockFileName))
		if err := lock.TryLock(); err != nil {
			return err
		}
		defer lock.Unlock()

		a, err := newApp(ctx, cfg, buildOptions{withSource: true})
		if err != nil {
			return err
		}
		defer a.Close()

		sched := pipeline.NewScheduler(a.pipeline, cfg.Scheduler.Interval)
		a.checker.Register("scheduler", sched.HealthCheck(3*cfg.Scheduler.Interval))

		if cfg.Metrics.Enabled {
			shutdown := metrics.StartServer(cfg.Metrics.Port, map[string]http.Handler{
				"GET /health/live":  a.checker.LiveHandler(),
				"GET /health/ready": a.checker.ReadyHandler(),
			})
			defer shutdownWithTimeout(shutdown, "metrics")
		}
		if cfg.Server.Enabled {
			server := newAPIServer(a)
			go func() {
				slog.Info("api listening", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("api server error", "error", err)
					stop()
				}
			}()
			defer shutdownWithTimeout(server.Shutdown, "api")
		}

		slog.Info("polling started",
			"community", cfg.Feed.Community,
			"source", cfg.Feed.Source,
			"mode", cfg.Export.Mode,
			"interval", cfg.Scheduler.Interval,
			"lock", lock.Path(),
		)
		if err := sched.Run(ctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		slog.Info("polling stopped")
		return nil
	},
}

func newAPIServer(a *app) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(a.apiHandler(), a.checker, a.metrics, api.RouterOptions{
			Timeout:     cfg.Server.RequestTimeout,
			RateLimit:   cfg.Server.RateLimit,
			RateWindow:  cfg.Server.RateWindow,
			CORSOrigins: cfg.Server.CORSOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func shutdownWithTimeout(shutdown func(context.Context) error, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "server", name, "error", err)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
