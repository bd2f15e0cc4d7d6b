package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read API over the stored archive and rank series",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, buildOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		server := newAPIServer(a)
		go func() {
			<-ctx.Done()
			slog.Info("shutdown signal received")
			shutdownWithTimeout(server.Shutdown, "api")
		}()

		slog.Info("api listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		slog.Info("api stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
