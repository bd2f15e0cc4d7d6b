package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Export.Window != 24*time.Hour {
		t.Errorf("window = %v, want 24h", cfg.Export.Window)
	}
	if cfg.Ranking.TopN != 10 {
		t.Errorf("topN = %d, want 10", cfg.Ranking.TopN)
	}
	if cfg.Scheduler.Interval != 10*time.Minute {
		t.Errorf("interval = %v, want 10m", cfg.Scheduler.Interval)
	}
	if len(cfg.Indexer.Markers) != 2 {
		t.Errorf("markers = %v", cfg.Indexer.Markers)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	yml := `
feed:
  community: stocks
  limit: 100
export:
  mode: backward
ranking:
  topN: 5
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TT_FEED_LIMIT", "42")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feed.Community != "stocks" {
		t.Errorf("community = %q", cfg.Feed.Community)
	}
	if cfg.Feed.Limit != 42 {
		t.Errorf("env override ignored: limit = %d", cfg.Feed.Limit)
	}
	if cfg.Export.Mode != ModeBackward || cfg.Ranking.TopN != 5 {
		t.Errorf("mode/topN = %q/%d", cfg.Export.Mode, cfg.Ranking.TopN)
	}
	if cfg.Storage.ArchiveBackend != BackendCSV {
		t.Errorf("unset field lost its default: %q", cfg.Storage.ArchiveBackend)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
	}{
		{"unknown mode", "export:\n  mode: sideways\n"},
		{"unknown backend", "storage:\n  archiveBackend: mongo\n"},
		{"redis watermark without redis", "storage:\n  watermarkBackend: redis\n"},
		{"zero topN", "ranking:\n  topN: 0\n"},
		{"not yaml", "feed: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			if err := os.WriteFile(path, []byte(tt.yml), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if !errors.Is(err, apperrors.ErrConfiguration) {
				t.Fatalf("Load error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "termtrend.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.RateLimit != 120 || cfg.Server.RateWindow != time.Minute {
		t.Errorf("rate limit = %d per %v", cfg.Server.RateLimit, cfg.Server.RateWindow)
	}
	if !cfg.Dictionary.FirstColumn || cfg.Export.Mode != ModeForwardResumable {
		t.Errorf("firstColumn/mode = %v/%q", cfg.Dictionary.FirstColumn, cfg.Export.Mode)
	}
}
