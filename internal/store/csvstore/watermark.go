package csvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/timefmt"
)

// WatermarkFile keeps the export watermark as a single timestamp line.
type WatermarkFile struct {
	path string
}

var _ exporter.WatermarkStore = (*WatermarkFile)(nil)

func NewWatermarkFile(path string) *WatermarkFile {
	return &WatermarkFile{path: path}
}

// Load returns the zero time when the file is missing or blank.
func (w *WatermarkFile) Load(ctx context.Context) (time.Time, error) {
	data, err := os.ReadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading watermark: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return time.Time{}, nil
	}
	t, err := timefmt.Parse(line)
	if err != nil {
		return time.Time{}, fmt.Errorf("watermark %s: %w", w.path, err)
	}
	return t, nil
}

func (w *WatermarkFile) Save(ctx context.Context, t time.Time) error {
	return writeAtomic(w.path, func(out io.Writer) error {
		_, err := io.WriteString(out, timefmt.String(t)+"\n")
		return err
	})
}
