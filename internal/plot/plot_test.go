package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
)

func rows(start time.Time, values ...int64) []exporter.Row {
	out := make([]exporter.Row, len(values))
	for i, v := range values {
		from := start.Add(time.Duration(i) * 24 * time.Hour)
		out[i] = exporter.Row{From: from, To: from.Add(24*time.Hour - time.Second), Value: v}
	}
	return out
}

func TestRender(t *testing.T) {
	day := time.Date(2021, 1, 28, 0, 0, 0, 0, time.UTC)
	dir := filepath.Join(t.TempDir(), "Plot_result")
	series := []exporter.Series{
		{Term: "GME", Metric: "Count", Rows: rows(day, 4, 9, 3)},
		{Term: "AMC", Metric: "Count", Rows: rows(day, 1, 2)},
		{Term: "GME", Metric: "Score", Rows: rows(day, 40)},
		{Term: "NOK", Metric: "Context", Rows: nil},
	}
	paths, err := Render(series, dir, 4, 3)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []string{filepath.Join(dir, "plot_Count.png"), filepath.Join(dir, "plot_Score.png")}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i, p := range paths {
		if p != want[i] {
			t.Errorf("path %d = %s, want %s", i, p, want[i])
		}
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("reading %s: %v", p, err)
		}
		if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
			t.Errorf("%s is not a PNG", p)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "plot_Context.png")); !os.IsNotExist(err) {
		t.Error("chart written for a metric without rows")
	}
}

func TestRenderNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "none")
	paths, err := Render(nil, dir, 4, 3)
	if err != nil || len(paths) != 0 {
		t.Fatalf("Render(nil) = %v, %v", paths, err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("directory created with nothing to plot")
	}
}
