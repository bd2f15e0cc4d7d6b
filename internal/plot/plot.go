// Package plot renders the exported rank series as one line chart per
// metric, one line per term, with the window end on the x axis.
package plot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
)

// DPI is the resolution of every rendered chart.
const DPI = 150

// FileName is the chart file for metric.
func FileName(metric string) string {
	return "plot_" + metric + ".png"
}

// Render writes plot_<metric>.png into dir for every metric that has at
// least one row. width and height are in inches. It returns the written
// paths in metric order.
func Render(series []exporter.Series, dir string, width, height float64) ([]string, error) {
	logger := slog.Default().With("component", "plot", "dir", dir)
	byMetric := make(map[string][]exporter.Series)
	for _, s := range series {
		if len(s.Rows) == 0 {
			continue
		}
		byMetric[s.Metric] = append(byMetric[s.Metric], s)
	}
	if len(byMetric) == 0 {
		logger.Debug("nothing to plot")
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating plot directory: %w", err)
	}

	metrics := make([]string, 0, len(byMetric))
	for m := range byMetric {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	paths := make([]string, 0, len(metrics))
	for _, m := range metrics {
		p, err := chart(m, byMetric[m])
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, FileName(m))
		if err := save(p, path, width, height); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	logger.Info("charts rendered", "count", len(paths))
	return paths, nil
}

func chart(metric string, series []exporter.Series) (*plot.Plot, error) {
	sort.Slice(series, func(i, j int) bool { return series[i].Term < series[j].Term })
	p := plot.New()
	p.Title.Text = metric
	p.X.Label.Text = "window end"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	p.Y.Label.Text = metric
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, s := range series {
		rows := append([]exporter.Row(nil), s.Rows...)
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].To.Before(rows[b].To) })
		pts := make(plotter.XYs, len(rows))
		for j, r := range rows {
			pts[j].X = float64(r.To.Unix())
			pts[j].Y = float64(r.Value)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("plotting %s_%s: %w", s.Term, metric, err)
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Dashes = plotutil.Dashes(i / len(plotutil.DefaultColors))
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Term, line)
	}
	return p, nil
}

func save(p *plot.Plot, path string, width, height float64) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch),
		vgimg.UseDPI(DPI),
	)
	p.Draw(draw.New(c))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
