package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/timefmt"
)

const rankExt = ".csv"

// RankDir keeps one <term>_<metric>.csv file of from,to,value rows per
// ranked pair.
type RankDir struct {
	dir    string
	logger *slog.Logger
}

var _ exporter.RankStore = (*RankDir)(nil)

func NewRankDir(dir string) *RankDir {
	return &RankDir{
		dir:    dir,
		logger: slog.Default().With("component", "rank-dir", "dir", dir),
	}
}

// Path returns the file holding the (term, metric) series.
func (d *RankDir) Path(term, metric string) string {
	return filepath.Join(d.dir, term+"_"+metric+rankExt)
}

// Reset removes every rank file. Other files in the directory are kept.
func (d *RankDir) Reset(ctx context.Context) error {
	files, err := d.files()
	if err != nil {
		return err
	}
	for _, name := range files {
		if err := os.Remove(filepath.Join(d.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	d.logger.Debug("rank files cleared", "count", len(files))
	return nil
}

// Append writes row to the (term, metric) file, truncating it first when
// overwrite is set.
func (d *RankDir) Append(ctx context.Context, term, metric string, row exporter.Row, overwrite bool) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("creating rank directory: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if overwrite {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(d.Path(term, metric), flags, 0644)
	if err != nil {
		return fmt.Errorf("opening rank file: %w", err)
	}
	cw := csv.NewWriter(f)
	cw.Write([]string{
		timefmt.String(row.From),
		timefmt.String(row.To),
		strconv.FormatInt(row.Value, 10),
	})
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing rank row: %w", err)
	}
	return f.Close()
}

// Series reads every rank file back, ordered by metric then term. Rows that
// do not parse are skipped.
func (d *RankDir) Series(ctx context.Context) ([]exporter.Series, error) {
	files, err := d.files()
	if err != nil {
		return nil, err
	}
	out := make([]exporter.Series, 0, len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		term, metric, ok := splitRankName(name)
		if !ok {
			continue
		}
		rows, err := d.readRows(name)
		if err != nil {
			return nil, err
		}
		out = append(out, exporter.Series{Term: term, Metric: metric, Rows: rows})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Metric != out[j].Metric {
			return out[i].Metric < out[j].Metric
		}
		return out[i].Term < out[j].Term
	})
	return out, nil
}

// Prune removes every rank file whose newest window end is more than maxAge
// behind the newest window end across all files. It returns the removed
// file names.
func (d *RankDir) Prune(ctx context.Context, maxAge time.Duration) ([]string, error) {
	files, err := d.files()
	if err != nil {
		return nil, err
	}
	newest := make(map[string]time.Time, len(files))
	var overall time.Time
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := d.readRows(name)
		if err != nil {
			return nil, err
		}
		var last time.Time
		for _, r := range rows {
			if r.To.After(last) {
				last = r.To
			}
		}
		newest[name] = last
		if last.After(overall) {
			overall = last
		}
	}

	var removed []string
	for _, name := range files {
		if overall.Sub(newest[name]) <= maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	if len(removed) > 0 {
		d.logger.Info("stale rank files pruned", "removed", len(removed), "max_age", maxAge.String())
	}
	return removed, nil
}

func (d *RankDir) files() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing rank directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), rankExt) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *RankDir) readRows(name string) ([]exporter.Row, error) {
	f, err := os.Open(filepath.Join(d.dir, name))
	if err != nil {
		return nil, fmt.Errorf("opening rank file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows []exporter.Row
	for {
		record, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			d.logger.Warn("skipping rank row", "file", name, "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		row, err := parseRankRow(record)
		if err != nil {
			d.logger.Warn("skipping rank row", "file", name, "error", err)
			continue
		}
		rows = append(rows, row)
	}
}

func parseRankRow(record []string) (exporter.Row, error) {
	if len(record) != 3 {
		return exporter.Row{}, apperrors.Parsef("want 3 columns, got %d", len(record))
	}
	from, err := timefmt.Parse(record[0])
	if err != nil {
		return exporter.Row{}, err
	}
	to, err := timefmt.Parse(record[1])
	if err != nil {
		return exporter.Row{}, err
	}
	v, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil {
		return exporter.Row{}, apperrors.Parsef("value %q", record[2])
	}
	return exporter.Row{From: from, To: to, Value: v}, nil
}

func splitRankName(name string) (term, metric string, ok bool) {
	base := strings.TrimSuffix(name, rankExt)
	i := strings.LastIndexByte(base, '_')
	if i <= 0 || i == len(base)-1 {
		return "", "", false
	}
	return base[:i], base[i+1:], true
}
