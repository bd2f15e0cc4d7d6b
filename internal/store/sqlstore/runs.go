package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
)

// Run is one recorded export.
type Run struct {
	At     time.Time       `json:"at"`
	Report exporter.Report `json:"report"`
}

// RecordRun stores an export report.
func (s *Store) RecordRun(ctx context.Context, at time.Time, report exporter.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling export report: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO export_runs (run_at, data) VALUES (?, ?)`),
		at.UTC().UnixNano(), string(data),
	)
	if err != nil {
		return fmt.Errorf("recording export run: %w", err)
	}
	s.logger.Info("export run recorded",
		"exported", report.Exported,
		"skipped", report.Skipped,
		"rows", report.Rows,
	)
	return nil
}

// LatestRun returns the most recent export run, or nil when none exists.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	var (
		at   int64
		data string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_at, data FROM export_runs ORDER BY run_at DESC LIMIT 1`,
	).Scan(&at, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest export run: %w", err)
	}

	run := &Run{At: time.Unix(0, at).UTC()}
	if err := json.Unmarshal([]byte(data), &run.Report); err != nil {
		return nil, fmt.Errorf("unmarshaling export report: %w", err)
	}
	return run, nil
}
