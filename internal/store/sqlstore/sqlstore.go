// Package sqlstore keeps the archive in a SQL database, either PostgreSQL
// through lib/pq or a local SQLite file through modernc.org/sqlite.
//
// It requires the tables created by the embedded migrations:
//
//	CREATE TABLE posts (
//	    id         TEXT PRIMARY KEY,
//	    created_at BIGINT NOT NULL,
//	    title      TEXT NOT NULL,
//	    score      INTEGER NOT NULL,
//	    ratio      DOUBLE PRECISION NOT NULL
//	);
//	CREATE TABLE export_runs (run_at BIGINT NOT NULL, data TEXT NOT NULL);
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
)

// Dialect selects placeholder syntax and the migration driver.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Store is a post.Store over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

var _ post.Store = (*Store)(nil)

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  slog.Default().With("component", "sql-archive", "dialect", string(dialect)),
	}
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating sqlite directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}
	return db, nil
}

// Ping is used by the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Load(ctx context.Context) (post.Archive, post.LoadReport, error) {
	var report post.LoadReport
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, title, score, ratio FROM posts`)
	if err != nil {
		return nil, report, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	archive := make(post.Archive)
	for rows.Next() {
		var (
			p       post.Post
			created int64
		)
		if err := rows.Scan(&p.ID, &created, &p.Title, &p.Score, &p.Ratio); err != nil {
			return nil, report, fmt.Errorf("scanning post: %w", err)
		}
		p.CreatedAt = time.Unix(created, 0).UTC()
		archive[p.ID] = p
		report.Rows++
	}
	if err := rows.Err(); err != nil {
		return nil, report, fmt.Errorf("iterating posts: %w", err)
	}
	return archive, report, nil
}

// Save upserts every post of a in one transaction.
func (s *Store) Save(ctx context.Context, a post.Archive) error {
	query := s.rebind(`INSERT INTO posts (id, created_at, title, score, ratio)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    created_at = excluded.created_at,
    title = excluded.title,
    score = excluded.score,
    ratio = excluded.ratio`)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for _, p := range a.Sorted() {
			_, err := stmt.ExecContext(ctx, p.ID, p.CreatedAt.Unix(), p.Title, p.Score, p.Ratio)
			if err != nil {
				return fmt.Errorf("upserting post %s: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving archive: %w", err)
	}
	s.logger.Debug("archive saved", "posts", len(a))
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
