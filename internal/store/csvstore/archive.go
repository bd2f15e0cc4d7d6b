package csvstore

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/timefmt"
)

const archiveColumns = 5

// ArchiveFile stores the archive as rows of id,timestamp,title,score,ratio.
type ArchiveFile struct {
	path   string
	logger *slog.Logger
}

var _ post.Store = (*ArchiveFile)(nil)

func NewArchiveFile(path string) *ArchiveFile {
	return &ArchiveFile{
		path:   path,
		logger: slog.Default().With("component", "archive-file", "path", path),
	}
}

// Load reads the archive. A missing file is an empty archive. Rows with the
// wrong column count, an empty id, an unparseable timestamp or bad numbers
// are skipped with a warning and counted in the report. A row that is not
// valid CSV, such as a legacy title opening with a bare quote, is split on
// commas as a single line; saved titles never hold commas.
func (f *ArchiveFile) Load(ctx context.Context) (post.Archive, post.LoadReport, error) {
	var report post.LoadReport
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return post.Archive{}, report, nil
	}
	if err != nil {
		return nil, report, fmt.Errorf("opening archive: %w", err)
	}

	archive := make(post.Archive)
	var resolver timefmt.Resolver
	base := 0
	r := newArchiveReader(data)
	for row := 1; ; row++ {
		if row%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, report, err
			}
		}
		start := int(r.InputOffset())
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			rest := data[base+start:]
			trimmed := bytes.TrimLeft(rest, "\r\n")
			line, n := firstLine(trimmed)
			f.logger.Debug("re-reading malformed row as plain text", "row", row, "error", pe.Err)
			record = strings.Split(line, ",")
			base += start + len(rest) - len(trimmed) + n
			r = newArchiveReader(data[base:])
		} else if err != nil {
			return nil, report, fmt.Errorf("reading archive: %w", err)
		}
		p, err := parsePost(record, &resolver)
		if err != nil {
			f.skip(&report, row, err)
			continue
		}
		archive[p.ID] = p
		report.Rows++
	}
	if layout, ok := resolver.Format(); ok && layout != timefmt.Canonical {
		f.logger.Info("archive holds legacy timestamps", "layout", layout.Layout())
	}
	if report.Skipped > 0 {
		f.logger.Warn("archive loaded with skipped rows", "rows", report.Rows, "skipped", report.Skipped)
	}
	return archive, report, nil
}

func newArchiveReader(data []byte) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	return r
}

// firstLine returns the first line of b without its line ending and the
// number of bytes it spans including the ending.
func firstLine(b []byte) (string, int) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return string(bytes.TrimSuffix(b, []byte{'\r'})), len(b)
	}
	return string(bytes.TrimSuffix(b[:i], []byte{'\r'})), i + 1
}

func (f *ArchiveFile) skip(report *post.LoadReport, row int, err error) {
	report.Skipped++
	f.logger.Warn("skipping archive row", "row", row, "error", err)
}

func parsePost(record []string, resolver *timefmt.Resolver) (post.Post, error) {
	if len(record) != archiveColumns {
		return post.Post{}, apperrors.Parsef("want %d columns, got %d", archiveColumns, len(record))
	}
	id := record[0]
	if id == "" {
		return post.Post{}, apperrors.Parsef("empty id")
	}
	created, err := resolver.Parse(record[1])
	if err != nil {
		return post.Post{}, fmt.Errorf("post %s: %w", id, err)
	}
	score, err := strconv.Atoi(record[3])
	if err != nil {
		return post.Post{}, apperrors.Parsef("post %s: score %q", id, record[3])
	}
	ratio, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return post.Post{}, apperrors.Parsef("post %s: ratio %q", id, record[4])
	}
	return post.Post{
		ID:        id,
		CreatedAt: created,
		Title:     record[2],
		Score:     score,
		Ratio:     ratio,
	}, nil
}

// Save rewrites the whole archive in creation order.
func (f *ArchiveFile) Save(ctx context.Context, a post.Archive) error {
	err := writeAtomic(f.path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		for i, p := range a.Sorted() {
			if i%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			record := []string{
				p.ID,
				timefmt.String(p.CreatedAt),
				post.SanitizeTitle(p.Title),
				strconv.Itoa(p.Score),
				strconv.FormatFloat(p.Ratio, 'f', -1, 64),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("writing post %s: %w", p.ID, err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("saving archive: %w", err)
	}
	f.logger.Debug("archive saved", "posts", len(a))
	return nil
}
