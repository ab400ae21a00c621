// Package export writes helpdesk data to JSON, CSV and per-article files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deskops/internal/helpdesk"
)

// Source is the subset of the helpdesk client the exporters read from.
type Source interface {
	Records(ctx context.Context, resource string) ([]helpdesk.Record, error)
	Categories(ctx context.Context) ([]helpdesk.Category, error)
	Folders(ctx context.Context, categoryID int64) ([]helpdesk.Folder, error)
	Articles(ctx context.Context, folderID int64) ([]helpdesk.Record, error)
	CannedResponseFolders(ctx context.Context) ([]helpdesk.CannedResponseFolder, error)
	CannedResponses(ctx context.Context, folderID int64) ([]helpdesk.Record, error)
	ServiceItems(ctx context.Context, workspaceID int64) ([]helpdesk.Record, error)
}

// Exporter writes export files into Dir.
type Exporter struct {
	src Source
	dir string
	now func() time.Time
}

// New creates an exporter writing to dir.
func New(src Source, dir string) *Exporter {
	return &Exporter{src: src, dir: dir, now: time.Now}
}

// WithClock overrides the clock used for file names.
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// column maps a CSV header to a record field, with the value written
// when the field is missing.
type column struct {
	header string
	key    string
	def    any
}

func headers(cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.header
	}
	return out
}

func (c column) value(r helpdesk.Record) string {
	v, ok := r[c.key]
	if !ok {
		return helpdesk.FormatValue(c.def)
	}
	return helpdesk.FormatValue(v)
}

// writeFile creates name in the export directory and streams into it.
func (e *Exporter) writeFile(name string, fn func(w io.Writer) error) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(e.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := fn(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	log.Info().Str("file", path).Msg("Export written")
	return path, nil
}

// csvTable writes a header and rows, flushing at the end.
func csvTable(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}
