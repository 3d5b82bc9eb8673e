package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/model"
)

// Result describes one written export.
type Result struct {
	// Path is the CSV file; empty when the export was skipped.
	Path string
	// XLSXPath is the spreadsheet twin, when enabled.
	XLSXPath string
	Rows     int
	Columns  int
	// Skipped is set when there were no rows and nothing was written.
	Skipped bool
}

// Writer writes exports into one output directory.
type Writer struct {
	dir    string
	xlsx   bool
	logger *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithXLSX also writes a .xlsx twin of every CSV export.
func WithXLSX(enabled bool) Option {
	return func(w *Writer) {
		w.xlsx = enabled
	}
}

// WithLogger sets the writer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWriter creates a writer for dir.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Export writes spec as <dir>/<filename>. An export with no rows is a silent no-op:
// no file is created and no error is returned.
func (w *Writer) Export(ctx context.Context, spec model.ExportSpec) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(spec.Rows) == 0 {
		w.logger.Debug("export skipped, no rows", "filename", spec.Filename)
		return Result{Skipped: true}, nil
	}
	if err := validateFilename(spec.Filename); err != nil {
		return Result{}, err
	}

	path := filepath.Join(w.dir, spec.Filename)
	if err := w.writeAtomic(path, Bytes(spec.Columns, spec.Rows)); err != nil {
		return Result{}, fmt.Errorf("failed to write %s: %w", spec.Filename, err)
	}

	res := Result{Path: path, Rows: len(spec.Rows), Columns: len(spec.Columns)}

	if w.xlsx {
		xlsxPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".xlsx"
		data, err := XLSX(spec.Columns, spec.Rows)
		if err != nil {
			return res, err
		}
		if err := w.writeAtomic(xlsxPath, data); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", filepath.Base(xlsxPath), err)
		}
		res.XLSXPath = xlsxPath
	}

	w.logger.Info("export written", "path", res.Path, "rows", res.Rows, "columns", res.Columns)
	return res, nil
}

// WriteFile atomically writes raw bytes (a zip bundle, for instance) under the
// output directory.
func (w *Writer) WriteFile(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, filename)
	if err := w.writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	w.logger.Info("file written", "path", path, "bytes", len(data))
	return path, nil
}

// Remove deletes <dir>/<filename> and its XLSX twin. Files that do not exist are
// ignored.
func (w *Writer) Remove(ctx context.Context, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateFilename(filename); err != nil {
		return err
	}
	path := filepath.Join(w.dir, filename)
	for _, p := range []string{path, strings.TrimSuffix(path, filepath.Ext(path)) + ".xlsx"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(p), err)
		}
	}
	w.logger.Debug("file removed", "path", path)
	return nil
}

// writeAtomic writes to a temporary file in the same directory and renames it into
// place so readers never see a partial export.
func (w *Writer) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".merchctl-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		if closeErr := tmp.Close(); closeErr != nil {
			w.logger.Error("failed to close temporary file after write error", "error", closeErr)
		}
		if rmErr := os.Remove(tmpPath); rmErr != nil {
			w.logger.Error("failed to remove temporary file after write error", "error", rmErr)
		}
		return err
	}

	if err := tmp.Close(); err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil {
			w.logger.Error("failed to remove temporary file after close error", "error", rmErr)
		}
		return err
	}

	return os.Rename(tmpPath, path)
}

func validateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", common.ErrInvalidFilename)
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", common.ErrInvalidFilename, name)
	}
	return nil
}
