// Package engine runs the multi-style forecast export: it fetches one forecast per
// selected style through a bounded worker pool and assembles a single detailed CSV
// plus a manifest of the styles that failed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/forecast"
	"github.com/Veraticus/merchctl/internal/model"
)

// ForecastSource fetches a size or SKU forecast for one style.
type ForecastSource interface {
	Forecast(ctx context.Context, mode forecast.Mode, req forecast.Request) (forecast.Response, error)
}

// Options configures a detailed export run.
type Options struct {
	Workspace string
	Start     string
	End       string
	Inputs    forecast.Inputs
	Workers   int // Maximum concurrent style fetches
}

// DefaultWorkers is the pool size used when Options.Workers is not set.
const DefaultWorkers = 4

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Workspace: "default",
		Inputs:    forecast.DefaultInputs(),
		Workers:   DefaultWorkers,
	}
}

// StyleResult is the outcome for one selected style.
type StyleResult struct {
	Err      error
	StyleKey string
	Mode     forecast.Mode
	Rows     []model.Row
	// FellBack is set when the size forecast was unusable and SKUs were used instead.
	FellBack bool
}

// Summary contains statistics about the run.
type Summary struct {
	Styles         int
	Succeeded      int
	Failed         int
	Skipped        int
	FellBack       int
	Rows           int
	ProcessingTime time.Duration
}

// DetailedExport is the assembled output of a run.
type DetailedExport struct {
	Spec     model.ExportSpec
	Failures []export.Failure
	Results  []StyleResult
	Summary  Summary
}

// ProgressFunc is called after each style completes. Calls are serialized.
type ProgressFunc func(done, total int, styleKey string)

// DetailedExporter fetches forecasts for many styles concurrently.
type DetailedExporter struct {
	source   ForecastSource
	opts     Options
	progress ProgressFunc
	logger   *slog.Logger
}

// NewDetailedExporter creates an exporter reading from source.
func NewDetailedExporter(source ForecastSource, opts Options) *DetailedExporter {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Workspace == "" {
		opts.Workspace = "default"
	}
	return &DetailedExporter{
		source: source,
		opts:   opts,
		logger: slog.Default(),
	}
}

// OnProgress registers a progress callback.
func (e *DetailedExporter) OnProgress(fn ProgressFunc) {
	e.progress = fn
}

// WithLogger sets the logger used for per-style diagnostics.
func (e *DetailedExporter) WithLogger(logger *slog.Logger) *DetailedExporter {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Run fetches every style in styles (rows with style_key and optionally return_pct).
// Output rows follow the input order whatever order fetches complete in. A failing
// style is recorded and does not stop the others. When ctx is cancelled, styles not
// yet fetched are recorded as failed and the rows already gathered are kept; the
// partial export is returned together with the context error.
func (e *DetailedExporter) Run(ctx context.Context, styles []model.Row) (*DetailedExport, error) {
	startTime := time.Now()

	type job struct {
		index     int
		styleKey  string
		returnPct float64
	}

	jobs := make([]job, 0, len(styles))
	skipped := 0
	for _, s := range styles {
		key := strings.TrimSpace(s.Text("style_key"))
		if key == "" {
			skipped++
			continue
		}
		jobs = append(jobs, job{index: len(jobs), styleKey: key, returnPct: s.Count("return_pct")})
	}

	e.logger.Info("Starting detailed forecast export",
		"styles", len(jobs),
		"skipped", skipped,
		"workers", e.opts.Workers)

	results := make([]StyleResult, len(jobs))

	var (
		mu   sync.Mutex
		done int
	)
	report := func(styleKey string) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if e.progress != nil {
			e.progress(done, len(jobs), styleKey)
		}
	}

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)

	for _, j := range jobs {
		g.Go(func() error {
			results[j.index] = e.fetchStyle(ctx, j.styleKey, j.returnPct)
			report(j.styleKey)
			return nil
		})
	}
	_ = g.Wait()

	out := e.assemble(results)
	out.Summary.Skipped = skipped
	out.Summary.ProcessingTime = time.Since(startTime)

	e.logger.Info("Detailed forecast export finished",
		"succeeded", out.Summary.Succeeded,
		"failed", out.Summary.Failed,
		"rows", out.Summary.Rows,
		"duration", out.Summary.ProcessingTime)

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// fetchStyle tries the size forecast first and falls back to SKUs when the size
// request fails or carries no size information.
func (e *DetailedExporter) fetchStyle(ctx context.Context, styleKey string, returnPct float64) StyleResult {
	res := StyleResult{StyleKey: styleKey}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	req := forecast.Request{
		Workspace: e.opts.Workspace,
		StyleKey:  styleKey,
		Start:     e.opts.Start,
		End:       e.opts.End,
		Inputs:    e.opts.Inputs,
	}

	sizeResp, err := e.source.Forecast(ctx, forecast.ModeSize, req)
	switch {
	case err == nil:
		f := forecast.Unify(forecast.ModeSize, sizeResp, e.opts.Inputs)
		if !f.IsEffectivelyNoSize() {
			res.Mode = forecast.ModeSize
			res.Rows = f.DetailedRows(returnPct)
			return res
		}
		e.logger.Debug("Size forecast has no sizes, using SKUs", "style_key", styleKey)
	case isCancellation(ctx, err):
		res.Err = err
		return res
	default:
		e.logger.Debug("Size forecast failed, using SKUs", "style_key", styleKey, "error", err)
	}

	skuResp, err := e.source.Forecast(ctx, forecast.ModeSKU, req)
	if err != nil {
		res.Err = fmt.Errorf("sku forecast: %w", err)
		return res
	}

	f := forecast.Unify(forecast.ModeSKU, skuResp, e.opts.Inputs)
	res.Mode = forecast.ModeSKU
	res.FellBack = true
	res.Rows = f.DetailedRows(returnPct)
	return res
}

func (e *DetailedExporter) assemble(results []StyleResult) *DetailedExport {
	out := &DetailedExport{Results: results}
	out.Summary.Styles = len(results)

	var rows []model.Row
	for _, r := range results {
		if r.Err != nil {
			out.Summary.Failed++
			out.Failures = append(out.Failures, export.Failure{StyleKey: r.StyleKey, Err: r.Err.Error()})
			common.LogWarn("Style forecast failed", common.Fields{"style_key": r.StyleKey, "error": r.Err.Error()})
			continue
		}
		out.Summary.Succeeded++
		if r.FellBack {
			out.Summary.FellBack++
		}
		rows = append(rows, r.Rows...)
	}
	out.Summary.Rows = len(rows)

	out.Spec = model.ExportSpec{
		Filename: export.ForecastDetailedScope(e.opts.Workspace, e.opts.Start, e.opts.End).Filename(),
		Columns:  forecast.DetailedColumns,
		Rows:     rows,
	}
	return out
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

// Saved describes the files written for a detailed export.
type Saved struct {
	Export       export.Result
	FailuresPath string
}

// Save writes the detailed CSV and, when any style failed, the failure manifest
// next to it. An export without rows writes only the manifest. A manifest left by an
// earlier run of the same export is removed when nothing failed.
func Save(ctx context.Context, w *export.Writer, out *DetailedExport) (Saved, error) {
	var saved Saved

	res, err := w.Export(ctx, out.Spec)
	if err != nil {
		return saved, err
	}
	saved.Export = res

	manifestName := export.FailuresFilename(out.Spec.Filename)
	if len(out.Failures) == 0 {
		if err := w.Remove(ctx, manifestName); err != nil {
			return saved, fmt.Errorf("failed to remove stale failure manifest: %w", err)
		}
		return saved, nil
	}

	mres, err := w.Export(ctx, export.FailureSpec(manifestName, out.Failures))
	if err != nil {
		return saved, fmt.Errorf("failed to write failure manifest: %w", err)
	}
	saved.FailuresPath = mres.Path
	return saved, nil
}
