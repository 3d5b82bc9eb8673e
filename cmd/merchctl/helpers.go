package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/merchctl/internal/api"
	"github.com/Veraticus/merchctl/internal/cli"
	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/config"
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
	"github.com/Veraticus/merchctl/internal/storage"
	"github.com/Veraticus/merchctl/internal/view"
)

const (
	dateLayout = "2006-01-02"
	// defaultWindowDays is how far back the default date window starts.
	defaultWindowDays = 30
)

// app bundles what a command needs: settings, the backend client, the export
// writer and the export ledger (opened on first use).
type app struct {
	settings *config.Settings
	client   *api.Client
	writer   *export.Writer
	ledger   *storage.SQLiteStorage
}

// newApp resolves configuration and builds the backend client and writer.
func newApp() (*app, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("invalid configuration", err)
	}

	clientCfg := settings.ClientConfig()
	clientCfg.Logger = slog.Default()
	client, err := api.NewClient(clientCfg)
	if err != nil {
		return nil, err
	}

	return &app{
		settings: settings,
		client:   client,
		writer: export.NewWriter(settings.OutputDir,
			export.WithXLSX(settings.XLSX),
			export.WithLogger(slog.Default()),
		),
	}, nil
}

// Close releases the client and the ledger.
func (a *app) Close() {
	a.client.Close()
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			slog.Warn("Failed to close export ledger", "error", err)
		}
	}
}

func (a *app) openLedger(ctx context.Context) (*storage.SQLiteStorage, error) {
	if a.ledger != nil {
		return a.ledger, nil
	}
	store, err := storage.Open(ctx, a.settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open export ledger: %w", err)
	}
	a.ledger = store
	return store, nil
}

// export writes spec and records the run in the ledger. A ledger failure is logged,
// never returned: the file on disk is what matters.
func (a *app) export(ctx context.Context, kind string, spec model.ExportSpec) (export.Result, error) {
	res, err := a.writer.Export(ctx, spec)
	if err != nil {
		return res, err
	}
	a.record(ctx, storage.NewRun(kind, a.settings.Workspace, spec.Filename, res))
	return res, nil
}

func (a *app) record(ctx context.Context, run *storage.Run) {
	// Record even when the command was interrupted after writing.
	ctx = context.WithoutCancel(ctx)

	ledger, err := a.openLedger(ctx)
	if err != nil {
		common.LogError(err, "Export not recorded", common.Fields{"file": run.Filename})
		return
	}
	if err := ledger.RecordRun(ctx, run); err != nil {
		common.LogError(err, "Export not recorded", common.Fields{"file": run.Filename})
		return
	}
	common.LogDebug("Export recorded", common.Fields{"id": run.ID, "kind": run.Kind, "rows": run.Rows})
}

// scope builds the common API scope from the global settings and a window.
func (a *app) scope(brand string, w window) api.Scope {
	return api.Scope{
		Workspace: a.settings.Workspace,
		Portal:    a.settings.Portal,
		Brand:     brand,
		Start:     w.Start,
		End:       w.End,
	}
}

// window is an inclusive YYYY-MM-DD date range.
type window struct {
	Start string
	End   string
}

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().String("start", "", "window start, YYYY-MM-DD (default: 30 days before end)")
	cmd.Flags().String("end", "", "window end, YYYY-MM-DD (default: today)")
}

func windowFlags(cmd *cobra.Command) (window, error) {
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	return resolveWindow(start, end, time.Now())
}

// resolveWindow fills in the default window and validates the dates.
func resolveWindow(start, end string, now time.Time) (window, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)

	endDate := now
	if end != "" {
		d, err := time.Parse(dateLayout, end)
		if err != nil {
			return window{}, common.NewUserError(fmt.Sprintf("invalid --end %q, want YYYY-MM-DD", end), common.ErrInvalidInput)
		}
		endDate = d
	}

	startDate := endDate.AddDate(0, 0, -defaultWindowDays)
	if start != "" {
		d, err := time.Parse(dateLayout, start)
		if err != nil {
			return window{}, common.NewUserError(fmt.Sprintf("invalid --start %q, want YYYY-MM-DD", start), common.ErrInvalidInput)
		}
		startDate = d
	}

	if startDate.After(endDate) {
		return window{}, common.NewUserError("--start is after --end", common.ErrInvalidInput)
	}
	return window{Start: startDate.Format(dateLayout), End: endDate.Format(dateLayout)}, nil
}

// monthStart returns the first day of now's month.
func monthStart(now time.Time) string {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

func addViewFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("sort", "", "sort column (default: the table's default sort)")
	f.String("dir", "", "sort direction, asc or desc (default: the column's default)")
	f.String("tag", model.AllTags, "only rows with this server tag")
	f.String("search", "", "case-insensitive match on style, SKU, product or brand")
	f.Bool("zero-sales", false, "only rows without orders in the last 30 days")
	f.Int("limit", view.DefaultLimit, "rows to show, 0 for all")
}

// viewQuery reads the view flags into a query for table t.
func viewQuery(cmd *cobra.Command, t ranking.Table) (model.ViewQuery, error) {
	f := cmd.Flags()
	sortKey, _ := f.GetString("sort")
	dir, _ := f.GetString("dir")
	tag, _ := f.GetString("tag")
	search, _ := f.GetString("search")
	zero, _ := f.GetBool("zero-sales")
	limit, _ := f.GetInt("limit")

	q := model.ViewQuery{
		Sort:    t.DefaultSort,
		Filters: model.Filters{Tag: tag, Search: search, ZeroSalesOnly: zero},
		Page:    model.Page{Limit: limit},
	}
	if err := applySort(&q, t, sortKey, dir); err != nil {
		return q, err
	}
	return q, nil
}

func applySort(q *model.ViewQuery, t ranking.Table, sortKey, dir string) error {
	if sortKey != "" {
		col, ok := t.Column(sortKey)
		if !ok || !col.Sortable {
			msg := fmt.Sprintf("cannot sort by %q; sortable columns: %s", sortKey, strings.Join(t.SortableKeys(), ", "))
			return common.NewUserError(msg, common.ErrInvalidInput)
		}
		q.Sort = model.SortSpec{Key: col.Key, Direction: col.DefaultDirection}
	}
	if dir != "" {
		d, err := model.ParseDirection(dir)
		if err != nil {
			return common.NewUserError("invalid --dir", err)
		}
		q.Sort.Direction = d
	}
	return nil
}

// printTable renders a view of rows with the counts line underneath.
func printTable(w io.Writer, title string, t ranking.Table, res view.Result, sort model.SortSpec, extra ...cli.Column) {
	cols := cli.TableColumns(t, sort)
	if len(extra) > 0 {
		cols = append(cols[:1:1], append(extra, cols[1:]...)...)
	}

	fmt.Fprintln(w, cli.FormatTitle(title))
	if res.Visible() == 0 {
		fmt.Fprintln(w, cli.FormatWarning("No rows match"))
		return
	}
	fmt.Fprintln(w, cli.RenderTable(cols, res.Rows))
	fmt.Fprintln(w, cli.Counts(res.Visible(), len(res.Filtered), res.Total))
}

// printExport reports the outcome of an export.
func printExport(w io.Writer, res export.Result) {
	if res.Skipped {
		fmt.Fprintln(w, cli.FormatWarning("No rows to export, nothing written"))
		return
	}
	fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("Exported %d rows to %s", res.Rows, res.Path)))
	if res.XLSXPath != "" {
		fmt.Fprintln(w, cli.FormatInfo("Spreadsheet copy: "+res.XLSXPath))
	}
}
