package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/merchctl/internal/api"
	"github.com/Veraticus/merchctl/internal/cli"
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/storage"
)

const kindReport = "report"

// reportData is everything that goes into the report bundle.
type reportData struct {
	kpi        model.Row
	trend      []model.Row
	topStyles  []model.Row
	topSkus    []model.Row
	brands     *api.BrandGmvAsp
	zeroSales  []model.Row
	returnMode string
	win        window
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Bundle the dashboard tables into one zip",
		Long: `Fetch the KPI summary, returns trend, top return styles and SKUs, brand
GMV and ASP and zero-sales styles for the window, and write them as one zip
of CSV files plus a kpi_summary.json.`,
		RunE: runReport,
	}

	cmd.Flags().String("return-mode", "overall", "return attribution (overall, same_month)")
	cmd.Flags().Int("top-n", 50, "rows per table")
	cmd.Flags().Int("min-orders", 10, "minimum orders for top return rows")
	cmd.Flags().Int("min-days", 7, "minimum days live for zero-sales styles")
	addWindowFlags(cmd)

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()

	win, err := windowFlags(cmd)
	if err != nil {
		return err
	}
	returnMode, _ := f.GetString("return-mode")
	topN, _ := f.GetInt("top-n")
	minOrders, _ := f.GetInt("min-orders")
	minDays, _ := f.GetInt("min-days")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	started := time.Now()
	scope := a.scope("", win)
	returnsQuery := api.ReturnsQuery{Scope: scope, TopN: topN, MinOrders: minOrders, ReturnMode: returnMode}
	data := reportData{returnMode: returnMode, win: win}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.kpi, err = a.client.KpiSummary(gctx, scope, returnMode)
		return err
	})
	g.Go(func() (err error) {
		data.trend, err = a.client.ReturnsTrend(gctx, scope, returnMode)
		return err
	})
	g.Go(func() (err error) {
		data.topStyles, err = a.client.TopReturnStyles(gctx, returnsQuery)
		return err
	})
	g.Go(func() (err error) {
		data.topSkus, err = a.client.TopReturnSkus(gctx, returnsQuery)
		return err
	})
	g.Go(func() (err error) {
		data.brands, err = a.client.BrandGmvAsp(gctx, scope)
		return err
	})
	g.Go(func() (err error) {
		data.zeroSales, err = a.client.ZeroSalesSinceLive(gctx, api.ZeroSalesQuery{
			Workspace:   a.settings.Workspace,
			MinDaysLive: minDays,
			TopN:        topN,
			SortDir:     model.Desc,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	bundle, err := buildReport(a.settings.Workspace, data)
	if err != nil {
		return err
	}
	zipped, err := bundle.Zip()
	if err != nil {
		return err
	}

	filename := export.ReportScope(a.settings.Workspace, a.settings.Portal, win.Start, win.End).Filename()
	path, err := a.writer.WriteFile(ctx, filename, zipped)
	if err != nil {
		return err
	}

	run := storage.NewRun(kindReport, a.settings.Workspace, filename, export.Result{
		Path:    path,
		Rows:    reportRows(data),
		Columns: len(bundle.Names()),
	})
	run.Duration = time.Since(started)
	a.record(ctx, run)

	fmt.Fprintln(cmd.OutOrStdout(), reportSummary(path, bundle.Names()))
	return nil
}

// buildReport lays out the bundle. Every file is present even when its table is empty.
func buildReport(workspace string, d reportData) (*export.Bundle, error) {
	b := &export.Bundle{}
	summary := map[string]any{
		"workspace":   workspace,
		"start":       d.win.Start,
		"end":         d.win.End,
		"return_mode": d.returnMode,
		"kpis":        d.kpi,
	}
	if d.brands != nil {
		summary["total_gmv"] = d.brands.TotalGmv
		summary["total_orders"] = d.brands.TotalOrders
	}
	if err := b.AddJSON("kpi_summary.json", summary); err != nil {
		return nil, err
	}

	var brandRows []model.Row
	if d.brands != nil {
		brandRows = d.brands.Rows
	}
	b.AddCSV("returns_trend.csv", export.ReturnsTrendColumns, d.trend)
	b.AddCSV("top_return_styles.csv", export.TopReturnStyleColumns, d.topStyles)
	b.AddCSV("top_return_skus.csv", export.TopReturnSkuColumns, d.topSkus)
	b.AddCSV("brand_gmv_asp.csv", export.BrandGmvAspColumns, brandRows)
	b.AddCSV("zero_sales.csv", export.ZeroSalesColumns, d.zeroSales)
	return b, nil
}

func reportRows(d reportData) int {
	n := len(d.trend) + len(d.topStyles) + len(d.topSkus) + len(d.zeroSales)
	if d.brands != nil {
		n += len(d.brands.Rows)
	}
	return n
}

func reportSummary(path string, names []string) string {
	lines := []string{cli.FormatSuccess("Wrote report " + path)}
	for _, n := range names {
		lines = append(lines, "  "+n)
	}
	return strings.Join(lines, "\n")
}
