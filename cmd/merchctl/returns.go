package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchctl/internal/api"
	"github.com/Veraticus/merchctl/internal/cli"
	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
	"github.com/Veraticus/merchctl/internal/view"
)

const (
	kindReturns        = "returns"
	kindReturnsHeatmap = "returns_heatmap"
	kindReturnsCohort  = "returns_cohort"

	cohortView = "cohort"
)

// returnsView is one of the returns tables.
type returnsView struct {
	fetch   func(c *api.Client, ctx context.Context, q api.ReturnsQuery) ([]model.Row, error)
	scope   func(brand, workspace, portal string, w window) export.Scope
	title   string
	columns []string
}

var returnsViews = map[string]returnsView{
	"top-styles": {
		title:   "Top return styles",
		columns: export.TopReturnStyleColumns,
		fetch:   (*api.Client).TopReturnStyles,
		scope: func(_, ws, portal string, w window) export.Scope {
			return export.WindowScope("top_return_styles", ws, portal, w.Start, w.End)
		},
	},
	"top-skus": {
		title:   "Top return SKUs",
		columns: export.TopReturnSkuColumns,
		fetch:   (*api.Client).TopReturnSkus,
		scope: func(_, ws, portal string, w window) export.Scope {
			return export.WindowScope("top_return_skus", ws, portal, w.Start, w.End)
		},
	},
	"style-wise": {
		title:   "Returns by style",
		columns: export.StyleReturnsColumns,
		fetch:   (*api.Client).ReturnsStyleWise,
		scope: func(brand, ws, portal string, w window) export.Scope {
			return export.ReturnsScope("stylewise", brand, ws, portal, w.Start, w.End)
		},
	},
	"sku-wise": {
		title:   "Returns by SKU",
		columns: export.SkuReturnsColumns,
		fetch:   (*api.Client).ReturnsSkuWise,
		scope: func(brand, ws, portal string, w window) export.Scope {
			return export.ReturnsScope("skuwise", brand, ws, portal, w.Start, w.End)
		},
	},
}

var returnsViewNames = []string{"top-styles", "top-skus", "style-wise", "sku-wise"}

// allReturnsViews adds the views the browser cannot show.
var allReturnsViews = []string{"top-styles", "top-skus", "style-wise", "sku-wise", cohortView}

func returnsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "returns",
		Short: "Rank styles and SKUs by returns",
		Long: `Print one of the returns tables: top return styles or SKUs, the
style-wise and SKU-wise return counts, or the cohort of returned units by order
month and return month.

The cohort is shown as a pivot of one metric (--metric) or, with --cohort-view
same_month, as the returns that came back in the month they were ordered. It can
be narrowed to one style (--scope style --style-key) or SKU (--scope sku --sku).

With --heatmap the style or SKU by return-reason heatmap is exported instead.`,
		RunE: runReturns,
	}

	cmd.Flags().String("view", "top-styles", "table to show ("+strings.Join(allReturnsViews, ", ")+")")
	cmd.Flags().String("brand", "", "brand filter (default: all brands)")
	cmd.Flags().Int("top-n", 50, "rows to fetch")
	cmd.Flags().Int("min-orders", 10, "minimum orders for a row to qualify")
	cmd.Flags().String("return-mode", "overall", "return attribution (overall, same_month)")
	cmd.Flags().String("heatmap", "", "export the return-reason heatmap (style, sku)")
	cmd.Flags().Int("top-reasons", 10, "heatmap reason columns")
	cmd.Flags().Int("top-rows", 30, "heatmap rows")
	cmd.Flags().String("cohort-view", "overall", "cohort layout (overall, same_month)")
	cmd.Flags().String("scope", "overall", "cohort scope (overall, style, sku)")
	cmd.Flags().String("style-key", "", "style for --scope style")
	cmd.Flags().String("sku", "", "seller SKU code for --scope sku")
	cmd.Flags().String("metric", export.DefaultCohortMetric, "cohort metric ("+strings.Join(export.CohortMetrics, ", ")+")")
	cmd.Flags().Bool("export", false, "export the filtered rows to CSV")
	addWindowFlags(cmd)
	addViewFlags(cmd)

	// Returns rows have no server tag.
	_ = cmd.Flags().MarkHidden("tag")

	return cmd
}

func runReturns(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()

	win, err := windowFlags(cmd)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	brand, _ := f.GetString("brand")
	if dim, _ := f.GetString("heatmap"); dim != "" {
		return exportHeatmap(cmd, a, dim, brand, win)
	}

	name, _ := f.GetString("view")
	if name == cohortView {
		return runCohort(cmd, a, brand, win)
	}
	rv, ok := returnsViews[name]
	if !ok {
		msg := fmt.Sprintf("unknown view %q; choose from %s", name, strings.Join(allReturnsViews, ", "))
		return common.NewUserError(msg, common.ErrInvalidInput)
	}

	query, err := viewQuery(cmd, ranking.TopReturns)
	if err != nil {
		return err
	}

	topN, _ := f.GetInt("top-n")
	minOrders, _ := f.GetInt("min-orders")
	mode, _ := f.GetString("return-mode")
	rows, err := rv.fetch(a.client, ctx, api.ReturnsQuery{
		Scope:      a.scope(brand, win),
		TopN:       topN,
		MinOrders:  minOrders,
		ReturnMode: mode,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	res := view.Apply(rows, query, ranking.TopReturns)
	printTable(out, rv.title, ranking.TopReturns, res, query.Sort)

	if exp, _ := f.GetBool("export"); exp {
		spec := model.ExportSpec{
			Filename: rv.scope(brand, a.settings.Workspace, a.settings.Portal, win).WithFilters(query.Filters).Filename(),
			Columns:  rv.columns,
			Rows:     res.Filtered,
		}
		written, err := a.export(ctx, kindReturns, spec)
		if err != nil {
			return err
		}
		printExport(out, written)
	}
	return nil
}

func exportHeatmap(cmd *cobra.Command, a *app, dimName, brand string, win window) error {
	dim := api.HeatmapDim(dimName)
	if dim != api.HeatmapStyle && dim != api.HeatmapSKU {
		return common.NewUserError(fmt.Sprintf("unknown heatmap %q; choose style or sku", dimName), common.ErrInvalidInput)
	}

	topReasons, _ := cmd.Flags().GetInt("top-reasons")
	topRows, _ := cmd.Flags().GetInt("top-rows")
	hm, err := a.client.Heatmap(cmd.Context(), dim, a.scope(brand, win), topReasons, topRows)
	if err != nil {
		return err
	}

	filename := export.ReturnsScope("heatmap_"+dimName, brand, a.settings.Workspace, a.settings.Portal, win.Start, win.End).Filename()
	spec := export.HeatmapSpec(filename, export.Heatmap{
		KeyColumn: dim.KeyColumn(),
		Reasons:   hm.Reasons(),
		Rows:      hm.Rows,
		Matrix:    hm.MatrixPct,
	})
	written, err := a.export(cmd.Context(), kindReturnsHeatmap, spec)
	if err != nil {
		return err
	}
	printExport(cmd.OutOrStdout(), written)
	return nil
}

// cohortRequest is the validated cohort flag set.
type cohortRequest struct {
	layout    string
	scope     string
	styleKey  string
	sellerSku string
	metric    string
}

func cohortFlags(cmd *cobra.Command) (cohortRequest, error) {
	f := cmd.Flags()
	var req cohortRequest
	req.layout, _ = f.GetString("cohort-view")
	req.scope, _ = f.GetString("scope")
	req.metric, _ = f.GetString("metric")
	styleKey, _ := f.GetString("style-key")
	sku, _ := f.GetString("sku")

	if req.layout != "overall" && req.layout != "same_month" {
		return req, common.NewUserError(fmt.Sprintf("unknown cohort view %q; choose overall or same_month", req.layout), common.ErrInvalidInput)
	}
	if !export.IsCohortMetric(req.metric) {
		msg := fmt.Sprintf("unknown metric %q; choose from %s", req.metric, strings.Join(export.CohortMetrics, ", "))
		return req, common.NewUserError(msg, common.ErrInvalidInput)
	}

	switch req.scope {
	case "overall":
	case "style":
		req.styleKey = strings.TrimSpace(styleKey)
		if req.styleKey == "" {
			return req, common.NewUserError("--scope style needs --style-key", common.ErrEmptyStyleKey)
		}
	case "sku":
		req.sellerSku = strings.TrimSpace(sku)
		if req.sellerSku == "" {
			return req, common.NewUserError("--scope sku needs --sku", common.ErrInvalidInput)
		}
	default:
		return req, common.NewUserError(fmt.Sprintf("unknown scope %q; choose overall, style or sku", req.scope), common.ErrInvalidInput)
	}
	return req, nil
}

// cohortScope names the cohort export, e.g. returns_cohort_ws1_ALL_2024-01-01_to_2024-03-31.csv.
func cohortScope(req cohortRequest, brand, workspace, portal string, w window) export.Scope {
	s := export.ReturnsScope(cohortView, brand, workspace, portal, w.Start, w.End)
	switch req.scope {
	case "style":
		return s.With("style" + req.styleKey)
	case "sku":
		return s.With("sku" + req.sellerSku)
	}
	return s
}

// cohortTable renders the cohort in the requested layout.
func cohortTable(req cohortRequest, rows []model.Row) ([]cli.Column, []model.Row) {
	if req.layout == "same_month" {
		cols := cli.KeyColumns(export.CohortSameMonthColumns)
		cols[1].Title = req.metric
		return cols, export.CohortSameMonth(rows, req.metric)
	}
	columns, pivot := export.CohortPivot(rows, req.metric)
	return cli.KeyColumns(columns), pivot
}

func runCohort(cmd *cobra.Command, a *app, brand string, win window) error {
	ctx := cmd.Context()
	req, err := cohortFlags(cmd)
	if err != nil {
		return err
	}

	rows, err := a.client.ReturnsCohort(ctx, api.CohortQuery{
		Scope:     a.scope(brand, win),
		StyleKey:  req.styleKey,
		SellerSku: req.sellerSku,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Returns cohort (%s, %s)", req.layout, req.metric)))
	if len(rows) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No cohort data"))
	} else {
		cols, table := cohortTable(req, rows)
		fmt.Fprintln(out, cli.RenderTable(cols, table))
	}

	if exp, _ := cmd.Flags().GetBool("export"); exp {
		spec := model.ExportSpec{
			Filename: cohortScope(req, brand, a.settings.Workspace, a.settings.Portal, win).Filename(),
			Columns:  export.ReturnsCohortColumns,
			Rows:     rows,
		}
		written, err := a.export(ctx, kindReturnsCohort, spec)
		if err != nil {
			return err
		}
		printExport(out, written)
	}
	return nil
}
