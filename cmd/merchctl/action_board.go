package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchctl/internal/api"
	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
	"github.com/Veraticus/merchctl/internal/view"
)

const kindActionBoard = "action_board"

var bucketTitles = map[string]string{
	"scale_now":     "Scale now",
	"profit_leak":   "Profit leak",
	"new_potential": "New potential",
}

func actionBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action-board",
		Short: "Show the scale-now, profit-leak and new-potential buckets",
		Long: `Fetch the action board for the current month and print each bucket
sorted independently.

With --export each shown bucket is written to its own CSV together with the
workspace, month and thresholds it was computed with.`,
		RunE: runActionBoard,
	}

	addActionBoardFlags(cmd)
	cmd.Flags().StringSlice("bucket", nil, "buckets to show (scale_now, profit_leak, new_potential; default: all)")
	cmd.Flags().String("sort", "", "sort column (default: orders)")
	cmd.Flags().String("dir", "", "sort direction, asc or desc")
	cmd.Flags().Bool("export", false, "export each shown bucket to CSV")

	return cmd
}

func addActionBoardFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("brand", "", "brand filter (default: all brands)")
	f.String("row-dim", "style", "row dimension (style, sku)")
	f.Int("top-n", 50, "rows per bucket")
	f.Int("min-orders", 10, "minimum orders for a row to qualify")
	f.Float64("high-return-pct", 30, "return percentage separating good from leaking rows")
	f.Int("new-days", 30, "days a style counts as new")
	f.String("new-ref", "today", "what new-days counts back from (today, month_start)")
}

// fetchActionBoard reads the action board flags and fetches the board.
func fetchActionBoard(ctx context.Context, a *app, cmd *cobra.Command) (*api.ActionBoard, error) {
	f := cmd.Flags()
	brand, _ := f.GetString("brand")
	rowDim, _ := f.GetString("row-dim")
	topN, _ := f.GetInt("top-n")
	minOrders, _ := f.GetInt("min-orders")
	highReturn, _ := f.GetFloat64("high-return-pct")
	newDays, _ := f.GetInt("new-days")
	newRef, _ := f.GetString("new-ref")

	return a.client.ActionBoard(ctx, api.ActionBoardQuery{
		Scope:         a.scope(brand, window{}),
		RowDim:        rowDim,
		TopN:          topN,
		MinOrders:     minOrders,
		HighReturnPct: highReturn,
		NewDays:       newDays,
		NewRef:        newRef,
	})
}

// actionBoardMetadata is appended to every exported action board row.
func actionBoardMetadata(cmd *cobra.Command, workspace, month string) export.Metadata {
	minOrders, _ := cmd.Flags().GetInt("min-orders")
	highReturn, _ := cmd.Flags().GetFloat64("high-return-pct")
	return export.Metadata{
		{Key: "workspace", Value: workspace},
		{Key: "month_start", Value: month},
		{Key: "min_orders", Value: minOrders},
		{Key: "high_return_pct", Value: highReturn},
	}
}

func selectedBuckets(names []string) ([]string, error) {
	if len(names) == 0 {
		return api.ActionBoardBuckets, nil
	}
	for _, n := range names {
		if !slices.Contains(api.ActionBoardBuckets, n) {
			msg := fmt.Sprintf("unknown bucket %q; choose from %s", n, strings.Join(api.ActionBoardBuckets, ", "))
			return nil, common.NewUserError(msg, common.ErrInvalidInput)
		}
	}
	return names, nil
}

func runActionBoard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()
	names, _ := f.GetStringSlice("bucket")
	buckets, err := selectedBuckets(names)
	if err != nil {
		return err
	}

	var query model.ViewQuery
	query.Sort = ranking.ActionBoard.DefaultSort
	sortKey, _ := f.GetString("sort")
	dir, _ := f.GetString("dir")
	if err := applySort(&query, ranking.ActionBoard, sortKey, dir); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	board, err := fetchActionBoard(ctx, a, cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	doExport, _ := f.GetBool("export")
	meta := actionBoardMetadata(cmd, a.settings.Workspace, board.MonthStart)
	brand, _ := f.GetString("brand")

	for _, name := range buckets {
		rows, _ := board.Bucket(name)
		res := view.Apply(rows, query, ranking.ActionBoard)
		printTable(out, fmt.Sprintf("%s (%s)", bucketTitles[name], board.MonthStart), ranking.ActionBoard, res, query.Sort)

		if !doExport {
			continue
		}
		filename := export.ActionBoardScope(a.settings.Workspace, a.settings.Portal, brand, name, board.MonthStart).
			WithFilters(query.Filters).Filename()
		written, err := a.export(ctx, kindActionBoard, export.ActionBoardSpec(filename, res.Filtered, meta))
		if err != nil {
			return err
		}
		printExport(out, written)
	}
	return nil
}
