package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchctl/internal/api"
	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
	"github.com/Veraticus/merchctl/internal/tui"
)

func browseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse a table interactively",
		Long: `Open a table full screen. Move between columns with h and l, sort with s,
filter by tag with t, search with /, page with n and export the filtered
rows with e. Press ? for all keys.`,
	}

	cmd.AddCommand(
		browseAdsCmd(),
		browseActionBoardCmd(),
		browseReturnsCmd(),
		browseBrandsCmd(),
	)
	return cmd
}

// exporter adapts app.export to the browser's export action. scope names the
// unfiltered export; the browser's active filters are appended to it.
func (a *app) exporter(kind string, scope export.Scope, columns []string) tui.ExportFunc {
	return a.exporterFunc(kind, func(f model.Filters, rows []model.Row) model.ExportSpec {
		return model.ExportSpec{Filename: scope.WithFilters(f).Filename(), Columns: columns, Rows: rows}
	})
}

func (a *app) exporterFunc(kind string, spec func(f model.Filters, rows []model.Row) model.ExportSpec) tui.ExportFunc {
	return func(ctx context.Context, f model.Filters, rows []model.Row) (export.Result, error) {
		return a.export(ctx, kind, spec(f, rows))
	}
}

func browseAdsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ads",
		Short: "Browse ads recommendations with the stock overlay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := fetchAds(ctx, a, cmd)
			if err != nil {
				return err
			}
			return tui.Run(ctx, ranking.AdRecommendations, data.resp.Rows,
				tui.WithTitle("Ads recommendations"),
				tui.WithThresholds(a.settings.Thresholds),
				tui.WithExport(a.exporterFunc(kindAds, func(f model.Filters, rows []model.Row) model.ExportSpec {
					return adsExport(a, data, f, rows)
				})),
			)
		},
	}
	addAdsFlags(cmd)
	return cmd
}

func browseActionBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action-board",
		Short: "Browse one action board bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			bucket, _ := cmd.Flags().GetString("bucket")
			if _, err := selectedBuckets([]string{bucket}); err != nil {
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
			rows, _ := board.Bucket(bucket)
			meta := actionBoardMetadata(cmd, a.settings.Workspace, board.MonthStart)
			brand, _ := cmd.Flags().GetString("brand")
			scope := export.ActionBoardScope(a.settings.Workspace, a.settings.Portal, brand, bucket, board.MonthStart)

			return tui.Run(ctx, ranking.ActionBoard, rows,
				tui.WithTitle(fmt.Sprintf("%s (%s)", bucketTitles[bucket], board.MonthStart)),
				tui.WithExport(a.exporterFunc(kindActionBoard, func(f model.Filters, rows []model.Row) model.ExportSpec {
					return export.ActionBoardSpec(scope.WithFilters(f).Filename(), rows, meta)
				})),
			)
		},
	}
	addActionBoardFlags(cmd)
	cmd.Flags().String("bucket", "scale_now", "bucket to browse (scale_now, profit_leak, new_potential)")
	return cmd
}

func browseReturnsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "returns",
		Short: "Browse a returns table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f := cmd.Flags()
			name, _ := f.GetString("view")
			rv, ok := returnsViews[name]
			if !ok {
				msg := fmt.Sprintf("unknown view %q; choose from %s", name, strings.Join(returnsViewNames, ", "))
				return common.NewUserError(msg, common.ErrInvalidInput)
			}
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

			scope := rv.scope(brand, a.settings.Workspace, a.settings.Portal, win)
			return tui.Run(ctx, ranking.TopReturns, rows,
				tui.WithTitle(rv.title),
				tui.WithExport(a.exporter(kindReturns, scope, rv.columns)),
			)
		},
	}
	f := cmd.Flags()
	f.String("view", "top-styles", "table to browse ("+strings.Join(returnsViewNames, ", ")+")")
	f.String("brand", "", "brand filter (default: all brands)")
	f.Int("top-n", 50, "rows to fetch")
	f.Int("min-orders", 10, "minimum orders for a row to qualify")
	f.String("return-mode", "overall", "return attribution (overall, same_month)")
	addWindowFlags(cmd)
	return cmd
}

func browseBrandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brands",
		Short: "Browse GMV, orders and ASP by brand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			win, err := windowFlags(cmd)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := a.client.BrandGmvAsp(ctx, a.scope("", win))
			if err != nil {
				return err
			}

			scope := export.WindowScope(kindBrandGmvAsp, a.settings.Workspace, a.settings.Portal, win.Start, win.End)
			return tui.Run(ctx, ranking.BrandGmvAsp, data.Rows,
				tui.WithTitle("Brand GMV and ASP"),
				tui.WithExport(a.exporter(kindBrandGmvAsp, scope, export.BrandGmvAspColumns)),
			)
		},
	}
	addWindowFlags(cmd)
	return cmd
}
