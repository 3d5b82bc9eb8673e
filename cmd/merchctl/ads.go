package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchctl/internal/api"
	"github.com/Veraticus/merchctl/internal/classification"
	"github.com/Veraticus/merchctl/internal/cli"
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
	"github.com/Veraticus/merchctl/internal/view"
)

const kindAds = "ad_recommendations"

func adsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ads",
		Short: "Rank ads recommendations with the stock overlay",
		Long: `Fetch per-style ads recommendations, overlay the stock signals
(replenish, no stock, low stock) on the server tag, then filter, sort and
print them.

With --export the filtered and sorted rows (all of them, not only the
printed page) are written to a CSV named after the workspace, portal,
brand and date window.`,
		RunE: runAds,
	}

	addAdsFlags(cmd)
	cmd.Flags().Bool("export", false, "export the filtered rows to CSV")
	addViewFlags(cmd)

	return cmd
}

func addAdsFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("brand", "", "brand filter (default: all brands)")
	f.Int("min-orders", 2, "minimum orders for the server's recommendations")
	f.Float64("high-return-pct", 0.35, "return share that marks a style as high-return (0.35 = 35%)")
	f.Bool("in-stock-only", false, "only styles with stock in the latest snapshot")
	addWindowFlags(cmd)
}

// adsData fetches ads recommendations and annotates them with the stock overlay.
type adsData struct {
	resp  *api.AdsResponse
	rows  []model.Row
	brand string
	win   window
}

func fetchAds(ctx context.Context, a *app, cmd *cobra.Command) (*adsData, error) {
	win, err := windowFlags(cmd)
	if err != nil {
		return nil, err
	}
	brand, _ := cmd.Flags().GetString("brand")
	minOrders, _ := cmd.Flags().GetInt("min-orders")
	highReturn, _ := cmd.Flags().GetFloat64("high-return-pct")
	inStock, _ := cmd.Flags().GetBool("in-stock-only")

	resp, err := a.client.AdsRecommendations(ctx, api.AdsQuery{
		Scope:         a.scope(brand, win),
		NewAgeDays:    int(a.settings.Thresholds.NewAgeDays),
		MinOrders:     minOrders,
		HighReturnPct: highReturn,
		InStockOnly:   inStock,
	})
	if err != nil {
		return nil, err
	}

	return &adsData{
		resp:  resp,
		rows:  classification.Annotate(resp.Rows, a.settings.Thresholds, classification.DisplayTagField),
		brand: brand,
		win:   win,
	}, nil
}

// adsExport builds the ads export for rows under the fixed ads column contract. The
// filters that produced rows are part of the file name.
func adsExport(a *app, data *adsData, filters model.Filters, rows []model.Row) model.ExportSpec {
	scope := export.AdRecommendationsScope(a.settings.Workspace, a.settings.Portal, data.brand, data.win.Start, data.win.End).
		WithFilters(filters)
	return model.ExportSpec{
		Filename: scope.Filename(),
		Columns:  export.AdRecommendationColumns,
		Rows:     rows,
	}
}

func runAds(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	query, err := viewQuery(cmd, ranking.AdRecommendations)
	if err != nil {
		return err
	}

	data, err := fetchAds(ctx, a, cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	res := view.Apply(data.rows, query, ranking.AdRecommendations)
	overlay := cli.Column{Key: classification.DisplayTagField, Title: "Action", Tag: true}
	printTable(out, "Ads recommendations", ranking.AdRecommendations, res, query.Sort, overlay)
	if at := data.resp.Params.LatestSnapshotAt; at != "" {
		fmt.Fprintln(out, cli.FormatInfo("Latest snapshot: "+at))
	}
	if at := data.resp.Params.LatestStockSnapshotAt; at != "" {
		fmt.Fprintln(out, cli.FormatInfo("Latest stock snapshot: "+at))
	}

	if exp, _ := cmd.Flags().GetBool("export"); exp {
		written, err := a.export(ctx, kindAds, adsExport(a, data, query.Filters, res.Filtered))
		if err != nil {
			return err
		}
		printExport(out, written)
	}
	return nil
}
