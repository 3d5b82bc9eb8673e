package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchctl/internal/cli"
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/forecast"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
	"github.com/Veraticus/merchctl/internal/view"
)

const kindBrandGmvAsp = "brand_gmv_asp"

func brandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brands",
		Short: "Show GMV, orders and ASP by brand",
		Long: `Print each brand's GMV, orders, average selling price and share of GMV
over the window. With --list only the workspace's brand names are printed.`,
		RunE: runBrands,
	}

	cmd.Flags().Bool("list", false, "only list brand names")
	cmd.Flags().Bool("export", false, "export the table to CSV")
	addWindowFlags(cmd)
	addViewFlags(cmd)
	_ = cmd.Flags().MarkHidden("tag")
	_ = cmd.Flags().MarkHidden("zero-sales")

	return cmd
}

func runBrands(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	win, err := windowFlags(cmd)
	if err != nil {
		return err
	}
	query, err := viewQuery(cmd, ranking.BrandGmvAsp)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if list, _ := cmd.Flags().GetBool("list"); list {
		brands, err := a.client.Brands(ctx, a.scope("", win))
		if err != nil {
			return err
		}
		for _, b := range brands {
			fmt.Fprintln(out, b)
		}
		return nil
	}

	data, err := a.client.BrandGmvAsp(ctx, a.scope("", win))
	if err != nil {
		return err
	}

	res := view.Apply(data.Rows, query, ranking.BrandGmvAsp)
	printTable(out, "Brand GMV and ASP", ranking.BrandGmvAsp, res, query.Sort)
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Total GMV %s across %s orders",
		forecast.FormatNum(data.TotalGmv), forecast.FormatInt(data.TotalOrders))))

	if exp, _ := cmd.Flags().GetBool("export"); exp {
		spec := model.ExportSpec{
			Filename: export.WindowScope(kindBrandGmvAsp, a.settings.Workspace, a.settings.Portal, win.Start, win.End).
				WithFilters(query.Filters).Filename(),
			Columns:  export.BrandGmvAspColumns,
			Rows:     res.Filtered,
		}
		written, err := a.export(ctx, kindBrandGmvAsp, spec)
		if err != nil {
			return err
		}
		printExport(out, written)
	}
	return nil
}
