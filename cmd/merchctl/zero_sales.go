package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/merchctl/internal/api"
	"github.com/Veraticus/merchctl/internal/cli"
	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/model"
)

const kindZeroSales = "zero_sales"

func zeroSalesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zero-sales",
		Short: "List styles that went live and never sold",
		Long: `List styles with no orders since they went live, ordered by how long
they have been live.`,
		RunE: runZeroSales,
	}

	cmd.Flags().String("brand", "", "brand filter (default: all brands)")
	cmd.Flags().Int("min-days", 7, "minimum days live")
	cmd.Flags().Int("top-n", 100, "rows to fetch")
	cmd.Flags().String("dir", "desc", "days-live order, asc or desc")
	cmd.Flags().Bool("export", false, "export the rows to CSV")

	return cmd
}

func runZeroSales(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()

	dirFlag, _ := f.GetString("dir")
	dir, err := model.ParseDirection(dirFlag)
	if err != nil {
		return common.NewUserError("invalid --dir", err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	brand, _ := f.GetString("brand")
	minDays, _ := f.GetInt("min-days")
	topN, _ := f.GetInt("top-n")

	rows, err := a.client.ZeroSalesSinceLive(ctx, api.ZeroSalesQuery{
		Workspace:   a.settings.Workspace,
		Brand:       brand,
		MinDaysLive: minDays,
		TopN:        topN,
		SortDir:     dir,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle("Zero sales since live"))
	if len(rows) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("No rows match"))
	} else {
		fmt.Fprintln(out, cli.RenderTable(cli.KeyColumns(export.ZeroSalesColumns), rows))
		fmt.Fprintln(out, cli.Counts(len(rows), len(rows), len(rows)))
	}

	if exp, _ := f.GetBool("export"); exp {
		spec := model.ExportSpec{
			Filename: export.ZeroSalesScope(a.settings.Workspace, brand, minDays, topN, string(dir)).Filename(),
			Columns:  export.ZeroSalesColumns,
			Rows:     rows,
		}
		written, err := a.export(ctx, kindZeroSales, spec)
		if err != nil {
			return err
		}
		printExport(out, written)
	}
	return nil
}
