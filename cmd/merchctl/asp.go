package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/merchctl/internal/api"
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
	"github.com/Veraticus/merchctl/internal/view"
)

const kindAspOptimizer = "asp_optimizer"

func aspCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asp",
		Short: "Find the price bands that sell best",
		Long: `Run the ASP optimizer: for each brand, style or SKU compare selling price
bands and report the band with the best volume and the best net volume,
with the lift over the current ASP and a confidence grade.`,
		RunE: runAsp,
	}

	cmd.Flags().String("level", "style", "row level (brand, style, sku)")
	cmd.Flags().String("key", "", "only this brand, style or SKU")
	cmd.Flags().String("brand", "", "brand filter (default: all brands)")
	cmd.Flags().Int("bucket-size", 50, "price band width")
	cmd.Flags().Int("top-n", 50, "rows to fetch")
	cmd.Flags().Int("min-days", 7, "minimum active days in a band")
	cmd.Flags().Int("min-units", 10, "minimum units in a band")
	cmd.Flags().Bool("export", false, "export the filtered rows to CSV")
	addWindowFlags(cmd)
	addViewFlags(cmd)
	_ = cmd.Flags().MarkHidden("tag")
	_ = cmd.Flags().MarkHidden("zero-sales")

	return cmd
}

func runAsp(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()

	win, err := windowFlags(cmd)
	if err != nil {
		return err
	}
	query, err := viewQuery(cmd, ranking.AspOptimizer)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	level, _ := f.GetString("level")
	key, _ := f.GetString("key")
	brand, _ := f.GetString("brand")
	bucketSize, _ := f.GetInt("bucket-size")
	topN, _ := f.GetInt("top-n")
	minDays, _ := f.GetInt("min-days")
	minUnits, _ := f.GetInt("min-units")

	rows, err := a.client.AspOptimizer(ctx, api.AspQuery{
		Scope:      a.scope(brand, win),
		Level:      level,
		Key:        key,
		BucketSize: bucketSize,
		TopN:       topN,
		MinDays:    minDays,
		MinUnits:   minUnits,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	res := view.Apply(rows, query, ranking.AspOptimizer)
	printTable(out, "ASP optimizer ("+level+")", ranking.AspOptimizer, res, query.Sort)

	if exp, _ := f.GetBool("export"); exp {
		spec := model.ExportSpec{
			Filename: aspScope(a, level, brand, key, win).WithFilters(query.Filters).Filename(),
			Columns:  export.AspOptimizerColumns,
			Rows:     res.Filtered,
		}
		written, err := a.export(ctx, kindAspOptimizer, spec)
		if err != nil {
			return err
		}
		printExport(out, written)
	}
	return nil
}

// aspScope names an ASP optimizer export, e.g. asp_optimizer_style_ws1_ALL_brandHRX_2024-01-01_to_2024-01-31.csv.
func aspScope(a *app, level, brand, key string, w window) export.Scope {
	s := export.WindowScope(kindAspOptimizer+"_"+level, a.settings.Workspace, a.settings.Portal, w.Start, w.End)
	if brand != "" {
		s = s.With("brand" + brand)
	}
	if key != "" {
		s = s.With("key" + key)
	}
	return s
}
