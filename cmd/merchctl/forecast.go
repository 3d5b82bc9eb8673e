package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/merchctl/internal/cli"
	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/config"
	"github.com/Veraticus/merchctl/internal/engine"
	"github.com/Veraticus/merchctl/internal/forecast"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/storage"
)

const (
	kindForecastSelected = "forecast_selected"
	kindForecastDetailed = "forecast_detailed"
)

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast <style_key>",
		Short: "Forecast demand and stock gaps for a style",
		Long: `Forecast one style's demand by size or by SKU over the forecast horizon
and show the stock required to cover it.

Forecast inputs (forecast days, sales days, spike multiplier, lead time,
target cover, safety stock and whether RTOs are excluded) come from the
"forecast" section of the config file.`,
		Args: cobra.ExactArgs(1),
		RunE: runForecast,
	}

	cmd.Flags().String("mode", "size", "forecast bucket (size, sku)")
	cmd.Flags().Bool("export", false, "export the forecast to CSV")
	addWindowFlags(cmd)

	cmd.AddCommand(forecastExportAllCmd())
	return cmd
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	modeFlag, _ := cmd.Flags().GetString("mode")
	mode, ok := forecast.ParseMode(modeFlag)
	if !ok {
		return common.NewUserError(fmt.Sprintf("unknown mode %q; choose size or sku", modeFlag), common.ErrInvalidInput)
	}
	styleKey := strings.TrimSpace(args[0])
	if styleKey == "" {
		return common.NewUserError("style key is required", common.ErrEmptyStyleKey)
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

	resp, err := a.client.Forecast(ctx, mode, forecast.Request{
		Workspace: a.settings.Workspace,
		StyleKey:  styleKey,
		Start:     win.Start,
		End:       win.End,
		Inputs:    a.settings.Forecast,
	})
	if err != nil {
		return err
	}
	f := forecast.Unify(mode, resp, a.settings.Forecast)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.RenderBox(fmt.Sprintf("%s forecast: %s", mode.Label(), f.StyleKey), forecastSummary(f)))
	if f.IsEffectivelyNoSize() {
		fmt.Fprintln(out, cli.FormatWarning("This style has no size breakdown; try --mode sku"))
	}

	cols := cli.KeyColumns([]string{mode.BucketField(), "orders", "share_orders_pct", "stock_qty", "days_cover", "risk", "required_qty", "gap_qty"})
	cols[0].Title = mode.Label()
	fmt.Fprintln(out, cli.RenderTable(cols, f.SelectedRows()))

	if exp, _ := cmd.Flags().GetBool("export"); exp {
		written, err := a.export(ctx, kindForecastSelected, f.SelectedSpec())
		if err != nil {
			return err
		}
		printExport(out, written)
	}
	return nil
}

func forecastSummary(f forecast.Forecast) string {
	s := f.Summary()
	lines := []string{
		fmt.Sprintf("Window:           %s to %s", f.Window.Start, f.Window.End),
		fmt.Sprintf("Orders (net):     %s", forecast.FormatInt(s.Count("orders_net"))),
		fmt.Sprintf("Stock:            %s", forecast.FormatInt(s.Count("stock_qty"))),
		fmt.Sprintf("Forecast units:   %s", forecast.FormatNum(s.Count("forecast_units"))),
		fmt.Sprintf("Required on hand: %s", forecast.FormatNum(s.Count("required_on_hand"))),
		fmt.Sprintf("Gap:              %s", forecast.FormatNum(s.Count("gap_qty"))),
	}
	if snap := s.Text("snapshot"); snap != "" {
		lines = append(lines, "Stock snapshot:   "+snap)
	}
	return strings.Join(lines, "\n")
}

func forecastExportAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-all",
		Short: "Export detailed forecasts for every top style",
		Long: `Fetch the month's top styles, forecast each one (by size, falling back to
SKUs for styles without sizes) with a bounded number of concurrent requests,
and write every bucket of every style to one CSV.

Styles whose forecasts fail are skipped and listed in a <name>_failures.csv
manifest next to the export. Interrupting stops queued styles; rows already
fetched are still written.`,
		Args: cobra.NoArgs,
		RunE: runForecastExportAll,
	}

	cmd.Flags().String("month", "", "month of the top styles list, YYYY-MM-DD (default: this month)")
	cmd.Flags().Int("top-n", 50, "number of top styles")
	cmd.Flags().String("search", "", "only styles whose key contains this text")
	cmd.Flags().Int("workers", engine.DefaultWorkers, "concurrent forecast requests")
	_ = viper.BindPFlag(config.KeyWorkers, cmd.Flags().Lookup("workers"))
	addWindowFlags(cmd)

	return cmd
}

// filterStyles keeps rows whose style key contains search, case-insensitively.
func filterStyles(rows []model.Row, search string) []model.Row {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return rows
	}
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Text("style_key")), needle) {
			out = append(out, r)
		}
	}
	return out
}

func runForecastExportAll(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()

	win, err := windowFlags(cmd)
	if err != nil {
		return err
	}
	month, _ := f.GetString("month")
	if month == "" {
		month = monthStart(time.Now())
	}
	topN, _ := f.GetInt("top-n")
	search, _ := f.GetString("search")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	top, err := a.client.StyleMonthly(ctx, a.scope("", win), month, topN)
	if err != nil {
		return err
	}
	styles := filterStyles(top.Rows, search)
	if len(styles) == 0 {
		return common.NewUserError("no top styles to export", common.ErrNoRows)
	}

	out := cmd.OutOrStdout()
	progress := cli.NewProgress(cmd.ErrOrStderr(), len(styles), "Fetching forecasts")
	exporter := engine.NewDetailedExporter(a.client, a.settings.EngineOptions(win.Start, win.End)).
		WithLogger(slog.Default())
	exporter.OnProgress(func(done, _ int, styleKey string) {
		progress.Describe(styleKey)
		progress.Set(done)
	})

	result, runErr := exporter.Run(ctx, styles)
	progress.Finish()
	if result == nil {
		return runErr
	}

	// Whatever was gathered is written even after an interrupt.
	saveCtx := context.WithoutCancel(ctx)
	saved, err := engine.Save(saveCtx, a.writer, result)
	if err != nil {
		return err
	}

	run := storage.NewRun(kindForecastDetailed, a.settings.Workspace, result.Spec.Filename, saved.Export)
	run.Failures = result.Failures
	run.FailuresPath = saved.FailuresPath
	run.Duration = result.Summary.ProcessingTime
	a.record(saveCtx, run)
	common.LogInfo("Detailed forecast export finished", common.Fields{
		"styles":    result.Summary.Styles,
		"succeeded": result.Summary.Succeeded,
		"failed":    result.Summary.Failed,
		"rows":      result.Summary.Rows,
		"path":      saved.Export.Path,
	})

	fmt.Fprintln(out, cli.RenderBox("Detailed forecast export", exportAllSummary(result.Summary)))
	printExport(out, saved.Export)
	if saved.FailuresPath != "" {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d styles failed, see %s", result.Summary.Failed, saved.FailuresPath)))
	}

	if runErr != nil || interrupts.WasInterrupted() {
		return common.NewUserError("export interrupted, partial results were saved", runErr)
	}
	return nil
}

func exportAllSummary(s engine.Summary) string {
	return strings.Join([]string{
		fmt.Sprintf("Styles:        %d", s.Styles),
		fmt.Sprintf("Succeeded:     %d", s.Succeeded),
		fmt.Sprintf("SKU fallbacks: %d", s.FellBack),
		fmt.Sprintf("Failed:        %d", s.Failed),
		fmt.Sprintf("Rows:          %d", s.Rows),
		fmt.Sprintf("Duration:      %s", s.ProcessingTime.Round(time.Millisecond)),
	}, "\n")
}
