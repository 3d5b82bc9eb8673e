package forecast

import (
	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/model"
)

var leadingColumns = []string{
	"workspace_slug", "style_key", "mode", "start", "end", "hist_days",
	"forecast_days", "sales_days", "spike_multiplier", "lead_time_days",
	"target_cover_days", "safety_stock_pct", "exclude_rto",
}

var metricColumns = []string{
	"orders", "share_orders_pct", "ratio_per_100", "stock_qty", "days_cover", "risk",
	"required_qty", "gap_qty", "style_orders_gross", "style_orders_net",
	"style_stock_total", "style_forecast_units", "style_required_on_hand", "style_gap_total",
}

// SelectedColumns is the single style export: the bucket column is named after the mode.
func SelectedColumns(mode Mode) []string {
	cols := make([]string, 0, len(leadingColumns)+1+len(metricColumns))
	cols = append(cols, leadingColumns...)
	cols = append(cols, mode.BucketField())
	return append(cols, metricColumns...)
}

// DetailedColumns is the multi-style export: bucket type and value columns, and the
// style's return percentage last.
var DetailedColumns = func() []string {
	cols := make([]string, 0, len(leadingColumns)+2+len(metricColumns)+1)
	cols = append(cols, leadingColumns...)
	cols = append(cols, "bucket_type", "bucket_value")
	cols = append(cols, metricColumns...)
	return append(cols, "style_return_pct")
}()

func (f Forecast) baseRow() model.Row {
	row := model.Row{
		"workspace_slug":    f.WorkspaceSlug,
		"style_key":         f.StyleKey,
		"mode":              string(f.Mode),
		"start":             f.Window.Start,
		"end":               f.Window.End,
		"hist_days":         "",
		"forecast_days":     f.Inputs.ForecastDays,
		"sales_days":        f.Inputs.SalesDays,
		"spike_multiplier":  f.Inputs.SpikeMultiplier,
		"lead_time_days":    f.Inputs.LeadTimeDays,
		"target_cover_days": f.Inputs.TargetCoverDays,
		"safety_stock_pct":  f.Inputs.SafetyStockPct,
		"exclude_rto":       f.Inputs.ExcludeRTO,
	}
	if f.Window.Days != nil {
		row["hist_days"] = *f.Window.Days
	}
	return row
}

func (f Forecast) bucketRow(b Bucket) model.Row {
	row := f.baseRow()
	row["orders"] = b.Orders
	row["share_orders_pct"] = FormatNum(b.ShareOrders)
	row["ratio_per_100"] = RatioPer100(b.ShareOrders)
	row["stock_qty"] = b.StockQty
	row["days_cover"] = ""
	if b.DaysCover != nil {
		row["days_cover"] = FormatNum(*b.DaysCover)
	}
	row["risk"] = b.Risk
	row["required_qty"] = FormatNum(b.RequiredQty)
	row["gap_qty"] = FormatNum(b.GapQty)
	row["style_orders_gross"] = FormatInt(value(f.Totals.OrdersGross))
	row["style_orders_net"] = FormatInt(value(f.Totals.OrdersNet))
	row["style_stock_total"] = FormatInt(value(f.Totals.StockQty))
	row["style_forecast_units"] = FormatNum(value(f.Totals.ForecastUnits))
	row["style_required_on_hand"] = FormatNum(value(f.Totals.RequiredOnHand))
	row["style_gap_total"] = FormatNum(value(f.Totals.GapQty))
	return row
}

// SelectedRows renders one export row per bucket.
func (f Forecast) SelectedRows() []model.Row {
	field := f.Mode.BucketField()
	rows := make([]model.Row, len(f.Buckets))
	for i, b := range f.Buckets {
		row := f.bucketRow(b)
		row[field] = b.Label
		rows[i] = row
	}
	return rows
}

// DetailedRows renders one export row per bucket, tagged with the bucket type and
// the style's return percentage from the top styles list.
func (f Forecast) DetailedRows(styleReturnPct float64) []model.Row {
	rows := make([]model.Row, len(f.Buckets))
	for i, b := range f.Buckets {
		row := f.bucketRow(b)
		row["bucket_type"] = f.Mode.BucketField()
		row["bucket_value"] = b.Label
		row["style_return_pct"] = FormatNum(styleReturnPct)
		rows[i] = row
	}
	return rows
}

// SelectedSpec is the export of one style's forecast.
func (f Forecast) SelectedSpec() model.ExportSpec {
	scope := export.ForecastSelectedScope(f.WorkspaceSlug, f.StyleKey, string(f.Mode), f.Window.Start, f.Window.End)
	return model.ExportSpec{
		Filename: scope.Filename(),
		Columns:  SelectedColumns(f.Mode),
		Rows:     f.SelectedRows(),
	}
}

// Summary returns the headline numbers shown above a forecast table.
func (f Forecast) Summary() model.Row {
	return model.Row{
		"orders_net":       f.Totals.NetOrders(),
		"stock_qty":        value(f.Totals.StockQty),
		"forecast_units":   value(f.Totals.ForecastUnits),
		"required_on_hand": value(f.Totals.RequiredOnHand),
		"gap_qty":          value(f.Totals.GapQty),
		"snapshot":         f.LatestStockSnapshotAt,
	}
}
