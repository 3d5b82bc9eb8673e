package export

import (
	"github.com/Veraticus/merchctl/internal/model"
)

// Fixed column contracts. Exports never derive columns from row keys.
var (
	AdRecommendationColumns = []string{
		"tag", "display_tag", "style_key", "listing_id", "brand", "product_name",
		"style_total_qty", "age_days", "orders_30d", "momentum", "return_pct_30d",
		"rto_share_30d", "impressions", "clicks", "add_to_carts", "purchases", "why",
	}

	ActionBoardColumns = []string{
		"seller_sku_code", "style_key", "orders", "returns", "return_pct",
		"last_order_date", "style_catalogued_date",
	}

	BrandGmvAspColumns = []string{"brand", "orders", "gmv", "asp", "share_pct"}

	ReturnsTrendColumns = []string{"date", "returns_units", "return_units", "rto_units"}

	// Style-wise and SKU-wise returns split returns_units into customer returns and RTOs.
	StyleReturnsColumns = []string{
		"brand", "product_name", "style_key", "orders", "returns_units",
		"return_units", "rto_units", "return_pct", "last_order_date",
	}

	SkuReturnsColumns = []string{
		"brand", "product_name", "style_key", "seller_sku_code", "orders", "returns_units",
		"return_units", "rto_units", "return_pct", "last_order_date",
	}

	// The top return tables share the returns layouts.
	TopReturnStyleColumns = StyleReturnsColumns
	TopReturnSkuColumns   = SkuReturnsColumns

	ZeroSalesColumns = []string{
		"brand", "product_name", "style_key", "seller_sku_code", "live_date", "days_live", "orders",
	}

	AspOptimizerColumns = []string{
		"key", "brand", "current_asp", "lift_units_pct",
		"best_volume_band.avg_units_per_day", "best_net_band.avg_net_units_per_day",
		"best_volume_band.returns_pct", "units", "days_active", "confidence",
	}

	FailureColumns = []string{"style_key", "error"}
)

// Field is one named value appended to every exported row.
type Field struct {
	Key   string
	Value any
}

// Metadata is an ordered list of fields describing the export context.
type Metadata []Field

// Keys returns the field names in order.
func (m Metadata) Keys() []string {
	keys := make([]string, len(m))
	for i, f := range m {
		keys[i] = f.Key
	}
	return keys
}

// ActionBoardSpec builds an action board bucket export. Orders and returns default to
// zero; metadata columns follow the fixed columns in the given order.
func ActionBoardSpec(filename string, rows []model.Row, meta Metadata) model.ExportSpec {
	columns := append(append([]string{}, ActionBoardColumns...), meta.Keys()...)

	out := make([]model.Row, len(rows))
	for i, r := range rows {
		row := model.Row{
			"seller_sku_code":       r.Text("seller_sku_code"),
			"style_key":             r.Text("style_key"),
			"orders":                r.Count("orders"),
			"returns":               r.Count("returns"),
			"return_pct":            r.Text("return_pct"),
			"last_order_date":       r.Text("last_order_date"),
			"style_catalogued_date": r.Text("style_catalogued_date"),
		}
		for _, f := range meta {
			row[f.Key] = f.Value
		}
		out[i] = row
	}

	return model.ExportSpec{Filename: filename, Columns: columns, Rows: out}
}

// Heatmap is a style or SKU by return-reason matrix of percentages.
type Heatmap struct {
	// KeyColumn is "style_key" or "seller_sku_code".
	KeyColumn string
	Reasons   []string
	Rows      []model.Row
	// Matrix[i][j] is the share of row i's returns with reason j; nil cells are blank.
	Matrix [][]*float64
}

// HeatmapSpec flattens a heatmap into one CSV row per key with a column per reason.
func HeatmapSpec(filename string, hm Heatmap) model.ExportSpec {
	columns := append([]string{hm.KeyColumn, "brand", "orders", "returns_units"}, hm.Reasons...)

	out := make([]model.Row, len(hm.Rows))
	for i, r := range hm.Rows {
		row := model.Row{
			hm.KeyColumn:    r.Text(hm.KeyColumn),
			"brand":         r.Text("brand"),
			"orders":        r.Count("orders"),
			"returns_units": r.Count("returns_units"),
		}
		for j, reason := range hm.Reasons {
			row[reason] = ""
			if i < len(hm.Matrix) && j < len(hm.Matrix[i]) && hm.Matrix[i][j] != nil {
				row[reason] = *hm.Matrix[i][j]
			}
		}
		out[i] = row
	}

	return model.ExportSpec{Filename: filename, Columns: columns, Rows: out}
}

// FailureSpec builds the manifest of styles a batch export could not fetch.
func FailureSpec(filename string, failures []Failure) model.ExportSpec {
	rows := make([]model.Row, len(failures))
	for i, f := range failures {
		rows[i] = model.Row{"style_key": f.StyleKey, "error": f.Err}
	}
	return model.ExportSpec{Filename: filename, Columns: FailureColumns, Rows: rows}
}

// Failure is one entry of a failure manifest.
type Failure struct {
	StyleKey string
	Err      string
}
