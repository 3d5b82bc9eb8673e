package ranking

import (
	"github.com/Veraticus/merchctl/internal/model"
)

func numberColumn(key, title string) Column {
	return Column{Key: key, Title: title, Kind: model.KindNumber, DefaultDirection: model.Desc, Sortable: true}
}

func countColumn(key, title string) Column {
	return Column{Key: key, Title: title, Kind: model.KindCount, DefaultDirection: model.Desc, Sortable: true}
}

func textColumn(key, title string) Column {
	return Column{Key: key, Title: title, Kind: model.KindText, DefaultDirection: model.Desc, Sortable: true}
}

func displayColumn(key, title string) Column {
	return Column{Key: key, Title: title, Kind: model.KindText, DefaultDirection: model.Asc}
}

// AdRecommendations ranks ads recommendation rows. Sorting by tag breaks ties by
// 30 day orders (always descending) then style key; sorting by a metric breaks ties
// by tag rank, 30 day orders and style key so rows stay clustered by tag.
var AdRecommendations = Table{
	Name: "ad_recommendations",
	Columns: []Column{
		{Key: tagField, Title: "Tag", Kind: model.KindTag, DefaultDirection: model.Asc, Sortable: true},
		displayColumn(styleKeyField, "SKU"),
		displayColumn("style_total_qty", "Stock"),
		numberColumn(orders30d, "Orders30d"),
		displayColumn("momentum", "Momentum"),
		numberColumn("return_pct_30d", "Return%"),
		displayColumn("rto_share_30d", "RTO share"),
		numberColumn("impressions", "Impr"),
		numberColumn("clicks", "Clicks"),
		numberColumn("add_to_carts", "ATC"),
		numberColumn("purchases", "Purchases"),
		displayColumn("why", "Why"),
	},
	DefaultSort: model.SortSpec{Key: tagField, Direction: model.Asc},
	TieBreaks:   adTieBreaks,
}

func adTieBreaks(primary Column) []model.TieBreak {
	if primary.Kind == model.KindTag {
		return []model.TieBreak{
			model.NewTieBreak(orders30d, model.KindCount, model.Desc),
			model.NewTieBreak(styleKeyField, model.KindText, model.Asc),
		}
	}
	return []model.TieBreak{
		model.NewTieBreak(tagField, model.KindTag, model.Asc),
		model.NewTieBreak(orders30d, model.KindCount, model.Desc),
		model.NewTieBreak(styleKeyField, model.KindText, model.Asc),
	}
}

// ActionBoard ranks one action board bucket (scale now, profit leak, new potential).
// A null return_pct sorts after every present value in both directions.
var ActionBoard = Table{
	Name: "action_board",
	Columns: []Column{
		{
			Key:              styleKeyField,
			Title:            "SKU / Style",
			Fields:           []string{"seller_sku_code", styleKeyField},
			Kind:             model.KindText,
			DefaultDirection: model.Desc,
			Sortable:         true,
		},
		countColumn("orders", "Orders"),
		countColumn("returns", "Returns"),
		numberColumn("return_pct", "Return %"),
		displayColumn("last_order_date", "Last order"),
		textColumn("style_catalogued_date", "Catalogued"),
	},
	DefaultSort: model.SortSpec{Key: "orders", Direction: model.Desc},
}

// BrandGmvAsp ranks the brand GMV/ASP table.
var BrandGmvAsp = Table{
	Name: "brand_gmv_asp",
	Columns: []Column{
		textColumn("brand", "Brand"),
		countColumn("orders", "Orders"),
		countColumn("gmv", "GMV"),
		countColumn("asp", "ASP"),
		countColumn("share_pct", "Share %"),
	},
	DefaultSort: model.SortSpec{Key: "gmv", Direction: model.Desc},
}

// ReturnRate is returns_units / orders, or 0 when there are no orders.
func ReturnRate(r model.Row) float64 {
	orders := r.Count("orders")
	if orders <= 0 {
		return 0
	}
	return r.Count("returns_units") / orders
}

// TopReturns ranks the top return styles and SKUs lists.
var TopReturns = Table{
	Name: "top_returns",
	Columns: []Column{
		displayColumn("brand", "Brand"),
		displayColumn("product_name", "Product"),
		displayColumn(styleKeyField, "Style"),
		displayColumn("seller_sku_code", "SKU"),
		countColumn("orders", "Orders"),
		countColumn("returns_units", "Returns"),
		{
			Key:              "return_pct",
			Title:            "Return %",
			Value:            func(r model.Row) any { return ReturnRate(r) },
			Kind:             model.KindCount,
			DefaultDirection: model.Desc,
			Sortable:         true,
		},
		displayColumn("last_order_date", "Last order"),
	},
	DefaultSort: model.SortSpec{Key: "returns_units", Direction: model.Desc},
}

// AspOptimizer ranks ASP optimizer rows. Missing band metrics sort last.
var AspOptimizer = Table{
	Name: "asp_optimizer",
	Columns: []Column{
		displayColumn("key", "Key"),
		numberColumn("lift_units_pct", "Lift %"),
		numberColumn("best_volume_band.avg_units_per_day", "Best units/day"),
		numberColumn("best_net_band.avg_net_units_per_day", "Net units/day"),
		numberColumn("current_asp", "Current ASP"),
		numberColumn("best_volume_band.returns_pct", "Returns % (best)"),
		numberColumn("units", "Units"),
		numberColumn("days_active", "Days active"),
		{Key: "confidence", Title: "Confidence", Kind: model.KindConfidence, DefaultDirection: model.Desc, Sortable: true},
	},
	DefaultSort: model.SortSpec{Key: "lift_units_pct", Direction: model.Desc},
}

// Tables lists every preset by name.
var Tables = map[string]Table{
	AdRecommendations.Name: AdRecommendations,
	ActionBoard.Name:       ActionBoard,
	BrandGmvAsp.Name:       BrandGmvAsp,
	TopReturns.Name:        TopReturns,
	AspOptimizer.Name:      AspOptimizer,
}
