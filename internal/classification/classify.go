// Package classification overlays stock signals on top of the server's
// recommendation tag.
package classification

import (
	"sort"

	"github.com/Veraticus/merchctl/internal/model"
)

// Row fields read by the stock overlay.
const (
	FieldStockQty  = "style_total_qty"
	FieldAgeDays   = "age_days"
	FieldOrders30d = "orders_30d"
)

// DisplayTagField is where Annotate stores the overlay tag.
const DisplayTagField = "display_tag"

// Signals are the inputs the decision tree looks at, extracted from one row.
type Signals struct {
	Qty       *float64
	AgeDays   *float64
	Orders30d float64
	ServerTag model.Tag
}

// Extract reads the overlay signals from a row. Quantity and age count only when the
// row carries them as numbers; orders default to zero.
func Extract(row model.Row) Signals {
	s := Signals{
		Orders30d: row.Count(FieldOrders30d),
		ServerTag: row.Tag(),
	}
	if row.IsNumber(FieldStockQty) {
		qty, _ := row.Number(FieldStockQty)
		s.Qty = &qty
	}
	if row.IsNumber(FieldAgeDays) {
		age, _ := row.Number(FieldAgeDays)
		s.AgeDays = &age
	}
	return s
}

// Decide runs the decision tree on extracted signals. The first matching branch wins:
// replenish, then no stock, then low stock, then the server tag. Unknown stock always
// passes the server tag through.
func Decide(s Signals, cfg model.ThresholdConfig) model.Tag {
	noStock := s.Qty != nil && *s.Qty < cfg.ZeroStockQty
	lowStock := s.Qty != nil && *s.Qty < cfg.LowStockQty
	shouldReplenish := noStock &&
		s.AgeDays != nil &&
		*s.AgeDays <= cfg.NewAgeDays &&
		s.Orders30d > cfg.MinOrdersForReplenish

	switch {
	case shouldReplenish:
		return model.TagReplenish
	case noStock:
		return model.TagNoStock
	case lowStock:
		return model.TagLowStock
	case s.ServerTag != "":
		return s.ServerTag
	default:
		return model.TagNone
	}
}

// Classify returns the display tag for a row.
func Classify(row model.Row, cfg model.ThresholdConfig) model.Tag {
	return Decide(Extract(row), cfg)
}

// ClassifyAll returns the display tag of every row, in order.
func ClassifyAll(rows []model.Row, cfg model.ThresholdConfig) []model.Tag {
	out := make([]model.Tag, len(rows))
	for i, r := range rows {
		out[i] = Classify(r, cfg)
	}
	return out
}

// Annotate returns copies of rows with the display tag stored under field.
func Annotate(rows []model.Row, cfg model.ThresholdConfig, field string) []model.Row {
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		c := r.Clone()
		c[field] = string(Classify(r, cfg))
		out[i] = c
	}
	return out
}

// TagOptions returns the distinct non-empty server tags in rows, ordered by tag rank.
func TagOptions(rows []model.Row) []model.Tag {
	seen := make(map[model.Tag]bool)
	var tags []model.Tag
	for _, r := range rows {
		t := r.Tag()
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].Rank() < tags[j].Rank()
	})
	return tags
}
