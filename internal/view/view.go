// Package view applies a ViewQuery (filters, sort and page limit) to a set of rows.
package view

import (
	"strings"

	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
)

// LimitOptions are the page sizes offered by table views. Zero shows every row.
var LimitOptions = []int{50, 100, 200, 500, 0}

// DefaultLimit is the page size used when none is chosen.
const DefaultLimit = 100

// searchFields are matched, case-insensitively, by the free-text filter.
var searchFields = [][]string{
	{"seller_sku_code", "style_key"},
	{"product_name"},
	{"brand"},
	{"listing_id"},
}

// Result is the outcome of applying a query.
type Result struct {
	// Rows are the visible rows, ranked and limited.
	Rows []model.Row
	// Filtered is every row that passed the filters, ranked.
	Filtered []model.Row
	// Total is the number of input rows.
	Total int
}

// Visible returns the number of rows shown.
func (r Result) Visible() int {
	return len(r.Rows)
}

// Apply filters rows, ranks the survivors under table's policy and applies the page
// limit. The input slice and rows are not modified.
func Apply(rows []model.Row, q model.ViewQuery, table ranking.Table) Result {
	filtered := Filter(rows, q.Filters)
	ranked := table.Rank(filtered, q.Sort)
	return Result{
		Rows:     Limit(ranked, q.Page.Limit),
		Filtered: ranked,
		Total:    len(rows),
	}
}

// Filter returns the rows matching every active filter, in input order.
func Filter(rows []model.Row, f model.Filters) []model.Row {
	tag := f.TagFilter()
	needle := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if tag != "" && string(r.Tag()) != tag {
			continue
		}
		if f.ZeroSalesOnly && !hasZeroSales(r) {
			continue
		}
		if needle != "" && !matches(r, needle) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Limit returns at most n rows; n <= 0 returns all of them.
func Limit(rows []model.Row, n int) []model.Row {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// hasZeroSales treats a missing orders_30d as zero; unparseable values are not zero.
func hasZeroSales(r model.Row) bool {
	if r.IsNull("orders_30d") {
		return true
	}
	n, ok := r.Number("orders_30d")
	return ok && n == 0
}

func matches(r model.Row, needle string) bool {
	for _, fields := range searchFields {
		v := model.ToText(r.Coalesce(fields...))
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}
