package model

import "strings"

// AllTags is the tag filter value that disables tag filtering.
const AllTags = "ALL"

// ExportSpec fully describes one CSV export.
type ExportSpec struct {
	Filename string
	Columns  []string
	Rows     []Row
}

// Filters are the row filters a table view can apply.
type Filters struct {
	// Tag keeps rows whose server tag equals it; "" and "ALL" keep everything.
	Tag string
	// Search is a case-insensitive substring matched against identifying fields.
	Search string
	// ZeroSalesOnly keeps rows with no orders in the trailing 30 days.
	ZeroSalesOnly bool
}

// Active reports whether any filter is set.
func (f Filters) Active() bool {
	return f.TagFilter() != "" || strings.TrimSpace(f.Search) != "" || f.ZeroSalesOnly
}

// TagFilter returns the effective tag filter ("" when disabled).
func (f Filters) TagFilter() string {
	if f.Tag == AllTags {
		return ""
	}
	return f.Tag
}

// Page limits how many rows a view shows. Limit 0 shows everything.
type Page struct {
	Limit int
}

// ViewQuery is the complete view state of one table: sort, filters and paging.
// It is passed explicitly to every operation that depends on it.
type ViewQuery struct {
	Sort    SortSpec
	Filters Filters
	Page    Page
}
