package cli

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/merchctl/internal/forecast"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
)

// Column is one rendered table column.
type Column struct {
	Value func(model.Row) any
	Key   string
	Title string
	Tag   bool
}

// Sort indicators shown in table headers.
const (
	SortAsc      = "↑"
	SortDesc     = "↓"
	SortInactive = "↕"
)

// SortIndicator returns the header arrow for key under sort. Non-sortable columns
// get none.
func SortIndicator(sort model.SortSpec, key string, sortable bool) string {
	switch {
	case sort.Key == key && sort.Direction == model.Desc:
		return SortDesc
	case sort.Key == key:
		return SortAsc
	case sortable:
		return SortInactive
	default:
		return ""
	}
}

// TableColumns builds display columns from a ranking table, marking the active sort.
func TableColumns(t ranking.Table, sort model.SortSpec) []Column {
	if sort.Key == "" {
		sort = t.DefaultSort
	}
	cols := make([]Column, len(t.Columns))
	for i, c := range t.Columns {
		title := c.Title
		if arrow := SortIndicator(sort, c.Key, c.Sortable); arrow != "" {
			title += " " + arrow
		}
		cols[i] = Column{
			Key:   c.Key,
			Title: title,
			Value: c.ValueOf,
			Tag:   c.Kind == model.KindTag,
		}
	}
	return cols
}

// KeyColumns builds display columns titled by their field names.
func KeyColumns(keys []string) []Column {
	cols := make([]Column, len(keys))
	for i, k := range keys {
		cols[i] = Column{Key: k, Title: k}
	}
	return cols
}

// Cell renders a value for display: numbers with at most two decimals, nil blank.
func Cell(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return ""
		}
		return forecast.FormatNum(n)
	case bool:
		if n {
			return "yes"
		}
		return "no"
	default:
		return model.ToText(v)
	}
}

// Render renders the column's cell for r.
func (c Column) Render(r model.Row) string {
	if c.Value != nil {
		return Cell(c.Value(r))
	}
	v, _ := r.Get(c.Key)
	return Cell(v)
}

// RenderTable renders rows as a bordered table.
func RenderTable(cols []Column, rows []model.Row) string {
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Title
	}

	body := make([][]string, len(rows))
	for i, r := range rows {
		line := make([]string, len(cols))
		for j, c := range cols {
			line[j] = c.Render(r)
		}
		body[i] = line
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		Rows(body...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			if col < len(cols) && cols[col].Tag && row >= 0 && row < len(body) {
				return TagStyle(model.Tag(body[row][col]))
			}
			return TableCellStyle
		})

	return t.Render()
}

// Counts renders the "showing N of M" line under a table.
func Counts(visible, filtered, total int) string {
	if filtered == total {
		return SubtleStyle.Render(fmt.Sprintf("Showing %d of %d rows", visible, total))
	}
	return SubtleStyle.Render(fmt.Sprintf("Showing %d of %d rows (%d before filters)", visible, filtered, total))
}
