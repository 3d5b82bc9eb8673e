package ranking

import (
	"github.com/Veraticus/merchctl/internal/model"
)

const (
	tagField      = "tag"
	styleKeyField = "style_key"
	orders30d     = "orders_30d"
)

// Column describes one sortable (or display-only) column of a table.
type Column struct {
	// Key identifies the column in a SortSpec.
	Key string
	// Title is the header label.
	Title string
	// Fields is the value source; more than one field means first non-null wins.
	// Empty means Fields = [Key].
	Fields []string
	// Value, when set, derives the value instead of reading Fields.
	Value func(model.Row) any
	// Kind selects the comparison.
	Kind model.Kind
	// DefaultDirection is applied when the user switches to this column.
	DefaultDirection model.Direction
	// Sortable marks columns whose header toggles the sort.
	Sortable bool
}

func (c Column) value() valueFunc {
	if c.Value != nil {
		return c.Value
	}
	if len(c.Fields) == 0 {
		return fieldValue([]string{c.Key})
	}
	return fieldValue(c.Fields)
}

// ValueOf returns the value the column shows and sorts for r.
func (c Column) ValueOf(r model.Row) any {
	return c.value()(r)
}

// Comparator returns the column's comparator in the given direction.
func (c Column) Comparator(dir model.Direction) Comparator {
	return compareValues(c.value(), c.Kind, dir)
}

// Table is a per-view ranking policy: its columns, its default sort and the fixed
// tie-break chain applied after the primary column.
type Table struct {
	Name        string
	Columns     []Column
	DefaultSort model.SortSpec
	// TieBreaks picks the chain for a primary column; nil means no tie-breaks.
	TieBreaks func(primary Column) []model.TieBreak
}

// Column looks up a column by key.
func (t Table) Column(key string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// SortableKeys lists the keys whose headers toggle sorting.
func (t Table) SortableKeys() []string {
	keys := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Sortable {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// Rank returns a stably sorted copy of rows under this table's policy.
// Unknown keys compare the raw field as text with no tie-breaks.
func (t Table) Rank(rows []model.Row, sort model.SortSpec) []model.Row {
	if sort.Key == "" {
		sort = t.DefaultSort
	}
	if sort.Direction == "" {
		sort.Direction = model.Asc
	}

	col, ok := t.Column(sort.Key)
	if !ok {
		return RankBy(rows, model.NewTieBreak(sort.Key, model.KindText, sort.Direction))
	}

	cmps := []Comparator{col.Comparator(sort.Direction)}
	if t.TieBreaks != nil {
		for _, tb := range t.TieBreaks(col) {
			cmps = append(cmps, Compare(tb))
		}
	}
	return Sorted(rows, Chain(cmps...))
}

// Toggle applies a header click. Clicking the active column flips its direction;
// clicking another sortable column switches to it in that column's default direction.
func (t Table) Toggle(current model.SortSpec, key string) model.SortSpec {
	if current.Key == key {
		return model.SortSpec{Key: key, Direction: current.Direction.Flip()}
	}
	col, ok := t.Column(key)
	if !ok || !col.Sortable {
		return current
	}
	return model.SortSpec{Key: key, Direction: col.DefaultDirection}
}
