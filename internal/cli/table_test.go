package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
)

func TestSortIndicator(t *testing.T) {
	sort := model.SortSpec{Key: "orders", Direction: model.Desc}

	tests := []struct {
		name     string
		key      string
		want     string
		sortable bool
	}{
		{name: "active desc", key: "orders", sortable: true, want: SortDesc},
		{name: "inactive sortable", key: "returns", sortable: true, want: SortInactive},
		{name: "display only", key: "last_order_date", sortable: false, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SortIndicator(sort, tt.key, tt.sortable))
		})
	}

	assert.Equal(t, SortAsc, SortIndicator(model.SortSpec{Key: "orders", Direction: model.Asc}, "orders", true))
}

func TestTableColumns(t *testing.T) {
	cols := TableColumns(ranking.ActionBoard, model.SortSpec{})

	require.Len(t, cols, len(ranking.ActionBoard.Columns))
	assert.Equal(t, "Orders "+SortDesc, cols[1].Title)
	assert.Equal(t, "Returns "+SortInactive, cols[2].Title)
	assert.Equal(t, "Last order", cols[4].Title)

	// The style column reads seller_sku_code first.
	row := model.Row{"seller_sku_code": "SKU-1", "style_key": "ST-1"}
	assert.Equal(t, "SKU-1", cols[0].Render(row))

	adCols := TableColumns(ranking.AdRecommendations, model.SortSpec{})
	assert.True(t, adCols[0].Tag)
	assert.False(t, adCols[1].Tag)
}

func TestCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: nil, want: ""},
		{in: 12.0, want: "12"},
		{in: 0.256, want: "0.26"},
		{in: true, want: "yes"},
		{in: "SCALE", want: "SCALE"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Cell(tt.in))
		})
	}
}

func TestRenderTable(t *testing.T) {
	rows := []model.Row{
		{"style_key": "ST-1", "orders": 10.0},
		{"style_key": "ST-2", "orders": nil},
	}

	out := RenderTable(KeyColumns([]string{"style_key", "orders"}), rows)

	assert.Contains(t, out, "style_key")
	assert.Contains(t, out, "ST-1")
	assert.Contains(t, out, "10")
	assert.Contains(t, out, "ST-2")
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 4)
}

func TestCounts(t *testing.T) {
	assert.Contains(t, Counts(5, 20, 20), "Showing 5 of 20 rows")
	assert.Contains(t, Counts(5, 8, 20), "(20 before filters)")
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 3, "Fetching forecasts")

	p.Set(1)
	p.Describe("ST-2")
	p.Set(3)
	p.Finish()

	assert.Contains(t, buf.String(), "3/3")
}
