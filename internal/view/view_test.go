package view

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/ranking"
)

func fixture() []model.Row {
	return []model.Row{
		{"style_key": "S1", "tag": "WATCH", "orders_30d": 0.0, "brand": "Roadster", "product_name": "Blue Tee"},
		{"style_key": "S2", "seller_sku_code": "SKU-RED", "tag": "SCALE", "orders_30d": 12.0, "brand": "HRX"},
		{"style_key": "S3", "tag": "SCALE", "orders_30d": 4.0, "listing_id": "L-778"},
		{"style_key": "S4", "tag": "PUSH (Zero-Sale)", "brand": "roadster"},
		{"style_key": "S5", "tag": "WATCH", "orders_30d": "n/a"},
	}
}

func styleKeys(rows []model.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Text("style_key")
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		filters model.Filters
		want    []string
	}{
		{name: "no filters", filters: model.Filters{}, want: []string{"S1", "S2", "S3", "S4", "S5"}},
		{name: "ALL tag keeps everything", filters: model.Filters{Tag: model.AllTags}, want: []string{"S1", "S2", "S3", "S4", "S5"}},
		{name: "tag", filters: model.Filters{Tag: "SCALE"}, want: []string{"S2", "S3"}},
		{name: "zero sales treats missing as zero", filters: model.Filters{ZeroSalesOnly: true}, want: []string{"S1", "S4"}},
		{name: "search brand case-insensitive", filters: model.Filters{Search: "  ROAD "}, want: []string{"S1", "S4"}},
		{name: "search prefers seller sku over style key", filters: model.Filters{Search: "s2"}, want: []string{}},
		{name: "search seller sku", filters: model.Filters{Search: "sku-red"}, want: []string{"S2"}},
		{name: "search listing id", filters: model.Filters{Search: "778"}, want: []string{"S3"}},
		{name: "search product name", filters: model.Filters{Search: "tee"}, want: []string{"S1"}},
		{name: "filters combine", filters: model.Filters{Tag: "WATCH", ZeroSalesOnly: true}, want: []string{"S1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, styleKeys(Filter(fixture(), tt.filters)))
		})
	}
}

func TestApply_CountsAndLimit(t *testing.T) {
	q := model.ViewQuery{
		Sort:    model.SortSpec{Key: "orders_30d", Direction: model.Desc},
		Filters: model.Filters{Tag: "SCALE"},
		Page:    model.Page{Limit: 1},
	}

	res := Apply(fixture(), q, ranking.AdRecommendations)

	assert.Equal(t, 5, res.Total)
	assert.Len(t, res.Filtered, 2)
	assert.Equal(t, 1, res.Visible())
	assert.Equal(t, []string{"S2"}, styleKeys(res.Rows))
}

func TestApply_ZeroLimitShowsAll(t *testing.T) {
	res := Apply(fixture(), model.ViewQuery{}, ranking.AdRecommendations)

	require.Equal(t, 5, res.Visible())
	// Default sort is tag ascending: SCALE by orders, then PUSH (Zero-Sale), then WATCH.
	want := []string{"S2", "S3", "S4", "S1", "S5"}
	if diff := cmp.Diff(want, styleKeys(res.Rows)); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	rows := fixture()
	before := styleKeys(rows)

	_ = Apply(rows, model.ViewQuery{Sort: model.SortSpec{Key: "orders_30d", Direction: model.Desc}}, ranking.AdRecommendations)

	assert.Equal(t, before, styleKeys(rows))
}

func TestLimit(t *testing.T) {
	rows := fixture()
	assert.Len(t, Limit(rows, 0), 5)
	assert.Len(t, Limit(rows, -1), 5)
	assert.Len(t, Limit(rows, 3), 3)
	assert.Len(t, Limit(rows, 50), 5)
}
