package ranking

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchctl/internal/model"
)

func keys(rows []model.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Text("style_key")
	}
	return out
}

func TestRank_MissingValuesSortLastInBothDirections(t *testing.T) {
	rows := []model.Row{
		{"style_key": "nil", "clicks": nil},
		{"style_key": "ten", "clicks": 10.0},
		{"style_key": "nan", "clicks": "n/a"},
		{"style_key": "two", "clicks": 2.0},
		{"style_key": "absent"},
		{"style_key": "five", "clicks": "5"},
	}

	for _, dir := range []model.Direction{model.Asc, model.Desc} {
		t.Run(string(dir), func(t *testing.T) {
			got := Rank(rows, model.SortSpec{Key: "clicks", Direction: dir}, nil)
			present := keys(got[:3])
			missing := keys(got[3:])

			if dir == model.Asc {
				assert.Equal(t, []string{"two", "five", "ten"}, present)
			} else {
				assert.Equal(t, []string{"ten", "five", "two"}, present)
			}
			// Missing rows keep their input order.
			assert.Equal(t, []string{"nil", "nan", "absent"}, missing)
		})
	}
}

func TestRank_DirectionSymmetry(t *testing.T) {
	rows := []model.Row{
		{"style_key": "a", "impressions": 30.0},
		{"style_key": "b", "impressions": 10.0},
		{"style_key": "c", "impressions": 50.0},
		{"style_key": "d", "impressions": 20.0},
		{"style_key": "e", "impressions": 40.0},
	}

	asc := keys(Rank(rows, model.SortSpec{Key: "impressions", Direction: model.Asc}, nil))
	desc := keys(Rank(rows, model.SortSpec{Key: "impressions", Direction: model.Desc}, nil))

	reversed := make([]string, len(desc))
	for i, k := range desc {
		reversed[len(desc)-1-i] = k
	}
	assert.Equal(t, asc, reversed)
}

func TestRank_TagRankDominatesOrders(t *testing.T) {
	a := model.Row{"style_key": "A", "tag": "SCALE", "orders_30d": 1.0}
	b := model.Row{"style_key": "B", "tag": "SCALE", "orders_30d": 5.0}
	c := model.Row{"style_key": "C", "tag": "WATCH", "orders_30d": 100.0}

	got := AdRecommendations.Rank([]model.Row{a, b, c}, model.SortSpec{Key: "tag", Direction: model.Asc})
	assert.Equal(t, []string{"B", "A", "C"}, keys(got))

	// Orders tie-break stays descending when the tag order is reversed.
	got = AdRecommendations.Rank([]model.Row{a, b, c}, model.SortSpec{Key: "tag", Direction: model.Desc})
	assert.Equal(t, []string{"C", "B", "A"}, keys(got))
}

func TestRank_GenericTagPrimaryMatchesTable(t *testing.T) {
	rows := []model.Row{
		{"style_key": "A", "tag": "SCALE", "orders_30d": 1.0},
		{"style_key": "B", "tag": "SCALE", "orders_30d": 5.0},
		{"style_key": "C", "tag": "WATCH", "orders_30d": 100.0},
		{"style_key": "D", "tag": "mystery"},
		{"style_key": "E", "tag": "STOP (High Returns)"},
	}
	spec := model.SortSpec{Key: "tag", Direction: model.Asc}

	generic := Rank(rows, spec, adTieBreaks(Column{Kind: model.KindTag}))
	table := AdRecommendations.Rank(rows, spec)

	if diff := cmp.Diff(keys(table), keys(generic)); diff != "" {
		t.Errorf("generic rank differs from table (-table +generic):\n%s", diff)
	}
	assert.Equal(t, []string{"E", "B", "A", "C", "D"}, keys(table))
}

func TestRank_NumericSortTieBreakChain(t *testing.T) {
	rows := []model.Row{
		{"style_key": "z", "tag": "WATCH", "orders_30d": 9.0, "clicks": 5.0},
		{"style_key": "y", "tag": "SCALE", "orders_30d": 1.0, "clicks": 5.0},
		{"style_key": "x", "tag": "SCALE", "orders_30d": 3.0, "clicks": 5.0},
		{"style_key": "w", "tag": "SCALE", "orders_30d": 3.0, "clicks": 5.0},
		{"style_key": "v", "tag": "WATCH", "orders_30d": 0.0, "clicks": 7.0},
	}

	got := AdRecommendations.Rank(rows, model.SortSpec{Key: "clicks", Direction: model.Desc})

	// 7 first, then the 5s: SCALE before WATCH, more orders first, then style key.
	assert.Equal(t, []string{"v", "w", "x", "y", "z"}, keys(got))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	rows := []model.Row{
		{"style_key": "b", "orders_30d": 1.0},
		{"style_key": "a", "orders_30d": 2.0},
	}
	before := keys(rows)

	_ = AdRecommendations.Rank(rows, model.SortSpec{Key: "orders_30d", Direction: model.Desc})

	assert.Equal(t, before, keys(rows))
}

func TestRank_Idempotent(t *testing.T) {
	rows := []model.Row{
		{"style_key": "s1", "tag": "WATCH", "orders_30d": 4.0, "purchases": nil},
		{"style_key": "s2", "tag": "SCALE", "orders_30d": 4.0, "purchases": 3.0},
		{"style_key": "s3", "tag": "SCALE", "orders_30d": 9.0, "purchases": 3.0},
		{"style_key": "s4", "tag": "PUSH (Zero-Sale)", "orders_30d": 0.0, "purchases": 1.0},
	}

	for _, key := range AdRecommendations.SortableKeys() {
		for _, dir := range []model.Direction{model.Asc, model.Desc} {
			spec := model.SortSpec{Key: key, Direction: dir}
			once := AdRecommendations.Rank(rows, spec)
			twice := AdRecommendations.Rank(once, spec)
			require.Equal(t, keys(once), keys(twice), "spec %s", spec)
		}
	}
}

func TestRank_StableForFullTies(t *testing.T) {
	rows := []model.Row{
		{"style_key": "first", "brand": "X"},
		{"style_key": "second", "brand": "X"},
		{"style_key": "third", "brand": "X"},
	}

	got := BrandGmvAsp.Rank(rows, model.SortSpec{Key: "gmv", Direction: model.Desc})
	assert.Equal(t, []string{"first", "second", "third"}, keys(got))
}

func TestActionBoard_NullReturnPctAlwaysLast(t *testing.T) {
	rows := []model.Row{
		{"style_key": "null", "return_pct": nil},
		{"style_key": "low", "return_pct": 0.1},
		{"style_key": "high", "return_pct": 0.4},
	}

	asc := ActionBoard.Rank(rows, model.SortSpec{Key: "return_pct", Direction: model.Asc})
	desc := ActionBoard.Rank(rows, model.SortSpec{Key: "return_pct", Direction: model.Desc})

	assert.Equal(t, []string{"low", "high", "null"}, keys(asc))
	assert.Equal(t, []string{"high", "low", "null"}, keys(desc))
}

func TestActionBoard_StyleKeyPrefersSellerSku(t *testing.T) {
	rows := []model.Row{
		{"style_key": "A-style", "seller_sku_code": "z-sku"},
		{"style_key": "B-style"},
		{"style_key": "C-style", "seller_sku_code": "a-sku"},
	}

	got := ActionBoard.Rank(rows, model.SortSpec{Key: "style_key", Direction: model.Asc})
	// "B-style" < "a-sku" < "z-sku" byte-wise: uppercase sorts first.
	assert.Equal(t, []string{"B-style", "C-style", "A-style"}, keys(got))
}

func TestTopReturns_DerivedReturnRate(t *testing.T) {
	rows := []model.Row{
		{"style_key": "half", "orders": 10.0, "returns_units": 5.0},
		{"style_key": "none", "orders": 0.0, "returns_units": 3.0},
		{"style_key": "tenth", "orders": 10.0, "returns_units": 1.0},
	}

	got := TopReturns.Rank(rows, model.SortSpec{Key: "return_pct", Direction: model.Desc})
	assert.Equal(t, []string{"half", "tenth", "none"}, keys(got))
}

func TestAspOptimizer_NestedAndConfidence(t *testing.T) {
	rows := []model.Row{
		{"style_key": "med", "confidence": "Medium", "best_volume_band": map[string]any{"avg_units_per_day": 2.0}},
		{"style_key": "none", "confidence": nil},
		{"style_key": "high", "confidence": "HIGH", "best_volume_band": map[string]any{"avg_units_per_day": 9.0}},
	}

	byConf := AspOptimizer.Rank(rows, model.SortSpec{Key: "confidence", Direction: model.Desc})
	assert.Equal(t, []string{"high", "med", "none"}, keys(byConf))

	byBand := AspOptimizer.Rank(rows, model.SortSpec{Key: "best_volume_band.avg_units_per_day", Direction: model.Asc})
	assert.Equal(t, []string{"med", "high", "none"}, keys(byBand))
}

func TestTable_UnknownKeyComparesText(t *testing.T) {
	rows := []model.Row{{"style_key": "b"}, {"style_key": "a"}}
	got := BrandGmvAsp.Rank(rows, model.SortSpec{Key: "style_key", Direction: model.Asc})
	assert.Equal(t, []string{"a", "b"}, keys(got))
}

func TestTable_Toggle(t *testing.T) {
	tests := []struct {
		name    string
		table   Table
		current model.SortSpec
		click   string
		want    model.SortSpec
	}{
		{
			name:    "same column flips",
			table:   AdRecommendations,
			current: model.SortSpec{Key: "tag", Direction: model.Asc},
			click:   "tag",
			want:    model.SortSpec{Key: "tag", Direction: model.Desc},
		},
		{
			name:    "numeric column defaults to descending",
			table:   AdRecommendations,
			current: model.SortSpec{Key: "tag", Direction: model.Asc},
			click:   "impressions",
			want:    model.SortSpec{Key: "impressions", Direction: model.Desc},
		},
		{
			name:    "tag column defaults to ascending",
			table:   AdRecommendations,
			current: model.SortSpec{Key: "clicks", Direction: model.Asc},
			click:   "tag",
			want:    model.SortSpec{Key: "tag", Direction: model.Asc},
		},
		{
			name:    "display-only column is ignored",
			table:   AdRecommendations,
			current: model.SortSpec{Key: "clicks", Direction: model.Asc},
			click:   "why",
			want:    model.SortSpec{Key: "clicks", Direction: model.Asc},
		},
		{
			name:    "action board switches to descending",
			table:   ActionBoard,
			current: model.SortSpec{Key: "orders", Direction: model.Asc},
			click:   "style_key",
			want:    model.SortSpec{Key: "style_key", Direction: model.Desc},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.table.Toggle(tt.current, tt.click))
		})
	}
}

func TestTables_Registry(t *testing.T) {
	for name, table := range Tables {
		assert.Equal(t, name, table.Name)
		_, ok := table.Column(table.DefaultSort.Key)
		assert.True(t, ok, "%s default sort key %q must be a column", name, table.DefaultSort.Key)
	}
}

func TestRank_TextKeys(t *testing.T) {
	rows := []model.Row{
		{"style_key": "c", "brand": "Zeta", "style_catalogued_date": "2024-03-01"},
		{"style_key": "a", "brand": "Alpha", "style_catalogued_date": "2023-12-15"},
		{"style_key": "n", "brand": nil},
		{"style_key": "b", "brand": "Mid", "style_catalogued_date": "2024-01-20"},
		{"style_key": "l", "brand": "alpha"},
	}

	tests := []struct {
		name string
		sort model.SortSpec
		want []string
	}{
		{
			name: "brand ascending is case-sensitive",
			sort: model.SortSpec{Key: "brand", Direction: model.Asc},
			want: []string{"a", "b", "c", "l", "n"},
		},
		{
			name: "brand descending keeps missing last",
			sort: model.SortSpec{Key: "brand", Direction: model.Desc},
			want: []string{"l", "c", "b", "a", "n"},
		},
		{
			name: "dates sort as text",
			sort: model.SortSpec{Key: "style_catalogued_date", Direction: model.Asc},
			want: []string{"a", "b", "c", "n", "l"},
		},
		{
			name: "style key",
			sort: model.SortSpec{Key: "style_key", Direction: model.Desc},
			want: []string{"n", "l", "c", "b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keys(Rank(rows, tt.sort, nil)))
		})
	}
}

func TestFieldKind(t *testing.T) {
	tests := []struct {
		name string
		rows []model.Row
		want model.Kind
	}{
		{name: "json numbers", rows: []model.Row{{"k": "n/a"}, {"k": 3.0}}, want: model.KindNumber},
		{name: "numeric strings", rows: []model.Row{{"k": "3"}, {"k": "10"}, {"k": nil}}, want: model.KindNumber},
		{name: "text", rows: []model.Row{{"k": "10"}, {"k": "HRX"}}, want: model.KindText},
		{name: "all missing", rows: []model.Row{{"k": nil}, {}}, want: model.KindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FieldKind(tt.rows, "k"))
		})
	}
}
