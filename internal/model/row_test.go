package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_Number(t *testing.T) {
	row := Row{
		"float":   12.5,
		"int":     7,
		"numstr":  " 42 ",
		"empty":   "",
		"word":    "abc",
		"null":    nil,
		"nan":     math.NaN(),
		"inf":     math.Inf(1),
		"yes":     true,
		"jsonnum": json.Number("3.25"),
	}

	tests := []struct {
		key    string
		want   float64
		wantOK bool
	}{
		{key: "float", want: 12.5, wantOK: true},
		{key: "int", want: 7, wantOK: true},
		{key: "numstr", want: 42, wantOK: true},
		{key: "empty", want: 0, wantOK: true},
		{key: "word", wantOK: false},
		{key: "null", wantOK: false},
		{key: "nan", wantOK: false},
		{key: "inf", wantOK: false},
		{key: "yes", want: 1, wantOK: true},
		{key: "jsonnum", want: 3.25, wantOK: true},
		{key: "absent", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := row.Number(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestRow_CountDefaultsToZero(t *testing.T) {
	row := Row{"orders_30d": nil, "clicks": "n/a", "orders": 4.0}

	assert.Equal(t, 0.0, row.Count("orders_30d"))
	assert.Equal(t, 0.0, row.Count("clicks"))
	assert.Equal(t, 0.0, row.Count("missing"))
	assert.Equal(t, 4.0, row.Count("orders"))
}

func TestRow_Text(t *testing.T) {
	row := Row{
		"s":      "hello",
		"n":      42.0,
		"frac":   0.35,
		"b":      false,
		"null":   nil,
		"nested": map[string]any{"a": 1.0},
	}

	assert.Equal(t, "hello", row.Text("s"))
	assert.Equal(t, "42", row.Text("n"))
	assert.Equal(t, "0.35", row.Text("frac"))
	assert.Equal(t, "false", row.Text("b"))
	assert.Equal(t, "", row.Text("null"))
	assert.Equal(t, "", row.Text("absent"))
	assert.Equal(t, `{"a":1}`, row.Text("nested"))
}

func TestRow_DottedPath(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{
		"key": "ST-1",
		"best_volume_band": {"avg_units_per_day": 3.5, "returns_pct": null}
	}`), &row))

	got, ok := row.Number("best_volume_band.avg_units_per_day")
	require.True(t, ok)
	assert.Equal(t, 3.5, got)

	assert.True(t, row.IsNull("best_volume_band.returns_pct"))
	assert.True(t, row.IsNull("best_net_band.avg_net_units_per_day"))
	assert.Equal(t, "ST-1", row.Text("key"))
}

func TestRow_Coalesce(t *testing.T) {
	row := Row{"seller_sku_code": nil, "style_key": "ST-9"}
	assert.Equal(t, "ST-9", row.Coalesce("seller_sku_code", "style_key"))

	row["seller_sku_code"] = ""
	assert.Equal(t, "", row.Coalesce("seller_sku_code", "style_key"), "empty string is not null")

	assert.Nil(t, Row{}.Coalesce("a", "b"))
}

func TestRow_IsNumber(t *testing.T) {
	row := Row{"qty": 2.0, "str": "2", "null": nil}

	assert.True(t, row.IsNumber("qty"))
	assert.False(t, row.IsNumber("str"))
	assert.False(t, row.IsNumber("null"))
	assert.False(t, row.IsNumber("absent"))
}

func TestRow_CloneIsShallowCopy(t *testing.T) {
	row := Row{"a": 1.0}
	clone := row.Clone()
	clone["a"] = 2.0

	assert.Equal(t, 1.0, row["a"])
}

func TestTag_Rank(t *testing.T) {
	tests := []struct {
		tag  Tag
		want int
	}{
		{TagStopHighReturns, 0},
		{TagScale, 1},
		{TagTrendingPush, 2},
		{TagPushNew, 3},
		{TagPushZeroSale, 4},
		{TagWatch, 5},
		{TagReplenish, UnknownTagRank},
		{Tag(""), UnknownTagRank},
		{Tag("scale"), UnknownTagRank},
	}

	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tag.Rank())
		})
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)
	assert.Equal(t, Asc, d.Flip())
	assert.Equal(t, -1, d.Sign())

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestThresholdConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.LowStockQty = 1
	assert.Error(t, bad.Validate())

	bad = DefaultThresholds()
	bad.NewAgeDays = -1
	assert.Error(t, bad.Validate())
}

func TestFilters_TagFilter(t *testing.T) {
	assert.Equal(t, "", Filters{Tag: AllTags}.TagFilter())
	assert.Equal(t, "SCALE", Filters{Tag: "SCALE"}.TagFilter())
	assert.False(t, Filters{Tag: AllTags}.Active())
	assert.True(t, Filters{ZeroSalesOnly: true}.Active())
}
