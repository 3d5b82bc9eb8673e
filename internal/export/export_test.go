package export

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/model"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "42", want: "42"},
		{in: "", want: ""},
		{in: "plain text", want: "plain text"},
		{in: ` leading space`, want: ` leading space`},
		{in: `A,B"C`, want: `"A,B""C"`},
		{in: "line1\r\nline2", want: "\"line1\nline2\""},
		{in: "old\rmac", want: "\"old\nmac\""},
		{in: `"quoted"`, want: `"""quoted"""`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.in))
		})
	}
}

func TestEncode(t *testing.T) {
	rows := []model.Row{
		{"style_key": "S1", "orders": 42.0, "note": `A,B"C`},
		{"style_key": "S2", "note": "x\r\ny"},
	}

	got := string(Bytes([]string{"style_key", "orders", "note"}, rows))

	want := BOM + "style_key,orders,note\n" +
		"S1,42,\"A,B\"\"C\"\n" +
		"S2,,\"x\ny\""
	assert.Equal(t, want, got)
}

func TestEncode_HeaderOnly(t *testing.T) {
	assert.Equal(t, BOM+"a,b", string(Bytes([]string{"a", "b"}, nil)))
}

func TestWriter_Export(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	spec := model.ExportSpec{
		Filename: "brand_gmv_asp_ws_2024-01-01_to_2024-01-31.csv",
		Columns:  BrandGmvAspColumns,
		Rows:     []model.Row{{"brand": "HRX", "orders": 3.0, "gmv": 1500.5}},
	}

	res, err := w.Export(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, spec.Filename), res.Path)
	assert.Equal(t, 1, res.Rows)
	assert.False(t, res.Skipped)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, BOM+"brand,orders,gmv,asp,share_pct\nHRX,3,1500.5,,", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriter_EmptyRowsIsNoop(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, WithXLSX(true))

	res, err := w.Export(context.Background(), model.ExportSpec{Filename: "x.csv", Columns: []string{"a"}})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, res.Path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriter_RejectsPathFilenames(t *testing.T) {
	w := NewWriter(t.TempDir())
	rows := []model.Row{{"a": 1.0}}

	for _, name := range []string{"", "../escape.csv", "sub/dir.csv"} {
		_, err := w.Export(context.Background(), model.ExportSpec{Filename: name, Columns: []string{"a"}, Rows: rows})
		assert.ErrorIs(t, err, common.ErrInvalidFilename, name)
	}
}

func TestWriter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWriter(t.TempDir()).Export(ctx, model.ExportSpec{Filename: "a.csv", Rows: []model.Row{{}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriter_XLSXTwin(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, WithXLSX(true))

	res, err := w.Export(context.Background(), model.ExportSpec{
		Filename: "top.csv",
		Columns:  []string{"style_key", "orders", "note"},
		Rows: []model.Row{
			{"style_key": "S1", "orders": 7.0, "note": "a,b"},
			{"style_key": "S2"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "top.xlsx"), res.XLSXPath)

	f, err := excelize.OpenFile(res.XLSXPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"style_key", "orders", "note"}, rows[0])
	assert.Equal(t, []string{"S1", "7", "a,b"}, rows[1])
	assert.Equal(t, "S2", rows[2][0])
}

func TestActionBoardSpec(t *testing.T) {
	rows := []model.Row{
		{"style_key": "S1", "seller_sku_code": "SKU1", "orders": 10.0, "return_pct": 0.25},
		{"style_key": "S2", "returns": 2.0},
	}
	meta := Metadata{
		{Key: "workspace", Value: "ws1"},
		{Key: "month_start", Value: "2024-01-01"},
		{Key: "min_orders", Value: 5},
		{Key: "high_return_pct", Value: 0.35},
	}

	spec := ActionBoardSpec("action_board_scale_now_2024-01-01.csv", rows, meta)

	assert.Equal(t, append(append([]string{}, ActionBoardColumns...), "workspace", "month_start", "min_orders", "high_return_pct"), spec.Columns)

	lines := strings.Split(strings.TrimPrefix(string(Bytes(spec.Columns, spec.Rows)), BOM), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "SKU1,S1,10,0,0.25,,,ws1,2024-01-01,5,0.35", lines[1])
	assert.Equal(t, ",S2,0,2,,,,ws1,2024-01-01,5,0.35", lines[2])
}

func TestReturnsColumns(t *testing.T) {
	row := model.Row{
		"brand": "Acme", "product_name": "Kurta", "style_key": "ST-1", "seller_sku_code": "SKU-1-M",
		"orders": 10.0, "returns_units": 4.0, "return_units": 3.0, "rto_units": 1.0,
		"return_pct": 40.0, "last_order_date": "2024-01-30",
	}

	got := string(Bytes(SkuReturnsColumns, []model.Row{row}))
	assert.Equal(t, BOM+"brand,product_name,style_key,seller_sku_code,orders,returns_units,return_units,rto_units,return_pct,last_order_date\n"+
		"Acme,Kurta,ST-1,SKU-1-M,10,4,3,1,40,2024-01-30", got)

	assert.NotContains(t, StyleReturnsColumns, "seller_sku_code")
	assert.Len(t, StyleReturnsColumns, len(SkuReturnsColumns)-1)
}

func TestHeatmapSpec(t *testing.T) {
	pct := 12.5
	hm := Heatmap{
		KeyColumn: "style_key",
		Reasons:   []string{"Size issue", "Damaged"},
		Rows: []model.Row{
			{"style_key": "S1", "brand": "HRX", "orders": 8.0, "returns_units": 2.0},
			{"style_key": "S2"},
		},
		Matrix: [][]*float64{{&pct, nil}},
	}

	spec := HeatmapSpec("hm.csv", hm)
	lines := strings.Split(strings.TrimPrefix(string(Bytes(spec.Columns, spec.Rows)), BOM), "\n")

	assert.Equal(t, "style_key,brand,orders,returns_units,Size issue,Damaged", lines[0])
	assert.Equal(t, "S1,HRX,8,2,12.5,", lines[1])
	assert.Equal(t, "S2,,0,0,,", lines[2])
}

func TestScope_Filename(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		want  string
	}{
		{
			name:  "ads with defaults",
			scope: AdRecommendationsScope("ws1", "", "", "2024-01-01", "2024-01-31"),
			want:  "ad_recommendations_ws1_ALL_brandALL_2024-01-01_to_2024-01-31.csv",
		},
		{
			name:  "ads with portal and brand",
			scope: AdRecommendationsScope("ws1", "myntra", "H/R:X", "2024-01-01", "2024-01-31"),
			want:  "ad_recommendations_ws1_myntra_brandH-R-X_2024-01-01_to_2024-01-31.csv",
		},
		{
			name:  "action board without month",
			scope: ActionBoardScope("ws1", "", "", "profit_leak", ""),
			want:  "action_board_ws1_ALL_brandALL_profit_leak_na.csv",
		},
		{
			name:  "action board with portal and brand",
			scope: ActionBoardScope("ws2", "myntra", "HRX", "scale_now", "2024-01-01"),
			want:  "action_board_ws2_myntra_brandHRX_scale_now_2024-01-01.csv",
		},
		{
			name:  "forecast selected",
			scope: ForecastSelectedScope("ws1", "ST-9", "size", "2024-02-01", "2024-02-29"),
			want:  "forecast_selected_ws1_ST-9_size_2024-02-01_to_2024-02-29.csv",
		},
		{
			name:  "forecast detailed default workspace",
			scope: ForecastDetailedScope("", "2024-02-01", "2024-02-29"),
			want:  "forecast_ALL_detailed_default_2024-02-01_to_2024-02-29.csv",
		},
		{
			name:  "returns with brand",
			scope: ReturnsScope("stylewise", "HRX", "ws1", "flipkart", "a", "b"),
			want:  "returns_stylewise_HRX_ws1_flipkart_a_to_b.csv",
		},
		{
			name:  "returns without brand",
			scope: ReturnsScope("skuwise", "", "ws1", "", "a", "b"),
			want:  "returns_skuwise_ws1_ALL_a_to_b.csv",
		},
		{
			name:  "zero sales",
			scope: ZeroSalesScope("ws1", "", 7, 200, "desc"),
			want:  "zero-sales_ws1_brandALL_min7_top200_dayslive_desc.csv",
		},
		{
			name:  "report bundle",
			scope: ReportScope("w<s>", "", "2024-01-01", "2024-01-31"),
			want:  "projectm_w-s-_ALL_2024-01-01_to_2024-01-31.zip",
		},
		{
			name:  "control characters",
			scope: WindowScope("brand_gmv_asp", "ws\x01\t1", "myntra", "s", "e"),
			want:  "brand_gmv_asp_ws--1_myntra_s_to_e.csv",
		},
		{
			name:  "ads with view filters",
			scope: AdRecommendationsScope("ws1", "myntra", "", "s", "e").WithFilters(model.Filters{Tag: "SCALE", Search: "red kurta", ZeroSalesOnly: true}),
			want:  "ad_recommendations_ws1_myntra_brandALL_tagSCALE_qred-kurta_zerosales_s_to_e.csv",
		},
		{
			name:  "all tags is no filter",
			scope: AdRecommendationsScope("ws1", "myntra", "", "s", "e").WithFilters(model.Filters{Tag: model.AllTags}),
			want:  "ad_recommendations_ws1_myntra_brandALL_s_to_e.csv",
		},
		{
			name:  "extra parts skip empty",
			scope: ReturnsScope("cohort", "", "ws1", "", "s", "e").With("styleST-1", " "),
			want:  "returns_cohort_ws1_ALL_styleST-1_s_to_e.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Filename())
		})
	}
}

func TestScope_DistinctScopesDistinctNames(t *testing.T) {
	tests := []struct {
		name string
		a, b Scope
	}{
		{
			name: "action board workspace",
			a:    ActionBoardScope("ws1", "", "", "scale_now", "2024-01-01"),
			b:    ActionBoardScope("ws2", "", "", "scale_now", "2024-01-01"),
		},
		{
			name: "action board brand",
			a:    ActionBoardScope("ws1", "", "HRX", "scale_now", "2024-01-01"),
			b:    ActionBoardScope("ws1", "", "Roadster", "scale_now", "2024-01-01"),
		},
		{
			name: "ads tag filter",
			a:    AdRecommendationsScope("ws1", "myntra", "", "s", "e").WithFilters(model.Filters{Tag: "SCALE"}),
			b:    AdRecommendationsScope("ws1", "myntra", "", "s", "e").WithFilters(model.Filters{Tag: "WATCH"}),
		},
		{
			name: "ads filtered and unfiltered",
			a:    AdRecommendationsScope("ws1", "myntra", "", "s", "e"),
			b:    AdRecommendationsScope("ws1", "myntra", "", "s", "e").WithFilters(model.Filters{ZeroSalesOnly: true}),
		},
		{
			name: "window portal",
			a:    WindowScope("brand_gmv_asp", "ws1", "myntra", "s", "e"),
			b:    WindowScope("brand_gmv_asp", "ws1", "flipkart", "s", "e"),
		},
		{
			name: "returns portal",
			a:    ReturnsScope("stylewise", "", "ws1", "myntra", "s", "e"),
			b:    ReturnsScope("stylewise", "", "ws1", "flipkart", "s", "e"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, tt.a.Filename(), tt.b.Filename())
		})
	}
}

func TestScope_WithDoesNotShareParts(t *testing.T) {
	base := Scope{Kind: "k", Parts: make([]string, 1, 4)}
	base.Parts[0] = "ws"

	a := base.With("a")
	b := base.With("b")

	assert.Equal(t, "k_ws_a.csv", a.Filename())
	assert.Equal(t, "k_ws_b.csv", b.Filename())
	assert.Equal(t, []string{"ws"}, base.Parts)
}

func TestFailuresFilename(t *testing.T) {
	assert.Equal(t, "forecast_ALL_detailed_ws_a_to_b_failures.csv", FailuresFilename("forecast_ALL_detailed_ws_a_to_b.csv"))
}

func TestBundle(t *testing.T) {
	var b Bundle
	require.NoError(t, b.AddJSON("kpi_summary.json", map[string]any{"orders": 10}))
	b.AddCSV("returns_trend.csv", ReturnsTrendColumns, []model.Row{{"date": "2024-01-01", "returns_units": 2.0}})
	b.AddCSV("zero_sales_since_live.csv", ZeroSalesColumns, nil)

	data, err := b.Zip()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	contents := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		contents[f.Name] = string(body)
	}

	assert.Equal(t, []string{"kpi_summary.json", "returns_trend.csv", "zero_sales_since_live.csv"}, b.Names())
	assert.JSONEq(t, `{"orders": 10}`, contents["kpi_summary.json"])
	assert.Equal(t, BOM+"date,returns_units,return_units,rto_units\n2024-01-01,2,,", contents["returns_trend.csv"])
	assert.Equal(t, BOM+strings.Join(ZeroSalesColumns, ","), contents["zero_sales_since_live.csv"])
}

func TestWriter_WriteFile(t *testing.T) {
	dir := t.TempDir()
	path, err := NewWriter(dir).WriteFile(context.Background(), "bundle.zip", []byte("PK"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data))
}

func cohortRows() []model.Row {
	return []model.Row{
		{"order_month": "2024-02-01", "return_month": "2024-02-01", "orders": 20.0, "returns_units": 5.0, "return_units": 3.0, "rto_units": 2.0},
		{"order_month": "2024-01-01", "return_month": "2024-02-01", "orders": 10.0, "returns_units": 4.0, "return_units": 4.0, "rto_units": 0.0},
		{"order_month": "2024-01-01", "return_month": "2024-01-01", "orders": 10.0, "returns_units": 2.0, "return_units": 1.0, "rto_units": 1.0},
	}
}

func TestReturnsCohortColumns(t *testing.T) {
	got := string(Bytes(ReturnsCohortColumns, cohortRows()[:1]))
	assert.Equal(t, BOM+"order_month,return_month,orders,returns_units,return_units,rto_units\n"+
		"2024-02-01,2024-02-01,20,5,3,2", got)
}

func TestCohortPivot(t *testing.T) {
	columns, rows := CohortPivot(cohortRows(), "return_units")

	assert.Equal(t, []string{"order_month", "2024-01-01", "2024-02-01"}, columns)
	assert.Equal(t, []model.Row{
		{"order_month": "2024-01-01", "2024-01-01": 1.0, "2024-02-01": 4.0},
		// February orders cannot come back in January.
		{"order_month": "2024-02-01", "2024-01-01": 0.0, "2024-02-01": 3.0},
	}, rows)
}

func TestCohortSameMonth(t *testing.T) {
	rows := CohortSameMonth(cohortRows(), "rto_units")

	assert.Equal(t, []model.Row{
		{"order_month": "2024-01-01", "selected": 1.0, "return_units": 1.0, "rto_units": 1.0, "returns_units": 2.0},
		{"order_month": "2024-02-01", "selected": 2.0, "return_units": 3.0, "rto_units": 2.0, "returns_units": 5.0},
	}, rows)
}

func TestIsCohortMetric(t *testing.T) {
	for _, m := range CohortMetrics {
		assert.True(t, IsCohortMetric(m), m)
	}
	assert.True(t, IsCohortMetric(DefaultCohortMetric))
	assert.False(t, IsCohortMetric("orders"))
}
