package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/merchctl/internal/forecast"
	"github.com/Veraticus/merchctl/internal/model"
)

// Scope is the window most endpoints are filtered by. Empty fields are not sent;
// an empty Workspace uses the client's workspace.
type Scope struct {
	Workspace string
	Portal    string
	Brand     string
	Start     string
	End       string
}

func (c *Client) scopeParams(s Scope) Params {
	ws := s.Workspace
	if ws == "" {
		ws = c.workspace
	}
	return Params{
		"workspace_slug": ws,
		"portal":         s.Portal,
		"brand":          s.Brand,
		"start":          s.Start,
		"end":            s.End,
	}
}

// positive returns n, or nil so the parameter is omitted.
func positive(n int) any {
	if n <= 0 {
		return nil
	}
	return n
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// Snapshot timestamps reported alongside ads recommendations.
type Snapshot struct {
	LatestSnapshotAt      string `json:"latest_snapshot_at"`
	LatestStockSnapshotAt string `json:"latest_stock_snapshot_at"`
}

// AdsResponse is the ads recommendations payload.
type AdsResponse struct {
	Rows   []model.Row `json:"rows"`
	Params Snapshot    `json:"params"`
}

// AdsQuery filters ads recommendations.
type AdsQuery struct {
	Scope
	NewAgeDays    int
	MinOrders     int
	HighReturnPct float64
	InStockOnly   bool
}

// AdsRecommendations fetches per-style ads recommendations.
func (c *Client) AdsRecommendations(ctx context.Context, q AdsQuery) (*AdsResponse, error) {
	p := c.scopeParams(q.Scope)
	p["new_age_days"] = positive(q.NewAgeDays)
	p["min_orders"] = positive(q.MinOrders)
	if q.HighReturnPct > 0 {
		p["high_return_pct"] = q.HighReturnPct
	}
	if q.InStockOnly {
		p["in_stock_only"] = true
	}

	var out AdsResponse
	if err := c.get(ctx, "/db/ads/recommendations", p, &out); err != nil {
		return nil, fmt.Errorf("ads recommendations: %w", err)
	}
	return &out, nil
}

// ActionBoard holds the three dashboard buckets for one month.
type ActionBoard struct {
	WorkspaceSlug string      `json:"workspace_slug"`
	MonthStart    string      `json:"month_start"`
	ScaleNow      []model.Row `json:"scale_now"`
	ProfitLeak    []model.Row `json:"profit_leak"`
	NewPotential  []model.Row `json:"new_potential"`
}

// Bucket returns the rows of a bucket by name.
func (b *ActionBoard) Bucket(name string) ([]model.Row, bool) {
	switch name {
	case "scale_now":
		return b.ScaleNow, true
	case "profit_leak":
		return b.ProfitLeak, true
	case "new_potential":
		return b.NewPotential, true
	default:
		return nil, false
	}
}

// ActionBoardBuckets lists the bucket names in display order.
var ActionBoardBuckets = []string{"scale_now", "profit_leak", "new_potential"}

// ActionBoardQuery configures the action board.
type ActionBoardQuery struct {
	Scope
	RowDim        string // "style" or "sku"
	TopN          int
	MinOrders     int
	HighReturnPct float64
	NewDays       int
	// NewRef is what new_days counts back from: "today" or "month_start".
	NewRef        string
}

// ActionBoard fetches the scale-now, profit-leak and new-potential buckets.
func (c *Client) ActionBoard(ctx context.Context, q ActionBoardQuery) (*ActionBoard, error) {
	p := c.scopeParams(q.Scope)
	p["row_dim"] = q.RowDim
	p["top_n"] = positive(q.TopN)
	p["min_orders"] = positive(q.MinOrders)
	p["new_min_orders"] = positive(q.MinOrders)
	p["new_days"] = positive(q.NewDays)
	p["new_ref"] = q.NewRef
	if q.HighReturnPct > 0 {
		p["high_return_pct"] = q.HighReturnPct
		p["good_return_pct"] = q.HighReturnPct
	}

	var out ActionBoard
	if err := c.get(ctx, "/db/action-board", p, &out); err != nil {
		return nil, fmt.Errorf("action board: %w", err)
	}
	return &out, nil
}

// Brands lists the brands of a workspace.
func (c *Client) Brands(ctx context.Context, s Scope) ([]string, error) {
	var out struct {
		Brands []string `json:"brands"`
	}
	if err := c.get(ctx, "/db/brands", Params{
		"workspace_slug": c.scopeParams(s)["workspace_slug"],
		"portal":         s.Portal,
	}, &out); err != nil {
		return nil, fmt.Errorf("brands: %w", err)
	}
	return out.Brands, nil
}

// StyleMonthly is the month by style sales table.
type StyleMonthly struct {
	WorkspaceSlug string      `json:"workspace_slug"`
	MonthTotals   []model.Row `json:"month_totals"`
	Rows          []model.Row `json:"rows"`
}

// StyleMonthly fetches monthly style sales; monthStart narrows it to one month.
func (c *Client) StyleMonthly(ctx context.Context, s Scope, monthStart string, topN int) (*StyleMonthly, error) {
	p := c.scopeParams(Scope{Workspace: s.Workspace, Start: s.Start, End: s.End})
	p["month_start"] = monthStart
	p["top_n"] = positive(topN)

	var out StyleMonthly
	if err := c.get(ctx, "/db/style-monthly", p, &out); err != nil {
		return nil, fmt.Errorf("style monthly: %w", err)
	}
	return &out, nil
}

// ReturnsQuery filters the top-returns and returns-wise tables.
type ReturnsQuery struct {
	Scope
	TopN       int
	MinOrders  int
	ReturnMode string
}

func (c *Client) returnsParams(q ReturnsQuery) Params {
	p := c.scopeParams(q.Scope)
	p["top_n"] = orDefault(q.TopN, 50)
	p["min_orders"] = orDefault(q.MinOrders, 10)
	p["return_mode"] = q.ReturnMode
	return p
}

// TopReturnStyles fetches the styles with the highest return rate.
func (c *Client) TopReturnStyles(ctx context.Context, q ReturnsQuery) ([]model.Row, error) {
	var out []model.Row
	if err := c.get(ctx, "/db/kpi/top-return-styles", c.returnsParams(q), &out); err != nil {
		return nil, fmt.Errorf("top return styles: %w", err)
	}
	return out, nil
}

// TopReturnSkus fetches the SKUs with the highest return rate.
func (c *Client) TopReturnSkus(ctx context.Context, q ReturnsQuery) ([]model.Row, error) {
	var out []model.Row
	if err := c.get(ctx, "/db/kpi/top-return-skus", c.returnsParams(q), &out); err != nil {
		return nil, fmt.Errorf("top return skus: %w", err)
	}
	return out, nil
}

// ReturnsStyleWise fetches per-style return counts.
func (c *Client) ReturnsStyleWise(ctx context.Context, q ReturnsQuery) ([]model.Row, error) {
	q.ReturnMode = ""
	var out []model.Row
	if err := c.get(ctx, "/db/returns/style-wise", c.returnsParams(q), &out); err != nil {
		return nil, fmt.Errorf("returns style-wise: %w", err)
	}
	return out, nil
}

// ReturnsSkuWise fetches per-SKU return counts.
func (c *Client) ReturnsSkuWise(ctx context.Context, q ReturnsQuery) ([]model.Row, error) {
	q.ReturnMode = ""
	var out []model.Row
	if err := c.get(ctx, "/db/returns/sku-wise", c.returnsParams(q), &out); err != nil {
		return nil, fmt.Errorf("returns sku-wise: %w", err)
	}
	return out, nil
}

// CohortQuery filters the returns cohort. StyleKey or SellerSku narrows it to one
// style or SKU.
type CohortQuery struct {
	Scope
	StyleKey  string
	SellerSku string
}

// ReturnsCohort fetches returned units by order month and return month.
func (c *Client) ReturnsCohort(ctx context.Context, q CohortQuery) ([]model.Row, error) {
	p := c.scopeParams(q.Scope)
	p["style_key"] = q.StyleKey
	p["seller_sku_code"] = q.SellerSku

	var raw json.RawMessage
	if err := c.get(ctx, "/db/kpi/returns-cohort", p, &raw); err != nil {
		return nil, fmt.Errorf("returns cohort: %w", err)
	}
	rows, err := decodeRowList(raw, "rows")
	if err != nil {
		return nil, fmt.Errorf("returns cohort: %w", err)
	}
	return rows, nil
}

// HeatmapDim selects the heatmap row dimension.
type HeatmapDim string

// Heatmap dimensions.
const (
	HeatmapStyle HeatmapDim = "style"
	HeatmapSKU   HeatmapDim = "sku"
)

// KeyColumn is the row field identifying a heatmap row.
func (d HeatmapDim) KeyColumn() string {
	if d == HeatmapSKU {
		return "seller_sku_code"
	}
	return "style_key"
}

// HeatmapResponse is a row by return-reason matrix.
type HeatmapResponse struct {
	RowDim string      `json:"row_dim"`
	Rows   []model.Row `json:"rows"`
	Cols   []struct {
		Reason string `json:"reason"`
	} `json:"cols"`
	MatrixUnits [][]float64  `json:"matrix_units"`
	MatrixPct   [][]*float64 `json:"matrix_pct"`
}

// Reasons returns the column reasons in order.
func (h *HeatmapResponse) Reasons() []string {
	out := make([]string, len(h.Cols))
	for i, c := range h.Cols {
		out[i] = c.Reason
	}
	return out
}

// Heatmap fetches a style or SKU by return-reason heatmap.
func (c *Client) Heatmap(ctx context.Context, dim HeatmapDim, s Scope, topReasons, topRows int) (*HeatmapResponse, error) {
	p := c.scopeParams(s)
	p["top_reasons"] = orDefault(topReasons, 10)
	p["top_rows"] = orDefault(topRows, 30)

	var out HeatmapResponse
	path := fmt.Sprintf("/db/returns/heatmap/%s-reason", dim)
	if err := c.get(ctx, path, p, &out); err != nil {
		return nil, fmt.Errorf("%s heatmap: %w", dim, err)
	}
	return &out, nil
}

// BrandGmvAsp is the brand share of GMV and average selling price.
type BrandGmvAsp struct {
	TotalGmv    float64     `json:"total_gmv"`
	TotalOrders float64     `json:"total_orders"`
	Rows        []model.Row `json:"rows"`
}

// BrandGmvAsp fetches GMV and ASP by brand.
func (c *Client) BrandGmvAsp(ctx context.Context, s Scope) (*BrandGmvAsp, error) {
	p := c.scopeParams(Scope{Workspace: s.Workspace, Start: s.Start, End: s.End})

	var out BrandGmvAsp
	if err := c.get(ctx, "/db/kpi/brand-gmv-asp", p, &out); err != nil {
		return nil, fmt.Errorf("brand gmv asp: %w", err)
	}
	return &out, nil
}

// AspQuery configures the ASP optimizer.
type AspQuery struct {
	Scope
	Level      string // brand, style or sku
	Key        string
	BucketSize int
	TopN       int
	MinDays    int
	MinUnits   int
}

// AspOptimizer fetches price band recommendations.
func (c *Client) AspOptimizer(ctx context.Context, q AspQuery) ([]model.Row, error) {
	level := q.Level
	if level == "" {
		level = "style"
	}
	p := c.scopeParams(q.Scope)
	p["level"] = level
	p["key"] = q.Key
	p["bucket_size"] = orDefault(q.BucketSize, 50)
	p["top_n"] = orDefault(q.TopN, 50)
	p["min_days"] = orDefault(q.MinDays, 7)
	p["min_units"] = orDefault(q.MinUnits, 10)

	var out struct {
		Rows []model.Row `json:"rows"`
	}
	if err := c.get(ctx, "/db/kpi/asp-optimizer", p, &out); err != nil {
		return nil, fmt.Errorf("asp optimizer: %w", err)
	}
	return out.Rows, nil
}

// ZeroSalesQuery filters styles that went live without selling.
type ZeroSalesQuery struct {
	Workspace   string
	Brand       string
	MinDaysLive int
	TopN        int
	SortDir     model.Direction
}

// ZeroSalesSinceLive fetches styles with no orders since going live. The backend
// has answered with a bare array and with several wrapper objects; all are accepted.
func (c *Client) ZeroSalesSinceLive(ctx context.Context, q ZeroSalesQuery) ([]model.Row, error) {
	dir := q.SortDir
	if dir == "" {
		dir = model.Desc
	}
	p := c.scopeParams(Scope{Workspace: q.Workspace, Brand: q.Brand})
	p["min_days_live"] = orDefault(q.MinDaysLive, 7)
	p["top_n"] = orDefault(q.TopN, 100)
	p["sort_dir"] = string(dir)

	var raw json.RawMessage
	if err := c.get(ctx, "/db/kpi/zero-sales-since-live", p, &raw); err != nil {
		return nil, fmt.Errorf("zero sales since live: %w", err)
	}

	rows, err := decodeRowList(raw, "result", "rows", "data", "items")
	if err != nil {
		return nil, fmt.Errorf("zero sales since live: %w", err)
	}

	out := make([]model.Row, len(rows))
	for i, r := range rows {
		out[i] = zeroSalesRow(r)
	}
	return out, nil
}

// decodeRowList accepts a JSON array or an object holding one under any of keys.
func decodeRowList(raw json.RawMessage, keys ...string) ([]model.Row, error) {
	var rows []model.Row
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err == nil {
		for _, k := range keys {
			v, ok := wrapper[k]
			if !ok {
				continue
			}
			if err := json.Unmarshal(v, &rows); err == nil && rows != nil {
				return rows, nil
			}
		}
	}

	snippet := string(raw)
	if len(snippet) > 300 {
		snippet = snippet[:300]
	}
	return nil, fmt.Errorf("unexpected response shape: %s", snippet)
}

// zeroSalesRow normalizes PascalCase and snake_case field names.
func zeroSalesRow(r model.Row) model.Row {
	live := model.ToText(r.Coalesce("LiveDate", "live_date"))
	if len(live) > 10 {
		live = live[:10]
	}
	days, _ := model.ToNumber(r.Coalesce("DaysLive", "days_live"))
	orders, _ := model.ToNumber(r.Coalesce("Orders", "orders"))

	return model.Row{
		"style_key":       model.ToText(r.Coalesce("StyleKey", "style_key")),
		"brand":           r.Coalesce("Brand", "brand"),
		"product_name":    r.Coalesce("ProductName", "product_name"),
		"seller_sku_code": r.Coalesce("SellerSkuCode", "seller_sku_code"),
		"live_date":       live,
		"days_live":       days,
		"orders":          orders,
	}
}

// KpiSummary fetches the headline KPIs for a window.
func (c *Client) KpiSummary(ctx context.Context, s Scope, returnMode string) (model.Row, error) {
	p := c.scopeParams(s)
	p["return_mode"] = returnMode

	var out model.Row
	if err := c.get(ctx, "/db/kpi/summary", p, &out); err != nil {
		return nil, fmt.Errorf("kpi summary: %w", err)
	}
	return out, nil
}

// ReturnsTrend fetches daily return units for a window.
func (c *Client) ReturnsTrend(ctx context.Context, s Scope, returnMode string) ([]model.Row, error) {
	p := c.scopeParams(s)
	p["return_mode"] = returnMode

	var out []model.Row
	if err := c.get(ctx, "/db/kpi/returns-trend", p, &out); err != nil {
		return nil, fmt.Errorf("returns trend: %w", err)
	}
	return out, nil
}

// Forecast fetches a size or SKU forecast for one style.
func (c *Client) Forecast(ctx context.Context, mode forecast.Mode, req forecast.Request) (forecast.Response, error) {
	if req.Workspace == "" {
		req.Workspace = c.workspace
	}

	p := Params{}
	for k, v := range req.Params() {
		p[k] = v
	}

	var out forecast.Response
	path := fmt.Sprintf("/db/style/%s-forecast", mode)
	if err := c.get(ctx, path, p, &out); err != nil {
		return forecast.Response{}, fmt.Errorf("%s forecast for %s: %w", mode, req.StyleKey, err)
	}
	return out, nil
}
