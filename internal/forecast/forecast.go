// Package forecast normalizes size and SKU forecast responses into one shape and
// builds the rows of the selected and detailed forecast exports.
package forecast

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Veraticus/merchctl/internal/model"
)

// Mode selects the forecast bucket: sizes of a style or its SKUs.
type Mode string

// Forecast modes.
const (
	ModeSize Mode = "size"
	ModeSKU  Mode = "sku"
)

// ParseMode accepts "size" or "sku" in any case.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSize:
		return ModeSize, true
	case ModeSKU:
		return ModeSKU, true
	default:
		return "", false
	}
}

// BucketField is the response row field holding the bucket label.
func (m Mode) BucketField() string {
	if m == ModeSize {
		return "size"
	}
	return "sku"
}

// Label is the human readable bucket name.
func (m Mode) Label() string {
	if m == ModeSize {
		return "Size"
	}
	return "SKU"
}

// NoSizeBucket is the bucket label the backend uses for styles without sizes.
const NoSizeBucket = "NO_SIZE"

// missingBucket labels rows whose bucket is null.
const missingBucket = "\u2014"

// Inputs are the forecast parameters sent to the backend and echoed in exports.
type Inputs struct {
	ForecastDays    float64 `json:"forecast_days" mapstructure:"forecast_days"`
	SalesDays       float64 `json:"sales_days" mapstructure:"sales_days"`
	SpikeMultiplier float64 `json:"spike_multiplier" mapstructure:"spike_multiplier"`
	LeadTimeDays    float64 `json:"lead_time_days" mapstructure:"lead_time_days"`
	TargetCoverDays float64 `json:"target_cover_days" mapstructure:"target_cover_days"`
	SafetyStockPct  float64 `json:"safety_stock_pct" mapstructure:"safety_stock_pct"`
	ExcludeRTO      bool    `json:"exclude_rto" mapstructure:"exclude_rto"`
}

// DefaultInputs returns the dashboard defaults.
func DefaultInputs() Inputs {
	return Inputs{
		ForecastDays:    30,
		SalesDays:       7,
		SpikeMultiplier: 2,
		LeadTimeDays:    10,
		TargetCoverDays: 20,
		SafetyStockPct:  10,
		ExcludeRTO:      false,
	}
}

// Params renders the inputs as query parameters.
func (i Inputs) Params() map[string]string {
	return map[string]string{
		"forecast_days":     model.ToText(i.ForecastDays),
		"sales_days":        model.ToText(i.SalesDays),
		"spike_multiplier":  model.ToText(i.SpikeMultiplier),
		"lead_time_days":    model.ToText(i.LeadTimeDays),
		"target_cover_days": model.ToText(i.TargetCoverDays),
		"safety_stock_pct":  model.ToText(i.SafetyStockPct),
		"exclude_rto":       strconv.FormatBool(i.ExcludeRTO),
	}
}

// Window is the historical date range a forecast is based on.
type Window struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Days  *float64 `json:"days"`
}

// Totals are style-level aggregates. Nil means the backend omitted the value.
type Totals struct {
	OrdersGross        *float64 `json:"orders_gross,omitempty"`
	RTOUnitsSubtracted *float64 `json:"rto_units_subtracted,omitempty"`
	OrdersNet          *float64 `json:"orders_net,omitempty"`
	StockQty           *float64 `json:"stock_qty,omitempty"`
	AvgDaily           *float64 `json:"avg_daily,omitempty"`
	ForecastUnits      *float64 `json:"forecast_units,omitempty"`
	RequiredOnHand     *float64 `json:"required_on_hand,omitempty"`
	GapQty             *float64 `json:"gap_qty,omitempty"`
}

// NetOrders is orders_net, falling back to orders_gross, then zero.
func (t Totals) NetOrders() float64 {
	if t.OrdersNet != nil {
		return *t.OrdersNet
	}
	return value(t.OrdersGross)
}

// Response is a size-forecast or sku-forecast payload as returned by the backend.
type Response struct {
	WorkspaceSlug         string          `json:"workspace_slug"`
	StyleKey              string          `json:"style_key"`
	Window                Window          `json:"window"`
	LatestStockSnapshotAt *string         `json:"latest_stock_snapshot_at"`
	Inputs                json.RawMessage `json:"inputs,omitempty"`
	Totals                *Totals         `json:"totals"`
	Rows                  []model.Row     `json:"rows"`
}

// Bucket is one size or SKU line of a forecast.
type Bucket struct {
	Label          string
	Orders         float64
	ShareOrders    float64
	StockQty       float64
	AvgDailyOrders float64
	DaysCover      *float64
	Risk           string
	RequiredQty    float64
	GapQty         float64
}

// Forecast is a size or SKU forecast in mode-independent form.
type Forecast struct {
	WorkspaceSlug         string
	StyleKey              string
	Window                Window
	LatestStockSnapshotAt string
	Inputs                Inputs
	Totals                Totals
	Mode                  Mode
	Buckets               []Bucket
}

// Unify converts a backend response. Inputs the response echoes override fallback;
// the rest keep the fallback values.
func Unify(mode Mode, resp Response, fallback Inputs) Forecast {
	inputs := fallback
	if len(resp.Inputs) > 0 {
		merged := fallback
		if err := json.Unmarshal(resp.Inputs, &merged); err == nil {
			inputs = merged
		}
	}

	var totals Totals
	if resp.Totals != nil {
		totals = *resp.Totals
	}

	buckets := make([]Bucket, len(resp.Rows))
	for i, r := range resp.Rows {
		buckets[i] = unifyRow(mode, r)
	}

	f := Forecast{
		WorkspaceSlug: resp.WorkspaceSlug,
		StyleKey:      resp.StyleKey,
		Window:        resp.Window,
		Inputs:        inputs,
		Totals:        totals,
		Mode:          mode,
		Buckets:       buckets,
	}
	if resp.LatestStockSnapshotAt != nil {
		f.LatestStockSnapshotAt = *resp.LatestStockSnapshotAt
	}
	return f
}

func unifyRow(mode Mode, r model.Row) Bucket {
	label := missingBucket
	if v := r.Coalesce(mode.BucketField()); v != nil {
		label = model.ToText(v)
	}

	b := Bucket{
		Label:          label,
		Orders:         r.Count("orders"),
		ShareOrders:    r.Count("share_orders"),
		StockQty:       r.Count("stock_qty"),
		AvgDailyOrders: r.Count("avg_daily_orders"),
		Risk:           r.Text("risk"),
		RequiredQty:    r.Count("required_qty"),
		GapQty:         r.Count("gap_qty"),
	}
	if !r.IsNull("days_cover") {
		if n, ok := r.Number("days_cover"); ok {
			b.DaysCover = &n
		}
	}
	return b
}

// IsEffectivelyNoSize reports whether a size forecast carries no size information:
// no buckets, or a single NO_SIZE bucket holding all of the style's orders.
func (f Forecast) IsEffectivelyNoSize() bool {
	switch len(f.Buckets) {
	case 0:
		return true
	case 1:
		b := f.Buckets[0]
		return strings.ToUpper(b.Label) == NoSizeBucket && b.Orders == f.Totals.NetOrders()
	default:
		return false
	}
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Request identifies one style forecast query.
type Request struct {
	Workspace string
	StyleKey  string
	Start     string
	End       string
	Inputs    Inputs
}

// Params renders the request as backend query parameters.
func (r Request) Params() map[string]string {
	params := r.Inputs.Params()
	params["workspace_slug"] = r.Workspace
	params["style_key"] = r.StyleKey
	params["start"] = r.Start
	params["end"] = r.End
	return params
}
