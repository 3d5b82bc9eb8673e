package model

import "fmt"

// Default stock classification thresholds.
const (
	DefaultZeroStockQty          = 3
	DefaultLowStockQty           = 10
	DefaultNewAgeDays            = 60
	DefaultMinOrdersForReplenish = 0
)

// ThresholdConfig holds the business cutoffs that drive the stock overlay.
type ThresholdConfig struct {
	// ZeroStockQty: quantities strictly below this count as out of stock.
	ZeroStockQty float64 `mapstructure:"zero_stock_qty"`
	// LowStockQty: quantities strictly below this count as low stock.
	LowStockQty float64 `mapstructure:"low_stock_qty"`
	// NewAgeDays: styles live for at most this many days are new.
	NewAgeDays float64 `mapstructure:"new_age_days"`
	// MinOrdersForReplenish: an out-of-stock style replenishes only when its trailing 30 day
	// orders exceed this.
	MinOrdersForReplenish float64 `mapstructure:"min_orders_for_replenish"`
}

// DefaultThresholds returns the thresholds the dashboard shipped with.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		ZeroStockQty:          DefaultZeroStockQty,
		LowStockQty:           DefaultLowStockQty,
		NewAgeDays:            DefaultNewAgeDays,
		MinOrdersForReplenish: DefaultMinOrdersForReplenish,
	}
}

// Validate ensures the thresholds are usable.
func (c ThresholdConfig) Validate() error {
	if c.ZeroStockQty < 0 {
		return fmt.Errorf("zero stock qty must be >= 0, got %v", c.ZeroStockQty)
	}
	if c.LowStockQty < c.ZeroStockQty {
		return fmt.Errorf("low stock qty (%v) must be >= zero stock qty (%v)", c.LowStockQty, c.ZeroStockQty)
	}
	if c.NewAgeDays < 0 {
		return fmt.Errorf("new age days must be >= 0, got %v", c.NewAgeDays)
	}
	if c.MinOrdersForReplenish < 0 {
		return fmt.Errorf("min orders for replenish must be >= 0, got %v", c.MinOrdersForReplenish)
	}
	return nil
}
