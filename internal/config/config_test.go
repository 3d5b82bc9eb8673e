package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/forecast"
	"github.com/Veraticus/merchctl/internal/model"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INTERNAL_API_URL", "")
	t.Setenv("XDG_CONFIG_HOME", "/cfg")

	s, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8000", s.API.BaseURL)
	assert.Equal(t, 30*time.Second, s.API.Timeout)
	assert.Equal(t, 3, s.API.MaxRetries)
	assert.Equal(t, "default", s.Workspace)
	assert.Equal(t, model.DefaultThresholds(), s.Thresholds)
	assert.Equal(t, forecast.DefaultInputs(), s.Forecast)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, filepath.Join("/cfg", "merchctl", "ledger.db"), s.DatabasePath)
	assert.False(t, s.XLSX)
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("INTERNAL_API_URL", "http://ignored:9000")

	s, err := Load(newViper(t, `
api:
  base_url: https://analytics.example.com
  timeout: 5s
  max_retries: 5
workspace: acme
portal: myntra
export:
  dir: /tmp/exports
  xlsx: true
thresholds:
  low_stock_qty: 25
forecast:
  forecast_days: 60
  exclude_rto: true
  workers: 8
`))
	require.NoError(t, err)

	assert.Equal(t, "https://analytics.example.com", s.API.BaseURL)
	assert.Equal(t, 5*time.Second, s.API.Timeout)
	assert.Equal(t, "acme", s.Workspace)
	assert.Equal(t, "myntra", s.Portal)
	assert.Equal(t, "/tmp/exports", s.OutputDir)
	assert.True(t, s.XLSX)
	assert.Equal(t, 8, s.Workers)

	// Nested keys not in the file keep their defaults.
	assert.InDelta(t, 25.0, s.Thresholds.LowStockQty, 0)
	assert.InDelta(t, float64(model.DefaultZeroStockQty), s.Thresholds.ZeroStockQty, 0)
	assert.InDelta(t, 60.0, s.Forecast.ForecastDays, 0)
	assert.InDelta(t, 7.0, s.Forecast.SalesDays, 0)
	assert.True(t, s.Forecast.ExcludeRTO)

	cc := s.ClientConfig()
	assert.Equal(t, 5, cc.Retry.MaxAttempts)
	assert.Equal(t, "acme", cc.Workspace)

	opts := s.EngineOptions("2024-01-01", "2024-01-31")
	assert.Equal(t, 8, opts.Workers)
	assert.Equal(t, "2024-01-31", opts.End)
	assert.InDelta(t, 60.0, opts.Inputs.ForecastDays, 0)
}

func TestLoadInternalAPIURL(t *testing.T) {
	t.Setenv("INTERNAL_API_URL", "http://backend:8000")

	s, err := Load(newViper(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "http://backend:8000", s.API.BaseURL)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "zero workers", yaml: "forecast:\n  workers: 0\n"},
		{name: "low below zero threshold", yaml: "thresholds:\n  zero_stock_qty: 20\n  low_stock_qty: 10\n"},
		{name: "no retries", yaml: "api:\n  max_retries: 0\n"},
		{name: "zero forecast days", yaml: "forecast:\n  forecast_days: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.yaml))
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/merch")
	t.Setenv("EXPORTS", "/data/exports")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: "/home/merch"},
		{in: "~/out", want: "/home/merch/out"},
		{in: "$EXPORTS/daily", want: "/data/exports/daily"},
		{in: "/abs/path", want: "/abs/path"},
		{in: "rel/~/path", want: "rel/~/path"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
