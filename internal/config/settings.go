package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/merchctl/internal/api"
	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/engine"
	"github.com/Veraticus/merchctl/internal/forecast"
	"github.com/Veraticus/merchctl/internal/model"
)

// Config keys.
const (
	KeyAPIBaseURL        = "api.base_url"
	KeyAPITimeout        = "api.timeout"
	KeyAPIRequestsPerMin = "api.requests_per_minute"
	KeyAPIRetries        = "api.max_retries"
	KeyWorkspace         = "workspace"
	KeyPortal            = "portal"
	KeyOutputDir         = "export.dir"
	KeyXLSX              = "export.xlsx"
	KeyDatabase          = "database.path"
	KeyThresholds        = "thresholds"
	KeyForecast          = "forecast"
	KeyWorkers           = "forecast.workers"
	KeyLogLevel          = "logging.level"
	KeyLogFormat         = "logging.format"
)

// APISettings configures the backend client.
type APISettings struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetries        int
}

// Settings is the resolved configuration for one invocation.
type Settings struct {
	API          APISettings
	Workspace    string
	Portal       string
	OutputDir    string
	DatabasePath string
	Thresholds   model.ThresholdConfig
	Forecast     forecast.Inputs
	Workers      int
	XLSX         bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIBaseURL, api.DefaultBaseURL)
	v.SetDefault(KeyAPITimeout, api.DefaultTimeout)
	v.SetDefault(KeyAPIRequestsPerMin, api.DefaultRequestsPerMinute)
	v.SetDefault(KeyAPIRetries, common.DefaultRetryOptions().MaxAttempts)
	v.SetDefault(KeyWorkspace, api.DefaultWorkspace)
	v.SetDefault(KeyOutputDir, ".")
	v.SetDefault(KeyXLSX, false)
	v.SetDefault(KeyDatabase, filepath.Join(DefaultConfigDir(), "ledger.db"))
	v.SetDefault(KeyWorkers, engine.DefaultWorkers)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")

	t := model.DefaultThresholds()
	v.SetDefault(KeyThresholds+".zero_stock_qty", t.ZeroStockQty)
	v.SetDefault(KeyThresholds+".low_stock_qty", t.LowStockQty)
	v.SetDefault(KeyThresholds+".new_age_days", t.NewAgeDays)
	v.SetDefault(KeyThresholds+".min_orders_for_replenish", t.MinOrdersForReplenish)

	f := forecast.DefaultInputs()
	v.SetDefault(KeyForecast+".forecast_days", f.ForecastDays)
	v.SetDefault(KeyForecast+".sales_days", f.SalesDays)
	v.SetDefault(KeyForecast+".spike_multiplier", f.SpikeMultiplier)
	v.SetDefault(KeyForecast+".lead_time_days", f.LeadTimeDays)
	v.SetDefault(KeyForecast+".target_cover_days", f.TargetCoverDays)
	v.SetDefault(KeyForecast+".safety_stock_pct", f.SafetyStockPct)
	v.SetDefault(KeyForecast+".exclude_rto", f.ExcludeRTO)
}

// Load resolves settings from v. Precedence: flags and MERCHCTL_ variables bound
// to v, then the config file, then the dashboard's INTERNAL_API_URL, then defaults.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		API: APISettings{
			BaseURL:           strings.TrimSpace(v.GetString(KeyAPIBaseURL)),
			Timeout:           v.GetDuration(KeyAPITimeout),
			RequestsPerMinute: v.GetInt(KeyAPIRequestsPerMin),
			MaxRetries:        v.GetInt(KeyAPIRetries),
		},
		Workspace:    strings.TrimSpace(v.GetString(KeyWorkspace)),
		Portal:       strings.TrimSpace(v.GetString(KeyPortal)),
		OutputDir:    ExpandPath(v.GetString(KeyOutputDir)),
		DatabasePath: ExpandPath(v.GetString(KeyDatabase)),
		Workers:      v.GetInt(KeyWorkers),
		XLSX:         v.GetBool(KeyXLSX),
	}

	if s.API.BaseURL == "" || s.API.BaseURL == api.DefaultBaseURL {
		if env := os.Getenv("INTERNAL_API_URL"); env != "" {
			s.API.BaseURL = env
		}
	}

	s.Thresholds = model.ThresholdConfig{
		ZeroStockQty:          v.GetFloat64(KeyThresholds + ".zero_stock_qty"),
		LowStockQty:           v.GetFloat64(KeyThresholds + ".low_stock_qty"),
		NewAgeDays:            v.GetFloat64(KeyThresholds + ".new_age_days"),
		MinOrdersForReplenish: v.GetFloat64(KeyThresholds + ".min_orders_for_replenish"),
	}
	s.Forecast = forecast.Inputs{
		ForecastDays:    v.GetFloat64(KeyForecast + ".forecast_days"),
		SalesDays:       v.GetFloat64(KeyForecast + ".sales_days"),
		SpikeMultiplier: v.GetFloat64(KeyForecast + ".spike_multiplier"),
		LeadTimeDays:    v.GetFloat64(KeyForecast + ".lead_time_days"),
		TargetCoverDays: v.GetFloat64(KeyForecast + ".target_cover_days"),
		SafetyStockPct:  v.GetFloat64(KeyForecast + ".safety_stock_pct"),
		ExcludeRTO:      v.GetBool(KeyForecast + ".exclude_rto"),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings for values that cannot work.
func (s *Settings) Validate() error {
	if err := s.Thresholds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if s.Workers < 1 {
		return fmt.Errorf("%w: forecast.workers must be at least 1, got %d", common.ErrInvalidConfig, s.Workers)
	}
	if s.API.Timeout < 0 {
		return fmt.Errorf("%w: api.timeout must not be negative", common.ErrInvalidConfig)
	}
	if s.API.MaxRetries < 1 {
		return fmt.Errorf("%w: api.max_retries must be at least 1", common.ErrInvalidConfig)
	}
	if s.Forecast.ForecastDays <= 0 || s.Forecast.SalesDays <= 0 {
		return fmt.Errorf("%w: forecast and sales days must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// ClientConfig converts the API settings into an api.Config.
func (s *Settings) ClientConfig() api.Config {
	retry := common.DefaultRetryOptions()
	retry.MaxAttempts = s.API.MaxRetries
	return api.Config{
		BaseURL:           s.API.BaseURL,
		Workspace:         s.Workspace,
		Timeout:           s.API.Timeout,
		RequestsPerMinute: s.API.RequestsPerMinute,
		Retry:             retry,
	}
}

// EngineOptions converts the forecast settings into batch export options.
func (s *Settings) EngineOptions(start, end string) engine.Options {
	return engine.Options{
		Workspace: s.Workspace,
		Start:     start,
		End:       end,
		Inputs:    s.Forecast,
		Workers:   s.Workers,
	}
}
