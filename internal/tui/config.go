package tui

import (
	"context"

	"github.com/Veraticus/merchctl/internal/export"
	"github.com/Veraticus/merchctl/internal/model"
	"github.com/Veraticus/merchctl/internal/tui/themes"
	"github.com/Veraticus/merchctl/internal/view"
)

// ExportFunc writes the rows of the current view and reports what was written.
// filters are the ones that produced rows.
type ExportFunc func(ctx context.Context, filters model.Filters, rows []model.Row) (export.Result, error)

// Config holds TUI configuration.
type Config struct {
	Theme  themes.Theme
	Export ExportFunc
	// Thresholds, when set, adds the stock overlay column.
	Thresholds *model.ThresholdConfig
	Title      string
	Query      model.ViewQuery
	Width      int
	Height     int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:  themes.Default,
		Width:  120,
		Height: 30,
		Query:  model.ViewQuery{Page: model.Page{Limit: view.DefaultLimit}},
	}
}

// WithTitle sets the header title.
func WithTitle(title string) Option {
	return func(c *Config) {
		c.Title = title
	}
}

// WithQuery sets the initial view state.
func WithQuery(q model.ViewQuery) Option {
	return func(c *Config) {
		c.Query = q
	}
}

// WithThresholds enables the stock overlay column.
func WithThresholds(t model.ThresholdConfig) Option {
	return func(c *Config) {
		c.Thresholds = &t
	}
}

// WithExport sets the export action.
func WithExport(fn ExportFunc) Option {
	return func(c *Config) {
		c.Export = fn
	}
}

// WithTheme sets the theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}
