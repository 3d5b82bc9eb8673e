package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/merchctl/internal/cli"
	"github.com/Veraticus/merchctl/internal/common"
	"github.com/Veraticus/merchctl/internal/config"
	"github.com/Veraticus/merchctl/internal/model"
)

var (
	cfgFile    string
	version    = "dev"
	interrupts = cli.NewInterruptHandler(os.Stderr)
	rootCmd    = &cobra.Command{
		Use:   "merchctl",
		Short: "📊 Merchandising insights from the command line",
		Long: `merchctl ranks, classifies and exports the merchandising tables served by
the analytics backend: ads recommendations, the action board, returns,
brand GMV/ASP, the ASP optimizer and size/SKU forecasts.

Every export is a CSV named after its scope and is recorded in a local ledger.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/merchctl/config.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")
	pf.String("api-url", "", "backend base URL (default: $INTERNAL_API_URL or http://127.0.0.1:8000)")
	pf.StringP("workspace", "w", "", "workspace slug")
	pf.String("portal", "", "portal filter, e.g. myntra (default: all portals)")
	pf.StringP("out", "o", "", "directory exports are written to")
	pf.Bool("xlsx", false, "also write an .xlsx copy of every CSV export")
	pf.String("db", "", "export ledger database path")
	pf.Float64("zero-stock-qty", model.DefaultZeroStockQty, "stock below this is out of stock")
	pf.Float64("low-stock-qty", model.DefaultLowStockQty, "stock below this is low")
	pf.Float64("new-age-days", model.DefaultNewAgeDays, "styles at most this old count as new")
	pf.Float64("min-orders-replenish", model.DefaultMinOrdersForReplenish, "30 day orders an out-of-stock style must exceed to replenish")

	// Bind flags to viper
	_ = viper.BindPFlag(config.KeyLogLevel, pf.Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, pf.Lookup("log-format"))
	_ = viper.BindPFlag(config.KeyAPIBaseURL, pf.Lookup("api-url"))
	_ = viper.BindPFlag(config.KeyWorkspace, pf.Lookup("workspace"))
	_ = viper.BindPFlag(config.KeyPortal, pf.Lookup("portal"))
	_ = viper.BindPFlag(config.KeyOutputDir, pf.Lookup("out"))
	_ = viper.BindPFlag(config.KeyXLSX, pf.Lookup("xlsx"))
	_ = viper.BindPFlag(config.KeyDatabase, pf.Lookup("db"))
	_ = viper.BindPFlag(config.KeyThresholds+".zero_stock_qty", pf.Lookup("zero-stock-qty"))
	_ = viper.BindPFlag(config.KeyThresholds+".low_stock_qty", pf.Lookup("low-stock-qty"))
	_ = viper.BindPFlag(config.KeyThresholds+".new_age_days", pf.Lookup("new-age-days"))
	_ = viper.BindPFlag(config.KeyThresholds+".min_orders_for_replenish", pf.Lookup("min-orders-replenish"))

	// Add commands
	rootCmd.AddCommand(adsCmd())
	rootCmd.AddCommand(actionBoardCmd())
	rootCmd.AddCommand(returnsCmd())
	rootCmd.AddCommand(brandsCmd())
	rootCmd.AddCommand(aspCmd())
	rootCmd.AddCommand(zeroSalesCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(browseCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := interrupts.HandleInterrupts(context.Background())

	err := rootCmd.ExecuteContext(ctx)
	stop() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(config.ExpandPath(cfgFile))
	} else {
		viper.AddConfigPath(config.DefaultConfigDir())
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("MERCHCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	level := common.ParseLevel(viper.GetString(config.KeyLogLevel))
	if err := common.SetupLogger(level, viper.GetString(config.KeyLogFormat)); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.Debug("Configuration loaded", "file", viper.ConfigFileUsed())
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "merchctl %s\n", version)
		},
	}
}
