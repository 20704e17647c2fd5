package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kindledger/ledgercheck"
	"github.com/kindledger/ledgercheck/internal/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "ledgercheck",
	Short: "Run the end-to-end smoke suite against a Kind-Ledger gateway",
	RunE:  runSuite,
}

func init() {
	v := viper.GetViper()
	v.SetDefault("gateway_url", "http://localhost:8080/api")
	v.SetDefault("explorer_url", "http://localhost:3000/api")
	v.SetDefault("timeout", "30s")
	v.SetDefault("mongo_uri", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "color")

	// Environment variables support: LEDGERCHECK_GATEWAY_URL, ...
	v.SetEnvPrefix("LEDGERCHECK")
	v.AutomaticEnv()

	rootCmd.PersistentFlags().String("config", "", "path to a config yaml")
	rootCmd.Flags().String("gateway-url", v.GetString("gateway_url"), "base URL of the gateway API")
	rootCmd.Flags().String("explorer-url", v.GetString("explorer_url"), "base URL of the explorer read service (empty disables explorer checks)")
	rootCmd.Flags().String("timeout", v.GetString("timeout"), "per-request budget")
	rootCmd.Flags().String("mongo-uri", v.GetString("mongo_uri"), "secondary store URI for transaction verification (empty disables)")
	rootCmd.Flags().String("log-level", v.GetString("log_level"), "log level: error, warn, info, debug")
	rootCmd.Flags().String("log-format", v.GetString("log_format"), "log format: text, json, color")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("gateway_url", rootCmd.Flags().Lookup("gateway-url"))
	_ = v.BindPFlag("explorer_url", rootCmd.Flags().Lookup("explorer-url"))
	_ = v.BindPFlag("timeout", rootCmd.Flags().Lookup("timeout"))
	_ = v.BindPFlag("mongo_uri", rootCmd.Flags().Lookup("mongo-uri"))
	_ = v.BindPFlag("log_level", rootCmd.Flags().Lookup("log-level"))
	_ = v.BindPFlag("log_format", rootCmd.Flags().Lookup("log-format"))
}

func runSuite(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	common.SetDefaultLogger(logger)

	// Interrupt aborts the remaining run but still prints the summary
	// accumulated so far.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("checking gateway availability", "url", cfg.GatewayURL)
	if err := waitForGateway(ctx, cfg.GatewayURL); err != nil {
		logger.Error("cannot connect to gateway, is it running?", "error", err)
		exitHandler.Exit(1)
		return nil
	}
	logger.Info("gateway is accessible")

	stats, runErr := ledgercheck.Run(ctx, ledgercheck.Config{
		GatewayURL:  cfg.GatewayURL,
		ExplorerURL: cfg.ExplorerURL,
		Timeout:     cfg.Timeout,
		MongoURI:    cfg.MongoURI,
	})
	if runErr != nil {
		if errors.Is(runErr, ledgercheck.ErrGatewayUnreachable) {
			logger.Error("gateway became unreachable", "error", runErr)
		} else {
			logger.Warn("run interrupted", "error", runErr)
		}
	}

	printSummary(logger, stats)

	if runErr != nil {
		exitHandler.Exit(1)
		return nil
	}
	exitHandler.Exit(stats.ExitCode())
	return nil
}

func printSummary(logger *common.Logger, stats *ledgercheck.Stats) {
	logger.Info("test summary",
		"total", stats.Total,
		"passed", stats.Passed,
		"failed", stats.Failed,
		"success_rate", fmt.Sprintf("%.1f%%", stats.SuccessRate()))
	switch {
	case stats.Total == 0:
		logger.Warn("no scenarios executed")
	case stats.Failed == 0:
		logger.Info("all scenarios passed")
	default:
		logger.Error("some scenarios failed",
			"note", "failures may be expected when the chain is not fully provisioned")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
