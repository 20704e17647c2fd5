package main

import (
	"fmt"
	"time"

	"github.com/kindledger/ledgercheck/internal/common"
	"github.com/kindledger/ledgercheck/internal/httpc"
	"github.com/spf13/viper"
)

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  string // error, warn, info, debug
	Format string // text, json, color
}

// Config is the resolved runtime configuration, merged from defaults,
// config file, environment and flags.
type Config struct {
	GatewayURL  string
	ExplorerURL string
	Timeout     time.Duration
	MongoURI    string
	Logging     LoggingConfig
}

// loadConfig resolves configuration from viper, reading the optional config
// file first when one is set.
func loadConfig(v *viper.Viper) (*Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	timeout := httpc.DefaultTimeout
	if s := v.GetString("timeout"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", s, err)
		}
		timeout = d
	}

	return &Config{
		GatewayURL:  v.GetString("gateway_url"),
		ExplorerURL: v.GetString("explorer_url"),
		Timeout:     timeout,
		MongoURI:    v.GetString("mongo_uri"),
		Logging: LoggingConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
	}, nil
}

// newLogger builds the run logger from the logging config.
func newLogger(lc LoggingConfig) *common.Logger {
	level := common.ParseLogLevel(lc.Level)
	switch lc.Format {
	case "json":
		return common.NewJSONLogger(level)
	case "text":
		return common.NewLogger(level)
	default:
		return common.NewColorLogger(level)
	}
}
