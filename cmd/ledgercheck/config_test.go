package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	v := viper.New()
	v.SetDefault("gateway_url", "http://localhost:8080/api")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "color")

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.GatewayURL != "http://localhost:8080/api" {
		t.Fatalf("gateway url = %q", cfg.GatewayURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("default timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "color" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledgercheck.yaml")
	data := []byte("gateway_url: http://gw:9000/api\ntimeout: 5s\nmongo_uri: mongodb://db:27017\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v := viper.New()
	v.Set("config", path)

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.GatewayURL != "http://gw:9000/api" {
		t.Fatalf("gateway url = %q", cfg.GatewayURL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.MongoURI != "mongodb://db:27017" {
		t.Fatalf("mongo uri = %q", cfg.MongoURI)
	}
}

func TestLoadConfig_InvalidTimeout(t *testing.T) {
	v := viper.New()
	v.Set("timeout", "not-a-duration")

	if _, err := loadConfig(v); err == nil {
		t.Fatal("expected error for invalid timeout")
	}
}

func TestLoadConfig_MissingConfigFile(t *testing.T) {
	v := viper.New()
	v.Set("config", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := loadConfig(v); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"text", "json", "color", ""} {
		if logger := newLogger(LoggingConfig{Level: "debug", Format: format}); logger == nil {
			t.Fatalf("newLogger returned nil for format %q", format)
		}
	}
}
