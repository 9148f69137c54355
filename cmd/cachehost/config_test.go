package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const hostYAML = `
logger:
  level: debug
  encoding: console
health:
  addr: 127.0.0.1:9090
  timeout: 3s
shutdown_timeout: 10s
caches:
  prices:
    refresh_interval: 1m
    failure_mode: fail
rates:
  base_url: https://rates.example.com/v1
  retry_max: 4
events:
  topic: cache-events
  source: pricing
  producer:
    brokers: [k1:9092]
`

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cachehost.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, hostYAML))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Logger.Level != "debug" || cfg.Health.Addr != "127.0.0.1:9090" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Health.Aggregator.Timeout != 3*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("durations not parsed: %+v", cfg.Health)
	}
	if p := cfg.Caches["prices"]; p.RefreshInterval == nil || *p.RefreshInterval != time.Minute {
		t.Errorf("cache override not parsed: %+v", p)
	}
	if cfg.Rates == nil || cfg.Rates.RetryMax != 4 {
		t.Errorf("rates section not parsed: %+v", cfg.Rates)
	}
	if cfg.Events == nil || cfg.Events.Topic != "cache-events" || len(cfg.Events.Producer.Brokers) != 1 {
		t.Errorf("events section not parsed: %+v", cfg.Events)
	}
	if cfg.MySQL != nil || cfg.ClickHouse != nil {
		t.Error("absent sections must stay nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Health.Addr != ":8080" || cfg.ShutdownTimeout != 30*time.Second || cfg.Logger == nil {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	cfg, err = loadConfig(writeConfig(t, "caches: {}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Health.Addr != ":8080" || cfg.Logger == nil {
		t.Errorf("defaults lost on partial file: %+v", cfg)
	}
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `
logger:
  level: loud
rates:
  base_url: not-a-url
`))
	if err != nil {
		t.Fatal(err)
	}
	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"level", "base_url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
