package ch

import (
	"strings"
	"testing"
	"time"
)

func TestConfig_MergeDefaults(t *testing.T) {
	cfg := (&Config{Hosts: []string{"ch:9000"}, MaxOpenConns: 12}).MergeDefaults()

	if cfg.Database != "default" || cfg.DialTimeout != 10*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.MaxOpenConns != 12 {
		t.Errorf("MaxOpenConns = %d, want 12", cfg.MaxOpenConns)
	}
	if cfg.SlowQueryThreshold != 5*time.Second {
		t.Errorf("SlowQueryThreshold = %v", cfg.SlowQueryThreshold)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return (&Config{Hosts: []string{"ch:9000"}, Username: "reader", Password: "secret"}).MergeDefaults()
	}

	tests := []struct {
		name    string
		edit    func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no hosts", func(c *Config) { c.Hosts = nil }, "hosts"},
		{"no username", func(c *Config) { c.Username = "" }, "username"},
		{"no password", func(c *Config) { c.Password = "" }, "password"},
		{"negative conns", func(c *Config) { c.MaxOpenConns = -1 }, "max_open_conns"},
		{"negative threshold", func(c *Config) { c.SlowQueryThreshold = -time.Second }, "slow_query_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.edit(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_Options(t *testing.T) {
	cfg := (&Config{
		Hosts:    []string{"a:9000", "b:9000"},
		Database: "analytics",
		Username: "reader",
		Password: "secret",
	}).MergeDefaults()

	opts := cfg.options()
	if len(opts.Addr) != 2 || opts.Auth.Database != "analytics" || opts.Auth.Username != "reader" {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.MaxOpenConns != 5 || opts.DialTimeout != 10*time.Second {
		t.Errorf("defaults not propagated: %+v", opts)
	}
}
