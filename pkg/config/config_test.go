// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"whoisreport/pkg/sources/httpapi"
)

func TestDefault(t *testing.T) {
	cfg := Default("/opt/whois")

	if cfg.Input != filepath.Join("/opt/whois", DefaultInputFile) {
		t.Errorf("got input %s", cfg.Input)
	}
	if cfg.Output != filepath.Join("/opt/whois", DefaultOutputFile) {
		t.Errorf("got output %s", cfg.Output)
	}
	if cfg.Delay != time.Second || cfg.Timeout != 10*time.Second {
		t.Errorf("got delay %s timeout %s", cfg.Delay, cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	eps, err := cfg.Endpoints()
	if err != nil {
		t.Fatalf("Endpoints() error = %v", err)
	}
	if len(eps) != 2 || eps[0].Name != httpapi.NameIPAPI || eps[1].Name != httpapi.NameIPWhois {
		t.Errorf("got endpoints %+v", eps)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whois-report.yaml")
	data := `
input: /data/ips.txt
delay: 250ms
timeout: 5s
log_level: debug
archive: /data/archive
providers:
  - name: ipwhois.app
    rate_limit: 2
  - name: ipapi.co
    fields:
      country: country_code
  - name: internal
    url: http://geo.internal/lookup/{ip}
    fields:
      org: organisation
      country: cc
maxmind:
  asn: /data/GeoLite2-ASN.mmdb
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg := Default("/opt/whois")
	if err := Load(path, cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Input != "/data/ips.txt" {
		t.Errorf("got input %s", cfg.Input)
	}
	if cfg.Output != filepath.Join("/opt/whois", DefaultOutputFile) {
		t.Errorf("output default lost: %s", cfg.Output)
	}
	if cfg.Delay != 250*time.Millisecond || cfg.Timeout != 5*time.Second {
		t.Errorf("got delay %s timeout %s", cfg.Delay, cfg.Timeout)
	}
	if cfg.LogLevel != "debug" || cfg.Archive != "/data/archive" {
		t.Errorf("got log level %s archive %s", cfg.LogLevel, cfg.Archive)
	}
	if !cfg.MaxMind.Enabled() || cfg.MaxMind.ASN != "/data/GeoLite2-ASN.mmdb" {
		t.Errorf("got maxmind %+v", cfg.MaxMind)
	}
	if cfg.RateLimit(httpapi.NameIPWhois) != 2 || cfg.RateLimit(httpapi.NameIPAPI) != 0 {
		t.Errorf("unexpected rate limits")
	}

	eps, err := cfg.Endpoints()
	if err != nil {
		t.Fatalf("Endpoints() error = %v", err)
	}
	if len(eps) != 3 {
		t.Fatalf("got %d endpoints, want 3", len(eps))
	}
	if eps[0].Name != httpapi.NameIPWhois {
		t.Errorf("priority order not kept: %s first", eps[0].Name)
	}
	if eps[1].Fields[httpapi.FieldCountry] != "country_code" || eps[1].Fields[httpapi.FieldOrg] != "org" {
		t.Errorf("field override not merged: %v", eps[1].Fields)
	}
	if eps[2].URL != "http://geo.internal/lookup/{ip}" || eps[2].Fields[httpapi.FieldOrg] != "organisation" {
		t.Errorf("custom endpoint not resolved: %+v", eps[2])
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if err := Load(filepath.Join(dir, "missing.yaml"), Default(dir)); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("delay: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Load(bad, Default(dir)); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty input", func(c *Config) { c.Input = "" }},
		{"empty output", func(c *Config) { c.Output = "" }},
		{"negative delay", func(c *Config) { c.Delay = -time.Second }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"no providers", func(c *Config) { c.Providers = nil }},
		{"custom provider without url", func(c *Config) {
			c.Providers = []ProviderConfig{{Name: "custom", Fields: map[string]string{"org": "org"}}}
		}},
		{"unknown field", func(c *Config) {
			c.Providers = []ProviderConfig{{Name: httpapi.NameIPAPI, Fields: map[string]string{"owner": "org"}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateMaxMindOnly(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Providers = nil
	cfg.MaxMind.City = "/data/GeoLite2-City.mmdb"
	if err := cfg.Validate(); err != nil {
		t.Errorf("maxmind-only config rejected: %v", err)
	}
}
