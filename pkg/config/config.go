// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"whoisreport/pkg/sources/httpapi"
)

// Default file names, resolved against the base directory
const (
	DefaultInputFile  = "ip_list.txt"
	DefaultOutputFile = "WHOIS_Analysis_Report.xlsx"
)

// Config holds the settings of one run
type Config struct {
	Input     string           `yaml:"input"`
	Output    string           `yaml:"output"`
	Archive   string           `yaml:"archive"`    // LevelDB run archive (optional)
	Delay     time.Duration    `yaml:"delay"`      // Pause after each IP
	Timeout   time.Duration    `yaml:"timeout"`    // Per-request timeout
	UserAgent string           `yaml:"user_agent"` // User-Agent header
	LogLevel  string           `yaml:"log_level"`
	Providers []ProviderConfig `yaml:"providers"` // Priority order
	MaxMind   MaxMindConfig    `yaml:"maxmind"`
}

// ProviderConfig selects a hosted provider. Built-in names need no URL or
// fields; any fields given are merged over the built-in mapping.
type ProviderConfig struct {
	Name      string            `yaml:"name"`
	URL       string            `yaml:"url"`
	RateLimit float64           `yaml:"rate_limit"` // requests per second
	Fields    map[string]string `yaml:"fields"`     // canonical field -> JSON key
}

// MaxMindConfig points at optional GeoLite2 databases used as the last provider
type MaxMindConfig struct {
	ASN  string `yaml:"asn"`
	City string `yaml:"city"`
}

// Enabled reports whether any MaxMind database is configured
func (m MaxMindConfig) Enabled() bool {
	return m.ASN != "" || m.City != ""
}

// Default returns the configuration used when nothing is overridden, with
// input and output files located in baseDir
func Default(baseDir string) *Config {
	cfg := &Config{
		Input:     filepath.Join(baseDir, DefaultInputFile),
		Output:    filepath.Join(baseDir, DefaultOutputFile),
		Delay:     time.Second,
		Timeout:   10 * time.Second,
		UserAgent: "whois-report",
		LogLevel:  "info",
	}
	for _, ep := range httpapi.DefaultEndpoints() {
		cfg.Providers = append(cfg.Providers, ProviderConfig{Name: ep.Name})
	}
	return cfg
}

// Load reads a YAML file over cfg; keys absent from the file keep their
// current values
func Load(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Validate checks the settings needed for a run
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input file is not set")
	}
	if c.Output == "" {
		return fmt.Errorf("output file is not set")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must not be negative: %s", c.Delay)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %s", c.Timeout)
	}
	if len(c.Providers) == 0 && !c.MaxMind.Enabled() {
		return fmt.Errorf("no providers configured")
	}
	_, err := c.Endpoints()
	return err
}

// Endpoints resolves the provider list into hosted endpoints
func (c *Config) Endpoints() ([]httpapi.Endpoint, error) {
	endpoints := make([]httpapi.Endpoint, 0, len(c.Providers))
	for i, p := range c.Providers {
		ep, builtin := httpapi.DefaultEndpoint(p.Name)
		if !builtin {
			if p.Name == "" || p.URL == "" || len(p.Fields) == 0 {
				return nil, fmt.Errorf("provider %d (%q): custom providers need name, url and fields", i, p.Name)
			}
			ep = httpapi.Endpoint{Name: p.Name}
		}
		if p.URL != "" {
			ep.URL = p.URL
		}
		if len(p.Fields) > 0 {
			ep.Fields = ep.Fields.Merge(httpapi.FieldMap(p.Fields))
		}
		for field := range ep.Fields {
			if !isCanonical(field) {
				return nil, fmt.Errorf("provider %q: unknown field %q", ep.Name, field)
			}
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// RateLimit returns the configured rate limit for the named provider
func (c *Config) RateLimit(name string) float64 {
	for _, p := range c.Providers {
		if p.Name == name {
			return p.RateLimit
		}
	}
	return 0
}

func isCanonical(field string) bool {
	for _, f := range httpapi.CanonicalFields {
		if f == field {
			return true
		}
	}
	return false
}
