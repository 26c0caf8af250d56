// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"whoisreport/pkg/config"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runCmd(os.Args[2:])
	case "lookup":
		lookupCmd(os.Args[2:])
	case "runs":
		runsCmd(os.Args[2:])
	case "export":
		exportCmd(os.Args[2:])
	case "version":
		fmt.Printf("whois-report version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`whois-report - Look up organization and geo data for IPv4 addresses

Usage:
  whois-report run [options]        Look up every IP in the input file and write the report
  whois-report lookup [options] IP  Look up a single IP through the provider chain
  whois-report runs [options]       List runs stored in the archive
  whois-report export [options]     Re-render an archived run as a workbook
  whois-report version              Show version
  whois-report help                 Show this help

Run Options:
  --config string                YAML config file
  --input string                 Input file, one IP per line (default: ip_list.txt next to the binary)
  --output string                Output workbook (default: WHOIS_Analysis_Report.xlsx next to the binary)
  --archive string               LevelDB run archive (optional)
  --delay duration               Pause after each IP (default: 1s)
  --timeout duration             Per-request timeout (default: 10s)
  --user-agent string            User-Agent header (default: whois-report/version)
  --mmdb-asn string              MaxMind GeoLite2-ASN.mmdb, used as last provider
  --mmdb-city string             MaxMind GeoLite2-City.mmdb, used as last provider
  --log-level string             debug, info, warn or error (default: info)

Runs Options:
  --delete string                Remove the run with this ID before listing

Lookup Options:
  --json                         Output as JSON (default: true)

Export Options:
  --run string                   Run ID, or "latest"
  --output string                Output workbook (default: WHOIS_Analysis_Report_<run>.xlsx)

Examples:
  # Process ip_list.txt next to the binary
  whois-report run

  # Explicit paths, keep a history of runs
  whois-report run --input=ips.txt --output=report.xlsx --archive=./runs

  # Check one address offline
  whois-report lookup --mmdb-asn=GeoLite2-ASN.mmdb --mmdb-city=GeoLite2-City.mmdb 8.8.8.8

  # List archived runs and re-export the newest one
  whois-report runs --archive=./runs
  whois-report export --archive=./runs --run=latest --output=again.xlsx`)
}

// cliFlags holds the flags shared by every subcommand. Values are applied
// over the config file only when set on the command line.
type cliFlags struct {
	configPath string
	input      string
	output     string
	archive    string
	delay      time.Duration
	timeout    time.Duration
	userAgent  string
	mmdbASN    string
	mmdbCity   string
	logLevel   string
}

func (f *cliFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVar(&f.input, "input", "", "Input file, one IP per line")
	fs.StringVar(&f.output, "output", "", "Output workbook")
	fs.StringVar(&f.archive, "archive", "", "LevelDB run archive")
	fs.DurationVar(&f.delay, "delay", time.Second, "Pause after each IP")
	fs.DurationVar(&f.timeout, "timeout", 10*time.Second, "Per-request timeout")
	fs.StringVar(&f.userAgent, "user-agent", "", "User-Agent header")
	fs.StringVar(&f.mmdbASN, "mmdb-asn", "", "Path to MaxMind GeoLite2-ASN.mmdb")
	fs.StringVar(&f.mmdbCity, "mmdb-city", "", "Path to MaxMind GeoLite2-City.mmdb")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// load builds the effective configuration: defaults, then the config
// file, then explicitly set flags
func (f *cliFlags) load(fs *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default(baseDir())
	cfg.UserAgent = fmt.Sprintf("whois-report/%s", version)

	if f.configPath != "" {
		if err := config.Load(f.configPath, cfg); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "input":
			cfg.Input = f.input
		case "output":
			cfg.Output = f.output
		case "archive":
			cfg.Archive = f.archive
		case "delay":
			cfg.Delay = f.delay
		case "timeout":
			cfg.Timeout = f.timeout
		case "user-agent":
			cfg.UserAgent = f.userAgent
		case "mmdb-asn":
			cfg.MaxMind.ASN = f.mmdbASN
		case "mmdb-city":
			cfg.MaxMind.City = f.mmdbCity
		case "log-level":
			cfg.LogLevel = f.logLevel
		}
	})

	if err := setupLogging(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// baseDir is the directory holding the executable, where the default input
// and output files live
func baseDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

func setupLogging(level string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Logger()
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
	os.Exit(1)
}
