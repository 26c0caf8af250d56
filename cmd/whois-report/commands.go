// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"whoisreport/pkg/archive"
	"whoisreport/pkg/config"
	"whoisreport/pkg/enrich"
	"whoisreport/pkg/input"
	"whoisreport/pkg/model"
	"whoisreport/pkg/pipeline"
	"whoisreport/pkg/report"
	"whoisreport/pkg/sources"
	"whoisreport/pkg/sources/httpapi"
	"whoisreport/pkg/sources/maxmind"
)

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var flags cliFlags
	flags.register(fs)
	fs.Parse(args)

	cfg, err := flags.load(fs)
	if err != nil {
		fatalf("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("Invalid configuration: %v", err)
	}

	chain, closeProviders, err := buildChain(cfg)
	if err != nil {
		fatalf("%v", err)
	}
	defer closeProviders()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.New(pipeline.Config{
		Input:     cfg.Input,
		Output:    cfg.Output,
		Delay:     cfg.Delay,
		Providers: chain.Names(),
	}, chain, os.Stdout)

	res, err := runner.Run(ctx)
	if err != nil {
		closeProviders()
		fatalf("%v", err)
	}

	if cfg.Archive != "" {
		if err := saveRun(cfg, chain.Names(), res); err != nil {
			log.Error().Err(err).Str("archive", cfg.Archive).Msg("failed to archive run")
		}
	}
}

// buildChain creates the provider chain: hosted endpoints in configured
// order, then the MaxMind databases if any are set
func buildChain(cfg *config.Config) (*sources.Chain, func(), error) {
	endpoints, err := cfg.Endpoints()
	if err != nil {
		return nil, nil, err
	}

	var providers []sources.Provider
	for _, ep := range endpoints {
		providers = append(providers, httpapi.NewClient(ep, httpapi.Options{
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
			RateLimit: cfg.RateLimit(ep.Name),
		}))
	}

	closer := func() {}
	if cfg.MaxMind.Enabled() {
		readers, err := maxmind.Open(cfg.MaxMind.ASN, cfg.MaxMind.City)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open MaxMind databases: %w", err)
		}
		providers = append(providers, maxmind.NewProvider(readers))
		closer = func() { readers.Close() }
		log.Info().Str("asn", cfg.MaxMind.ASN).Str("city", cfg.MaxMind.City).Msg("opened MaxMind databases")
	}

	return sources.NewChain(providers...), closer, nil
}

func saveRun(cfg *config.Config, providers []string, res *pipeline.Result) error {
	db, err := archive.Open(cfg.Archive)
	if err != nil {
		return err
	}
	defer db.Close()

	run := archive.NewRun(res.Stats, cfg.Input, cfg.Output, providers)
	if err := db.SaveRun(run, res.Records); err != nil {
		return err
	}
	fmt.Printf("Archived as run %s\n", run.ID)
	return nil
}

func lookupCmd(args []string) {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	var flags cliFlags
	flags.register(fs)
	jsonOutput := fs.Bool("json", true, "Output as JSON")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: whois-report lookup [options] <ip-address>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		os.Exit(1)
	}
	ip := fs.Arg(0)
	if !input.IsIPv4(ip) {
		fatalf("Not an IPv4 address: %s", ip)
	}

	cfg, err := flags.load(fs)
	if err != nil {
		fatalf("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("Invalid configuration: %v", err)
	}

	chain, closeProviders, err := buildChain(cfg)
	if err != nil {
		fatalf("%v", err)
	}
	defer closeProviders()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := chain.Lookup(ctx, ip)
	if err != nil {
		closeProviders()
		fatalf("Lookup failed: %v", err)
	}
	rec := enrich.Build(ip, res)

	if *jsonOutput {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			fatalf("Failed to marshal JSON: %v", err)
		}
		fmt.Println(string(data))
	} else {
		printHumanReadable(rec)
	}
}

func printHumanReadable(rec *model.Record) {
	fmt.Printf("IP Address:         %s\n", rec.IP)
	fmt.Printf("Organization:       %s\n", rec.Organization)
	fmt.Printf("Netname:            %s\n", rec.Netname)
	fmt.Printf("ASN:                %s (%s)\n", rec.ASN, rec.ASNDescription)
	fmt.Printf("ISP:                %s\n", rec.ISP)
	fmt.Printf("Country:            %s\n", rec.Country)
	if rec.Region != model.NA {
		fmt.Printf("Region:             %s\n", rec.Region)
	}
	if rec.City != model.NA {
		fmt.Printf("City:               %s\n", rec.City)
	}
	if rec.PostalCode != model.NA {
		fmt.Printf("Postal code:        %s\n", rec.PostalCode)
	}
	fmt.Printf("Timezone:           %s\n", rec.Timezone)
	fmt.Printf("Source:             %s\n", rec.DataSource)
}

func runsCmd(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	var flags cliFlags
	flags.register(fs)
	deleteID := fs.String("delete", "", "Remove the run with this ID before listing")
	fs.Parse(args)

	cfg, err := flags.load(fs)
	if err != nil {
		fatalf("%v", err)
	}
	if cfg.Archive == "" {
		fatalf("--archive is required")
	}

	if *deleteID != "" {
		if err := deleteRun(cfg.Archive, *deleteID); err != nil {
			fatalf("Delete failed: %v", err)
		}
		fmt.Printf("Deleted run %s\n", *deleteID)
	}

	if err := listRuns(os.Stdout, cfg.Archive); err != nil {
		fatalf("Failed to list runs: %v", err)
	}
}

func deleteRun(archivePath, id string) error {
	db, err := archive.Open(archivePath)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.DeleteRun(id)
}

func listRuns(w io.Writer, archivePath string) error {
	db, err := archive.Open(archivePath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Runs()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "ARCHIVED RUNS")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Archive:                %s\n", db.Path())
	fmt.Fprintf(w, "Runs:                   %s\n\n", humanize.Comma(int64(len(runs))))
	for _, run := range runs {
		rate := 0.0
		if run.Processed > 0 {
			rate = float64(run.Successful) / float64(run.Processed) * 100
		}
		fmt.Fprintf(w, "%s  %s (%s)\n", run.ID, run.StartedAt.Format(report.TimeLayout), humanize.Time(run.StartedAt))
		fmt.Fprintf(w, "  IPs: %s, successful: %s (%.1f%%), providers: %s\n",
			humanize.Comma(int64(run.Processed)), humanize.Comma(int64(run.Successful)), rate,
			strings.Join(run.Providers, ", "))
		fmt.Fprintf(w, "  Input: %s\n", run.Input)
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
	return nil
}

func exportCmd(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var flags cliFlags
	flags.register(fs)
	runID := fs.String("run", "", "Run ID, or \"latest\"")
	fs.Parse(args)

	cfg, err := flags.load(fs)
	if err != nil {
		fatalf("%v", err)
	}
	if cfg.Archive == "" {
		fatalf("--archive is required")
	}
	if *runID == "" {
		fatalf("--run is required")
	}

	if err := exportRun(cfg.Archive, *runID, outputFlag(fs)); err != nil {
		fatalf("Export failed: %v", err)
	}
}

// exportRun rebuilds the workbook of an archived run. An empty output
// names the file after the run, next to the binary.
func exportRun(archivePath, id, output string) error {
	db, err := archive.Open(archivePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if id == "latest" {
		runs, err := db.Runs()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("archive %s has no runs", archivePath)
		}
		id = runs[0].ID
	}

	run, err := db.GetRun(id)
	if err != nil {
		return err
	}
	records, err := db.Records(id)
	if err != nil {
		return err
	}

	if output == "" {
		short := run.ID
		if len(short) > 8 {
			short = short[:8]
		}
		output = filepath.Join(baseDir(), fmt.Sprintf("WHOIS_Analysis_Report_%s.xlsx", short))
	}

	if err := report.WriteXLSX(output, report.Build(records, run.StartedAt)); err != nil {
		return err
	}
	fmt.Printf("Exported run %s (%s records) to %s\n", run.ID, humanize.Comma(int64(len(records))), output)
	return nil
}

// outputFlag returns --output only if it was given explicitly
func outputFlag(fs *flag.FlagSet) string {
	var output string
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "output" {
			output = fl.Value.String()
		}
	})
	return output
}
