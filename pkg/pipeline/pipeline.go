// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"whoisreport/pkg/enrich"
	"whoisreport/pkg/input"
	"whoisreport/pkg/model"
	"whoisreport/pkg/report"
)

// maxFailedListed caps the failed IPs printed in the final summary
const maxFailedListed = 10

// Lookuper resolves one IP address, falling back across providers
type Lookuper interface {
	Lookup(ctx context.Context, ip string) (*model.LookupResult, error)
}

// Config contains the settings the runner needs
type Config struct {
	Input     string
	Output    string
	Delay     time.Duration // Pause after each IP
	Providers []string      // Names shown in the banner
}

// Result is the outcome of a run
type Result struct {
	Stats     *model.RunStats
	Records   []*model.Record
	Report    *report.Report
	ReportErr error // Non-nil when the workbook could not be written
}

// Runner drives one pass over the input file
type Runner struct {
	cfg    Config
	lookup Lookuper
	out    io.Writer
	now    func() time.Time
	wait   func(context.Context, time.Duration) error
}

// New creates a runner that prints progress to out
func New(cfg Config, lookup Lookuper, out io.Writer) *Runner {
	if out == nil {
		out = os.Stdout
	}
	return &Runner{
		cfg:    cfg,
		lookup: lookup,
		out:    out,
		now:    time.Now,
		wait:   pause,
	}
}

// Run reads, deduplicates and enriches the input, then writes the report.
// Only input errors are returned; a cancelled context stops the loop and
// the records gathered so far are still reported.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	stats := &model.RunStats{StartedAt: r.now()}
	r.printBanner(stats.StartedAt)

	ips, err := input.ReadFile(r.cfg.Input)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%s: %w", r.cfg.Input, model.ErrNoIPs)
	}

	unique := input.Dedup(ips)
	fmt.Fprintf(r.out, "Loaded %s unique IPs (%s lines, %s duplicates)\n\n",
		humanize.Comma(int64(len(unique))), humanize.Comma(int64(len(ips))),
		humanize.Comma(int64(len(ips)-len(unique))))

	records := make([]*model.Record, 0, len(unique))
	for i, ip := range unique {
		if ctx.Err() != nil {
			log.Warn().Int("remaining", len(unique)-i).Msg("run cancelled, reporting collected records")
			break
		}

		fmt.Fprintf(r.out, "[%d/%d] %s\n", i+1, len(unique), ip)
		rec := r.process(ctx, ip)
		if ctx.Err() != nil && rec.DataSource == model.SourceError {
			// Interrupted mid-lookup; the IP has no answer to report
			log.Warn().Int("remaining", len(unique)-i).Msg("run cancelled, reporting collected records")
			break
		}
		records = append(records, rec)
		tally(stats, rec)
		r.printStatus(rec)

		if err := r.wait(ctx, r.cfg.Delay); err != nil {
			log.Warn().Int("remaining", len(unique)-i-1).Msg("run cancelled, reporting collected records")
			break
		}
	}

	res := &Result{
		Stats:   stats,
		Records: records,
		Report:  report.Build(records, stats.StartedAt),
	}
	if err := report.WriteXLSX(r.cfg.Output, res.Report); err != nil {
		log.Error().Err(err).Str("file", r.cfg.Output).Msg("failed to write report")
		res.ReportErr = err
	} else {
		log.Info().Str("file", r.cfg.Output).Int("records", len(records)).Msg("report written")
	}

	stats.FinishedAt = r.now()
	r.printSummary(res)

	return res, nil
}

// process looks up and enriches one IP. A panic or unexpected error yields
// an error record instead of aborting the run.
func (r *Runner) process(ctx context.Context, ip string) (rec *model.Record) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("ip", ip).Interface("panic", p).Msg("processing failed")
			rec = enrich.ErrorRecord(ip, fmt.Errorf("%v", p))
		}
	}()

	res, err := r.lookup.Lookup(ctx, ip)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			log.Error().Err(err).Str("ip", ip).Msg("processing failed")
		}
		return enrich.ErrorRecord(ip, err)
	}
	return enrich.Build(ip, res)
}

func tally(stats *model.RunStats, rec *model.Record) {
	stats.Processed++
	if rec.Succeeded() {
		stats.Successful++
	} else {
		stats.FailedIPs = append(stats.FailedIPs, rec.IP)
	}
}

// pause waits d, returning early with an error if ctx is done
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pause cancelled: %w", ctx.Err())
	}
}

func (r *Runner) printBanner(started time.Time) {
	wd, _ := os.Getwd()

	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintln(r.out, "WHOIS ANALYSIS")
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintf(r.out, "Working directory:      %s\n", wd)
	fmt.Fprintf(r.out, "Input file:             %s\n", absPath(r.cfg.Input))
	fmt.Fprintf(r.out, "Output file:            %s\n", absPath(r.cfg.Output))
	if len(r.cfg.Providers) > 0 {
		fmt.Fprintf(r.out, "Providers:              %s\n", strings.Join(r.cfg.Providers, ", "))
	}
	fmt.Fprintf(r.out, "Started at:             %s\n", started.Format(report.TimeLayout))
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintln(r.out)
}

func (r *Runner) printStatus(rec *model.Record) {
	fmt.Fprintf(r.out, "  Organization:  %s\n", rec.Organization)
	fmt.Fprintf(r.out, "  Country:       %s\n", rec.Country)
	fmt.Fprintf(r.out, "  City:          %s\n", rec.City)
	fmt.Fprintf(r.out, "  ASN:           %s\n", rec.ASN)
	fmt.Fprintf(r.out, "  ISP:           %s\n", rec.ISP)
	fmt.Fprintf(r.out, "  Source:        %s\n", rec.DataSource)
	fmt.Fprintln(r.out)
}

func (r *Runner) printSummary(res *Result) {
	stats := res.Stats

	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintln(r.out, "RUN SUMMARY")
	fmt.Fprintln(r.out, strings.Repeat("=", 60))
	fmt.Fprintf(r.out, "IPs processed:          %s\n", humanize.Comma(int64(stats.Processed)))
	fmt.Fprintf(r.out, "Successful lookups:     %s (%.1f%%)\n", humanize.Comma(int64(stats.Successful)), stats.SuccessRate())
	fmt.Fprintf(r.out, "Failed lookups:         %s\n", humanize.Comma(int64(stats.Failed())))
	fmt.Fprintf(r.out, "Duration:               %s\n", stats.Elapsed().Round(time.Millisecond))
	if res.ReportErr == nil {
		fmt.Fprintf(r.out, "Report:                 %s\n", absPath(r.cfg.Output))
	}
	if n := stats.Failed(); n > 0 && n <= maxFailedListed {
		fmt.Fprintln(r.out, "\nFailed IPs:")
		for _, ip := range stats.FailedIPs {
			fmt.Fprintf(r.out, "  %s\n", ip)
		}
	}
	fmt.Fprintln(r.out, strings.Repeat("=", 60))

	if res.ReportErr != nil {
		fmt.Fprintf(r.out, "\nWARN: Report was not written: %v\n", res.ReportErr)
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
