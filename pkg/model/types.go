// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package model

import "time"

// NA is the placeholder for any missing or unknown field
const NA = "N/A"

// Data source tags that are not provider names
const (
	SourceNoData = "no_data"
	SourceError  = "ERROR"
)

// Success flag values
const (
	SuccessYes = "Yes"
	SuccessNo  = "No"
)

// LookupResult is a provider answer normalized to the common field set
type LookupResult struct {
	Org      string // Organization name
	Country  string // Country name (provider dependent: name or ISO code)
	City     string
	Region   string
	ASN      string // Autonomous System Number as reported (e.g. "AS15169")
	ISP      string
	Postal   string
	Timezone string
	Source   string // Provider name, or SourceNoData
}

// NoDataResult returns the result used when every provider failed
func NoDataResult() *LookupResult {
	return &LookupResult{
		Org:      NA,
		Country:  NA,
		City:     NA,
		Region:   NA,
		ASN:      NA,
		ISP:      NA,
		Postal:   NA,
		Timezone: NA,
		Source:   SourceNoData,
	}
}

// Record is the enriched, per-IP output of the pipeline
type Record struct {
	IP             string `json:"ip" msgpack:"ip"`
	Organization   string `json:"organization" msgpack:"organization"`
	Country        string `json:"country" msgpack:"country"`
	City           string `json:"city" msgpack:"city"`
	Region         string `json:"region" msgpack:"region"`
	Netname        string `json:"netname" msgpack:"netname"`                 // Derived short network identifier
	ASN            string `json:"asn" msgpack:"asn"`                         // As reported by the provider
	ASNDescription string `json:"asn_description" msgpack:"asn_description"` // Derived from org, ISP or ASN
	ISP            string `json:"isp" msgpack:"isp"`
	PostalCode     string `json:"postal_code" msgpack:"postal_code"`
	Timezone       string `json:"timezone" msgpack:"timezone"`
	DataSource     string `json:"data_source" msgpack:"data_source"`
	Success        string `json:"success" msgpack:"success"` // SuccessYes or SuccessNo
}

// Succeeded reports whether the record counts as a successful lookup
func (r *Record) Succeeded() bool {
	return r.Success == SuccessYes
}

// RunStats summarizes one pass over the input
type RunStats struct {
	Processed  int
	Successful int
	FailedIPs  []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failed returns the number of IPs without usable data
func (s *RunStats) Failed() int {
	return len(s.FailedIPs)
}

// SuccessRate returns the share of successful lookups in percent
func (s *RunStats) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Processed) * 100
}

// Elapsed returns the wall time of the run
func (s *RunStats) Elapsed() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Error types
type Error string

const (
	ErrNoData         Error = "no provider returned data"
	ErrInvalidPayload Error = "invalid provider payload"
	ErrNoIPs          Error = "no IP addresses found in input"
	ErrRunNotFound    Error = "run not found in archive"
	ErrArchiveClosed  Error = "archive is closed"
)

func (e Error) Error() string {
	return string(e)
}
