// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"whoisreport/pkg/model"
)

// Sheet names in workbook order
const (
	SheetAll            = "All IPs"
	SheetByOrganization = "By Organization"
	SheetByCountry      = "By Country"
	SheetByASN          = "By ASN"
	SheetSuccessful     = "Successful"
	SheetSummary        = "Summary"
)

// TimeLayout formats timestamps in the summary view
const TimeLayout = "2006-01-02 15:04:05"

// FinishedPlaceholder stands in for the run end time, which is not known
// when the workbook is written
const FinishedPlaceholder = "In progress..."

const maxOrgListLen = 100

// Column is a table column with its display width
type Column struct {
	Header string
	Width  float64
}

// Table is one named view over the record set
type Table struct {
	Name       string
	Columns    []Column
	Rows       [][]any
	AutoFilter bool
}

// Report holds every view derived from one run's records
type Report struct {
	Records   []*model.Record
	StartedAt time.Time
	Tables    []Table
}

// Build derives all views from records. The record slice is not modified.
func Build(records []*model.Record, startedAt time.Time) *Report {
	return &Report{
		Records:   records,
		StartedAt: startedAt,
		Tables: []Table{
			AllRecords(records),
			ByOrganization(records),
			ByCountry(records),
			ByASN(records),
			Successful(records),
			Summary(records, startedAt),
		},
	}
}

var recordColumns = []Column{
	{"ip", 15},
	{"organization", 35},
	{"country", 15},
	{"city", 15},
	{"region", 15},
	{"netname", 20},
	{"asn", 10},
	{"asn_description", 35},
	{"isp", 25},
	{"postal_code", 12},
	{"timezone", 15},
	{"data_source", 15},
	{"success", 10},
}

func recordRow(r *model.Record) []any {
	return []any{
		r.IP, r.Organization, r.Country, r.City, r.Region, r.Netname, r.ASN,
		r.ASNDescription, r.ISP, r.PostalCode, r.Timezone, r.DataSource, r.Success,
	}
}

// AllRecords lists every record in processing order
func AllRecords(records []*model.Record) Table {
	return recordTable(SheetAll, records)
}

// Successful lists the records with Success = Yes
func Successful(records []*model.Record) Table {
	var ok []*model.Record
	for _, r := range records {
		if r.Succeeded() {
			ok = append(ok, r)
		}
	}
	return recordTable(SheetSuccessful, ok)
}

func recordTable(name string, records []*model.Record) Table {
	t := Table{
		Name:       name,
		Columns:    recordColumns,
		Rows:       make([][]any, 0, len(records)),
		AutoFilter: true,
	}
	for _, r := range records {
		t.Rows = append(t.Rows, recordRow(r))
	}
	return t
}

// ByOrganization counts IPs per organization with the first country and
// ASN seen for it
func ByOrganization(records []*model.Record) Table {
	t := Table{
		Name: SheetByOrganization,
		Columns: []Column{
			{"organization", 35},
			{"count_ips", 10},
			{"country", 15},
			{"asn", 10},
		},
	}
	for _, g := range groupBy(records, func(r *model.Record) string { return r.Organization }) {
		t.Rows = append(t.Rows, []any{g.key, len(g.members), g.members[0].Country, g.members[0].ASN})
	}
	return t
}

// ByCountry counts IPs per country with the organizations seen there
func ByCountry(records []*model.Record) Table {
	t := Table{
		Name: SheetByCountry,
		Columns: []Column{
			{"country", 20},
			{"count_ips", 10},
			{"organization", 40},
		},
	}
	for _, g := range groupBy(records, func(r *model.Record) string { return r.Country }) {
		t.Rows = append(t.Rows, []any{g.key, len(g.members), organizationList(g.members)})
	}
	return t
}

// ByASN counts IPs per ASN with the first organization and country seen
func ByASN(records []*model.Record) Table {
	t := Table{
		Name: SheetByASN,
		Columns: []Column{
			{"asn", 15},
			{"count_ips", 10},
			{"organization", 35},
			{"country", 15},
		},
	}
	for _, g := range groupBy(records, func(r *model.Record) string { return r.ASN }) {
		t.Rows = append(t.Rows, []any{g.key, len(g.members), g.members[0].Organization, g.members[0].Country})
	}
	return t
}

// Summary reports run-level metrics
func Summary(records []*model.Record, startedAt time.Time) Table {
	total := len(records)
	successful := 0
	for _, r := range records {
		if r.Succeeded() {
			successful++
		}
	}

	rate := "0%"
	if total > 0 {
		rate = fmt.Sprintf("%.1f%%", float64(successful)/float64(total)*100)
	}

	return Table{
		Name: SheetSummary,
		Columns: []Column{
			{"Metric", 30},
			{"Value", 25},
		},
		Rows: [][]any{
			{"Total IPs processed", total},
			{"Successful lookups", successful},
			{"Success rate", rate},
			{"Unique organizations", distinct(records, func(r *model.Record) string { return r.Organization })},
			{"Unique countries", distinct(records, func(r *model.Record) string { return r.Country })},
			{"Unique ASNs", distinct(records, func(r *model.Record) string { return r.ASN })},
			{"Started at", startedAt.Format(TimeLayout)},
			{"Finished at", FinishedPlaceholder},
		},
	}
}

type group struct {
	key     string
	members []*model.Record
}

// groupBy buckets records by key, skipping N/A keys. Groups are ordered by
// size descending, then key ascending; members keep processing order.
func groupBy(records []*model.Record, key func(*model.Record) string) []*group {
	index := make(map[string]*group)
	var groups []*group
	for _, r := range records {
		k := key(r)
		if k == model.NA {
			continue
		}
		g, ok := index[k]
		if !ok {
			g = &group{key: k}
			index[k] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, r)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].members) != len(groups[j].members) {
			return len(groups[i].members) > len(groups[j].members)
		}
		return groups[i].key < groups[j].key
	})
	return groups
}

// organizationList joins the sorted, distinct organizations of members,
// truncated to 100 characters
func organizationList(members []*model.Record) string {
	seen := make(map[string]struct{})
	var orgs []string
	for _, r := range members {
		if _, ok := seen[r.Organization]; ok {
			continue
		}
		seen[r.Organization] = struct{}{}
		orgs = append(orgs, r.Organization)
	}
	sort.Strings(orgs)

	joined := strings.Join(orgs, ", ")
	if r := []rune(joined); len(r) > maxOrgListLen {
		joined = string(r[:maxOrgListLen])
	}
	return joined
}

// distinct counts distinct values of field, the N/A sentinel included
func distinct(records []*model.Record, field func(*model.Record) string) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[field(r)] = struct{}{}
	}
	return len(seen)
}
