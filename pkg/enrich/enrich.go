// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package enrich

import (
	"regexp"
	"strings"

	"whoisreport/pkg/model"
)

const (
	maxNetnameLen  = 20
	maxErrorMsgLen = 50
	errorPrefix    = "ERROR: "
)

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]`)

// Build turns a lookup result into a normalized record for ip
func Build(ip string, res *model.LookupResult) *model.Record {
	if res == nil {
		res = model.NoDataResult()
	}

	netname, asnDesc := NetworkInfo(res.Org, res.ISP, res.ASN)

	rec := &model.Record{
		IP:             ip,
		Organization:   res.Org,
		Country:        res.Country,
		City:           res.City,
		Region:         res.Region,
		Netname:        netname,
		ASN:            res.ASN,
		ASNDescription: asnDesc,
		ISP:            res.ISP,
		PostalCode:     res.Postal,
		Timezone:       res.Timezone,
		DataSource:     res.Source,
	}
	normalize(rec)

	rec.Success = model.SuccessNo
	if rec.Organization != model.NA {
		rec.Success = model.SuccessYes
	}
	return rec
}

// ErrorRecord is substituted for an IP whose processing failed outright
func ErrorRecord(ip string, err error) *model.Record {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if r := []rune(msg); len(r) > maxErrorMsgLen {
		msg = string(r[:maxErrorMsgLen])
	}

	rec := &model.Record{
		IP:             ip,
		Organization:   errorPrefix + msg,
		Country:        model.NA,
		City:           model.NA,
		Region:         model.NA,
		Netname:        model.NA,
		ASN:            model.NA,
		ASNDescription: model.NA,
		ISP:            model.NA,
		PostalCode:     model.NA,
		Timezone:       model.NA,
		DataSource:     model.SourceError,
		Success:        model.SuccessNo,
	}
	normalize(rec)
	return rec
}

// NetworkInfo derives a netname and ASN description from whichever of
// organization, ISP or ASN is known, in that order
func NetworkInfo(org, isp, asn string) (netname, description string) {
	switch {
	case known(org):
		return Netname(org), org
	case known(isp):
		return Netname(isp), isp
	case known(asn):
		id := "AS" + asn
		return id, id
	}
	return model.NA, model.NA
}

// Netname uppercases name, strips everything but ASCII letters and digits
// and truncates to 20 characters
func Netname(name string) string {
	n := nonAlnum.ReplaceAllString(strings.ToUpper(name), "")
	if len(n) > maxNetnameLen {
		n = n[:maxNetnameLen]
	}
	return n
}

// Clean collapses runs of Unicode whitespace to one space and maps empty or
// null-like values to N/A
func Clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	switch s {
	case "", "None", "null":
		return model.NA
	}
	return s
}

func known(s string) bool {
	return Clean(s) != model.NA
}

func normalize(rec *model.Record) {
	for _, f := range []*string{
		&rec.IP, &rec.Organization, &rec.Country, &rec.City, &rec.Region,
		&rec.Netname, &rec.ASN, &rec.ASNDescription, &rec.ISP,
		&rec.PostalCode, &rec.Timezone, &rec.DataSource, &rec.Success,
	} {
		*f = Clean(*f)
	}
}
