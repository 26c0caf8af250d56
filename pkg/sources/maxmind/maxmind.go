// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package maxmind

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"

	"whoisreport/pkg/model"
)

// Name is the provider name used as the record's data source
const Name = "maxmind"

// Readers contains MaxMind database readers. Either reader may be nil.
type Readers struct {
	ASN  *geoip2.Reader
	City *geoip2.Reader
}

// Open opens the MaxMind database readers; an empty path skips that database
func Open(asnPath, cityPath string) (*Readers, error) {
	if asnPath == "" && cityPath == "" {
		return nil, fmt.Errorf("no MaxMind database configured")
	}

	r := &Readers{}
	if asnPath != "" {
		asnDB, err := geoip2.Open(asnPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open ASN database: %w", err)
		}
		r.ASN = asnDB
	}

	if cityPath != "" {
		cityDB, err := geoip2.Open(cityPath)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to open City database: %w", err)
		}
		r.City = cityDB
	}

	return r, nil
}

// Close closes both database readers
func (r *Readers) Close() error {
	var err error
	if r.ASN != nil {
		if e := r.ASN.Close(); e != nil {
			err = e
		}
	}
	if r.City != nil {
		if e := r.City.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// ASNInfo returns the ASN number and organization name for an IP
func (r *Readers) ASNInfo(ip netip.Addr) (number uint, name string, err error) {
	if r.ASN == nil {
		return 0, "", fmt.Errorf("ASN database not loaded")
	}
	record, err := r.ASN.ASN(net.IP(ip.AsSlice()))
	if err != nil {
		return 0, "", fmt.Errorf("ASN lookup failed: %w", err)
	}
	return record.AutonomousSystemNumber, record.AutonomousSystemOrganization, nil
}

// GeoInfo represents geographic information for an IP
type GeoInfo struct {
	Country  string
	Region   string
	City     string
	Postal   string
	TimeZone string
}

// Geo returns geographic information for an IP
func (r *Readers) Geo(ip netip.Addr) (*GeoInfo, error) {
	if r.City == nil {
		return nil, fmt.Errorf("City database not loaded")
	}
	record, err := r.City.City(net.IP(ip.AsSlice()))
	if err != nil {
		return nil, fmt.Errorf("geo lookup failed: %w", err)
	}

	info := &GeoInfo{
		Country:  record.Country.Names["en"],
		City:     record.City.Names["en"],
		Postal:   record.Postal.Code,
		TimeZone: record.Location.TimeZone,
	}
	if info.Country == "" {
		info.Country = record.Country.IsoCode
	}

	// Get region name (subdivision)
	if len(record.Subdivisions) > 0 {
		info.Region = record.Subdivisions[0].Names["en"]
	}

	return info, nil
}

// Provider answers lookups from local GeoLite2 databases
type Provider struct {
	readers *Readers
}

// NewProvider creates a provider over opened readers
func NewProvider(readers *Readers) *Provider {
	return &Provider{readers: readers}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return Name
}

// Lookup resolves ip against whichever databases are loaded
func (p *Provider) Lookup(ctx context.Context, ip string) (*model.LookupResult, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil, fmt.Errorf("invalid IP %q: %w", ip, err)
	}

	var (
		asn     uint
		asnName string
		geo     *GeoInfo
	)
	if p.readers.ASN != nil {
		if asn, asnName, err = p.readers.ASNInfo(addr); err != nil {
			return nil, err
		}
	}
	if p.readers.City != nil {
		if geo, err = p.readers.Geo(addr); err != nil {
			return nil, err
		}
	}

	return toLookupResult(asn, asnName, geo)
}

// toLookupResult maps database answers to the common field set. An address
// the databases know nothing about is reported as an error so the caller
// can fall through.
func toLookupResult(asn uint, asnName string, geo *GeoInfo) (*model.LookupResult, error) {
	res := &model.LookupResult{
		Org:      orNA(asnName),
		Country:  model.NA,
		City:     model.NA,
		Region:   model.NA,
		ASN:      model.NA,
		ISP:      model.NA,
		Postal:   model.NA,
		Timezone: model.NA,
		Source:   Name,
	}
	if asn != 0 {
		res.ASN = fmt.Sprintf("AS%d", asn)
	}
	if geo != nil {
		res.Country = orNA(geo.Country)
		res.City = orNA(geo.City)
		res.Region = orNA(geo.Region)
		res.Postal = orNA(geo.Postal)
		res.Timezone = orNA(geo.TimeZone)
	}

	if res.Org == model.NA && res.ASN == model.NA && res.Country == model.NA {
		return nil, model.ErrNoData
	}
	return res, nil
}

func orNA(s string) string {
	if s == "" {
		return model.NA
	}
	return s
}
