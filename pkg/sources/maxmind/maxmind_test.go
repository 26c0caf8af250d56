// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package maxmind

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"whoisreport/pkg/model"
)

func TestToLookupResult(t *testing.T) {
	tests := []struct {
		name    string
		asn     uint
		asnName string
		geo     *GeoInfo
		want    *model.LookupResult
		wantErr bool
	}{
		{
			name:    "asn and city data",
			asn:     15169,
			asnName: "GOOGLE",
			geo:     &GeoInfo{Country: "United States", Region: "California", City: "Mountain View", Postal: "94043", TimeZone: "America/Los_Angeles"},
			want: &model.LookupResult{
				Org: "GOOGLE", Country: "United States", City: "Mountain View", Region: "California",
				ASN: "AS15169", ISP: model.NA, Postal: "94043", Timezone: "America/Los_Angeles", Source: Name,
			},
		},
		{
			name:    "asn database only",
			asn:     3320,
			asnName: "Deutsche Telekom AG",
			want: &model.LookupResult{
				Org: "Deutsche Telekom AG", Country: model.NA, City: model.NA, Region: model.NA,
				ASN: "AS3320", ISP: model.NA, Postal: model.NA, Timezone: model.NA, Source: Name,
			},
		},
		{
			name: "country only",
			geo:  &GeoInfo{Country: "France"},
			want: &model.LookupResult{
				Org: model.NA, Country: "France", City: model.NA, Region: model.NA,
				ASN: model.NA, ISP: model.NA, Postal: model.NA, Timezone: model.NA, Source: Name,
			},
		},
		{
			name:    "unknown address",
			geo:     &GeoInfo{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toLookupResult(tt.asn, tt.asnName, tt.geo)
			if tt.wantErr {
				if !errors.Is(err, model.ErrNoData) {
					t.Errorf("got error %v, want %v", err, model.ErrNoData)
				}
				return
			}
			if err != nil {
				t.Fatalf("toLookupResult() error = %v", err)
			}
			if *got != *tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open("", ""); err == nil {
		t.Error("expected error with no databases")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"), ""); err == nil {
		t.Error("expected error for missing ASN database")
	}
}

func TestProviderInvalidIP(t *testing.T) {
	p := NewProvider(&Readers{})
	if p.Name() != Name {
		t.Errorf("got name %s, want %s", p.Name(), Name)
	}
	if _, err := p.Lookup(context.Background(), "not-an-ip"); err == nil {
		t.Error("expected error for invalid IP")
	}
	// No databases loaded: nothing is known about the address.
	if _, err := p.Lookup(context.Background(), "8.8.8.8"); !errors.Is(err, model.ErrNoData) {
		t.Errorf("got error %v, want %v", err, model.ErrNoData)
	}
}
