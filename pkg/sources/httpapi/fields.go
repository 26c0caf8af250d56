// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package httpapi

// Canonical field names shared by every provider mapping
const (
	FieldOrg      = "org"
	FieldCountry  = "country"
	FieldCity     = "city"
	FieldRegion   = "region"
	FieldASN      = "asn"
	FieldISP      = "isp"
	FieldPostal   = "postal"
	FieldTimezone = "timezone"
)

// CanonicalFields lists the canonical names in display order
var CanonicalFields = []string{
	FieldOrg, FieldCountry, FieldCity, FieldRegion,
	FieldASN, FieldISP, FieldPostal, FieldTimezone,
}

// FieldMap maps a canonical field name to the provider's JSON key.
// A canonical field missing from the map is never filled by that provider.
type FieldMap map[string]string

// Merge returns a copy of m with the entries of override applied on top
func (m FieldMap) Merge(override FieldMap) FieldMap {
	out := make(FieldMap, len(m)+len(override))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Endpoint describes one hosted lookup service
type Endpoint struct {
	Name   string   // Provider name, also the record's data source
	URL    string   // URL template; {ip} is replaced with the address
	Fields FieldMap // Canonical field -> provider JSON key
}

// Names of the built-in endpoints
const (
	NameIPAPI   = "ipapi.co"
	NameIPWhois = "ipwhois.app"
)

// DefaultEndpoints returns the built-in providers in priority order
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{
			Name: NameIPAPI,
			URL:  "http://ipapi.co/{ip}/json/",
			Fields: FieldMap{
				FieldOrg:      "org",
				FieldCountry:  "country_name",
				FieldCity:     "city",
				FieldRegion:   "region",
				FieldASN:      "asn",
				FieldISP:      "isp",
				FieldPostal:   "postal",
				FieldTimezone: "timezone",
			},
		},
		{
			Name: NameIPWhois,
			URL:  "http://ipwhois.app/json/{ip}",
			Fields: FieldMap{
				FieldOrg:      "org",
				FieldCountry:  "country",
				FieldCity:     "city",
				FieldRegion:   "region",
				FieldASN:      "asn",
				FieldISP:      "isp",
				FieldPostal:   "postal",
				FieldTimezone: "timezone",
			},
		},
	}
}

// DefaultEndpoint returns the built-in endpoint called name
func DefaultEndpoint(name string) (Endpoint, bool) {
	for _, ep := range DefaultEndpoints() {
		if ep.Name == name {
			return ep, true
		}
	}
	return Endpoint{}, false
}
