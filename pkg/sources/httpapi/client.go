// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"whoisreport/pkg/model"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20
)

// Options configures a Client
type Options struct {
	Timeout   time.Duration // Per-request timeout (default 10s)
	UserAgent string
	RateLimit float64 // Requests per second (0 = no limit)
}

// Client queries one hosted geo-IP endpoint
type Client struct {
	endpoint   Endpoint
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewClient creates a client for ep
func NewClient(ep Endpoint, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), int(opts.RateLimit)+1)
	}

	return &Client{
		endpoint:   ep,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
		userAgent:  opts.UserAgent,
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return c.endpoint.Name
}

// URL returns the request URL for ip
func (c *Client) URL(ip string) string {
	return strings.ReplaceAll(c.endpoint.URL, "{ip}", url.PathEscape(ip))
}

// Lookup performs a single GET for ip. Transport errors, non-200 responses
// and invalid payloads are all reported as errors.
func (c *Client) Lookup(ctx context.Context, ip string) (*model.LookupResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(ip), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", c.endpoint.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", c.endpoint.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", c.endpoint.Name, err)
	}

	res, err := Parse(body, c.endpoint.Fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.endpoint.Name, err)
	}
	res.Source = c.endpoint.Name
	return res, nil
}

// Parse decodes a provider payload and maps it through fields
func Parse(body []byte, fields FieldMap) (*model.LookupResult, error) {
	var data map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if err := validate(data, fields); err != nil {
		return nil, err
	}

	get := func(field string) string {
		key, ok := fields[field]
		if !ok || key == "" {
			return model.NA
		}
		v, ok := data[key]
		if !ok {
			return model.NA
		}
		return valueString(v)
	}

	return &model.LookupResult{
		Org:      get(FieldOrg),
		Country:  get(FieldCountry),
		City:     get(FieldCity),
		Region:   get(FieldRegion),
		ASN:      get(FieldASN),
		ISP:      get(FieldISP),
		Postal:   get(FieldPostal),
		Timezone: get(FieldTimezone),
	}, nil
}

// validate rejects payloads that flag an error or a reserved address, or
// that carry none of the mapped fields
func validate(data map[string]any, fields FieldMap) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", model.ErrInvalidPayload)
	}

	if truthy(data["error"]) {
		return fmt.Errorf("%w: error flag set (%s)", model.ErrInvalidPayload, reason(data))
	}
	if v, ok := data["success"].(bool); ok && !v {
		return fmt.Errorf("%w: success=false (%s)", model.ErrInvalidPayload, reason(data))
	}
	if truthy(data["reserved"]) || truthy(data["bogon"]) {
		return fmt.Errorf("%w: reserved address", model.ErrInvalidPayload)
	}

	for _, key := range fields {
		if _, ok := data[key]; ok && key != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: no expected fields", model.ErrInvalidPayload)
}

func reason(data map[string]any) string {
	for _, key := range []string{"reason", "message"} {
		if s, ok := data[key].(string); ok && s != "" {
			return s
		}
	}
	return "no reason given"
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	}
	return true
}

// valueString renders a JSON value as report text; null is absent
func valueString(v any) string {
	switch x := v.(type) {
	case nil:
		return model.NA
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
