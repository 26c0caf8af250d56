// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package sources

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"whoisreport/pkg/model"
)

// Provider is a single source of IP metadata
type Provider interface {
	// Name identifies the provider; it becomes the record's data source
	Name() string

	// Lookup returns normalized metadata for ip, or an error if this
	// provider has nothing usable for it
	Lookup(ctx context.Context, ip string) (*model.LookupResult, error)
}

// Chain consults providers in order and returns the first usable answer
type Chain struct {
	providers []Provider
}

// NewChain creates a chain over providers in priority order
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Names returns the provider names in priority order
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Lookup tries each provider once. When all of them fail the no-data
// result is returned; an error is returned only if ctx is done.
func (c *Chain) Lookup(ctx context.Context, ip string) (*model.LookupResult, error) {
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("lookup %s cancelled: %w", ip, err)
		}

		res, err := p.Lookup(ctx, ip)
		if err == nil && res == nil {
			err = model.ErrNoData
		}
		if err != nil {
			log.Debug().Err(err).Str("provider", p.Name()).Str("ip", ip).Msg("provider failed")
			continue
		}
		if res.Source == "" {
			res.Source = p.Name()
		}
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("lookup %s cancelled: %w", ip, err)
	}
	return model.NoDataResult(), nil
}
