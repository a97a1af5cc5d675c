// Package facility serves validated tenant configuration snapshots.
package facility

import (
	"context"
	"fmt"
	"sync"

	"domebooking/internal/domain"
	"domebooking/internal/models"
	"domebooking/internal/pricing"

	"github.com/rs/zerolog"
)

// Provider loads a FacilityConfig once per slug and hands out the same
// immutable snapshot for the rest of the process. A tenant switch means a
// different slug, never a mutation of a loaded config.
type Provider struct {
	backend domain.FacilityLoader
	logger  *zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*models.FacilityConfig
}

func NewProvider(backend domain.FacilityLoader, logger *zerolog.Logger) *Provider {
	return &Provider{
		backend: backend,
		logger:  logger,
		cache:   make(map[string]*models.FacilityConfig),
	}
}

// Get returns the facility snapshot for a slug, loading it on first use.
// A config with unusable pricing is rejected here so the session machine
// can never compute a zero or garbage price.
func (p *Provider) Get(ctx context.Context, slug string) (*models.FacilityConfig, error) {
	p.mu.RLock()
	cached, ok := p.cache[slug]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	fc, err := p.backend.GetFacility(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load facility %q: %w", slug, err)
	}

	if err := validate(fc); err != nil {
		p.logger.Error().Err(err).Str("facility", slug).Msg("facility config rejected")
		return nil, err
	}

	p.mu.Lock()
	// First load wins if two requests raced.
	if existing, ok := p.cache[slug]; ok {
		fc = existing
	} else {
		p.cache[slug] = fc
	}
	p.mu.Unlock()

	return fc, nil
}

func validate(fc *models.FacilityConfig) error {
	if fc.Slug == "" {
		return fmt.Errorf("facility config has no slug")
	}
	if len(fc.Courts) == 0 {
		return fmt.Errorf("facility %q has no courts", fc.Slug)
	}

	seen := make(map[int64]bool, len(fc.Courts))
	for _, court := range fc.Courts {
		if court.ID == 0 {
			return fmt.Errorf("facility %q: court %q has invalid ID 0", fc.Slug, court.Name)
		}
		if seen[court.ID] {
			return fmt.Errorf("facility %q: duplicate court ID %d", fc.Slug, court.ID)
		}
		seen[court.ID] = true
	}

	if err := pricing.ValidateConfig(fc.Pricing); err != nil {
		return fmt.Errorf("facility %q: %w", fc.Slug, err)
	}
	return nil
}
