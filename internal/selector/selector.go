// Package selector decides which symbols a run downloads.
package selector

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"klineDownloader/internal/domain"
	"klineDownloader/internal/ports"
)

// DefaultSampleSize is the number of symbols drawn in sampled mode.
const DefaultSampleSize = 50

// Explicit returns the operator's symbol, trimmed and uppercased.
func Explicit(input string) ([]string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(input))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", ports.ErrInvalidRequest)
	}
	return []string{symbol}, nil
}

// Eligible reports whether a listed symbol can be sampled. Dated contracts
// (containing '-') and PERP-suffixed names are excluded.
func Eligible(symbol string) bool {
	if symbol == "" || strings.Contains(symbol, "-") {
		return false
	}
	return !strings.Contains(strings.ToLower(symbol), "perp")
}

// Sampler draws a random subset of an exchange's listed symbols.
type Sampler struct {
	lister   ports.InstrumentLister
	category domain.Category
	size     int
	rng      *rand.Rand
	logger   ports.Logger
}

// SamplerConfig holds configuration for a Sampler.
type SamplerConfig struct {
	Category domain.Category // Category listed; defaults to linear
	Size     int             // Sample size; defaults to DefaultSampleSize
	Rand     *rand.Rand      // Shuffle source; nil means randomly seeded
}

// NewSampler creates a Sampler reading from lister.
func NewSampler(lister ports.InstrumentLister, cfg SamplerConfig, logger ports.Logger) (*Sampler, error) {
	if lister == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Sampler")
	}
	if cfg.Category == "" {
		cfg.Category = domain.CategoryLinear
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultSampleSize
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{
		lister:   lister,
		category: cfg.Category,
		size:     cfg.Size,
		rng:      cfg.Rand,
		logger:   logger,
	}, nil
}

// Sample lists the category, filters ineligible symbols, shuffles the rest
// and returns at most the configured number of them.
func (s *Sampler) Sample(ctx context.Context) ([]string, error) {
	listed, err := s.lister.ListSymbols(ctx, s.category)
	if err != nil {
		return nil, fmt.Errorf("listing %s symbols: %w", s.category, err)
	}

	eligible := make([]string, 0, len(listed))
	for _, symbol := range listed {
		if Eligible(symbol) {
			eligible = append(eligible, symbol)
		}
	}
	s.rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})

	picked := eligible[:min(s.size, len(eligible))]
	s.logger.Info(ctx, "Selected random symbols", map[string]interface{}{
		"listed":   len(listed),
		"eligible": len(eligible),
		"selected": len(picked),
	})
	return picked, nil
}
