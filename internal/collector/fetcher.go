package collector

import (
	"context"

	"klineDownloader/internal/domain"
	"klineDownloader/internal/ports"
)

// RangeFetcher issues exactly one source call per window and never fails:
// a source error is logged and the window is reported as empty. The window's
// data is then missing from the final series; nothing retries it.
type RangeFetcher struct {
	source ports.KlineSource
	logger ports.Logger
}

// NewRangeFetcher wraps source.
func NewRangeFetcher(source ports.KlineSource, logger ports.Logger) *RangeFetcher {
	return &RangeFetcher{source: source, logger: logger}
}

// Fetch returns the klines of symbol inside window, or an empty slice.
func (f *RangeFetcher) Fetch(ctx context.Context, category domain.Category, symbol string, window domain.TimeWindow, interval string) []*domain.Kline {
	klines, err := f.source.FetchKlines(ctx, category, symbol, window, interval)
	if err != nil {
		f.logger.Error(ctx, err, "Error fetching kline data", map[string]interface{}{
			"symbol":   symbol,
			"start":    window.Start,
			"end":      window.End,
			"interval": interval,
		})
		return []*domain.Kline{}
	}
	if klines == nil {
		return []*domain.Kline{}
	}
	return klines
}
