package ports

import (
	"context"

	"klineDownloader/internal/domain"
)

// KlineSource is one exchange's historical market-data endpoint.
type KlineSource interface {
	// FetchKlines returns the klines of symbol inside window at the given bucket interval
	// (minutes, or D/W/M). An empty slice with a nil error means the exchange had no data.
	FetchKlines(ctx context.Context, category domain.Category, symbol string, window domain.TimeWindow, interval string) ([]*domain.Kline, error)
}

// InstrumentLister lists tradable instrument identifiers.
type InstrumentLister interface {
	// ListSymbols returns every tradable symbol in category, in exchange order.
	ListSymbols(ctx context.Context, category domain.Category) ([]string, error)
}

// ExchangeClient is implemented by every exchange adapter.
type ExchangeClient interface {
	KlineSource
	InstrumentLister

	// Name identifies the exchange in logs and output locations.
	Name() domain.Exchange
}

// RequestLimiter is implemented by sources whose single request returns a
// bounded number of klines.
type RequestLimiter interface {
	MaxKlinesPerRequest() int
}
