package ports

import (
	"context"

	"klineDownloader/internal/domain"
)

// SeriesWriter persists a finished series for one symbol.
type SeriesWriter interface {
	// WriteSeries stores series under a location derived from symbol and returns that location.
	WriteSeries(ctx context.Context, symbol string, series domain.Series) (string, error)
}

// SeriesReader loads a previously written series.
type SeriesReader interface {
	// LoadSeries returns the stored series for symbol in ascending order.
	// An unknown symbol yields ErrNotFound.
	LoadSeries(ctx context.Context, symbol string) (domain.Series, error)
}
