// Package collector downloads a symbol's full kline history window by window
// and merges the windows into one ordered, de-duplicated series.
package collector

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"klineDownloader/internal/domain"
	"klineDownloader/internal/ports"
)

// Config bounds one collection run.
type Config struct {
	StartMs       int64           // Inclusive start of the span
	EndMs         int64           // Exclusive end of the span
	ChunkDuration time.Duration   // Width of each fetch window
	Interval      string          // Bucket size passed to the source
	Category      domain.Category // Product category passed to the source
}

// Validate checks the fields the chunk loop depends on.
func (c Config) Validate() error {
	if c.ChunkDuration.Milliseconds() <= 0 {
		return fmt.Errorf("chunk duration must be at least 1ms, got %s: %w", c.ChunkDuration, ports.ErrConfigurationError)
	}
	if c.Interval == "" {
		return fmt.Errorf("interval is required: %w", ports.ErrConfigurationError)
	}
	return nil
}

// Collector is the paginated collector.
type Collector struct {
	fetcher *RangeFetcher
	cfg     Config
	logger  ports.Logger
}

// New creates a collector that reads from source.
func New(source ports.KlineSource, cfg Config, logger ports.Logger) (*Collector, error) {
	if source == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Collector")
	}
	if cfg.Interval == "" {
		cfg.Interval = domain.DefaultInterval
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{
		fetcher: NewRangeFetcher(source, logger),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Config returns the collector's span configuration.
func (c *Collector) Config() Config {
	return c.cfg
}

// BucketsPerWindow estimates how many klines one full window holds. ok is false
// for interval codes without a fixed width.
func (c Config) BucketsPerWindow() (n int64, ok bool) {
	width, ok := IntervalDuration(c.Interval)
	if !ok {
		return 0, false
	}
	return int64(c.ChunkDuration / width), true
}

// IntervalDuration converts an interval code (minutes, D, W) to its width.
// Months have no fixed width.
func IntervalDuration(interval string) (time.Duration, bool) {
	switch interval {
	case "D":
		return 24 * time.Hour, true
	case "W":
		return 7 * 24 * time.Hour, true
	case "M", "":
		return 0, false
	}
	minutes, err := strconv.Atoi(interval)
	if err != nil || minutes <= 0 {
		return 0, false
	}
	return time.Duration(minutes) * time.Minute, true
}

// Windows splits [start, end) into consecutive windows of chunk milliseconds.
// The last window is narrower when the span is not a multiple of chunk.
func Windows(start, end, chunk int64) []domain.TimeWindow {
	if chunk <= 0 || start >= end {
		return nil
	}
	var windows []domain.TimeWindow
	for cursor := start; cursor < end; {
		// Compare the remaining span in uint64 so neither end-cursor nor
		// cursor+chunk can overflow.
		windowEnd := end
		if uint64(end)-uint64(cursor) > uint64(chunk) {
			windowEnd = cursor + chunk
		}
		windows = append(windows, domain.TimeWindow{Start: cursor, End: windowEnd})
		cursor = windowEnd
	}
	return windows
}

// Collect fetches every window of the configured span for symbol, in chronological
// order, and returns the merged series sorted by timestamp.
//
// A failed window contributes nothing; the run continues with the next one.
// When ctx is canceled between windows the series gathered so far is returned
// together with the context error.
func (c *Collector) Collect(ctx context.Context, symbol string) (domain.Series, error) {
	windows := Windows(c.cfg.StartMs, c.cfg.EndMs, c.cfg.ChunkDuration.Milliseconds())
	c.logger.Info(ctx, "Collecting klines", map[string]interface{}{
		"symbol":   symbol,
		"start":    c.cfg.StartMs,
		"end":      c.cfg.EndMs,
		"windows":  len(windows),
		"interval": c.cfg.Interval,
	})

	merger := newMerger()
	var empty int
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			c.logger.Warn(ctx, "Collection interrupted", map[string]interface{}{"symbol": symbol, "cursor": w.Start})
			return merger.series(), err
		}

		klines := c.fetcher.Fetch(ctx, c.cfg.Category, symbol, w, c.cfg.Interval)
		if len(klines) == 0 {
			empty++
			continue
		}
		merger.add(klines)
	}

	series := merger.series()
	c.logger.Info(ctx, "Collected klines", map[string]interface{}{
		"symbol":       symbol,
		"count":        len(series),
		"emptyWindows": empty,
		"duplicates":   merger.duplicates,
	})
	return series, nil
}

// merger accumulates klines keyed on timestamp. The first kline seen for a
// timestamp wins; later ones are counted and dropped. Lookups go through a set
// instead of scanning the accumulated slice, so insertion is O(1).
type merger struct {
	seen       map[int64]struct{}
	klines     []*domain.Kline
	duplicates int
}

func newMerger() *merger {
	return &merger{seen: make(map[int64]struct{})}
}

func (m *merger) add(klines []*domain.Kline) {
	for _, k := range klines {
		if k == nil {
			continue
		}
		if _, dup := m.seen[k.Timestamp]; dup {
			m.duplicates++
			continue
		}
		m.seen[k.Timestamp] = struct{}{}
		m.klines = append(m.klines, k)
	}
}

func (m *merger) series() domain.Series {
	out := make(domain.Series, len(m.klines))
	copy(out, m.klines)
	SortSeries(out)
	return out
}

// SortSeries orders s ascending by timestamp in place. The sort is stable, so
// sorting an already sorted series leaves it unchanged.
func SortSeries(s domain.Series) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Timestamp < s[j].Timestamp
	})
}
