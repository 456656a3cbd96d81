package utils

import (
	"time"

	"github.com/shopspring/decimal"

	"klineDownloader/internal/domain"
)

// Gap is a run of missing buckets between two consecutive klines.
type Gap struct {
	After   int64 // Timestamp of the kline before the gap
	Before  int64 // Timestamp of the kline after the gap
	Missing int64 // Buckets absent between them
}

// SeriesStats summarizes a downloaded series.
type SeriesStats struct {
	Count      int
	First      int64
	Last       int64
	High       decimal.Decimal
	Low        decimal.Decimal
	Volume     decimal.Decimal
	Gaps       []Gap
	Duplicates int  // Repeated timestamps; zero for a well-formed series
	Ordered    bool // Strictly ascending
}

// MissingBuckets totals the buckets absent across all gaps.
func (s SeriesStats) MissingBuckets() int64 {
	var n int64
	for _, g := range s.Gaps {
		n += g.Missing
	}
	return n
}

// CalculateSeriesStats scans series once. step is the bucket width; a zero
// step disables gap detection (monthly klines have no fixed width).
func CalculateSeriesStats(series domain.Series, step time.Duration) SeriesStats {
	stats := SeriesStats{Count: len(series), Ordered: true}
	if len(series) == 0 {
		return stats
	}

	stepMs := step.Milliseconds()
	stats.First = series[0].Timestamp
	stats.Last = series[len(series)-1].Timestamp
	stats.High = series[0].High
	stats.Low = series[0].Low

	for i, k := range series {
		stats.Volume = stats.Volume.Add(k.Volume)
		if k.High.GreaterThan(stats.High) {
			stats.High = k.High
		}
		if k.Low.LessThan(stats.Low) {
			stats.Low = k.Low
		}
		if i == 0 {
			continue
		}

		prev := series[i-1].Timestamp
		switch {
		case k.Timestamp == prev:
			stats.Duplicates++
			stats.Ordered = false
		case k.Timestamp < prev:
			stats.Ordered = false
		case stepMs > 0 && k.Timestamp-prev > stepMs:
			stats.Gaps = append(stats.Gaps, Gap{
				After:   prev,
				Before:  k.Timestamp,
				Missing: (k.Timestamp-prev)/stepMs - 1,
			})
		}
	}
	return stats
}
