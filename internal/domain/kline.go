package domain

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Kline represents a single candlestick data point as reported by the exchange.
type Kline struct {
	Timestamp int64           // Bucket start, milliseconds since epoch. Unique within a Series.
	Open      decimal.Decimal // Opening price
	High      decimal.Decimal // Highest price
	Low       decimal.Decimal // Lowest price
	Close     decimal.Decimal // Closing price
	Volume    decimal.Decimal // Traded quantity
	Turnover  decimal.Decimal // Traded value in quote currency

	// raw holds the exchange's text for the six decimal fields, in tuple order.
	raw [6]string
}

// NewKlineFromTuple builds a Kline from the exchange's positional shape
// [timestamp, open, high, low, close, volume, turnover].
func NewKlineFromTuple(tuple []string) (*Kline, error) {
	if len(tuple) < 7 {
		return nil, fmt.Errorf("kline tuple has %d fields, want 7", len(tuple))
	}
	ts, err := strconv.ParseInt(tuple[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp '%s': %w", tuple[0], err)
	}

	names := [6]string{"open", "high", "low", "close", "volume", "turnover"}
	var values [6]decimal.Decimal
	for i := range values {
		v, err := decimal.NewFromString(tuple[i+1])
		if err != nil {
			return nil, fmt.Errorf("parsing %s '%s': %w", names[i], tuple[i+1], err)
		}
		values[i] = v
	}

	k := &Kline{
		Timestamp: ts,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		Turnover:  values[5],
	}
	copy(k.raw[:], tuple[1:7])
	return k, nil
}

// Tuple returns the kline in the exchange's positional shape. Values parsed
// from a tuple keep their original text ("0.10000" stays "0.10000") unless
// the field was changed since; other values use the canonical decimal form.
func (k *Kline) Tuple() []string {
	values := [6]decimal.Decimal{k.Open, k.High, k.Low, k.Close, k.Volume, k.Turnover}
	out := make([]string, 0, 7)
	out = append(out, strconv.FormatInt(k.Timestamp, 10))
	for i, v := range values {
		out = append(out, formatDecimal(v, k.raw[i]))
	}
	return out
}

func formatDecimal(v decimal.Decimal, raw string) string {
	if raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil && parsed.Equal(v) {
			return raw
		}
	}
	return v.String()
}
