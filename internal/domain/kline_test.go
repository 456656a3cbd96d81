package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKlineFromTuple(t *testing.T) {
	tests := []struct {
		name    string
		tuple   []string
		wantErr bool
	}{
		{
			name:  "valid bybit tuple",
			tuple: []string{"1717200000000", "67500.5", "67800", "67400.25", "67650", "1234.5", "83456789.12"},
		},
		{
			name:    "too few fields",
			tuple:   []string{"1717200000000", "1", "2", "3", "4", "5"},
			wantErr: true,
		},
		{
			name:    "bad timestamp",
			tuple:   []string{"yesterday", "1", "2", "3", "4", "5", "6"},
			wantErr: true,
		},
		{
			name:    "bad price",
			tuple:   []string{"1717200000000", "1", "abc", "3", "4", "5", "6"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewKlineFromTuple(tt.tuple)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1717200000000), k.Timestamp)
			assert.Equal(t, "67500.5", k.Open.String())
			assert.Equal(t, "67800", k.High.String())
			assert.Equal(t, "67400.25", k.Low.String())
			assert.Equal(t, "83456789.12", k.Turnover.String())
			assert.Equal(t, tt.tuple, k.Tuple())
		})
	}
}

func TestKline_TupleKeepsSourceText(t *testing.T) {
	tuple := []string{"1717200000000", "0.10000", "67800.00", "1e2", "67650", "1234.50000000", "0"}
	k, err := NewKlineFromTuple(tuple)
	require.NoError(t, err)

	assert.Equal(t, tuple, k.Tuple(), "source text is written back unchanged")
	assert.Equal(t, "0.1", k.Open.String())

	k.Close = k.Close.Add(decimal.NewFromInt(1))
	assert.Equal(t, "67651", k.Tuple()[4], "a changed field falls back to the canonical form")
	assert.Equal(t, "0.10000", k.Tuple()[1])
}

func TestKline_TupleWithoutSourceText(t *testing.T) {
	k := &Kline{Timestamp: 5, Open: decimal.RequireFromString("1.50")}
	assert.Equal(t, []string{"5", "1.5", "0", "0", "0", "0", "0"}, k.Tuple())
}

func TestSeries_Sorted(t *testing.T) {
	assert.True(t, Series{}.Sorted())
	assert.True(t, Series{{Timestamp: 1}, {Timestamp: 2}, {Timestamp: 5}}.Sorted())
	assert.False(t, Series{{Timestamp: 2}, {Timestamp: 1}}.Sorted())

	s := Series{{Timestamp: 10}, {Timestamp: 20}}
	assert.Equal(t, []int64{10, 20}, s.Timestamps())
	assert.Equal(t, int64(10), s.First().Timestamp)
	assert.Equal(t, int64(20), s.Last().Timestamp)
	assert.Nil(t, Series{}.First())
	assert.Nil(t, Series{}.Last())
}

func TestParseExchange(t *testing.T) {
	ex, ok := ParseExchange(" Bybit ")
	assert.True(t, ok)
	assert.Equal(t, ExchangeBybit, ex)

	ex, ok = ParseExchange("BINANCE")
	assert.True(t, ok)
	assert.Equal(t, ExchangeBinance, ex)

	_, ok = ParseExchange("kraken")
	assert.False(t, ok)
}
