package binanceclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klineDownloader/internal/domain"
	"klineDownloader/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

const hourMs = int64(60 * 60 * 1000)

// hourlyKlineServer answers kline requests with one synthetic kline per hour
// between startTime and endTime (inclusive), capped at limit.
func hourlyKlineServer(t *testing.T, path string, calls *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(calls, 1)
		q := r.URL.Query()
		assert.Equal(t, "1h", q.Get("interval"))
		start, _ := strconv.ParseInt(q.Get("startTime"), 10, 64)
		end, _ := strconv.ParseInt(q.Get("endTime"), 10, 64)
		limit, _ := strconv.Atoi(q.Get("limit"))

		first := (start + hourMs - 1) / hourMs * hourMs
		rows := make([][]interface{}, 0)
		for ts := first; ts <= end && len(rows) < limit; ts += hourMs {
			rows = append(rows, []interface{}{
				ts, "100.0", "110.0", "90.0", "105.0", "12.5", ts + hourMs - 1,
				"1312.5", 42, "6.0", "630.0", "0",
			})
		}
		json.NewEncoder(w).Encode(rows)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(Config{Logger: &mockLogger{}})
	require.NoError(t, err)
	assert.Equal(t, futuresURLProduction, c.futuresClient.BaseURL)
	assert.Equal(t, spotURLProduction, c.spotClient.BaseURL)
	assert.Equal(t, domain.ExchangeBinance, c.Name())

	c, err = New(Config{Logger: &mockLogger{}, UseTestnet: true})
	require.NoError(t, err)
	assert.Equal(t, futuresURLTestnet, c.futuresClient.BaseURL)
	assert.Equal(t, spotURLTestnet, c.spotClient.BaseURL)
}

func TestClient_FetchKlines_PagesWithinWindow(t *testing.T) {
	var calls int32
	server := hourlyKlineServer(t, "/fapi/v1/klines", &calls)
	c, err := New(Config{Logger: &mockLogger{}, FuturesBaseURL: server.URL})
	require.NoError(t, err)

	// 2000 hourly buckets: one full page of 1500 plus a short page of 500.
	window := domain.TimeWindow{Start: 0, End: 2000 * hourMs}
	klines, err := c.FetchKlines(context.Background(), domain.CategoryLinear, "BTCUSDT", window, "60")
	require.NoError(t, err)

	require.Len(t, klines, 2000)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int64(0), klines[0].Timestamp)
	assert.Equal(t, 1999*hourMs, klines[len(klines)-1].Timestamp, "window end is exclusive")
	assert.Equal(t, "1312.5", klines[0].Turnover.String())
	assert.Equal(t, "105", klines[0].Close.String())
}

func TestClient_FetchKlines_Spot(t *testing.T) {
	var calls int32
	server := hourlyKlineServer(t, "/api/v3/klines", &calls)
	c, err := New(Config{Logger: &mockLogger{}, SpotBaseURL: server.URL})
	require.NoError(t, err)

	klines, err := c.FetchKlines(context.Background(), domain.CategorySpot, "ETHUSDT", domain.TimeWindow{Start: 0, End: 3 * hourMs}, "60")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, hourMs, 2 * hourMs}, domain.Series(klines).Timestamps())
}

func TestClient_FetchKlines_Unsupported(t *testing.T) {
	c, err := New(Config{Logger: &mockLogger{}, FuturesBaseURL: "http://127.0.0.1:0"})
	require.NoError(t, err)

	_, err = c.FetchKlines(context.Background(), domain.CategoryLinear, "BTCUSDT", domain.TimeWindow{Start: 0, End: 10}, "7")
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	_, err = c.FetchKlines(context.Background(), domain.CategoryInverse, "BTCUSD", domain.TimeWindow{Start: 0, End: 10}, "60")
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestClient_FetchKlines_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer server.Close()

	c, err := New(Config{Logger: &mockLogger{}, FuturesBaseURL: server.URL})
	require.NoError(t, err)

	klines, err := c.FetchKlines(context.Background(), domain.CategoryLinear, "NOPE", domain.TimeWindow{Start: 0, End: hourMs}, "60")
	require.Error(t, err)
	assert.Nil(t, klines)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestClient_ListSymbols(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/exchangeInfo", r.URL.Path)
		w.Write([]byte(`{"timezone":"UTC","serverTime":1717200000000,"symbols":[
			{"symbol":"BTCUSDT","status":"TRADING","contractType":"PERPETUAL"},
			{"symbol":"ETHUSDT_240628","status":"SETTLING","contractType":"CURRENT_QUARTER"},
			{"symbol":"SOLUSDT","status":"TRADING","contractType":"PERPETUAL"}
		]}`))
	}))
	defer server.Close()

	c, err := New(Config{Logger: &mockLogger{}, FuturesBaseURL: server.URL})
	require.NoError(t, err)

	symbols, err := c.ListSymbols(context.Background(), domain.CategoryLinear)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, symbols)

	_, err = c.ListSymbols(context.Background(), domain.CategoryInverse)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestIntervalsCoverConfigCodes(t *testing.T) {
	for _, code := range []string{"1", "3", "5", "15", "30", "60", "120", "240", "360", "720", "D", "W", "M"} {
		_, ok := intervals[code]
		assert.True(t, ok, "interval %s", code)
	}
	assert.True(t, SupportsCategory(domain.CategorySpot))
	assert.False(t, SupportsCategory(domain.CategoryInverse))
}
