package bybitclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hirokisan/bybit/v2"
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

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(Config{BaseURL: server.URL, Logger: &mockLogger{}})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err, "logger is required")

	c, err := New(Config{Logger: &mockLogger{}})
	require.NoError(t, err)
	assert.Equal(t, bybit.MainNetBaseURL, c.baseURL)
	assert.Equal(t, 30*time.Second, c.timeout)

	c, err = New(Config{Logger: &mockLogger{}, UseTestnet: true, Timeout: 5 * time.Second, APIKey: "key", SecretKey: "secret"})
	require.NoError(t, err)
	assert.Equal(t, bybit.TestNetBaseURL, c.baseURL)
	assert.Equal(t, 5*time.Second, c.timeout)
	assert.Equal(t, domain.ExchangeBybit, c.Name())
}

func TestClient_FetchKlines(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"inverse","symbol":"BTCUSD","list":[
			["1717203600000","67600","67700","67500","67650","2000","29.6"],
			["1717200000000","67500","67800","67400","67600","1000","14.8"]
		]},"retExtInfo":{},"time":1717300000000}`))
	})

	klines, err := c.FetchKlines(context.Background(), domain.CategoryInverse, "BTCUSD",
		domain.TimeWindow{Start: 1717200000000, End: 1717632000000}, "60")
	require.NoError(t, err)

	assert.Equal(t, "/v5/market/kline", gotPath)
	assert.Equal(t, map[string]string{
		"category": "inverse",
		"symbol":   "BTCUSD",
		"interval": "60",
		"start":    "1717200000000",
		"end":      "1717632000000",
	}, gotQuery)

	require.Len(t, klines, 2)
	// Exchange order is preserved; sorting is the collector's job.
	assert.Equal(t, int64(1717203600000), klines[0].Timestamp)
	assert.Equal(t, "67650", klines[0].Close.String())
	assert.Equal(t, "14.8", klines[1].Turnover.String())
}

func TestClient_FetchKlines_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"inverse","symbol":"XYZ","list":[]},"retExtInfo":{},"time":1}`))
	})

	klines, err := c.FetchKlines(context.Background(), domain.CategoryInverse, "XYZ", domain.TimeWindow{Start: 0, End: 10}, "60")
	require.NoError(t, err)
	assert.NotNil(t, klines)
	assert.Empty(t, klines)
}

func TestClient_FetchKlines_RetCodes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"invalid symbol", `{"retCode":10001,"retMsg":"Not supported symbols","result":{},"retExtInfo":{},"time":1}`, ports.ErrInvalidRequest},
		{"invalid key", `{"retCode":10003,"retMsg":"API key is invalid.","result":{},"retExtInfo":{},"time":1}`, ports.ErrAuthenticationFailed},
		{"unmapped", `{"retCode":170001,"retMsg":"Internal error.","result":{},"retExtInfo":{},"time":1}`, ports.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			klines, err := c.FetchKlines(context.Background(), domain.CategoryInverse, "BTCUSD", domain.TimeWindow{Start: 0, End: 10}, "60")
			require.Error(t, err)
			assert.Nil(t, klines)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestClient_FetchKlines_BadNumber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"inverse","symbol":"BTCUSD","list":[
			["1717200000000","abc","1","1","1","1","1"]
		]},"retExtInfo":{},"time":1}`))
	})

	_, err := c.FetchKlines(context.Background(), domain.CategoryInverse, "BTCUSD", domain.TimeWindow{Start: 0, End: 10}, "60")
	assert.ErrorIs(t, err, ports.ErrMalformedResponse)
}

func TestClient_FetchKlines_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, err := New(Config{BaseURL: url, Logger: &mockLogger{}})
	require.NoError(t, err)

	_, err = c.FetchKlines(context.Background(), domain.CategoryInverse, "BTCUSD", domain.TimeWindow{Start: 0, End: 10}, "60")
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
}

func TestClient_FetchKlines_ContextCanceled(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"retCode":0,"result":{"list":[]}}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchKlines(ctx, domain.CategoryInverse, "BTCUSD", domain.TimeWindow{Start: 0, End: 10}, "60")
	assert.ErrorIs(t, err, ports.ErrContextCanceled)
	assert.Zero(t, calls, "no request after cancellation")
}

func TestClient_FetchKlines_CancelWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"retCode":0,"result":{"list":[]}}`))
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchKlines(ctx, domain.CategoryInverse, "BTCUSD", domain.TimeWindow{Start: 0, End: 10}, "60")
	assert.ErrorIs(t, err, ports.ErrTimeout)
}

func TestClient_ListSymbols(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/tickers", r.URL.Path)
		assert.Equal(t, "linear", r.URL.Query().Get("category"))
		w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[
			{"symbol":"BTCUSDT","lastPrice":"67000"},
			{"symbol":"ETHPERP","lastPrice":"3500"},
			{"symbol":""},
			{"symbol":"BTC-26JUL24","lastPrice":"68000"}
		]},"retExtInfo":{},"time":1}`))
	})

	symbols, err := c.ListSymbols(context.Background(), domain.CategoryLinear)
	require.NoError(t, err)
	// Filtering is the selector's job; only blank entries are dropped here.
	assert.Equal(t, []string{"BTCUSDT", "ETHPERP", "BTC-26JUL24"}, symbols)
}

func TestClient_MaxKlinesPerRequest(t *testing.T) {
	c, err := New(Config{Logger: &mockLogger{}})
	require.NoError(t, err)

	var limiter ports.RequestLimiter = c
	assert.Equal(t, PageLimit, limiter.MaxKlinesPerRequest())
}
