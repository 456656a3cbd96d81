package bybitclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hirokisan/bybit/v2"

	"klineDownloader/internal/domain"
	"klineDownloader/internal/ports"
)

const (
	// PageLimit is the number of klines Bybit returns when no limit is sent.
	PageLimit = 200
)

var errMalformed = errors.New("malformed response")

// Client implements ports.ExchangeClient against the Bybit v5 REST API.
type Client struct {
	api     *bybit.Client
	baseURL string
	timeout time.Duration
	logger  ports.Logger
}

// Config holds configuration specific to the Bybit client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	BaseURL    string        // Overrides the production/testnet URL when set
	Timeout    time.Duration // HTTP timeout; defaults to 30s
	Logger     ports.Logger
}

// New creates a new Bybit client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Bybit client")
	}

	api := bybit.NewClient()
	if cfg.APIKey != "" && cfg.SecretKey != "" {
		api = api.WithAuth(cfg.APIKey, cfg.SecretKey)
	} else {
		cfg.Logger.Debug(context.Background(), "Bybit credentials not set, using public endpoints only")
	}

	baseURL := bybit.MainNetBaseURL
	if cfg.UseTestnet {
		baseURL = bybit.TestNetBaseURL
	}
	if cfg.BaseURL != "" {
		baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	api = api.WithBaseURL(baseURL)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	api = api.WithHTTPClient(&http.Client{Timeout: timeout})

	cfg.Logger.Info(context.Background(), "Bybit client configured", map[string]interface{}{"baseURL": baseURL, "signed": cfg.APIKey != ""})

	return &Client{
		api:     api,
		baseURL: baseURL,
		timeout: timeout,
		logger:  cfg.Logger,
	}, nil
}

// Name identifies the exchange.
func (c *Client) Name() domain.Exchange {
	return domain.ExchangeBybit
}

// handleError translates Bybit failures into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	var apiErr *bybit.ErrorResponse
	var netErr net.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var mappedErr error

	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		mappedErr = ports.ErrTimeout
	case errors.As(err, &apiErr):
		switch apiErr.RetCode {
		case 10001: // Request parameter error
			mappedErr = ports.ErrInvalidRequest
		case 10003, 10004, 10005: // Invalid key, bad signature, permission denied
			mappedErr = ports.ErrAuthenticationFailed
		case 10006, 10018: // Too many visits
			mappedErr = ports.ErrRateLimited
		case 10016: // Server error
			mappedErr = ports.ErrExchangeUnavailable
		default:
			mappedErr = ports.ErrUnknown
		}
	case errors.Is(err, bybit.ErrInvalidRequest), errors.Is(err, bybit.ErrForbiddenRequest):
		mappedErr = ports.ErrAuthenticationFailed
	case errors.Is(err, bybit.ErrBadRequest), errors.Is(err, bybit.ErrPathNotFound):
		mappedErr = ports.ErrInvalidRequest
	case errors.Is(err, errMalformed), errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		mappedErr = ports.ErrMalformedResponse
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			mappedErr = ports.ErrTimeout
		} else {
			mappedErr = ports.ErrConnectionFailed
		}
	default:
		mappedErr = ports.ErrUnknown
	}

	c.logger.Debug(ctx, operation+" failed", map[string]interface{}{"operation": operation, "originalError": err.Error()})
	return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
}

// call runs fn, returning early when ctx ends. The SDK has no per-request
// context; an abandoned request is bounded by the HTTP client timeout.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type outcome struct {
		res T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := fn()
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case o := <-done:
		return o.res, o.err
	}
}

// MaxKlinesPerRequest reports how many klines one FetchKlines call can return.
// A window holding more buckets is truncated by the exchange.
func (c *Client) MaxKlinesPerRequest() int {
	return PageLimit
}

// FetchKlines retrieves the klines of one [window.Start, window.End) range.
func (c *Client) FetchKlines(ctx context.Context, category domain.Category, symbol string, window domain.TimeWindow, interval string) ([]*domain.Kline, error) {
	op := "FetchKlines"

	start, end := int64(window.Start), int64(window.End)
	param := bybit.V5GetKlineParam{
		Category: bybit.CategoryV5(category),
		Symbol:   bybit.SymbolV5(symbol),
		Interval: bybit.Interval(interval),
		Start:    &start,
		End:      &end,
	}

	res, err := call(ctx, func() (*bybit.V5GetKlineResponse, error) {
		return c.api.V5().Market().GetKline(param)
	})
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if res == nil || len(res.Result.List) == 0 {
		return []*domain.Kline{}, nil
	}

	klines := make([]*domain.Kline, 0, len(res.Result.List))
	for _, item := range res.Result.List {
		k, err := domain.NewKlineFromTuple([]string{
			item.StartTime, item.Open, item.High, item.Low, item.Close, item.Volume, item.Turnover,
		})
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("%w: %w", errMalformed, err), op)
		}
		klines = append(klines, k)
	}

	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "start": window.Start, "end": window.End, "count": len(klines)})
	return klines, nil
}

// ListSymbols returns the symbols of every ticker in category.
func (c *Client) ListSymbols(ctx context.Context, category domain.Category) ([]string, error) {
	op := "ListSymbols"

	res, err := call(ctx, func() (*bybit.V5GetTickersResponse, error) {
		return c.api.V5().Market().GetTickers(bybit.V5GetTickersParam{Category: bybit.CategoryV5(category)})
	})
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	var listed []bybit.SymbolV5
	if res != nil {
		switch {
		case res.Result.LinearInverse != nil:
			for _, t := range res.Result.LinearInverse.List {
				listed = append(listed, t.Symbol)
			}
		case res.Result.Spot != nil:
			for _, t := range res.Result.Spot.List {
				listed = append(listed, t.Symbol)
			}
		case res.Result.Option != nil:
			for _, t := range res.Result.Option.List {
				listed = append(listed, t.Symbol)
			}
		}
	}

	symbols := make([]string, 0, len(listed))
	for _, s := range listed {
		if s != "" {
			symbols = append(symbols, string(s))
		}
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"category": category, "count": len(symbols)})
	return symbols, nil
}
