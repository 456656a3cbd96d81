package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"klineDownloader/internal/domain"
	"klineDownloader/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	futuresURLProduction = "https://fapi.binance.com"
	futuresURLTestnet    = "https://testnet.binancefuture.com"
	spotURLProduction    = "https://api.binance.com"
	spotURLTestnet       = "https://testnet.binance.vision"

	futuresMaxLimit = 1500
	spotMaxLimit    = 1000

	statusTrading = "TRADING"
)

// intervals maps Bybit-style interval codes onto Binance's.
var intervals = map[string]string{
	"1":   "1m",
	"3":   "3m",
	"5":   "5m",
	"15":  "15m",
	"30":  "30m",
	"60":  "1h",
	"120": "2h",
	"240": "4h",
	"360": "6h",
	"720": "12h",
	"D":   "1d",
	"W":   "1w",
	"M":   "1M",
}

// Client implements ports.ExchangeClient using the go-binance library.
// The linear category is served by USDⓈ-M futures, spot by the spot API.
type Client struct {
	futuresClient *futures.Client
	spotClient    *binance.Client
	logger        ports.Logger
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey         string
	SecretKey      string
	UseTestnet     bool
	FuturesBaseURL string // Overrides the futures URL when set
	SpotBaseURL    string // Overrides the spot URL when set
	Timeout        time.Duration
	Logger         ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		// Klines and exchange info are public endpoints.
		cfg.Logger.Debug(context.Background(), "APIKey or SecretKey is empty, using public endpoints only")
	}

	fc := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	sc := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using the package-level testnet switches
	fc.BaseURL, sc.BaseURL = futuresURLProduction, spotURLProduction
	if cfg.UseTestnet {
		fc.BaseURL, sc.BaseURL = futuresURLTestnet, spotURLTestnet
	}
	if cfg.FuturesBaseURL != "" {
		fc.BaseURL = cfg.FuturesBaseURL
	}
	if cfg.SpotBaseURL != "" {
		sc.BaseURL = cfg.SpotBaseURL
	}
	if cfg.Timeout > 0 {
		fc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		sc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{"futuresURL": fc.BaseURL, "spotURL": sc.BaseURL})

	return &Client{
		futuresClient: fc,
		spotClient:    sc,
		logger:        cfg.Logger,
	}, nil
}

// Name identifies the exchange.
func (c *Client) Name() domain.Exchange {
	return domain.ExchangeBinance
}

// SupportsCategory reports whether the adapter can serve category.
func SupportsCategory(category domain.Category) bool {
	return category == domain.CategoryLinear || category == domain.CategorySpot
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015: // Bad signature, key format, or permissions
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1120, -1121, -1127, -1128, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		case -1000, -1001, -1007, -1016: // Unknown, disconnected, timeout waiting for backend, service shutting down
			mappedErr = ports.ErrExchangeUnavailable
		default:
			mappedErr = ports.ErrUnknown
		}
		c.logger.Debug(ctx, operation+" failed with API error", fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if errors.Is(err, errTranslate) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrMalformedResponse, err)
	} else if errors.Is(err, errUnsupported) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrInvalidRequest, err)
	} else if strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "no such host") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Debug(ctx, operation+" failed", fields)
	return finalErr
}

// FetchKlines retrieves every kline opening inside [window.Start, window.End).
// Binance caps each response, so the window is paged internally until exhausted.
func (c *Client) FetchKlines(ctx context.Context, category domain.Category, symbol string, window domain.TimeWindow, interval string) ([]*domain.Kline, error) {
	op := "FetchKlines"

	binanceInterval, ok := intervals[strings.ToUpper(interval)]
	if !ok {
		return nil, c.handleError(ctx, fmt.Errorf("%w: interval %q", errUnsupported, interval), op)
	}
	if !SupportsCategory(category) {
		return nil, c.handleError(ctx, fmt.Errorf("%w: category %q", errUnsupported, category), op)
	}

	all := make([]*domain.Kline, 0)
	from := window.Start
	// Binance treats endTime as inclusive.
	until := window.End - 1

	for from <= until {
		page, limit, err := c.fetchPage(ctx, category, symbol, binanceInterval, from, until)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		last := page[len(page)-1].Timestamp
		if len(page) < limit || last < from {
			break
		}
		from = last + 1
	}

	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "start": window.Start, "end": window.End, "count": len(all)})
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, category domain.Category, symbol, interval string, from, until int64) ([]*domain.Kline, int, error) {
	if category == domain.CategorySpot {
		raw, err := c.spotClient.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from).
			EndTime(until).
			Limit(spotMaxLimit).
			Do(ctx)
		if err != nil {
			return nil, spotMaxLimit, err
		}
		out := make([]*domain.Kline, 0, len(raw))
		for _, k := range raw {
			dk, err := translateSpotKline(k)
			if err != nil {
				return nil, spotMaxLimit, err
			}
			out = append(out, dk)
		}
		return out, spotMaxLimit, nil
	}

	raw, err := c.futuresClient.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(from).
		EndTime(until).
		Limit(futuresMaxLimit).
		Do(ctx)
	if err != nil {
		return nil, futuresMaxLimit, err
	}
	out := make([]*domain.Kline, 0, len(raw))
	for _, k := range raw {
		dk, err := translateFuturesKline(k)
		if err != nil {
			return nil, futuresMaxLimit, err
		}
		out = append(out, dk)
	}
	return out, futuresMaxLimit, nil
}

// ListSymbols returns the symbols currently in TRADING status.
func (c *Client) ListSymbols(ctx context.Context, category domain.Category) ([]string, error) {
	op := "ListSymbols"

	var symbols []string
	switch category {
	case domain.CategoryLinear:
		info, err := c.futuresClient.NewExchangeInfoService().Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		for _, s := range info.Symbols {
			if s.Status == statusTrading {
				symbols = append(symbols, s.Symbol)
			}
		}
	case domain.CategorySpot:
		info, err := c.spotClient.NewExchangeInfoService().Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		for _, s := range info.Symbols {
			if s.Status == statusTrading {
				symbols = append(symbols, s.Symbol)
			}
		}
	default:
		return nil, c.handleError(ctx, fmt.Errorf("%w: category %q", errUnsupported, category), op)
	}

	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"category": category, "count": len(symbols)})
	return symbols, nil
}
