package binanceclient

import (
	"errors"
	"fmt"
	"strconv"

	"klineDownloader/internal/domain"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

var (
	errTranslate   = errors.New("kline translation failed")
	errUnsupported = errors.New("unsupported request")
)

// --- Translation Helpers ---

// translateFuturesKline maps a futures kline onto the domain tuple;
// turnover is the quote-asset volume.
func translateFuturesKline(bk *futures.Kline) (*domain.Kline, error) {
	if bk == nil {
		return nil, fmt.Errorf("%w: received nil historical kline", errTranslate)
	}
	return fromTuple(bk.OpenTime, bk.Open, bk.High, bk.Low, bk.Close, bk.Volume, bk.QuoteAssetVolume)
}

func translateSpotKline(bk *binance.Kline) (*domain.Kline, error) {
	if bk == nil {
		return nil, fmt.Errorf("%w: received nil historical kline", errTranslate)
	}
	return fromTuple(bk.OpenTime, bk.Open, bk.High, bk.Low, bk.Close, bk.Volume, bk.QuoteAssetVolume)
}

func fromTuple(openTime int64, open, high, low, cls, volume, turnover string) (*domain.Kline, error) {
	k, err := domain.NewKlineFromTuple([]string{
		strconv.FormatInt(openTime, 10), open, high, low, cls, volume, turnover,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errTranslate, err)
	}
	return k, nil
}
