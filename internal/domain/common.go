package domain

import "strings"

// Exchange identifies which market-data source to download from.
type Exchange string

const (
	ExchangeBybit   Exchange = "bybit"
	ExchangeBinance Exchange = "binance"
)

// ParseExchange normalises an exchange name. ok is false for unsupported names.
func ParseExchange(name string) (Exchange, bool) {
	switch Exchange(strings.ToLower(strings.TrimSpace(name))) {
	case ExchangeBybit:
		return ExchangeBybit, true
	case ExchangeBinance:
		return ExchangeBinance, true
	default:
		return "", false
	}
}

// Category is the product family an instrument belongs to (Bybit v5 naming).
type Category string

const (
	CategorySpot    Category = "spot"
	CategoryLinear  Category = "linear"
	CategoryInverse Category = "inverse"
)

// DefaultInterval is the bucket size, in minutes, used when none is configured.
const DefaultInterval = "60"
