package types

import (
	"strings"
	"time"
)

// Candle is a single OHLCV bar for an asset.
type Candle struct {
	Asset  string    `json:"asset" yaml:"asset"`
	Period int       `json:"period" yaml:"period"`
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// AssetCategory groups assets by market.
type AssetCategory string

const (
	AssetCategoryForex  AssetCategory = "forex"
	AssetCategoryCrypto AssetCategory = "crypto"
	AssetCategoryOther  AssetCategory = "other"
)

// AssetInfo describes a tradable asset and its current payout.
type AssetInfo struct {
	Name     string        `json:"name" yaml:"name"`
	Category AssetCategory `json:"category" yaml:"category"`
	IsOpen   bool          `json:"is_open" yaml:"is_open"`
	// Payout is the percentage paid on a winning trade (e.g. 85 means +85% of stake).
	Payout    float64   `json:"payout" yaml:"payout"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Score ranks an asset for selection. Closed assets always score zero.
func (a AssetInfo) Score() float64 {
	if !a.IsOpen {
		return 0
	}

	return a.Payout
}

var (
	forexCodes  = []string{"USD", "EUR", "GBP", "JPY", "AUD", "CAD"}
	cryptoCodes = []string{"BTC", "ETH", "LTC", "XRP"}
)

// CategorizeAsset infers the category of an asset from its name.
func CategorizeAsset(name string) AssetCategory {
	upper := strings.ToUpper(name)

	for _, code := range cryptoCodes {
		if strings.Contains(upper, code) {
			return AssetCategoryCrypto
		}
	}

	for _, code := range forexCodes {
		if strings.Contains(upper, code) {
			return AssetCategoryForex
		}
	}

	return AssetCategoryOther
}
