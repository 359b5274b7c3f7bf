// Package models defines data structures for ScripLens
package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// HistoryRange identifies a lookback window the market-data provider
// accepts for historical price queries.
type HistoryRange string

const (
	Range1Day   HistoryRange = "1d"
	Range5Day   HistoryRange = "5d"
	Range1Month HistoryRange = "1mo"
	Range3Month HistoryRange = "3mo"
	Range6Month HistoryRange = "6mo"
	Range1Year  HistoryRange = "1y"
	Range2Year  HistoryRange = "2y"
	Range5Year  HistoryRange = "5y"
	RangeYTD    HistoryRange = "ytd"
	RangeMax    HistoryRange = "max"
)

// DefaultHistoryRange is used when the caller does not name a window.
const DefaultHistoryRange = Range6Month

// Valid reports whether the range is one the provider recognizes.
func (r HistoryRange) Valid() bool {
	switch r {
	case Range1Day, Range5Day, Range1Month, Range3Month, Range6Month,
		Range1Year, Range2Year, Range5Year, RangeYTD, RangeMax:
		return true
	}
	return false
}

// InfoMap is the provider's fundamentals payload: string keys mapping to
// untyped values. Fields come and go depending on exchange and instrument
// type, so every "missing means default" decision belongs to the
// normalization step, not to this type.
type InfoMap map[string]any

// Float returns the value under key coerced to float64. Providers ship
// numbers as JSON numbers or as formatted strings depending on endpoint,
// so both are accepted.
func (m InfoMap) Float(key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// String returns the value under key when it is a non-empty string.
func (m InfoMap) String(key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// PriceBar represents a single day's price data
type PriceBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// FinancialsYear holds one fiscal year of statement figures
type FinancialsYear struct {
	Year      int     `json:"year"`
	Revenue   float64 `json:"revenue"`
	NetIncome float64 `json:"net_income"`
	Equity    float64 `json:"equity"`
}
