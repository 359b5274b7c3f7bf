package models

import "time"

// ExchangeCandidate pairs a provider symbol suffix with the exchange label
// attached to quotes resolved through it. Candidate lists are ordered by
// lookup priority and never reordered at runtime.
type ExchangeCandidate struct {
	Suffix   string `json:"suffix"`
	Exchange string `json:"exchange"`
}

// NormalizedQuote is the fixed snapshot produced by resolving a raw ticker
// against the market-data provider. Numeric fields default to zero and
// string fields to "N/A" when the provider payload lacks them; MissingFields
// records which provider keys were absent so a zero can be told apart from
// a genuinely zero value.
type NormalizedQuote struct {
	Ticker        string    `json:"ticker"` // uppercased query
	Symbol        string    `json:"symbol"` // provider symbol that matched, suffix included
	Exchange      string    `json:"exchange"`
	CurrentPrice  float64   `json:"current_price"`
	High52Week    float64   `json:"high_52week"`
	Low52Week     float64   `json:"low_52week"`
	PERatio       float64   `json:"pe_ratio"`
	PBRatio       float64   `json:"pb_ratio"`
	ROE           float64   `json:"roe"`
	DERatio       float64   `json:"de_ratio"`
	DivYield      float64   `json:"div_yield"`
	BookValue     float64   `json:"book_value"`
	FaceValue     string    `json:"face_value"` // split factor stands in where the provider has no face value
	EPSTTM        float64   `json:"eps_ttm"`
	MarketCap     float64   `json:"market_cap"`
	Volume        int64     `json:"volume"`
	Currency      string    `json:"currency"`
	MissingFields []string  `json:"missing_fields,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// StockReport aggregates everything the dashboard shows for one ticker.
// Sections degrade independently: a failed analysis leaves AnalysisError
// set while the quote and chart links remain usable.
type StockReport struct {
	Ticker             string           `json:"ticker"`
	Quote              *NormalizedQuote `json:"quote"`
	Analysis           string           `json:"analysis,omitempty"`
	AnalysisError      string           `json:"analysis_error,omitempty"`
	PriceChartURL      string           `json:"price_chart_url,omitempty"`
	FinancialsChartURL string           `json:"financials_chart_url,omitempty"`
	GeneratedAt        time.Time        `json:"generated_at"`
}
