// Package yahoo provides a client for the Yahoo Finance API
package yahoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/rj880209/scriplens/internal/common"
	"github.com/rj880209/scriplens/internal/interfaces"
	"github.com/rj880209/scriplens/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	// Yahoo rejects requests without a browser user agent.
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

	quoteSummaryModules = "price,summaryDetail,defaultKeyStatistics,financialData"
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo Finance client. The public endpoints are
// keyless, so no credential is required.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// apiErrorBody is the error envelope Yahoo embeds in 200 responses.
type apiErrorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Yahoo API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// quoteSummaryResponse is the envelope for /v10/finance/quoteSummary.
// Each module maps field names to either a {raw, fmt} wrapper, a bare
// number, or a bare string depending on the field.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]map[string]json.RawMessage `json:"result"`
		Error  *apiErrorBody                           `json:"error"`
	} `json:"quoteSummary"`
}

// decodeField unwraps one quoteSummary field value. Nulls and empty
// objects (fields Yahoo knows about but has no data for) report false.
func decodeField(raw json.RawMessage) (any, bool) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	var wrapped struct {
		Raw *float64 `json:"raw"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Raw != nil {
		return *wrapped.Raw, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	return nil, false
}

// GetInfo retrieves the fundamentals payload for a provider symbol. The
// module payloads are flattened into a single key space, matching what
// callers expect from the provider's "info" view of an instrument.
func (c *Client) GetInfo(ctx context.Context, symbol string) (models.InfoMap, error) {
	path := fmt.Sprintf("/v10/finance/quoteSummary/%s", url.PathEscape(symbol))

	params := url.Values{}
	params.Set("modules", quoteSummaryModules)

	var resp quoteSummaryResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	if resp.QuoteSummary.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    resp.QuoteSummary.Error.Description,
			Endpoint:   path,
		}
	}

	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("quote summary empty for %s", symbol)
	}

	modules := resp.QuoteSummary.Result[0]
	info := models.InfoMap{}
	// financialData last so its currentPrice wins any key collisions
	for _, name := range []string{"price", "summaryDetail", "defaultKeyStatistics", "financialData"} {
		for key, raw := range modules[name] {
			if v, ok := decodeField(raw); ok {
				info[key] = v
			}
		}
	}

	c.logger.Debug().Str("symbol", symbol).Int("fields", len(info)).Msg("Yahoo quote summary fetched")

	return info, nil
}

// chartResponse is the envelope for /v8/finance/chart. Quote arrays run
// parallel to the timestamp array and carry nulls on non-trading days.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiErrorBody `json:"error"`
	} `json:"chart"`
}

// GetHistory retrieves daily price bars, oldest first. Bars without a
// close (holidays, halts) are dropped.
func (c *Client) GetHistory(ctx context.Context, symbol string, opts ...interfaces.HistoryOption) ([]models.PriceBar, error) {
	params := &interfaces.HistoryParams{
		Range:    models.DefaultHistoryRange,
		Interval: "1d",
	}

	for _, opt := range opts {
		opt(params)
	}

	urlParams := url.Values{}
	urlParams.Set("range", string(params.Range))
	urlParams.Set("interval", params.Interval)

	path := fmt.Sprintf("/v8/finance/chart/%s", url.PathEscape(symbol))

	var resp chartResponse
	if err := c.get(ctx, path, urlParams, &resp); err != nil {
		return nil, err
	}

	if resp.Chart.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    resp.Chart.Error.Description,
			Endpoint:   path,
		}
	}

	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}

	quote := result.Indicators.Quote[0]
	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	at := func(vals []*float64, i int) float64 {
		if i < len(vals) && vals[i] != nil {
			return *vals[i]
		}
		return 0
	}

	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := models.PriceBar{
			Date:     time.Unix(ts, 0).UTC(),
			Open:     at(quote.Open, i),
			High:     at(quote.High, i),
			Low:      at(quote.Low, i),
			Close:    *quote.Close[i],
			AdjClose: at(adjClose, i),
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// Timeseries type names for the annual statement figures we chart.
const (
	tsRevenue   = "annualTotalRevenue"
	tsNetIncome = "annualNetIncome"
	tsEquity    = "annualStockholdersEquity"
)

// timeseriesResponse is the envelope for the fundamentals-timeseries
// endpoint. Each result row carries its values under a key named after
// the requested type, so rows decode in two passes.
type timeseriesResponse struct {
	Timeseries struct {
		Result []json.RawMessage `json:"result"`
		Error  *apiErrorBody     `json:"error"`
	} `json:"timeseries"`
}

type timeseriesMeta struct {
	Meta struct {
		Type []string `json:"type"`
	} `json:"meta"`
}

type timeseriesValue struct {
	AsOfDate      string `json:"asOfDate"`
	ReportedValue struct {
		Raw float64 `json:"raw"`
	} `json:"reportedValue"`
}

// GetFinancials retrieves yearly statement figures, oldest first. Years
// missing a figure keep zero for that field.
func (c *Client) GetFinancials(ctx context.Context, symbol string) ([]models.FinancialsYear, error) {
	path := fmt.Sprintf("/ws/fundamentals-timeseries/v1/finance/timeseries/%s", url.PathEscape(symbol))

	now := time.Now()
	params := url.Values{}
	params.Set("type", tsRevenue+","+tsNetIncome+","+tsEquity)
	params.Set("period1", fmt.Sprintf("%d", now.AddDate(-5, 0, 0).Unix()))
	params.Set("period2", fmt.Sprintf("%d", now.Unix()))

	var resp timeseriesResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	if resp.Timeseries.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    resp.Timeseries.Error.Description,
			Endpoint:   path,
		}
	}

	byYear := map[int]*models.FinancialsYear{}
	for _, raw := range resp.Timeseries.Result {
		var meta timeseriesMeta
		if err := json.Unmarshal(raw, &meta); err != nil || len(meta.Meta.Type) == 0 {
			continue
		}
		tsType := meta.Meta.Type[0]

		var row map[string]json.RawMessage
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}

		var values []*timeseriesValue
		if err := json.Unmarshal(row[tsType], &values); err != nil {
			continue
		}

		for _, v := range values {
			if v == nil {
				continue
			}
			asOf, err := time.Parse("2006-01-02", v.AsOfDate)
			if err != nil {
				continue
			}
			year := asOf.Year()
			entry, ok := byYear[year]
			if !ok {
				entry = &models.FinancialsYear{Year: year}
				byYear[year] = entry
			}
			switch tsType {
			case tsRevenue:
				entry.Revenue = v.ReportedValue.Raw
			case tsNetIncome:
				entry.NetIncome = v.ReportedValue.Raw
			case tsEquity:
				entry.Equity = v.ReportedValue.Raw
			}
		}
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	financials := make([]models.FinancialsYear, 0, len(years))
	for _, y := range years {
		financials = append(financials, *byYear[y])
	}

	return financials, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
