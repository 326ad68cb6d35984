// Package yahoo is a minimal client for the Yahoo Finance quoteSummary and
// chart endpoints.
package yahoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/comps-valuation/internal/resilience"
)

// ErrNotFound is returned when Yahoo has no data for a symbol.
var ErrNotFound = eris.New("yahoo: symbol not found")

// SummaryModules are the quoteSummary modules requested by QuoteSummary.
var SummaryModules = []string{"price", "summaryDetail", "financialData", "defaultKeyStatistics"}

// Client defines the Yahoo Finance operations.
type Client interface {
	// QuoteSummary fetches the SummaryModules for symbol.
	QuoteSummary(ctx context.Context, symbol string) (*Summary, error)
	// Chart fetches price history over rng (e.g. "1y") at interval (e.g. "1d").
	Chart(ctx context.Context, symbol, rng, interval string) (*Chart, error)
}

// Value is a Yahoo numeric field. The API sends either a bare number or an
// object {"raw": n, "fmt": "..."}; an empty object means no value.
type Value struct {
	Raw float64
	Set bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			Raw *float64 `json:"raw"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Raw == nil {
			*v = Value{}
			return nil
		}
		*v = Value{Raw: *obj.Raw, Set: true}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		// Non-numeric scalars such as "Infinity" carry no usable value.
		*v = Value{}
		return nil //nolint:nilerr
	}
	*v = Value{Raw: n, Set: true}
	return nil
}

// Positive reports whether the value is present and greater than zero.
func (v Value) Positive() bool {
	return v.Set && v.Raw > 0
}

// Summary is the subset of quoteSummary used for valuation metrics.
type Summary struct {
	Price struct {
		ShortName          string `json:"shortName"`
		LongName           string `json:"longName"`
		RegularMarketPrice Value  `json:"regularMarketPrice"`
		MarketCap          Value  `json:"marketCap"`
	} `json:"price"`
	SummaryDetail struct {
		TrailingPE Value `json:"trailingPE"`
		MarketCap  Value `json:"marketCap"`
	} `json:"summaryDetail"`
	FinancialData struct {
		CurrentPrice Value `json:"currentPrice"`
		TotalRevenue Value `json:"totalRevenue"`
		EBITDA       Value `json:"ebitda"`
	} `json:"financialData"`
	DefaultKeyStatistics struct {
		EnterpriseValue   Value `json:"enterpriseValue"`
		SharesOutstanding Value `json:"sharesOutstanding"`
		TrailingPE        Value `json:"trailingPE"`
		TotalRevenue      Value `json:"totalRevenue"`
	} `json:"defaultKeyStatistics"`
}

type summaryEnvelope struct {
	QuoteSummary struct {
		Result []Summary  `json:"result"`
		Error  *yahooFail `json:"error"`
	} `json:"quoteSummary"`
}

// Chart is a price history series.
type Chart struct {
	Timestamps         []int64
	Closes             []float64
	RegularMarketPrice float64
}

type chartEnvelope struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooFail `json:"error"`
	} `json:"chart"`
}

type yahooFail struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Option configures the Yahoo client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. Zero or negative disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = NewAdaptiveLimiter(rps, max(1, int(rps)))
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *AdaptiveLimiter
}

// NewClient creates a Yahoo Finance client with a 4 req/s default limit.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   "https://query2.finance.yahoo.com",
		userAgent: "Mozilla/5.0 (compatible; comps-valuation/1.0)",
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: NewAdaptiveLimiter(4, 4),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) QuoteSummary(ctx context.Context, symbol string) (*Summary, error) {
	q := url.Values{}
	q.Set("modules", strings.Join(SummaryModules, ","))
	reqURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	body, err := c.get(ctx, reqURL, symbol)
	if err != nil {
		return nil, eris.Wrapf(err, "yahoo: quote summary %s", symbol)
	}

	var env summaryEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrapf(err, "yahoo: decode quote summary %s", symbol)
	}
	if env.QuoteSummary.Error != nil || len(env.QuoteSummary.Result) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "%s", symbol)
	}
	return &env.QuoteSummary.Result[0], nil
}

func (c *httpClient) Chart(ctx context.Context, symbol, rng, interval string) (*Chart, error) {
	q := url.Values{}
	q.Set("range", rng)
	q.Set("interval", interval)
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	body, err := c.get(ctx, reqURL, symbol)
	if err != nil {
		return nil, eris.Wrapf(err, "yahoo: chart %s", symbol)
	}

	var env chartEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, eris.Wrapf(err, "yahoo: decode chart %s", symbol)
	}
	if env.Chart.Error != nil || len(env.Chart.Result) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "%s", symbol)
	}

	r := env.Chart.Result[0]
	out := &Chart{RegularMarketPrice: r.Meta.RegularMarketPrice}
	if len(r.Indicators.Quote) == 0 {
		return out, nil
	}
	closes := r.Indicators.Quote[0].Close
	for i, ts := range r.Timestamp {
		// Yahoo reports null closes for halted sessions.
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		out.Timestamps = append(out.Timestamps, ts)
		out.Closes = append(out.Closes, *closes[i])
	}
	return out, nil
}

// get performs one rate-limited GET. 429 and 5xx responses come back as
// resilience.TransientError; a 404 is ErrNotFound.
func (c *httpClient) get(ctx context.Context, reqURL, symbol string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "request canceled")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "request failed"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if c.limiter != nil {
			c.limiter.OnSuccess()
		}
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		if c.limiter != nil {
			c.limiter.OnRateLimit()
		}
		return nil, resilience.NewTransientError(eris.Errorf("status 429: %s", truncate(body)), resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, eris.Wrapf(ErrNotFound, "%s", symbol)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(eris.Errorf("status %d: %s", resp.StatusCode, truncate(body)), resp.StatusCode)
	default:
		return nil, eris.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body))
	}
}

func truncate(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
