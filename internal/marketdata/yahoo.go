package marketdata

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/comps-valuation/internal/model"
	"github.com/sells-group/comps-valuation/pkg/yahoo"
)

// Yahoo derives valuation metrics from Yahoo Finance.
type Yahoo struct {
	client yahoo.Client
}

// NewYahoo wraps a Yahoo client.
func NewYahoo(client yahoo.Client) *Yahoo {
	return &Yahoo{client: client}
}

// Fetch implements Provider. A failed quote summary fails the fetch; a
// failed price history only zeroes the one-year change.
func (y *Yahoo) Fetch(ctx context.Context, ticker string) (model.Financials, error) {
	s, err := y.client.QuoteSummary(ctx, ticker)
	if err != nil {
		return model.Financials{}, err
	}

	price := s.Price.RegularMarketPrice
	if !price.Set {
		price = s.FinancialData.CurrentPrice
	}

	var oneYear float64
	chart, err := y.client.Chart(ctx, ticker, "1y", "1d")
	if err != nil {
		zap.L().Debug("marketdata: no price history",
			zap.String("ticker", ticker),
			zap.Error(err),
		)
	} else {
		current := price.Raw
		if chart.RegularMarketPrice > 0 {
			current = chart.RegularMarketPrice
		}
		oneYear = OneYearChange(chart.Closes, current)
	}

	return Metrics(s, oneYear), nil
}

// Metrics applies the valuation rules to a quote summary:
// revenue from financialData (falling back to key statistics), market cap
// from price (falling back to shares x price), EV from key statistics
// (falling back to market cap). Ratios are absent when their denominator
// is not positive.
func Metrics(s *yahoo.Summary, oneYearChange float64) model.Financials {
	revenue := s.FinancialData.TotalRevenue
	if !revenue.Positive() {
		revenue = s.DefaultKeyStatistics.TotalRevenue
	}

	price := s.Price.RegularMarketPrice
	if !price.Set {
		price = s.FinancialData.CurrentPrice
	}

	marketCap := s.Price.MarketCap.Raw
	if !s.Price.MarketCap.Positive() {
		marketCap = s.SummaryDetail.MarketCap.Raw
	}
	if marketCap <= 0 {
		marketCap = s.DefaultKeyStatistics.SharesOutstanding.Raw * price.Raw
	}

	ev := marketCap
	if s.DefaultKeyStatistics.EnterpriseValue.Positive() {
		ev = s.DefaultKeyStatistics.EnterpriseValue.Raw
	}

	f := model.Financials{
		MarketCap:     max(marketCap, 0),
		Revenue:       max(revenue.Raw, 0),
		OneYearChange: oneYearChange,
	}
	if revenue.Positive() {
		f.EVRevenue = model.Float(ev / revenue.Raw)
	}
	if s.FinancialData.EBITDA.Positive() {
		f.EVEBITDA = model.Float(ev / s.FinancialData.EBITDA.Raw)
	}
	switch {
	case s.SummaryDetail.TrailingPE.Positive():
		f.PERatio = model.Float(s.SummaryDetail.TrailingPE.Raw)
	case s.DefaultKeyStatistics.TrailingPE.Positive():
		f.PERatio = model.Float(s.DefaultKeyStatistics.TrailingPE.Raw)
	}

	name := s.Price.ShortName
	if name == "" {
		name = s.Price.LongName
	}
	if name != "" {
		f.Summary = name + " is a publicly traded company."
	}
	return f
}

// OneYearChange is the percentage move from the first close to current.
// It is 0 without history or when the first close is not positive.
func OneYearChange(closes []float64, current float64) float64 {
	if len(closes) == 0 || closes[0] <= 0 || current <= 0 {
		return 0
	}
	return (current - closes[0]) / closes[0] * 100
}
