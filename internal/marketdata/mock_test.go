package marketdata

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/comps-valuation/internal/model"
	"github.com/sells-group/comps-valuation/pkg/yahoo"
)

type mockYahooClient struct {
	mock.Mock
}

func (m *mockYahooClient) QuoteSummary(ctx context.Context, symbol string) (*yahoo.Summary, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*yahoo.Summary), args.Error(1)
}

func (m *mockYahooClient) Chart(ctx context.Context, symbol, rng, interval string) (*yahoo.Chart, error) {
	args := m.Called(ctx, symbol, rng, interval)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*yahoo.Chart), args.Error(1)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Fetch(ctx context.Context, ticker string) (model.Financials, error) {
	args := m.Called(ctx, ticker)
	return args.Get(0).(model.Financials), args.Error(1)
}
