package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/comps-valuation/internal/llm"
	"github.com/sells-group/comps-valuation/internal/model"
	"github.com/sells-group/comps-valuation/internal/store"
)

type mockExtractor struct{ mock.Mock }

func (m *mockExtractor) Extract(ctx context.Context, description string, depth model.AnalysisDepth) (model.CompanyProfile, error) {
	args := m.Called(ctx, description, depth)
	return args.Get(0).(model.CompanyProfile), args.Error(1)
}

type mockNarrator struct{ mock.Mock }

func (m *mockNarrator) Narrate(ctx context.Context, in llm.NarrativeInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

type mockInsights struct{ mock.Mock }

func (m *mockInsights) Gather(ctx context.Context, profile model.CompanyProfile, description string) (*model.Insights, error) {
	args := m.Called(ctx, profile, description)
	ins, _ := args.Get(0).(*model.Insights)
	return ins, args.Error(1)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) CreateAnalysis(ctx context.Context, req model.AnalysisRequest) (*model.Analysis, error) {
	args := m.Called(ctx, req)
	a, _ := args.Get(0).(*model.Analysis)
	return a, args.Error(1)
}

func (m *mockStore) UpdateAnalysis(ctx context.Context, a *model.Analysis) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*model.Analysis)
	return a, args.Error(1)
}

func (m *mockStore) ListAnalyses(ctx context.Context, filter store.AnalysisFilter) ([]model.Analysis, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]model.Analysis)
	return out, args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error    { return m.Called(ctx).Error(0) }
func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) Close() error                      { return m.Called().Error(0) }
