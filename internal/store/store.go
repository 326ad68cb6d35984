// Package store persists analysis records.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/comps-valuation/internal/config"
	"github.com/sells-group/comps-valuation/internal/model"
)

// ErrNotFound is returned when an analysis id does not exist.
var ErrNotFound = eris.New("store: analysis not found")

// AnalysisFilter specifies criteria for listing analyses.
type AnalysisFilter struct {
	Status model.AnalysisStatus `json:"status,omitempty"`
	Limit  int                  `json:"limit,omitempty"`
	Offset int                  `json:"offset,omitempty"`
}

const defaultListLimit = 100

func (f AnalysisFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for analyses.
type Store interface {
	// CreateAnalysis records a pending analysis for a validated request.
	CreateAnalysis(ctx context.Context, req model.AnalysisRequest) (*model.Analysis, error)
	// UpdateAnalysis overwrites status, results and error of an existing analysis.
	UpdateAnalysis(ctx context.Context, a *model.Analysis) error
	// GetAnalysis returns ErrNotFound for unknown ids.
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	// ListAnalyses returns analyses newest first.
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error)

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "memory", "":
		return NewMemory(), nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// analysisResult is the JSON document stored alongside the scalar columns.
type analysisResult struct {
	Profile           *model.CompanyProfile      `json:"profile,omitempty"`
	Comparables       []model.EnrichedComparable `json:"comparables,omitempty"`
	Valuation         *model.ValuationResult     `json:"valuation,omitempty"`
	Narrative         string                     `json:"narrative,omitempty"`
	NarrativeFallback bool                       `json:"narrativeFallback,omitempty"`
	Insights          *model.Insights            `json:"insights,omitempty"`
}

func encodeResult(a *model.Analysis) ([]byte, error) {
	raw, err := json.Marshal(analysisResult{
		Profile:           a.Profile,
		Comparables:       a.Comparables,
		Valuation:         a.Valuation,
		Narrative:         a.Narrative,
		NarrativeFallback: a.NarrativeFallback,
		Insights:          a.Insights,
	})
	return raw, eris.Wrap(err, "store: marshal result")
}

func decodeResult(raw []byte, a *model.Analysis) error {
	if len(raw) == 0 {
		return nil
	}
	var r analysisResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return eris.Wrap(err, "store: unmarshal result")
	}
	a.Profile = r.Profile
	a.Comparables = r.Comparables
	a.Valuation = r.Valuation
	a.Narrative = r.Narrative
	a.NarrativeFallback = r.NarrativeFallback
	a.Insights = r.Insights
	return nil
}
