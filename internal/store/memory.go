package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/comps-valuation/internal/model"
)

// MemoryStore implements Store in process memory. Records are lost on exit.
type MemoryStore struct {
	mu       sync.RWMutex
	analyses map[string]*model.Analysis
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{analyses: make(map[string]*model.Analysis)}
}

func (s *MemoryStore) Ping(context.Context) error    { return nil }
func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }

func (s *MemoryStore) CreateAnalysis(_ context.Context, req model.AnalysisRequest) (*model.Analysis, error) {
	a := newAnalysis(req)

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *a
	s.analyses[a.ID] = &stored
	return a, nil
}

func (s *MemoryStore) UpdateAnalysis(_ context.Context, a *model.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.analyses[a.ID]; !ok {
		return eris.Wrapf(ErrNotFound, "%s", a.ID)
	}
	a.UpdatedAt = time.Now().UTC()
	cp, err := cloneAnalysis(a)
	if err != nil {
		return err
	}
	s.analyses[a.ID] = cp
	return nil
}

func (s *MemoryStore) GetAnalysis(_ context.Context, id string) (*model.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.analyses[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "%s", id)
	}
	return cloneAnalysis(a)
}

func (s *MemoryStore) ListAnalyses(_ context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*model.Analysis, 0, len(s.analyses))
	for _, a := range s.analyses {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := max(filter.Offset, 0)
	if offset >= len(matched) {
		return nil, nil
	}
	end := min(offset+filter.limit(), len(matched))

	out := make([]model.Analysis, 0, end-offset)
	for _, a := range matched[offset:end] {
		cp, err := cloneAnalysis(a)
		if err != nil {
			return nil, err
		}
		out = append(out, *cp)
	}
	return out, nil
}

// cloneAnalysis deep-copies a through the same JSON document the SQL stores
// persist, so callers never share slices with the map.
func cloneAnalysis(a *model.Analysis) (*model.Analysis, error) {
	raw, err := encodeResult(a)
	if err != nil {
		return nil, err
	}
	cp := *a
	cp.Profile, cp.Comparables, cp.Valuation, cp.Insights = nil, nil, nil, nil
	cp.Narrative, cp.NarrativeFallback = "", false
	if err := decodeResult(raw, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
