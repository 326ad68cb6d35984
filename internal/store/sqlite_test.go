package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/comps-valuation/internal/config"
	"github.com/sells-group/comps-valuation/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, newTestSQLiteStore(t))
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLiteStore_FailedAnalysisKeepsError(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateAnalysis(ctx, testRequest("failing"))
	require.NoError(t, err)

	a.Status = model.AnalysisFailed
	a.Error = "profile extraction unavailable"
	require.NoError(t, st.UpdateAnalysis(ctx, a))

	got, err := st.GetAnalysis(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisFailed, got.Status)
	assert.Equal(t, "profile extraction unavailable", got.Error)
	assert.Nil(t, got.Valuation)
	assert.Empty(t, got.Comparables)
}

func TestOpen_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "open.db")
	s, err := Open(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	assert.IsType(t, &SQLiteStore{}, s)
}
