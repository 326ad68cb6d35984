package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/comps-valuation/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	description       TEXT NOT NULL,
	analysis_depth    TEXT NOT NULL,
	valuation_methods TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'pending',
	result            JSONB,
	error             TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
`

const analysisColumns = `id, description, analysis_depth, valuation_methods, status, result, error, created_at, updated_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateAnalysis(ctx context.Context, req model.AnalysisRequest) (*model.Analysis, error) {
	a := newAnalysis(req)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO analyses (id, description, analysis_depth, valuation_methods, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.CompanyDescription, string(a.AnalysisDepth), string(a.ValuationMethods), string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert analysis")
	}
	return a, nil
}

func (s *PostgresStore) UpdateAnalysis(ctx context.Context, a *model.Analysis) error {
	resultJSON, err := encodeResult(a)
	if err != nil {
		return err
	}

	a.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET status = $1, result = $2, error = $3, updated_at = $4 WHERE id = $5`,
		string(a.Status), resultJSON, a.Error, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update analysis %s", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s", a.ID)
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id)
	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "%s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}
	return a, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, filter.limit(), max(filter.Offset, 0))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var out []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

func scanAnalysis(row pgx.Row) (*model.Analysis, error) {
	var a model.Analysis
	var depth, methods, status string
	var result []byte
	if err := row.Scan(&a.ID, &a.CompanyDescription, &depth, &methods, &status, &result, &a.Error, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.AnalysisDepth = model.AnalysisDepth(depth)
	a.ValuationMethods = model.ValuationMethods(methods)
	a.Status = model.AnalysisStatus(status)
	if err := decodeResult(result, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func newAnalysis(req model.AnalysisRequest) *model.Analysis {
	now := time.Now().UTC()
	return &model.Analysis{
		ID:                 uuid.New().String(),
		CompanyDescription: req.CompanyDescription,
		AnalysisDepth:      req.AnalysisDepth,
		ValuationMethods:   req.ValuationMethods,
		Status:             model.AnalysisPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
