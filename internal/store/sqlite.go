package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/comps-valuation/internal/model"
)

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id                TEXT PRIMARY KEY,
	description       TEXT NOT NULL,
	analysis_depth    TEXT NOT NULL,
	valuation_methods TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'pending',
	result            TEXT,
	error             TEXT NOT NULL DEFAULT '',
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateAnalysis(ctx context.Context, req model.AnalysisRequest) (*model.Analysis, error) {
	a := newAnalysis(req)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, description, analysis_depth, valuation_methods, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CompanyDescription, string(a.AnalysisDepth), string(a.ValuationMethods), string(a.Status),
		a.CreatedAt.Format(timeLayout), a.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert analysis")
	}
	return a, nil
}

func (s *SQLiteStore) UpdateAnalysis(ctx context.Context, a *model.Analysis) error {
	resultJSON, err := encodeResult(a)
	if err != nil {
		return err
	}

	a.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = ?, result = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(a.Status), string(resultJSON), a.Error, a.UpdatedAt.Format(timeLayout), a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update analysis %s", a.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s", a.ID)
	}
	return nil
}

const sqliteColumns = `id, description, analysis_depth, valuation_methods, status, result, error, created_at, updated_at`

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM analyses WHERE id = ?`, id)
	a, err := scanSQLiteAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "%s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}
	return a, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT ` + sqliteColumns + ` FROM analyses`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, filter.limit(), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Analysis
	for rows.Next() {
		a, err := scanSQLiteAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAnalysis(row rowScanner) (*model.Analysis, error) {
	var a model.Analysis
	var depth, methods, status, created, updated string
	var result sql.NullString
	if err := row.Scan(&a.ID, &a.CompanyDescription, &depth, &methods, &status, &result, &a.Error, &created, &updated); err != nil {
		return nil, err
	}
	a.AnalysisDepth = model.AnalysisDepth(depth)
	a.ValuationMethods = model.ValuationMethods(methods)
	a.Status = model.AnalysisStatus(status)

	var err error
	if a.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse created_at")
	}
	if a.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse updated_at")
	}
	if result.Valid {
		if err := decodeResult([]byte(result.String), &a); err != nil {
			return nil, err
		}
	}
	return &a, nil
}
