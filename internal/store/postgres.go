package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/boxoffice-cli/internal/db"
	"github.com/sells-group/boxoffice-cli/internal/figures"
	"github.com/sells-group/boxoffice-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var (
	upsertMovieSQL = db.MustUpsertSQL(db.UpsertConfig{
		Table: "movies",
		Columns: []string{"id", "run_id", "year", "title", "domestic", "international", "worldwide",
			"imdb_id", "url", "path", "rejected", "notes", "policy_version", "created_at"},
		ConflictKeys: []string{"year", "url"},
	})
	upsertPageSQL = db.MustUpsertSQL(db.UpsertConfig{
		Table:        "page_cache",
		Columns:      []string{"url", "body", "cached_at", "expires_at"},
		ConflictKeys: []string{"url"},
	})
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
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
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	years      JSONB NOT NULL,
	run_limit  INTEGER NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS movies (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id         TEXT NOT NULL REFERENCES runs(id),
	year           INTEGER NOT NULL,
	title          TEXT NOT NULL,
	domestic       BIGINT,
	international  BIGINT,
	worldwide      BIGINT,
	imdb_id        TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL,
	path           TEXT NOT NULL,
	rejected       BOOLEAN NOT NULL DEFAULT false,
	notes          JSONB,
	policy_version TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (year, url)
);

CREATE TABLE IF NOT EXISTS failures (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	year       INTEGER NOT NULL,
	url        TEXT NOT NULL,
	error      TEXT NOT NULL,
	error_type TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS page_cache (
	url        TEXT PRIMARY KEY,
	body       BYTEA NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_movies_year ON movies(year);
CREATE INDEX IF NOT EXISTS idx_movies_run_id ON movies(run_id);
CREATE INDEX IF NOT EXISTS idx_failures_run_id ON failures(run_id);
CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
`

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

func (s *PostgresStore) CreateRun(ctx context.Context, years []int, limit int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	yearsJSON, err := json.Marshal(years)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal years")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, years, run_limit, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, yearsJSON, limit, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Years:     years,
		Limit:     limit,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(result.Status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

const selectRun = `SELECT id, years, run_limit, status, result, created_at, updated_at FROM runs`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx, selectRun+` WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := selectRun + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveMovie(ctx context.Context, m *model.StoredMovie) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	notesJSON, err := json.Marshal(m.Notes)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal notes")
	}

	rec := m.Record
	_, err = s.pool.Exec(ctx, upsertMovieSQL,
		m.ID, m.RunID, rec.Year, rec.Title,
		rec.Figures.Domestic.Ptr(), rec.Figures.International.Ptr(), rec.Figures.Worldwide.Ptr(),
		rec.ExternalID, rec.SourceURL, string(m.Path), m.Rejected, notesJSON, m.PolicyVersion, m.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: save movie %s", rec.SourceURL)
}

func (s *PostgresStore) ListMovies(ctx context.Context, filter MovieFilter) ([]model.StoredMovie, error) {
	query := `SELECT id, run_id, year, title, domestic, international, worldwide, imdb_id, url, path, rejected, notes, policy_version, created_at
	          FROM movies WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Year != 0 {
		query += fmt.Sprintf(` AND year = $%d`, argIdx)
		args = append(args, filter.Year)
		argIdx++
	}
	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, argIdx)
		args = append(args, filter.RunID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY year ASC, worldwide DESC NULLS LAST LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list movies")
	}
	defer rows.Close()

	var movies []model.StoredMovie
	for rows.Next() {
		var m model.StoredMovie
		var dom, intl, ww *int64
		var notes []byte
		var path string
		if err := rows.Scan(&m.ID, &m.RunID, &m.Record.Year, &m.Record.Title, &dom, &intl, &ww,
			&m.Record.ExternalID, &m.Record.SourceURL, &path, &m.Rejected, &notes, &m.PolicyVersion, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan movie")
		}
		m.Path = figures.Path(path)
		m.Record.Figures = figures.FigureSet{
			Domestic:      figures.FromPtr(dom),
			International: figures.FromPtr(intl),
			Worldwide:     figures.FromPtr(ww),
		}
		if len(notes) > 0 {
			if err := json.Unmarshal(notes, &m.Notes); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal notes")
			}
		}
		movies = append(movies, m)
	}
	return movies, eris.Wrap(rows.Err(), "postgres: list movies iterate")
}

func (s *PostgresStore) RecordFailure(ctx context.Context, f *model.Failure) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO failures (id, run_id, year, url, error, error_type, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.RunID, f.Year, f.URL, f.Error, f.ErrorType, f.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: record failure %s", f.URL)
}

func (s *PostgresStore) ListFailures(ctx context.Context, runID string) ([]model.Failure, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, year, url, error, error_type, created_at FROM failures WHERE run_id = $1 ORDER BY created_at ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list failures")
	}
	defer rows.Close()

	var out []model.Failure
	for rows.Next() {
		var f model.Failure
		if err := rows.Scan(&f.ID, &f.RunID, &f.Year, &f.URL, &f.Error, &f.ErrorType, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list failures iterate")
}

func (s *PostgresStore) GetCachedPage(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM page_cache WHERE url = $1 AND expires_at > now()`,
		url,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached page")
	}
	return body, nil
}

func (s *PostgresStore) SetCachedPage(ctx context.Context, url string, body []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, upsertPageSQL, url, body, now, now.Add(ttl))
	return eris.Wrap(err, "postgres: set cached page")
}

func (s *PostgresStore) DeleteExpiredPages(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM page_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired pages")
	}
	return int(tag.RowsAffected()), nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var yearsJSON, resultJSON []byte
	var status string

	if err := row.Scan(&r.ID, &yearsJSON, &r.Limit, &status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)

	if err := json.Unmarshal(yearsJSON, &r.Years); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal years")
	}
	if len(resultJSON) > 0 {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}
