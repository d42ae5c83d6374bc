package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/boxoffice-cli/internal/figures"
	"github.com/sells-group/boxoffice-cli/internal/model"
)

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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	years      TEXT NOT NULL,
	run_limit  INTEGER NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS movies (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL REFERENCES runs(id),
	year           INTEGER NOT NULL,
	title          TEXT NOT NULL,
	domestic       INTEGER,
	international  INTEGER,
	worldwide      INTEGER,
	imdb_id        TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL,
	path           TEXT NOT NULL,
	rejected       INTEGER NOT NULL DEFAULT 0,
	notes          TEXT,
	policy_version TEXT NOT NULL,
	created_at     DATETIME NOT NULL,
	UNIQUE (year, url)
);

CREATE TABLE IF NOT EXISTS failures (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	year       INTEGER NOT NULL,
	url        TEXT NOT NULL,
	error      TEXT NOT NULL,
	error_type TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS page_cache (
	url        TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_movies_year ON movies(year);
CREATE INDEX IF NOT EXISTS idx_movies_run_id ON movies(run_id);
CREATE INDEX IF NOT EXISTS idx_failures_run_id ON failures(run_id);
CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, years []int, limit int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	yearsJSON, err := json.Marshal(years)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal years")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, years, run_limit, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(yearsJSON), limit, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(result.Status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, years, run_limit, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, years, run_limit, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveMovie(ctx context.Context, m *model.StoredMovie) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	notesJSON, err := json.Marshal(m.Notes)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal notes")
	}

	rec := m.Record
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO movies (id, run_id, year, title, domestic, international, worldwide, imdb_id, url, path, rejected, notes, policy_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (year, url) DO UPDATE SET
		   id = excluded.id, run_id = excluded.run_id, title = excluded.title,
		   domestic = excluded.domestic, international = excluded.international, worldwide = excluded.worldwide,
		   imdb_id = excluded.imdb_id, path = excluded.path, rejected = excluded.rejected,
		   notes = excluded.notes, policy_version = excluded.policy_version, created_at = excluded.created_at`,
		m.ID, m.RunID, rec.Year, rec.Title,
		rec.Figures.Domestic.Ptr(), rec.Figures.International.Ptr(), rec.Figures.Worldwide.Ptr(),
		rec.ExternalID, rec.SourceURL, string(m.Path), m.Rejected, string(notesJSON), m.PolicyVersion, m.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: save movie %s", rec.SourceURL)
}

func (s *SQLiteStore) ListMovies(ctx context.Context, filter MovieFilter) ([]model.StoredMovie, error) {
	query := `SELECT id, run_id, year, title, domestic, international, worldwide, imdb_id, url, path, rejected, notes, policy_version, created_at
	          FROM movies WHERE 1=1`
	var args []any

	if filter.Year != 0 {
		query += ` AND year = ?`
		args = append(args, filter.Year)
	}
	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	query += ` ORDER BY year ASC, worldwide DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list movies")
	}
	defer rows.Close()

	var movies []model.StoredMovie
	for rows.Next() {
		var m model.StoredMovie
		var dom, intl, ww sql.NullInt64
		var notes sql.NullString
		if err := rows.Scan(&m.ID, &m.RunID, &m.Record.Year, &m.Record.Title, &dom, &intl, &ww,
			&m.Record.ExternalID, &m.Record.SourceURL, &m.Path, &m.Rejected, &notes, &m.PolicyVersion, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan movie")
		}
		m.Record.Figures = figures.FigureSet{
			Domestic:      figures.FromPtr(nullInt(dom)),
			International: figures.FromPtr(nullInt(intl)),
			Worldwide:     figures.FromPtr(nullInt(ww)),
		}
		if notes.Valid && notes.String != "" {
			if err := json.Unmarshal([]byte(notes.String), &m.Notes); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal notes")
			}
		}
		movies = append(movies, m)
	}
	return movies, eris.Wrap(rows.Err(), "sqlite: list movies iterate")
}

func (s *SQLiteStore) RecordFailure(ctx context.Context, f *model.Failure) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO failures (id, run_id, year, url, error, error_type, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.RunID, f.Year, f.URL, f.Error, f.ErrorType, f.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: record failure %s", f.URL)
}

func (s *SQLiteStore) ListFailures(ctx context.Context, runID string) ([]model.Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, year, url, error, error_type, created_at FROM failures WHERE run_id = ? ORDER BY created_at ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list failures")
	}
	defer rows.Close()

	var out []model.Failure
	for rows.Next() {
		var f model.Failure
		if err := rows.Scan(&f.ID, &f.RunID, &f.Year, &f.URL, &f.Error, &f.ErrorType, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list failures iterate")
}

func (s *SQLiteStore) GetCachedPage(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM page_cache WHERE url = ? AND expires_at > ?`,
		url, time.Now().UTC(),
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached page")
	}
	return body, nil
}

func (s *SQLiteStore) SetCachedPage(ctx context.Context, url string, body []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO page_cache (url, body, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (url) DO UPDATE SET body = excluded.body, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		url, body, now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached page")
}

func (s *SQLiteStore) DeleteExpiredPages(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM page_cache WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired pages")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var yearsJSON string
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &yearsJSON, &r.Limit, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(yearsJSON), &r.Years); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal years")
	}
	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}
