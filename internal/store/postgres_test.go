package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boxoffice-cli/internal/figures"
	"github.com/sells-group/boxoffice-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func ptr(v int64) *int64 { return &v }

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), []byte("[2019,2020]"), 25, "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), []int{2019, 2020}, 25)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, years, run_limit, status, result, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "years", "run_limit", "status", "result", "created_at", "updated_at"}).
			AddRow("run-1", []byte("[2019]"), 50, "complete", []byte(`{"status":"complete","scraped":48,"failed":2,"rejected":1}`), now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, []int{2019}, run.Years)
	assert.Equal(t, 50, run.Limit)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, 48, run.Result.Scraped)
	assert.Equal(t, 1, run.Result.Rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET result`).
		WithArgs(pgxmock.AnyArg(), "failed", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing", &model.RunResult{Status: model.RunStatusFailed})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`AND status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("complete", 10, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "years", "run_limit", "status", "result", "created_at", "updated_at"}).
			AddRow("run-2", []byte("[2020]"), 5, "complete", nil, now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusComplete, Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveMovie_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO "movies" .* ON CONFLICT \("year", "url"\) DO UPDATE SET`).
		WithArgs(pgxmock.AnyArg(), "run-1", 2019, "Joker",
			ptr(335_451_311), ptr(738_800_000), (*int64)(nil),
			"tt7286456", "https://m/rl1/", "pair", false, pgxmock.AnyArg(), "2", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	m := &model.StoredMovie{
		RunID: "run-1",
		Record: model.MovieRecord{
			Year:  2019,
			Title: "Joker",
			Figures: figures.FigureSet{
				Domestic:      figures.Derived(335_451_311),
				International: figures.Derived(738_800_000),
				Worldwide:     figures.Unknown(),
			},
			ExternalID: "tt7286456",
			SourceURL:  "https://m/rl1/",
		},
		Path:          figures.PathPair,
		PolicyVersion: "2",
	}
	require.NoError(t, s.SaveMovie(context.Background(), m))
	assert.NotEmpty(t, m.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListMovies(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	cols := []string{"id", "run_id", "year", "title", "domestic", "international", "worldwide",
		"imdb_id", "url", "path", "rejected", "notes", "policy_version", "created_at"}
	mock.ExpectQuery(`FROM movies WHERE true AND year = \$1 ORDER BY year ASC, worldwide DESC NULLS LAST LIMIT \$2`).
		WithArgs(2019, 100).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("m1", "run-1", 2019, "Joker", ptr(335_451_311), ptr(738_800_000), ptr(1_074_251_311),
				"tt7286456", "https://m/rl1/", "triple", false, []byte(`["note"]`), "2", now).
			AddRow("m2", "run-1", 2019, "Blank", nil, nil, nil,
				"", "https://m/rl2/", "none", false, nil, "2", now))

	movies, err := s.ListMovies(context.Background(), MovieFilter{Year: 2019})
	require.NoError(t, err)
	require.Len(t, movies, 2)

	assert.Equal(t, figures.PathTriple, movies[0].Path)
	assert.Equal(t, []string{"note"}, movies[0].Notes)
	assert.True(t, movies[0].Record.Figures.Worldwide.Known)
	assert.EqualValues(t, 1_074_251_311, movies[0].Record.Figures.Worldwide.Amount)

	assert.False(t, movies[1].Record.Figures.Domestic.Known)
	assert.Nil(t, movies[1].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO failures`).
		WithArgs(pgxmock.AnyArg(), "run-1", 2019, "https://m/rl9/", "http 503", "transient", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	f := &model.Failure{RunID: "run-1", Year: 2019, URL: "https://m/rl9/", Error: "http 503", ErrorType: "transient"}
	require.NoError(t, s.RecordFailure(context.Background(), f))
	assert.NotEmpty(t, f.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedPage_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT body FROM page_cache`).
		WithArgs("https://unknown/").
		WillReturnError(pgx.ErrNoRows)

	body, err := s.GetCachedPage(context.Background(), "https://unknown/")
	require.NoError(t, err)
	assert.Nil(t, body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedPage_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT body FROM page_cache`).
		WithArgs("https://m/").
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetCachedPage(context.Background(), "https://m/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get cached page")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetCachedPage_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \("url"\)`).
		WithArgs("https://m/year/2019/", []byte("<html/>"), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetCachedPage(context.Background(), "https://m/year/2019/", []byte("<html/>"), 24*time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredPages(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM page_cache WHERE expires_at <= now\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteExpiredPages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	closed := false
	s := &PostgresStore{closeFn: func() { closed = true }}
	require.NoError(t, s.Close())
	assert.True(t, closed)
}
