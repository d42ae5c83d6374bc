// Package store persists scrape runs, scraped movies, skipped pages and the
// raw page cache.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sells-group/boxoffice-cli/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// MovieFilter specifies criteria for listing movies.
type MovieFilter struct {
	Year  int    `json:"year,omitempty"`
	RunID string `json:"run_id,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

const defaultListLimit = 100

// Store defines the persistence interface for scrape runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, years []int, limit int) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Movies. A release URL is stored once per year; rescrapes replace it.
	SaveMovie(ctx context.Context, m *model.StoredMovie) error
	ListMovies(ctx context.Context, filter MovieFilter) ([]model.StoredMovie, error)

	// Skipped pages
	RecordFailure(ctx context.Context, f *model.Failure) error
	ListFailures(ctx context.Context, runID string) ([]model.Failure, error)

	// Page cache
	GetCachedPage(ctx context.Context, url string) ([]byte, error)
	SetCachedPage(ctx context.Context, url string, body []byte, ttl time.Duration) error
	DeleteExpiredPages(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
