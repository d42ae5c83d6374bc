package model

import (
	"strconv"
	"time"
)

// RunStatus represents the current state of a scrape run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one invocation of the scrape command.
type Run struct {
	ID        string     `json:"id"`
	Years     []int      `json:"years"`
	Limit     int        `json:"limit"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Status   RunStatus `json:"status"`
	Scraped  int       `json:"scraped"`
	Failed   int       `json:"failed"`
	Rejected int       `json:"rejected"`
	Error    string    `json:"error,omitempty"`
}

// Failure is a release page that was skipped during a run.
type Failure struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Year      int       `json:"year"`
	URL       string    `json:"url"`
	Error     string    `json:"error"`
	ErrorType string    `json:"error_type"` // "transient" or "permanent"
	CreatedAt time.Time `json:"created_at"`
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
