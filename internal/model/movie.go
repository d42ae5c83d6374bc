package model

import (
	"time"

	"github.com/sells-group/boxoffice-cli/internal/figures"
)

// MovieRecord is the scraped result for one release page. It is built once
// and written once to each sink.
type MovieRecord struct {
	Year       int               `json:"year" yaml:"year"`
	Title      string            `json:"title" yaml:"title"`
	Figures    figures.FigureSet `json:"figures" yaml:"figures"`
	ExternalID string            `json:"imdb_id,omitempty" yaml:"imdb_id"`
	SourceURL  string            `json:"url" yaml:"url"`
}

// Row returns the per-year CSV row: Title, Domestic, International,
// Worldwide, ImdbID, URL.
func (m MovieRecord) Row() []string {
	return []string{
		m.Title,
		m.Figures.Domestic.String(),
		m.Figures.International.String(),
		m.Figures.Worldwide.String(),
		m.ExternalID,
		m.SourceURL,
	}
}

// StoredMovie is a MovieRecord as persisted by a scrape run, together with
// how its figures were decided.
type StoredMovie struct {
	ID       string       `json:"id"`
	RunID    string       `json:"run_id"`
	Record   MovieRecord  `json:"record"`
	Path     figures.Path `json:"path"`
	Rejected bool         `json:"rejected"`
	Notes    []string     `json:"notes,omitempty"`
	// PolicyVersion is the disambiguation policy that produced Record.Figures.
	PolicyVersion string    `json:"policy_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// Listing is one title from an IMDb year search.
type Listing struct {
	Title  string `json:"title"`
	IMDbID string `json:"imdb_id"`
	Year   int    `json:"year"`
	URL    string `json:"imdb_url"`
}

// Row returns the listing CSV row: title, imdb_id, year, imdb_url.
func (l Listing) Row() []string {
	return []string{l.Title, l.IMDbID, itoa(l.Year), l.URL}
}
