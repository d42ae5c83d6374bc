package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/boxoffice-cli/internal/model"
)

// YearHeader is the column layout of a per-year file.
var YearHeader = []string{"Title", "Domestic", "International", "Worldwide", "ImdbID", "URL"}

// ListingHeader is the column layout of an IMDb listing file.
var ListingHeader = []string{"title", "imdb_id", "year", "imdb_url"}

// YearFileName returns the per-year file name, e.g. boxoffice_2019.csv.
func YearFileName(year int) string {
	return fmt.Sprintf("boxoffice_%d.csv", year)
}

// CSVFile is a CSV file opened for writing with its header already written.
// Rows are buffered; Flush or Close persists them.
type CSVFile struct {
	f     *os.File
	w     *csv.Writer
	path  string
	count int
}

// Create truncates or creates path and writes header as the first row.
func Create(path string, header []string) (*CSVFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sink: create %s", path)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, eris.Wrapf(err, "sink: write header %s", path)
	}
	return &CSVFile{f: f, w: w, path: path}, nil
}

// Write appends one row.
func (c *CSVFile) Write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return eris.Wrapf(err, "sink: write %s", c.path)
	}
	c.count++
	return nil
}

// Flush writes buffered rows to disk.
func (c *CSVFile) Flush() error {
	c.w.Flush()
	return eris.Wrapf(c.w.Error(), "sink: flush %s", c.path)
}

// Close flushes and closes the file.
func (c *CSVFile) Close() error {
	flushErr := c.Flush()
	if err := c.f.Close(); err != nil && flushErr == nil {
		return eris.Wrapf(err, "sink: close %s", c.path)
	}
	return flushErr
}

// Path returns the file path.
func (c *CSVFile) Path() string { return c.path }

// Count returns the number of rows written, excluding the header.
func (c *CSVFile) Count() int { return c.count }

// CSVSink receives the records of one year.
type CSVSink struct {
	*CSVFile
}

// OpenYear creates boxoffice_<year>.csv in dir, creating dir if needed.
func OpenYear(dir string, year int) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "sink: mkdir %s", dir)
	}
	f, err := Create(filepath.Join(dir, YearFileName(year)), YearHeader)
	if err != nil {
		return nil, err
	}
	return &CSVSink{CSVFile: f}, nil
}

// Append writes rec as one row.
func (s *CSVSink) Append(rec model.MovieRecord) error {
	return s.Write(rec.Row())
}

// ListingSink receives IMDb listings.
type ListingSink struct {
	*CSVFile
}

// OpenListings creates the listing file at path.
func OpenListings(path string) (*ListingSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "sink: mkdir %s", dir)
		}
	}
	f, err := Create(path, ListingHeader)
	if err != nil {
		return nil, err
	}
	return &ListingSink{CSVFile: f}, nil
}

// Append writes every listing as a row.
func (s *ListingSink) Append(ls ...model.Listing) error {
	for _, l := range ls {
		if err := s.Write(l.Row()); err != nil {
			return err
		}
	}
	return nil
}
