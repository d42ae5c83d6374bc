// Package sink writes scraped records to per-year CSV files and merges those
// files into a single table.
package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/boxoffice-cli/internal/money"
)

// ErrUnexpectedHeader is reported when a year file is empty or lacks one of
// the YearHeader columns.
var ErrUnexpectedHeader = errors.New("unexpected header")

// StreamYearRows reads a boxoffice_<year>.csv body from r and sends each row
// with a title as a MergedRow. Columns are located by header name, so extra
// or reordered columns are tolerated. Both channels are closed when the file
// is exhausted, the context is done, or a read fails.
func StreamYearRows(ctx context.Context, r io.Reader, year int) (<-chan MergedRow, <-chan error) {
	rowCh := make(chan MergedRow, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1

		header, err := reader.Read()
		if err == io.EOF {
			errCh <- ErrUnexpectedHeader
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "csv: read header")
			return
		}
		idx := columnIndex(header)
		if idx == nil {
			errCh <- ErrUnexpectedHeader
			return
		}

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			row, ok := idx.row(record, year)
			if !ok {
				continue
			}
			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// headerIndex maps a YearHeader column to its position in the file.
type headerIndex map[string]int

// columnIndex returns nil if any YearHeader column is missing.
func columnIndex(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range YearHeader {
		if _, ok := idx[col]; !ok {
			return nil
		}
	}
	return idx
}

func (idx headerIndex) get(record []string, col string) string {
	if i := idx[col]; i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}

// row converts one record; ok is false for rows with a blank title.
func (idx headerIndex) row(record []string, year int) (MergedRow, bool) {
	title := idx.get(record, "Title")
	if title == "" {
		return MergedRow{}, false
	}
	ww := idx.get(record, "Worldwide")
	amount, err := money.Parse(ww)
	if err != nil {
		amount = 0
	}
	return MergedRow{
		Year:          year,
		Title:         title,
		Domestic:      idx.get(record, "Domestic"),
		International: idx.get(record, "International"),
		Worldwide:     ww,
		ImdbID:        idx.get(record, "ImdbID"),
		URL:           idx.get(record, "URL"),
		worldwide:     amount,
	}, true
}
