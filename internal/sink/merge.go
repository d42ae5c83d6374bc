package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice-cli/internal/money"
)

// MergedFileName is the default name of the merged output.
const MergedFileName = "all_boxoffice.csv"

// MergedHeader is the column layout of the merged file.
var MergedHeader = append([]string{"Year"}, YearHeader...)

var yearFileRe = regexp.MustCompile(`^boxoffice_(\d{4})\.csv$`)

// MergedRow is one row of the merged table. Values are kept as they appear
// in the per-year files.
type MergedRow struct {
	Year          int    `json:"year"`
	Title         string `json:"title"`
	Domestic      string `json:"domestic"`
	International string `json:"international"`
	Worldwide     string `json:"worldwide"`
	ImdbID        string `json:"imdb_id"`
	URL           string `json:"url"`

	worldwide money.Amount
}

// WorldwideAmount returns the parsed worldwide gross, 0 when unparseable.
func (r MergedRow) WorldwideAmount() money.Amount {
	return r.worldwide
}

// Strings returns the row in MergedHeader order.
func (r MergedRow) Strings() []string {
	return []string{strconv.Itoa(r.Year), r.Title, r.Domestic, r.International, r.Worldwide, r.ImdbID, r.URL}
}

// MergeReport summarizes a merge.
type MergeReport struct {
	Output  string      `json:"output"`
	Files   []string    `json:"files"`
	Skipped []string    `json:"skipped,omitempty"`
	Rows    []MergedRow `json:"-"`
	MinYear int         `json:"min_year"`
	MaxYear int         `json:"max_year"`
	Top     []MergedRow `json:"top"`
}

// Total returns the number of merged rows.
func (r *MergeReport) Total() int {
	return len(r.Rows)
}

// Merge combines every boxoffice_<year>.csv in dir into out, sorted by year
// ascending and worldwide gross descending. Files without the expected header
// are skipped, as are rows with a blank title.
func Merge(ctx context.Context, dir, out string) (*MergeReport, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "boxoffice_*.csv"))
	if err != nil {
		return nil, eris.Wrapf(err, "sink: glob %s", dir)
	}
	sort.Strings(matches)

	report := &MergeReport{Output: out}
	for _, path := range matches {
		m := yearFileRe.FindStringSubmatch(filepath.Base(path))
		if m == nil {
			zap.L().Warn("skipping file without a year in its name", zap.String("file", path))
			report.Skipped = append(report.Skipped, path)
			continue
		}
		year, _ := strconv.Atoi(m[1])

		rows, ok, err := readYearFile(ctx, path, year)
		if err != nil {
			return nil, err
		}
		if !ok {
			zap.L().Warn("skipping file with unexpected header", zap.String("file", path))
			report.Skipped = append(report.Skipped, path)
			continue
		}
		report.Files = append(report.Files, path)
		report.Rows = append(report.Rows, rows...)
	}

	if len(report.Rows) == 0 {
		return nil, eris.Errorf("sink: no rows to merge in %s", dir)
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.worldwide > b.worldwide
	})

	report.MinYear = report.Rows[0].Year
	report.MaxYear = report.Rows[len(report.Rows)-1].Year
	report.Top = topByWorldwide(report.Rows, 5)

	if err := writeMerged(out, report.Rows); err != nil {
		return nil, err
	}
	return report, nil
}

func readYearFile(ctx context.Context, path string, year int) ([]MergedRow, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, eris.Wrapf(err, "sink: open %s", path)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var rows []MergedRow
	rowCh, errCh := StreamYearRows(ctx, f, year)
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		if errors.Is(err, ErrUnexpectedHeader) {
			return nil, false, nil
		}
		return nil, false, eris.Wrapf(err, "sink: read %s", path)
	}
	return rows, true, nil
}
