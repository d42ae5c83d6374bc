package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/boxoffice-cli/internal/figures"
	"github.com/sells-group/boxoffice-cli/internal/model"
)

func collectRows(t *testing.T, rowCh <-chan MergedRow, errCh <-chan error) ([]MergedRow, error) {
	t.Helper()
	var rows []MergedRow
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestStreamYearRows_ReorderedColumns(t *testing.T) {
	input := "URL, Title,Worldwide,Domestic,International,ImdbID,Extra\n" +
		`u1, Tenet ,"$363,656,624","$58,456,624","$305,200,000",tt6723592,x` + "\n" +
		`u2,,"$1","$1",$0,,` + "\n" +
		`u3,Short` + "\n"
	rowCh, errCh := StreamYearRows(context.Background(), strings.NewReader(input), 2020)
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, MergedRow{
		Year:          2020,
		Title:         "Tenet",
		Domestic:      "$58,456,624",
		International: "$305,200,000",
		Worldwide:     "$363,656,624",
		ImdbID:        "tt6723592",
		URL:           "u1",
		worldwide:     363_656_624,
	}, rows[0])
	assert.Equal(t, "Short", rows[1].Title)
	assert.Zero(t, rows[1].WorldwideAmount())
}

func TestStreamYearRows_UnexpectedHeader(t *testing.T) {
	for name, input := range map[string]string{
		"empty":          "",
		"missing column": "Title,Domestic\nA,$1\n",
	} {
		t.Run(name, func(t *testing.T) {
			rowCh, errCh := StreamYearRows(context.Background(), strings.NewReader(input), 2000)
			_, err := collectRows(t, rowCh, errCh)
			assert.ErrorIs(t, err, ErrUnexpectedHeader)
		})
	}
}

func TestStreamYearRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rowCh, errCh := StreamYearRows(ctx, strings.NewReader(header+"A,$1,$0,$1,,u\n"), 2000)
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestCSVSink_WritesHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := OpenYear(dir, 2019)
	require.NoError(t, err)

	require.NoError(t, s.Append(model.MovieRecord{
		Title: "Avengers: Endgame",
		Figures: figures.FigureSet{
			Domestic:      figures.Derived(858_373_000),
			International: figures.Derived(1_941_128_000),
			Worldwide:     figures.Derived(2_799_501_000),
		},
		ExternalID: "tt4154796",
		SourceURL:  "https://www.boxofficemojo.com/release/rl3059975681/",
	}))
	require.NoError(t, s.Append(model.MovieRecord{Title: "No Figures, Inc."}))
	assert.Equal(t, 2, s.Count())
	require.NoError(t, s.Close())

	b, err := os.ReadFile(filepath.Join(dir, "boxoffice_2019.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Title,Domestic,International,Worldwide,ImdbID,URL", lines[0])
	assert.Equal(t, `Avengers: Endgame,"$858,373,000","$1,941,128,000","$2,799,501,000",tt4154796,https://www.boxofficemojo.com/release/rl3059975681/`, lines[1])
	assert.Equal(t, `"No Figures, Inc.",$0,$0,$0,,`, lines[2])
}

func TestListingSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.csv")
	s, err := OpenListings(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(
		model.Listing{Title: "Parasite", IMDbID: "tt6751668", Year: 2019, URL: "https://www.imdb.com/title/tt6751668/"},
		model.Listing{Title: "Joker", IMDbID: "tt7286456", Year: 2019, URL: "https://www.imdb.com/title/tt7286456/"},
	))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "title,imdb_id,year,imdb_url\n"+
		"Parasite,tt6751668,2019,https://www.imdb.com/title/tt6751668/\n"+
		"Joker,tt7286456,2019,https://www.imdb.com/title/tt7286456/\n", string(b))
}

const header = "Title,Domestic,International,Worldwide,ImdbID,URL\n"

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "boxoffice_2020.csv", header+
		`Tenet,"$58,456,624","$305,200,000","$363,656,624",tt6723592,u1`+"\n"+
		`Bad Boys for Life,"$206,305,244","$220,200,000","$426,505,244",tt1502397,u2`+"\n")
	writeFile(t, dir, "boxoffice_2019.csv", header+
		`Joker,"$335,451,311","$738,800,000","$1,074,251,311",tt7286456,u3`+"\n"+
		`,"$1","$1","$2",,u4`+"\n"+
		`Unknown,$0,$0,$0,,u5`+"\n")
	writeFile(t, dir, "boxoffice_bad.csv", header)
	writeFile(t, dir, "boxoffice_2018.csv", "Name,Gross\nx,1\n")

	out := filepath.Join(dir, "merged", MergedFileName)
	report, err := Merge(context.Background(), dir, out)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total())
	assert.Len(t, report.Files, 2)
	assert.Len(t, report.Skipped, 2)
	assert.Equal(t, 2019, report.MinYear)
	assert.Equal(t, 2020, report.MaxYear)

	var titles []string
	for _, r := range report.Rows {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"Joker", "Unknown", "Bad Boys for Life", "Tenet"}, titles)

	require.Len(t, report.Top, 4)
	assert.Equal(t, "Joker", report.Top[0].Title)
	assert.Equal(t, "Unknown", report.Top[3].Title)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Year,Title,Domestic,International,Worldwide,ImdbID,URL", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2019,Joker,"))
	assert.True(t, strings.HasPrefix(lines[4], "2020,Tenet,"))
}

func TestMerge_NoFiles(t *testing.T) {
	_, err := Merge(context.Background(), t.TempDir(), filepath.Join(t.TempDir(), MergedFileName))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rows to merge")
}

func TestMerge_HeaderOnlyFileIsNotSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "boxoffice_1977.csv", header)
	writeFile(t, dir, "boxoffice_1978.csv", header+`Grease,"$159,978,870",$0,"$159,978,870",,u`+"\n")

	report, err := Merge(context.Background(), dir, filepath.Join(dir, MergedFileName))
	require.NoError(t, err)
	assert.Len(t, report.Files, 2)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, 1, report.Total())
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all.xlsx")
	rows := []MergedRow{
		{Year: 2019, Title: "Joker", Worldwide: "$1,074,251,311", worldwide: 1_074_251_311},
		{Year: 2020, Title: "Tenet", Worldwide: "$363,656,624", worldwide: 363_656_624},
	}
	require.NoError(t, WriteXLSX(path, rows))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, SheetName, sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Title", sheet.Rows[0].Cells[1].String())
	assert.Equal(t, "Joker", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "Tenet", sheet.Rows[2].Cells[1].String())
}
