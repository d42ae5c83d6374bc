package sink

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Box Office"

// WriteXLSX writes rows to a single-sheet workbook at path with the merged
// header as its first row. Worldwide is written as a number so the sheet
// sorts correctly; the other figures keep their source text.
func WriteXLSX(path string, rows []MergedRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range MergedHeader {
		header.AddCell().SetString(h)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.Year)
		row.AddCell().SetString(r.Title)
		row.AddCell().SetString(r.Domestic)
		row.AddCell().SetString(r.International)
		row.AddCell().SetInt(int(r.worldwide))
		row.AddCell().SetString(r.ImdbID)
		row.AddCell().SetString(r.URL)
	}

	return eris.Wrapf(f.Save(path), "xlsx: save %s", path)
}
