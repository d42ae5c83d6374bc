package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is one table column. Amounts and counts are numeric and right-aligned.
type column struct {
	name    string
	numeric bool
}

func textCol(name string) column { return column{name: name} }
func numCol(name string) column  { return column{name: name, numeric: true} }

// tableView is a rendered section of command output: an optional title, the
// rows, and an optional footer such as a total.
type tableView struct {
	title   string
	columns []column
	rows    []table.Row
	footer  table.Row
}

func newTableView(title string, cols ...column) *tableView {
	return &tableView{title: title, columns: cols}
}

// add appends a row; missing trailing cells render blank and extra cells are
// dropped.
func (v *tableView) add(cells ...string) {
	v.rows = append(v.rows, v.fit(cells))
}

func (v *tableView) setFooter(cells ...string) {
	v.footer = v.fit(cells)
}

func (v *tableView) fit(cells []string) table.Row {
	row := make(table.Row, len(v.columns))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}

func (v *tableView) String() string {
	if len(v.columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if v.title != "" {
		tw.SetTitle("%s", v.title)
	}

	header := make(table.Row, len(v.columns))
	configs := make([]table.ColumnConfig, len(v.columns))
	for i, c := range v.columns {
		header[i] = c.name
		align := text.AlignLeft
		if c.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignFooter: align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.AppendRows(v.rows)
	if v.footer != nil {
		tw.AppendFooter(v.footer)
	}
	tw.SetColumnConfigs(configs)

	return tw.Render() + "\n"
}
