package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableView is one rendered CLI table. Footer, when set, carries totals.
type tableView struct {
	Title   string
	Headers []string
	Rows    [][]string
	Align   []columnAlignment
	Footer  []string
}

func (v tableView) Render() string {
	columns := len(v.Headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if v.Title != "" {
		tw.SetTitle(v.Title)
	}
	tw.AppendHeader(padRow(v.Headers, columns))
	for _, row := range v.Rows {
		tw.AppendRow(padRow(row, columns))
	}
	if len(v.Footer) > 0 {
		tw.AppendFooter(padRow(v.Footer, columns))
	}

	configs := make([]table.ColumnConfig, columns)
	for i := range configs {
		align := text.AlignLeft
		if i < len(v.Align) && v.Align[i] == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignFooter: align, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// renderTable draws an untitled table with no footer.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	return tableView{Headers: headers, Rows: rows, Align: aligns}.Render()
}

// padRow fills short rows so every line has the header's column count.
func padRow(cells []string, columns int) table.Row {
	row := make(table.Row, columns)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
