package http

import (
	"html/template"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

const emptyTimelineMessage = "Add entries above to generate a timeline."

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

type pageData struct {
	Flash       *flash
	Version     int64
	Schema      string
	SchemaNames []string
	Currency    string
	MaxUploadMB float64
	Grid        gridView
	Timeline    timelineView
}

type gridView struct {
	Columns []gridColumn
	Rows    []gridRow
}

type gridColumn struct {
	Name      string
	InputType string
}

type gridRow struct {
	Index int
	Cells []gridCell
}

type gridCell struct {
	Column    string
	Value     string
	InputType string
}

type timelineView struct {
	Empty       bool
	Placeholder string
	Columns     []string
	Rows        [][]timelineCell
	Chart       chartView
	Income      string
	Expense     string
	Net         string
	NetNegative bool
	Excluded    int
}

type timelineCell struct {
	Text     string
	Numeric  bool
	Negative bool
}

func (s *Server) buildPage(snap store.Snapshot, agg core.Aggregation, f *flash) pageData {
	t := snap.Table
	data := pageData{
		Flash:       f,
		Version:     snap.Version,
		Schema:      t.Schema.Name,
		SchemaNames: core.SchemaNames(),
		Currency:    s.currency,
		MaxUploadMB: float64(s.maxUploadBytes) / (1 << 20),
	}

	for _, col := range t.Columns {
		data.Grid.Columns = append(data.Grid.Columns, gridColumn{Name: col, InputType: inputType(t.Schema, col)})
	}
	for i := range t.Rows {
		row := gridRow{Index: i}
		for _, col := range data.Grid.Columns {
			row.Cells = append(row.Cells, gridCell{Column: col.Name, Value: t.Cell(i, col.Name), InputType: col.InputType})
		}
		data.Grid.Rows = append(data.Grid.Rows, row)
	}

	data.Timeline = s.buildTimeline(agg)
	return data
}

func (s *Server) buildTimeline(agg core.Aggregation) timelineView {
	v := timelineView{
		Empty:       agg.Empty(),
		Placeholder: emptyTimelineMessage,
		Excluded:    agg.Excluded,
	}
	if v.Empty {
		return v
	}

	sch := agg.Schema
	v.Columns = agg.Columns
	for i, r := range agg.Rows {
		cells := make([]timelineCell, len(agg.Columns))
		for j, col := range agg.Columns {
			switch col {
			case sch.SignedField:
				cells[j] = s.amountCell(r.Signed)
			case sch.CumulativeField:
				cells[j] = s.amountCell(r.Cumulative)
			default:
				cells[j] = timelineCell{Text: agg.Cell(i, col), Numeric: col == sch.AmountField}
			}
		}
		v.Rows = append(v.Rows, cells)
	}

	v.Chart = buildChart(agg.Series, s.currency)
	v.Income = formatAmount(agg.Totals.Income, s.currency)
	v.Expense = formatAmount(agg.Totals.Expense, s.currency)
	v.Net = formatAmount(agg.Totals.Net, s.currency)
	v.NetNegative = agg.Totals.Net.IsNegative()
	return v
}

func (s *Server) amountCell(d decimal.Decimal) timelineCell {
	return timelineCell{Text: formatAmount(d, s.currency), Numeric: true, Negative: d.IsNegative()}
}

func inputType(sch core.Schema, col string) string {
	if col == sch.DateField {
		return "date"
	}
	return "text"
}

type timelineResponse struct {
	Version  int64          `json:"version"`
	Schema   string         `json:"schema"`
	Columns  []string       `json:"columns"`
	Rows     [][]string     `json:"rows"`
	Series   []seriesPoint  `json:"series"`
	Totals   totalsResponse `json:"totals"`
	Excluded int            `json:"excluded"`
}

type seriesPoint struct {
	Date       string          `json:"date"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

type totalsResponse struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

func newTimelineResponse(version int64, agg core.Aggregation) timelineResponse {
	records := agg.Records()
	resp := timelineResponse{
		Version:  version,
		Schema:   agg.Schema.Name,
		Columns:  records[0],
		Rows:     records[1:],
		Series:   make([]seriesPoint, 0, len(agg.Series)),
		Excluded: agg.Excluded,
		Totals: totalsResponse{
			Income:  agg.Totals.Income,
			Expense: agg.Totals.Expense,
			Net:     agg.Totals.Net,
		},
	}
	for _, p := range agg.Series {
		resp.Series = append(resp.Series, seriesPoint{Date: p.Date.String(), Cumulative: p.Cumulative})
	}
	return resp
}
