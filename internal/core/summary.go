package core

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Point is one sample of the timeline chart.
type Point struct {
	Date       Date
	Cumulative decimal.Decimal
}

// AggregatedRow is a dated row with its resolved sign and running balance.
// Index is the row's position in the source table.
type AggregatedRow struct {
	Row
	Index      int
	Signed     decimal.Decimal
	Cumulative decimal.Decimal
}

// Totals summarizes the signed amounts of the timeline.
type Totals struct {
	Income  decimal.Decimal // sum of positive signed amounts
	Expense decimal.Decimal // magnitude of the negative signed amounts
	Net     decimal.Decimal // Income - Expense, equal to the last cumulative value
}

// Aggregation is the augmented, date-sorted projection of a Table.
type Aggregation struct {
	Schema   Schema
	Columns  []string
	Rows     []AggregatedRow
	Series   []Point
	Excluded int // rows left off the timeline for lack of a date
	Totals   Totals
}

// Aggregate sorts the dated rows of t by date (stable), resolves each
// amount's sign and computes the running cumulative balance. It never fails
// and never mutates t: unparseable amounts count as zero and undated rows are
// only counted in Excluded.
func Aggregate(t Table) Aggregation {
	s := t.Schema
	agg := Aggregation{
		Schema:  s.clone(),
		Columns: append(slices.Clone(t.Columns), s.SignedField, s.CumulativeField),
		Totals:  Totals{Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero},
	}
	categorized := t.Categorized()

	for i, r := range t.Rows {
		if r.Date.IsEmpty() {
			agg.Excluded++
			continue
		}
		amount := CoerceAmount(r.Amount)
		signed := amount
		if categorized && !s.isIncome(r.Category) {
			signed = amount.Abs().Neg()
		}
		agg.Rows = append(agg.Rows, AggregatedRow{Row: r.clone(), Index: i, Signed: signed})
	}

	slices.SortStableFunc(agg.Rows, func(a, b AggregatedRow) int {
		return a.Date.Compare(b.Date.Time)
	})

	running := decimal.Zero
	for i := range agg.Rows {
		running = running.Add(agg.Rows[i].Signed)
		agg.Rows[i].Cumulative = running
		agg.Series = append(agg.Series, Point{Date: agg.Rows[i].Date, Cumulative: running})

		switch signed := agg.Rows[i].Signed; {
		case signed.IsPositive():
			agg.Totals.Income = agg.Totals.Income.Add(signed)
		case signed.IsNegative():
			agg.Totals.Expense = agg.Totals.Expense.Add(signed.Neg())
		}
	}
	agg.Totals.Net = running
	return agg
}

// Empty reports whether the timeline has nothing to chart.
func (a Aggregation) Empty() bool {
	return len(a.Series) == 0
}

// Cell returns the text of column col in aggregated row i.
func (a Aggregation) Cell(i int, col string) string {
	r := a.Rows[i]
	switch col {
	case a.Schema.SignedField:
		return r.Signed.String()
	case a.Schema.CumulativeField:
		return r.Cumulative.String()
	default:
		return r.cell(a.Schema, col)
	}
}

// Records returns the augmented table as a header plus one record per row,
// the form consumed by renderers and spreadsheet mirrors.
func (a Aggregation) Records() [][]string {
	out := make([][]string, 0, len(a.Rows)+1)
	out = append(out, slices.Clone(a.Columns))
	for i := range a.Rows {
		rec := make([]string, len(a.Columns))
		for j, col := range a.Columns {
			rec[j] = a.Cell(i, col)
		}
		out = append(out, rec)
	}
	return out
}
