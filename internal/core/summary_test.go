package core

import (
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(d int) Date { return NewDate(2024, time.January, d) }

func cumulatives(a Aggregation) []string {
	out := make([]string, len(a.Rows))
	for i, r := range a.Rows {
		out[i] = r.Cumulative.String()
	}
	return out
}

func TestAggregateCategorizedExample(t *testing.T) {
	s := mustSchema(t, "en-categorized")
	tbl := s.EmptyTable()
	tbl.Rows = []Row{
		{Date: day(1), Description: "salary", Category: "income", Amount: "100"},
		{Date: day(3), Description: "groceries", Category: "expense", Amount: "40"},
		{Date: day(2), Description: "refund", Category: "income", Amount: "10"},
	}

	agg := Aggregate(tbl)

	var signed []string
	for _, r := range agg.Rows {
		signed = append(signed, r.Signed.String())
	}
	if !slices.Equal(signed, []string{"100", "10", "-40"}) {
		t.Fatalf("signed = %v", signed)
	}
	if got := cumulatives(agg); !slices.Equal(got, []string{"100", "110", "70"}) {
		t.Fatalf("cumulative = %v", got)
	}
	if len(agg.Series) != 3 || !agg.Series[1].Date.Equal(day(2).Time) || agg.Series[2].Cumulative.String() != "70" {
		t.Fatalf("unexpected series %+v", agg.Series)
	}
	if agg.Totals.Income.String() != "110" || agg.Totals.Expense.String() != "40" || agg.Totals.Net.String() != "70" {
		t.Fatalf("unexpected totals %+v", agg.Totals)
	}
	wantCols := []string{"date", "description", "category", "amount", "signedAmount", "cumulativeAmount"}
	if !slices.Equal(agg.Columns, wantCols) {
		t.Fatalf("columns = %v", agg.Columns)
	}
}

func TestAggregateSignFollowsCategoryOnly(t *testing.T) {
	s := mustSchema(t, "en-categorized")
	tbl := s.EmptyTable()
	tbl.Rows = []Row{
		{Date: day(1), Category: "expense", Amount: "-25"},
		{Date: day(2), Category: "Expense", Amount: "25"},
		{Date: day(3), Category: " INCOME ", Amount: "5"},
		{Date: day(4), Category: "", Amount: "7"}, // anything but income is an expense
	}
	agg := Aggregate(tbl)
	want := []string{"-25", "-25", "5", "-7"}
	for i, r := range agg.Rows {
		if r.Signed.String() != want[i] {
			t.Fatalf("row %d signed = %s, want %s", i, r.Signed, want[i])
		}
		if r.Category != "" && s.isIncome(r.Category) && r.Signed.IsNegative() {
			t.Fatalf("income row %d negative", i)
		}
	}
}

func TestAggregatePlainKeepsRawSign(t *testing.T) {
	tbl := DefaultSchema().EmptyTable()
	tbl.Rows = []Row{
		{Date: day(2), Amount: "-30"},
		{Date: day(1), Amount: "50.25"},
	}
	agg := Aggregate(tbl)
	if got := cumulatives(agg); !slices.Equal(got, []string{"50.25", "20.25"}) {
		t.Fatalf("cumulative = %v", got)
	}
}

func TestAggregateCategorySchemaWithoutColumnIsPlain(t *testing.T) {
	s := mustSchema(t, "en-categorized")
	tbl := Table{Schema: s, Columns: []string{"date", "description", "amount"}}
	tbl.Rows = []Row{{Date: day(1), Amount: "12"}}
	if tbl.Categorized() {
		t.Fatalf("table without category column must be plain")
	}
	if agg := Aggregate(tbl); agg.Rows[0].Signed.String() != "12" {
		t.Fatalf("plain variant must keep sign, got %s", agg.Rows[0].Signed)
	}
}

func TestAggregateLenientAmounts(t *testing.T) {
	tbl := DefaultSchema().EmptyTable()
	tbl.Rows = []Row{
		{Date: day(1), Amount: "10"},
		{Date: day(2), Amount: "abc"},
		{Date: day(3), Amount: ""},
		{Date: day(4), Amount: "2,5"},
		{Date: day(5), Amount: "1e-20000000"},
	}
	agg := Aggregate(tbl)
	if got := cumulatives(agg); !slices.Equal(got, []string{"10", "10", "10", "12.5", "12.5"}) {
		t.Fatalf("cumulative = %v", got)
	}
	if agg.Rows[1].Amount != "abc" {
		t.Fatalf("raw amount text must be preserved")
	}
	if got := agg.Totals.Net.String(); got != "12.5" {
		t.Fatalf("net = %s, out-of-range amount must count as zero", got)
	}
}

func TestAggregateStableSortAndExclusion(t *testing.T) {
	tbl := DefaultSchema().EmptyTable()
	tbl.Rows = []Row{
		{Date: day(5), Description: "a", Amount: "1"},
		{Date: day(2), Description: "b", Amount: "2"},
		{Description: "undated", Amount: "1000"},
		{Date: day(5), Description: "c", Amount: "3"},
		{Date: day(2), Description: "d", Amount: "4"},
	}
	agg := Aggregate(tbl)

	var order []string
	var indexes []int
	for _, r := range agg.Rows {
		order = append(order, r.Description)
		indexes = append(indexes, r.Index)
	}
	if !slices.Equal(order, []string{"b", "d", "a", "c"}) {
		t.Fatalf("order = %v", order)
	}
	if !slices.Equal(indexes, []int{1, 4, 0, 3}) {
		t.Fatalf("indexes = %v", indexes)
	}
	if agg.Excluded != 1 {
		t.Fatalf("excluded = %d, want 1", agg.Excluded)
	}
	if got := cumulatives(agg); !slices.Equal(got, []string{"2", "6", "7", "10"}) {
		t.Fatalf("cumulative = %v", got)
	}
}

func TestAggregatePrefixSumProperty(t *testing.T) {
	s := mustSchema(t, "en-categorized")
	tbl := s.EmptyTable()
	amounts := []string{"3.10", "-7", "0", "12.345", "abc", "99", "-0.01"}
	for i, a := range amounts {
		cat := "expense"
		if i%2 == 0 {
			cat = "income"
		}
		tbl.Rows = append(tbl.Rows, Row{Date: day(len(amounts) - i), Category: cat, Amount: a})
	}
	agg := Aggregate(tbl)

	sum := decimal.Zero
	nonNegative := true
	for i, r := range agg.Rows {
		sum = sum.Add(r.Signed)
		if !r.Cumulative.Equal(sum) {
			t.Fatalf("row %d cumulative %s != prefix sum %s", i, r.Cumulative, sum)
		}
		if r.Signed.IsNegative() {
			nonNegative = false
		}
		if i > 0 && r.Date.Before(agg.Rows[i-1].Date.Time) {
			t.Fatalf("rows not sorted at %d", i)
		}
	}
	if nonNegative {
		t.Fatalf("fixture should contain expenses")
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	tbl := DefaultSchema().EmptyTable()
	tbl.Rows = []Row{
		{Date: day(3), Amount: "1", Extra: map[string]string{"k": "v"}},
		{Date: day(1), Amount: "2"},
	}
	before := tbl.Clone()
	agg := Aggregate(tbl)
	agg.Rows[0].Extra = map[string]string{"k": "changed"}
	if !tbl.Equal(before) || tbl.Rows[0].Extra["k"] != "v" {
		t.Fatalf("input table mutated")
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(mustSchema(t, "en-categorized").EmptyTable())
	if !agg.Empty() || len(agg.Rows) != 0 || agg.Excluded != 0 || !agg.Totals.Net.IsZero() {
		t.Fatalf("unexpected aggregation of empty table %+v", agg)
	}

	undated := DefaultSchema().EmptyTable()
	undated.Rows = []Row{{Description: "x", Amount: "5"}}
	agg = Aggregate(undated)
	if !agg.Empty() || agg.Excluded != 1 {
		t.Fatalf("undated rows should leave an empty timeline: %+v", agg)
	}
}

func TestAggregationRecords(t *testing.T) {
	tbl := DefaultSchema().EmptyTable()
	tbl.Rows = []Row{{Date: day(2), Description: "x", Amount: "abc"}, {Date: day(1), Description: "y", Amount: "4"}}
	recs := Aggregate(tbl).Records()
	want := [][]string{
		{"date", "description", "amount", "signedAmount", "cumulativeAmount"},
		{"2024-01-01", "y", "4", "4", "4"},
		{"2024-01-02", "x", "abc", "0", "4"},
	}
	if len(recs) != len(want) {
		t.Fatalf("records = %v", recs)
	}
	for i := range want {
		if !slices.Equal(recs[i], want[i]) {
			t.Fatalf("record %d = %v, want %v", i, recs[i], want[i])
		}
	}
}
