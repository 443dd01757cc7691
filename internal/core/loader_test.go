package core

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func mustSchema(t *testing.T, name string) Schema {
	t.Helper()
	s, err := SchemaByName(name)
	if err != nil {
		t.Fatalf("schema %s: %v", name, err)
	}
	return s
}

func TestLoadNoInputReturnsDeclaredColumns(t *testing.T) {
	for _, name := range []string{"en", "en-categorized", "it-categorized"} {
		s := mustSchema(t, name)
		tbl, err := Load(nil, "", s)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if tbl.Len() != 0 || !slices.Equal(tbl.Columns, s.Columns()) {
			t.Fatalf("%s: unexpected empty table %+v", name, tbl)
		}
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	for _, name := range []string{"data.txt", "data", "data.csv.bak", ""} {
		tbl, err := Load([]byte("date,description,amount\n"), name, DefaultSchema())
		var ufe *UnsupportedFormatError
		if !errors.As(err, &ufe) {
			t.Fatalf("%q: expected UnsupportedFormatError, got %v", name, err)
		}
		if ufe.Filename != name {
			t.Fatalf("%q: error names %q", name, ufe.Filename)
		}
		if len(tbl.Columns) != 0 {
			t.Fatalf("%q: no columns should be inferred, got %v", name, tbl.Columns)
		}
	}
}

func TestLoadCSV(t *testing.T) {
	data := "Date,Description,Amount,Note\n" +
		"2024-01-03,Rent,-800,\"monthly, fixed\"\n" +
		"2024-01-01,Salary,2500\n" +
		",Pending,10,x\n"
	tbl, err := Load([]byte(data), "flow.CSV", DefaultSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantCols := []string{"date", "description", "amount", "Note"}
	if !slices.Equal(tbl.Columns, wantCols) {
		t.Fatalf("columns = %v, want %v", tbl.Columns, wantCols)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}
	if !tbl.Rows[0].Date.Equal(NewDate(2024, time.January, 3).Time) || tbl.Rows[0].Amount != "-800" {
		t.Fatalf("unexpected first row %+v", tbl.Rows[0])
	}
	if got := tbl.Cell(0, "Note"); got != "monthly, fixed" {
		t.Fatalf("pass-through column lost: %q", got)
	}
	if got := tbl.Cell(1, "Note"); got != "" {
		t.Fatalf("short record should be padded, got %q", got)
	}
	if !tbl.Rows[2].Date.IsEmpty() {
		t.Fatalf("blank date should load as missing")
	}
}

func TestLoadCSVMalformedDate(t *testing.T) {
	data := "date,description,amount\n2024-01-01,a,1\nnot-a-date,b,2\n"
	_, err := Load([]byte(data), "x.csv", DefaultSchema())
	var mde *MalformedDateError
	if !errors.As(err, &mde) {
		t.Fatalf("expected MalformedDateError, got %v", err)
	}
	if mde.Row != 1 || mde.Value != "not-a-date" {
		t.Fatalf("unexpected error detail %+v", mde)
	}
}

func TestLoadCSVLocalizedDates(t *testing.T) {
	in := "Data,Descrizione,Categoria,Importo\n03/01/2024,Stipendio,entrata,\"1500,00\"\n"
	tbl, err := Load([]byte(in), "spese.csv", mustSchema(t, "it-categorized"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tbl.Categorized() {
		t.Fatalf("expected categorized table")
	}
	r := tbl.Rows[0]
	if !r.Date.Equal(NewDate(2024, time.January, 3).Time) || r.Category != "entrata" || r.Amount != "1500,00" {
		t.Fatalf("unexpected row %+v", r)
	}
}

func TestLoadCSVTooManyFields(t *testing.T) {
	_, err := Load([]byte("date,description,amount\n2024-01-01,a,1,extra\n"), "x.csv", DefaultSchema())
	if err == nil {
		t.Fatalf("expected error for record longer than header")
	}
}

func TestLoadCSVMissingExpectedColumnsAreDeclared(t *testing.T) {
	tbl, err := Load([]byte("description,amount\nCoffee,3\n"), "x.csv", mustSchema(t, "en-categorized"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"description", "amount", "date", "category"}
	if !slices.Equal(tbl.Columns, want) {
		t.Fatalf("columns = %v, want %v", tbl.Columns, want)
	}
}

func TestLoadJSON(t *testing.T) {
	data := `[
	  {"date": "2024-01-01", "description": "Café ☕", "category": "income", "amount": 100.50},
	  {"description": "Rent", "date": 1704240000000, "category": "expense", "amount": "40", "tag": 7},
	  {"date": null, "description": "undated", "category": "expense", "amount": null, "tag": true}
	]`
	tbl, err := Load([]byte(data), "flow.json", mustSchema(t, "en-categorized"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"date", "description", "category", "amount", "tag"}
	if !slices.Equal(tbl.Columns, want) {
		t.Fatalf("columns = %v, want %v", tbl.Columns, want)
	}
	if tbl.Rows[0].Description != "Café ☕" || tbl.Rows[0].Amount != "100.50" {
		t.Fatalf("unexpected first row %+v", tbl.Rows[0])
	}
	if !tbl.Rows[1].Date.Equal(NewDate(2024, time.January, 3).Time) {
		t.Fatalf("epoch millis date not decoded: %v", tbl.Rows[1].Date)
	}
	if tbl.Cell(1, "tag") != "7" || tbl.Cell(2, "tag") != "true" {
		t.Fatalf("unexpected pass-through cells %q %q", tbl.Cell(1, "tag"), tbl.Cell(2, "tag"))
	}
	if !tbl.Rows[2].Date.IsEmpty() || tbl.Rows[2].Amount != "" {
		t.Fatalf("nulls should load as blanks: %+v", tbl.Rows[2])
	}
}

func TestLoadJSONShapeErrors(t *testing.T) {
	cases := []struct {
		name  string
		data  string
		index int
	}{
		{"object", `{"date":"2024-01-01"}`, -1},
		{"string", `"hello"`, -1},
		{"number", `42`, -1},
		{"array of numbers", `[1,2]`, 0},
		{"mixed", `[{"date":"2024-01-01"}, ["x"]]`, 1},
	}
	for _, tc := range cases {
		_, err := Load([]byte(tc.data), "x.json", DefaultSchema())
		var shape *InvalidJSONShapeError
		if !errors.As(err, &shape) {
			t.Fatalf("%s: expected InvalidJSONShapeError, got %v", tc.name, err)
		}
		if shape.Index != tc.index {
			t.Fatalf("%s: index = %d, want %d", tc.name, shape.Index, tc.index)
		}
	}
}

func TestLoadJSONMalformed(t *testing.T) {
	if _, err := Load([]byte(`[{"date":`), "x.json", DefaultSchema()); err == nil {
		t.Fatalf("expected syntax error")
	}
	_, err := Load([]byte(`[{"date":"2024-01-01"},{"date":"31.31.31"}]`), "x.json", DefaultSchema())
	var mde *MalformedDateError
	if !errors.As(err, &mde) || mde.Row != 1 {
		t.Fatalf("expected MalformedDateError for row 1, got %v", err)
	}
}

func TestLoadBlankFileIsEmptyTable(t *testing.T) {
	tbl, err := Load([]byte("  \n"), "x.json", DefaultSchema())
	if err != nil || tbl.Len() != 0 || len(tbl.Columns) != 3 {
		t.Fatalf("unexpected result %+v err=%v", tbl, err)
	}
}
