package core

import (
	"errors"
	"strings"
	"testing"
)

func sampleTable(t *testing.T) Table {
	t.Helper()
	s := mustSchema(t, "en-categorized")
	tbl := s.EmptyTable()
	tbl.Columns = append(tbl.Columns, "note")
	tbl.Rows = []Row{
		{Date: day(3), Description: "Rent, flat \"A\"", Category: "expense", Amount: "800.00", Extra: map[string]string{"note": "line1\nline2"}},
		{Date: day(1), Description: "Café – Zürich <b>&</b>", Category: "income", Amount: "12,50"},
		{Description: "undated", Category: "expense", Amount: "abc", Extra: map[string]string{"note": "日本"}},
		{Date: day(2), Description: "", Category: "", Amount: ""},
	}
	return tbl
}

func TestToCSV(t *testing.T) {
	tbl := DefaultSchema().EmptyTable()
	tbl.Rows = []Row{{Date: day(1), Description: "a,b", Amount: "5"}}
	out, err := ToCSV(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "date,description,amount\n2024-01-01,\"a,b\",5\n"
	if string(out) != want {
		t.Fatalf("csv = %q, want %q", out, want)
	}
}

func TestToJSON(t *testing.T) {
	tbl := DefaultSchema().EmptyTable()
	tbl.Rows = []Row{
		{Date: day(1), Description: "Café <ok>", Amount: "5.50"},
		{Description: "x", Amount: "abc"},
		{Date: day(2), Description: "y"},
	}
	out, err := ToJSON(tbl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `[
  {
    "date": "2024-01-01",
    "description": "Café <ok>",
    "amount": 5.50
  },
  {
    "date": null,
    "description": "x",
    "amount": "abc"
  },
  {
    "date": "2024-01-02",
    "description": "y",
    "amount": null
  }
]
`
	if string(out) != want {
		t.Fatalf("json =\n%s\nwant\n%s", out, want)
	}
}

func TestToJSONEmpty(t *testing.T) {
	out, err := ToJSON(DefaultSchema().EmptyTable())
	if err != nil || strings.TrimSpace(string(out)) != "[]" {
		t.Fatalf("unexpected empty export %q err=%v", out, err)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []ExportFormat{FormatCSV, FormatJSON} {
		tbl := sampleTable(t)
		data, err := format.Encode(tbl)
		if err != nil {
			t.Fatalf("%s: encode: %v", format.Ext, err)
		}
		back, err := Load(data, format.Filename, tbl.Schema)
		if err != nil {
			t.Fatalf("%s: load: %v", format.Ext, err)
		}
		if !back.Equal(tbl) {
			t.Fatalf("%s: round trip mismatch\n got %+v\nwant %+v", format.Ext, back, tbl)
		}
	}
}

func TestRoundTripEmptyCSVKeepsColumns(t *testing.T) {
	tbl := mustSchema(t, "it-categorized").EmptyTable()
	data, err := ToCSV(tbl)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Load(data, "x.csv", tbl.Schema)
	if err != nil || !back.Equal(tbl) {
		t.Fatalf("unexpected round trip %+v err=%v", back, err)
	}
}

func TestFormatFor(t *testing.T) {
	cases := map[string]string{
		"a.csv":       "text/csv",
		"A.JSON":      "application/json",
		"dir/x.y.csv": "text/csv",
	}
	for name, ct := range cases {
		f, err := FormatFor(name)
		if err != nil || f.ContentType != ct {
			t.Fatalf("%s: got %+v err=%v", name, f, err)
		}
	}
	_, err := FormatFor("data.txt")
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if FormatCSV.Filename != "cashflow.csv" || FormatJSON.Filename != "cashflow.json" {
		t.Fatalf("unexpected download names")
	}
}
