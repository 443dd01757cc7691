package core

import (
	"errors"
	"maps"
	"slices"
	"time"
)

// DateFormat is the canonical on-disk representation of a Date.
const DateFormat = "2006-01-02"

type (
	// Date is a calendar day at midnight UTC. The zero value is a missing date.
	Date struct {
		time.Time
	}

	// Row is one cashflow entry as held by the editing surface. Amount keeps
	// the raw cell text; numeric coercion happens in Aggregate.
	Row struct {
		Date        Date
		Description string
		Category    string // only meaningful for categorized tables
		Amount      string
		Extra       map[string]string // pass-through columns by name
	}

	// Table is the ordered, user-edited set of rows. Row order is edit order,
	// not date order.
	Table struct {
		Schema  Schema
		Columns []string
		Rows    []Row
	}
)

// ErrRowIndex is returned by the editing operations for an index outside the table.
var ErrRowIndex = errors.New("row index out of range")

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is missing
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as 2006-01-02, or "" for a missing date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateFormat)
}

// Categorized reports whether the table is the categorized variant.
func (t Table) Categorized() bool {
	return t.Schema.Categorized() && slices.Contains(t.Columns, t.Schema.CategoryField)
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Clone returns a deep copy that shares no slices or maps with t.
func (t Table) Clone() Table {
	out := Table{
		Schema:  t.Schema.clone(),
		Columns: slices.Clone(t.Columns),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.clone()
	}
	return out
}

// Cell returns the text of column col in row i, as it would be exported.
func (t Table) Cell(i int, col string) string {
	return t.Rows[i].cell(t.Schema, col)
}

// Equal reports whether both tables hold the same columns and cell texts.
func (t Table) Equal(o Table) bool {
	if !slices.Equal(t.Columns, o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Rows {
		for _, col := range t.Columns {
			if t.Cell(i, col) != o.Cell(i, col) {
				return false
			}
		}
	}
	return true
}

func (r Row) clone() Row {
	r.Extra = maps.Clone(r.Extra)
	return r
}

func (r Row) cell(s Schema, col string) string {
	switch {
	case col == s.DateField:
		return r.Date.String()
	case col == s.DescriptionField:
		return r.Description
	case s.CategoryField != "" && col == s.CategoryField:
		return r.Category
	case col == s.AmountField:
		return r.Amount
	default:
		return r.Extra[col]
	}
}

// set assigns a non-date cell. Dates go through parseDate first.
func (r *Row) set(s Schema, col, value string) {
	switch {
	case col == s.DescriptionField:
		r.Description = value
	case s.CategoryField != "" && col == s.CategoryField:
		r.Category = value
	case col == s.AmountField:
		r.Amount = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[col] = value
	}
}
