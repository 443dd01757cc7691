package core

import (
	"fmt"
	"slices"
	"strings"
)

// The editing operations are pure: each returns a new Table and leaves its
// input untouched, so a host may keep handing out snapshots of the old one.

// AddRow appends row to a copy of t.
func AddRow(t Table, row Row) Table {
	out := t.Clone()
	row = row.clone()
	for col := range row.Extra {
		if !slices.Contains(out.Columns, col) {
			out.Columns = append(out.Columns, col)
		}
	}
	out.Rows = append(out.Rows, row)
	return out
}

// BlankRow appends an empty row, the way a spreadsheet grid grows.
func BlankRow(t Table) Table {
	return AddRow(t, Row{})
}

// UpdateRow sets the given cells of row index. Fields are keyed by column
// name; dates follow the loader's parsing rules and amounts are stored raw.
func UpdateRow(t Table, index int, fields map[string]string) (Table, error) {
	if index < 0 || index >= len(t.Rows) {
		return Table{}, fmt.Errorf("update row %d of %d: %w", index, len(t.Rows), ErrRowIndex)
	}
	out := t.Clone()
	row := out.Rows[index]

	// Deterministic column order for newly introduced pass-through columns.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		col := out.Schema.canonical(key)
		if strings.TrimSpace(col) == "" {
			continue
		}
		if err := setCell(&row, out.Schema, col, fields[key], index); err != nil {
			return Table{}, err
		}
		if !slices.Contains(out.Columns, col) {
			out.Columns = append(out.Columns, col)
		}
	}
	out.Rows[index] = row
	return out, nil
}

// DeleteRow removes row index from a copy of t.
func DeleteRow(t Table, index int) (Table, error) {
	if index < 0 || index >= len(t.Rows) {
		return Table{}, fmt.Errorf("delete row %d of %d: %w", index, len(t.Rows), ErrRowIndex)
	}
	out := t.Clone()
	out.Rows = slices.Delete(out.Rows, index, index+1)
	return out, nil
}
