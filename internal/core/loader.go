package core

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load parses a CSV or JSON byte stream into a Table. The format is inferred
// from the filename extension only. With no input at all it returns the
// schema's empty table so an editing surface can still render its columns.
func Load(data []byte, filename string, schema Schema) (Table, error) {
	if len(data) == 0 && filename == "" {
		return schema.EmptyTable(), nil
	}
	format, err := FormatFor(filename)
	if err != nil {
		return Table{}, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return schema.EmptyTable(), nil
	}
	return format.decode(data, schema)
}

// LoadCSV parses CSV with a header row.
func LoadCSV(data []byte, schema Schema) (Table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return schema.EmptyTable(), nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("read csv header: %w", err)
	}

	t := Table{Schema: schema.clone()}
	for _, h := range header {
		col := schema.canonical(h)
		if slices.Contains(t.Columns, col) {
			return Table{}, fmt.Errorf("duplicate column %q in csv header", col)
		}
		t.Columns = append(t.Columns, col)
	}

	for i := 0; ; i++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read csv row %d: %w", i, err)
		}
		if len(rec) > len(t.Columns) {
			line, _ := r.FieldPos(0)
			return Table{}, fmt.Errorf("csv line %d has %d fields, header has %d", line, len(rec), len(t.Columns))
		}

		var row Row
		for j, col := range t.Columns {
			value := ""
			if j < len(rec) {
				value = rec[j]
			}
			if err := setCell(&row, schema, col, value, i); err != nil {
				return Table{}, err
			}
		}
		t.Rows = append(t.Rows, row)
	}

	t.declareExpected()
	return t, nil
}

// LoadJSON parses an array of objects. Column order is the order in which
// keys first appear.
func LoadJSON(data []byte, schema Schema) (Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Table{}, fmt.Errorf("decode json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return Table{}, &InvalidJSONShapeError{Index: -1, Got: tokenKind(tok)}
	}

	t := Table{Schema: schema.clone()}
	for i := 0; dec.More(); i++ {
		tok, err := dec.Token()
		if err != nil {
			return Table{}, fmt.Errorf("decode json element %d: %w", i, err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return Table{}, &InvalidJSONShapeError{Index: i, Got: tokenKind(tok)}
		}

		var row Row
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return Table{}, fmt.Errorf("decode json element %d: %w", i, err)
			}
			col := schema.canonical(keyTok.(string))
			var v any
			if err := dec.Decode(&v); err != nil {
				return Table{}, fmt.Errorf("decode json element %d field %q: %w", i, col, err)
			}
			if !slices.Contains(t.Columns, col) {
				t.Columns = append(t.Columns, col)
			}
			if err := setJSONCell(&row, schema, col, v, i); err != nil {
				return Table{}, err
			}
		}
		// closing '}'
		if _, err := dec.Token(); err != nil {
			return Table{}, fmt.Errorf("decode json element %d: %w", i, err)
		}
		t.Rows = append(t.Rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return Table{}, fmt.Errorf("decode json: %w", err)
	}
	if dec.More() {
		return Table{}, errors.New("decode json: unexpected data after top-level array")
	}

	t.declareExpected()
	return t, nil
}

// declareExpected appends expected columns the input did not carry.
func (t *Table) declareExpected() {
	for _, col := range t.Schema.Columns() {
		if !slices.Contains(t.Columns, col) {
			t.Columns = append(t.Columns, col)
		}
	}
}

func setCell(row *Row, s Schema, col, value string, index int) error {
	if col != s.DateField {
		row.set(s, col, value)
		return nil
	}
	d, ok := ParseDate(value, s.DateLayouts)
	if !ok {
		return &MalformedDateError{Row: index, Value: value}
	}
	row.Date = d
	return nil
}

func setJSONCell(row *Row, s Schema, col string, v any, index int) error {
	if col == s.DateField {
		if n, ok := v.(json.Number); ok {
			ms, err := n.Int64()
			if err != nil {
				return &MalformedDateError{Row: index, Value: n.String()}
			}
			row.Date = dateFromEpochMillis(ms)
			return nil
		}
		if b, ok := v.(bool); ok {
			return &MalformedDateError{Row: index, Value: fmt.Sprint(b)}
		}
	}
	return setCell(row, s, col, jsonText(v), index)
}

// jsonText renders a decoded JSON value as cell text.
func jsonText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func tokenKind(tok json.Token) string {
	switch x := tok.(type) {
	case json.Delim:
		if x == '{' {
			return "an object"
		}
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	default:
		return strings.TrimSpace(fmt.Sprintf("%T", tok))
	}
}
