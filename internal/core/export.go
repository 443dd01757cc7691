package core

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// ExportFormat describes one file format of the import/export round trip.
type ExportFormat struct {
	Ext         string
	Filename    string // suggested download name
	ContentType string
	Encode      func(Table) ([]byte, error)
	decode      func([]byte, Schema) (Table, error)
}

var (
	FormatCSV = ExportFormat{
		Ext:         ".csv",
		Filename:    "cashflow.csv",
		ContentType: "text/csv",
		Encode:      ToCSV,
		decode:      LoadCSV,
	}
	FormatJSON = ExportFormat{
		Ext:         ".json",
		Filename:    "cashflow.json",
		ContentType: "application/json",
		Encode:      ToJSON,
		decode:      LoadJSON,
	}
)

// FormatFor picks the format from a filename extension, case-insensitively.
func FormatFor(filename string) (ExportFormat, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case FormatCSV.Ext:
		return FormatCSV, nil
	case FormatJSON.Ext:
		return FormatJSON, nil
	default:
		return ExportFormat{}, &UnsupportedFormatError{Filename: filename}
	}
}

// ToCSV writes a header row in column declaration order followed by one
// record per row. There is no index column.
func ToCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for i := range t.Rows {
		for j, col := range t.Columns {
			rec[j] = t.Cell(i, col)
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ToJSON writes an indented array of objects whose keys follow column
// declaration order. Text is written verbatim, including non-ASCII and HTML
// characters.
func ToJSON(t Table) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i := range t.Rows {
		if i > 0 {
			compact.WriteByte(',')
		}
		compact.WriteByte('{')
		for j, col := range t.Columns {
			if j > 0 {
				compact.WriteByte(',')
			}
			if err := writeJSONString(&compact, col); err != nil {
				return nil, err
			}
			compact.WriteByte(':')
			if err := writeJSONCell(&compact, t, i, col); err != nil {
				return nil, fmt.Errorf("encode row %d column %q: %w", i, col, err)
			}
		}
		compact.WriteByte('}')
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indent json: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeJSONCell(buf *bytes.Buffer, t Table, i int, col string) error {
	s := t.Schema
	text := t.Cell(i, col)
	switch col {
	case s.DateField:
		if text == "" {
			buf.WriteString("null")
			return nil
		}
	case s.AmountField:
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			buf.WriteString("null")
			return nil
		}
		// Amounts that are valid JSON numbers are written as numbers,
		// keeping the literal text so the round trip is exact.
		if trimmed == text && isJSONNumber(text) {
			buf.WriteString(text)
			return nil
		}
	}
	return writeJSONString(buf, text)
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	var n json.Number
	return json.Unmarshal([]byte(s), &n) == nil
}
