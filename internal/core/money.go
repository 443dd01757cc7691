// Package core provides amount and date parsing for cashflow tables.
//
// This file contains the lenient numeric coercion used by the aggregator and
// the date normalization shared by the loader and the editing operations.
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// maxAmountExponent bounds the decimal exponent of a parsed amount. Values
// outside it are treated as unparseable so a single cell cannot blow up the
// scale of every running sum.
const maxAmountExponent = 64

// maxAmountDigits bounds the significant digits of a parsed amount.
const maxAmountDigits = 64

// isoLayouts are always accepted, before any schema-specific layout.
var isoLayouts = []string{
	"2006-1-2",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/1/2",
}

// ParseAmount parses an amount cell.
//
// It accepts both dot (12.34) and a single decimal comma (12,34), an optional
// sign and surrounding whitespace. ok is false for blank or unparseable text
// and for values whose exponent or digit count is out of range.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, true
//	ParseAmount("-12,5") -> -12.5, true
//	ParseAmount("abc")   -> 0, false
func ParseAmount(s string) (d decimal.Decimal, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	// Normalize decimal comma to dot
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero, false
	}
	if d.NumDigits() > maxAmountDigits {
		return decimal.Zero, false
	}
	return d, true
}

// CoerceAmount is ParseAmount with unparseable values defaulting to zero, so
// a mid-edit blank cell never breaks the timeline.
func CoerceAmount(s string) decimal.Decimal {
	d, _ := ParseAmount(s)
	return d
}

// ParseDate parses a date cell. Blank text is a missing date, not an error.
// ISO-8601 forms are tried first, then the given locale layouts.
func ParseDate(s string, layouts []string) (Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, true
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Date()), true
		}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Date()), true
		}
	}
	return Date{}, false
}

// dateFromEpochMillis converts the pandas to_json date encoding.
func dateFromEpochMillis(ms int64) Date {
	return NewDate(time.UnixMilli(ms).UTC().Date())
}
