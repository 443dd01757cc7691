package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Schema names the columns and category labels of one table variant, so the
// same loader, aggregator and exporter serve any locale.
type Schema struct {
	Name             string
	DateField        string
	DescriptionField string
	CategoryField    string // empty for the plain variant
	AmountField      string
	IncomeLabel      string
	ExpenseLabel     string

	// Derived columns added by Aggregate.
	SignedField     string
	CumulativeField string

	// DateLayouts are accepted in addition to ISO-8601.
	DateLayouts []string
}

var presets = map[string]Schema{
	"en": {
		Name:             "en",
		DateField:        "date",
		DescriptionField: "description",
		AmountField:      "amount",
		SignedField:      "signedAmount",
		CumulativeField:  "cumulativeAmount",
		DateLayouts:      []string{"01/02/2006", "1/2/2006", "Jan 2, 2006", "2 Jan 2006"},
	},
	"en-categorized": {
		Name:             "en-categorized",
		DateField:        "date",
		DescriptionField: "description",
		CategoryField:    "category",
		AmountField:      "amount",
		IncomeLabel:      "income",
		ExpenseLabel:     "expense",
		SignedField:      "signedAmount",
		CumulativeField:  "cumulativeAmount",
		DateLayouts:      []string{"01/02/2006", "1/2/2006", "Jan 2, 2006", "2 Jan 2006"},
	},
	"it": {
		Name:             "it",
		DateField:        "Data",
		DescriptionField: "Descrizione",
		AmountField:      "Importo",
		SignedField:      "Importo con segno",
		CumulativeField:  "Saldo cumulativo",
		DateLayouts:      []string{"02/01/2006", "2/1/2006", "02-01-2006", "02.01.2006"},
	},
	"it-categorized": {
		Name:             "it-categorized",
		DateField:        "Data",
		DescriptionField: "Descrizione",
		CategoryField:    "Categoria",
		AmountField:      "Importo",
		IncomeLabel:      "entrata",
		ExpenseLabel:     "uscita",
		SignedField:      "Importo con segno",
		CumulativeField:  "Saldo cumulativo",
		DateLayouts:      []string{"02/01/2006", "2/1/2006", "02-01-2006", "02.01.2006"},
	},
}

// SchemaNames returns the preset names in sorted order.
func SchemaNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SchemaByName returns a preset schema.
func SchemaByName(name string) (Schema, error) {
	s, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Schema{}, fmt.Errorf("unknown schema %q: must be one of %v", name, SchemaNames())
	}
	return s.clone(), nil
}

// DefaultSchema is the plain English variant, matching the original tool.
func DefaultSchema() Schema {
	s, _ := SchemaByName("en")
	return s
}

// Categorized reports whether the schema declares a category column.
func (s Schema) Categorized() bool {
	return s.CategoryField != ""
}

// Columns returns the expected columns in declaration order.
func (s Schema) Columns() []string {
	if s.Categorized() {
		return []string{s.DateField, s.DescriptionField, s.CategoryField, s.AmountField}
	}
	return []string{s.DateField, s.DescriptionField, s.AmountField}
}

// EmptyTable returns a table with the expected columns and no rows.
func (s Schema) EmptyTable() Table {
	return Table{Schema: s.clone(), Columns: s.Columns()}
}

// Validate checks the schema is usable by the loader and aggregator.
func (s Schema) Validate() error {
	var errs []error
	if strings.TrimSpace(s.DateField) == "" {
		errs = append(errs, errors.New("date field is required"))
	}
	if strings.TrimSpace(s.DescriptionField) == "" {
		errs = append(errs, errors.New("description field is required"))
	}
	if strings.TrimSpace(s.AmountField) == "" {
		errs = append(errs, errors.New("amount field is required"))
	}
	if s.Categorized() && strings.TrimSpace(s.IncomeLabel) == "" {
		errs = append(errs, errors.New("income label is required when a category field is set"))
	}
	cols := append(s.Columns(), s.SignedField, s.CumulativeField)
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		key := strings.ToLower(c)
		if seen[key] {
			errs = append(errs, fmt.Errorf("duplicate column name %q", c))
		}
		seen[key] = true
	}
	return errors.Join(errs...)
}

// canonical maps a header to the schema's spelling of an expected column.
// Unknown headers are returned trimmed and unchanged.
func (s Schema) canonical(header string) string {
	h := strings.TrimSpace(header)
	for _, col := range s.Columns() {
		if strings.EqualFold(h, col) {
			return col
		}
	}
	return h
}

// isIncome reports whether a category cell carries the income label.
func (s Schema) isIncome(category string) bool {
	return strings.EqualFold(strings.TrimSpace(category), s.IncomeLabel)
}

func (s Schema) clone() Schema {
	s.DateLayouts = slices.Clone(s.DateLayouts)
	return s
}
