package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"cashflow/internal/core"
)

// loadFile reads path and parses it with the named schema preset.
func loadFile(path, schemaName string) (core.Table, error) {
	schema, err := core.SchemaByName(schemaName)
	if err != nil {
		return core.Table{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Table{}, err
	}
	return core.Load(data, path, schema)
}

// timelineMarkdown renders the augmented table and its totals.
func timelineMarkdown(agg core.Aggregation) string {
	var b strings.Builder
	b.WriteString("# Cashflow timeline\n\n")
	if agg.Empty() {
		b.WriteString("_No dated entries._\n")
		writeExcluded(&b, agg.Excluded)
		return b.String()
	}

	records := agg.Records()
	writeRow(&b, records[0])
	sep := make([]string, len(records[0]))
	for i, col := range records[0] {
		sep[i] = "---"
		if col == agg.Schema.AmountField || col == agg.Schema.SignedField || col == agg.Schema.CumulativeField {
			sep[i] = "---:"
		}
	}
	writeRow(&b, sep)
	for _, rec := range records[1:] {
		writeRow(&b, rec)
	}

	b.WriteString("\n")
	b.WriteString(summaryMarkdown(agg))
	writeExcluded(&b, agg.Excluded)
	return b.String()
}

func summaryMarkdown(agg core.Aggregation) string {
	return fmt.Sprintf("| Income | Expense | Balance |\n|---:|---:|---:|\n| %s | %s | %s |\n",
		agg.Totals.Income.StringFixed(2), agg.Totals.Expense.StringFixed(2), agg.Totals.Net.StringFixed(2))
}

func writeExcluded(b *strings.Builder, n int) {
	if n > 0 {
		fmt.Fprintf(b, "\n%d entries without a date are not on the timeline.\n", n)
	}
}

// cellEscaper keeps a cell on one table line.
var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>", "\r", "<br>")

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(cellEscaper.Replace(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

// printMarkdown renders md for the terminal, or writes it as is when raw is
// set or rendering fails.
func printMarkdown(w io.Writer, md string, raw bool) {
	if !raw {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
		if err == nil {
			if out, err := r.Render(md); err == nil {
				fmt.Fprint(w, out)
				return
			}
		}
	}
	fmt.Fprint(w, md)
}
