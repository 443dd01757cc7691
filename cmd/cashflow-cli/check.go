package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"cashflow/internal/core"
)

type checkCmd struct {
	schema string
	raw    bool
}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "validate a cashflow file and summarize it" }
func (*checkCmd) Usage() string {
	return `cashflow-cli check [-schema <name>] [-raw] <file>

  Reports whether the file loads, how many rows it has, how many of them
  lack a date, and the final balance.
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.schema, "schema", core.DefaultSchema().Name, "Schema preset of the file.")
	f.BoolVar(&c.raw, "raw", false, "Print plain markdown instead of rendering it.")
}

func (c *checkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	t, err := loadFile(f.Arg(0), c.schema)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	printMarkdown(os.Stdout, checkMarkdown(f.Arg(0), t), c.raw)
	return subcommands.ExitSuccess
}

func checkMarkdown(name string, t core.Table) string {
	agg := core.Aggregate(t)
	return fmt.Sprintf("# %s\n\n- schema: %s\n- rows: %d\n- undated: %d\n- balance: %s\n",
		name, t.Schema.Name, t.Len(), agg.Excluded, agg.Totals.Net.StringFixed(2))
}
