package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"cashflow/internal/core"
)

type aggregateCmd struct {
	schema string
	raw    bool
}

func (*aggregateCmd) Name() string     { return "aggregate" }
func (*aggregateCmd) Synopsis() string { return "print the cumulative cashflow timeline of a file" }
func (*aggregateCmd) Usage() string {
	return `cashflow-cli aggregate [-schema <name>] [-raw] <file.csv|file.json>

  Sorts the dated entries of the file, resolves each amount's sign and
  prints the running balance as a markdown table.
`
}

func (c *aggregateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.schema, "schema", core.DefaultSchema().Name, "Schema preset of the file.")
	f.BoolVar(&c.raw, "raw", false, "Print plain markdown instead of rendering it.")
}

func (c *aggregateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	t, err := loadFile(f.Arg(0), c.schema)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printMarkdown(os.Stdout, timelineMarkdown(core.Aggregate(t)), c.raw)
	return subcommands.ExitSuccess
}
