package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"cashflow/internal/core"
)

type convertCmd struct {
	schema string
}

func (*convertCmd) Name() string     { return "convert" }
func (*convertCmd) Synopsis() string { return "convert a cashflow file between CSV and JSON" }
func (*convertCmd) Usage() string {
	return `cashflow-cli convert [-schema <name>] <in> <out>

  Loads <in> and writes it to <out>. Both formats are picked from the file
  extensions (.csv or .json).
`
}

func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.schema, "schema", core.DefaultSchema().Name, "Schema preset of the input file.")
}

func (c *convertCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	if err := convertFile(f.Arg(0), f.Arg(1), c.schema); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func convertFile(in, out, schemaName string) error {
	format, err := core.FormatFor(out)
	if err != nil {
		return err
	}
	t, err := loadFile(in, schemaName)
	if err != nil {
		return err
	}
	data, err := format.Encode(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}
