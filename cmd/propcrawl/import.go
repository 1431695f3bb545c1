package main

import (
	"fmt"

	"github.com/fwojciec/propcrawl"
	"github.com/fwojciec/propcrawl/fs"
	pcslog "github.com/fwojciec/propcrawl/slog"
)

// Run executes the import command.
func (c *ImportCmd) Run(deps *Dependencies) error {
	records, err := fs.ReadRecordsFile(c.File)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", propcrawl.ErrorMessage(err))
		return err
	}

	importer := pcslog.NewLoggingImporter(deps.Importer, deps.Logger)
	result, err := importer.ImportListings(deps.Ctx, records)
	if result != nil {
		fmt.Fprintf(deps.Stdout, "Imported %d, skipped %d existing, %d failed (of %d records)\n",
			result.Imported, result.SkippedExisting, len(result.Failed), len(records))
		for _, f := range result.Failed {
			fmt.Fprintf(deps.Stdout, "  listing %d: %s\n", f.ID, f.Reason)
		}
	}
	return err
}
