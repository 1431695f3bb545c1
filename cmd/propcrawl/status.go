package main

import (
	"fmt"

	"github.com/fwojciec/propcrawl"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	shards, err := deps.Progress.List(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", propcrawl.ErrorMessage(err))
		return err
	}

	if len(shards) == 0 {
		fmt.Fprintln(deps.Stdout, "No crawl progress recorded. Use 'propcrawl crawl' to start.")
		return nil
	}

	t := newTable(deps)
	t.AppendHeader(table.Row{"Shard", "Last page", "Seen", "Complete"})
	var complete int
	for _, p := range shards {
		done := ""
		if p.Completed {
			done = "yes"
			complete++
		}
		t.AppendRow(table.Row{p.Key, p.LastPage, len(p.SeenURLs), done})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d/%d", complete, len(shards))})
	t.Render()
	return nil
}

func newTable(deps *Dependencies) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(deps.Stdout)
	return t
}
