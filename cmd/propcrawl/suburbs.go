package main

import (
	"fmt"

	"github.com/fwojciec/propcrawl"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Run executes the suburbs command.
func (c *SuburbsCmd) Run(deps *Dependencies) error {
	filter := propcrawl.SuburbFilter{Limit: c.Limit}
	if c.State != "" {
		filter.State = &c.State
	}

	suburbs, err := deps.Suburbs.FindSuburbs(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", propcrawl.ErrorMessage(err))
		return err
	}

	if len(suburbs) == 0 {
		fmt.Fprintln(deps.Stdout, "No suburbs found.")
		return nil
	}

	t := newTable(deps)
	t.AppendHeader(table.Row{"Suburb", "Postcode", "State", "Properties", "Median price", "Median rent"})
	for _, s := range suburbs {
		n, err := deps.Properties.CountProperties(deps.Ctx, propcrawl.PropertyFilter{SuburbID: &s.ID})
		if err != nil {
			return fmt.Errorf("count properties in %s: %w", s.Name, err)
		}
		t.AppendRow(table.Row{s.Name, s.Postcode, s.State, n, money(s.MedianPrice), money(s.MedianRent)})
	}
	t.Render()
	return nil
}

func money(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.0f", *v)
}
