package mock

import "github.com/fwojciec/propcrawl"

var _ propcrawl.Converter = (*Converter)(nil)

// Converter is a mock implementation of propcrawl.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
