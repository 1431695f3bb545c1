package mock

import (
	"encoding/json"

	"github.com/fwojciec/propcrawl"
)

var _ propcrawl.StateExtractor = (*StateExtractor)(nil)

// StateExtractor is a mock implementation of propcrawl.StateExtractor.
type StateExtractor struct {
	ExtractStateFn func(html string) (json.RawMessage, error)
}

func (e *StateExtractor) ExtractState(html string) (json.RawMessage, error) {
	return e.ExtractStateFn(html)
}
