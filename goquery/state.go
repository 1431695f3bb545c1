// Package goquery extracts embedded application state from HTML pages.
package goquery

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/propcrawl"
)

// DefaultStateID is the element id Next.js uses for its page state.
const DefaultStateID = "__NEXT_DATA__"

// Ensure StateExtractor implements propcrawl.StateExtractor at compile time.
var _ propcrawl.StateExtractor = (*StateExtractor)(nil)

// StateExtractor locates the JSON payload of a script element by id.
type StateExtractor struct {
	id string
}

// NewStateExtractor returns an extractor for the script element with the given id.
// An empty id selects DefaultStateID.
func NewStateExtractor(id string) *StateExtractor {
	if id == "" {
		id = DefaultStateID
	}
	return &StateExtractor{id: id}
}

// ExtractState returns the JSON text of the marker script element.
func (e *StateExtractor) ExtractState(html string) (json.RawMessage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &propcrawl.ParseError{Kind: propcrawl.ParseMarkerNotFound, Err: err}
	}

	script := doc.Find(`script[id="` + e.id + `"]`).First()
	if script.Length() == 0 {
		return nil, &propcrawl.ParseError{Kind: propcrawl.ParseMarkerNotFound}
	}

	text := strings.TrimSpace(script.Text())
	if text == "" || !json.Valid([]byte(text)) {
		return nil, &propcrawl.ParseError{Kind: propcrawl.ParseInvalidJSON}
	}

	return json.RawMessage(text), nil
}
