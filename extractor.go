package propcrawl

import (
	"encoding/json"
	"fmt"
)

// StateExtractor pulls the embedded application state out of an HTML page.
type StateExtractor interface {
	// ExtractState returns the JSON document embedded in the page.
	// Failures are reported as *ParseError.
	ExtractState(html string) (json.RawMessage, error)
}

// ParseErrorKind classifies a document that could not be parsed.
type ParseErrorKind int

const (
	// ParseMarkerNotFound means the embedded state element is absent.
	ParseMarkerNotFound ParseErrorKind = iota + 1
	// ParseInvalidJSON means the embedded state is not valid JSON.
	ParseInvalidJSON
	// ParseMissingAnchor means no listing identifier could be derived.
	ParseMissingAnchor
	// ParseUnexpectedShape means the JSON does not have the expected structure.
	ParseUnexpectedShape
)

func (k ParseErrorKind) String() string {
	switch k {
	case ParseMarkerNotFound:
		return "marker_not_found"
	case ParseInvalidJSON:
		return "invalid_json"
	case ParseMissingAnchor:
		return "missing_anchor"
	case ParseUnexpectedShape:
		return "unexpected_shape"
	default:
		return "unknown"
	}
}

// ParseError is returned when a page or payload cannot be parsed.
// It is always local to one document.
type ParseError struct {
	Kind ParseErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("parse: %s", e.Kind)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
