package domaincom

import (
	"encoding/json"
	"errors"

	"github.com/fwojciec/propcrawl"
)

// nextData is the envelope of a Next.js page state.
type nextData struct {
	Props struct {
		PageProps json.RawMessage `json:"pageProps"`
	} `json:"props"`
}

// pageProps returns the props.pageProps object of a page state.
func pageProps(state json.RawMessage) (json.RawMessage, error) {
	var nd nextData
	if err := json.Unmarshal(state, &nd); err != nil {
		return nil, &propcrawl.ParseError{Kind: propcrawl.ParseUnexpectedShape, Err: err}
	}
	if isNull(nd.Props.PageProps) {
		return nil, &propcrawl.ParseError{
			Kind: propcrawl.ParseUnexpectedShape,
			Err:  errors.New("props.pageProps missing"),
		}
	}
	return nd.Props.PageProps, nil
}

// componentProps returns the props.pageProps.componentProps object of a page state.
func componentProps(state json.RawMessage) (json.RawMessage, error) {
	page, err := pageProps(state)
	if err != nil {
		return nil, err
	}
	var pp struct {
		ComponentProps json.RawMessage `json:"componentProps"`
	}
	if err := json.Unmarshal(page, &pp); err != nil {
		return nil, &propcrawl.ParseError{Kind: propcrawl.ParseUnexpectedShape, Err: err}
	}
	if isNull(pp.ComponentProps) {
		return nil, &propcrawl.ParseError{
			Kind: propcrawl.ParseUnexpectedShape,
			Err:  errors.New("props.pageProps.componentProps missing"),
		}
	}
	return pp.ComponentProps, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
