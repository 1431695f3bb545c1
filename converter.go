package propcrawl

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms an HTML fragment, such as a listing description,
	// into Markdown. Empty input yields empty output.
	Convert(html string) (string, error)
}
