package propcrawl

import "context"

// URLFilter is a probabilistic set of listing URLs.
// Test may report false positives but never false negatives.
type URLFilter interface {
	Add(url string)
	Test(url string) bool
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

