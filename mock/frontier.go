package mock

import (
	"context"

	"github.com/fwojciec/propcrawl"
)

var (
	_ propcrawl.URLFilter     = (*URLFilter)(nil)
	_ propcrawl.DomainLimiter = (*DomainLimiter)(nil)
)

// URLFilter is a mock implementation of propcrawl.URLFilter.
type URLFilter struct {
	AddFn  func(url string)
	TestFn func(url string) bool
}

func (f *URLFilter) Add(url string) {
	f.AddFn(url)
}

func (f *URLFilter) Test(url string) bool {
	return f.TestFn(url)
}

// DomainLimiter is a mock implementation of propcrawl.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (m *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return m.WaitFn(ctx, domain)
}
