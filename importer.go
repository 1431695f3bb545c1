package propcrawl

import "context"

// ImportStatus is the result of importing one listing record.
type ImportStatus int

const (
	ImportImported ImportStatus = iota
	ImportSkippedExisting
	ImportFailed
)

func (s ImportStatus) String() string {
	switch s {
	case ImportImported:
		return "imported"
	case ImportSkippedExisting:
		return "skipped_existing"
	case ImportFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ImportOutcome reports what happened to one record.
// Err holds the failure when Status is ImportFailed.
type ImportOutcome struct {
	ListingID int64
	Status    ImportStatus
	Err       error
}

// Reason returns the failure reason, or "" when the record did not fail.
func (o ImportOutcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	if msg := ErrorMessage(o.Err); ErrorCode(o.Err) != EINTERNAL {
		return msg
	}
	return o.Err.Error()
}

// ImportFailure identifies a record that could not be imported.
type ImportFailure struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a batch import.
type ImportResult struct {
	Imported        int             `json:"imported"`
	SkippedExisting int             `json:"skipped_existing"`
	Failed          []ImportFailure `json:"failed"`
}

// Add records one outcome.
func (r *ImportResult) Add(o ImportOutcome) {
	switch o.Status {
	case ImportImported:
		r.Imported++
	case ImportSkippedExisting:
		r.SkippedExisting++
	default:
		r.Failed = append(r.Failed, ImportFailure{ID: o.ListingID, Reason: o.Reason()})
	}
}

// Merge adds the counts and failures of other into r.
func (r *ImportResult) Merge(other *ImportResult) {
	if other == nil {
		return
	}
	r.Imported += other.Imported
	r.SkippedExisting += other.SkippedExisting
	r.Failed = append(r.Failed, other.Failed...)
}

// ListingSink receives the listing records produced by a crawl.
type ListingSink interface {
	// ImportListings stores records one at a time. A failing record never
	// affects the others; it is reported in the result instead.
	// An error is returned only if the batch could not run to completion.
	ImportListings(ctx context.Context, records []*ListingRecord) (*ImportResult, error)
}

// ListingImporter imports listing records into the relational store.
type ListingImporter interface {
	ListingSink

	// ImportListing imports one record in its own transaction.
	ImportListing(ctx context.Context, rec *ListingRecord) ImportOutcome
}
