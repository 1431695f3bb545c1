package fs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fwojciec/propcrawl"
)

// maxRecordLine bounds the size of one JSON Lines record.
const maxRecordLine = 16 << 20

// Ensure RecordWriter implements propcrawl.ListingSink at compile time.
var _ propcrawl.ListingSink = (*RecordWriter)(nil)

// RecordWriter appends listing records to a JSON Lines file.
// It lets a crawl run without a database; the file is imported later.
type RecordWriter struct {
	mu   sync.Mutex
	path string
}

// NewRecordWriter returns a writer appending to the file at path.
func NewRecordWriter(path string) *RecordWriter {
	return &RecordWriter{path: path}
}

// ImportListings appends one line per record. Every written record
// counts as imported. Cancellation stops the batch between records and
// returns the context error along with the records already written.
func (w *RecordWriter) ImportListings(ctx context.Context, records []*propcrawl.ListingRecord) (*propcrawl.ImportResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	result := &propcrawl.ImportResult{}
	if len(records) == 0 {
		return result, nil
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	var ctxErr error
	for _, rec := range records {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		if err := enc.Encode(rec); err != nil {
			result.Add(propcrawl.ImportOutcome{ListingID: rec.ID, Status: propcrawl.ImportFailed, Err: err})
			continue
		}
		result.Add(propcrawl.ImportOutcome{ListingID: rec.ID, Status: propcrawl.ImportImported})
	}
	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("write records: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync records: %w", err)
	}
	return result, ctxErr
}

// ReadRecords decodes a JSON Lines stream of listing records.
// Blank lines are ignored; a malformed line is an EINVALID error naming the line.
func ReadRecords(r io.Reader) ([]*propcrawl.ListingRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordLine)

	var records []*propcrawl.ListingRecord
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec propcrawl.ListingRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, propcrawl.Errorf(propcrawl.EINVALID, "line %d: %v", line, err)
		}
		records = append(records, &rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}

// ReadRecordsFile reads the JSON Lines file at path.
func ReadRecordsFile(path string) ([]*propcrawl.ListingRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecords(f)
}
