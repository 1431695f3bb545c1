package sqlite

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/propcrawl"
	"github.com/ncruces/go-sqlite3"
)

// parseRFC3339 parses an RFC3339 formatted timestamp string.
// Returns an error if parsing fails with a descriptive message including the field name.
func parseRFC3339(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t, nil
}

// appendPagination appends LIMIT and OFFSET clauses to a query builder if values are > 0.
func appendPagination(query *strings.Builder, args *[]any, limit, offset int) {
	if limit > 0 {
		query.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			query.WriteString(" LIMIT -1")
		}
		query.WriteString(" OFFSET ?")
		*args = append(*args, offset)
	}
}

// isConstraint reports whether err is an SQLite constraint violation.
func isConstraint(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT)
}

// conflict maps constraint violations to ECONFLICT and passes other errors through.
func conflict(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if isConstraint(err) {
		return propcrawl.Errorf(propcrawl.ECONFLICT, "%s: %v", fmt.Sprintf(format, args...), err)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// encodeJSON encodes v for a TEXT column. A nil value becomes NULL.
func encodeJSON(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(x) == 0 {
			return nil, nil
		}
		return string(x), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return string(b), nil
}

// decodeJSON decodes a nullable TEXT column into v. NULL leaves v untouched.
func decodeJSON(raw *string, v any, fieldName string) error {
	if raw == nil || *raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(*raw), v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", fieldName, err)
	}
	return nil
}
