package audit

import (
	"context"
	"time"
)

// Row is one audit log entry returned by a Source.
type Row struct {
	Occurred time.Time
	// Digest identifies the row among rows sharing Occurred.
	Digest string
	Fields map[string]string
	// Err is set when the row could not be decoded.
	Err error
}

// Query is the range request handed to a Source.
type Query struct {
	// Start is inclusive. The zero time means no lower bound.
	Start time.Time
	// End is inclusive.
	End time.Time
	// Exclude holds digests already delivered at exactly Start. Sources that
	// can filter server side should drop those rows; the tracker checks again.
	Exclude []string
}

// Source executes range queries against one append-only log.
type Source interface {
	// ID identifies the source in the position store. It must not contain a
	// comma or a line break.
	ID() string
	// Fetch returns the rows in the query range. Order does not matter.
	Fetch(ctx context.Context, q Query) ([]Row, error)
}
