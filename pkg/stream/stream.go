// Package stream defines the forward-only record source consumed by the
// partition coordinator, along with adapters for CSV, Arrow IPC and SQL
// result sets.
package stream

import (
	"github.com/arkilian/colgroup/pkg/types"
)

// Stream is a forward-only, single-pass source of records.
type Stream interface {
	// Headers returns the first row of the source. It is idempotent: the
	// stream caches the row and never advances past data on repeat calls.
	// For sources without a header row this is the first data record,
	// peeked but not consumed, so callers still learn the column count.
	Headers() (types.Record, error)

	// Next advances one row into buf, reusing its backing array. It returns
	// false with a nil error on clean end of stream.
	Next(buf *types.Record) (bool, error)
}

// HeaderReporter is implemented by streams that can tell whether the row
// returned by Headers is a real header row. Streams that do not implement
// it are assumed to have one.
type HeaderReporter interface {
	HasHeaders() bool
}

// HasHeaders reports whether s exposes a real header row.
func HasHeaders(s Stream) bool {
	if hr, ok := s.(HeaderReporter); ok {
		return hr.HasHeaders()
	}
	return true
}

// fill copies fields into buf, reusing its capacity.
func fill(buf *types.Record, fields []string) {
	*buf = append((*buf)[:0], fields...)
}
