package stream

import (
	"github.com/arkilian/colgroup/pkg/types"
)

// SliceStream serves records from memory. It is used for fixtures and for
// callers that already hold their rows.
type SliceStream struct {
	headers    types.Record
	rows       []types.Record
	pos        int
	hasHeaders bool
	failAt     int
	failErr    error
	headerErr  error
}

// SliceOption configures a SliceStream.
type SliceOption func(*SliceStream)

// WithoutHeaders marks the stream as headerless. Headers then reports the
// first data row, and that row is still served by Next.
func WithoutHeaders() SliceOption {
	return func(s *SliceStream) {
		s.hasHeaders = false
	}
}

// FailAfter makes Next return err once n rows have been served.
func FailAfter(n int, err error) SliceOption {
	return func(s *SliceStream) {
		s.failAt = n
		s.failErr = err
	}
}

// FailHeaders makes Headers return err.
func FailHeaders(err error) SliceOption {
	return func(s *SliceStream) {
		s.headerErr = err
	}
}

// NewSliceStream creates a stream over header and rows.
func NewSliceStream(header types.Record, rows []types.Record, opts ...SliceOption) *SliceStream {
	s := &SliceStream{
		headers:    header,
		rows:       rows,
		hasHeaders: true,
		failAt:     -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasHeaders reports whether Headers returns a real header row.
func (s *SliceStream) HasHeaders() bool {
	return s.hasHeaders
}

// Headers returns the header row, or the first data row when headerless.
func (s *SliceStream) Headers() (types.Record, error) {
	if s.headerErr != nil {
		return nil, s.headerErr
	}
	if s.hasHeaders {
		return s.headers, nil
	}
	if len(s.rows) == 0 {
		return types.Record{}, nil
	}
	return s.rows[0], nil
}

// Next serves the next row.
func (s *SliceStream) Next(buf *types.Record) (bool, error) {
	if s.failErr != nil && s.pos == s.failAt {
		return false, s.failErr
	}
	if s.pos >= len(s.rows) {
		return false, nil
	}
	fill(buf, s.rows[s.pos])
	s.pos++
	return true, nil
}

// Reads returns how many rows Next has served.
func (s *SliceStream) Reads() int {
	return s.pos
}
