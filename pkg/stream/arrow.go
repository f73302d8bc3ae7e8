package stream

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arkilian/colgroup/pkg/types"
)

// ArrowStream reads an Arrow IPC stream batch by batch and exposes it row
// by row. Schema field names form the header row; values are rendered with
// the array's string formatting and nulls become empty fields.
type ArrowStream struct {
	reader  *ipc.Reader
	headers types.Record
	batch   arrow.Record
	row     int
}

// NewArrowStream creates a stream over an Arrow IPC stream. A nil allocator
// selects the default Go allocator.
func NewArrowStream(r io.Reader, mem memory.Allocator) (*ArrowStream, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	reader, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("stream: failed to open arrow ipc stream: %w", err)
	}

	fields := reader.Schema().Fields()
	headers := make(types.Record, len(fields))
	for i, f := range fields {
		headers[i] = f.Name
	}

	return &ArrowStream{reader: reader, headers: headers}, nil
}

// Headers returns the schema field names.
func (s *ArrowStream) Headers() (types.Record, error) {
	return s.headers, nil
}

// Next reads the next row into buf, loading a new batch when the current
// one is exhausted.
func (s *ArrowStream) Next(buf *types.Record) (bool, error) {
	for s.batch == nil || int64(s.row) >= s.batch.NumRows() {
		if !s.reader.Next() {
			s.batch = nil
			if err := s.reader.Err(); err != nil && err != io.EOF {
				return false, err
			}
			return false, nil
		}
		s.batch = s.reader.Record()
		s.row = 0
	}

	*buf = (*buf)[:0]
	for c := 0; c < int(s.batch.NumCols()); c++ {
		col := s.batch.Column(c)
		if col.IsNull(s.row) {
			*buf = append(*buf, "")
			continue
		}
		// Batch memory is released on the next reader.Next call.
		*buf = append(*buf, strings.Clone(col.ValueStr(s.row)))
	}
	s.row++
	return true, nil
}

// Close releases the underlying IPC reader.
func (s *ArrowStream) Close() error {
	s.batch = nil
	s.reader.Release()
	return nil
}
