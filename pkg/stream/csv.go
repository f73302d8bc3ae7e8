package stream

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"

	"github.com/arkilian/colgroup/pkg/types"
)

// Compression names the encoding wrapped around a CSV byte stream.
type Compression string

const (
	// CompressionNone reads the input as plain text
	CompressionNone Compression = "none"

	// CompressionSnappy reads the input as a snappy framed stream
	CompressionSnappy Compression = "snappy"
)

// CSVOptions configures a CSVStream.
type CSVOptions struct {
	// Comma is the field delimiter (default ',')
	Comma rune

	// HasHeader marks the first record as a header row
	HasHeader bool

	// TrimSpace trims leading and trailing white space from every field,
	// header included (default true)
	TrimSpace bool

	// AllowRagged accepts records whose field count differs from the first
	AllowRagged bool

	// Compression is the encoding of the underlying bytes (default none)
	Compression Compression
}

// DefaultCSVOptions returns options for a comma separated file with a
// header row and trimmed fields.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Comma:       ',',
		HasHeader:   true,
		TrimSpace:   true,
		Compression: CompressionNone,
	}
}

// CSVStream adapts encoding/csv to the Stream contract.
type CSVStream struct {
	reader      *csv.Reader
	opts        CSVOptions
	headers     types.Record
	headerErr   error
	headersRead bool
	pending     bool // headers row still has to be emitted as data
}

// NewCSVStream creates a CSV stream over r.
func NewCSVStream(r io.Reader, opts CSVOptions) (*CSVStream, error) {
	switch opts.Compression {
	case "", CompressionNone:
	case CompressionSnappy:
		r = snappy.NewReader(r)
	default:
		return nil, fmt.Errorf("stream: unsupported compression %q", opts.Compression)
	}

	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	if opts.AllowRagged {
		reader.FieldsPerRecord = -1
	}

	return &CSVStream{reader: reader, opts: opts}, nil
}

// HasHeaders reports whether the first record is a header row.
func (s *CSVStream) HasHeaders() bool {
	return s.opts.HasHeader
}

// Headers reads and caches the first record.
func (s *CSVStream) Headers() (types.Record, error) {
	if s.headersRead {
		return s.headers, s.headerErr
	}
	s.headersRead = true

	rec, err := s.reader.Read()
	if err == io.EOF {
		s.headers = types.Record{}
		return s.headers, nil
	}
	if err != nil {
		s.headerErr = err
		return nil, err
	}

	s.headers = types.Record(rec).Clone()
	s.trim(s.headers)
	s.pending = !s.opts.HasHeader
	return s.headers, nil
}

// Next reads the next data record into buf.
func (s *CSVStream) Next(buf *types.Record) (bool, error) {
	if !s.headersRead {
		if _, err := s.Headers(); err != nil {
			return false, err
		}
	}
	if s.headerErr != nil {
		return false, s.headerErr
	}

	if s.pending {
		s.pending = false
		fill(buf, s.headers)
		return true, nil
	}

	rec, err := s.reader.Read()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	fill(buf, rec)
	s.trim(*buf)
	return true, nil
}

func (s *CSVStream) trim(rec types.Record) {
	if !s.opts.TrimSpace {
		return
	}
	for i, f := range rec {
		rec[i] = strings.TrimSpace(f)
	}
}
