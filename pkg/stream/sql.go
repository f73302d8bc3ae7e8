package stream

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arkilian/colgroup/pkg/types"
)

// SQLStream exposes a SQL result set as a Stream. Column names form the
// header row; every value is scanned as text and NULL becomes an empty
// field.
type SQLStream struct {
	rows    *sql.Rows
	headers types.Record
	values  []sql.NullString
	dest    []interface{}
}

// NewSQLStream wraps an open result set. The stream owns rows and closes
// it on Close or when the result set is exhausted.
func NewSQLStream(rows *sql.Rows) (*SQLStream, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("stream: failed to read result columns: %w", err)
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]interface{}, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	return &SQLStream{
		rows:    rows,
		headers: types.Record(cols),
		values:  values,
		dest:    dest,
	}, nil
}

// QuerySQL runs query against db and wraps the result set as a stream.
func QuerySQL(ctx context.Context, db *sql.DB, query string, args ...interface{}) (*SQLStream, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("stream: query failed: %w", err)
	}
	return NewSQLStream(rows)
}

// Headers returns the result column names.
func (s *SQLStream) Headers() (types.Record, error) {
	return s.headers, nil
}

// Next scans the next result row into buf.
func (s *SQLStream) Next(buf *types.Record) (bool, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return false, err
		}
		return false, s.rows.Close()
	}

	if err := s.rows.Scan(s.dest...); err != nil {
		return false, err
	}

	*buf = (*buf)[:0]
	for _, v := range s.values {
		*buf = append(*buf, v.String)
	}
	return true, nil
}

// Close closes the result set.
func (s *SQLStream) Close() error {
	return s.rows.Close()
}
