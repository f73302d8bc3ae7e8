// Package partition splits a wide record stream into named column groups.
//
// A Partition owns a forward-only stream, reads its header once, and derives
// a validated set of non-overlapping column ranges, either by splitting the
// header into equal chunks, from caller-supplied ranges, or by detecting
// named runs in the header. Each range is exposed as a ColumnGroup whose row
// producers pull records from the shared stream and hand out owned RowView
// snapshots that remain valid after the stream advances.
//
// The stream can only be read by one producer at a time. Taking a second
// producer while one is live fails with ErrStreamBusy.
package partition

import (
	"context"
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"

	cgerrors "github.com/arkilian/colgroup/internal/errors"
	"github.com/arkilian/colgroup/pkg/stream"
	"github.com/arkilian/colgroup/pkg/types"
)

// Observer receives per-row accounting from row producers.
type Observer interface {
	// ObserveRow is called for every data row a producer emits
	ObserveRow(groupIndex, fields, bytes int)

	// ObserveEnd is called once when a producer stops; err is the read
	// failure that stopped it, if any
	ObserveEnd(groupIndex, rows int, err error)
}

// Option configures a Partition.
type Option func(*Partition)

// WithLogger sets the logger used for construction and producer events.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Partition) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver installs an observer on every producer of the partition.
func WithObserver(o Observer) Option {
	return func(p *Partition) {
		p.observer = o
	}
}

// Partition is the coordinator that owns the stream and the range set.
type Partition struct {
	id           string
	stream       stream.Stream
	ranges       []types.NamedRange // read-only after construction
	headers      types.Record       // nil when the stream has no header row
	totalColumns int
	lease        streamLease
	logger       *zap.Logger
	observer     Observer
}

// New creates a partition of groupCount equal-width groups. The chunk width
// is ceil(columns/groupCount); the last group may be narrower, and when
// groupCount exceeds what the columns can fill the partition stops early
// with fewer groups.
func New(s stream.Stream, groupCount int, opts ...Option) (*Partition, error) {
	if groupCount <= 0 {
		return nil, cgerrors.NewValidationError(
			cgerrors.CodeEmptyGroupCount,
			fmt.Sprintf("invalid group count: %d", groupCount),
		)
	}

	p, err := newPartition(s, opts)
	if err != nil {
		return nil, err
	}

	chunkSize := (p.totalColumns + groupCount - 1) / groupCount
	ranges := make([]types.NamedRange, 0, groupCount)
	for i := 0; i < groupCount; i++ {
		lower := i * chunkSize
		if lower >= p.totalColumns {
			break
		}
		upper := min(lower+chunkSize, p.totalColumns)

		rng, err := types.NewRange(lower, upper)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, types.NamedRange{Range: rng})
	}

	p.setRanges(ranges)
	return p, nil
}

// WithCustomRanges creates a partition over caller-supplied ranges. The
// ranges must fit inside the header and must not overlap.
func WithCustomRanges(s stream.Stream, ranges []types.Range, opts ...Option) (*Partition, error) {
	named := make([]types.NamedRange, len(ranges))
	for i, r := range ranges {
		named[i] = types.NamedRange{Range: r}
	}
	return WithNamedRanges(s, named, opts...)
}

// WithNamedRanges is WithCustomRanges for ranges that carry group names.
func WithNamedRanges(s stream.Stream, ranges []types.NamedRange, opts ...Option) (*Partition, error) {
	if len(ranges) == 0 {
		return nil, cgerrors.NewValidationError(cgerrors.CodeEmptyRanges, "must provide at least one range")
	}

	p, err := newPartition(s, opts)
	if err != nil {
		return nil, err
	}

	if err := validateRanges(ranges, p.totalColumns); err != nil {
		return nil, err
	}

	p.setRanges(append([]types.NamedRange(nil), ranges...))
	return p, nil
}

// FromHeader creates a partition whose groups are detected from the header
// row: every non-blank cell opens a named group that extends over the blank
// cells after it.
func FromHeader(s stream.Stream, opts ...Option) (*Partition, error) {
	if !stream.HasHeaders(s) {
		return nil, cgerrors.NewValidationError(cgerrors.CodeMissingHeaders, "header detection needs a header row")
	}

	p, err := newPartition(s, opts)
	if err != nil {
		return nil, err
	}

	ranges := DetectRanges(p.headers)
	if len(ranges) == 0 {
		return nil, cgerrors.NewValidationError(cgerrors.CodeEmptyRanges, "header has no named columns")
	}

	p.setRanges(ranges)
	return p, nil
}

// newPartition reads the header and builds a partition without ranges.
func newPartition(s stream.Stream, opts []Option) (*Partition, error) {
	header, err := s.Headers()
	if err != nil {
		return nil, cgerrors.NewStreamError("failed to read header", err)
	}
	if header.Len() == 0 {
		return nil, cgerrors.NewValidationError(cgerrors.CodeEmptySchema, "stream has no columns")
	}

	p := &Partition{
		id:           uuid.New().String(),
		stream:       s,
		totalColumns: header.Len(),
		logger:       zap.NewNop(),
	}
	if stream.HasHeaders(s) {
		p.headers = header.Clone()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Partition) setRanges(ranges []types.NamedRange) {
	names := make([]string, len(ranges))
	for i := range ranges {
		if ranges[i].Name == "" {
			ranges[i].Name = fmt.Sprintf("group_%d", i)
		}
		names[i] = ranges[i].Name + " " + ranges[i].Range.String()
	}
	p.ranges = ranges

	p.logger.Info("partition created",
		zap.String("partition_id", p.id),
		zap.Int("total_columns", p.totalColumns),
		zap.Bool("has_headers", p.headers != nil),
		zap.Strings("groups", names),
	)
}

// validateRanges checks every range against the column count, then every
// pair for overlap, reporting the first violation found.
func validateRanges(ranges []types.NamedRange, totalColumns int) error {
	for i, nr := range ranges {
		r := nr.Range
		if r.Len() <= 0 {
			return cgerrors.NewValidationError(
				cgerrors.CodeInvalidRange,
				fmt.Sprintf("range %d %s is empty", i, r),
			)
		}
		if r.Upper() > totalColumns {
			return cgerrors.NewValidationError(
				cgerrors.CodeRangeOutOfBounds,
				fmt.Sprintf("range %d has upper bound %d which exceeds total columns %d", i, r.Upper(), totalColumns),
			).WithDetails(map[string]interface{}{"range": i, "total_columns": totalColumns})
		}
		if r.Lower() >= totalColumns {
			return cgerrors.NewValidationError(
				cgerrors.CodeRangeOutOfBounds,
				fmt.Sprintf("range %d has lower bound %d which is >= total columns %d", i, r.Lower(), totalColumns),
			).WithDetails(map[string]interface{}{"range": i, "total_columns": totalColumns})
		}
	}

	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i].Range, ranges[j].Range
			if a.Overlaps(b) {
				return cgerrors.NewValidationError(
					cgerrors.CodeRangeOverlap,
					fmt.Sprintf("range %d %s overlaps with range %d %s", i, a, j, b),
				).WithDetails(map[string]interface{}{"first": i, "second": j})
			}
		}
	}

	return nil
}

// ID returns the partition's instance identifier, used to correlate logs.
func (p *Partition) ID() string { return p.id }

// GroupCount returns the number of column groups.
func (p *Partition) GroupCount() int { return len(p.ranges) }

// TotalColumns returns the width of the header row.
func (p *Partition) TotalColumns() int { return p.totalColumns }

// Ranges returns the group ranges in group order.
func (p *Partition) Ranges() []types.Range {
	out := make([]types.Range, len(p.ranges))
	for i, nr := range p.ranges {
		out[i] = nr.Range
	}
	return out
}

// NamedRanges returns the group ranges with their names.
func (p *Partition) NamedRanges() []types.NamedRange {
	return append([]types.NamedRange(nil), p.ranges...)
}

// Headers returns the full header row. It fails with ErrMissingHeaders when
// the stream has no header row and with ErrStreamError when the header
// cannot be read.
func (p *Partition) Headers() (types.Record, error) {
	if p.headers == nil {
		if !stream.HasHeaders(p.stream) {
			return nil, cgerrors.NewValidationError(cgerrors.CodeMissingHeaders, "stream has no header row")
		}
		header, err := p.stream.Headers()
		if err != nil {
			return nil, cgerrors.NewStreamError("failed to read header", err)
		}
		p.headers = header.Clone()
	}
	return p.headers.Clone(), nil
}

// CreateGroup returns the column group at groupIndex, or false when the
// index is out of bounds.
func (p *Partition) CreateGroup(groupIndex int) (*ColumnGroup, bool) {
	if groupIndex < 0 || groupIndex >= len(p.ranges) {
		return nil, false
	}
	nr := p.ranges[groupIndex]
	return &ColumnGroup{
		partition:  p,
		rng:        nr.Range,
		name:       nr.Name,
		groupIndex: groupIndex,
		headers:    p.headers,
	}, true
}

// Groups yields one column group per range, in range order. All groups
// share the single stream, so draining one group's rows leaves nothing for
// the next; use ForEachRow to see every group of every row.
func (p *Partition) Groups() iter.Seq[*ColumnGroup] {
	return func(yield func(*ColumnGroup) bool) {
		for i := range p.ranges {
			g, _ := p.CreateGroup(i)
			if !yield(g) {
				return
			}
		}
	}
}

// Busy reports whether a producer currently holds the stream.
func (p *Partition) Busy() bool {
	return p.lease.busy()
}

func (p *Partition) newCursor(groupIndex int, rng types.Range) (cursor, error) {
	h, err := p.lease.acquire(groupIndex)
	if err != nil {
		return cursor{}, err
	}
	return cursor{
		stream:     p.stream,
		lease:      h,
		rng:        rng,
		groupIndex: groupIndex,
		logger:     p.logger.With(zap.String("partition_id", p.id)),
		observer:   p.observer,
	}, nil
}

// ForEachRow reads the stream once and calls fn with every data row split
// into one view per group. Rows are numbered from 1. It holds the stream
// lease for its whole duration and stops at the first error returned by
// fn, by the stream, or by ctx. Only stream and ctx errors are reported
// to the observer.
func (p *Partition) ForEachRow(ctx context.Context, fn func(rowIndex int, views []types.RowView) error) (err error) {
	h, err := p.lease.acquire(-1)
	if err != nil {
		return err
	}
	defer h.release()

	rows := 0
	var scanErr error
	defer func() {
		if p.observer != nil {
			for i := range p.ranges {
				p.observer.ObserveEnd(i, rows, scanErr)
			}
		}
		p.logger.Debug("scan finished",
			zap.String("partition_id", p.id),
			zap.Int("rows", rows),
			zap.Error(err),
		)
	}()

	var buf types.Record
	for {
		if scanErr = ctx.Err(); scanErr != nil {
			return scanErr
		}

		more, err := p.stream.Next(&buf)
		if err != nil {
			scanErr = cgerrors.NewStreamError("failed to read record", err).
				WithDetails(map[string]interface{}{"row": rows + 1})
			return scanErr
		}
		if !more {
			return nil
		}
		rows++

		views := make([]types.RowView, len(p.ranges))
		for i, nr := range p.ranges {
			views[i] = types.NewRowView(buf.Slice(nr.Range), rows, i, nr.Range)
			if p.observer != nil {
				p.observer.ObserveRow(i, views[i].FieldCount(), views[i].ByteSize())
			}
		}

		if err := fn(rows, views); err != nil {
			return err
		}
	}
}

// Fingerprint hashes the column layout: the column count, every range with
// its name, and the header row when present. Streams with the same layout
// produce the same fingerprint.
func (p *Partition) Fingerprint() uint64 {
	h := murmur3.New64()
	var buf [8]byte
	writeInt := func(v int) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(len(s))
		h.Write([]byte(s))
	}

	writeInt(p.totalColumns)
	for _, nr := range p.ranges {
		writeInt(nr.Range.Lower())
		writeInt(nr.Range.Upper())
		writeString(nr.Name)
	}
	writeInt(len(p.headers))
	for _, f := range p.headers {
		writeString(f)
	}
	return h.Sum64()
}
