package partition

import (
	"iter"

	"go.uber.org/zap"

	cgerrors "github.com/arkilian/colgroup/internal/errors"
	"github.com/arkilian/colgroup/pkg/stream"
	"github.com/arkilian/colgroup/pkg/types"
)

// cursor is the shared pull logic of both row producers: read one record
// under the stream lease, slice it to the group's range and wrap it as an
// owned RowView.
type cursor struct {
	stream     stream.Stream
	lease      *leaseHandle
	rng        types.Range
	groupIndex int
	buf        types.Record
	emitted    int
	logger     *zap.Logger
	observer   Observer
}

// pull reads the next record. ok is false on end of stream or failure; the
// lease is released in both cases.
func (c *cursor) pull(rowIndex int) (types.RowView, bool, error) {
	more, err := c.stream.Next(&c.buf)
	if err != nil {
		c.finish(err)
		return types.RowView{}, false, cgerrors.NewStreamError("failed to read record", err).
			WithDetails(map[string]interface{}{"group": c.groupIndex, "row": rowIndex})
	}
	if !more {
		c.finish(nil)
		return types.RowView{}, false, nil
	}

	view := types.NewRowView(c.buf.Slice(c.rng), rowIndex, c.groupIndex, c.rng)
	c.emitted++
	if c.observer != nil {
		c.observer.ObserveRow(c.groupIndex, view.FieldCount(), view.ByteSize())
	}
	return view, true, nil
}

func (c *cursor) finish(err error) {
	c.lease.release()
	c.buf = nil
	if c.observer != nil {
		c.observer.ObserveEnd(c.groupIndex, c.emitted, err)
	}
	c.logger.Debug("row producer finished",
		zap.Int("group", c.groupIndex),
		zap.Int("rows", c.emitted),
		zap.Error(err),
	)
}

// RowIterator yields the data rows of one column group, header excluded.
// Data rows are numbered from 1. It is single-pass: once it returns an error
// or ErrDone it returns ErrDone forever. It holds the partition's stream
// until it finishes or is closed.
type RowIterator struct {
	cursor
	rowIndex int
	finished bool
}

// Next returns the next data row. A read failure is returned once as an
// ErrStreamError; after that, and after end of stream, Next returns ErrDone.
func (it *RowIterator) Next() (types.RowView, error) {
	if it.finished {
		return types.RowView{}, ErrDone
	}

	view, ok, err := it.pull(it.rowIndex)
	if !ok {
		it.finished = true
		if err != nil {
			return types.RowView{}, err
		}
		return types.RowView{}, ErrDone
	}

	it.rowIndex++
	return view, nil
}

// All adapts the iterator to a range-over-func sequence. A read failure is
// yielded as the final pair. Breaking out of the loop closes the iterator.
func (it *RowIterator) All() iter.Seq2[types.RowView, error] {
	return func(yield func(types.RowView, error) bool) {
		for {
			view, err := it.Next()
			if err == ErrDone {
				return
			}
			if !yield(view, err) {
				it.Close()
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// SizeHint returns the lower bound of remaining rows and, when bounded is
// true, the upper bound.
func (it *RowIterator) SizeHint() (lower, upper int, bounded bool) {
	if it.finished {
		return 0, 0, true
	}
	return 0, 0, false
}

// Close stops the iterator and releases the stream. It is safe to call
// more than once.
func (it *RowIterator) Close() error {
	if !it.finished {
		it.finished = true
		it.finish(nil)
	}
	return nil
}

type allRowsState int

const (
	stateHeader allRowsState = iota
	stateRecords
	stateFinished
)

// AllRowIterator yields the header row of one column group (row 0) followed
// by its data rows (1+). When the stream has no header row the header is
// skipped silently.
type AllRowIterator struct {
	cursor
	headers  types.Record
	state    allRowsState
	rowIndex int // meaningful in stateRecords
}

// Next returns the next row, following Header -> Records(n) -> Finished.
func (it *AllRowIterator) Next() (types.RowView, error) {
	switch it.state {
	case stateHeader:
		it.state = stateRecords
		it.rowIndex = 1
		if it.headers != nil {
			return types.NewRowView(it.headers.Slice(it.rng), 0, it.groupIndex, it.rng), nil
		}
		return it.Next()

	case stateRecords:
		view, ok, err := it.pull(it.rowIndex)
		if !ok {
			it.state = stateFinished
			if err != nil {
				return types.RowView{}, err
			}
			return types.RowView{}, ErrDone
		}
		it.rowIndex++
		return view, nil

	default:
		return types.RowView{}, ErrDone
	}
}

// All adapts the iterator to a range-over-func sequence. A read failure is
// yielded as the final pair. Breaking out of the loop closes the iterator.
func (it *AllRowIterator) All() iter.Seq2[types.RowView, error] {
	return func(yield func(types.RowView, error) bool) {
		for {
			view, err := it.Next()
			if err == ErrDone {
				return
			}
			if !yield(view, err) {
				it.Close()
				return
			}
			if err != nil {
				return
			}
		}
	}
}

// SizeHint returns the lower bound of remaining rows and, when bounded is
// true, the upper bound.
func (it *AllRowIterator) SizeHint() (lower, upper int, bounded bool) {
	switch it.state {
	case stateHeader:
		if it.headers != nil {
			return 1, 0, false
		}
		return 0, 0, false
	case stateRecords:
		return 0, 0, false
	default:
		return 0, 0, true
	}
}

// Close stops the iterator and releases the stream. It is safe to call
// more than once.
func (it *AllRowIterator) Close() error {
	if it.state != stateFinished {
		it.state = stateFinished
		it.finish(nil)
	}
	return nil
}
