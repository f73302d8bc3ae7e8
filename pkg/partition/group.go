package partition

import (
	"fmt"

	cgerrors "github.com/arkilian/colgroup/internal/errors"
	"github.com/arkilian/colgroup/pkg/types"
)

// ColumnGroup is a handle on one contiguous column range of a Partition.
// It owns no data: row producers borrow the partition's stream, and only
// one producer across all groups may be live at a time.
type ColumnGroup struct {
	partition  *Partition
	rng        types.Range
	name       string
	groupIndex int
	headers    types.Record // full header row, nil when the stream has none
}

// Range returns the group's global column range.
func (g *ColumnGroup) Range() types.Range { return g.rng }

// GroupIndex returns the position of the group within its partition.
func (g *ColumnGroup) GroupIndex() int { return g.groupIndex }

// Name returns the group's declared or detected name.
func (g *ColumnGroup) Name() string { return g.name }

// ColumnCount returns the number of columns in the group.
func (g *ColumnGroup) ColumnCount() int { return g.rng.Len() }

// HeaderRow slices the cached header to the group's range. It fails with
// ErrMissingHeaders when the stream was read without a header row.
func (g *ColumnGroup) HeaderRow() (types.HeaderView, error) {
	if g.headers == nil {
		return types.HeaderView{}, cgerrors.NewValidationError(
			cgerrors.CodeMissingHeaders,
			fmt.Sprintf("group %d: stream has no header row", g.groupIndex),
		)
	}
	return types.NewHeaderView(g.headers.Slice(g.rng), g.groupIndex, g.rng), nil
}

// Rows returns a producer over the data rows, header excluded. It takes the
// partition's stream lease and fails with ErrStreamBusy if another producer
// holds it. The lease is released at end of stream or on a read error; a
// caller that stops pulling with Next before then must call Close, usually
// with defer it.Close(), or the partition stays busy.
func (g *ColumnGroup) Rows() (*RowIterator, error) {
	c, err := g.partition.newCursor(g.groupIndex, g.rng)
	if err != nil {
		return nil, err
	}
	return &RowIterator{cursor: c, rowIndex: 1}, nil
}

// AllRows returns a producer over the header row followed by the data rows.
// It takes the partition's stream lease and fails with ErrStreamBusy if
// another producer holds it. As with Rows, stopping early with Next requires
// a call to Close.
func (g *ColumnGroup) AllRows() (*AllRowIterator, error) {
	c, err := g.partition.newCursor(g.groupIndex, g.rng)
	if err != nil {
		return nil, err
	}
	return &AllRowIterator{cursor: c, headers: g.headers, state: stateHeader}, nil
}
