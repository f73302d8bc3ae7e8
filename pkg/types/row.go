package types

import "iter"

// RowView is an owned snapshot of one row's fields restricted to a column
// group's range. It holds no reference to the stream that produced it, so
// it stays valid after the stream advances and may be shared freely.
type RowView struct {
	fields     []string
	rowIndex   int // 0 for the header row, 1+ for data rows
	groupIndex int
	rng        Range
}

// NewRowView creates a row view. The view takes ownership of fields; the
// caller must not modify the slice afterwards.
func NewRowView(fields []string, rowIndex, groupIndex int, rng Range) RowView {
	return RowView{
		fields:     fields,
		rowIndex:   rowIndex,
		groupIndex: groupIndex,
		rng:        rng,
	}
}

// RowIndex returns the row number: 0 for the header, 1+ for data rows.
func (v RowView) RowIndex() int { return v.rowIndex }

// GroupIndex returns the index of the column group the row belongs to.
func (v RowView) GroupIndex() int { return v.groupIndex }

// Range returns the global column range the fields were sliced from.
func (v RowView) Range() Range { return v.rng }

// IsHeader reports whether the view represents the header row.
func (v RowView) IsHeader() bool { return v.rowIndex == 0 }

// FieldCount returns the number of fields in the view.
func (v RowView) FieldCount() int { return len(v.fields) }

// Field returns the field at a group-local index.
func (v RowView) Field(localIndex int) (string, bool) {
	if localIndex < 0 || localIndex >= len(v.fields) {
		return "", false
	}
	return v.fields[localIndex], true
}

// Fields returns a copy of the field values.
func (v RowView) Fields() []string {
	out := make([]string, len(v.fields))
	copy(out, v.fields)
	return out
}

// All yields (local index, field) pairs.
func (v RowView) All() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i, f := range v.fields {
			if !yield(i, f) {
				return
			}
		}
	}
}

// AllGlobal yields (global column index, field) pairs. The global index is
// the field's true column position in the source record.
func (v RowView) AllGlobal() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i, f := range v.fields {
			if !yield(v.rng.lower+i, f) {
				return
			}
		}
	}
}

// Clone returns a view sharing the same immutable field strings.
func (v RowView) Clone() RowView {
	cp := v
	cp.fields = v.Fields()
	return cp
}

// ByteSize returns the total length of the field values in bytes.
func (v RowView) ByteSize() int {
	n := 0
	for _, f := range v.fields {
		n += len(f)
	}
	return n
}
