package types

import (
	"encoding/binary"
	"iter"

	"github.com/spaolacci/murmur3"
)

// HeaderView is an owned snapshot of the column names of one column group.
type HeaderView struct {
	names      []string
	groupIndex int
	rng        Range
}

// NewHeaderView creates a header view. The view takes ownership of names.
func NewHeaderView(names []string, groupIndex int, rng Range) HeaderView {
	return HeaderView{names: names, groupIndex: groupIndex, rng: rng}
}

// GroupIndex returns the index of the column group.
func (h HeaderView) GroupIndex() int { return h.groupIndex }

// Range returns the global column range the names were sliced from.
func (h HeaderView) Range() Range { return h.rng }

// ColumnCount returns the number of columns in the group.
func (h HeaderView) ColumnCount() int { return len(h.names) }

// ColumnName returns the column name at a group-local index.
func (h HeaderView) ColumnName(localIndex int) (string, bool) {
	if localIndex < 0 || localIndex >= len(h.names) {
		return "", false
	}
	return h.names[localIndex], true
}

// ColumnNames returns a copy of the column names.
func (h HeaderView) ColumnNames() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// All yields (local index, name) pairs.
func (h HeaderView) All() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i, n := range h.names {
			if !yield(i, n) {
				return
			}
		}
	}
}

// AllGlobal yields (global column index, name) pairs.
func (h HeaderView) AllGlobal() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i, n := range h.names {
			if !yield(h.rng.lower+i, n) {
				return
			}
		}
	}
}

// Clone returns a view sharing the same immutable name strings.
func (h HeaderView) Clone() HeaderView {
	cp := h
	cp.names = h.ColumnNames()
	return cp
}

// Fingerprint hashes the column names together with the range bounds.
// Two groups with identical names at identical positions hash equal.
func (h HeaderView) Fingerprint() uint64 {
	hasher := murmur3.New64()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(h.rng.lower))
	hasher.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(h.rng.upper))
	hasher.Write(buf[:])
	for _, n := range h.names {
		binary.BigEndian.PutUint64(buf[:], uint64(len(n)))
		hasher.Write(buf[:])
		hasher.Write([]byte(n))
	}
	return hasher.Sum64()
}
