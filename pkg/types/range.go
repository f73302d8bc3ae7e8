// Package types provides the core value types for colgroup: column ranges,
// records, and the owned row and header views handed out to callers.
package types

import (
	"fmt"

	cgerrors "github.com/arkilian/colgroup/internal/errors"
)

// Range is a validated half-open interval [lower, upper) of global column
// indices. The zero value is not a valid range; use NewRange.
type Range struct {
	lower int
	upper int
}

// NewRange creates a range covering columns lower through upper-1.
func NewRange(lower, upper int) (Range, error) {
	if lower < 0 || lower >= upper {
		return Range{}, cgerrors.NewValidationError(
			cgerrors.CodeInvalidRange,
			fmt.Sprintf("lower bound %d must be non-negative and strictly less than upper bound %d", lower, upper),
		).WithDetails(map[string]interface{}{"lower": lower, "upper": upper})
	}
	return Range{lower: lower, upper: upper}, nil
}

// MustNewRange creates a range, panicking on invalid bounds.
func MustNewRange(lower, upper int) Range {
	r, err := NewRange(lower, upper)
	if err != nil {
		panic(err)
	}
	return r
}

// Lower returns the inclusive start column.
func (r Range) Lower() int { return r.lower }

// Upper returns the exclusive end column.
func (r Range) Upper() int { return r.upper }

// Len returns the number of columns in the range.
func (r Range) Len() int {
	return r.upper - r.lower
}

// Contains reports whether the global column index falls inside the range.
func (r Range) Contains(globalIndex int) bool {
	return globalIndex >= r.lower && globalIndex < r.upper
}

// LocalToGlobal converts a range-local index to a global column index.
// Returns false if localIndex is outside [0, Len()).
func (r Range) LocalToGlobal(localIndex int) (int, bool) {
	if localIndex < 0 || localIndex >= r.Len() {
		return 0, false
	}
	return r.lower + localIndex, true
}

// GlobalToLocal converts a global column index to a range-local index.
// Returns false if the range does not contain globalIndex.
func (r Range) GlobalToLocal(globalIndex int) (int, bool) {
	if !r.Contains(globalIndex) {
		return 0, false
	}
	return globalIndex - r.lower, true
}

// Overlaps reports whether the two half-open intervals share any column.
func (r Range) Overlaps(other Range) bool {
	return r.lower < other.upper && other.lower < r.upper
}

// String formats the range as "[lower, upper)".
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.lower, r.upper)
}

// NamedRange pairs a range with the group name it was declared or detected
// under. An empty name means the group is unnamed.
type NamedRange struct {
	// Name is the group name, e.g. the header cell that opened the range
	Name string `json:"name" yaml:"name"`

	// Range is the column interval covered by the group
	Range Range `json:"-" yaml:"-"`
}
