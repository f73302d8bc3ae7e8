package types

import (
	cgerrors "github.com/arkilian/colgroup/internal/errors"
)

// Value-level errors. Compare with errors.Is; the returned errors carry
// details about the offending values but match these by kind.
var (
	// ErrInvalidRange is returned when a range's lower bound is not strictly
	// below its upper bound, or when the lower bound is negative.
	ErrInvalidRange = cgerrors.NewValidationError(cgerrors.CodeInvalidRange, "invalid range")
)
