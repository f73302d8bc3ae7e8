package partition

import (
	cgerrors "github.com/arkilian/colgroup/internal/errors"
)

// Errors returned by the partition package. Match them with errors.Is; the
// errors actually returned carry details and, for ErrStreamError, wrap the
// stream's own error.
var (
	ErrEmptyGroupCount  = cgerrors.NewValidationError(cgerrors.CodeEmptyGroupCount, "group count must be positive")
	ErrEmptySchema      = cgerrors.NewValidationError(cgerrors.CodeEmptySchema, "header has no columns")
	ErrEmptyRanges      = cgerrors.NewValidationError(cgerrors.CodeEmptyRanges, "at least one range is required")
	ErrRangeOutOfBounds = cgerrors.NewValidationError(cgerrors.CodeRangeOutOfBounds, "range exceeds column count")
	ErrRangeOverlap     = cgerrors.NewValidationError(cgerrors.CodeRangeOverlap, "ranges overlap")
	ErrMissingHeaders   = cgerrors.NewValidationError(cgerrors.CodeMissingHeaders, "stream has no header row")
	ErrStreamError      = cgerrors.NewStreamError("stream read failed", nil)
	ErrStreamBusy       = cgerrors.New(cgerrors.ErrCategoryStream, cgerrors.CodeStreamBusy, "stream is held by another reader")
)

// ErrDone is returned by row iterators once they are exhausted.
var ErrDone = cgerrors.New(cgerrors.ErrCategoryStream, cgerrors.CodeIteratorDone, "iterator done")
