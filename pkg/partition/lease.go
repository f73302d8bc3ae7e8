package partition

import (
	"fmt"
	"sync"

	cgerrors "github.com/arkilian/colgroup/internal/errors"
)

// streamLease grants exclusive read access to the partition's stream. At
// most one producer holds it at a time; a second checkout fails fast.
type streamLease struct {
	mu     sync.Mutex
	active *leaseHandle
}

type leaseHandle struct {
	owner      *streamLease
	groupIndex int // -1 for a whole-row scan
}

func (l *streamLease) acquire(groupIndex int) (*leaseHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active != nil {
		return nil, cgerrors.New(
			cgerrors.ErrCategoryStream,
			cgerrors.CodeStreamBusy,
			fmt.Sprintf("stream is held by group %d", l.active.groupIndex),
		).WithDetails(map[string]interface{}{
			"holder":    l.active.groupIndex,
			"requested": groupIndex,
		})
	}

	h := &leaseHandle{owner: l, groupIndex: groupIndex}
	l.active = h
	return h, nil
}

// release is idempotent and never frees a lease taken by someone else.
func (h *leaseHandle) release() {
	if h == nil {
		return
	}
	h.owner.mu.Lock()
	defer h.owner.mu.Unlock()
	if h.owner.active == h {
		h.owner.active = nil
	}
}

func (l *streamLease) busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active != nil
}
