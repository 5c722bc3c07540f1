package alloc

import (
	"fmt"

	koolrt "github.com/wippyai/kool-runtime"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/layout"
)

// Arena is a bump allocator over linear memory. Nothing is ever freed: the
// whole arena goes away with the memory it lives in.
// Arena is not safe for concurrent use.
type Arena struct {
	mem   koolrt.GrowableMemory
	base  uint32
	next  uint32
	limit uint64
	count uint64
	bytes uint64
}

// NewArena creates an arena starting at base. Memory below base belongs to
// the guest and is never touched. limit caps the bytes handed out; 0 means
// no cap beyond what the memory can grow to.
func NewArena(mem koolrt.GrowableMemory, base uint32, limit uint64) *Arena {
	if base < layout.Align {
		base = layout.Align
	}
	base = layout.AlignUp(base)
	return &Arena{
		mem:   mem,
		base:  base,
		next:  base,
		limit: limit,
	}
}

// Alloc hands out size bytes at the next aligned address, growing memory
// by whole pages when needed.
func (a *Arena) Alloc(size uint32) (uint32, error) {
	if a.limit > 0 && a.bytes+uint64(size) > a.limit {
		return 0, errors.AllocationFailed(size, fmt.Errorf("arena limit of %d bytes reached", a.limit))
	}

	start := uint64(layout.AlignUp(a.next))
	end := start + uint64(size)
	if end > 1<<32-1 {
		return 0, errors.AllocationFailed(size, fmt.Errorf("address space exhausted"))
	}

	if have := uint64(a.mem.Size()); end > have {
		missing := end - have
		pages := (missing + koolrt.PageSize - 1) / koolrt.PageSize
		if _, ok := a.mem.Grow(uint32(pages)); !ok {
			return 0, errors.AllocationFailed(size, fmt.Errorf("memory grow by %d pages refused", pages))
		}
	}

	a.next = uint32(end)
	a.count++
	a.bytes += uint64(size)
	return uint32(start), nil
}

// Stats returns the arena's counters.
func (a *Arena) Stats() Stats {
	return Stats{
		Count: a.count,
		Bytes: a.bytes,
		Base:  a.base,
		Next:  a.next,
	}
}
