package alloc

import (
	koolrt "github.com/wippyai/kool-runtime"
	"github.com/wippyai/kool-runtime/errors"
)

// Allocate returns a handle to size bytes from a. It panics with a
// structured error when a cannot satisfy the request; there is no recovery
// path. A zero size yields a valid, non-zero handle.
func Allocate(a koolrt.Allocator, size uint32) uint32 {
	ptr, err := a.Alloc(size)
	if err != nil {
		panic(asAllocationError(size, err))
	}
	if ptr == 0 {
		panic(errors.AllocationFailed(size, nil))
	}
	return ptr
}

func asAllocationError(size uint32, err error) error {
	if e, ok := err.(*errors.Error); ok && e.Kind == errors.KindAllocation {
		return e
	}
	return errors.AllocationFailed(size, err)
}

// Stats is a snapshot of allocator activity.
type Stats struct {
	Count uint64 // successful allocations
	Bytes uint64 // bytes handed out, excluding alignment padding
	Base  uint32 // first address managed, 0 if unknown
	Next  uint32 // next free address, 0 if unknown
}

// StatsProvider is implemented by allocators that keep statistics.
type StatsProvider interface {
	Stats() Stats
}
