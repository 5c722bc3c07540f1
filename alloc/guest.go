package alloc

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/kool-runtime/errors"
)

// Guest delegates allocation to a function exported by the guest, typically
// the entry point of a collector linked into the guest. The export must have
// the signature (i32) -> i32 and return 0 on exhaustion.
//
// The export is called with the context of the host call that is
// allocating, set through SetContext before each use.
type Guest struct {
	ctx   context.Context
	fn    api.Function
	count uint64
	bytes uint64
}

// ContextSetter is implemented by allocators that call back into the guest
// and must run under the context of the current host call.
type ContextSetter interface {
	SetContext(ctx context.Context)
}

// WrapGuest returns nil when fn is nil.
func WrapGuest(ctx context.Context, fn api.Function) *Guest {
	if fn == nil {
		return nil
	}
	return &Guest{ctx: ctx, fn: fn}
}

// SetContext sets the context later Alloc calls run under.
func (g *Guest) SetContext(ctx context.Context) {
	g.ctx = ctx
}

// Context returns the context the next Alloc runs under.
func (g *Guest) Context() context.Context {
	return g.ctx
}

// Alloc calls the guest allocator.
func (g *Guest) Alloc(size uint32) (uint32, error) {
	results, err := g.fn.Call(g.ctx, uint64(size))
	if err != nil {
		return 0, errors.AllocationFailed(size, fmt.Errorf("guest allocator: %w", err))
	}
	if len(results) == 0 {
		return 0, errors.AllocationFailed(size, fmt.Errorf("guest allocator returned no result"))
	}
	ptr := uint32(results[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed(size, fmt.Errorf("guest allocator returned null"))
	}
	g.count++
	g.bytes += uint64(size)
	return ptr, nil
}

func (g *Guest) Stats() Stats {
	return Stats{Count: g.count, Bytes: g.bytes}
}
