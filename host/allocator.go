package host

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	koolrt "github.com/wippyai/kool-runtime"
	"github.com/wippyai/kool-runtime/alloc"
	"github.com/wippyai/kool-runtime/errors"
)

// HeapBaseGlobal is the export a program uses to mark the end of its static
// data. The arena starts there.
const HeapBaseGlobal = "__heap_base"

// AllocatorFunc creates the allocator for a guest instance the first time it
// calls into the host.
type AllocatorFunc func(ctx context.Context, mod api.Module, mem koolrt.GrowableMemory) (koolrt.Allocator, error)

// Arena returns an AllocatorFunc that places a bump arena after the guest's
// static data: at the exported __heap_base global when there is one, else at
// the current end of memory. limit caps the bytes handed out; 0 is no cap.
func Arena(limit uint64) AllocatorFunc {
	return func(_ context.Context, mod api.Module, mem koolrt.GrowableMemory) (koolrt.Allocator, error) {
		return alloc.NewArena(mem, HeapBase(mod), limit), nil
	}
}

// HeapBase returns the address the arena of mod starts at.
func HeapBase(mod api.Module) uint32 {
	if g := mod.ExportedGlobal(HeapBaseGlobal); g != nil {
		if base := uint32(g.Get()); base != 0 {
			return base
		}
	}
	if mem := mod.Memory(); mem != nil {
		return mem.Size()
	}
	return 0
}

// GuestExport returns an AllocatorFunc delegating to the guest's own
// allocator export, which must have the signature (i32) -> i32.
func GuestExport(name string) AllocatorFunc {
	return func(ctx context.Context, mod api.Module, _ koolrt.GrowableMemory) (koolrt.Allocator, error) {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			return nil, errors.NotFound(errors.PhaseHost, "allocator export", name)
		}
		def := fn.Definition()
		if len(def.ParamTypes()) != 1 || def.ParamTypes()[0] != api.ValueTypeI32 ||
			len(def.ResultTypes()) != 1 || def.ResultTypes()[0] != api.ValueTypeI32 {
			return nil, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
				Path(mod.Name(), name).
				Want("(i32) -> i32").
				Detail("allocator export has the wrong signature").
				Build()
		}
		return alloc.WrapGuest(ctx, fn), nil
	}
}
