package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/kool-runtime/alloc"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/host"
	"github.com/wippyai/kool-runtime/record"
)

// EntryPoints are the exports Run looks for, in order.
var EntryPoints = []string{"_start", "main", "run"}

// Instance is a running program. It is not safe for concurrent use.
type Instance struct {
	module *Module
	mod    api.Module
	host   *host.Host
	cause  error // set once the instance has been shut down by a fatal trap
	closed bool
}

// Stats describes an instance's heap and memory.
type Stats struct {
	alloc.Stats
	MemoryBytes uint32
}

// Call invokes an exported function with i32 arguments. When the call traps
// on heap exhaustion the instance is closed, as the program cannot continue,
// and every later call fails with a terminated error.
func (i *Instance) Call(ctx context.Context, name string, args ...int32) ([]uint64, error) {
	if i.closed {
		return nil, errors.Terminated(i.cause)
	}
	fn := i.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "function", name)
	}
	params := make([]uint64, len(args))
	for j, a := range args {
		params[j] = api.EncodeI32(a)
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		if errors.Is(err, &errors.Error{Kind: errors.KindAllocation}) {
			Logger().Debug("heap exhausted, closing instance",
				zap.String("function", name),
				zap.Error(err))
			i.cause = err
			_ = i.Close(ctx)
			return nil, errors.Terminated(err)
		}
		return nil, errors.Trap(name, err)
	}
	return results, nil
}

// Run calls the first entry point the program exports.
func (i *Instance) Run(ctx context.Context) error {
	name, ok := i.EntryPoint()
	if !ok {
		if i.closed {
			return errors.Terminated(i.cause)
		}
		return errors.NotFound(errors.PhaseRuntime, "entry point", "_start, main or run")
	}
	_, err := i.Call(ctx, name)
	return err
}

// EntryPoint returns the export Run would call.
func (i *Instance) EntryPoint() (string, bool) {
	if i.closed {
		return "", false
	}
	for _, name := range EntryPoints {
		if i.mod.ExportedFunction(name) != nil {
			return name, true
		}
	}
	return "", false
}

// Heap returns the instance's heap, binding it if no runtime function has
// been called yet.
func (i *Instance) Heap(ctx context.Context) (*record.Heap, error) {
	if i.closed {
		return nil, errors.Terminated(i.cause)
	}
	return i.host.Heap(ctx, i.mod)
}

// Stats reports allocator counters and memory size. Counters are zero until
// the heap is bound.
func (i *Instance) Stats(ctx context.Context) (Stats, error) {
	heap, err := i.Heap(ctx)
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	if sp, ok := heap.Allocator().(alloc.StatsProvider); ok {
		s.Stats = sp.Stats()
	}
	s.MemoryBytes = heap.Memory().Size()
	return s, nil
}

// Closed reports whether the instance has been closed.
func (i *Instance) Closed() bool {
	return i.closed
}

// Close releases the instance and its heap. Closing twice is a no-op.
func (i *Instance) Close(ctx context.Context) error {
	if i.closed {
		return nil
	}
	i.closed = true
	i.host.Release(i.mod)
	return i.mod.Close(ctx)
}
