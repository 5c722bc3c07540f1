package host

import (
	"context"
	"io"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	koolrt "github.com/wippyai/kool-runtime"

	"github.com/wippyai/kool-runtime/abi"
	"github.com/wippyai/kool-runtime/alloc"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/memory"
	"github.com/wippyai/kool-runtime/record"
	"github.com/wippyai/kool-runtime/wasm"
)

// Host implements the runtime functions compiled programs import. Each
// calling instance gets its own record.Heap, created on its first call.
type Host struct {
	newAlloc  AllocatorFunc
	metrics   *alloc.Metrics
	printer   *record.Printer
	heaps     map[api.Module]*record.Heap
	name      string
	allocName string
	heapOpts  []record.Option
	mu        sync.Mutex
}

type Option func(*Host)

// WithName registers the host module under name instead of abi.ModuleName.
func WithName(name string) Option {
	return func(h *Host) { h.name = name }
}

// WithOutput sends printed values to w.
func WithOutput(w io.Writer) Option {
	return func(h *Host) { h.printer = record.NewPrinter(w, Logger()) }
}

// WithAllocator selects how instance heaps get their memory. The label names
// the allocator in metrics.
func WithAllocator(label string, fn AllocatorFunc) Option {
	return func(h *Host) {
		h.allocName = label
		h.newAlloc = fn
	}
}

// WithMetrics instruments every heap allocator.
func WithMetrics(m *alloc.Metrics) Option {
	return func(h *Host) { h.metrics = m }
}

// WithHeapOptions passes options to every record.Heap.
func WithHeapOptions(opts ...record.Option) Option {
	return func(h *Host) { h.heapOpts = append(h.heapOpts, opts...) }
}

// New creates a host writing to standard output with an unbounded arena
// allocator.
func New(opts ...Option) *Host {
	h := &Host{
		name:      abi.ModuleName,
		allocName: "arena",
		newAlloc:  Arena(0),
		heaps:     make(map[api.Module]*record.Heap),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.printer == nil {
		h.printer = record.NewPrinter(nil, Logger())
	}
	return h
}

// Name returns the import module name.
func (h *Host) Name() string {
	return h.name
}

func (h *Host) Printer() *record.Printer {
	return h.printer
}

// Instantiate registers the host module in r. Every function of abi.Funcs is
// exported with its declared signature.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	impls := h.functions()
	b := r.NewHostModuleBuilder(h.name)
	for _, f := range abi.Funcs {
		impl, ok := impls[f.Name]
		if !ok {
			return nil, errors.Registration(h.name, f.Name, errors.NotFound(errors.PhaseHost, "implementation", f.Name))
		}
		b.NewFunctionBuilder().
			WithGoModuleFunction(impl, valueTypes(f.Params), valueTypes(f.Results)).
			WithName(f.Name).
			Export(f.Name)
	}
	mod, err := b.Instantiate(ctx)
	if err != nil {
		return nil, errors.Registration(h.name, "*", err)
	}
	return mod, nil
}

func valueTypes(types []wasm.ValType) []api.ValueType {
	if len(types) == 0 {
		return nil
	}
	out := make([]api.ValueType, len(types))
	for i, t := range types {
		out[i] = api.ValueType(t)
	}
	return out
}

// Heap returns the heap bound to mod, creating it on first use.
func (h *Host) Heap(ctx context.Context, mod api.Module) (*record.Heap, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if heap, ok := h.heaps[mod]; ok {
		setContext(heap.Allocator(), ctx)
		return heap, nil
	}

	mem := memory.Wrap(mod.Memory())
	if mem == nil {
		return nil, errors.New(errors.PhaseHost, errors.KindNotFound).
			Path(mod.Name()).
			Detail("module has no linear memory").
			Build()
	}
	a, err := h.newAlloc(ctx, mod, mem)
	if err != nil {
		return nil, err
	}
	if h.metrics != nil {
		a = alloc.Instrument(h.allocName, a, h.metrics)
	}
	heap := record.NewHeap(mem, a, h.heapOpts...)
	h.heaps[mod] = heap
	if b, ok := ctx.Value(bindingsKey{}).(*bindings); ok {
		b.mods = append(b.mods, mod)
	}

	fields := []zap.Field{zap.String("module", mod.Name()), zap.String("allocator", h.allocName)}
	if sp, ok := a.(alloc.StatsProvider); ok {
		fields = append(fields, zap.Uint32("base", sp.Stats().Base))
	}
	Logger().Debug("heap bound", fields...)
	return heap, nil
}

// setContext hands the current call's context to allocators that call
// back into the guest.
func setContext(a koolrt.Allocator, ctx context.Context) {
	if cs, ok := a.(alloc.ContextSetter); ok {
		cs.SetContext(ctx)
	}
}

// Release forgets the heap of mod. Call it when the instance is closed.
func (h *Host) Release(mod api.Module) {
	h.mu.Lock()
	delete(h.heaps, mod)
	h.mu.Unlock()
}

type bindingsKey struct{}

type bindings struct {
	mods []api.Module
}

// TrackBindings returns a context under which every heap bound by Heap is
// recorded, and a function that releases those heaps. Use it around
// instantiation: a start function may bind a heap for an instance that then
// fails to instantiate and is never closed.
func (h *Host) TrackBindings(ctx context.Context) (context.Context, func()) {
	b := &bindings{}
	release := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, mod := range b.mods {
			delete(h.heaps, mod)
		}
		b.mods = nil
	}
	return context.WithValue(ctx, bindingsKey{}, b), release
}

// Bound reports how many instances currently hold a heap.
func (h *Host) Bound() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.heaps)
}

// mustHeap is for use inside host functions: a failure traps the caller.
func (h *Host) mustHeap(ctx context.Context, mod api.Module) *record.Heap {
	heap, err := h.Heap(ctx, mod)
	if err != nil {
		panic(err)
	}
	return heap
}
