package runtime

import (
	"context"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/kool-runtime/alloc"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/host"
	"github.com/wippyai/kool-runtime/record"
)

// Runtime loads and runs compiled kool programs. It owns a wazero runtime
// with the host module already instantiated.
type Runtime struct {
	wazero wazero.Runtime
	host   *host.Host
	cfg    Config
}

// New creates a runtime. A nil cfg uses the defaults: arena heaps, output
// to os.Stdout and terminator equality.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	c := cfg.withDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	rc := wazero.NewRuntimeConfig()
	if c.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	wr := wazero.NewRuntimeWithConfig(ctx, rc)

	opts := []host.Option{
		host.WithName(c.HostModule),
		host.WithHeapOptions(record.WithEquality(c.Equality)),
	}
	if c.Output != nil {
		opts = append(opts, host.WithOutput(c.Output))
	}
	switch c.Allocator {
	case AllocatorGuest:
		opts = append(opts, host.WithAllocator(string(AllocatorGuest), host.GuestExport(c.GuestExport)))
	default:
		opts = append(opts, host.WithAllocator(string(AllocatorArena), host.Arena(c.HeapLimit)))
	}
	if c.Metrics != nil {
		opts = append(opts, host.WithMetrics(alloc.NewMetrics(c.Metrics)))
	}

	h := host.New(opts...)
	if _, err := h.Instantiate(ctx, wr); err != nil {
		_ = wr.Close(ctx)
		return nil, err
	}

	Logger().Debug("runtime created",
		zap.String("host_module", c.HostModule),
		zap.String("allocator", string(c.Allocator)),
		zap.Uint64("heap_limit", c.HeapLimit),
		zap.Uint32("memory_limit_pages", c.MemoryLimitPages),
		zap.Stringer("equality", c.Equality))

	return &Runtime{wazero: wr, host: h, cfg: c}, nil
}

// Config returns the effective configuration.
func (r *Runtime) Config() Config {
	return r.cfg
}

// Host returns the host module implementation.
func (r *Runtime) Host() *host.Host {
	return r.host
}

// Close releases all runtime resources, including open instances.
func (r *Runtime) Close(ctx context.Context) error {
	return r.wazero.Close(ctx)
}

// LoadWASM compiles a core wasm module and checks its imports against the
// runtime functions.
func (r *Runtime) LoadWASM(ctx context.Context, bin []byte) (*Module, error) {
	compiled, err := r.wazero.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}
	if err := r.checkImports(compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	return &Module{runtime: r, compiled: compiled}, nil
}
