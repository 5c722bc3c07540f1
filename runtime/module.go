package runtime

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/host"
	"github.com/wippyai/kool-runtime/wasm"
)

// Module is a compiled program. It is safe for concurrent use; every
// Instantiate creates an independent instance.
type Module struct {
	runtime  *Runtime
	compiled wazero.CompiledModule
}

// Export describes an exported function.
type Export struct {
	Name string
	Type wasm.FuncType
}

// Exports returns the exported functions sorted by name.
func (m *Module) Exports() []Export {
	defs := m.compiled.ExportedFunctions()
	exports := make([]Export, 0, len(defs))
	for name, def := range defs {
		exports = append(exports, Export{Name: name, Type: funcType(def)})
	}
	sort.Slice(exports, func(i, j int) bool { return exports[i].Name < exports[j].Name })
	return exports
}

// Instantiate creates an instance. The module's start function, if any,
// runs here; exported entry points run only when called.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	cfg := wazero.NewModuleConfig().
		WithName(""). // anonymous, so a module can be instantiated many times
		WithStartFunctions()
	bindCtx, release := m.runtime.host.TrackBindings(ctx)
	mod, err := m.runtime.wazero.InstantiateModule(bindCtx, m.compiled, cfg)
	if err != nil {
		release()
		return nil, errors.Instantiation(err)
	}

	if m.runtime.cfg.Allocator == AllocatorGuest {
		if mod.ExportedFunction(m.runtime.cfg.GuestExport) == nil {
			_ = mod.Close(ctx)
			return nil, errors.NotFound(errors.PhaseRuntime, "allocator export", m.runtime.cfg.GuestExport)
		}
	}

	Logger().Debug("instance created",
		zap.Uint32("heap_base", host.HeapBase(mod)),
		zap.Int("exports", len(m.compiled.ExportedFunctions())))

	return &Instance{
		module: m,
		mod:    mod,
		host:   m.runtime.host,
	}, nil
}

// Close releases the compiled code. Instances already created keep working.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
