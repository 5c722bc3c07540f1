package program

import (
	"context"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/kool-runtime/abi"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/wasm"
)

// stubRuntime registers do-nothing runtime functions under name so programs
// can be instantiated without a host.
func stubRuntime(t *testing.T, r wazero.Runtime, name string) {
	t.Helper()
	b := r.NewHostModuleBuilder(name)
	for _, f := range abi.Funcs {
		params := make([]api.ValueType, len(f.Params))
		for i, v := range f.Params {
			params[i] = api.ValueType(v)
		}
		results := make([]api.ValueType, len(f.Results))
		for i, v := range f.Results {
			results[i] = api.ValueType(v)
		}
		b.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(context.Context, api.Module, []uint64) {}), params, results).
			Export(f.Name)
	}
	if _, err := b.Instantiate(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestProgram_Imports(t *testing.T) {
	p := New()
	p.Main(wasm.NewCode().End())

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, p.Encode())
	if err != nil {
		t.Fatal(err)
	}
	imports := compiled.ImportedFunctions()
	if len(imports) != len(abi.Funcs) {
		t.Fatalf("got %d imports", len(imports))
	}
	for i, def := range imports {
		mod, name, _ := def.Import()
		if mod != abi.ModuleName || name != abi.Funcs[i].Name {
			t.Errorf("import %d = %s.%s", i, mod, name)
		}
	}
	if _, ok := compiled.ExportedFunctions()["main"]; !ok {
		t.Error("main not exported")
	}
	if _, ok := compiled.ExportedMemories()["memory"]; !ok {
		t.Error("memory not exported")
	}
}

func TestProgram_DataAndHeapBase(t *testing.T) {
	p := New(WithMemory(2, 4))
	hello := p.Text("Hello")
	raw := p.Raw("raw")
	p.Main(wasm.NewCode().End())
	bin := p.Encode()

	if hello != DataBase {
		t.Errorf("first literal at %d", hello)
	}
	if p.HeapBase() <= raw {
		t.Errorf("heap base %d overlaps literals", p.HeapBase())
	}

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	stubRuntime(t, r, abi.ModuleName)

	mod, err := r.Instantiate(ctx, bin)
	if err != nil {
		t.Fatal(err)
	}
	if g := mod.ExportedGlobal("__heap_base"); g == nil || uint32(g.Get()) != p.HeapBase() {
		t.Errorf("__heap_base export wrong")
	}
	got, ok := mod.Memory().Read(hello, 10)
	if !ok || string(got[4:9]) != "Hello" || got[0] != 5 || got[9] != 0 {
		t.Errorf("literal record = %v", got)
	}
	if mod.Memory().Size() != 2*65536 {
		t.Errorf("memory size = %d", mod.Memory().Size())
	}
}

func TestProgram_WithoutHeapBase(t *testing.T) {
	p := New(WithoutHeapBase())
	p.Main(wasm.NewCode().End())

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, p.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Module().Globals) != 0 {
		t.Error("unexpected global")
	}
	if len(compiled.ExportedFunctions()) != 1 {
		t.Errorf("exports = %v", compiled.ExportedFunctions())
	}
}

func TestImport_Unknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New().Import("string_reverse")
}

func TestProgram_LargePoolGrowsMemory(t *testing.T) {
	long := strings.Repeat("x", 70000)
	p := New()
	raw := p.Raw(long)
	p.Main(wasm.NewCode().End())
	bin := p.Encode()

	if got := p.Module().Memories[0].Min; got != 2 {
		t.Errorf("min pages = %d, want 2", got)
	}

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)
	stubRuntime(t, r, abi.ModuleName)

	mod, err := r.Instantiate(ctx, bin)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := mod.Memory().Read(raw, uint32(len(long))+1)
	if !ok || string(got[:len(long)]) != long || got[len(long)] != 0 {
		t.Error("literal not in memory")
	}
	if p.HeapBase() > mod.Memory().Size() {
		t.Errorf("heap base %d beyond memory %d", p.HeapBase(), mod.Memory().Size())
	}
}

func TestProgram_PoolExceedsMaximum(t *testing.T) {
	p := New(WithMemory(1, 1))
	p.Raw(strings.Repeat("x", 70000))

	defer func() {
		err, ok := recover().(error)
		if !ok {
			t.Fatal("expected panic with an error")
		}
		if !errors.Is(err, &errors.Error{Kind: errors.KindInvalidInput}) {
			t.Errorf("got %v", err)
		}
	}()
	p.Encode()
}

func TestProgram_WithHostModule(t *testing.T) {
	p := New(WithHostModule("env"))
	p.Main(wasm.NewCode().End())

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, p.Encode())
	if err != nil {
		t.Fatal(err)
	}
	for _, def := range compiled.ImportedFunctions() {
		if mod, name, _ := def.Import(); mod != "env" {
			t.Errorf("%s imported from %s", name, mod)
		}
	}

	stubRuntime(t, r, "env")
	if _, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig()); err != nil {
		t.Fatal(err)
	}
}
