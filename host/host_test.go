package host

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/kool-runtime/abi"
	"github.com/wippyai/kool-runtime/alloc"
	kerrors "github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/program"
	"github.com/wippyai/kool-runtime/record"
	"github.com/wippyai/kool-runtime/wasm"
)

var (
	i32     = []wasm.ValType{wasm.ValI32}
	toI32   = wasm.FuncType{Params: i32, Results: i32}
	retI32  = wasm.FuncType{Results: i32}
	i32x2   = wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Results: i32}
	nothing = wasm.FuncType{}
)

// setup instantiates h in a fresh runtime and then the guest.
func setup(t *testing.T, h *Host, bin []byte) (context.Context, api.Module) {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { r.Close(ctx) })

	if _, err := h.Instantiate(ctx, r); err != nil {
		t.Fatalf("host: %v", err)
	}
	mod, err := r.InstantiateWithConfig(ctx, bin, wazero.NewModuleConfig().WithName("guest"))
	if err != nil {
		t.Fatalf("guest: %v", err)
	}
	return ctx, mod
}

func call(t *testing.T, ctx context.Context, mod api.Module, name string, args ...uint64) ([]uint64, error) {
	t.Helper()
	fn := mod.ExportedFunction(name)
	if fn == nil {
		t.Fatalf("no export %s", name)
	}
	return fn.Call(ctx, args...)
}

func TestHost_Hello(t *testing.T) {
	var out bytes.Buffer
	h := New(WithOutput(&out))
	ctx, mod := setup(t, h, program.Hello())

	if _, err := call(t, ctx, mod, "main"); err != nil {
		t.Fatal(err)
	}
	if got, want := out.String(), "Hello\nfoobar\n-42\nTrue\nFalse\n"; got != want {
		t.Errorf("output %q, want %q", got, want)
	}
}

func TestHost_RecordsInGuestMemory(t *testing.T) {
	p := program.New()
	hello := p.Raw("Hello")
	static := p.Text("Hello")
	p.Func("create", retI32, wasm.NewCode().
		I32Const(int32(hello)).Call(p.Import(abi.StringCreate)).End())
	p.Func("equals_static", toI32, wasm.NewCode().
		LocalGet(0).I32Const(int32(static)).Call(p.Import(abi.StringEquals)).End())
	p.Func("concat", i32x2, wasm.NewCode().
		LocalGet(0).LocalGet(1).Call(p.Import(abi.StringConcat)).End())
	p.Func("alloc_text", toI32, wasm.NewCode().
		LocalGet(0).Call(p.Import(abi.StringAlloc)).End())
	p.Func("alloc_array", toI32, wasm.NewCode().
		LocalGet(0).Call(p.Import(abi.ArrayAlloc)).End())
	p.Func("alloc", toI32, wasm.NewCode().
		LocalGet(0).Call(p.Import(abi.KoolAlloc)).End())
	base := p.HeapBase()
	bin := p.Encode()

	h := New()
	ctx, mod := setup(t, h, bin)

	res, err := call(t, ctx, mod, "create")
	if err != nil {
		t.Fatal(err)
	}
	txt := uint32(res[0])
	if txt < base {
		t.Errorf("record at %d below heap base %d", txt, base)
	}
	got, _ := mod.Memory().Read(txt, 10)
	if !bytes.Equal(got, []byte{5, 0, 0, 0, 'H', 'e', 'l', 'l', 'o', 0}) {
		t.Errorf("record bytes %v", got)
	}

	res, err = call(t, ctx, mod, "equals_static", uint64(txt))
	if err != nil || res[0] != 1 {
		t.Errorf("equals_static = %v, %v", res, err)
	}

	res, err = call(t, ctx, mod, "concat", uint64(txt), uint64(static))
	if err != nil {
		t.Fatal(err)
	}
	heap, err := h.Heap(ctx, mod)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := heap.String(record.Text(res[0])); s != "HelloHello" {
		t.Errorf("concat = %q", s)
	}

	res, err = call(t, ctx, mod, "alloc_text", 3)
	if err != nil {
		t.Fatal(err)
	}
	if size, _ := heap.Size(record.Text(res[0])); size != 3 {
		t.Errorf("alloc_text size = %d", size)
	}

	res, err = call(t, ctx, mod, "alloc_array", 0)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := heap.ArrayLen(record.Array(res[0])); n != 0 || res[0] == 0 {
		t.Errorf("alloc_array(0) = %d, len %d", res[0], n)
	}

	a1, err := call(t, ctx, mod, "alloc", 0)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := call(t, ctx, mod, "alloc", 0)
	if err != nil {
		t.Fatal(err)
	}
	if a1[0] == 0 || a2[0] == 0 {
		t.Error("kool_alloc(0) returned null")
	}
}

func TestHost_Traps(t *testing.T) {
	p := program.New(program.WithMemory(1, 1))
	p.Func("alloc", toI32, wasm.NewCode().LocalGet(0).Call(p.Import(abi.KoolAlloc)).End())
	p.Func("alloc_text", toI32, wasm.NewCode().LocalGet(0).Call(p.Import(abi.StringAlloc)).End())
	p.Func("alloc_array", toI32, wasm.NewCode().LocalGet(0).Call(p.Import(abi.ArrayAlloc)).End())
	p.Func("print", wasm.FuncType{Params: i32}, wasm.NewCode().LocalGet(0).Call(p.Import(abi.PrintlnString)).End())
	bin := p.Encode()

	tests := []struct {
		name string
		fn   string
		arg  int32
		kind kerrors.Kind
	}{
		{"negative kool_alloc", "alloc", -1, kerrors.KindInvalidInput},
		{"negative string_alloc", "alloc_text", -8, kerrors.KindInvalidInput},
		{"negative array_alloc", "alloc_array", -2, kerrors.KindInvalidInput},
		{"memory cannot grow", "alloc_text", 1 << 20, kerrors.KindAllocation},
		{"record outside memory", "print", 1 << 17, kerrors.KindOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(WithOutput(&bytes.Buffer{}))
			ctx, mod := setup(t, h, bin)
			_, err := call(t, ctx, mod, tt.fn, api.EncodeI32(tt.arg))
			if !errors.Is(err, &kerrors.Error{Kind: tt.kind}) {
				t.Errorf("got %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestHost_ArenaLimit(t *testing.T) {
	p := program.New()
	p.Func("alloc_text", toI32, wasm.NewCode().LocalGet(0).Call(p.Import(abi.StringAlloc)).End())
	bin := p.Encode()

	h := New(WithAllocator("arena", Arena(64)))
	ctx, mod := setup(t, h, bin)

	if _, err := call(t, ctx, mod, "alloc_text", 10); err != nil {
		t.Fatal(err)
	}
	_, err := call(t, ctx, mod, "alloc_text", 100)
	if !errors.Is(err, &kerrors.Error{Kind: kerrors.KindAllocation}) {
		t.Errorf("got %v, want allocation error", err)
	}
}

func TestHost_HeapBase(t *testing.T) {
	t.Run("exported", func(t *testing.T) {
		p := program.New()
		p.Raw("static data")
		p.Func("alloc", toI32, wasm.NewCode().LocalGet(0).Call(p.Import(abi.KoolAlloc)).End())
		base := p.HeapBase()
		ctx, mod := setup(t, New(), p.Encode())

		if got := HeapBase(mod); got != base {
			t.Errorf("HeapBase = %d, want %d", got, base)
		}
		res, err := call(t, ctx, mod, "alloc", 4)
		if err != nil {
			t.Fatal(err)
		}
		if uint32(res[0]) != base {
			t.Errorf("first allocation at %d, want %d", res[0], base)
		}
	})

	t.Run("end of memory", func(t *testing.T) {
		p := program.New(program.WithoutHeapBase(), program.WithMemory(1, 4))
		p.Func("alloc", toI32, wasm.NewCode().LocalGet(0).Call(p.Import(abi.KoolAlloc)).End())
		ctx, mod := setup(t, New(), p.Encode())

		res, err := call(t, ctx, mod, "alloc", 4)
		if err != nil {
			t.Fatal(err)
		}
		if uint32(res[0]) != 65536 {
			t.Errorf("first allocation at %d, want 65536", res[0])
		}
		if mod.Memory().Size() != 2*65536 {
			t.Errorf("memory not grown: %d", mod.Memory().Size())
		}
	})
}

// guestMalloc defines a bump allocator inside the guest, the way a linked
// collector would provide GC_malloc. It hands out memory from 32768 and
// returns 0 once 65536 is reached.
func guestMalloc(p *program.Program) {
	m := p.Module()
	next := m.AddGlobal(32768, true)
	p.Func("GC_malloc", toI32, wasm.NewCode().
		Locals(1).
		GlobalGet(next).LocalSet(1).
		GlobalGet(next).LocalGet(0).I32Add().I32Const(3).I32Add().I32Const(-4).I32And().
		GlobalSet(next).
		GlobalGet(next).I32Const(65536).I32GtU().
		IfI32().I32Const(0).Else().LocalGet(1).End().
		End())
}

func TestHost_GuestAllocator(t *testing.T) {
	p := program.New(program.WithMemory(1, 1))
	guestMalloc(p)
	hello := p.Raw("Hello")
	p.Func("create", retI32, wasm.NewCode().
		I32Const(int32(hello)).Call(p.Import(abi.StringCreate)).End())
	p.Func("alloc_text", toI32, wasm.NewCode().LocalGet(0).Call(p.Import(abi.StringAlloc)).End())
	p.Main(wasm.NewCode().
		I32Const(int32(hello)).Call(p.Import(abi.StringCreate)).Call(p.Import(abi.PrintlnString)).
		End())
	bin := p.Encode()

	var out bytes.Buffer
	h := New(WithOutput(&out), WithAllocator("guest", GuestExport("GC_malloc")))
	ctx, mod := setup(t, h, bin)

	res, err := call(t, ctx, mod, "create")
	if err != nil {
		t.Fatal(err)
	}
	if res[0] != 32768 {
		t.Errorf("record at %d, want 32768 from the guest allocator", res[0])
	}
	if _, err := call(t, ctx, mod, "main"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "Hello\n" {
		t.Errorf("output %q", out.String())
	}

	_, err = call(t, ctx, mod, "alloc_text", 40000)
	if !errors.Is(err, &kerrors.Error{Kind: kerrors.KindAllocation}) {
		t.Errorf("got %v, want allocation error", err)
	}
}

// The guest allocator must run under the context of the call that
// allocates, not the one that bound the heap.
func TestHost_GuestAllocatorCallContext(t *testing.T) {
	p := program.New(program.WithMemory(1, 1))
	guestMalloc(p)
	hello := p.Raw("Hello")
	p.Func("create", retI32, wasm.NewCode().
		I32Const(int32(hello)).Call(p.Import(abi.StringCreate)).End())

	h := New(WithAllocator("guest", GuestExport("GC_malloc")))
	ctx := context.Background()
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	t.Cleanup(func() { r.Close(ctx) })
	if _, err := h.Instantiate(ctx, r); err != nil {
		t.Fatal(err)
	}
	mod, err := r.Instantiate(ctx, p.Encode())
	if err != nil {
		t.Fatal(err)
	}

	bindCtx, cancel := context.WithCancel(ctx)
	if _, err := h.Heap(bindCtx, mod); err != nil {
		t.Fatal(err)
	}
	cancel()

	res, err := call(t, ctx, mod, "create")
	if err != nil {
		t.Fatalf("allocation ran under the binding context: %v", err)
	}
	if res[0] != 32768 {
		t.Errorf("record at %d, want 32768", res[0])
	}

	heap, err := h.Heap(ctx, mod)
	if err != nil {
		t.Fatal(err)
	}
	g, ok := heap.Allocator().(*alloc.Guest)
	if !ok {
		t.Fatalf("allocator %T", heap.Allocator())
	}
	if g.Context() != ctx {
		t.Error("guest allocator context not updated")
	}
}

func TestHost_TrackBindings(t *testing.T) {
	h := New()
	ctx, mod := setup(t, h, program.Hello())

	if _, err := h.Heap(ctx, mod); err != nil {
		t.Fatal(err)
	}
	tracked, release := h.TrackBindings(ctx)
	if _, err := h.Heap(tracked, mod); err != nil {
		t.Fatal(err)
	}
	release()
	if h.Bound() != 1 {
		t.Error("heap bound outside the tracked context was released")
	}

	h.Release(mod)
	tracked, release = h.TrackBindings(ctx)
	if _, err := h.Heap(tracked, mod); err != nil {
		t.Fatal(err)
	}
	if h.Bound() != 1 {
		t.Fatalf("bound = %d, want 1", h.Bound())
	}
	release()
	if h.Bound() != 0 {
		t.Error("tracked heap not released")
	}
}

func TestHost_GuestAllocatorMissing(t *testing.T) {
	p := program.New()
	p.Func("alloc", toI32, wasm.NewCode().LocalGet(0).Call(p.Import(abi.KoolAlloc)).End())
	h := New(WithAllocator("guest", GuestExport("GC_malloc")))
	ctx, mod := setup(t, h, p.Encode())

	_, err := call(t, ctx, mod, "alloc", 8)
	if !errors.Is(err, &kerrors.Error{Kind: kerrors.KindNotFound}) {
		t.Errorf("got %v, want not_found", err)
	}
	if h.Bound() != 0 {
		t.Error("failed binding must not be cached")
	}
}

func TestHost_PerInstanceHeaps(t *testing.T) {
	p := program.New()
	hello := p.Raw("Hello")
	p.Func("create", retI32, wasm.NewCode().
		I32Const(int32(hello)).Call(p.Import(abi.StringCreate)).End())
	bin := p.Encode()

	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)
	h := New()
	if _, err := h.Instantiate(ctx, r); err != nil {
		t.Fatal(err)
	}
	compiled, err := r.CompileModule(ctx, bin)
	if err != nil {
		t.Fatal(err)
	}

	var mods []api.Module
	for i := 0; i < 2; i++ {
		mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
		if err != nil {
			t.Fatal(err)
		}
		mods = append(mods, mod)
	}

	var addrs []uint64
	for _, mod := range mods {
		res, err := call(t, ctx, mod, "create")
		if err != nil {
			t.Fatal(err)
		}
		addrs = append(addrs, res[0])
	}
	// Separate memories, separate arenas: both start at the same base.
	if addrs[0] != addrs[1] {
		t.Errorf("addresses %v differ", addrs)
	}
	if h.Bound() != 2 {
		t.Errorf("Bound = %d", h.Bound())
	}

	h.Release(mods[0])
	if h.Bound() != 1 {
		t.Errorf("Bound after release = %d", h.Bound())
	}
}

func TestHost_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := alloc.NewMetrics(reg)
	h := New(WithOutput(&bytes.Buffer{}), WithMetrics(m), WithAllocator("arena", Arena(0)))
	ctx, mod := setup(t, h, program.Hello())

	if _, err := call(t, ctx, mod, "main"); err != nil {
		t.Fatal(err)
	}
	// Hello, foo, bar and foobar.
	n, err := testutil.GatherAndCount(reg, "kool_heap_allocations_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("series = %d", n)
	}
	if got := testutil.ToFloat64(m.Allocations().WithLabelValues("arena")); got != 4 {
		t.Errorf("allocations = %v, want 4", got)
	}
}

func TestHost_SizedEquality(t *testing.T) {
	p := program.New()
	short := p.Text("a")
	p.Func("alloc_text", toI32, wasm.NewCode().LocalGet(0).Call(p.Import(abi.StringAlloc)).End())
	p.Func("equals", toI32, wasm.NewCode().
		LocalGet(0).I32Const(int32(short)).Call(p.Import(abi.StringEquals)).End())
	bin := p.Encode()

	for _, tt := range []struct {
		mode record.EqualityMode
		want uint64
	}{
		{record.EqualityTerminator, 1},
		{record.EqualitySized, 0},
	} {
		t.Run(tt.mode.String(), func(t *testing.T) {
			h := New(WithHeapOptions(record.WithEquality(tt.mode)))
			ctx, mod := setup(t, h, bin)

			// A size-3 record whose content is "a" followed by terminators.
			res, err := call(t, ctx, mod, "alloc_text", 3)
			if err != nil {
				t.Fatal(err)
			}
			mod.Memory().Write(uint32(res[0])+4, []byte{'a', 0, 0})

			eq, err := call(t, ctx, mod, "equals", res[0])
			if err != nil {
				t.Fatal(err)
			}
			if eq[0] != tt.want {
				t.Errorf("equals = %d, want %d", eq[0], tt.want)
			}
		})
	}
}

func TestHost_CustomName(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	h := New(WithName("kool_v2"))
	mod, err := h.Instantiate(ctx, r)
	if err != nil {
		t.Fatal(err)
	}
	if mod.Name() != "kool_v2" || h.Name() != "kool_v2" {
		t.Errorf("name = %s", mod.Name())
	}
	defs := mod.ExportedFunctionDefinitions()
	if len(defs) != len(abi.Funcs) {
		t.Errorf("exported %d functions", len(defs))
	}
	def := defs[abi.StringConcat]
	if def == nil || len(def.ParamTypes()) != 2 || len(def.ResultTypes()) != 1 {
		t.Error("string_concat signature wrong")
	}
}
