// Package program assembles kool guest modules: the runtime imports, a
// static literal pool, one linear memory and the __heap_base export the
// arena allocator starts from.
//
//	p := program.New()
//	hello := p.Raw("Hello")
//	p.Main(wasm.NewCode().
//		I32Const(int32(hello)).Call(p.Import(abi.StringCreate)).
//		Call(p.Import(abi.PrintlnString)).
//		End())
//	bin := p.Encode()
package program

import (
	"fmt"

	koolrt "github.com/wippyai/kool-runtime"
	"github.com/wippyai/kool-runtime/abi"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/literal"
	"github.com/wippyai/kool-runtime/wasm"
)

// DataBase is where the literal pool starts. Addresses below it stay unused
// so that small integers are never valid records.
const DataBase = 1024

// Program is a guest module under construction.
type Program struct {
	mod      *wasm.Module
	imports  map[string]uint32
	pool     *literal.Pool
	host     string
	minPages uint32
	maxPages uint32
	noBase   bool
}

type Option func(*Program)

// WithMemory sets the initial and maximum memory size in pages. A zero max
// leaves the memory unbounded.
func WithMemory(minPages, maxPages uint32) Option {
	return func(p *Program) {
		p.minPages = minPages
		p.maxPages = maxPages
	}
}

// WithoutHeapBase omits the __heap_base export, so the arena starts at the
// end of memory.
func WithoutHeapBase() Option {
	return func(p *Program) { p.noBase = true }
}

// WithHostModule imports the runtime functions from name instead of
// abi.ModuleName, for runtimes configured with another host module name.
func WithHostModule(name string) Option {
	return func(p *Program) { p.host = name }
}

// New creates a program importing every runtime function.
func New(opts ...Option) *Program {
	p := &Program{
		mod:      &wasm.Module{},
		pool:     literal.NewPool(DataBase),
		host:     abi.ModuleName,
		minPages: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.imports = abi.DeclareIn(p.mod, p.host)
	return p
}

// Module returns the underlying module for direct edits.
func (p *Program) Module() *wasm.Module {
	return p.mod
}

// Import returns the function index of a runtime function.
func (p *Program) Import(name string) uint32 {
	idx, ok := p.imports[name]
	if !ok {
		panic("program: unknown runtime function " + name)
	}
	return idx
}

// Raw adds a NUL-terminated literal and returns its address.
func (p *Program) Raw(s string) uint32 {
	return p.pool.AddRaw(s)
}

// Text adds a static text record and returns its address.
func (p *Program) Text(s string) uint32 {
	return p.pool.AddText(s)
}

// Array adds a static array record and returns its address.
func (p *Program) Array(values []int32) uint32 {
	return p.pool.AddArray(values)
}

// Func defines and exports a function.
func (p *Program) Func(name string, ft wasm.FuncType, code *wasm.Code) uint32 {
	idx := p.mod.AddFunc(ft, code.Body())
	p.mod.Export(name, wasm.KindFunc, idx)
	return idx
}

// Main defines the exported entry point "main" taking and returning nothing.
func (p *Program) Main(code *wasm.Code) uint32 {
	return p.Func("main", wasm.FuncType{}, code)
}

// Start defines a function that runs while the program is instantiated.
func (p *Program) Start(code *wasm.Code) uint32 {
	idx := p.mod.AddFunc(wasm.FuncType{}, code.Body())
	p.mod.Start = &idx
	return idx
}

// Encode finishes the module. The program must not be changed afterwards.
// The initial memory is raised to hold the whole literal pool; Encode panics
// if that exceeds the maximum set with WithMemory.
func (p *Program) Encode() []byte {
	minPages := p.minPages
	if need := p.poolPages(); need > minPages {
		minPages = need
	}
	if p.maxPages > 0 && minPages > p.maxPages {
		panic(errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Want(fmt.Sprintf("at most %d pages", p.maxPages)).
			Got(fmt.Sprintf("%d pages", minPages)).
			Detail("literal pool does not fit the memory maximum").
			Build())
	}
	limits := wasm.Limits{Min: minPages}
	if p.maxPages > 0 {
		maxPages := p.maxPages
		limits.Max = &maxPages
	}
	p.mod.Memories = []wasm.Limits{limits}
	p.mod.Export("memory", wasm.KindMemory, 0)

	if len(p.pool.Bytes()) > 0 {
		p.mod.Data = append(p.mod.Data, p.pool.Segment())
	}
	if !p.noBase {
		g := p.mod.AddGlobal(int32(p.pool.End()), false)
		p.mod.Export("__heap_base", wasm.KindGlobal, g)
	}
	return p.mod.Encode()
}

func (p *Program) poolPages() uint32 {
	return uint32((uint64(p.pool.End()) + koolrt.PageSize - 1) / koolrt.PageSize)
}

// HeapBase returns the value exported as __heap_base.
func (p *Program) HeapBase() uint32 {
	return p.pool.End()
}

// Hello returns a program whose main prints the sample lines the runtime is
// checked against: Hello, foobar, -42, True and False.
func Hello(opts ...Option) []byte {
	p := New(opts...)
	create := p.Import(abi.StringCreate)
	concat := p.Import(abi.StringConcat)
	printStr := p.Import(abi.PrintlnString)
	printInt := p.Import(abi.PrintlnInt)
	printBool := p.Import(abi.PrintlnBool)

	hello, foo, bar := p.Raw("Hello"), p.Raw("foo"), p.Raw("bar")
	p.Main(wasm.NewCode().
		I32Const(int32(hello)).Call(create).Call(printStr).
		I32Const(int32(foo)).Call(create).
		I32Const(int32(bar)).Call(create).
		Call(concat).Call(printStr).
		I32Const(-42).Call(printInt).
		I32Const(1).Call(printBool).
		I32Const(0).Call(printBool).
		End())
	return p.Encode()
}
