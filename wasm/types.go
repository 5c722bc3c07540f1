package wasm

import "strings"

// ValType is a core value type.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return "unknown"
	}
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// String renders the signature as "(i32, i32) -> i32". An empty result list
// renders as "()".
func (ft FuncType) String() string {
	var b strings.Builder
	writeList(&b, ft.Params)
	b.WriteString(" -> ")
	if len(ft.Results) == 1 {
		b.WriteString(ft.Results[0].String())
	} else {
		writeList(&b, ft.Results)
	}
	return b.String()
}

func writeList(b *strings.Builder, types []ValType) {
	b.WriteByte('(')
	for i, t := range types {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
	b.WriteByte(')')
}

// Equal reports whether ft and other have the same params and results.
func (ft FuncType) Equal(other FuncType) bool {
	return valTypesEqual(ft.Params, other.Params) && valTypesEqual(ft.Results, other.Results)
}

func valTypesEqual(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Module is the subset of a wasm module this package can encode: function
// imports, one linear memory, i32 globals, exports, function bodies and
// active data segments.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type index per defined function
	Memories []Limits
	Globals  []Global
	Exports  []Export
	Start    *uint32 // function run on instantiation
	Code     []FuncBody
	Data     []DataSegment
}

// Import is a function import.
type Import struct {
	Module  string
	Name    string
	TypeIdx uint32
}

// Limits bounds a memory in pages.
type Limits struct {
	Max *uint32
	Min uint32
}

// Global is an i32 global with a constant initializer.
type Global struct {
	Init    int32
	Mutable bool
}

type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody holds the locals and instruction bytes of a function, including
// its final end opcode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte
}

// LocalEntry declares Count locals of one type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// DataSegment is an active segment for memory 0 at a constant offset.
type DataSegment struct {
	Init   []byte
	Offset uint32
}

// AddType returns the index of ft, appending it if not already present.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, existing := range m.Types {
		if existing.Equal(ft) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// AddImport declares a function import and returns its function index.
// Imports must be added before any function is defined.
func (m *Module) AddImport(module, name string, ft FuncType) uint32 {
	m.Imports = append(m.Imports, Import{
		Module:  module,
		Name:    name,
		TypeIdx: m.AddType(ft),
	})
	return uint32(len(m.Imports) - 1)
}

// AddFunc defines a function and returns its function index.
func (m *Module) AddFunc(ft FuncType, body FuncBody) uint32 {
	m.Funcs = append(m.Funcs, m.AddType(ft))
	m.Code = append(m.Code, body)
	return uint32(len(m.Imports) + len(m.Funcs) - 1)
}

// AddGlobal defines an i32 global and returns its index.
func (m *Module) AddGlobal(init int32, mutable bool) uint32 {
	m.Globals = append(m.Globals, Global{Init: init, Mutable: mutable})
	return uint32(len(m.Globals) - 1)
}

// Export adds an export entry.
func (m *Module) Export(name string, kind byte, idx uint32) {
	m.Exports = append(m.Exports, Export{Name: name, Kind: kind, Idx: idx})
}

// GetFuncType returns the signature of function idx, counting imports
// first, or nil when idx is out of range.
func (m *Module) GetFuncType(idx uint32) *FuncType {
	var typeIdx uint32
	switch {
	case int(idx) < len(m.Imports):
		typeIdx = m.Imports[idx].TypeIdx
	case int(idx)-len(m.Imports) < len(m.Funcs):
		typeIdx = m.Funcs[int(idx)-len(m.Imports)]
	default:
		return nil
	}
	if int(typeIdx) >= len(m.Types) {
		return nil
	}
	return &m.Types[typeIdx]
}
