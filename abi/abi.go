// Package abi describes the functions a compiled kool program imports from
// the host. The host module and the code generators both read this table.
package abi

import (
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/wasm"
)

// ModuleName is the import module every runtime function lives under.
const ModuleName = "kool"

// Export names.
const (
	KoolAlloc     = "kool_alloc"
	StringAlloc   = "string_alloc"
	StringCreate  = "string_create"
	StringConcat  = "string_concat"
	StringEquals  = "string_equals"
	ArrayAlloc    = "array_alloc"
	PrintlnInt    = "println_int"
	PrintlnString = "println_string"
	PrintlnBool   = "println_bool"
)

// Func is one runtime function and its core wasm signature.
type Func struct {
	Name    string
	Doc     string
	Params  []wasm.ValType
	Results []wasm.ValType
}

// Type returns the function's signature.
func (f Func) Type() wasm.FuncType {
	return wasm.FuncType{Params: f.Params, Results: f.Results}
}

var (
	i32   = []wasm.ValType{wasm.ValI32}
	i32x2 = []wasm.ValType{wasm.ValI32, wasm.ValI32}
)

// Funcs lists the runtime functions in declaration order.
var Funcs = []Func{
	{Name: KoolAlloc, Params: i32, Results: i32, Doc: "allocate n bytes from the heap"},
	{Name: StringAlloc, Params: i32, Results: i32, Doc: "allocate a text record of length n"},
	{Name: StringCreate, Params: i32, Results: i32, Doc: "copy NUL-terminated units into a new text record"},
	{Name: StringConcat, Params: i32x2, Results: i32, Doc: "concatenate two text records"},
	{Name: StringEquals, Params: i32x2, Results: i32, Doc: "1 if two text records hold the same content, else 0"},
	{Name: ArrayAlloc, Params: i32, Results: i32, Doc: "allocate an array record of n i32 elements"},
	{Name: PrintlnInt, Params: i32, Doc: "print an integer and a newline"},
	{Name: PrintlnString, Params: i32, Doc: "print a text record and a newline"},
	{Name: PrintlnBool, Params: i32, Doc: "print True or False and a newline"},
}

var byName = func() map[string]Func {
	m := make(map[string]Func, len(Funcs))
	for _, f := range Funcs {
		m[f.Name] = f
	}
	return m
}()

// Lookup returns the runtime function with the given name.
func Lookup(name string) (Func, bool) {
	f, ok := byName[name]
	return f, ok
}

// Declare adds imports for the named runtime functions to m under
// ModuleName and returns their function indices by name. With no names every
// function is declared. Declare panics on an unknown name, as generators call
// it with constants.
func Declare(m *wasm.Module, names ...string) map[string]uint32 {
	return DeclareIn(m, ModuleName, names...)
}

// DeclareIn is Declare for a host module registered under namespace.
func DeclareIn(m *wasm.Module, namespace string, names ...string) map[string]uint32 {
	if len(names) == 0 {
		names = make([]string, len(Funcs))
		for i, f := range Funcs {
			names[i] = f.Name
		}
	}
	idx := make(map[string]uint32, len(names))
	for _, name := range names {
		if _, done := idx[name]; done {
			continue
		}
		f, ok := Lookup(name)
		if !ok {
			panic(errors.NotFound(errors.PhaseLink, "runtime function", name))
		}
		idx[name] = m.AddImport(namespace, f.Name, f.Type())
	}
	return idx
}

// Check compares an import from the runtime module, registered under
// namespace, against the table. It returns a *errors.MissingImportsError for
// unknown names and a type_mismatch error for a wrong signature.
func Check(namespace, name string, got wasm.FuncType) error {
	f, ok := Lookup(name)
	if !ok {
		return errors.NewMissingImportsError([]string{namespace + "#" + name})
	}
	if !f.Type().Equal(got) {
		return errors.SignatureMismatch(namespace, name, f.Type().String(), got.String())
	}
	return nil
}
