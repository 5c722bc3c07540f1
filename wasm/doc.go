// Package wasm encodes small WebAssembly modules.
//
// It covers what kool programs and their tests need: function types,
// function imports, one linear memory, i32 globals, exports, function bodies
// and active data segments. There is no decoder; loaded modules are
// inspected through wazero.
//
//	m := &wasm.Module{}
//	printInt := m.AddImport("kool", "println_int", wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}})
//	main := m.AddFunc(wasm.FuncType{}, wasm.NewCode().I32Const(7).Call(printInt).End().Body())
//	m.Export("main", wasm.KindFunc, main)
//	bin := m.Encode()
package wasm
