// Package koolrt is the runtime support layer for programs compiled from the
// Kool language to WebAssembly.
//
// Generated guest modules import a small set of functions from the host
// module "kool" to allocate and manipulate the two variable-length heap
// types of the language, and to print values:
//
//	kool_alloc      (size) -> ptr
//	string_alloc    (len) -> text
//	string_create   (raw) -> text
//	string_concat   (text, text) -> text
//	string_equals   (text, text) -> bool
//	array_alloc     (len) -> array
//	println_int     (i32)
//	println_string  (text)
//	println_bool    (bool)
//
// # Architecture Overview
//
//	koolrt/          Root package with core Memory and Allocator interfaces
//	├── layout/      Binary layout of text and array records
//	├── alloc/       Allocators: arena, guest export, instrumentation
//	├── memory/      Linear memory adapters (wazero, plain buffer)
//	├── record/      Record operations and console output
//	├── abi/         Import table shared by the host and code generators
//	├── literal/     Static literal pool for data segments
//	├── wasm/        Minimal core module encoder
//	├── program/     Guest program builder on top of wasm, abi and literal
//	├── host/        The "kool" wazero host module
//	├── runtime/     High-level API for loading and running programs
//	├── config/      YAML configuration
//	├── errors/      Structured error types
//	└── cmd/koolrun  Command line runner
//
// # Record Layout
//
// Records live in guest linear memory and are little endian:
//
//	text:   [size i32][size bytes][0x00]
//	array:  [size i32][size x i32]
//
// A record is referenced by the offset of its size field. Records are
// immutable once the constructor returns and are never freed by this layer.
//
// # Quick Start
//
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.LoadWASM(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	if err := inst.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. Instance is NOT thread-safe:
// its allocator is a plain bump pointer.
//
// # Memory Model
//
// This layer only allocates. With the default arena allocator memory is
// reclaimed when the instance is closed; a guest that ships its own
// collector can be wired in through its allocation export instead.
package koolrt
