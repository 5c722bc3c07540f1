// Package record implements the kool heap records on top of linear memory.
//
// A Heap pairs a memory with an allocator and provides the record
// constructors generated code relies on:
//
//	AllocText(n)     text record of size n, content left for the caller
//	CreateText(raw)  copy of a terminator-delimited buffer
//	Concat(a, b)     a's content followed by b's content and terminator
//	Equal(a, b)      content equality (see EqualityMode)
//	AllocArray(n)    array record of n elements, content left for the caller
//
// Records are immutable once a constructor returns. Constructors allocate
// through alloc.Allocate and therefore panic on exhaustion; memory access
// failures are returned as errors.
//
// Printer implements the console side: one line per value.
package record
