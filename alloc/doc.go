// Package alloc implements the allocator facade records are built on.
//
// Allocate is the single chokepoint every record constructor goes through.
// It never frees and treats exhaustion as fatal: it panics with an
// errors.KindAllocation error, which inside a host function traps the guest.
//
// Three allocators are provided:
//
//	Arena       bump allocator over guest linear memory, leak-until-close
//	Guest       delegates to an allocation export of the guest (its own collector)
//	Instrument  wraps any allocator with prometheus metrics
package alloc
