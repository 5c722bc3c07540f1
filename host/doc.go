// Package host exposes the kool runtime functions to WebAssembly guests.
//
// The host module is built from the abi table, so its exports always match
// what code generators declare. Heaps are bound per calling instance: the
// first call from an instance wraps its linear memory and creates the
// allocator chosen with WithAllocator (Arena by default, or GuestExport to
// use a collector linked into the guest).
//
//	h := host.New(host.WithOutput(&buf), host.WithAllocator("arena", host.Arena(16<<20)))
//	if _, err := h.Instantiate(ctx, r); err != nil {
//		return err
//	}
//
// A failure inside a runtime function, such as heap exhaustion or a record
// address outside memory, traps the calling guest. The error value is kept
// in the error chain returned from the guest call, so callers can match it
// with errors.Is.
package host
