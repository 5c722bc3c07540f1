// Package runtime loads and runs compiled kool programs.
//
// # Quick Start
//
//	ctx := context.Background()
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
// # Imports
//
// LoadWASM checks every import before anything runs. A program may import
// only the runtime functions of the abi table, from the configured host
// module, with their exact signatures. Anything else is reported as a
// *errors.MissingImportsError or a type_mismatch error.
//
// # Heaps
//
// Each instance gets its own heap on its first runtime call. In arena mode
// the heap starts at the program's __heap_base export (or the end of its
// memory) and grows memory by pages. In guest mode the program's own
// allocator export is called for every record.
//
// # Exhaustion
//
// Running out of heap is fatal for the program: the call traps, the instance
// is closed and Call returns an error matching both KindTerminated and
// KindAllocation.
//
//	_, err := inst.Call(ctx, "main")
//	if errors.Is(err, &errors.Error{Kind: errors.KindAllocation}) { ... }
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. Instance is not; give each
// goroutine its own.
package runtime
