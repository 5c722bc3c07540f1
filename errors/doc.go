// Package errors provides structured error types for the kool runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the config or import path, the expected and actual
// shapes, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLink, errors.KindTypeMismatch).
//		Path("kool", "string_concat").
//		Want("(i32, i32) -> i32").
//		Got("(i32) -> i32").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AllocationFailed(size, cause)
//	err := errors.OutOfBounds(errors.PhaseRecord, offset, length, memSize)
//
// All errors implement the standard error interface and support errors.Is/As.
// A target with an empty Phase matches on Kind alone:
//
//	if errors.Is(err, &errors.Error{Kind: errors.KindAllocation}) { ... }
package errors
