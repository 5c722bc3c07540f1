// Package memory provides linear memory adapters for the record layer.
//
// Wrap adapts a wazero api.Memory; Buffer is a plain growable byte slice
// with the same semantics, used for host-side record construction and in
// tests that do not need a guest.
package memory
