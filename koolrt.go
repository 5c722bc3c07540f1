package koolrt

// Memory represents the linear memory records live in.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU32(offset uint32) (uint32, error)
	WriteU8(offset uint32, value uint8) error
	WriteU32(offset uint32, value uint32) error
	Size() uint32
}

// GrowableMemory is a Memory that can be extended by whole pages.
type GrowableMemory interface {
	Memory
	// Grow adds delta pages and returns the previous size in pages.
	Grow(deltaPages uint32) (uint32, bool)
}

// Allocator hands out blocks of linear memory. Blocks are never freed by
// the caller; reclamation, if any, belongs to the implementation.
type Allocator interface {
	Alloc(size uint32) (uint32, error)
}

// PageSize is the size of one WebAssembly memory page.
const PageSize = 65536
