package memory

import (
	"encoding/binary"

	koolrt "github.com/wippyai/kool-runtime"
	"github.com/wippyai/kool-runtime/errors"
)

// Buffer is an in-process linear memory backed by a byte slice.
type Buffer struct {
	data     []byte
	maxPages uint32
}

// NewBuffer creates a memory of the given initial size in pages.
// maxPages of 0 means no limit below 4GiB.
func NewBuffer(pages, maxPages uint32) *Buffer {
	return &Buffer{
		data:     make([]byte, uint64(pages)*koolrt.PageSize),
		maxPages: maxPages,
	}
}

// Bytes returns the whole memory. The slice is invalidated by Grow.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Size() uint32 {
	return uint32(len(b.data))
}

func (b *Buffer) inBounds(offset, length uint32) bool {
	return uint64(offset)+uint64(length) <= uint64(len(b.data))
}

func (b *Buffer) Read(offset uint32, length uint32) ([]byte, error) {
	if !b.inBounds(offset, length) {
		return nil, errors.OutOfBounds(errors.PhaseRecord, offset, length, b.Size())
	}
	return b.data[offset : offset+length : offset+length], nil
}

func (b *Buffer) Write(offset uint32, data []byte) error {
	if !b.inBounds(offset, uint32(len(data))) {
		return errors.OutOfBounds(errors.PhaseRecord, offset, uint32(len(data)), b.Size())
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *Buffer) ReadU8(offset uint32) (uint8, error) {
	if !b.inBounds(offset, 1) {
		return 0, errors.OutOfBounds(errors.PhaseRecord, offset, 1, b.Size())
	}
	return b.data[offset], nil
}

func (b *Buffer) ReadU32(offset uint32) (uint32, error) {
	if !b.inBounds(offset, 4) {
		return 0, errors.OutOfBounds(errors.PhaseRecord, offset, 4, b.Size())
	}
	return binary.LittleEndian.Uint32(b.data[offset:]), nil
}

func (b *Buffer) WriteU8(offset uint32, value uint8) error {
	if !b.inBounds(offset, 1) {
		return errors.OutOfBounds(errors.PhaseRecord, offset, 1, b.Size())
	}
	b.data[offset] = value
	return nil
}

func (b *Buffer) WriteU32(offset uint32, value uint32) error {
	if !b.inBounds(offset, 4) {
		return errors.OutOfBounds(errors.PhaseRecord, offset, 4, b.Size())
	}
	binary.LittleEndian.PutUint32(b.data[offset:], value)
	return nil
}

// Grow appends zeroed pages. It fails past maxPages or 4GiB.
func (b *Buffer) Grow(deltaPages uint32) (uint32, bool) {
	prev := uint32(len(b.data) / koolrt.PageSize)
	next := uint64(prev) + uint64(deltaPages)
	limit := uint64(65536)
	if b.maxPages > 0 && uint64(b.maxPages) < limit {
		limit = uint64(b.maxPages)
	}
	if next > limit || next*koolrt.PageSize > 1<<32-1 {
		return prev, false
	}
	if deltaPages > 0 {
		b.data = append(b.data, make([]byte, uint64(deltaPages)*koolrt.PageSize)...)
	}
	return prev, true
}
