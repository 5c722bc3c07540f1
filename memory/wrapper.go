package memory

import (
	"github.com/tetratelabs/wazero/api"

	koolrt "github.com/wippyai/kool-runtime"
	"github.com/wippyai/kool-runtime/errors"
)

// Wrap wraps a wazero api.Memory to implement koolrt.GrowableMemory.
func Wrap(mem api.Memory) koolrt.GrowableMemory {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

// Wrapper adapts wazero api.Memory to the koolrt memory interfaces.
type Wrapper struct {
	Mem api.Memory
}

// Read returns a view of guest memory. The slice aliases linear memory and
// is invalidated by Grow.
func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseRecord, offset, length, m.Mem.Size())
	}
	return data, nil
}

// Write writes bytes to memory.
func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseRecord, offset, uint32(len(data)), m.Mem.Size())
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Wrapper) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseRecord, offset, 1, m.Mem.Size())
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Wrapper) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseRecord, offset, 4, m.Mem.Size())
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Wrapper) WriteU8(offset uint32, value uint8) error {
	if !m.Mem.WriteByte(offset, value) {
		return errors.OutOfBounds(errors.PhaseRecord, offset, 1, m.Mem.Size())
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Wrapper) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseRecord, offset, 4, m.Mem.Size())
	}
	return nil
}

// Size returns the memory size in bytes.
func (m *Wrapper) Size() uint32 {
	return m.Mem.Size()
}

// Grow grows memory by deltaPages, honoring the module's maximum.
func (m *Wrapper) Grow(deltaPages uint32) (uint32, bool) {
	return m.Mem.Grow(deltaPages)
}
