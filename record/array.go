package record

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/layout"
)

// AllocArray allocates an array record of length elements. Elements are left
// as the allocator returned them.
func (h *Heap) AllocArray(length int32) (Array, error) {
	addr, err := h.allocRecord(layout.KindArray, length)
	if err != nil {
		return 0, err
	}
	return Array(addr), nil
}

// CreateArray allocates an array record holding values.
func (h *Heap) CreateArray(values []int32) (Array, error) {
	if len(values) > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseRecord, len(values), "array record")
	}
	a, err := h.AllocArray(int32(len(values)))
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return a, nil
	}
	buf := make([]byte, len(values)*layout.ArrayElemSize)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*layout.ArrayElemSize:], uint32(v))
	}
	if err := h.mem.Write(layout.ArrayElem(uint32(a), 0), buf); err != nil {
		return 0, err
	}
	return a, nil
}

// ArrayLen returns the declared size of an array record.
func (h *Heap) ArrayLen(a Array) (int32, error) {
	v, err := h.mem.ReadU32(uint32(a))
	if err != nil {
		return 0, err
	}
	n := int32(v)
	if n < 0 {
		return 0, errors.NegativeLength(errors.PhaseRecord, "array", n)
	}
	return n, nil
}

// ArrayAt returns element i, checked against the record's size.
func (h *Heap) ArrayAt(a Array, i int32) (int32, error) {
	n, err := h.ArrayLen(a)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= n {
		return 0, errors.IndexOutOfBounds(errors.PhaseRecord, i, n)
	}
	v, err := h.mem.ReadU32(layout.ArrayElem(uint32(a), i))
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// ArrayValues returns a copy of all elements.
func (h *Heap) ArrayValues(a Array) ([]int32, error) {
	n, err := h.ArrayLen(a)
	if err != nil {
		return nil, err
	}
	body, err := h.mem.Read(layout.ArrayElem(uint32(a), 0), uint32(n)*layout.ArrayElemSize)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(body[i*layout.ArrayElemSize:]))
	}
	return out, nil
}
