package record

import (
	"bytes"
	"math"
	"strings"

	koolrt "github.com/wippyai/kool-runtime"
	"github.com/wippyai/kool-runtime/alloc"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/layout"
)

// Text is the address of a text record.
type Text uint32

// Array is the address of an array record.
type Array uint32

// Heap builds and reads records in one linear memory.
// Heap is not safe for concurrent use.
type Heap struct {
	mem      koolrt.Memory
	alloc    koolrt.Allocator
	equality EqualityMode
}

// Option configures a Heap.
type Option func(*Heap)

// WithEquality selects how Equal compares text records.
func WithEquality(mode EqualityMode) Option {
	return func(h *Heap) {
		h.equality = mode
	}
}

func NewHeap(mem koolrt.Memory, a koolrt.Allocator, opts ...Option) *Heap {
	h := &Heap{
		mem:   mem,
		alloc: a,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Heap) Memory() koolrt.Memory {
	return h.mem
}

func (h *Heap) Allocator() koolrt.Allocator {
	return h.alloc
}

func (h *Heap) Equality() EqualityMode {
	return h.equality
}

// AllocText allocates a text record of the given length. The content units
// are left as the allocator returned them; the terminator is written so the
// record is terminator-delimited even before the caller fills it.
func (h *Heap) AllocText(length int32) (Text, error) {
	addr, err := h.allocRecord(layout.KindText, length)
	if err != nil {
		return 0, err
	}
	if err := h.mem.WriteU8(layout.TextTerminator(addr, length), layout.Terminator); err != nil {
		return 0, err
	}
	return Text(addr), nil
}

// allocRecord allocates the footprint of a record and writes its size
// header.
func (h *Heap) allocRecord(kind layout.Kind, length int32) (uint32, error) {
	info, ok := layout.Calc(kind, length)
	if !ok {
		if length < 0 {
			return 0, errors.NegativeLength(errors.PhaseRecord, kind.String(), length)
		}
		return 0, errors.Overflow(errors.PhaseRecord, length, kind.String()+" record")
	}
	addr := alloc.Allocate(h.alloc, info.Size)
	if err := h.mem.WriteU32(addr, uint32(info.Length)); err != nil {
		return 0, err
	}
	return addr, nil
}

// CreateText copies the terminator-delimited units at raw into a new record.
func (h *Heap) CreateText(raw uint32) (Text, error) {
	length, err := h.scan(raw)
	if err != nil {
		return 0, err
	}
	t, err := h.AllocText(length)
	if err != nil {
		return 0, err
	}
	// Re-read after allocating: growing memory invalidates earlier views.
	if err := h.copyWithin(layout.TextPayload(uint32(t)), raw, uint32(length)+layout.TerminatorSize); err != nil {
		return 0, err
	}
	return t, nil
}

// CreateTextFrom builds a record from a host string, stopping at its first NUL.
func (h *Heap) CreateTextFrom(s string) (Text, error) {
	if i := strings.IndexByte(s, layout.Terminator); i >= 0 {
		s = s[:i]
	}
	if len(s) > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseRecord, len(s), "text record")
	}
	t, err := h.AllocText(int32(len(s)))
	if err != nil {
		return 0, err
	}
	if err := h.mem.Write(layout.TextPayload(uint32(t)), []byte(s)); err != nil {
		return 0, err
	}
	return t, nil
}

// Concat returns a new record holding a's content followed by b's content.
// The result's terminator is b's.
func (h *Heap) Concat(a, b Text) (Text, error) {
	sa, err := h.Size(a)
	if err != nil {
		return 0, err
	}
	sb, err := h.Size(b)
	if err != nil {
		return 0, err
	}
	sum := int64(sa) + int64(sb)
	if sum > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseRecord, sum, "text record")
	}

	r, err := h.AllocText(int32(sum))
	if err != nil {
		return 0, err
	}
	dst := layout.TextPayload(uint32(r))
	if err := h.copyWithin(dst, layout.TextPayload(uint32(a)), uint32(sa)); err != nil {
		return 0, err
	}
	if err := h.copyWithin(dst+uint32(sa), layout.TextPayload(uint32(b)), uint32(sb)+layout.TerminatorSize); err != nil {
		return 0, err
	}
	return r, nil
}

// Equal compares two text records according to the heap's EqualityMode.
func (h *Heap) Equal(a, b Text) (bool, error) {
	if h.equality == EqualitySized {
		return h.equalSized(a, b)
	}
	ca, err := h.content(a)
	if err != nil {
		return false, err
	}
	cb, err := h.content(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}

func (h *Heap) equalSized(a, b Text) (bool, error) {
	sa, err := h.Size(a)
	if err != nil {
		return false, err
	}
	sb, err := h.Size(b)
	if err != nil {
		return false, err
	}
	if sa != sb {
		return false, nil
	}
	ca, err := h.mem.Read(layout.TextPayload(uint32(a)), uint32(sa))
	if err != nil {
		return false, err
	}
	cb, err := h.mem.Read(layout.TextPayload(uint32(b)), uint32(sb))
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}

// Size returns the declared size of a text record.
func (h *Heap) Size(t Text) (int32, error) {
	v, err := h.mem.ReadU32(uint32(t))
	if err != nil {
		return 0, err
	}
	size := int32(v)
	if size < 0 {
		return 0, errors.NegativeLength(errors.PhaseRecord, "text", size)
	}
	return size, nil
}

// Bytes returns a copy of the terminator-delimited content of t.
func (h *Heap) Bytes(t Text) ([]byte, error) {
	c, err := h.content(t)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(c), nil
}

// String returns the terminator-delimited content of t.
func (h *Heap) String(t Text) (string, error) {
	c, err := h.content(t)
	if err != nil {
		return "", err
	}
	return string(c), nil
}

// content returns a view of the units of t up to the first terminator.
// The terminator is expected at the declared size; when it was overwritten
// the scan continues to the end of memory.
func (h *Heap) content(t Text) ([]byte, error) {
	size, err := h.Size(t)
	if err != nil {
		return nil, err
	}
	payload := layout.TextPayload(uint32(t))
	window, err := h.mem.Read(payload, uint32(size)+layout.TerminatorSize)
	if err != nil {
		return nil, err
	}
	if i := bytes.IndexByte(window, layout.Terminator); i >= 0 {
		return window[:i], nil
	}
	n, err := h.scan(payload)
	if err != nil {
		return nil, err
	}
	return h.mem.Read(payload, uint32(n))
}

// scan returns the distance from addr to the first terminator unit.
func (h *Heap) scan(addr uint32) (int32, error) {
	memSize := h.mem.Size()
	if addr >= memSize {
		return 0, errors.OutOfBounds(errors.PhaseRecord, addr, 1, memSize)
	}
	rest, err := h.mem.Read(addr, memSize-addr)
	if err != nil {
		return 0, err
	}
	i := bytes.IndexByte(rest, layout.Terminator)
	if i < 0 {
		return 0, errors.New(errors.PhaseRecord, errors.KindOutOfBounds).
			Detail("no terminator after address %d", addr).
			Value(addr).
			Build()
	}
	if i > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseRecord, i, "text record")
	}
	return int32(i), nil
}

func (h *Heap) copyWithin(dst, src, n uint32) error {
	if n == 0 {
		return nil
	}
	data, err := h.mem.Read(src, n)
	if err != nil {
		return err
	}
	return h.mem.Write(dst, data)
}
