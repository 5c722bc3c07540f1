package layout

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"github.com/wippyai/kool-runtime/errors"
)

const (
	HeaderSize     = 4 // i32 size field
	TextUnitSize   = 1
	TerminatorSize = 1
	ArrayElemSize  = 4
	Align          = 4

	Terminator byte = 0
)

// Kind identifies a record shape.
type Kind uint8

const (
	KindText Kind = iota + 1
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Info describes the footprint of a record of a given length.
type Info struct {
	Kind   Kind
	Length int32
	Size   uint32 // bytes including header and terminator
}

// Calc returns the footprint of a record. ok is false for negative lengths
// and for records that do not fit a 32-bit address space.
func Calc(kind Kind, length int32) (Info, bool) {
	var size uint32
	var ok bool
	switch kind {
	case KindText:
		size, ok = TextRecordSize(length)
	case KindArray:
		size, ok = ArrayRecordSize(length)
	}
	return Info{Kind: kind, Length: length, Size: size}, ok
}

// TextRecordSize returns header + length units + terminator.
func TextRecordSize(length int32) (uint32, bool) {
	if length < 0 {
		return 0, false
	}
	return fit(HeaderSize + uint64(length)*TextUnitSize + TerminatorSize)
}

// ArrayRecordSize returns header + length elements.
func ArrayRecordSize(length int32) (uint32, bool) {
	if length < 0 {
		return 0, false
	}
	return fit(HeaderSize + uint64(length)*ArrayElemSize)
}

func fit(n uint64) (uint32, bool) {
	if n > math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

// TextPayload returns the address of the first content unit.
func TextPayload(addr uint32) uint32 {
	return addr + HeaderSize
}

// TextTerminator returns the address of the terminator unit.
func TextTerminator(addr uint32, size int32) uint32 {
	return addr + HeaderSize + uint32(size)*TextUnitSize
}

// ArrayElem returns the address of element i.
func ArrayElem(addr uint32, i int32) uint32 {
	return addr + HeaderSize + uint32(i)*ArrayElemSize
}

// AlignUp rounds n up to the record alignment.
func AlignUp(n uint32) uint32 {
	return (n + Align - 1) &^ (Align - 1)
}

// EncodeText returns the complete record for s. Content stops at the first
// NUL in s, as it would for string_create.
func EncodeText(s string) []byte {
	return AppendText(nil, s)
}

// AppendText appends the record for s to dst.
func AppendText(dst []byte, s string) []byte {
	if i := strings.IndexByte(s, Terminator); i >= 0 {
		s = s[:i]
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(int32(len(s))))
	dst = append(dst, s...)
	return append(dst, Terminator)
}

// EncodeRaw returns s as terminator-delimited raw units, the input shape of
// string_create.
func EncodeRaw(s string) []byte {
	if i := strings.IndexByte(s, Terminator); i >= 0 {
		s = s[:i]
	}
	out := make([]byte, 0, len(s)+TerminatorSize)
	out = append(out, s...)
	return append(out, Terminator)
}

// EncodeArray returns the complete record for values.
func EncodeArray(values []int32) []byte {
	out := make([]byte, 0, HeaderSize+len(values)*ArrayElemSize)
	out = binary.LittleEndian.AppendUint32(out, uint32(int32(len(values))))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	}
	return out
}

// DecodeText reads a text record from the start of b and returns its
// terminator-delimited content and declared size.
func DecodeText(b []byte) ([]byte, int32, error) {
	if len(b) < HeaderSize {
		return nil, 0, errors.InvalidInput(errors.PhaseRecord, "text record shorter than header")
	}
	size := int32(binary.LittleEndian.Uint32(b))
	if size < 0 {
		return nil, size, errors.NegativeLength(errors.PhaseRecord, "text", size)
	}
	payload := b[HeaderSize:]
	if uint64(len(payload)) < uint64(size)+TerminatorSize {
		return nil, size, errors.New(errors.PhaseRecord, errors.KindOutOfBounds).
			Detail("text record of size %d truncated to %d payload bytes", size, len(payload)).
			Build()
	}
	if i := bytes.IndexByte(payload, Terminator); i >= 0 {
		payload = payload[:i]
	}
	return payload, size, nil
}

// DecodeArray reads an array record from the start of b.
func DecodeArray(b []byte) ([]int32, error) {
	if len(b) < HeaderSize {
		return nil, errors.InvalidInput(errors.PhaseRecord, "array record shorter than header")
	}
	size := int32(binary.LittleEndian.Uint32(b))
	if size < 0 {
		return nil, errors.NegativeLength(errors.PhaseRecord, "array", size)
	}
	body := b[HeaderSize:]
	if uint64(len(body)) < uint64(size)*ArrayElemSize {
		return nil, errors.New(errors.PhaseRecord, errors.KindOutOfBounds).
			Detail("array record of size %d truncated to %d bytes", size, len(body)).
			Build()
	}
	out := make([]int32, size)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(body[i*ArrayElemSize:]))
	}
	return out, nil
}
