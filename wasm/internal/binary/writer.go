package binary

import (
	"bytes"
	"encoding/binary"
)

// Writer accumulates a wasm binary encoding.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) Len() int {
	return w.buf.Len()
}

func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *Writer) WriteBytes(data []byte) {
	w.buf.Write(data)
}

// WriteU32 writes an unsigned LEB128 encoded uint32.
func (w *Writer) WriteU32(v uint32) {
	w.buf.Write(AppendU32(nil, v))
}

// WriteS32 writes a signed LEB128 encoded int32.
func (w *Writer) WriteS32(v int32) {
	w.buf.Write(AppendS32(nil, v))
}

// WriteName writes a length-prefixed UTF-8 name.
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf.WriteString(s)
}

// WriteU32LE writes a fixed-width little-endian uint32.
func (w *Writer) WriteU32LE(v uint32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

// Section writes id followed by the size-prefixed body.
func (w *Writer) Section(id byte, body *Writer) {
	w.Byte(id)
	w.WriteU32(uint32(body.Len()))
	w.WriteBytes(body.Bytes())
}

// AppendU32 appends the unsigned LEB128 encoding of v.
func AppendU32(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// AppendS32 appends the signed LEB128 encoding of v.
func AppendS32(dst []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}
