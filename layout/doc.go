// Package layout defines the binary layout of kool heap records.
//
// Two record shapes exist, both a 32-bit signed size header followed by an
// inline payload with no padding:
//
//	text:   +0 size (i32 LE) | +4 size content bytes | +4+size 0x00
//	array:  +0 size (i32 LE) | +4+4*i element i (i32 LE)
//
// The terminator byte of a text record is never counted in size. A record is
// addressed by the offset of its header. Generated code reads records with
// plain loads at these offsets, so any change here is an ABI break.
//
// # Usage
//
//	n, ok := layout.TextRecordSize(5) // 10
//	rec := layout.EncodeText("Hello")  // 05 00 00 00 'H' 'e' 'l' 'l' 'o' 00
package layout
