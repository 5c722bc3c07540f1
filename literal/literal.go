// Package literal lays out static records for a program's data segment.
//
// A code generator adds every literal it needs to a Pool, emits
// Pool.Segment as an active data segment and exports Pool.End as
// __heap_base so the arena allocator starts after the literals.
package literal

import (
	"github.com/wippyai/kool-runtime/layout"
	"github.com/wippyai/kool-runtime/wasm"
)

type entryKind uint8

const (
	kindRaw entryKind = iota
	kindText
	kindArray
)

type key struct {
	data string
	kind entryKind
}

// Pool accumulates interned literals starting at a base address.
// Pool is not safe for concurrent use.
type Pool struct {
	seen map[key]uint32
	data []byte
	base uint32
}

// NewPool creates a pool whose first entry lands at base rounded up to the
// record alignment. A zero base is moved past the null address.
func NewPool(base uint32) *Pool {
	if base < layout.Align {
		base = layout.Align
	}
	return &Pool{
		seen: make(map[key]uint32),
		base: layout.AlignUp(base),
	}
}

// AddRaw adds NUL-terminated units suitable for string_create and returns
// their address.
func (p *Pool) AddRaw(s string) uint32 {
	return p.add(key{data: s, kind: kindRaw}, layout.EncodeRaw(s))
}

// AddText adds a complete text record and returns its address.
func (p *Pool) AddText(s string) uint32 {
	return p.add(key{data: s, kind: kindText}, layout.EncodeText(s))
}

// AddArray adds an array record and returns its address.
func (p *Pool) AddArray(values []int32) uint32 {
	enc := layout.EncodeArray(values)
	return p.add(key{data: string(enc), kind: kindArray}, enc)
}

func (p *Pool) add(k key, enc []byte) uint32 {
	if addr, ok := p.seen[k]; ok {
		return addr
	}
	pad := layout.AlignUp(uint32(len(p.data))) - uint32(len(p.data))
	p.data = append(p.data, make([]byte, pad)...)
	addr := p.base + uint32(len(p.data))
	p.data = append(p.data, enc...)
	p.seen[k] = addr
	return addr
}

// Base is the address of the first entry.
func (p *Pool) Base() uint32 {
	return p.base
}

// Bytes returns the pool image as it will appear in memory at Base.
func (p *Pool) Bytes() []byte {
	return p.data
}

// End returns the first aligned address after the pool.
func (p *Pool) End() uint32 {
	return layout.AlignUp(p.base + uint32(len(p.data)))
}

// Segment returns the pool as an active data segment for memory 0.
func (p *Pool) Segment() wasm.DataSegment {
	return wasm.DataSegment{Offset: p.base, Init: p.data}
}
