package wasm

import (
	"github.com/wippyai/kool-runtime/wasm/internal/binary"
)

// Code builds a function body one instruction at a time.
//
//	body := wasm.NewCode().
//		I32Const(-42).
//		Call(printInt).
//		End().
//		Body()
type Code struct {
	locals []LocalEntry
	buf    []byte
}

func NewCode() *Code {
	return &Code{}
}

// Locals declares n additional i32 locals after the parameters.
func (c *Code) Locals(n uint32) *Code {
	if n > 0 {
		c.locals = append(c.locals, LocalEntry{Count: n, ValType: ValI32})
	}
	return c
}

func (c *Code) op(b byte) *Code {
	c.buf = append(c.buf, b)
	return c
}

func (c *Code) opU32(b byte, v uint32) *Code {
	c.buf = append(c.buf, b)
	c.buf = binary.AppendU32(c.buf, v)
	return c
}

// memarg emits alignment (as a power of two) and offset.
func (c *Code) memarg(b byte, align, offset uint32) *Code {
	c.buf = append(c.buf, b)
	c.buf = binary.AppendU32(c.buf, align)
	c.buf = binary.AppendU32(c.buf, offset)
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.buf = append(c.buf, OpI32Const)
	c.buf = binary.AppendS32(c.buf, v)
	return c
}

func (c *Code) LocalGet(idx uint32) *Code  { return c.opU32(OpLocalGet, idx) }
func (c *Code) LocalSet(idx uint32) *Code  { return c.opU32(OpLocalSet, idx) }
func (c *Code) GlobalGet(idx uint32) *Code { return c.opU32(OpGlobalGet, idx) }
func (c *Code) GlobalSet(idx uint32) *Code { return c.opU32(OpGlobalSet, idx) }
func (c *Code) Call(fn uint32) *Code       { return c.opU32(OpCall, fn) }

func (c *Code) I32Load(offset uint32) *Code   { return c.memarg(OpI32Load, 2, offset) }
func (c *Code) I32Load8U(offset uint32) *Code { return c.memarg(OpI32Load8U, 0, offset) }
func (c *Code) I32Store(offset uint32) *Code  { return c.memarg(OpI32Store, 2, offset) }
func (c *Code) I32Store8(offset uint32) *Code { return c.memarg(OpI32Store8, 0, offset) }

func (c *Code) I32Eqz() *Code      { return c.op(OpI32Eqz) }
func (c *Code) I32Eq() *Code       { return c.op(OpI32Eq) }
func (c *Code) I32Add() *Code      { return c.op(OpI32Add) }
func (c *Code) I32Sub() *Code      { return c.op(OpI32Sub) }
func (c *Code) I32And() *Code      { return c.op(OpI32And) }
func (c *Code) I32GtU() *Code      { return c.op(OpI32GtU) }
func (c *Code) Drop() *Code        { return c.op(OpDrop) }
func (c *Code) Return() *Code      { return c.op(OpReturn) }
func (c *Code) Unreachable() *Code { return c.op(OpUnreachable) }
func (c *Code) Else() *Code        { return c.op(OpElse) }
func (c *Code) End() *Code         { return c.op(OpEnd) }

// If opens a block without results; close it with End.
func (c *Code) If() *Code {
	c.buf = append(c.buf, OpIf, BlockEmpty)
	return c
}

// IfI32 opens a block producing one i32.
func (c *Code) IfI32() *Code {
	c.buf = append(c.buf, OpIf, byte(ValI32))
	return c
}

// Bytes returns the instructions written so far.
func (c *Code) Bytes() []byte {
	return c.buf
}

// Body returns a FuncBody. The caller must have emitted the final End.
func (c *Code) Body() FuncBody {
	return FuncBody{Locals: c.locals, Code: c.buf}
}
