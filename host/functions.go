package host

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/kool-runtime/abi"
	"github.com/wippyai/kool-runtime/alloc"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/record"
)

// Host functions report failures by panicking; wazero turns the panic into
// a trap returned from the guest's call.

func (h *Host) functions() map[string]api.GoModuleFunc {
	return map[string]api.GoModuleFunc{
		abi.KoolAlloc:     h.koolAlloc,
		abi.StringAlloc:   h.stringAlloc,
		abi.StringCreate:  h.stringCreate,
		abi.StringConcat:  h.stringConcat,
		abi.StringEquals:  h.stringEquals,
		abi.ArrayAlloc:    h.arrayAlloc,
		abi.PrintlnInt:    h.printlnInt,
		abi.PrintlnString: h.printlnString,
		abi.PrintlnBool:   h.printlnBool,
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func (h *Host) koolAlloc(ctx context.Context, mod api.Module, stack []uint64) {
	size := api.DecodeI32(stack[0])
	if size < 0 {
		panic(errors.NegativeLength(errors.PhaseHost, "allocation", size))
	}
	heap := h.mustHeap(ctx, mod)
	stack[0] = api.EncodeU32(alloc.Allocate(heap.Allocator(), uint32(size)))
}

func (h *Host) stringAlloc(ctx context.Context, mod api.Module, stack []uint64) {
	heap := h.mustHeap(ctx, mod)
	t := must(heap.AllocText(api.DecodeI32(stack[0])))
	stack[0] = api.EncodeU32(uint32(t))
}

func (h *Host) stringCreate(ctx context.Context, mod api.Module, stack []uint64) {
	heap := h.mustHeap(ctx, mod)
	t := must(heap.CreateText(api.DecodeU32(stack[0])))
	stack[0] = api.EncodeU32(uint32(t))
}

func (h *Host) stringConcat(ctx context.Context, mod api.Module, stack []uint64) {
	heap := h.mustHeap(ctx, mod)
	a, b := record.Text(api.DecodeU32(stack[0])), record.Text(api.DecodeU32(stack[1]))
	stack[0] = api.EncodeU32(uint32(must(heap.Concat(a, b))))
}

func (h *Host) stringEquals(ctx context.Context, mod api.Module, stack []uint64) {
	heap := h.mustHeap(ctx, mod)
	a, b := record.Text(api.DecodeU32(stack[0])), record.Text(api.DecodeU32(stack[1]))
	if must(heap.Equal(a, b)) {
		stack[0] = api.EncodeI32(1)
	} else {
		stack[0] = api.EncodeI32(0)
	}
}

func (h *Host) arrayAlloc(ctx context.Context, mod api.Module, stack []uint64) {
	heap := h.mustHeap(ctx, mod)
	a := must(heap.AllocArray(api.DecodeI32(stack[0])))
	stack[0] = api.EncodeU32(uint32(a))
}

func (h *Host) printlnInt(_ context.Context, _ api.Module, stack []uint64) {
	h.printer.PrintInt(api.DecodeI32(stack[0]))
}

func (h *Host) printlnString(ctx context.Context, mod api.Module, stack []uint64) {
	heap := h.mustHeap(ctx, mod)
	if err := h.printer.PrintText(heap, record.Text(api.DecodeU32(stack[0]))); err != nil {
		panic(err)
	}
}

func (h *Host) printlnBool(_ context.Context, _ api.Module, stack []uint64) {
	h.printer.PrintBool(api.DecodeI32(stack[0]) != 0)
}
