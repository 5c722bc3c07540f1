package alloc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tetratelabs/wazero/api"

	koolrt "github.com/wippyai/kool-runtime"
	kerrors "github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/memory"
)

var errAllocation = &kerrors.Error{Kind: kerrors.KindAllocation}

func TestArena_Alignment(t *testing.T) {
	a := NewArena(memory.NewBuffer(1, 0), 13, 0)

	tests := []struct {
		size uint32
		want uint32
	}{
		{5, 16},
		{0, 24},
		{4, 24},
		{1, 28},
		{9, 32},
	}
	for _, tt := range tests {
		got, err := a.Alloc(tt.size)
		if err != nil {
			t.Fatalf("Alloc(%d): %v", tt.size, err)
		}
		if got != tt.want {
			t.Errorf("Alloc(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}

	st := a.Stats()
	if st.Count != 5 || st.Bytes != 19 || st.Base != 16 || st.Next != 41 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestArena_NeverReturnsZero(t *testing.T) {
	a := NewArena(memory.NewBuffer(1, 0), 0, 0)
	ptr, err := a.Alloc(0)
	if err != nil {
		t.Fatal(err)
	}
	if ptr == 0 {
		t.Error("zero-size allocation returned a null handle")
	}
}

func TestArena_GrowsMemory(t *testing.T) {
	mem := memory.NewBuffer(1, 4)
	a := NewArena(mem, koolrt.PageSize, 0)

	ptr, err := a.Alloc(koolrt.PageSize + 10)
	if err != nil {
		t.Fatal(err)
	}
	if ptr != koolrt.PageSize {
		t.Errorf("ptr = %d, want %d", ptr, koolrt.PageSize)
	}
	if mem.Size() != 3*koolrt.PageSize {
		t.Errorf("memory size = %d, want 3 pages", mem.Size())
	}
	if err := mem.WriteU8(ptr+koolrt.PageSize+9, 1); err != nil {
		t.Errorf("last byte of the block is not addressable: %v", err)
	}
}

func TestArena_Exhaustion(t *testing.T) {
	t.Run("memory max", func(t *testing.T) {
		a := NewArena(memory.NewBuffer(1, 1), 1024, 0)
		_, err := a.Alloc(koolrt.PageSize)
		if !errors.Is(err, errAllocation) {
			t.Fatalf("expected allocation error, got %v", err)
		}
	})

	t.Run("byte limit", func(t *testing.T) {
		a := NewArena(memory.NewBuffer(1, 0), 1024, 100)
		if _, err := a.Alloc(60); err != nil {
			t.Fatal(err)
		}
		if _, err := a.Alloc(40); err != nil {
			t.Fatal(err)
		}
		if _, err := a.Alloc(1); !errors.Is(err, errAllocation) {
			t.Fatalf("expected allocation error, got %v", err)
		}
	})
}

type failingAllocator struct{ err error }

func (f failingAllocator) Alloc(uint32) (uint32, error) { return 0, f.err }

type nullAllocator struct{}

func (nullAllocator) Alloc(uint32) (uint32, error) { return 0, nil }

func recoverError(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		var ok bool
		if err, ok = r.(error); !ok {
			t.Fatalf("panic value %v is not an error", r)
		}
	}()
	fn()
	return nil
}

func TestAllocate(t *testing.T) {
	a := NewArena(memory.NewBuffer(1, 0), 64, 0)
	if ptr := Allocate(a, 12); ptr != 64 {
		t.Errorf("Allocate = %d, want 64", ptr)
	}
	if ptr := Allocate(a, 0); ptr == 0 {
		t.Error("zero-size Allocate returned null")
	}

	t.Run("foreign error becomes allocation error", func(t *testing.T) {
		cause := fmt.Errorf("collector gone")
		err := recoverError(t, func() { Allocate(failingAllocator{cause}, 8) })
		if !errors.Is(err, errAllocation) {
			t.Errorf("got %v", err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("cause lost: %v", err)
		}
	})

	t.Run("null handle", func(t *testing.T) {
		err := recoverError(t, func() { Allocate(nullAllocator{}, 8) })
		if !errors.Is(err, errAllocation) {
			t.Errorf("got %v", err)
		}
	})
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	arena := NewArena(memory.NewBuffer(1, 1), koolrt.PageSize-16, 0)
	a := Instrument("test", arena, m)

	for _, size := range []uint32{4, 8} {
		if _, err := a.Alloc(size); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := a.Alloc(1024); err == nil {
		t.Fatal("expected exhaustion")
	}

	if got := testutil.ToFloat64(m.allocations.WithLabelValues("test")); got != 2 {
		t.Errorf("allocations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.bytes.WithLabelValues("test")); got != 12 {
		t.Errorf("bytes = %v, want 12", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("test")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}

	sp, ok := a.(StatsProvider)
	if !ok {
		t.Fatal("instrumented allocator should expose stats")
	}
	if st := sp.Stats(); st.Count != 2 || st.Bytes != 12 {
		t.Errorf("Stats = %+v", st)
	}

	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Errorf("GatherAndCount = %d, %v", n, err)
	}
}

type ctxKey struct{}

// mallocFunc stands in for a guest export and records the context of each call.
type mallocFunc struct {
	api.Function
	next uint32
	seen []any
}

func (f *mallocFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	f.seen = append(f.seen, ctx.Value(ctxKey{}))
	ptr := f.next
	f.next += uint32(params[0])
	return []uint64{uint64(ptr)}, nil
}

func TestGuest_SetContext(t *testing.T) {
	fn := &mallocFunc{next: 1024}
	g := WrapGuest(context.WithValue(context.Background(), ctxKey{}, "bind"), fn)
	a := Instrument("guest", g, NewMetrics(prometheus.NewRegistry()))

	if _, err := a.Alloc(8); err != nil {
		t.Fatal(err)
	}
	cs, ok := a.(ContextSetter)
	if !ok {
		t.Fatal("instrumented allocator should forward the context")
	}
	cs.SetContext(context.WithValue(context.Background(), ctxKey{}, "call"))
	if _, err := a.Alloc(8); err != nil {
		t.Fatal(err)
	}

	if len(fn.seen) != 2 || fn.seen[0] != "bind" || fn.seen[1] != "call" {
		t.Errorf("contexts seen %v, want [bind call]", fn.seen)
	}
	if g.Context().Value(ctxKey{}) != "call" {
		t.Error("guest kept the binding context")
	}
	if WrapGuest(context.Background(), nil) != nil {
		t.Error("nil export should give a nil allocator")
	}
}
