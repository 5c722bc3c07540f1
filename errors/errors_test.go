package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseLink,
				Kind:   KindTypeMismatch,
				Path:   []string{"kool", "string_concat"},
				Want:   "(i32, i32) -> i32",
				Got:    "(i32) -> i32",
				Detail: "import signature does not match runtime",
			},
			contains: []string{"[link]", "type_mismatch", "kool.string_concat", "want (i32, i32) -> i32", "got (i32) -> i32", " - import signature"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRecord,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[record]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseAlloc,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[alloc]", "allocation", ": memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseAlloc,
		Kind:  KindAllocation,
		Path:  []string{"heap"},
	}

	if !err.Is(&Error{Phase: PhaseAlloc, Kind: KindAllocation}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseRecord, Kind: KindAllocation}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseAlloc, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}
	if !err.Is(&Error{Kind: KindAllocation}) {
		t.Error("empty phase should match any phase")
	}

	wrapped := Wrap(PhaseRuntime, KindTerminated, err, "call main")
	if !errors.Is(wrapped, &Error{Kind: KindAllocation}) {
		t.Error("errors.Is should find allocation kind through the cause chain")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseLink, KindTypeMismatch).
		Path("kool", "println_int").
		Want("(i32) -> ()").
		Got("(i64) -> ()").
		Value(42).
		Cause(cause).
		Detail("param %d is %s", 0, "i64").
		Build()

	if err.Phase != PhaseLink {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseLink)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "kool" || err.Path[1] != "println_int" {
		t.Errorf("Path = %v, want [kool println_int]", err.Path)
	}
	if err.Want != "(i32) -> ()" {
		t.Errorf("Want = %v", err.Want)
	}
	if err.Got != "(i64) -> ()" {
		t.Errorf("Got = %v", err.Got)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "param 0 is i64" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(1024, errors.New("grow refused"))
		if err.Kind != KindAllocation || err.Phase != PhaseAlloc {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
		if err.Value != uint32(1024) {
			t.Errorf("Value = %v", err.Value)
		}
	})

	t.Run("NegativeLength", func(t *testing.T) {
		err := NegativeLength(PhaseRecord, "text", -3)
		if err.Kind != KindInvalidInput {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !strings.Contains(err.Error(), "negative text length -3") {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseRecord, 65534, 4, 65536)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != uint32(65534) {
			t.Errorf("Value = %v", err.Value)
		}
	})

	t.Run("IndexOutOfBounds", func(t *testing.T) {
		err := IndexOutOfBounds(PhaseRecord, 10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !strings.Contains(err.Detail, "index 10") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("SignatureMismatch", func(t *testing.T) {
		err := SignatureMismatch("kool", "string_equals", "(i32, i32) -> i32", "() -> ()")
		if err.Phase != PhaseLink || err.Kind != KindTypeMismatch {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		err := InvalidConfig([]string{"heap", "limit"}, "bad size", nil)
		if !strings.Contains(err.Error(), "heap.limit") {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("Trap", func(t *testing.T) {
		cause := errors.New("wasm error: unreachable")
		err := Trap("main", cause)
		if !Is(err, &Error{Kind: KindTrap}) || !Is(err, cause) {
			t.Error("should match trap kind and keep the cause")
		}
		if !strings.Contains(err.Error(), "at main") {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("Terminated", func(t *testing.T) {
		cause := AllocationFailed(8, nil)
		err := Terminated(cause)
		if !errors.Is(err, &Error{Kind: KindTerminated}) {
			t.Error("should be terminated")
		}
		if !errors.Is(err, &Error{Kind: KindAllocation}) {
			t.Error("should keep the allocation cause")
		}
	})
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError([]string{"kool#string_reverse"})
		if len(err.Imports) != 1 {
			t.Fatalf("expected 1 import, got %d", len(err.Imports))
		}
		if err.Imports[0].Namespace != "kool" {
			t.Errorf("namespace = %q, want kool", err.Imports[0].Namespace)
		}
		if err.Imports[0].Function != "string_reverse" {
			t.Errorf("function = %q, want string_reverse", err.Imports[0].Function)
		}
	})

	t.Run("grouped and sorted", func(t *testing.T) {
		err := NewMissingImportsError([]string{
			"kool#zzz",
			"env#abort",
			"kool#aaa",
		})
		msg := err.Error()
		if !strings.Contains(msg, "missing 3 host function(s)") {
			t.Errorf("message = %q", msg)
		}
		if strings.Index(msg, "aaa") > strings.Index(msg, "zzz") {
			t.Errorf("functions should be sorted within a namespace: %q", msg)
		}
		if !strings.Contains(msg, "env:") || !strings.Contains(msg, "kool:") {
			t.Errorf("namespaces missing: %q", msg)
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		msg := NewMissingImportsError(nil).Error()
		if !strings.Contains(msg, "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", msg)
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError([]string{"ns#fn"})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
		if !errors.Is(err, &Error{Kind: KindMissingImport}) {
			t.Error("errors.Is should match missing_import kind")
		}
	})
}
