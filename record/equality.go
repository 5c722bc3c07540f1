package record

import (
	"fmt"
	"strings"

	"github.com/wippyai/kool-runtime/errors"
)

// EqualityMode selects how text records are compared.
type EqualityMode int

const (
	// EqualityTerminator compares content up to the first terminator of each
	// record and ignores the size headers. This is what compiled programs
	// have always observed.
	EqualityTerminator EqualityMode = iota
	// EqualitySized requires equal sizes and equal size-long content.
	EqualitySized
)

func (m EqualityMode) String() string {
	switch m {
	case EqualityTerminator:
		return "terminator"
	case EqualitySized:
		return "sized"
	default:
		return fmt.Sprintf("EqualityMode(%d)", int(m))
	}
}

// ParseEqualityMode accepts "terminator" or "sized". An empty string selects
// the default.
func ParseEqualityMode(s string) (EqualityMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "terminator":
		return EqualityTerminator, nil
	case "sized":
		return EqualitySized, nil
	default:
		return 0, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Want("terminator or sized").
			Got(s).
			Detail("unknown equality mode").
			Build()
	}
}
