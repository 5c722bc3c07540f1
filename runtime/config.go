package runtime

import (
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/kool-runtime/abi"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/record"
)

// AllocatorMode selects where instance heaps get their memory.
type AllocatorMode string

const (
	// AllocatorArena bump-allocates after the guest's static data.
	AllocatorArena AllocatorMode = "arena"
	// AllocatorGuest calls an allocator exported by the guest.
	AllocatorGuest AllocatorMode = "guest"
)

// DefaultGuestExport is the allocator export used in guest mode when none is
// configured.
const DefaultGuestExport = "GC_malloc"

// Config holds runtime settings. The zero value is usable.
type Config struct {
	// Output receives printed values. nil means os.Stdout.
	Output io.Writer

	// Metrics registers allocator metrics when set.
	Metrics prometheus.Registerer

	// HostModule is the import module name. Empty means "kool".
	HostModule string

	// Allocator is the heap mode. Empty means arena.
	Allocator AllocatorMode

	// GuestExport names the guest allocator in guest mode.
	GuestExport string

	// HeapLimit caps the bytes an arena hands out per instance. 0 is no cap.
	HeapLimit uint64

	// MemoryLimitPages caps every linear memory. 0 means the wazero default.
	MemoryLimitPages uint32

	// Equality selects how string_equals compares records.
	Equality record.EqualityMode
}

// ParseAllocatorMode accepts "arena", "guest" and "guest:<export>". The
// export is returned separately and is empty when not given.
func ParseAllocatorMode(s string) (AllocatorMode, string, error) {
	mode, export, _ := strings.Cut(strings.TrimSpace(s), ":")
	switch AllocatorMode(strings.ToLower(mode)) {
	case "", AllocatorArena:
		if export != "" {
			return "", "", errors.InvalidInput(errors.PhaseConfig, "arena allocator takes no export name")
		}
		return AllocatorArena, "", nil
	case AllocatorGuest:
		return AllocatorGuest, export, nil
	default:
		return "", "", errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Want("arena or guest").
			Got(s).
			Detail("unknown allocator mode").
			Build()
	}
}

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.HostModule == "" {
		out.HostModule = abi.ModuleName
	}
	if out.Allocator == "" {
		out.Allocator = AllocatorArena
	}
	if out.Allocator == AllocatorGuest && out.GuestExport == "" {
		out.GuestExport = DefaultGuestExport
	}
	return out
}

func (c *Config) validate() error {
	switch c.Allocator {
	case AllocatorArena, AllocatorGuest:
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("heap", "allocator").
			Want("arena or guest").
			Got(string(c.Allocator)).
			Build()
	}
	if c.Allocator == AllocatorGuest && c.HeapLimit > 0 {
		return errors.InvalidConfig([]string{"heap", "limit"}, "a heap limit applies to the arena allocator only", nil)
	}
	return nil
}
