package config

import (
	"bytes"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	koolrt "github.com/wippyai/kool-runtime"
	"github.com/wippyai/kool-runtime/abi"
	"github.com/wippyai/kool-runtime/errors"
	"github.com/wippyai/kool-runtime/record"
	"github.com/wippyai/kool-runtime/runtime"
)

// Config is the koolrun configuration file.
type Config struct {
	Host    Host    `yaml:"host"`
	Memory  Memory  `yaml:"memory"`
	Heap    Heap    `yaml:"heap"`
	Strings Strings `yaml:"strings"`
	Logging Logging `yaml:"logging"`
}

// Host names the import module programs link against.
type Host struct {
	Module string `yaml:"module"`
}

// Memory bounds every linear memory. A zero limit keeps wazero's default.
type Memory struct {
	Limit Size `yaml:"limit"`
}

// Heap selects the record allocator.
type Heap struct {
	Allocator string `yaml:"allocator"` // arena or guest
	Export    string `yaml:"export"`    // guest allocator export
	Limit     Size   `yaml:"limit"`     // arena byte cap, 0 for none
}

type Strings struct {
	Equality string `yaml:"equality"` // terminator or sized
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Host: Host{Module: abi.ModuleName},
		Heap: Heap{
			Allocator: string(runtime.AllocatorArena),
			Export:    runtime.DefaultGuestExport,
		},
		Strings: Strings{Equality: record.EqualityTerminator.String()},
		Logging: Logging{Level: "warn", Format: "console"},
	}
}

// Load reads and validates a YAML file. Keys absent from the file keep
// their default values; unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidConfig(nil, "read "+path, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.InvalidConfig(nil, "parse yaml", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host.Module) == "" {
		return errors.InvalidConfig([]string{"host", "module"}, "must not be empty", nil)
	}
	if _, err := c.memoryPages(); err != nil {
		return err
	}
	mode, _, err := runtime.ParseAllocatorMode(c.Heap.Allocator)
	if err != nil {
		return errors.InvalidConfig([]string{"heap", "allocator"}, "unknown allocator", err)
	}
	if mode == runtime.AllocatorGuest {
		if c.Heap.Limit > 0 {
			return errors.InvalidConfig([]string{"heap", "limit"}, "only the arena allocator takes a limit", nil)
		}
		if c.guestExport() == "" {
			return errors.InvalidConfig([]string{"heap", "export"}, "guest allocator needs an export name", nil)
		}
	}
	if _, err := record.ParseEqualityMode(c.Strings.Equality); err != nil {
		return errors.InvalidConfig([]string{"strings", "equality"}, "unknown mode", err)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return errors.InvalidConfig([]string{"logging", "format"}, "want console or json", nil)
	}
	return nil
}

// guestExport honors both "guest:<name>" and heap.export, the former first.
func (c *Config) guestExport() string {
	if _, export, err := runtime.ParseAllocatorMode(c.Heap.Allocator); err == nil && export != "" {
		return export
	}
	return c.Heap.Export
}

func (c *Config) memoryPages() (uint32, error) {
	limit := c.Memory.Limit.Bytes()
	if limit == 0 {
		return 0, nil
	}
	pages := (limit + koolrt.PageSize - 1) / koolrt.PageSize
	if pages > 65536 {
		return 0, errors.InvalidConfig([]string{"memory", "limit"}, "exceeds the 4GiB address space", nil)
	}
	return uint32(pages), nil
}

// LogLevel parses logging.level.
func (c *Config) LogLevel() (zapcore.Level, error) {
	if c.Logging.Level == "" {
		return zapcore.WarnLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return 0, errors.InvalidConfig([]string{"logging", "level"}, "unknown level", err)
	}
	return lvl, nil
}

// Runtime converts the file settings into a runtime.Config. Output and
// metrics are left for the caller.
func (c *Config) Runtime() (*runtime.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	pages, _ := c.memoryPages()
	mode, _, _ := runtime.ParseAllocatorMode(c.Heap.Allocator)
	eq, _ := record.ParseEqualityMode(c.Strings.Equality)

	rc := &runtime.Config{
		HostModule:       c.Host.Module,
		Allocator:        mode,
		MemoryLimitPages: pages,
		Equality:         eq,
	}
	if mode == runtime.AllocatorGuest {
		rc.GuestExport = c.guestExport()
	} else {
		rc.HeapLimit = c.Heap.Limit.Bytes()
	}
	return rc, nil
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
