package config

import (
	"strings"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"
)

// Size is a byte count written as "64MB", "512KiB" or a plain number of
// bytes. Units are powers of 1024.
type Size uint64

// ParseSize parses a human-readable byte count.
func ParseSize(s string) (Size, error) {
	s = strings.TrimSpace(s)
	// datasize has no IEC spellings; KiB and KB mean the same there.
	if n := len(s); n >= 3 && (s[n-2:] == "iB" || s[n-2:] == "ib") {
		s = s[:n-2] + "B"
	}
	var b datasize.ByteSize
	if err := b.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return Size(b), nil
}

func (s Size) Bytes() uint64 {
	return uint64(s)
}

func (s Size) String() string {
	return datasize.ByteSize(s).HumanReadable()
}

func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseSize(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Size) MarshalYAML() (any, error) {
	return datasize.ByteSize(s).String(), nil
}
