package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Size represent data size in bytes
type Size uint64

// Commonly used size units
const (
	KiB Size = 1 << 10
	MiB Size = 1 << 20
	GiB Size = 1 << 30
)

// String renders the size with the largest unit that divides it evenly
func (s Size) String() string {
	switch {
	case s == 0:
		return "0"
	case s%GiB == 0:
		return strconv.FormatUint(uint64(s/GiB), 10) + "g"
	case s%MiB == 0:
		return strconv.FormatUint(uint64(s/MiB), 10) + "m"
	case s%KiB == 0:
		return strconv.FormatUint(uint64(s/KiB), 10) + "k"
	default:
		return strconv.FormatUint(uint64(s), 10) + "b"
	}
}

// Byte gets the size in bytes
func (s Size) Byte() uint64 {
	return uint64(s)
}

// KiB gets the size in KiB (rounded up)
func (s Size) KiB() uint64 {
	return uint64((s + KiB - 1) / KiB)
}

// ParseSize parses a human readable size like "256m", "64k" or "1g".
// A bare number is interpreted as bytes.
func ParseSize(str string) (Size, error) {
	t := strings.TrimSpace(strings.ToLower(str))
	if t == "" {
		return 0, fmt.Errorf("size: empty string")
	}
	mul := Size(1)
	switch t[len(t)-1] {
	case 'b':
		t = t[:len(t)-1]
	case 'k':
		mul = KiB
		t = t[:len(t)-1]
	case 'm':
		mul = MiB
		t = t[:len(t)-1]
	case 'g':
		mul = GiB
		t = t[:len(t)-1]
	}
	n, err := strconv.ParseUint(t, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("size: invalid value %q", str)
	}
	return Size(n) * mul, nil
}

// UnmarshalText implements encoding.TextUnmarshaler for config loading
func (s *Size) UnmarshalText(text []byte) error {
	v, err := ParseSize(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Set implements flag.Value
func (s *Size) Set(str string) error {
	return s.UnmarshalText([]byte(str))
}
