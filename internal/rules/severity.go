package rules

import (
	"fmt"
	"strings"
)

// Severity orders compatibility risk: Safe < Warning < Breaking.
type Severity int

const (
	Safe Severity = iota
	Warning
	Breaking
)

func (s Severity) String() string {
	switch s {
	case Safe:
		return "safe"
	case Warning:
		return "warning"
	case Breaking:
		return "breaking"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity accepts the lowercase names, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return Safe, nil
	case "warning":
		return Warning, nil
	case "breaking":
		return Breaking, nil
	}
	return Safe, fmt.Errorf("unknown severity %q (want safe, warning or breaking)", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Max returns the more severe of a and b.
func Max(a, b Severity) Severity {
	if a > b {
		return a
	}
	return b
}
