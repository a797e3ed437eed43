package scipimport

import (
	"fmt"
	"strings"
)

// Suffix classifies a descriptor.
type Suffix int

const (
	SuffixNamespace Suffix = iota
	SuffixType
	SuffixTerm
	SuffixMethod
	SuffixTypeParameter
	SuffixParameter
	SuffixMeta
	SuffixMacro
)

// Descriptor is one component of a SCIP symbol's descriptor path.
type Descriptor struct {
	Name          string
	Disambiguator string
	Suffix        Suffix
}

// Symbol is a parsed global SCIP symbol:
// <scheme> <manager> <package-name> <version> <descriptor>...
// Spaces inside the first four fields are escaped by doubling them.
type Symbol struct {
	Scheme      string
	Manager     string
	Package     string
	Version     string
	Descriptors []Descriptor
}

// IsLocal reports whether id names a document-local symbol.
func IsLocal(id string) bool {
	return strings.HasPrefix(id, "local ")
}

// ParseSymbol parses a global SCIP symbol identifier.
func ParseSymbol(id string) (*Symbol, error) {
	if id == "" {
		return nil, fmt.Errorf("empty SCIP symbol")
	}
	if IsLocal(id) {
		return nil, fmt.Errorf("local symbol %q has no descriptors", id)
	}

	var fields [4]string
	rest := id
	for i := range fields {
		field, remainder, ok := splitField(rest)
		if !ok {
			return nil, fmt.Errorf("invalid SCIP symbol %q: missing package fields", id)
		}
		fields[i], rest = field, remainder
	}

	descs, err := parseDescriptors(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid SCIP symbol %q: %w", id, err)
	}
	return &Symbol{
		Scheme:      fields[0],
		Manager:     fields[1],
		Package:     fields[2],
		Version:     fields[3],
		Descriptors: descs,
	}, nil
}

// splitField reads one space-terminated field, unescaping doubled spaces.
func splitField(s string) (string, string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == ' ' {
			b.WriteByte(' ')
			i++
			continue
		}
		return b.String(), s[i+1:], true
	}
	return "", "", false
}

func parseDescriptors(s string) ([]Descriptor, error) {
	var out []Descriptor
	for len(s) > 0 {
		switch s[0] {
		case '[', '(':
			closer := byte(']')
			suffix := SuffixTypeParameter
			if s[0] == '(' {
				closer, suffix = ')', SuffixParameter
			}
			name, rest, err := parseName(s[1:])
			if err != nil {
				return nil, err
			}
			if rest == "" || rest[0] != closer {
				return nil, fmt.Errorf("unterminated descriptor %q", s)
			}
			out = append(out, Descriptor{Name: name, Suffix: suffix})
			s = rest[1:]
			continue
		}

		name, rest, err := parseName(s)
		if err != nil {
			return nil, err
		}
		if rest == "" {
			return nil, fmt.Errorf("descriptor %q has no suffix", name)
		}
		d := Descriptor{Name: name}
		switch rest[0] {
		case '/':
			d.Suffix = SuffixNamespace
		case '#':
			d.Suffix = SuffixType
		case '.':
			d.Suffix = SuffixTerm
		case ':':
			d.Suffix = SuffixMeta
		case '!':
			d.Suffix = SuffixMacro
		case '(':
			end := strings.IndexByte(rest, ')')
			if end < 0 || end+1 >= len(rest) || rest[end+1] != '.' {
				return nil, fmt.Errorf("malformed method descriptor %q", name+rest)
			}
			d.Suffix = SuffixMethod
			d.Disambiguator = rest[1:end]
			rest = rest[end+1:]
		default:
			return nil, fmt.Errorf("unexpected %q after %q", rest[0], name)
		}
		out = append(out, d)
		s = rest[1:]
	}
	return out, nil
}

// parseName reads a simple or backtick-escaped name.
func parseName(s string) (string, string, error) {
	if s == "" {
		return "", "", fmt.Errorf("missing name")
	}
	if s[0] != '`' {
		i := 0
		for i < len(s) && isIdentChar(s[i]) {
			i++
		}
		if i == 0 {
			return "", "", fmt.Errorf("unexpected %q", s[0])
		}
		return s[:i], s[i:], nil
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '`' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '`' {
			b.WriteByte('`')
			i++
			continue
		}
		return b.String(), s[i+1:], nil
	}
	return "", "", fmt.Errorf("unterminated escaped name")
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '+' || c == '-' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// QualifiedName joins the namespace, type, term, method and macro
// descriptors with "::", the way C++ spells qualified names.
func (s *Symbol) QualifiedName() string {
	parts := make([]string, 0, len(s.Descriptors))
	for _, d := range s.Descriptors {
		switch d.Suffix {
		case SuffixNamespace, SuffixType, SuffixTerm, SuffixMethod, SuffixMacro:
			parts = append(parts, d.Name)
		}
	}
	return strings.Join(parts, "::")
}

// Last returns the final descriptor.
func (s *Symbol) Last() Descriptor {
	if len(s.Descriptors) == 0 {
		return Descriptor{}
	}
	return s.Descriptors[len(s.Descriptors)-1]
}

// Owner returns the qualified name of the innermost enclosing type, or ""
// when the symbol is not nested in a type.
func (s *Symbol) Owner() string {
	n := len(s.Descriptors) - 1
	for n >= 0 && (s.Descriptors[n].Suffix == SuffixParameter || s.Descriptors[n].Suffix == SuffixTypeParameter) {
		n--
	}
	if n <= 0 || s.Descriptors[n-1].Suffix != SuffixType {
		return ""
	}
	parent := &Symbol{Descriptors: s.Descriptors[:n]}
	return parent.QualifiedName()
}
