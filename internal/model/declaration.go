// Package model is the declaration model of one version of a C++ library
// interface. Declarations are built once by Build and never modified.
package model

import (
	"fmt"
	"strings"
)

// Kind is the declaration kind.
type Kind string

const (
	KindClass      Kind = "class"
	KindEnum       Kind = "enum"
	KindEnumMember Kind = "enum-member"
	KindFunction   Kind = "function"
	KindMethod     Kind = "method"
	KindTemplate   Kind = "template" // function or member template
	KindConstant   Kind = "constant"
	KindMacro      Kind = "macro"
)

var knownKinds = map[Kind]bool{
	KindClass:      true,
	KindEnum:       true,
	KindEnumMember: true,
	KindFunction:   true,
	KindMethod:     true,
	KindTemplate:   true,
	KindConstant:   true,
	KindMacro:      true,
}

// Known reports whether the kind has compatibility rules.
func (k Kind) Known() bool {
	return knownKinds[k]
}

// Callable reports whether declarations of this kind have a parameter list
// that participates in their identity.
func (k Kind) Callable() bool {
	return k == KindFunction || k == KindMethod || k == KindTemplate
}

// Member reports whether the kind always lives inside an owning type.
func (k Kind) Member() bool {
	return k == KindMethod || k == KindEnumMember
}

// Visibility is the access level of a declaration.
type Visibility string

const (
	Public    Visibility = "public"
	Protected Visibility = "protected"
	Private   Visibility = "private"
)

// Rank orders visibilities from widest (0) to narrowest (2).
func (v Visibility) Rank() int {
	switch v {
	case Protected:
		return 1
	case Private:
		return 2
	default:
		return 0
	}
}

func parseVisibility(s string) (Visibility, bool) {
	switch Visibility(strings.ToLower(strings.TrimSpace(s))) {
	case "", Public:
		return Public, true
	case Protected:
		return Protected, true
	case Private:
		return Private, true
	}
	return "", false
}

// Qualifier is a bit set of declaration qualifiers.
type Qualifier uint16

const (
	Virtual Qualifier = 1 << iota
	Pure
	Override
	Final
	Const
	Noexcept
	Static
	Constexpr
	Consteval
	Deprecated
)

var qualifierNames = []struct {
	q    Qualifier
	name string
}{
	{Virtual, "virtual"},
	{Pure, "pure"},
	{Override, "override"},
	{Final, "final"},
	{Const, "const"},
	{Noexcept, "noexcept"},
	{Static, "static"},
	{Constexpr, "constexpr"},
	{Consteval, "consteval"},
	{Deprecated, "deprecated"},
}

// ParseQualifier maps a qualifier keyword to its bit.
func ParseQualifier(s string) (Qualifier, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "pure-virtual" || s == "pure_virtual" {
		s = "pure"
	}
	for _, qn := range qualifierNames {
		if qn.name == s {
			return qn.q, true
		}
	}
	return 0, false
}

// Has reports whether all bits of o are set.
func (q Qualifier) Has(o Qualifier) bool {
	return q&o == o
}

// Names returns the qualifier keywords in canonical order.
func (q Qualifier) Names() []string {
	var out []string
	for _, qn := range qualifierNames {
		if q.Has(qn.q) {
			out = append(out, qn.name)
		}
	}
	return out
}

func (q Qualifier) String() string {
	return strings.Join(q.Names(), " ")
}

// Param is one parameter of a callable.
type Param struct {
	Name       string
	Type       string // normalized
	Default    string
	HasDefault bool
}

// Base is one entry of a class base list.
type Base struct {
	Name    string
	Access  Visibility
	Virtual bool
}

func (b Base) String() string {
	s := string(b.Access) + " "
	if b.Virtual {
		s += "virtual "
	}
	return s + b.Name
}

// Declaration is one named interface element.
type Declaration struct {
	Name           string
	Kind           Kind
	Params         []Param
	Qualifiers     Qualifier
	ReturnType     string
	Owner          string
	Visibility     Visibility
	Value          string
	HasValue       bool
	Bases          []Base
	TemplateParams []string
	Underlying     string
	Scoped         bool
	File           string
	Line           int
	Ordinal        int

	identity    string
	fingerprint uint64
	dispatch    bool
}

// Identity is the symbol identity key: the qualified name plus, for
// callables, the normalized parameter types and a trailing const.
func (d *Declaration) Identity() string {
	return d.identity
}

// Fingerprint hashes every semantic attribute of the declaration.
// Provenance (file, line, ordinal) is excluded.
func (d *Declaration) Fingerprint() uint64 {
	return d.fingerprint
}

// Has reports whether the declaration carries the qualifier.
func (d *Declaration) Has(q Qualifier) bool {
	return d.Qualifiers.Has(q)
}

// Virtual reports whether the method occupies or overrides a vtable slot.
func (d *Declaration) Virtual() bool {
	return d.dispatch
}

// LocalName is the last component of the qualified name.
func (d *Declaration) LocalName() string {
	return localName(d.Name)
}

// RequiredParams counts the parameters without a default argument.
func (d *Declaration) RequiredParams() int {
	n := 0
	for _, p := range d.Params {
		if !p.HasDefault {
			n++
		}
	}
	return n
}

// Signature renders the parameter list with defaults, e.g.
// "(int input, double factor = 1.0) const".
func (d *Declaration) Signature() string {
	if !d.Kind.Callable() && len(d.Params) == 0 {
		return ""
	}
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		s := p.Type
		if p.Name != "" {
			s += " " + p.Name
		}
		if p.HasDefault {
			if p.Default != "" {
				s += " = " + p.Default
			} else {
				s += " = <default>"
			}
		}
		parts[i] = s
	}
	sig := "(" + strings.Join(parts, ", ") + ")"
	if d.Has(Const) {
		sig += " const"
	}
	if d.Has(Noexcept) {
		sig += " noexcept"
	}
	return sig
}

// String renders the declaration in C++-like form for reports.
func (d *Declaration) String() string {
	var b strings.Builder
	if len(d.TemplateParams) > 0 {
		fmt.Fprintf(&b, "template <%s> ", strings.Join(d.TemplateParams, ", "))
	}
	switch d.Kind {
	case KindClass:
		b.WriteString("class " + d.Name)
		if d.Has(Final) {
			b.WriteString(" final")
		}
		if len(d.Bases) > 0 {
			bases := make([]string, len(d.Bases))
			for i, base := range d.Bases {
				bases[i] = base.String()
			}
			b.WriteString(" : " + strings.Join(bases, ", "))
		}
		return b.String()
	case KindEnum:
		b.WriteString("enum ")
		if d.Scoped {
			b.WriteString("class ")
		}
		b.WriteString(d.Name)
		if d.Underlying != "" {
			b.WriteString(" : " + d.Underlying)
		}
		return b.String()
	case KindEnumMember:
		b.WriteString(d.Name)
		if d.HasValue {
			b.WriteString(" = " + d.Value)
		}
		return b.String()
	case KindMacro:
		b.WriteString("#define " + d.Name)
		if len(d.Params) > 0 {
			names := make([]string, len(d.Params))
			for i, p := range d.Params {
				names[i] = p.Name
			}
			b.WriteString("(" + strings.Join(names, ", ") + ")")
		}
		if d.HasValue {
			b.WriteString(" " + d.Value)
		}
		return b.String()
	case KindConstant:
		for _, q := range []Qualifier{Static, Constexpr, Consteval} {
			if d.Has(q) {
				b.WriteString(q.String() + " ")
			}
		}
		if d.ReturnType != "" {
			b.WriteString(d.ReturnType + " ")
		}
		b.WriteString(d.Name)
		if d.HasValue {
			b.WriteString(" = " + d.Value)
		}
		return b.String()
	}

	for _, q := range []Qualifier{Static, Virtual, Constexpr, Consteval} {
		if d.Has(q) {
			b.WriteString(q.String() + " ")
		}
	}
	if d.ReturnType != "" {
		b.WriteString(d.ReturnType + " ")
	}
	b.WriteString(d.Name)
	b.WriteString(d.Signature())
	if d.Has(Override) {
		b.WriteString(" override")
	}
	if d.Has(Final) {
		b.WriteString(" final")
	}
	if d.Has(Pure) {
		b.WriteString(" = 0")
	}
	if d.HasValue {
		fmt.Fprintf(&b, " { return %s; }", d.Value)
	}
	return b.String()
}

// localName strips the enclosing scopes, ignoring "::" inside template
// argument lists.
func localName(name string) string {
	if i := lastScope(name); i >= 0 {
		return name[i+2:]
	}
	return name
}

// scopeOf returns the enclosing scope of a qualified name, or "".
func scopeOf(name string) string {
	if i := lastScope(name); i >= 0 {
		return name[:i]
	}
	return ""
}

func lastScope(name string) int {
	depth := 0
	for i := len(name) - 1; i > 0; i-- {
		switch name[i] {
		case '>':
			depth++
		case '<':
			depth--
		case ':':
			if depth == 0 && name[i-1] == ':' {
				return i - 1
			}
		}
	}
	return -1
}
