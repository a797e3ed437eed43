package model

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"

	abierrors "abicompat/internal/errors"
)

// Snapshot is an immutable, name-indexed collection of declarations for one
// version. No two declarations share an identity.
type Snapshot struct {
	label      string
	decls      []*Declaration
	byIdentity map[string]*Declaration
	byName     map[string][]*Declaration
	members    map[string][]*Declaration
	names      []string
	vtables    map[string][]Slot
	digest     string
}

// Build validates raw declarations and produces a snapshot. It fails with a
// MALFORMED_INPUT error naming the offending identity when a required field
// is missing, an attribute is not recognized, or two declarations collide
// on identity.
func Build(label string, raws []RawDeclaration) (*Snapshot, error) {
	s := &Snapshot{
		label:      label,
		decls:      make([]*Declaration, 0, len(raws)),
		byIdentity: make(map[string]*Declaration, len(raws)),
		byName:     make(map[string][]*Declaration),
		members:    make(map[string][]*Declaration),
		vtables:    make(map[string][]Slot),
	}

	for i, raw := range raws {
		d, err := newDeclaration(i, raw)
		if err != nil {
			return nil, err
		}
		if prev, dup := s.byIdentity[d.identity]; dup {
			return nil, abierrors.Malformed(d.identity,
				"duplicate declaration identity (declarations #%d and #%d)", prev.Ordinal, d.Ordinal)
		}
		s.byIdentity[d.identity] = d
		s.decls = append(s.decls, d)
		s.byName[d.Name] = append(s.byName[d.Name], d)
		if d.Owner != "" {
			s.members[d.Owner] = append(s.members[d.Owner], d)
		}
	}

	s.resolveEnumValues()
	s.buildVTables()

	for name, set := range s.byName {
		sort.Slice(set, func(i, j int) bool { return set[i].identity < set[j].identity })
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)

	for _, d := range s.decls {
		d.fingerprint = s.fingerprint(d)
	}
	s.digest = s.computeDigest()
	return s, nil
}

func newDeclaration(ordinal int, raw RawDeclaration) (*Declaration, error) {
	ref := fmt.Sprintf("#%d", ordinal)
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return nil, abierrors.Malformed(ref, "declaration is missing a name")
	}
	kind := Kind(strings.TrimSpace(raw.Kind))
	if kind == "" {
		return nil, abierrors.Malformed(name, "declaration is missing a kind")
	}

	d := &Declaration{
		Name:           name,
		Kind:           kind,
		ReturnType:     NormalizeType(raw.ReturnType),
		Owner:          strings.TrimSpace(raw.Owner),
		Underlying:     NormalizeType(raw.Underlying),
		Scoped:         raw.Scoped,
		File:           raw.File,
		Line:           raw.Line,
		Ordinal:        ordinal,
		TemplateParams: normalizeAll(raw.TemplateParams),
	}

	vis, ok := parseVisibility(raw.Visibility)
	if !ok {
		return nil, abierrors.Malformed(name, "unknown visibility %q", raw.Visibility)
	}
	d.Visibility = vis

	for _, qs := range raw.Qualifiers {
		q, ok := ParseQualifier(qs)
		if !ok {
			return nil, abierrors.Malformed(name, "unknown qualifier %q", qs)
		}
		d.Qualifiers |= q
	}

	for i, rp := range raw.Params {
		t := NormalizeType(rp.Type)
		if t == "" && kind != KindMacro {
			return nil, abierrors.Malformed(name, "parameter %d has no type", i)
		}
		d.Params = append(d.Params, Param{
			Name:       strings.TrimSpace(rp.Name),
			Type:       t,
			Default:    NormalizeValue(rp.Default),
			HasDefault: rp.HasDefault || rp.Default != "",
		})
	}

	for _, rb := range raw.Bases {
		if strings.TrimSpace(rb.Name) == "" {
			return nil, abierrors.Malformed(name, "base class with no name")
		}
		access, ok := parseVisibility(rb.Access)
		if !ok {
			return nil, abierrors.Malformed(name, "unknown base access %q", rb.Access)
		}
		d.Bases = append(d.Bases, Base{Name: NormalizeType(rb.Name), Access: access, Virtual: rb.Virtual})
	}

	if raw.Value != nil {
		d.Value = NormalizeValue(string(*raw.Value))
		d.HasValue = true
	}

	if d.Owner == "" && kind.Member() {
		d.Owner = scopeOf(name)
		if d.Owner == "" {
			return nil, abierrors.Malformed(name, "%s declaration has no owning type", kind)
		}
	}

	d.identity = identityOf(d)
	return d, nil
}

func identityOf(d *Declaration) string {
	if !d.Kind.Callable() {
		return d.Name
	}
	types := make([]string, len(d.Params))
	for i, p := range d.Params {
		types[i] = p.Type
	}
	id := d.Name + "(" + strings.Join(types, ", ") + ")"
	if d.Has(Const) {
		id += " const"
	}
	return id
}

func normalizeAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = NormalizeValue(s)
	}
	return out
}

// resolveEnumValues assigns previous+1 to enum members declared without a
// value. The first member of an enum defaults to 0.
func (s *Snapshot) resolveEnumValues() {
	last := make(map[string]int64)
	known := make(map[string]bool)
	seen := make(map[string]bool)
	for _, d := range s.decls {
		if d.Kind != KindEnumMember {
			continue
		}
		if !d.HasValue {
			switch {
			case !seen[d.Owner]:
				d.Value, d.HasValue = "0", true
			case known[d.Owner]:
				d.Value, d.HasValue = strconv.FormatInt(last[d.Owner]+1, 10), true
			}
		}
		seen[d.Owner] = true
		known[d.Owner] = false
		if d.HasValue {
			if n, err := strconv.ParseInt(d.Value, 0, 64); err == nil {
				last[d.Owner] = n
				known[d.Owner] = true
			}
		}
	}
}

func (s *Snapshot) fingerprint(d *Declaration) uint64 {
	h := xxhash.New()
	field := func(parts ...string) {
		for _, p := range parts {
			_, _ = h.WriteString(p)
			_, _ = h.WriteString("\x00")
		}
		_, _ = h.WriteString("\x01")
	}
	field(d.Name, string(d.Kind), d.ReturnType, d.Owner, string(d.Visibility), d.Underlying)
	field(strconv.FormatUint(uint64(d.Qualifiers), 16), strconv.FormatBool(d.Scoped),
		strconv.FormatBool(d.HasValue), d.Value, strconv.FormatBool(d.dispatch))
	for _, p := range d.Params {
		field(p.Type, strconv.FormatBool(p.HasDefault), p.Default)
	}
	for _, b := range d.Bases {
		field(b.String())
	}
	field(d.TemplateParams...)
	if d.Kind == KindClass {
		for _, slot := range s.vtables[d.Name] {
			field(strconv.Itoa(slot.Index), slot.Key, slot.Owner, strconv.FormatBool(slot.Pure))
		}
	}
	return h.Sum64()
}

func (s *Snapshot) computeDigest() string {
	lines := make([]string, len(s.decls))
	for i, d := range s.decls {
		lines[i] = d.identity + "\t" + strconv.FormatUint(d.fingerprint, 16)
	}
	sort.Strings(lines)
	sum := blake2b.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// Label names the version, e.g. "test_lib 1.0".
func (s *Snapshot) Label() string { return s.label }

// Digest is a BLAKE2b-256 content hash, independent of declaration order.
func (s *Snapshot) Digest() string { return s.digest }

// Len returns the number of declarations.
func (s *Snapshot) Len() int { return len(s.decls) }

// Declarations returns the declarations in input order.
func (s *Snapshot) Declarations() []*Declaration {
	return append([]*Declaration(nil), s.decls...)
}

// Names returns every qualified name, sorted.
func (s *Snapshot) Names() []string {
	return append([]string(nil), s.names...)
}

// OverloadSet returns all declarations sharing a qualified name, sorted by identity.
func (s *Snapshot) OverloadSet(name string) []*Declaration {
	return s.byName[name]
}

// Lookup finds a declaration by identity.
func (s *Snapshot) Lookup(identity string) *Declaration {
	return s.byIdentity[identity]
}

// Members returns the declarations owned by a type, in input order.
func (s *Snapshot) Members(owner string) []*Declaration {
	return s.members[owner]
}

// Type returns the class or enum declaration with the given name.
func (s *Snapshot) Type(name string) *Declaration {
	d := s.byIdentity[name]
	if d == nil || (d.Kind != KindClass && d.Kind != KindEnum) {
		return nil
	}
	return d
}

// IsTemplate reports whether name is a class template.
func (s *Snapshot) IsTemplate(name string) bool {
	d := s.Type(name)
	return d != nil && len(d.TemplateParams) > 0
}

// DerivesFrom reports whether class derived has base among its direct or
// indirect bases.
func (s *Snapshot) DerivesFrom(derived, base string) bool {
	seen := make(map[string]bool)
	var walk func(name string) bool
	walk = func(name string) bool {
		if seen[name] {
			return false
		}
		seen[name] = true
		c := s.Type(name)
		if c == nil {
			return false
		}
		for _, b := range c.Bases {
			if b.Name == base || walk(b.Name) {
				return true
			}
		}
		return false
	}
	return walk(derived)
}
