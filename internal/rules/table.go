package rules

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	abierrors "abicompat/internal/errors"
)

// DefaultVersion identifies the built-in rule table.
const DefaultVersion = "abicompat-rules/1"

// Rule classifies one change kind. A record's severity is the worse of its
// source and ABI severities.
type Rule struct {
	Kind      ChangeKind `json:"kind" toml:"kind"`
	Source    Severity   `json:"source" toml:"source"`
	ABI       Severity   `json:"abi" toml:"abi"`
	Rationale string     `json:"rationale" toml:"rationale"`
}

// Severity is max(Source, ABI).
func (r Rule) Severity() Severity {
	return Max(r.Source, r.ABI)
}

// Table is an immutable, versioned rule table. Build it once and share it
// between any number of concurrent engines.
type Table struct {
	version    string
	rules      map[ChangeKind]Rule
	unfinalize Severity
	overrides  []*Override
}

// Option customizes a Table under construction.
type Option func(*Table) error

// WithVersion sets the table's version label.
func WithVersion(v string) Option {
	return func(t *Table) error {
		if v == "" {
			return fmt.Errorf("empty rule table version")
		}
		t.version = v
		return nil
	}
}

// WithRule replaces the rule for r.Kind. An empty rationale keeps the
// default one.
func WithRule(r Rule) Option {
	return func(t *Table) error {
		prev, ok := t.rules[r.Kind]
		if !ok {
			return fmt.Errorf("unknown change kind %q", r.Kind)
		}
		if r.Rationale == "" {
			r.Rationale = prev.Rationale
		}
		t.rules[r.Kind] = r
		return nil
	}
}

// WithUnfinalizePolicy sets the source severity of removing final from a
// virtual method. The default is Warning.
func WithUnfinalizePolicy(s Severity) Option {
	return func(t *Table) error {
		t.unfinalize = s
		return nil
	}
}

// WithOverride appends an expression-guarded severity override.
func WithOverride(when string, s Severity, rationale string) Option {
	return func(t *Table) error {
		o, err := compileOverride(when, s, rationale)
		if err != nil {
			return err
		}
		t.overrides = append(t.overrides, o)
		return nil
	}
}

// NewTable builds a table from the defaults plus opts.
func NewTable(opts ...Option) (*Table, error) {
	t := &Table{
		version:    DefaultVersion,
		rules:      make(map[ChangeKind]Rule, len(defaultRules)),
		unfinalize: Warning,
	}
	for _, r := range defaultRules {
		t.rules[r.Kind] = r
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, abierrors.New(abierrors.RulesInvalid, "invalid rule table", err, nil)
		}
	}
	r := t.rules[MethodFinalRemoved]
	r.Source = t.unfinalize
	t.rules[MethodFinalRemoved] = r
	return t, nil
}

// DefaultTable returns the built-in table.
func DefaultTable() *Table {
	t, err := NewTable()
	if err != nil {
		panic(err)
	}
	return t
}

// Version returns the table's version label.
func (t *Table) Version() string { return t.version }

// UnfinalizePolicy returns the severity of removing final from a method.
func (t *Table) UnfinalizePolicy() Severity { return t.unfinalize }

// Rule looks up the rule for a change kind. Unknown kinds fall back to the
// unclassified-change rule.
func (t *Table) Rule(kind ChangeKind) Rule {
	if r, ok := t.rules[kind]; ok {
		return r
	}
	r := t.rules[UnclassifiedChange]
	r.Kind = kind
	return r
}

// Rules returns every rule sorted by kind.
func (t *Table) Rules() []Rule {
	out := make([]Rule, 0, len(t.rules))
	for _, r := range t.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Overrides returns the compiled overrides in evaluation order.
func (t *Table) Overrides() []*Override {
	return append([]*Override(nil), t.overrides...)
}

// tableFile is the TOML form of a rule table.
type tableFile struct {
	Version    string         `toml:"version"`
	Unfinalize string         `toml:"unfinalize"`
	Rule       []Rule         `toml:"rule"`
	Override   []overrideFile `toml:"override"`
}

type overrideFile struct {
	When      string   `toml:"when"`
	Severity  Severity `toml:"severity"`
	Rationale string   `toml:"rationale"`
}

// LoadTable reads a TOML rule table. Entries replace or extend the
// defaults; anything not mentioned keeps its built-in rule.
//
//	version = "team/2"
//	unfinalize = "safe"
//
//	[[rule]]
//	kind = "noexcept_added"
//	source = "breaking"
//	abi = "safe"
//
//	[[override]]
//	when = 'kind == "deprecated" && owner == "Legacy"'
//	severity = "safe"
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, abierrors.New(abierrors.RulesInvalid, "cannot read rule table "+path, err, nil)
	}
	return ParseTable(string(data))
}

// ParseTable decodes a TOML rule table document.
func ParseTable(doc string) (*Table, error) {
	var f tableFile
	md, err := toml.Decode(doc, &f)
	if err != nil {
		return nil, abierrors.New(abierrors.RulesInvalid, "cannot decode rule table", err, nil)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, abierrors.New(abierrors.RulesInvalid,
			fmt.Sprintf("unknown rule table key %q", undecoded[0].String()), nil, nil)
	}

	var opts []Option
	if f.Version != "" {
		opts = append(opts, WithVersion(f.Version))
	} else if len(f.Rule) > 0 || len(f.Override) > 0 || f.Unfinalize != "" {
		opts = append(opts, WithVersion(DefaultVersion+"+custom"))
	}
	if f.Unfinalize != "" {
		s, err := ParseSeverity(f.Unfinalize)
		if err != nil {
			return nil, abierrors.New(abierrors.RulesInvalid, "invalid unfinalize policy", err, nil)
		}
		opts = append(opts, WithUnfinalizePolicy(s))
	}
	for _, r := range f.Rule {
		opts = append(opts, WithRule(r))
	}
	for _, o := range f.Override {
		opts = append(opts, WithOverride(o.When, o.Severity, o.Rationale))
	}
	return NewTable(opts...)
}
