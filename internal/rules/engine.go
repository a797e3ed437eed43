// Package rules classifies symbol matches against an immutable, versioned
// compatibility rule table.
package rules

import (
	"fmt"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/matcher"
	"abicompat/internal/model"
)

// Engine evaluates matches against one rule table. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	table *Table
}

// NewEngine returns an engine for t, or for the default table when t is nil.
func NewEngine(t *Table) *Engine {
	if t == nil {
		t = DefaultTable()
	}
	return &Engine{table: t}
}

// Table returns the engine's rule table.
func (e *Engine) Table() *Table { return e.table }

// EvalContext gives rules read-only access to both snapshots for sibling
// lookups: overload sets, enum neighbours, owners and class hierarchies.
type EvalContext struct {
	Old *model.Snapshot
	New *model.Snapshot
}

// Evaluate produces the change records of one match. The same context and
// match always yield the same records.
func (e *Engine) Evaluate(ctx EvalContext, m matcher.SymbolMatch) []ChangeRecord {
	var out []ChangeRecord
	switch m.Kind {
	case matcher.Added:
		out = e.added(ctx, m.New)
	case matcher.Removed:
		out = e.removed(ctx, m.Old)
	case matcher.Ambiguous:
		out = []ChangeRecord{e.ambiguous(m)}
	case matcher.Matched:
		out = e.matched(ctx, m.Old, m.New, m.SignatureChanged)
	}
	SortRecords(out)
	return out
}

// emitter accumulates records about one subject declaration.
type emitter struct {
	table     *Table
	subject   *model.Declaration
	old       *model.Declaration
	new       *model.Declaration
	signature string
	out       []ChangeRecord
}

func (e *Engine) emitter(subject, oldDecl, newDecl *model.Declaration) *emitter {
	em := &emitter{table: e.table, subject: subject, old: oldDecl, new: newDecl}
	if subject.Kind.Callable() {
		em.signature = subject.Identity()
	}
	return em
}

func (em *emitter) add(kind ChangeKind, format string, args ...interface{}) {
	rule := em.table.Rule(kind)
	rec := ChangeRecord{
		Symbol:    em.subject.Name,
		Signature: em.signature,
		Owner:     em.subject.Owner,
		DeclKind:  string(em.subject.Kind),
		Kind:      kind,
		Source:    rule.Source,
		ABI:       rule.ABI,
		Severity:  rule.Severity(),
		Rationale: fmt.Sprintf(format, args...) + ". " + rule.Rationale,
		File:      em.subject.File,
		Line:      em.subject.Line,
	}
	if em.old != nil {
		rec.Old = em.old.String()
		rec.Deprecated = em.old.Has(model.Deprecated)
	}
	if em.new != nil {
		rec.New = em.new.String()
	}
	if kind == UnclassifiedChange {
		rec.Code = string(abierrors.UnsupportedDeclarationKind)
	}
	em.out = append(em.out, em.table.apply(rec, string(em.subject.Visibility), em.subject.Virtual()))
}

// ownerAdded reports whether d's owning type is itself new; the owner's
// record then covers d.
func ownerAdded(ctx EvalContext, d *model.Declaration) bool {
	return d.Owner != "" && ctx.Old.Lookup(d.Owner) == nil && ctx.New.Lookup(d.Owner) != nil
}

func ownerRemoved(ctx EvalContext, d *model.Declaration) bool {
	return d.Owner != "" && ctx.New.Lookup(d.Owner) == nil && ctx.Old.Lookup(d.Owner) != nil
}

func (e *Engine) added(ctx EvalContext, d *model.Declaration) []ChangeRecord {
	if ownerAdded(ctx, d) {
		return nil
	}
	em := e.emitter(d, nil, d)
	switch d.Kind {
	case model.KindClass:
		em.add(ClassAdded, "class %s added", d.Name)
	case model.KindEnum:
		em.add(EnumAdded, "enum %s added", d.Name)
	case model.KindEnumMember:
		if shifted := renumbered(ctx, d.Owner); shifted != "" {
			em.add(EnumMemberInserted, "enumerator %s added while %s changed value", d.Name, shifted)
		} else {
			em.add(EnumMemberAdded, "enumerator %s = %s added", d.Name, d.Value)
		}
	case model.KindFunction, model.KindMethod, model.KindTemplate:
		e.addedCallable(ctx, em, d)
	case model.KindConstant:
		em.add(ConstantAdded, "constant %s added", d.Name)
	case model.KindMacro:
		em.add(MacroAdded, "macro %s added", d.Name)
	default:
		em.add(UnclassifiedChange, "declaration %s of unsupported kind %q added", d.Name, d.Kind)
	}
	return em.out
}

func (e *Engine) addedCallable(ctx EvalContext, em *emitter, d *model.Declaration) {
	if len(ctx.Old.OverloadSet(d.Name)) > 0 {
		for _, s := range ctx.New.OverloadSet(d.Name) {
			if s == d || ctx.Old.Lookup(s.Identity()) == nil {
				continue
			}
			if Ambiguous(d, s) {
				em.add(OverloadAmbiguity, "new overload %s is ambiguous with existing %s for some calls", d.Identity(), s.Identity())
				return
			}
		}
		em.add(OverloadAdded, "overload %s added", d.Identity())
		return
	}
	if d.Owner != "" && (d.Kind == model.KindTemplate || ctx.New.IsTemplate(d.Owner)) {
		em.add(TemplateMemberAdded, "template member %s added", d.Identity())
		return
	}
	switch d.Kind {
	case model.KindFunction:
		em.add(FunctionAdded, "function %s added", d.Identity())
	case model.KindMethod:
		em.add(MethodAdded, "method %s added", d.Identity())
	default:
		em.add(TemplateAdded, "template %s added", d.Identity())
	}
}

// renumbered returns an existing enumerator of owner whose value changed,
// or "".
func renumbered(ctx EvalContext, owner string) string {
	for _, m := range ctx.New.Members(owner) {
		if m.Kind != model.KindEnumMember {
			continue
		}
		prev := ctx.Old.Lookup(m.Identity())
		if prev != nil && prev.HasValue && m.HasValue && prev.Value != m.Value {
			return m.Name
		}
	}
	return ""
}

var removedKinds = map[model.Kind]ChangeKind{
	model.KindClass:      ClassRemoved,
	model.KindEnum:       EnumRemoved,
	model.KindEnumMember: EnumMemberRemoved,
	model.KindFunction:   FunctionRemoved,
	model.KindMethod:     MethodRemoved,
	model.KindTemplate:   TemplateRemoved,
	model.KindConstant:   ConstantRemoved,
	model.KindMacro:      MacroRemoved,
}

func (e *Engine) removed(ctx EvalContext, d *model.Declaration) []ChangeRecord {
	if ownerRemoved(ctx, d) {
		return nil
	}
	em := e.emitter(d, d, nil)
	if kind, ok := removedKinds[d.Kind]; ok {
		em.add(kind, "%s %s removed", d.Kind, d.Identity())
	} else {
		em.add(UnclassifiedChange, "declaration %s of unsupported kind %q removed", d.Name, d.Kind)
	}
	return em.out
}

func (e *Engine) ambiguous(m matcher.SymbolMatch) ChangeRecord {
	rule := e.table.Rule(AmbiguousMatch)
	rec := ChangeRecord{
		Symbol:   m.Name,
		Kind:     AmbiguousMatch,
		Source:   rule.Source,
		ABI:      rule.ABI,
		Severity: rule.Severity(),
		Code:     string(abierrors.AmbiguousMatch),
		Rationale: fmt.Sprintf("%d old and %d new declarations of %s could not be paired. %s",
			len(m.OldCandidates), len(m.NewCandidates), m.Name, rule.Rationale),
	}
	var first *model.Declaration
	for _, d := range m.OldCandidates {
		rec.Candidates = append(rec.Candidates, "old: "+d.String())
		if first == nil {
			first = d
		}
	}
	for _, d := range m.NewCandidates {
		rec.Candidates = append(rec.Candidates, "new: "+d.String())
		if first == nil {
			first = d
		}
	}
	if first != nil {
		rec.DeclKind = string(first.Kind)
		rec.Owner = first.Owner
		rec.File, rec.Line = first.File, first.Line
		return e.table.apply(rec, string(first.Visibility), first.Virtual())
	}
	return rec
}
