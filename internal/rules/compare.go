package rules

import (
	"fmt"
	"strings"

	"abicompat/internal/model"
)

func (e *Engine) matched(ctx EvalContext, o, n *model.Declaration, signatureChanged bool) []ChangeRecord {
	em := e.emitter(n, o, n)
	em.signature = ""
	if o.Kind.Callable() {
		em.signature = o.Identity()
	}

	if o.Kind != n.Kind {
		em.add(KindChanged, "%s changed from %s to %s", o.Name, o.Kind, n.Kind)
		return em.out
	}
	if !o.Kind.Known() {
		if signatureChanged || o.Fingerprint() != n.Fingerprint() {
			em.add(UnclassifiedChange, "declaration %s of unsupported kind %q changed", o.Name, o.Kind)
		}
		return em.out
	}
	if !signatureChanged && o.Fingerprint() == n.Fingerprint() {
		return nil
	}

	switch {
	case n.Visibility.Rank() > o.Visibility.Rank():
		em.add(VisibilityReduced, "%s narrowed from %s to %s", o.Name, o.Visibility, n.Visibility)
	case n.Visibility.Rank() < o.Visibility.Rank():
		em.add(VisibilityWidened, "%s widened from %s to %s", o.Name, o.Visibility, n.Visibility)
	}
	if !o.Has(model.Deprecated) && n.Has(model.Deprecated) {
		em.add(DeprecatedAdded, "%s is now deprecated", o.Name)
	}

	switch o.Kind {
	case model.KindClass:
		compareClass(ctx, em, o, n)
	case model.KindEnum:
		if o.Underlying != n.Underlying || o.Scoped != n.Scoped {
			em.add(TypeChanged, "enum %s changed from %q to %q", o.Name, enumShape(o), enumShape(n))
		}
	case model.KindEnumMember:
		if o.HasValue != n.HasValue || o.Value != n.Value {
			em.add(EnumMemberValueChange, "enumerator %s changed value from %s to %s", o.Name, valueText(o), valueText(n))
		}
	case model.KindConstant, model.KindMacro:
		compareConstant(em, o, n)
	default:
		e.compareCallable(ctx, em, o, n)
	}
	return em.out
}

func enumShape(d *model.Declaration) string {
	s := "enum"
	if d.Scoped {
		s = "enum class"
	}
	if d.Underlying != "" {
		s += " : " + d.Underlying
	}
	return s
}

func valueText(d *model.Declaration) string {
	if !d.HasValue {
		return "<unknown>"
	}
	return d.Value
}

func compareClass(ctx EvalContext, em *emitter, o, n *model.Declaration) {
	switch {
	case !o.Has(model.Final) && n.Has(model.Final):
		em.add(ClassFinalAdded, "class %s is now final", o.Name)
	case o.Has(model.Final) && !n.Has(model.Final):
		em.add(ClassFinalRemoved, "class %s is no longer final", o.Name)
	}

	if ob, nb := baseList(o), baseList(n); ob != nb {
		em.add(InheritanceChanged, "bases of %s changed from [%s] to [%s]", o.Name, ob, nb)
	}
	if ot, nt := strings.Join(o.TemplateParams, ", "), strings.Join(n.TemplateParams, ", "); ot != nt {
		em.add(TemplateParamsChanged, "template parameters of %s changed from <%s> to <%s>", o.Name, ot, nt)
	}

	compareVTables(em, o.Name, ctx.Old.VTable(o.Name), ctx.New.VTable(n.Name))
}

func baseList(d *model.Declaration) string {
	parts := make([]string, len(d.Bases))
	for i, b := range d.Bases {
		parts[i] = b.String()
	}
	return strings.Join(parts, ", ")
}

// compareVTables reports existing slots that moved or disappeared, and new
// slots appended past the old end.
func compareVTables(em *emitter, class string, oldSlots, newSlots []model.Slot) {
	newIndex := make(map[string]int, len(newSlots))
	for _, s := range newSlots {
		newIndex[s.LayoutKey()] = s.Index
	}
	oldKeys := make(map[string]bool, len(oldSlots))

	var moved []string
	for _, s := range oldSlots {
		oldKeys[s.LayoutKey()] = true
		idx, ok := newIndex[s.LayoutKey()]
		switch {
		case !ok:
			moved = append(moved, fmt.Sprintf("%s #%d removed", slotLabel(s), s.Index))
		case idx != s.Index:
			moved = append(moved, fmt.Sprintf("%s #%d -> #%d", slotLabel(s), s.Index, idx))
		}
	}
	if len(moved) > 0 {
		em.add(VTableLayoutChanged, "vtable of %s changed: %s", class, strings.Join(moved, ", "))
	}

	var appended []string
	for _, s := range newSlots {
		if !oldKeys[s.LayoutKey()] && s.Index >= len(oldSlots) {
			appended = append(appended, fmt.Sprintf("%s #%d", slotLabel(s), s.Index))
		}
	}
	if len(appended) > 0 {
		em.add(VTableSlotAppended, "vtable of %s gained %s", class, strings.Join(appended, ", "))
	}
}

func slotLabel(s model.Slot) string {
	if s.Name == "~" {
		return "destructor"
	}
	return s.Key
}

func compareConstant(em *emitter, o, n *model.Declaration) {
	if o.ReturnType != n.ReturnType {
		em.add(TypeChanged, "type of %s changed from %s to %s", o.Name, o.ReturnType, n.ReturnType)
	}
	if o.HasValue != n.HasValue || o.Value != n.Value {
		em.add(ConstantValueChanged, "value of %s changed from %s to %s", o.Name, valueText(o), valueText(n))
	}
	if o.Kind == model.KindMacro {
		switch {
		case len(n.Params) > len(o.Params):
			em.add(ParamAdded, "macro %s gained %d parameter(s)", o.Name, len(n.Params)-len(o.Params))
		case len(n.Params) < len(o.Params):
			em.add(ParamRemoved, "macro %s lost %d parameter(s)", o.Name, len(o.Params)-len(n.Params))
		}
		return
	}
	compareQualifier(em, o, n, model.Constexpr, ConstexprAdded, ConstexprRemoved)
	compareQualifier(em, o, n, model.Consteval, ConstevalAdded, ConstevalRemoved)
}

// compareQualifier emits added or removed when q flips between o and n.
func compareQualifier(em *emitter, o, n *model.Declaration, q model.Qualifier, added, removed ChangeKind) {
	switch {
	case !o.Has(q) && n.Has(q):
		em.add(added, "%s added to %s", q, o.Identity())
	case o.Has(q) && !n.Has(q):
		em.add(removed, "%s removed from %s", q, o.Identity())
	}
}

func (e *Engine) compareCallable(ctx EvalContext, em *emitter, o, n *model.Declaration) {
	switch {
	case o.Virtual() && !n.Virtual():
		em.add(VirtualRemoved, "%s is no longer virtual", o.Identity())
	case !o.Virtual() && n.Virtual():
		em.add(VirtualAdded, "%s is now virtual", o.Identity())
	case o.Virtual() && o.Has(model.Override) != n.Has(model.Override):
		em.add(OverrideChanged, "override specifier of %s changed", o.Identity())
	}
	compareQualifier(em, o, n, model.Pure, PureVirtualAdded, PureVirtualRemoved)
	compareQualifier(em, o, n, model.Final, MethodFinalAdded, MethodFinalRemoved)
	compareQualifier(em, o, n, model.Noexcept, NoexceptAdded, NoexceptRemoved)
	compareQualifier(em, o, n, model.Consteval, ConstevalAdded, ConstevalRemoved)
	compareQualifier(em, o, n, model.Constexpr, ConstexprAdded, ConstexprRemoved)
	if o.Has(model.Const) != n.Has(model.Const) {
		em.add(ConstChanged, "const qualification of %s changed", o.Identity())
	}
	if o.Has(model.Static) != n.Has(model.Static) {
		em.add(StaticChanged, "static qualification of %s changed", o.Identity())
	}

	if o.ReturnType != n.ReturnType {
		if covariant(ctx, o, n) {
			em.add(ReturnTypeCovariant, "return type of %s changed covariantly from %s to %s", o.Identity(), o.ReturnType, n.ReturnType)
		} else {
			em.add(ReturnTypeChanged, "return type of %s changed from %s to %s", o.Identity(), typeText(o.ReturnType), typeText(n.ReturnType))
		}
	}
	if ot, nt := strings.Join(o.TemplateParams, ", "), strings.Join(n.TemplateParams, ", "); ot != nt {
		em.add(TemplateParamsChanged, "template parameters of %s changed from <%s> to <%s>", o.Identity(), ot, nt)
	}

	e.compareParams(ctx, em, o, n)

	if o.HasValue && n.HasValue && o.Value != n.Value {
		em.add(ConstantValueChanged, "compile-time value of %s changed from %s to %s", o.Identity(), o.Value, n.Value)
	}
}

func typeText(t string) string {
	if t == "" {
		return "<none>"
	}
	return t
}

// covariant reports whether a virtual method's return type changed to a
// pointer or reference to a class derived from the old pointee.
func covariant(ctx EvalContext, o, n *model.Declaration) bool {
	if !o.Virtual() || !n.Virtual() {
		return false
	}
	op, od := model.Indirection(o.ReturnType)
	np, nd := model.Indirection(n.ReturnType)
	if od == "" || od != nd || op == np {
		return false
	}
	return ctx.New.DerivesFrom(np, op)
}

func (e *Engine) compareParams(ctx EvalContext, em *emitter, o, n *model.Declaration) {
	common := len(o.Params)
	if len(n.Params) < common {
		common = len(n.Params)
	}
	defaultAdded := false
	for i := 0; i < common; i++ {
		op, np := o.Params[i], n.Params[i]
		label := paramLabel(i, np)
		if op.Type != np.Type {
			em.add(ParamTypeChanged, "%s of %s changed type from %s to %s", label, o.Identity(), op.Type, np.Type)
			continue
		}
		switch {
		case !op.HasDefault && np.HasDefault:
			defaultAdded = true
		case op.HasDefault && !np.HasDefault:
			em.add(DefaultRemoved, "%s of %s lost its default argument %s", label, o.Identity(), op.Default)
		case op.HasDefault && np.HasDefault && op.Default != np.Default:
			em.add(DefaultValueChanged, "default argument of %s of %s changed from %s to %s", label, o.Identity(), op.Default, np.Default)
		}
	}
	if defaultAdded {
		if rival := newAmbiguity(ctx, o, n); rival != "" {
			em.add(OverloadAmbiguity, "default argument added to %s makes calls ambiguous with %s", o.Identity(), rival)
		} else {
			em.add(DefaultAdded, "default argument added to %s", o.Identity())
		}
	}

	switch {
	case len(n.Params) > len(o.Params):
		extra := n.Params[len(o.Params):]
		defaulted := true
		types := make([]string, len(extra))
		for i, p := range extra {
			types[i] = p.Type
			defaulted = defaulted && p.HasDefault
		}
		if defaulted {
			em.add(ParamAddedDefaulted, "%s gained defaulted parameter(s) %s", o.Identity(), strings.Join(types, ", "))
		} else {
			em.add(ParamAdded, "%s gained parameter(s) %s", o.Identity(), strings.Join(types, ", "))
		}
	case len(n.Params) < len(o.Params):
		types := make([]string, 0, len(o.Params)-len(n.Params))
		for _, p := range o.Params[len(n.Params):] {
			types = append(types, p.Type)
		}
		em.add(ParamRemoved, "%s lost parameter(s) %s", o.Identity(), strings.Join(types, ", "))
	}
}

func paramLabel(i int, p model.Param) string {
	if p.Name != "" {
		return fmt.Sprintf("parameter %d '%s'", i+1, p.Name)
	}
	return fmt.Sprintf("parameter %d", i+1)
}
