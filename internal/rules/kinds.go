package rules

// ChangeKind enumerates the differences the engine detects.
type ChangeKind string

const (
	ClassAdded            ChangeKind = "class_added"
	EnumAdded             ChangeKind = "enum_added"
	FunctionAdded         ChangeKind = "function_added"
	MethodAdded           ChangeKind = "method_added"
	ConstantAdded         ChangeKind = "constant_added"
	MacroAdded            ChangeKind = "macro_added"
	TemplateAdded         ChangeKind = "template_added"
	TemplateMemberAdded   ChangeKind = "template_member_added"
	OverloadAdded         ChangeKind = "overload_added"
	EnumMemberAdded       ChangeKind = "enum_member_added"
	EnumMemberInserted    ChangeKind = "enum_member_inserted"
	EnumMemberValueChange ChangeKind = "enum_member_value_changed"

	ClassRemoved      ChangeKind = "class_removed"
	EnumRemoved       ChangeKind = "enum_removed"
	FunctionRemoved   ChangeKind = "function_removed"
	MethodRemoved     ChangeKind = "method_removed"
	ConstantRemoved   ChangeKind = "constant_removed"
	MacroRemoved      ChangeKind = "macro_removed"
	EnumMemberRemoved ChangeKind = "enum_member_removed"
	TemplateRemoved   ChangeKind = "template_removed"

	DefaultValueChanged ChangeKind = "default_value_changed"
	DefaultAdded        ChangeKind = "default_added"
	DefaultRemoved      ChangeKind = "default_removed"
	OverloadAmbiguity   ChangeKind = "overload_ambiguity"

	VirtualRemoved     ChangeKind = "virtual_removed"
	VirtualAdded       ChangeKind = "virtual_added"
	PureVirtualAdded   ChangeKind = "pure_virtual_added"
	PureVirtualRemoved ChangeKind = "pure_virtual_removed"
	ClassFinalAdded    ChangeKind = "class_final_added"
	ClassFinalRemoved  ChangeKind = "class_final_removed"
	MethodFinalAdded   ChangeKind = "method_final_added"
	MethodFinalRemoved ChangeKind = "method_final_removed"
	NoexceptAdded      ChangeKind = "noexcept_added"
	NoexceptRemoved    ChangeKind = "noexcept_removed"
	ConstChanged       ChangeKind = "const_changed"
	StaticChanged      ChangeKind = "static_changed"
	OverrideChanged    ChangeKind = "override_changed"
	ConstevalAdded     ChangeKind = "consteval_added"
	ConstevalRemoved   ChangeKind = "consteval_removed"
	ConstexprAdded     ChangeKind = "constexpr_added"
	ConstexprRemoved   ChangeKind = "constexpr_removed"

	ReturnTypeCovariant ChangeKind = "return_type_changed_covariant"
	ReturnTypeChanged   ChangeKind = "return_type_changed"
	ParamTypeChanged    ChangeKind = "parameter_type_changed"
	ParamAdded          ChangeKind = "parameter_added"
	ParamAddedDefaulted ChangeKind = "parameter_added_defaulted"
	ParamRemoved        ChangeKind = "parameter_removed"

	InheritanceChanged    ChangeKind = "inheritance_changed"
	VTableLayoutChanged   ChangeKind = "vtable_layout_changed"
	VTableSlotAppended    ChangeKind = "vtable_slot_appended"
	TemplateParamsChanged ChangeKind = "template_params_changed"

	ConstantValueChanged ChangeKind = "constant_value_changed"
	TypeChanged          ChangeKind = "type_changed"
	VisibilityReduced    ChangeKind = "visibility_reduced"
	VisibilityWidened    ChangeKind = "visibility_widened"
	KindChanged          ChangeKind = "kind_changed"
	DeprecatedAdded      ChangeKind = "deprecated"

	AmbiguousMatch     ChangeKind = "ambiguous_match"
	UnclassifiedChange ChangeKind = "unclassified_change"
)

// defaultRules is the built-in rule table.
var defaultRules = []Rule{
	{ClassAdded, Safe, Safe, "New types are purely additive"},
	{EnumAdded, Safe, Safe, "New types are purely additive"},
	{FunctionAdded, Safe, Safe, "Purely additive"},
	{MethodAdded, Safe, Safe, "Purely additive"},
	{ConstantAdded, Safe, Safe, "Purely additive"},
	{MacroAdded, Safe, Safe, "Purely additive"},
	{TemplateAdded, Safe, Safe, "Purely additive"},
	{TemplateMemberAdded, Safe, Safe, "Opt-in; existing instantiations are unaffected"},
	{OverloadAdded, Safe, Safe, "New overload does not compete with existing overloads for any call"},
	{EnumMemberAdded, Safe, Safe, "New named values widen an enum but do not shift existing numeric values"},
	{EnumMemberInserted, Safe, Breaking, "Insertion renumbers later members; code depending on integer values sees shifted values"},
	{EnumMemberValueChange, Warning, Breaking, "Enumerator values are compiled into client binaries"},

	{ClassRemoved, Breaking, Breaking, "Clients naming the type fail to compile and link"},
	{EnumRemoved, Breaking, Breaking, "Clients naming the type fail to compile"},
	{FunctionRemoved, Breaking, Breaking, "Callers fail to compile and link"},
	{MethodRemoved, Breaking, Breaking, "Callers fail to compile and link"},
	{ConstantRemoved, Breaking, Breaking, "Clients naming the constant fail to compile"},
	{MacroRemoved, Breaking, Breaking, "Clients expanding the macro fail to compile"},
	{EnumMemberRemoved, Breaking, Breaking, "Clients naming the enumerator fail to compile"},
	{TemplateRemoved, Breaking, Breaking, "Clients instantiating the template fail to compile"},

	{DefaultValueChanged, Warning, Safe, "Source-compatible; silently alters behavior for callers relying on the default"},
	{DefaultAdded, Safe, Safe, "Existing call sites keep passing the argument explicitly"},
	{DefaultRemoved, Breaking, Safe, "Call sites omitting the argument fail to compile"},
	{OverloadAmbiguity, Warning, Safe, "Some call pattern is now accepted by two overloads without an exact match, shifting overload resolution"},

	{VirtualRemoved, Breaking, Breaking, "Changes dispatch: overrides in client subclasses become hiding, not overriding"},
	{VirtualAdded, Safe, Breaking, "Adds a vtable slot and changes the calling convention of existing binaries"},
	{PureVirtualAdded, Breaking, Breaking, "Client subclasses become abstract and fail to compile"},
	{PureVirtualRemoved, Safe, Safe, "Loosens a requirement on subclasses"},
	{ClassFinalAdded, Breaking, Safe, "Prevents compilation of existing derived types"},
	{ClassFinalRemoved, Safe, Safe, "Loosens a restriction"},
	{MethodFinalAdded, Breaking, Safe, "Client overrides fail to compile"},
	{MethodFinalRemoved, Warning, Safe, "Un-finalizing changes the extensibility contract for client subclasses"},
	{NoexceptAdded, Warning, Safe, "Source-compatible; changes exception-propagation contract and may terminate programs that previously caught exceptions from it"},
	{NoexceptRemoved, Warning, Warning, "Callers relying on the no-throw guarantee may now see exceptions"},
	{ConstChanged, Breaking, Breaking, "Changes the implicit object parameter and the mangled name"},
	{StaticChanged, Breaking, Breaking, "Changes the calling convention and how the member is named"},
	{OverrideChanged, Safe, Safe, "The override specifier only affects checking at the declaration"},
	{ConstevalAdded, Breaking, Safe, "Calls with runtime arguments no longer compile"},
	{ConstevalRemoved, Safe, Warning, "A symbol now exists at runtime where none did"},
	{ConstexprAdded, Safe, Safe, "Purely additive"},
	{ConstexprRemoved, Breaking, Safe, "Uses in constant expressions fail to compile"},

	{ReturnTypeCovariant, Safe, Warning, "May be source-compatible but is ABI-breaking (differing calling convention for return)"},
	{ReturnTypeChanged, Breaking, Breaking, "Callers and overriders disagree on the returned type"},
	{ParamTypeChanged, Breaking, Breaking, "Overload resolution at call sites may silently select a different overload or fail to compile"},
	{ParamAdded, Breaking, Breaking, "Existing call sites pass too few arguments; the mangled name changes"},
	{ParamAddedDefaulted, Safe, Breaking, "Call sites still compile through the default, but the mangled name changes"},
	{ParamRemoved, Breaking, Breaking, "Existing call sites pass too many arguments; the mangled name changes"},

	{InheritanceChanged, Breaking, Breaking, "Alters member layout and vtable order"},
	{VTableLayoutChanged, Safe, Breaking, "Existing virtual slots moved; binaries dispatch through stale indices"},
	{VTableSlotAppended, Safe, Warning, "New slot grows the vtable; subclasses compiled against the old layout may overlap it"},
	{TemplateParamsChanged, Breaking, Breaking, "Existing instantiations and explicit arguments no longer match"},

	{ConstantValueChanged, Warning, Breaking, "Value may be baked into caller binaries at compile time"},
	{TypeChanged, Breaking, Breaking, "The type of the entity changed"},
	{VisibilityReduced, Breaking, Safe, "Clients lose access to the declaration"},
	{VisibilityWidened, Safe, Safe, "Loosens a restriction"},
	{KindChanged, Breaking, Breaking, "The entity is a different kind of declaration"},
	{DeprecatedAdded, Warning, Safe, "Clients should migrate before the declaration is removed"},

	{AmbiguousMatch, Warning, Warning, "Overload set changed in a way that cannot be paired one to one"},
	{UnclassifiedChange, Warning, Warning, "No rule covers this declaration kind; review manually"},
}
