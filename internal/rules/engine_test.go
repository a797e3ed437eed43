package rules

import (
	"context"
	"sort"
	"testing"

	"abicompat/internal/matcher"
	"abicompat/internal/model"
)

type raw = model.RawDeclaration
type param = model.RawParam

func snapshot(t *testing.T, raws ...raw) *model.Snapshot {
	t.Helper()
	s, err := model.Build("test", raws)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return s
}

func evaluate(t *testing.T, table *Table, old, next *model.Snapshot) []ChangeRecord {
	t.Helper()
	matches, err := matcher.Match(context.Background(), old, next, matcher.Options{Workers: 1})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	engine := NewEngine(table)
	ctx := EvalContext{Old: old, New: next}
	var out []ChangeRecord
	for _, m := range matches {
		out = append(out, engine.Evaluate(ctx, m)...)
	}
	SortRecords(out)
	return out
}

func kinds(records []ChangeRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = string(r.Kind) + "/" + r.Severity.String()
	}
	sort.Strings(out)
	return out
}

func find(records []ChangeRecord, kind ChangeKind) *ChangeRecord {
	for i := range records {
		if records[i].Kind == kind {
			return &records[i]
		}
	}
	return nil
}

func cls(name string, quals ...string) raw {
	return raw{Name: name, Kind: "class", Qualifiers: quals}
}

func mth(name, ret string, quals []string, params ...param) raw {
	return raw{Name: name, Kind: "method", ReturnType: ret, Qualifiers: quals, Params: params}
}

func fnc(name, ret string, params ...param) raw {
	return raw{Name: name, Kind: "function", ReturnType: ret, Params: params}
}

func p(typ string) param { return param{Type: typ} }

func pd(typ, def string) param { return param{Type: typ, Default: def} }

func TestEvaluate_Rules(t *testing.T) {
	tests := []struct {
		name string
		old  []raw
		new  []raw
		want []string
	}{
		{
			name: "enum member added",
			old:  []raw{{Name: "E", Kind: "enum"}, {Name: "E::A", Kind: "enum-member"}},
			new:  []raw{{Name: "E", Kind: "enum"}, {Name: "E::A", Kind: "enum-member"}, {Name: "E::B", Kind: "enum-member"}},
			want: []string{"enum_member_added/safe"},
		},
		{
			name: "enum member inserted mid-sequence",
			old:  []raw{{Name: "E", Kind: "enum"}, {Name: "E::A", Kind: "enum-member"}, {Name: "E::C", Kind: "enum-member"}},
			new: []raw{
				{Name: "E", Kind: "enum"}, {Name: "E::A", Kind: "enum-member"},
				{Name: "E::B", Kind: "enum-member"}, {Name: "E::C", Kind: "enum-member"},
			},
			want: []string{"enum_member_inserted/breaking", "enum_member_value_changed/breaking"},
		},
		{
			name: "function removed",
			old:  []raw{fnc("f", "void")},
			want: []string{"function_removed/breaking"},
		},
		{
			name: "function added",
			new:  []raw{fnc("f", "void")},
			want: []string{"function_added/safe"},
		},
		{
			name: "default value changed",
			old:  []raw{fnc("f", "void", pd("int", "1"))},
			new:  []raw{fnc("f", "void", pd("int", "2"))},
			want: []string{"default_value_changed/warning"},
		},
		{
			name: "default added",
			old:  []raw{fnc("f", "void", p("int"))},
			new:  []raw{fnc("f", "void", pd("int", "0"))},
			want: []string{"default_added/safe"},
		},
		{
			name: "default added creates ambiguity",
			old:  []raw{fnc("f", "void", p("int")), fnc("f", "void")},
			new:  []raw{fnc("f", "void", pd("int", "0")), fnc("f", "void")},
			want: []string{"overload_ambiguity/warning"},
		},
		{
			name: "default removed",
			old:  []raw{fnc("f", "void", pd("int", "0"))},
			new:  []raw{fnc("f", "void", p("int"))},
			want: []string{"default_removed/breaking"},
		},
		{
			name: "virtual removed",
			old:  []raw{cls("C"), mth("C::run", "void", []string{"virtual"})},
			new:  []raw{cls("C"), mth("C::run", "void", nil)},
			want: []string{"vtable_layout_changed/breaking", "virtual_removed/breaking"},
		},
		{
			name: "class final added",
			old:  []raw{cls("C")},
			new:  []raw{cls("C", "final")},
			want: []string{"class_final_added/breaking"},
		},
		{
			name: "noexcept added",
			old:  []raw{fnc("f", "void")},
			new:  []raw{{Name: "f", Kind: "function", ReturnType: "void", Qualifiers: []string{"noexcept"}}},
			want: []string{"noexcept_added/warning"},
		},
		{
			name: "return type changed covariantly",
			old: []raw{
				cls("Base"), cls("Derived"), cls("Factory"),
				mth("Factory::make", "Base*", []string{"virtual"}),
			},
			new: []raw{
				cls("Base"), {Name: "Derived", Kind: "class", Bases: []model.RawBase{{Name: "Base"}}}, cls("Factory"),
				mth("Factory::make", "Derived*", []string{"virtual"}),
			},
			want: []string{"inheritance_changed/breaking", "return_type_changed_covariant/warning"},
		},
		{
			name: "return type changed",
			old:  []raw{fnc("f", "int")},
			new:  []raw{fnc("f", "double")},
			want: []string{"return_type_changed/breaking"},
		},
		{
			name: "parameter type changed",
			old:  []raw{fnc("f", "void", p("int"), p("double"))},
			new:  []raw{fnc("f", "void", p("double"), p("double"))},
			want: []string{"parameter_type_changed/breaking"},
		},
		{
			name: "inheritance reordered",
			old:  []raw{cls("A"), cls("B"), {Name: "C", Kind: "class", Bases: []model.RawBase{{Name: "A"}, {Name: "B"}}}},
			new:  []raw{cls("A"), cls("B"), {Name: "C", Kind: "class", Bases: []model.RawBase{{Name: "B"}, {Name: "A"}}}},
			want: []string{"inheritance_changed/breaking"},
		},
		{
			name: "template member added",
			old:  []raw{{Name: "Box", Kind: "class", TemplateParams: []string{"typename T"}}},
			new: []raw{
				{Name: "Box", Kind: "class", TemplateParams: []string{"typename T"}},
				mth("Box::has", "bool", []string{"const"}, p("const T&")),
			},
			want: []string{"template_member_added/safe"},
		},
		{
			name: "constexpr constant changed",
			old:  []raw{{Name: "N", Kind: "constant", ReturnType: "int", Qualifiers: []string{"constexpr"}, Value: model.StringValue("1")}},
			new:  []raw{{Name: "N", Kind: "constant", ReturnType: "int", Qualifiers: []string{"constexpr"}, Value: model.StringValue("2")}},
			want: []string{"constant_value_changed/breaking"},
		},
		{
			name: "overload added with ambiguity",
			old:  []raw{fnc("g", "void", p("int"))},
			new:  []raw{fnc("g", "void", p("int")), fnc("g", "void", p("const int&"))},
			want: []string{"overload_ambiguity/warning"},
		},
		{
			name: "overload added without ambiguity",
			old:  []raw{fnc("g", "void", p("int"))},
			new:  []raw{fnc("g", "void", p("int")), fnc("g", "void", p("float"))},
			want: []string{"overload_added/safe"},
		},
		{
			name: "pure virtual added",
			old:  []raw{cls("C"), mth("C::run", "void", []string{"virtual"})},
			new:  []raw{cls("C"), mth("C::run", "void", []string{"virtual", "pure"})},
			want: []string{"pure_virtual_added/breaking"},
		},
		{
			name: "method final added",
			old:  []raw{cls("C"), mth("C::run", "void", []string{"virtual"})},
			new:  []raw{cls("C"), mth("C::run", "void", []string{"virtual", "final"})},
			want: []string{"method_final_added/breaking"},
		},
		{
			name: "method final removed",
			old:  []raw{cls("C"), mth("C::run", "void", []string{"virtual", "final"})},
			new:  []raw{cls("C"), mth("C::run", "void", []string{"virtual"})},
			want: []string{"method_final_removed/warning"},
		},
		{
			name: "const changed",
			old:  []raw{cls("C"), mth("C::get", "int", []string{"const"})},
			new:  []raw{cls("C"), mth("C::get", "int", nil)},
			want: []string{"const_changed/breaking"},
		},
		{
			name: "static changed",
			old:  []raw{cls("C"), mth("C::make", "int", nil)},
			new:  []raw{cls("C"), mth("C::make", "int", []string{"static"})},
			want: []string{"static_changed/breaking"},
		},
		{
			name: "consteval added",
			old:  []raw{{Name: "f", Kind: "function", ReturnType: "int", Qualifiers: []string{"constexpr"}}},
			new:  []raw{{Name: "f", Kind: "function", ReturnType: "int", Qualifiers: []string{"consteval"}}},
			want: []string{"consteval_added/breaking", "constexpr_removed/breaking"},
		},
		{
			name: "parameter added",
			old:  []raw{fnc("f", "void", p("int"))},
			new:  []raw{fnc("f", "void", p("int"), p("int"))},
			want: []string{"parameter_added/breaking"},
		},
		{
			name: "parameter added with default",
			old:  []raw{fnc("f", "void")},
			new:  []raw{fnc("f", "void", pd("int", "1"))},
			want: []string{"parameter_added_defaulted/breaking"},
		},
		{
			name: "parameter removed",
			old:  []raw{fnc("f", "void", p("int"), p("int"))},
			new:  []raw{fnc("f", "void", p("int"))},
			want: []string{"parameter_removed/breaking"},
		},
		{
			name: "visibility reduced",
			old:  []raw{cls("C"), mth("C::f", "void", nil)},
			new:  []raw{cls("C"), {Name: "C::f", Kind: "method", ReturnType: "void", Visibility: "protected"}},
			want: []string{"visibility_reduced/breaking"},
		},
		{
			name: "deprecated",
			old:  []raw{fnc("f", "void")},
			new:  []raw{{Name: "f", Kind: "function", ReturnType: "void", Qualifiers: []string{"deprecated"}}},
			want: []string{"deprecated/warning"},
		},
		{
			name: "kind changed",
			old:  []raw{{Name: "X", Kind: "constant", Value: model.StringValue("1")}},
			new:  []raw{{Name: "X", Kind: "macro", Value: model.StringValue("1")}},
			want: []string{"kind_changed/breaking"},
		},
		{
			name: "macro value changed",
			old:  []raw{{Name: "MAX_SIZE", Kind: "macro", Value: model.StringValue("1024")}},
			new:  []raw{{Name: "MAX_SIZE", Kind: "macro", Value: model.StringValue("2048")}},
			want: []string{"constant_value_changed/breaking"},
		},
		{
			name: "unsupported kind changed",
			old:  []raw{{Name: "T", Kind: "typedef", ReturnType: "int"}},
			new:  []raw{{Name: "T", Kind: "typedef", ReturnType: "long"}},
			want: []string{"unclassified_change/warning"},
		},
		{
			name: "unsupported kind added",
			new:  []raw{{Name: "T", Kind: "typedef"}},
			want: []string{"unclassified_change/warning"},
		},
		{
			name: "members of a new class are covered by the class",
			new:  []raw{cls("N"), mth("N::run", "void", []string{"virtual"})},
			want: []string{"class_added/safe"},
		},
		{
			name: "members of a removed class are covered by the class",
			old:  []raw{{Name: "E", Kind: "enum"}, {Name: "E::A", Kind: "enum-member"}},
			want: []string{"enum_removed/breaking"},
		},
		{
			name: "ambiguous overload changes",
			old:  []raw{fnc("k", "void", p("int")), fnc("k", "void", p("double"))},
			new:  []raw{fnc("k", "void", p("long")), fnc("k", "void", p("float"))},
			want: []string{"ambiguous_match/warning"},
		},
		{
			name: "vtable slot appended",
			old:  []raw{cls("C"), mth("C::a", "void", []string{"virtual"})},
			new:  []raw{cls("C"), mth("C::a", "void", []string{"virtual"}), mth("C::b", "void", []string{"virtual"})},
			want: []string{"method_added/safe", "vtable_slot_appended/warning"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(evaluate(t, nil, snapshot(t, tt.old...), snapshot(t, tt.new...)))
			want := append([]string(nil), tt.want...)
			sort.Strings(want)
			if len(got) != len(want) {
				t.Fatalf("records = %v, want %v", got, want)
			}
			for i := range got {
				if got[i] != want[i] {
					t.Errorf("records = %v, want %v", got, want)
					break
				}
			}
		})
	}
}

func TestEvaluate_AmbiguousRecordListsCandidates(t *testing.T) {
	old := snapshot(t, fnc("k", "void", p("int")), fnc("k", "void", p("double")))
	next := snapshot(t, fnc("k", "void", p("long")), fnc("k", "void", p("float")))

	records := evaluate(t, nil, old, next)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	r := records[0]
	if len(r.Candidates) != 4 {
		t.Errorf("len(Candidates) = %d, want 4: %v", len(r.Candidates), r.Candidates)
	}
	if r.Code != "AMBIGUOUS_MATCH" {
		t.Errorf("Code = %q, want AMBIGUOUS_MATCH", r.Code)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	raws := []raw{
		cls("A"), mth("A::f", "void", []string{"virtual"}, pd("int", "3")),
		{Name: "E", Kind: "enum"}, {Name: "E::X", Kind: "enum-member"},
		fnc("g", "int", p("const char*")), fnc("g", "int", p("int")),
		{Name: "M", Kind: "macro", Value: model.StringValue("1")},
	}
	if got := evaluate(t, nil, snapshot(t, raws...), snapshot(t, raws...)); len(got) != 0 {
		t.Errorf("comparing a snapshot with itself produced %v", kinds(got))
	}
}

func TestEvaluate_UnfinalizePolicy(t *testing.T) {
	old := snapshot(t, cls("C"), mth("C::run", "void", []string{"virtual", "final"}))
	next := snapshot(t, cls("C"), mth("C::run", "void", []string{"virtual"}))

	for _, policy := range []Severity{Safe, Warning, Breaking} {
		table, err := NewTable(WithUnfinalizePolicy(policy))
		if err != nil {
			t.Fatal(err)
		}
		rec := find(evaluate(t, table, old, next), MethodFinalRemoved)
		if rec == nil {
			t.Fatalf("policy %s: no method_final_removed record", policy)
		}
		if rec.Severity != policy {
			t.Errorf("policy %s: Severity = %s", policy, rec.Severity)
		}
	}
}

func TestEvaluate_Overrides(t *testing.T) {
	table, err := NewTable(WithOverride(`kind == "noexcept_added" && owner == "Legacy"`, Breaking, "Legacy callers catch everything"))
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	old := snapshot(t, cls("Legacy"), mth("Legacy::run", "void", nil), cls("Modern"), mth("Modern::run", "void", nil))
	next := snapshot(t,
		cls("Legacy"), mth("Legacy::run", "void", []string{"noexcept"}),
		cls("Modern"), mth("Modern::run", "void", []string{"noexcept"}))

	records := evaluate(t, table, old, next)
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	for _, r := range records {
		want := Warning
		if r.Owner == "Legacy" {
			want = Breaking
		}
		if r.Severity != want {
			t.Errorf("%s Severity = %s, want %s", r.Symbol, r.Severity, want)
		}
		if r.Overridden != (r.Owner == "Legacy") {
			t.Errorf("%s Overridden = %v", r.Symbol, r.Overridden)
		}
	}
}

func TestAmbiguous(t *testing.T) {
	s := snapshot(t,
		fnc("f", "void", p("int")),
		fnc("f", "void", p("int"), pd("int", "0")),
		fnc("f", "void", p("float")),
		fnc("f", "void", p("const int&"), p("char")),
	)
	tests := []struct {
		a, b string
		want bool
	}{
		{"f(int)", "f(int, int)", true},
		{"f(int)", "f(float)", false},
		{"f(int)", "f(const int&, char)", false},
		{"f(int, int)", "f(const int&, char)", false},
	}
	for _, tt := range tests {
		if got := Ambiguous(s.Lookup(tt.a), s.Lookup(tt.b)); got != tt.want {
			t.Errorf("Ambiguous(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
