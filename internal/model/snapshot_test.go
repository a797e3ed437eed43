package model

import (
	"errors"
	"testing"

	abierrors "abicompat/internal/errors"
)

func method(name string, quals []string, params ...RawParam) RawDeclaration {
	return RawDeclaration{Name: name, Kind: string(KindMethod), ReturnType: "void", Qualifiers: quals, Params: params}
}

func TestBuild_MalformedInput(t *testing.T) {
	tests := []struct {
		name         string
		raws         []RawDeclaration
		wantIdentity string
	}{
		{
			name:         "missing name",
			raws:         []RawDeclaration{{Kind: "function"}},
			wantIdentity: "#0",
		},
		{
			name:         "missing kind",
			raws:         []RawDeclaration{{Name: "foo"}},
			wantIdentity: "foo",
		},
		{
			name: "duplicate identity",
			raws: []RawDeclaration{
				{Name: "calculate", Kind: "function", Params: []RawParam{{Type: "int"}}},
				{Name: "calculate", Kind: "function", Params: []RawParam{{Type: "int", Default: "0"}}},
			},
			wantIdentity: "calculate(int)",
		},
		{
			name:         "parameter without type",
			raws:         []RawDeclaration{{Name: "f", Kind: "function", Params: []RawParam{{Name: "x"}}}},
			wantIdentity: "f",
		},
		{
			name:         "unknown qualifier",
			raws:         []RawDeclaration{{Name: "f", Kind: "function", Qualifiers: []string{"mutable"}}},
			wantIdentity: "f",
		},
		{
			name:         "unknown visibility",
			raws:         []RawDeclaration{{Name: "f", Kind: "function", Visibility: "internal"}},
			wantIdentity: "f",
		},
		{
			name:         "method without owner",
			raws:         []RawDeclaration{{Name: "orphan", Kind: "method"}},
			wantIdentity: "orphan",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("v", tt.raws)
			if err == nil {
				t.Fatal("Build() error = nil, want MALFORMED_INPUT")
			}
			var e *abierrors.Error
			if !errors.As(err, &e) {
				t.Fatalf("Build() error type = %T, want *errors.Error", err)
			}
			if e.Code != abierrors.MalformedInput {
				t.Errorf("Code = %v, want %v", e.Code, abierrors.MalformedInput)
			}
			if e.Identity != tt.wantIdentity {
				t.Errorf("Identity = %q, want %q", e.Identity, tt.wantIdentity)
			}
		})
	}
}

func TestBuild_Identity(t *testing.T) {
	s, err := Build("v", []RawDeclaration{
		{Name: "Container", Kind: "class", TemplateParams: []string{"typename T"}},
		method("Container::get", []string{"const"}, RawParam{Name: "index", Type: "int"}),
		method("Container::get", nil, RawParam{Name: "index", Type: "int"}),
		method("Container::add", nil, RawParam{Name: "item", Type: "T const &"}),
		{Name: "DEFAULT_SIZE", Kind: "constant", ReturnType: "int", Value: StringValue("256")},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, id := range []string{
		"Container",
		"Container::get(int) const",
		"Container::get(int)",
		"Container::add(const T&)",
		"DEFAULT_SIZE",
	} {
		if s.Lookup(id) == nil {
			t.Errorf("Lookup(%q) = nil, want declaration", id)
		}
	}

	if got := len(s.OverloadSet("Container::get")); got != 2 {
		t.Errorf("len(OverloadSet(Container::get)) = %d, want 2", got)
	}
	if got := s.Lookup("Container::add(const T&)").Owner; got != "Container" {
		t.Errorf("Owner = %q, want %q", got, "Container")
	}
	if !s.IsTemplate("Container") {
		t.Error("IsTemplate(Container) = false, want true")
	}
	if got := s.Names(); len(got) != 4 || got[0] != "Container" {
		t.Errorf("Names() = %v, want 4 sorted names", got)
	}
}

func TestBuild_DefaultsDoNotAffectIdentity(t *testing.T) {
	a, err := Build("a", []RawDeclaration{{Name: "f", Kind: "function", Params: []RawParam{{Type: "double"}}}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build("b", []RawDeclaration{{Name: "f", Kind: "function", Params: []RawParam{{Type: "double", Default: "1.0"}}}})
	if err != nil {
		t.Fatal(err)
	}
	da, db := a.Lookup("f(double)"), b.Lookup("f(double)")
	if da == nil || db == nil {
		t.Fatal("Lookup(f(double)) = nil")
	}
	if da.Fingerprint() == db.Fingerprint() {
		t.Error("fingerprints equal, want default argument to change the fingerprint")
	}
}

func TestBuild_EnumValues(t *testing.T) {
	s, err := Build("v", []RawDeclaration{
		{Name: "Color", Kind: "enum"},
		{Name: "Color::Red", Kind: "enum-member"},
		{Name: "Color::Green", Kind: "enum-member"},
		{Name: "Color::Blue", Kind: "enum-member", Value: StringValue("10")},
		{Name: "Color::Alpha", Kind: "enum-member"},
		{Name: "Mode", Kind: "enum"},
		{Name: "Mode::Fast", Kind: "enum-member", Value: StringValue("FLAG_A | FLAG_B")},
		{Name: "Mode::Slow", Kind: "enum-member"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		id        string
		wantValue string
		wantHas   bool
	}{
		{"Color::Red", "0", true},
		{"Color::Green", "1", true},
		{"Color::Blue", "10", true},
		{"Color::Alpha", "11", true},
		{"Mode::Fast", "FLAG_A | FLAG_B", true},
		{"Mode::Slow", "", false},
	}
	for _, tt := range tests {
		d := s.Lookup(tt.id)
		if d == nil {
			t.Fatalf("Lookup(%q) = nil", tt.id)
		}
		if d.Value != tt.wantValue || d.HasValue != tt.wantHas {
			t.Errorf("%s value = (%q, %v), want (%q, %v)", tt.id, d.Value, d.HasValue, tt.wantValue, tt.wantHas)
		}
	}
}

func TestSnapshot_DigestIgnoresOrder(t *testing.T) {
	raws := []RawDeclaration{
		{Name: "A", Kind: "class"},
		method("A::run", []string{"virtual"}),
		{Name: "B", Kind: "constant", Value: StringValue("1")},
	}
	reversed := []RawDeclaration{raws[2], raws[0], raws[1]}

	a, err := Build("a", raws)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build("b", reversed)
	if err != nil {
		t.Fatal(err)
	}
	if a.Digest() != b.Digest() {
		t.Errorf("Digest() differs across declaration order: %s vs %s", a.Digest(), b.Digest())
	}
	if len(a.Digest()) != 64 {
		t.Errorf("len(Digest()) = %d, want 64", len(a.Digest()))
	}
}

func TestSnapshot_DerivesFrom(t *testing.T) {
	s, err := Build("v", []RawDeclaration{
		{Name: "Base", Kind: "class"},
		{Name: "Mid", Kind: "class", Bases: []RawBase{{Name: "Base"}}},
		{Name: "Leaf", Kind: "class", Bases: []RawBase{{Name: "Mid"}}},
		{Name: "Loop", Kind: "class", Bases: []RawBase{{Name: "Loop"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !s.DerivesFrom("Leaf", "Base") {
		t.Error("DerivesFrom(Leaf, Base) = false, want true")
	}
	if s.DerivesFrom("Base", "Leaf") {
		t.Error("DerivesFrom(Base, Leaf) = true, want false")
	}
	if s.DerivesFrom("Loop", "Base") {
		t.Error("DerivesFrom(Loop, Base) = true, want false")
	}
}

func TestDeclaration_String(t *testing.T) {
	s, err := Build("v", []RawDeclaration{
		{Name: "P", Kind: "class"},
		{
			Name: "P::transform", Kind: "method", ReturnType: "int",
			Params: []RawParam{{Name: "input", Type: "int"}, {Name: "factor", Type: "double", Default: "1.0"}},
		},
		{Name: "MAX", Kind: "macro", Value: StringValue("1024")},
	})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		id   string
		want string
	}{
		{"P::transform(int, double)", "int P::transform(int input, double factor = 1.0)"},
		{"MAX", "#define MAX 1024"},
		{"P", "class P"},
	}
	for _, tt := range tests {
		if got := s.Lookup(tt.id).String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
