package model

import "testing"

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"int", "int"},
		{"  const   char *", "const char*"},
		{"T const &", "const T&"},
		{"T const&&", "const T&&"},
		{"const T&", "const T&"},
		{"char * const", "char* const"},
		{"std::vector< int >", "std::vector<int>"},
		{"std::map<int , std::string>", "std::map<int, std::string>"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeType(tt.in); got != tt.want {
			t.Errorf("NormalizeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBaseType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"const T&", "T"},
		{"int", "int"},
		{"double&&", "double"},
		{"const char*", "const char*"},
		{"volatile int", "int"},
	}
	for _, tt := range tests {
		if got := BaseType(tt.in); got != tt.want {
			t.Errorf("BaseType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIndirection(t *testing.T) {
	tests := []struct {
		in          string
		wantPointee string
		wantDecl    string
	}{
		{"Base*", "Base", "*"},
		{"const Derived&", "Derived", "&"},
		{"int", "int", ""},
		{"Node**", "Node", "**"},
	}
	for _, tt := range tests {
		p, d := Indirection(tt.in)
		if p != tt.wantPointee || d != tt.wantDecl {
			t.Errorf("Indirection(%q) = (%q, %q), want (%q, %q)", tt.in, p, d, tt.wantPointee, tt.wantDecl)
		}
	}
}

func TestParseQualifier(t *testing.T) {
	q, ok := ParseQualifier("pure-virtual")
	if !ok || q != Pure {
		t.Errorf("ParseQualifier(pure-virtual) = (%v, %v), want (pure, true)", q, ok)
	}
	if _, ok := ParseQualifier("mutable"); ok {
		t.Error("ParseQualifier(mutable) ok = true, want false")
	}
	set := Virtual | Const | Noexcept
	if got := set.String(); got != "virtual const noexcept" {
		t.Errorf("String() = %q, want %q", got, "virtual const noexcept")
	}
}
