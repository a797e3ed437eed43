package extract

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/model"
)

func TestIsHeader(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"include/core.hpp", true},
		{"core.h", true},
		{"CORE.HPP", true},
		{"detail/impl.ipp", true},
		{"core.cpp", false},
		{"model.yaml", false},
		{"hpp", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsHeader(tt.path); got != tt.want {
				t.Errorf("IsHeader(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestExpandHeaders(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.hpp", "sub/b.h", "sub/c.cpp", "sub/deep/d.hxx"} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ExpandHeaders([]string{dir, filepath.Join(dir, "a.hpp")})
	if err != nil {
		t.Fatalf("ExpandHeaders() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.hpp"),
		filepath.Join(dir, "sub", "b.h"),
		filepath.Join(dir, "sub", "deep", "d.hxx"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandHeaders() = %v, want %v", got, want)
	}

	_, err = ExpandHeaders([]string{filepath.Join(dir, "missing.hpp")})
	if !abierrors.Is(err, abierrors.InputNotFound) {
		t.Errorf("ExpandHeaders(missing) error = %v, want INPUT_NOT_FOUND", err)
	}
}

func TestRecordedPath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "include", "core.hpp")

	if got := recordedPath(file, root); got != "include/core.hpp" {
		t.Errorf("recordedPath() = %q, want include/core.hpp", got)
	}
	if got := recordedPath("include/core.hpp", ""); got != "include/core.hpp" {
		t.Errorf("recordedPath(no root) = %q", got)
	}
	outside := filepath.Join(t.TempDir(), "other.hpp")
	if got := recordedPath(outside, root); got != filepath.ToSlash(outside) {
		t.Errorf("recordedPath(outside) = %q, want %q", got, filepath.ToSlash(outside))
	}
}

func TestRecordedPath_RelativeRoot(t *testing.T) {
	base := filepath.Join("..", "..", "testdata", "test_lib", "v2.0")
	tests := []struct {
		name string
		file string
		root string
		want string
	}{
		{"relative file and root", filepath.Join(base, "include", "utils.hpp"), base, "include/utils.hpp"},
		{"dot root", filepath.Join("sub", "a.hpp"), ".", "sub/a.hpp"},
		{"file outside relative root", filepath.Join(base, "..", "v1.0", "include", "core.hpp"), base,
			filepath.ToSlash(filepath.Join(base, "..", "v1.0", "include", "core.hpp"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recordedPath(tt.file, tt.root); got != tt.want {
				t.Errorf("recordedPath(%q, %q) = %q, want %q", tt.file, tt.root, got, tt.want)
			}
		})
	}
}

func TestDedupe(t *testing.T) {
	decls := []model.RawDeclaration{
		{Name: "f", Kind: "function", Params: []model.RawParam{{Type: "int"}}, Line: 1},
		{Name: "f", Kind: "function", Params: []model.RawParam{{Type: "int", Name: "x"}}, Line: 9},
		{Name: "f", Kind: "function", Params: []model.RawParam{{Type: "double"}}, Line: 2},
		{Name: "C::get", Kind: "method", Line: 3},
		{Name: "C::get", Kind: "method", Qualifiers: []string{"const"}, Line: 4},
		{Name: "C", Kind: "class", Line: 5},
		{Name: "C", Kind: "class", Line: 6},
	}
	got := dedupe(decls)

	var lines []int
	for _, d := range got {
		lines = append(lines, d.Line)
	}
	if want := []int{1, 2, 3, 4, 5}; !reflect.DeepEqual(lines, want) {
		t.Errorf("dedupe() kept lines %v, want %v", lines, want)
	}
}

func TestSortDeclarations(t *testing.T) {
	decls := []model.RawDeclaration{
		{Name: "b", File: "z.hpp", Line: 1},
		{Name: "b", File: "a.hpp", Line: 2},
		{Name: "a", File: "a.hpp", Line: 2},
		{Name: "c", File: "a.hpp", Line: 1},
	}
	sortDeclarations(decls)

	var got []string
	for _, d := range decls {
		got = append(got, d.File+":"+d.Name)
	}
	want := []string{"a.hpp:c", "a.hpp:a", "a.hpp:b", "z.hpp:b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sortDeclarations() = %v, want %v", got, want)
	}
}

func TestExtract_Availability(t *testing.T) {
	_, err := Extract(context.Background(), nil, Options{Library: "lib"})
	if IsAvailable() {
		if err != nil {
			t.Errorf("Extract(no headers) error = %v", err)
		}
		return
	}
	if err != ErrNoCGO {
		t.Errorf("Extract() error = %v, want ErrNoCGO", err)
	}
}
