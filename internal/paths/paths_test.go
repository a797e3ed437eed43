package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLayout(t *testing.T) {
	root := filepath.FromSlash("/work/lib")
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"state dir", StateDir(root), filepath.Join(root, ".abicompat")},
		{"config", ConfigPath(root), filepath.Join(root, ".abicompat", "config.json")},
		{"history", HistoryPath(root), filepath.Join(root, ".abicompat", "history.db")},
		{"log", LogPath(root), filepath.Join(root, ".abicompat", "logs", "abicompat.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestEnsureStateDir(t *testing.T) {
	root := t.TempDir()
	dir, err := EnsureStateDir(root)
	if err != nil {
		t.Fatalf("EnsureStateDir failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected a directory")
	}

	if _, err := EnsureStateDir(root); err != nil {
		t.Errorf("second EnsureStateDir failed: %v", err)
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "elsewhere", "h.db")

	if got := Resolve(root, "", "fallback"); got != "fallback" {
		t.Errorf("Resolve(empty) = %q, want fallback", got)
	}
	if got := Resolve(root, abs, "fallback"); got != abs {
		t.Errorf("Resolve(abs) = %q, want %q", got, abs)
	}
	if got, want := Resolve(root, "out/h.db", ""), filepath.Join(root, "out", "h.db"); got != want {
		t.Errorf("Resolve(rel) = %q, want %q", got, want)
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	header := filepath.Join(root, "include", "core.hpp")
	if err := os.MkdirAll(filepath.Dir(header), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(header, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(header, root)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if got != "include/core.hpp" {
		t.Errorf("CanonicalizePath = %q, want include/core.hpp", got)
	}
}

func TestIsWithinRepo(t *testing.T) {
	root := t.TempDir()
	if !IsWithinRepo(filepath.Join(root, "a.hpp"), root) {
		t.Error("file under root should be within repo")
	}
	if IsWithinRepo(filepath.Dir(root), root) {
		t.Error("parent of root should not be within repo")
	}
}
