package loader

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/model"
)

// Scope restricts a model to declarations whose file matches Include (when
// set) and does not match Exclude. Patterns use doublestar syntax, e.g.
// "include/**/*.hpp". Declarations without a file are always kept.
type Scope struct {
	Include []string
	Exclude []string
}

// Empty reports whether the scope keeps everything.
func (s Scope) Empty() bool {
	return len(s.Include) == 0 && len(s.Exclude) == 0
}

// Validate checks every pattern.
func (s Scope) Validate() error {
	for _, list := range [][]string{s.Include, s.Exclude} {
		for _, p := range list {
			if !doublestar.ValidatePattern(p) {
				return abierrors.New(abierrors.ConfigInvalid, fmt.Sprintf("invalid scope pattern %q", p), nil,
					[]abierrors.FixAction{{Type: abierrors.EditInput, Description: "Fix the --include/--exclude globs or scope.include/scope.exclude in .abicompat/config.json"}})
			}
		}
	}
	return nil
}

// Filter returns the declarations inside the scope, preserving order.
func (s Scope) Filter(decls []model.RawDeclaration) []model.RawDeclaration {
	if s.Empty() {
		return decls
	}
	out := make([]model.RawDeclaration, 0, len(decls))
	for _, d := range decls {
		if s.Contains(d.File) {
			out = append(out, d)
		}
	}
	return out
}

// Contains reports whether a declaration from file is in scope.
func (s Scope) Contains(file string) bool {
	if file == "" {
		return true
	}
	file = filepath.ToSlash(file)
	if len(s.Include) > 0 && !matchAny(s.Include, file) {
		return false
	}
	return !matchAny(s.Exclude, file)
}

func matchAny(patterns []string, file string) bool {
	for _, p := range patterns {
		if matched, _ := doublestar.Match(p, file); matched {
			return true
		}
	}
	return false
}
