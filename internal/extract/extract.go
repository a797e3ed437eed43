// Package extract reads C++ headers with tree-sitter and produces raw
// declaration models. It needs cgo; without it every entry point reports
// ErrNoCGO.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/model"
	"abicompat/internal/paths"
	"abicompat/internal/slogutil"
)

// ErrNoCGO is returned when header extraction is unavailable due to missing CGO.
var ErrNoCGO = errors.New("header extraction requires CGO (tree-sitter)")

// HeaderPattern matches the header files a directory argument expands to.
const HeaderPattern = "**/*.{h,hh,hpp,hxx,h++,ipp}"

// Options configures an extraction.
type Options struct {
	// Root makes recorded file paths relative. Empty keeps paths as given.
	Root    string
	Library string
	Version string
	Logger  *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slogutil.NewDiscardLogger()
	}
	return o.Logger
}

// Extract parses every header and returns one document. Repeated
// declarations of the same symbol keep their first occurrence.
func Extract(ctx context.Context, headers []string, opts Options) (*model.Document, error) {
	e := New(opts)
	if e == nil {
		return nil, ErrNoCGO
	}

	doc := &model.Document{
		SchemaVersion: model.SchemaVersion,
		Library:       opts.Library,
		Version:       opts.Version,
	}
	for _, h := range headers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		decls, err := e.ExtractFile(ctx, h)
		if err != nil {
			return nil, err
		}
		doc.Declarations = append(doc.Declarations, decls...)
	}
	doc.Declarations = dedupe(doc.Declarations)
	sortDeclarations(doc.Declarations)
	opts.logger().Info("Extracted declarations", "headers", len(headers), "declarations", len(doc.Declarations))
	return doc, nil
}

// ExpandHeaders replaces directory arguments with the headers below them.
// File arguments are kept as given. The result is sorted and free of
// duplicates.
func ExpandHeaders(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, abierrors.New(abierrors.InputNotFound, fmt.Sprintf("header not found at %s", arg), err, nil)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(arg), HeaderPattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to list headers in %s: %w", arg, err)
		}
		for _, m := range matches {
			add(filepath.Join(arg, filepath.FromSlash(m)))
		}
	}
	sort.Strings(out)
	return out, nil
}

// IsHeader reports whether path has a C++ header extension.
func IsHeader(path string) bool {
	ok, _ := doublestar.Match("*.{h,hh,hpp,hxx,h++,ipp}", strings.ToLower(filepath.Base(path)))
	return ok
}

func readHeader(file string) ([]byte, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, abierrors.New(abierrors.InputNotFound, fmt.Sprintf("header not found at %s", file), err, nil)
		}
		return nil, fmt.Errorf("failed to read header %s: %w", file, err)
	}
	return data, nil
}

// recordedPath is the file path stored on declarations from file.
func recordedPath(file, root string) string {
	if root == "" {
		return filepath.ToSlash(file)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return filepath.ToSlash(file)
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return filepath.ToSlash(file)
	}
	if !paths.IsWithinRepo(abs, root) {
		return filepath.ToSlash(file)
	}
	rel, err := paths.CanonicalizePath(abs, root)
	if err != nil {
		return filepath.ToSlash(file)
	}
	return rel
}

// dedupeKey approximates the model identity: name, kind, parameter types
// and a trailing const.
func dedupeKey(d model.RawDeclaration) string {
	var b strings.Builder
	b.WriteString(d.Kind)
	b.WriteByte(' ')
	b.WriteString(d.Name)
	if model.Kind(d.Kind).Callable() {
		b.WriteByte('(')
		for i, p := range d.Params {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(model.NormalizeType(p.Type))
		}
		b.WriteByte(')')
		for _, q := range d.Qualifiers {
			if q == "const" {
				b.WriteString(" const")
			}
		}
	}
	return b.String()
}

func dedupe(decls []model.RawDeclaration) []model.RawDeclaration {
	seen := make(map[string]bool, len(decls))
	out := decls[:0]
	for _, d := range decls {
		key := dedupeKey(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

func sortDeclarations(decls []model.RawDeclaration) {
	sort.SliceStable(decls, func(i, j int) bool {
		a, b := decls[i], decls[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Name < b.Name
	})
}
