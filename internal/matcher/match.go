// Package matcher pairs declarations of two snapshots by symbol identity.
package matcher

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"abicompat/internal/model"
)

// Kind tags a SymbolMatch.
type Kind int

const (
	Matched Kind = iota
	Added
	Removed
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// SymbolMatch is one pairing result. Which fields are set depends on Kind:
// Matched has Old and New, Added has New, Removed has Old, Ambiguous has
// OldCandidates and NewCandidates. Values are never modified after creation.
type SymbolMatch struct {
	Kind             Kind
	Name             string
	Old              *model.Declaration
	New              *model.Declaration
	OldCandidates    []*model.Declaration
	NewCandidates    []*model.Declaration
	SignatureChanged bool
}

func NewMatched(oldDecl, newDecl *model.Declaration, signatureChanged bool) SymbolMatch {
	return SymbolMatch{Kind: Matched, Name: newDecl.Name, Old: oldDecl, New: newDecl, SignatureChanged: signatureChanged}
}

func NewAdded(d *model.Declaration) SymbolMatch {
	return SymbolMatch{Kind: Added, Name: d.Name, New: d}
}

func NewRemoved(d *model.Declaration) SymbolMatch {
	return SymbolMatch{Kind: Removed, Name: d.Name, Old: d}
}

func NewAmbiguous(name string, oldSet, newSet []*model.Declaration) SymbolMatch {
	return SymbolMatch{
		Kind:          Ambiguous,
		Name:          name,
		OldCandidates: append([]*model.Declaration(nil), oldSet...),
		NewCandidates: append([]*model.Declaration(nil), newSet...),
	}
}

// Identity is the sort key of the match within its name.
func (m SymbolMatch) Identity() string {
	switch m.Kind {
	case Matched, Removed:
		return m.Old.Identity()
	case Added:
		return m.New.Identity()
	default:
		if len(m.OldCandidates) > 0 {
			return m.OldCandidates[0].Identity()
		}
		if len(m.NewCandidates) > 0 {
			return m.NewCandidates[0].Identity()
		}
		return m.Name
	}
}

// Options tunes a Match run.
type Options struct {
	// Workers bounds the number of names matched concurrently.
	// Zero means runtime.NumCPU().
	Workers int
	// IncludePrivate keeps private non-virtual declarations.
	IncludePrivate bool
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.NumCPU()
	}
	return o.Workers
}

// Visible reports whether a declaration takes part in matching. Private
// virtual methods are kept because they still occupy vtable slots.
func Visible(d *model.Declaration, includePrivate bool) bool {
	return includePrivate || d.Visibility != model.Private || d.Virtual()
}

// Match computes the SymbolMatches between two snapshots, one task per
// qualified name. The result is sorted by name, then identity.
func Match(ctx context.Context, oldSnap, newSnap *model.Snapshot, opts Options) ([]SymbolMatch, error) {
	names := UnionNames(oldSnap, newSnap)
	results := make([][]SymbolMatch, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = MatchName(name,
				visibleSet(oldSnap.OverloadSet(name), opts.IncludePrivate),
				visibleSet(newSnap.OverloadSet(name), opts.IncludePrivate))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []SymbolMatch
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// UnionNames returns every qualified name present in either snapshot, sorted.
func UnionNames(oldSnap, newSnap *model.Snapshot) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range []*model.Snapshot{oldSnap, newSnap} {
		for _, n := range s.Names() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

func visibleSet(set []*model.Declaration, includePrivate bool) []*model.Declaration {
	out := make([]*model.Declaration, 0, len(set))
	for _, d := range set {
		if Visible(d, includePrivate) {
			out = append(out, d)
		}
	}
	return out
}
