package matcher

import (
	"sort"

	"abicompat/internal/model"
)

// MatchName pairs the overload sets of one qualified name. Both sets must
// be sorted by identity, as Snapshot.OverloadSet returns them.
//
// Pairing runs in passes: identical identities first, then unique
// candidates sharing arity, kind and owner, then a lone survivor on each
// side. Whatever is left on both sides becomes a single Ambiguous match.
func MatchName(name string, oldSet, newSet []*model.Declaration) []SymbolMatch {
	var out []SymbolMatch

	oldLeft := make([]*model.Declaration, 0, len(oldSet))
	newByID := make(map[string]*model.Declaration, len(newSet))
	for _, d := range newSet {
		newByID[d.Identity()] = d
	}
	for _, o := range oldSet {
		if n, ok := newByID[o.Identity()]; ok {
			out = append(out, NewMatched(o, n, false))
			delete(newByID, o.Identity())
			continue
		}
		oldLeft = append(oldLeft, o)
	}
	newLeft := make([]*model.Declaration, 0, len(newByID))
	for _, d := range newSet {
		if _, ok := newByID[d.Identity()]; ok {
			newLeft = append(newLeft, d)
		}
	}

	oldLeft, newLeft, paired := pairUniqueShapes(oldLeft, newLeft)
	out = append(out, paired...)

	if len(oldLeft) == 1 && len(newLeft) == 1 {
		out = append(out, NewMatched(oldLeft[0], newLeft[0], true))
		oldLeft, newLeft = nil, nil
	}

	switch {
	case len(oldLeft) > 0 && len(newLeft) > 0:
		out = append(out, NewAmbiguous(name, oldLeft, newLeft))
	case len(oldLeft) > 0:
		for _, o := range oldLeft {
			out = append(out, NewRemoved(o))
		}
	case len(newLeft) > 0:
		for _, n := range newLeft {
			out = append(out, NewAdded(n))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Identity() < out[j].Identity()
	})
	return out
}

// sameShape is the secondary pairing criterion.
func sameShape(a, b *model.Declaration) bool {
	return len(a.Params) == len(b.Params) && a.Kind == b.Kind && a.Owner == b.Owner
}

// pairUniqueShapes repeatedly pairs an old declaration with a new one when
// each is the other's only same-shape candidate.
func pairUniqueShapes(oldLeft, newLeft []*model.Declaration) ([]*model.Declaration, []*model.Declaration, []SymbolMatch) {
	var paired []SymbolMatch
	for progress := true; progress; {
		progress = false
		for i, o := range oldLeft {
			j := soleCandidate(o, newLeft)
			if j < 0 || soleCandidate(newLeft[j], oldLeft) != i {
				continue
			}
			paired = append(paired, NewMatched(o, newLeft[j], true))
			oldLeft = append(oldLeft[:i:i], oldLeft[i+1:]...)
			newLeft = append(newLeft[:j:j], newLeft[j+1:]...)
			progress = true
			break
		}
	}
	return oldLeft, newLeft, paired
}

// soleCandidate returns the index of the only declaration in set sharing
// d's shape, or -1 when there are none or several.
func soleCandidate(d *model.Declaration, set []*model.Declaration) int {
	found := -1
	for i, c := range set {
		if !sameShape(d, c) {
			continue
		}
		if found >= 0 {
			return -1
		}
		found = i
	}
	return found
}
