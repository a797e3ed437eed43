package rules

import "abicompat/internal/model"

// Ambiguous reports whether some call accepts both a and b equally well:
// there is an argument count both accept, and at every position below it
// the parameter types agree once cv and reference qualification are
// dropped, while the declarations themselves differ.
func Ambiguous(a, b *model.Declaration) bool {
	if a.Identity() == b.Identity() || a.Has(model.Const) != b.Has(model.Const) {
		return false
	}
	lo := a.RequiredParams()
	if r := b.RequiredParams(); r > lo {
		lo = r
	}
	hi := len(a.Params)
	if len(b.Params) < hi {
		hi = len(b.Params)
	}
	for n := lo; n <= hi; n++ {
		same := true
		for i := 0; i < n; i++ {
			if model.BaseType(a.Params[i].Type) != model.BaseType(b.Params[i].Type) {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

// newAmbiguity returns the identity of a sibling overload that n is
// ambiguous with while o was not, or "".
func newAmbiguity(ctx EvalContext, o, n *model.Declaration) string {
	for _, s := range ctx.New.OverloadSet(n.Name) {
		if s == n {
			continue
		}
		if !Ambiguous(n, s) {
			continue
		}
		if prev := ctx.Old.Lookup(s.Identity()); prev != nil && Ambiguous(o, prev) {
			continue
		}
		return s.Identity()
	}
	return ""
}
