package model

import (
	"regexp"
	"strings"
)

var eastConst = regexp.MustCompile(`^([^*&]+?) const\s*(&{0,2})$`)

// NormalizeType canonicalizes a C++ type spelling so that equivalent
// spellings compare equal: whitespace is collapsed, pointer and reference
// declarators bind to the type, and "T const&" becomes "const T&".
func NormalizeType(t string) string {
	t = strings.Join(strings.Fields(t), " ")
	if t == "" {
		return ""
	}
	for _, sep := range []string{" *", " &"} {
		for strings.Contains(t, sep) {
			t = strings.ReplaceAll(t, sep, sep[1:])
		}
	}
	t = strings.ReplaceAll(t, "< ", "<")
	t = strings.ReplaceAll(t, " >", ">")
	t = strings.ReplaceAll(t, " ,", ",")
	if m := eastConst.FindStringSubmatch(t); m != nil && !strings.HasPrefix(m[1], "const ") {
		t = "const " + m[1] + m[2]
	}
	return t
}

// BaseType strips top-level cv and reference qualification, which do not
// take part in overload ranking for by-value and by-reference arguments.
func BaseType(t string) string {
	t = NormalizeType(t)
	t = strings.TrimSuffix(t, "&&")
	t = strings.TrimSuffix(t, "&")
	t = strings.TrimSuffix(t, " const")
	if strings.Contains(t, "*") {
		// const in "const char*" qualifies the pointee, not the parameter
		return t
	}
	for _, prefix := range []string{"const ", "volatile "} {
		t = strings.TrimPrefix(t, prefix)
	}
	return strings.TrimSpace(t)
}

// NormalizeValue canonicalizes a resolved constant value.
func NormalizeValue(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// Indirection splits a type into its pointee and trailing pointer or
// reference declarators, e.g. "const Base*" -> ("Base", "*").
func Indirection(t string) (pointee, declarators string) {
	t = NormalizeType(t)
	end := len(t)
	for end > 0 && (t[end-1] == '*' || t[end-1] == '&') {
		end--
	}
	pointee = strings.TrimPrefix(strings.TrimSpace(t[:end]), "const ")
	return pointee, t[end:]
}
