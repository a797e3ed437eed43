package scipimport

import (
	"strings"

	"abicompat/internal/model"
)

// signature is what can be recovered from a declaration's display text.
type signature struct {
	returnType string
	params     []model.RawParam
	qualifiers []string
	value      *model.Value
}

// leadingSpecifiers are dropped from the return type and recorded as
// qualifiers where the model knows them.
var leadingSpecifiers = map[string]string{
	"virtual":        "virtual",
	"static":         "static",
	"constexpr":      "constexpr",
	"consteval":      "consteval",
	"inline":         "",
	"explicit":       "",
	"extern":         "",
	"friend":         "",
	"[[nodiscard]]":  "",
	"[[deprecated]]": "deprecated",
}

// builtinWords cannot be parameter names.
var builtinWords = map[string]bool{
	"int": true, "char": true, "short": true, "long": true, "float": true,
	"double": true, "bool": true, "void": true, "unsigned": true, "signed": true,
	"auto": true, "const": true, "volatile": true, "wchar_t": true,
}

// parseSignature extracts return type, parameters and qualifiers from a
// C++ declaration such as
// "virtual int DataProcessor::transform(int input, double factor = 1.0) const override".
// localName locates the parameter list.
func parseSignature(text, localName string) signature {
	var sig signature
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	if body := topLevelIndex(text, '{'); body >= 0 {
		text = strings.TrimSpace(text[:body])
	}

	open := nameCall(text, localName)
	if open < 0 {
		return sig
	}
	closeIdx := matchingParen(text, open)
	if closeIdx < 0 {
		return sig
	}

	prefix := strings.TrimSpace(text[:open])
	prefix = strings.TrimSpace(strings.TrimSuffix(prefix, localName))
	if i := strings.LastIndex(prefix, " "); i >= 0 && strings.HasSuffix(prefix, "::") {
		prefix = prefix[:i]
	} else if strings.HasSuffix(prefix, "::") {
		prefix = ""
	}
	var typeWords []string
	for _, w := range strings.Fields(prefix) {
		if q, ok := leadingSpecifiers[w]; ok {
			if q != "" {
				sig.qualifiers = append(sig.qualifiers, q)
			}
			continue
		}
		typeWords = append(typeWords, w)
	}
	sig.returnType = strings.Join(typeWords, " ")

	for _, p := range splitTopLevel(text[open+1:closeIdx], ',') {
		p = strings.TrimSpace(p)
		if p == "" || p == "void" {
			continue
		}
		sig.params = append(sig.params, parseParam(p))
	}

	suffix := strings.TrimSpace(text[closeIdx+1:])
	if i := strings.Index(suffix, "->"); i >= 0 {
		sig.returnType = strings.TrimSpace(suffix[i+2:])
		suffix = suffix[:i]
	}
	if i := topLevelIndex(suffix, '='); i >= 0 {
		if strings.TrimSpace(suffix[i+1:]) == "0" {
			sig.qualifiers = append(sig.qualifiers, "pure")
		}
		suffix = suffix[:i]
	}
	for _, w := range strings.Fields(suffix) {
		switch {
		case w == "const", w == "override", w == "final":
			sig.qualifiers = append(sig.qualifiers, w)
		case strings.HasPrefix(w, "noexcept"):
			if w == "noexcept" || w == "noexcept(true)" {
				sig.qualifiers = append(sig.qualifiers, "noexcept")
			}
		}
	}
	return sig
}

// parseValue reads "TYPE NAME = VALUE", "#define NAME VALUE" or
// "NAME = VALUE" forms for constants, macros and enumerators.
func parseValue(text, localName string) signature {
	var sig signature
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))

	if strings.HasPrefix(text, "#define") {
		rest := strings.TrimSpace(strings.TrimPrefix(text, "#define"))
		rest = strings.TrimSpace(strings.TrimPrefix(rest, localName))
		if rest != "" {
			sig.value = model.StringValue(rest)
		}
		return sig
	}

	decl := text
	if i := topLevelIndex(text, '='); i >= 0 {
		sig.value = model.StringValue(strings.TrimSpace(text[i+1:]))
		decl = strings.TrimSpace(text[:i])
	}
	decl = strings.TrimSpace(strings.TrimSuffix(decl, localName))
	var typeWords []string
	for _, w := range strings.Fields(decl) {
		if strings.HasSuffix(w, "::") {
			continue
		}
		if q, ok := leadingSpecifiers[w]; ok {
			if q != "" {
				sig.qualifiers = append(sig.qualifiers, q)
			}
			continue
		}
		typeWords = append(typeWords, w)
	}
	sig.returnType = strings.Join(typeWords, " ")
	return sig
}

func parseParam(p string) model.RawParam {
	var param model.RawParam
	if i := topLevelIndex(p, '='); i >= 0 {
		param.Default = strings.TrimSpace(p[i+1:])
		param.HasDefault = true
		p = strings.TrimSpace(p[:i])
	}
	end := len(p)
	start := end
	for start > 0 && isNameChar(p[start-1]) {
		start--
	}
	name := p[start:end]
	head := strings.TrimSpace(p[:start])
	if name != "" && head != "" && !builtinWords[name] && !isDigit(name[0]) && !strings.HasSuffix(head, "::") {
		param.Name = name
		param.Type = head
	} else {
		param.Type = p
	}
	return param
}

// nameCall finds the '(' that opens the parameter list following name.
func nameCall(text, name string) int {
	from := 0
	for {
		i := strings.Index(text[from:], name)
		if i < 0 {
			return -1
		}
		i += from
		j := i + len(name)
		before := i == 0 || !isNameChar(text[i-1]) || text[i-1] == '~'
		rest := strings.TrimLeft(text[j:], " ")
		if before && strings.HasPrefix(rest, "(") {
			return len(text) - len(rest)
		}
		from = j
	}
}

func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// topLevelIndex finds c outside any (), <>, [] or {} nesting.
func topLevelIndex(s string, c byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '<', '[':
			depth++
		case ')', '>', ']':
			depth--
		case '{':
			if depth == 0 && c == '{' {
				return i
			}
			depth++
		case '}':
			depth--
		default:
			if depth == 0 && s[i] == c {
				return i
			}
		}
	}
	return -1
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	for {
		i := topLevelIndex(s, sep)
		if i < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:i])
		s = s[i+1:]
	}
}

func isNameChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
