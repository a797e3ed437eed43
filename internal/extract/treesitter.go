//go:build cgo

package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"abicompat/internal/model"
)

// Extractor parses headers one at a time. It is not safe for concurrent use.
type Extractor struct {
	parser *sitter.Parser
	opts   Options
}

// New creates an extractor.
func New(opts Options) *Extractor {
	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())
	return &Extractor{parser: parser, opts: opts}
}

// IsAvailable returns whether header extraction is available.
func IsAvailable() bool {
	return true
}

// ExtractFile reads and parses one header.
func (e *Extractor) ExtractFile(ctx context.Context, file string) ([]model.RawDeclaration, error) {
	source, err := readHeader(file)
	if err != nil {
		return nil, err
	}
	return e.ExtractSource(ctx, recordedPath(file, e.opts.Root), source)
}

// ExtractSource parses header source. file is recorded on every declaration.
func (e *Extractor) ExtractSource(ctx context.Context, file string, source []byte) ([]model.RawDeclaration, error) {
	tree, err := e.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", file, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		e.opts.logger().Warn("Header has syntax the parser could not read", "file", file)
	}

	w := &walker{src: source, file: file}
	w.walk(root, "")
	return w.out, nil
}

// classScope is the class whose body is being walked.
type classScope struct {
	name   string
	access string
}

func (c *classScope) visibility() string {
	if c == nil || c.access == "public" {
		return ""
	}
	return c.access
}

type walker struct {
	src  []byte
	file string
	out  []model.RawDeclaration
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return strings.Join(strings.Fields(n.Content(w.src)), " ")
}

func (w *walker) emit(n *sitter.Node, raw model.RawDeclaration) {
	raw.File = w.file
	raw.Line = int(n.StartPoint().Row) + 1
	w.out = append(w.out, raw)
}

// walk visits namespace-level declarations below n.
func (w *walker) walk(n *sitter.Node, ns string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "preproc_def":
			w.macro(c)
		case "preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "preproc_elifdef",
			"linkage_specification", "declaration_list":
			w.walk(c, ns)
		case "namespace_definition":
			name := c.ChildByFieldName("name")
			body := c.ChildByFieldName("body")
			// Anonymous namespaces have internal linkage.
			if name != nil && body != nil {
				w.walk(body, qualify(ns, w.text(name)))
			}
		case "class_specifier", "struct_specifier":
			w.class(c, ns, nil, nil)
		case "enum_specifier":
			w.enum(c, ns, nil)
		case "template_declaration":
			w.template(c, ns, nil)
		case "declaration":
			w.declaration(c, ns, nil, nil)
		case "function_definition":
			w.function(c, ns, nil, nil)
		}
	}
}

func (w *walker) macro(n *sitter.Node) {
	name := n.ChildByFieldName("name")
	value := strings.TrimSpace(w.text(n.ChildByFieldName("value")))
	if name == nil || value == "" {
		return
	}
	w.emit(n, model.RawDeclaration{
		Name:  w.text(name),
		Kind:  string(model.KindMacro),
		Value: model.StringValue(value),
	})
}

func (w *walker) enum(n *sitter.Node, ns string, owner *classScope) {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return
	}
	name := qualify(ns, w.text(nameNode))
	raw := model.RawDeclaration{
		Name:       name,
		Kind:       string(model.KindEnum),
		Underlying: w.text(n.ChildByFieldName("base")),
		Visibility: owner.visibility(),
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if t := n.Child(i).Type(); t == "class" || t == "struct" {
			raw.Scoped = true
		}
	}
	w.emit(n, raw)

	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		if m.Type() != "enumerator" {
			continue
		}
		member := model.RawDeclaration{
			Name: name + "::" + w.text(m.ChildByFieldName("name")),
			Kind: string(model.KindEnumMember),
		}
		if v := m.ChildByFieldName("value"); v != nil {
			member.Value = model.StringValue(w.text(v))
		}
		w.emit(m, member)
	}
}

func (w *walker) class(n *sitter.Node, ns string, owner *classScope, tmpl []string) {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return
	}
	if nameNode.Type() == "template_type" {
		return
	}

	name := qualify(ns, w.text(nameNode))
	raw := model.RawDeclaration{
		Name:           name,
		Kind:           string(model.KindClass),
		TemplateParams: tmpl,
		Visibility:     owner.visibility(),
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "virtual_specifier":
			if w.text(c) == "final" {
				raw.Qualifiers = append(raw.Qualifiers, "final")
			}
		case "base_class_clause":
			raw.Bases = w.bases(c, defaultAccess(n))
		}
	}
	w.emit(n, raw)

	w.classBody(body, &classScope{name: name, access: defaultAccess(n)})
}

// defaultAccess is the implicit member and base access of a class key.
func defaultAccess(n *sitter.Node) string {
	if n.Type() == "struct_specifier" {
		return "public"
	}
	return "private"
}

func (w *walker) bases(clause *sitter.Node, access string) []model.RawBase {
	var out []model.RawBase
	cur := model.RawBase{Access: access}
	for i := 0; i < int(clause.ChildCount()); i++ {
		c := clause.Child(i)
		switch {
		case c.Type() == "access_specifier":
			cur.Access = w.text(c)
		case c.Type() == "virtual" || w.text(c) == "virtual":
			cur.Virtual = true
		case c.Type() == "," || c.Type() == ":":
		case c.IsNamed():
			cur.Name = w.text(c)
			out = append(out, cur)
			cur = model.RawBase{Access: access}
		}
	}
	return out
}

func (w *walker) classBody(body *sitter.Node, scope *classScope) {
	ns := scope.name + "::"
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "access_specifier":
			scope.access = w.text(c)
		case "field_declaration":
			w.field(c, scope, nil)
		case "declaration":
			w.declaration(c, ns, scope, nil)
		case "function_definition":
			w.function(c, ns, scope, nil)
		case "template_declaration":
			w.template(c, ns, scope)
		case "preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "preproc_elifdef":
			w.classBody(c, scope)
		}
	}
}

// template visits a template declaration's inner declaration.
func (w *walker) template(n *sitter.Node, ns string, owner *classScope) {
	var params []string
	if list := n.ChildByFieldName("parameters"); list != nil {
		for i := 0; i < int(list.NamedChildCount()); i++ {
			if p := list.NamedChild(i); p.Type() != "comment" {
				params = append(params, w.text(p))
			}
		}
	}
	// Explicit specializations share the primary template's interface.
	if len(params) == 0 {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "class_specifier", "struct_specifier":
			w.class(c, ns, owner, params)
		case "declaration":
			w.declaration(c, ns, owner, params)
		case "field_declaration":
			if owner != nil {
				w.field(c, owner, params)
			}
		case "function_definition":
			w.function(c, ns, owner, params)
		}
	}
}

// field handles a class member without a body.
func (w *walker) field(n *sitter.Node, scope *classScope, tmpl []string) {
	if t := n.ChildByFieldName("type"); t != nil && t.ChildByFieldName("body") != nil {
		w.nestedType(t, scope)
	}

	decl := n.ChildByFieldName("declarator")
	if decl == nil {
		return
	}
	fn, suffix := unwrapDeclarator(w, decl)
	if fn != nil && fn.Type() == "function_declarator" {
		raw, ok := w.callable(n, fn, suffix, scope.name+"::", scope, tmpl)
		if !ok {
			return
		}
		if dv := n.ChildByFieldName("default_value"); dv != nil && w.text(dv) == "0" {
			raw.Qualifiers = append(raw.Qualifiers, "pure")
		}
		w.emit(n, raw)
		return
	}

	// Only static constants are interface; data members are layout.
	spec := w.specifiers(n)
	value := n.ChildByFieldName("default_value")
	if value == nil || !spec.has("static", "constexpr") || fn == nil {
		return
	}
	w.emit(n, model.RawDeclaration{
		Name:       scope.name + "::" + w.text(fn),
		Kind:       string(model.KindConstant),
		Owner:      scope.name,
		ReturnType: spec.typ + suffix,
		Qualifiers: spec.quals,
		Value:      model.StringValue(w.text(value)),
		Visibility: scope.visibility(),
	})
}

func (w *walker) nestedType(t *sitter.Node, scope *classScope) {
	switch t.Type() {
	case "class_specifier", "struct_specifier":
		w.class(t, scope.name+"::", scope, nil)
	case "enum_specifier":
		w.enum(t, scope.name+"::", scope)
	}
}

// declaration handles a declaration statement: function prototypes,
// constants and type definitions with a trailing semicolon.
func (w *walker) declaration(n *sitter.Node, ns string, scope *classScope, tmpl []string) {
	if t := n.ChildByFieldName("type"); t != nil && t.ChildByFieldName("body") != nil {
		if scope != nil {
			w.nestedType(t, scope)
		} else if t.Type() == "enum_specifier" {
			w.enum(t, ns, nil)
		} else {
			w.class(t, ns, nil, tmpl)
		}
	}
	if hasChild(n, "delete_method_clause") {
		return
	}

	decl := n.ChildByFieldName("declarator")
	if decl == nil {
		return
	}
	if decl.Type() == "init_declarator" {
		if scope == nil {
			w.constant(n, decl, ns)
		}
		return
	}

	fn, suffix := unwrapDeclarator(w, decl)
	if fn == nil || fn.Type() != "function_declarator" {
		return
	}
	raw, ok := w.callable(n, fn, suffix, ns, scope, tmpl)
	if ok {
		w.emit(n, raw)
	}
}

// constant handles a namespace-scope constexpr or const variable.
func (w *walker) constant(n, init *sitter.Node, ns string) {
	spec := w.specifiers(n)
	if !spec.has("constexpr") && !strings.HasPrefix(spec.typ, "const ") {
		return
	}
	inner, suffix := unwrapDeclarator(w, init.ChildByFieldName("declarator"))
	value := init.ChildByFieldName("value")
	if inner == nil || value == nil {
		return
	}
	w.emit(n, model.RawDeclaration{
		Name:       qualify(ns, w.text(inner)),
		Kind:       string(model.KindConstant),
		ReturnType: spec.typ + suffix,
		Qualifiers: spec.quals,
		Value:      model.StringValue(strings.Trim(w.text(value), "{} ")),
	})
}

// function handles a declaration with a body.
func (w *walker) function(n *sitter.Node, ns string, scope *classScope, tmpl []string) {
	if hasChild(n, "delete_method_clause") {
		return
	}
	decl := n.ChildByFieldName("declarator")
	fn, suffix := unwrapDeclarator(w, decl)
	if fn == nil || fn.Type() != "function_declarator" {
		return
	}
	// Out-of-line member definitions repeat a declaration made in the class.
	if scope == nil {
		if name := fn.ChildByFieldName("declarator"); name != nil && name.Type() == "qualified_identifier" {
			return
		}
	}

	raw, ok := w.callable(n, fn, suffix, ns, scope, tmpl)
	if !ok {
		return
	}
	if hasQualifier(raw.Qualifiers, "constexpr") || hasQualifier(raw.Qualifiers, "consteval") {
		if v, ok := w.returnedLiteral(n.ChildByFieldName("body")); ok {
			raw.Value = model.StringValue(v)
		}
	}
	w.emit(n, raw)
}

// callable builds a function, method or template record from a declaration
// node and its function declarator. suffix holds pointer and reference
// markers that belong to the return type.
func (w *walker) callable(n, fn *sitter.Node, suffix, ns string, scope *classScope, tmpl []string) (model.RawDeclaration, bool) {
	nameNode := fn.ChildByFieldName("declarator")
	if nameNode == nil {
		return model.RawDeclaration{}, false
	}
	spec := w.specifiers(n)
	if spec.friend {
		return model.RawDeclaration{}, false
	}

	raw := model.RawDeclaration{
		Name:           qualify(ns, w.text(nameNode)),
		Kind:           string(model.KindFunction),
		Qualifiers:     spec.quals,
		TemplateParams: tmpl,
	}
	if scope != nil {
		raw.Kind = string(model.KindMethod)
		raw.Visibility = scope.visibility()
	}
	if tmpl != nil {
		raw.Kind = string(model.KindTemplate)
		if scope != nil {
			raw.Owner = scope.name
		}
	}
	if spec.typ != "" {
		raw.ReturnType = spec.typ + suffix
	}

	if params := fn.ChildByFieldName("parameters"); params != nil {
		raw.Params = w.params(params)
	}
	for i := 0; i < int(fn.NamedChildCount()); i++ {
		c := fn.NamedChild(i)
		text := w.text(c)
		switch c.Type() {
		case "type_qualifier":
			if text == "const" {
				raw.Qualifiers = append(raw.Qualifiers, "const")
			}
		case "virtual_specifier":
			raw.Qualifiers = append(raw.Qualifiers, text)
		case "noexcept":
			if text == "noexcept" || text == "noexcept(true)" {
				raw.Qualifiers = append(raw.Qualifiers, "noexcept")
			}
		case "trailing_return_type":
			raw.ReturnType = strings.TrimSpace(strings.TrimPrefix(text, "->"))
		}
	}
	if hasChild(n, "pure_virtual_clause") {
		raw.Qualifiers = append(raw.Qualifiers, "pure")
	}
	return raw, true
}

func (w *walker) params(list *sitter.Node) []model.RawParam {
	var out []model.RawParam
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
		case "variadic_parameter_declaration":
			out = append(out, model.RawParam{Type: w.text(p)})
			continue
		default:
			continue
		}

		spec := w.specifiers(p)
		param := model.RawParam{Type: spec.typ}
		if decl := p.ChildByFieldName("declarator"); decl != nil {
			inner, suffix := unwrapDeclarator(w, decl)
			param.Type += suffix
			if inner != nil && inner.Type() == "identifier" {
				param.Name = w.text(inner)
			}
		}
		if dv := p.ChildByFieldName("default_value"); dv != nil {
			param.Default = w.text(dv)
			param.HasDefault = true
		}
		out = append(out, param)
	}
	if len(out) == 1 && out[0].Type == "void" && out[0].Name == "" {
		return nil
	}
	return out
}

// returnedLiteral returns the literal of a body consisting of a single
// return statement.
func (w *walker) returnedLiteral(body *sitter.Node) (string, bool) {
	if body == nil || body.NamedChildCount() != 1 {
		return "", false
	}
	ret := body.NamedChild(0)
	if ret.Type() != "return_statement" || ret.NamedChildCount() != 1 {
		return "", false
	}
	expr := ret.NamedChild(0)
	switch expr.Type() {
	case "number_literal", "true", "false", "string_literal", "char_literal", "null", "nullptr":
		return w.text(expr), true
	case "unary_expression":
		if arg := expr.ChildByFieldName("argument"); arg != nil && arg.Type() == "number_literal" {
			return w.text(expr), true
		}
	}
	return "", false
}

// declSpec is the specifier part of a declaration.
type declSpec struct {
	typ    string
	quals  []string
	friend bool
}

func (s declSpec) has(names ...string) bool {
	for _, n := range names {
		if hasQualifier(s.quals, n) {
			return true
		}
	}
	return false
}

// specifiers splits the children of n that precede its declarator into
// the type spelling and model qualifiers.
func (w *walker) specifiers(n *sitter.Node) declSpec {
	var spec declSpec
	var typ []string
	typeNode := n.ChildByFieldName("type")
	skip := []*sitter.Node{
		n.ChildByFieldName("declarator"),
		n.ChildByFieldName("body"),
		n.ChildByFieldName("default_value"),
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if sameNode(c, skip...) {
			continue
		}
		text := w.text(c)
		switch {
		case sameNode(c, typeNode):
			typ = append(typ, text)
		case c.Type() == "attribute_declaration" || c.Type() == "attribute_specifier":
			if strings.Contains(text, "deprecated") {
				spec.quals = append(spec.quals, "deprecated")
			}
		case text == "virtual" || text == "static" || text == "constexpr" || text == "consteval":
			spec.quals = append(spec.quals, text)
		case text == "friend":
			spec.friend = true
		case c.Type() == "type_qualifier" && (text == "const" || text == "volatile"):
			typ = append(typ, text)
		}
	}
	spec.typ = strings.Join(typ, " ")
	return spec
}

// unwrapDeclarator strips pointer, reference and grouping declarators and
// returns the innermost declarator with the markers it removed.
func unwrapDeclarator(w *walker, n *sitter.Node) (*sitter.Node, string) {
	var suffix string
	for n != nil {
		switch n.Type() {
		case "pointer_declarator", "abstract_pointer_declarator":
			suffix += "*"
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if c := n.NamedChild(i); c.Type() == "type_qualifier" {
					suffix += " " + w.text(c)
				}
			}
			n = n.ChildByFieldName("declarator")
		case "reference_declarator", "abstract_reference_declarator":
			if n.ChildCount() > 0 {
				suffix += n.Child(0).Type()
			}
			if n.NamedChildCount() == 0 {
				return nil, suffix
			}
			n = n.NamedChild(0)
		case "array_declarator", "abstract_array_declarator":
			suffix += "[" + w.text(n.ChildByFieldName("size")) + "]"
			n = n.ChildByFieldName("declarator")
		case "parenthesized_declarator", "attributed_declarator":
			if n.NamedChildCount() == 0 {
				return nil, suffix
			}
			n = n.NamedChild(0)
		default:
			return n, suffix
		}
	}
	return nil, suffix
}

func sameNode(c *sitter.Node, others ...*sitter.Node) bool {
	for _, o := range others {
		if o != nil && c.StartByte() == o.StartByte() && c.EndByte() == o.EndByte() && c.Type() == o.Type() {
			return true
		}
	}
	return false
}

func hasChild(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

func hasQualifier(quals []string, q string) bool {
	for _, have := range quals {
		if have == q {
			return true
		}
	}
	return false
}

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return strings.TrimSuffix(ns, "::") + "::" + name
}
