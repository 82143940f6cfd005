// Package extract parses TypeScript/JavaScript source text and produces the
// structured list of exported declarations plus any environment-variable
// imports, using a Tree-sitter parse-tree walk.
package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Extractor parses one file at a time. It is not safe for concurrent use;
// create one per worker.
type Extractor struct {
	parser *sitter.Parser
}

// New creates an Extractor backed by the TypeScript grammar. The grammar is a
// superset of JavaScript, so plain .js sources parse with it as well.
func New() *Extractor {
	p := sitter.NewParser()
	p.SetLanguage(typescript.GetLanguage())
	return &Extractor{parser: p}
}

// Extract parses fileText and returns all exported declarations and env-var
// imports found in it. filePath is recorded as the declaring file on every
// item. A file that cannot be parsed yields an empty result and an error;
// callers log it and move on.
func (e *Extractor) Extract(ctx context.Context, fileText []byte, filePath string) (*Result, error) {
	tree, err := e.parser.ParseCtx(ctx, nil, fileText)
	if err != nil {
		return &Result{}, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	defer tree.Close()

	w := &walker{
		src:    fileText,
		file:   filePath,
		locals: map[string]*Item{},
		seen:   map[string]bool{},
		envSet: map[string]bool{},
	}
	w.walkProgram(tree.RootNode())

	return &Result{Items: w.items, EnvVars: w.envVars}, nil
}

// walker accumulates per-file extraction state during one top-level pass.
type walker struct {
	src  []byte
	file string

	items   []*Item
	locals  map[string]*Item // every top-level declaration, exported or not
	seen    map[string]bool  // export names already emitted for this file
	envVars []string
	envSet  map[string]bool
}

// walkProgram visits the top-level statements only; exports and imports are
// top-level constructs, and keeping the walk shallow makes the docstring
// adjacency rule a direct sibling check.
func (w *walker) walkProgram(root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "export_statement":
			w.handleExport(n)
		case "import_statement":
			w.handleImport(n)
		case "function_declaration", "generator_function_declaration":
			if item := w.functionItem(n, docFor(n, w.src)); item != nil {
				w.locals[item.Name] = item
			}
		case "class_declaration", "abstract_class_declaration":
			if item := w.classItem(n, docFor(n, w.src)); item != nil {
				w.locals[item.Name] = item
			}
		case "lexical_declaration", "variable_declaration":
			for _, item := range w.variableItems(n, docFor(n, w.src)) {
				w.locals[item.Name] = item
			}
		}
	}
}

func (w *walker) emit(item *Item) {
	if item == nil || w.seen[item.Name] {
		return
	}
	w.seen[item.Name] = true
	w.items = append(w.items, item)
}

func (w *walker) handleExport(n *sitter.Node) {
	doc := docFor(n, w.src)

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		switch decl.Type() {
		case "function_declaration", "generator_function_declaration":
			item := w.functionItem(decl, doc)
			w.record(item)
		case "class_declaration", "abstract_class_declaration":
			item := w.classItem(decl, doc)
			w.record(item)
		case "lexical_declaration", "variable_declaration":
			for _, item := range w.variableItems(decl, doc) {
				w.record(item)
			}
		}
		return
	}

	// export { a, b as c } — resolve each listed name against declarations
	// already seen in this file; unresolvable names become placeholders so
	// they are never dropped silently.
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "export_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			spec := clause.NamedChild(j)
			if spec.Type() != "export_specifier" {
				continue
			}
			local := fieldContent(spec, "name", w.src)
			exported := fieldContent(spec, "alias", w.src)
			if exported == "" {
				exported = local
			}
			if local == "" {
				continue
			}
			if found, ok := w.locals[local]; ok {
				clone := *found
				clone.Name = exported
				clone.OriginalName = local
				w.emit(&clone)
				continue
			}
			w.emit(&Item{
				Name:         exported,
				Kind:         KindConstant,
				File:         w.file,
				OriginalName: local,
				Placeholder:  true,
			})
		}
	}
}

// record registers a directly exported declaration: it becomes both an
// emitted item and a local for later export-clause resolution.
func (w *walker) record(item *Item) {
	if item == nil {
		return
	}
	w.locals[item.Name] = item
	w.emit(item)
}

func (w *walker) handleImport(n *sitter.Node) {
	source := stripQuotes(fieldContent(n, "source", w.src))
	if source != PublicEnvSpecifier && source != PrivateEnvSpecifier {
		return
	}

	for _, name := range namedImports(n, w.src) {
		if !w.envSet[name] {
			w.envSet[name] = true
			w.envVars = append(w.envVars, name)
		}
	}
}

// namedImports returns the imported identifier names (not local aliases) of
// an import statement, in source order.
func namedImports(n *sitter.Node, src []byte) []string {
	var names []string
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "import_specifier" {
			if name := fieldContent(node, "name", src); name != "" {
				names = append(names, name)
			}
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(n)
	return names
}

func (w *walker) functionItem(n *sitter.Node, doc string) *Item {
	name := fieldContent(n, "name", w.src)
	if name == "" {
		return nil
	}
	return &Item{
		Name:         name,
		Kind:         KindFunction,
		File:         w.file,
		OriginalName: name,
		Doc:          doc,
		Func:         w.functionSig(n),
	}
}

func (w *walker) functionSig(n *sitter.Node) *FunctionSig {
	sig := &FunctionSig{
		IsAsync:    hasToken(n, "async"),
		TypeParams: fieldContent(n, "type_parameters", w.src),
		Params:     w.params(n.ChildByFieldName("parameters")),
		ReturnType: typeText(n.ChildByFieldName("return_type"), w.src),
	}
	if sig.Params == nil {
		sig.Params = []Param{}
	}
	return sig
}

func (w *walker) params(formal *sitter.Node) []Param {
	if formal == nil {
		return nil
	}
	var out []Param
	for i := 0; i < int(formal.NamedChildCount()); i++ {
		p := formal.NamedChild(i)
		switch p.Type() {
		case "required_parameter", "optional_parameter":
			name := fieldContent(p, "pattern", w.src)
			out = append(out, Param{
				Name:     name,
				Type:     typeText(p.ChildByFieldName("type"), w.src),
				Optional: p.Type() == "optional_parameter" || p.ChildByFieldName("value") != nil,
			})
		case "rest_parameter":
			name := "..." + namedChildContent(p, "identifier", w.src)
			out = append(out, Param{
				Name: name,
				Type: typeText(p.ChildByFieldName("type"), w.src),
			})
		case "identifier":
			// Plain JS parameter without annotations.
			out = append(out, Param{Name: p.Content(w.src)})
		}
	}
	return out
}

func (w *walker) classItem(n *sitter.Node, doc string) *Item {
	name := fieldContent(n, "name", w.src)
	if name == "" {
		return nil
	}

	sig := &ClassSig{TypeParams: fieldContent(n, "type_parameters", w.src)}
	w.classHeritage(n, sig)
	w.classBody(n.ChildByFieldName("body"), sig)

	return &Item{
		Name:         name,
		Kind:         KindClass,
		File:         w.file,
		OriginalName: name,
		Doc:          doc,
		Class:        sig,
	}
}

func (w *walker) classHeritage(n *sitter.Node, sig *ClassSig) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "class_heritage" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			clause := child.NamedChild(j)
			text := strings.TrimSpace(clause.Content(w.src))
			switch clause.Type() {
			case "extends_clause":
				sig.Extends = strings.TrimSpace(strings.TrimPrefix(text, "extends"))
			case "implements_clause":
				sig.Implements = strings.TrimSpace(strings.TrimPrefix(text, "implements"))
			}
		}
	}
}

func (w *walker) classBody(body *sitter.Node, sig *ClassSig) {
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_definition", "method_signature", "abstract_method_signature":
			name := fieldContent(member, "name", w.src)
			if name == "" {
				continue
			}
			if name == "constructor" {
				sig.CtorParams = w.params(member.ChildByFieldName("parameters"))
				continue
			}
			sig.Methods = append(sig.Methods, Method{
				Name:      name,
				Signature: w.methodSignature(member),
				IsStatic:  hasToken(member, "static"),
			})
		case "public_field_definition", "field_definition", "property_signature":
			name := fieldContent(member, "name", w.src)
			if name == "" {
				continue
			}
			sig.Properties = append(sig.Properties, Property{
				Name:       name,
				Type:       typeText(member.ChildByFieldName("type"), w.src),
				IsStatic:   hasToken(member, "static"),
				IsReadonly: hasToken(member, "readonly"),
			})
		}
	}
}

// methodSignature renders a method's parameter list and return type as
// written, e.g. "(name: string, times?: number): string".
func (w *walker) methodSignature(n *sitter.Node) string {
	var b strings.Builder
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		b.WriteString(tp.Content(w.src))
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		b.WriteString(params.Content(w.src))
	} else {
		b.WriteString("()")
	}
	if ret := typeText(n.ChildByFieldName("return_type"), w.src); ret != "" {
		b.WriteString(": ")
		b.WriteString(ret)
	}
	return b.String()
}

func (w *walker) variableItems(n *sitter.Node, doc string) []*Item {
	var out []*Item
	for i := 0; i < int(n.NamedChildCount()); i++ {
		declarator := n.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}
		name := fieldContent(declarator, "name", w.src)
		if name == "" {
			continue
		}

		// A const whose initializer is a function or arrow function is
		// treated exactly like a function declaration.
		if value := declarator.ChildByFieldName("value"); value != nil && isFunctionValue(value) {
			out = append(out, &Item{
				Name:         name,
				Kind:         KindFunction,
				File:         w.file,
				OriginalName: name,
				Doc:          doc,
				Func:         w.functionSig(value),
			})
			continue
		}

		out = append(out, &Item{
			Name:         name,
			Kind:         KindConstant,
			File:         w.file,
			OriginalName: name,
			Doc:          doc,
			ConstType:    typeText(declarator.ChildByFieldName("type"), w.src),
		})
	}
	return out
}

func isFunctionValue(n *sitter.Node) bool {
	switch n.Type() {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}

// docFor implements the docstring adjacency rule: the nearest preceding
// sibling must be a block comment ending on the line directly above the
// declaration (or the same line), with nothing in between.
func docFor(n *sitter.Node, src []byte) string {
	prev := n.PrevNamedSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	text := prev.Content(src)
	if !strings.HasPrefix(text, "/*") {
		return ""
	}
	if int(n.StartPoint().Row)-int(prev.EndPoint().Row) > 1 {
		return ""
	}
	return cleanBlockComment(text)
}

// cleanBlockComment strips the comment fences and per-line asterisk gutters
// from a JSDoc-style block comment.
func cleanBlockComment(text string) string {
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// typeText returns the annotation text of a type_annotation node with its
// leading colon removed, e.g. ": string" -> "string".
func typeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	text := strings.TrimSpace(n.Content(src))
	text = strings.TrimPrefix(text, ":")
	return strings.TrimSpace(text)
}

func fieldContent(n *sitter.Node, field string, src []byte) string {
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(src)
}

func namedChildContent(n *sitter.Node, childType string, src []byte) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == childType {
			return child.Content(src)
		}
	}
	return ""
}

// hasToken reports whether any direct child of n is the given keyword token,
// e.g. "async", "static", "readonly".
func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == token {
			return true
		}
	}
	return false
}

func stripQuotes(s string) string {
	return strings.Trim(s, "'\"`")
}
