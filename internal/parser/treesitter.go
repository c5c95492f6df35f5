package parser

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

func pythonLang() *sitter.Language     { return sitter.NewLanguage(python.Language()) }
func rubyLang() *sitter.Language       { return sitter.NewLanguage(ruby.Language()) }
func rustLang() *sitter.Language       { return sitter.NewLanguage(rust.Language()) }
func javaLang() *sitter.Language       { return sitter.NewLanguage(java.Language()) }
func cLang() *sitter.Language          { return sitter.NewLanguage(c.Language()) }
func phpLang() *sitter.Language        { return sitter.NewLanguage(php.LanguagePHP()) }
func typescriptLang() *sitter.Language { return sitter.NewLanguage(typescript.LanguageTypescript()) }

// nodeKindTable maps a tree-sitter node kind to the StructuralElement
// kind it represents. Node kinds absent from the table are still
// walked (their children may match) but never themselves emitted.
type nodeKindTable map[string]domain.ChunkKind

var (
	pythonNodeKinds = nodeKindTable{
		"class_definition":    domain.KindClass,
		"function_definition": domain.KindFunction,
	}
	rubyNodeKinds = nodeKindTable{
		"class":  domain.KindClass,
		"module": domain.KindModule,
		"method": domain.KindFunction,
	}
	rustNodeKinds = nodeKindTable{
		"struct_item":   domain.KindTypeDef,
		"enum_item":     domain.KindTypeDef,
		"trait_item":    domain.KindTrait,
		"impl_item":     domain.KindImpl,
		"function_item": domain.KindFunction,
		"const_item":    domain.KindConst,
		"static_item":   domain.KindConst,
	}
	javaNodeKinds = nodeKindTable{
		"class_declaration":     domain.KindClass,
		"interface_declaration": domain.KindTrait,
		"enum_declaration":      domain.KindTypeDef,
		"method_declaration":    domain.KindFunction,
	}
	cNodeKinds = nodeKindTable{
		"struct_specifier":    domain.KindTypeDef,
		"union_specifier":     domain.KindTypeDef,
		"enum_specifier":      domain.KindTypeDef,
		"function_definition": domain.KindFunction,
	}
	phpNodeKinds = nodeKindTable{
		"class_declaration":     domain.KindClass,
		"interface_declaration": domain.KindTrait,
		"trait_declaration":     domain.KindTrait,
		"function_definition":   domain.KindFunction,
		"method_declaration":    domain.KindFunction,
	}
	tsNodeKinds = nodeKindTable{
		"class_declaration":      domain.KindClass,
		"interface_declaration":  domain.KindTrait,
		"type_alias_declaration": domain.KindTypeDef,
		"function_declaration":   domain.KindFunction,
		"method_definition":      domain.KindFunction,
	}
)

var importKindsByNode = map[string]bool{
	"import_statement":          true,
	"import_from_statement":     true,
	"use_declaration":           true,
	"import_declaration":        true,
	"namespace_use_declaration": true,
	"preproc_include":           true,
}

// callKindsByNode lists the node kinds treated as call sites when
// collecting best-effort reference names.
var callKindsByNode = map[string]bool{
	"call":                     true, // python, ruby
	"call_expression":          true, // rust, ts, c
	"method_invocation":        true, // java
	"function_call_expression": true, // php
}

// treeSitterAnalyzer is a generic structural extractor driven by a
// per-language node-kind table: any node whose Kind() is a table key
// becomes one domain.StructuralElement, named via its "name" field
// (falling back to the first identifier child), rooted in a module
// name derived from the file path, with language-specific visibility
// mapping, doc-comment extraction, and test-kind detection.
type treeSitterAnalyzer struct {
	lang      *sitter.Language
	langTag   domain.Language
	nodeKinds nodeKindTable
}

func newTreeSitterAnalyzer(lang *sitter.Language, langTag domain.Language, kinds nodeKindTable) *treeSitterAnalyzer {
	return &treeSitterAnalyzer{lang: lang, langTag: langTag, nodeKinds: kinds}
}

// moduleNameFromPath derives the FQN root from a file path: the file
// name without its extension ("src/auth/service.py" -> "service").
func moduleNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (a *treeSitterAnalyzer) Analyze(path string, source []byte) ([]domain.StructuralElement, []domain.ImportStatement, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(a.lang)

	tree := p.Parse(source, nil)
	if tree == nil {
		return nil, nil, nil
	}
	defer tree.Close()

	lines := strings.Split(string(source), "\n")
	sep := a.langTag.SymbolSeparator()
	module := moduleNameFromPath(path)

	var elements []domain.StructuralElement
	var imports []domain.ImportStatement
	stack := []string{module} // enclosing symbol path components

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		kind := n.Kind()

		if importKindsByNode[kind] {
			stmt := parseImportText(nodeText(n, source))
			stmt.Line = int(n.StartPosition().Row) + 1
			imports = append(imports, stmt)
		}

		if ck, ok := a.nodeKinds[kind]; ok {
			name := fieldName(n, source)
			if name != "" {
				startLine := int(n.StartPosition().Row) + 1
				endLine := int(n.EndPosition().Row) + 1
				el := domain.StructuralElement{
					SymbolPath: strings.Join(stack, sep) + sep + name,
					Name:       name,
					Kind:       elementKind(ck, name, n, source, a.langTag),
					Visibility: a.visibility(name, n, source),
					LineStart:  startLine,
					LineEnd:    endLine,
					Content:    extractLines(lines, startLine, endLine),
					DocComment: docCommentFor(n, source, a.langTag),
					References: callReferences(n, source),
					Extends:    extendsNames(n, source),
					Implements: implementsNames(n, source),
				}
				elements = append(elements, el)

				if ck == domain.KindClass || ck == domain.KindTrait || ck == domain.KindImpl || ck == domain.KindModule {
					stack = append(stack, name)
					for i := uint(0); i < n.ChildCount(); i++ {
						visit(n.Child(i))
					}
					stack = stack[:len(stack)-1]
					return
				}
			}
		}

		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}

	visit(tree.RootNode())

	if len(elements) == 0 {
		elements = append(elements, wholeFileElement(path, lines))
	}

	return elements, imports, nil
}

// elementKind upgrades a table kind to KindTest when language
// conventions mark the definition as a test: a test_/Test name prefix,
// or (Rust) a #[test] attribute on the item.
func elementKind(ck domain.ChunkKind, name string, n *sitter.Node, source []byte, lang domain.Language) domain.ChunkKind {
	if ck != domain.KindFunction {
		return ck
	}
	if strings.HasPrefix(name, "test_") || strings.HasPrefix(name, "Test") {
		return domain.KindTest
	}
	if lang == domain.LangRust && hasRustTestAttribute(n, source) {
		return domain.KindTest
	}
	return ck
}

func hasRustTestAttribute(n *sitter.Node, source []byte) bool {
	for prev := n.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		kind := prev.Kind()
		if kind != "attribute_item" {
			break
		}
		if strings.Contains(nodeText(prev, source), "test") {
			return true
		}
	}
	return false
}

// visibility maps a definition to the common tag set using the
// language's conventions.
func (a *treeSitterAnalyzer) visibility(name string, n *sitter.Node, source []byte) domain.Visibility {
	switch a.langTag {
	case domain.LangPython:
		if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
			return domain.VisPublic // dunder
		}
		if strings.HasPrefix(name, "__") {
			return domain.VisPrivate
		}
		if strings.HasPrefix(name, "_") {
			return domain.VisProtected
		}
		return domain.VisPublic

	case domain.LangRust:
		switch {
		case hasChildOfKindWithText(n, source, "visibility_modifier", "pub(crate)"):
			return domain.VisCrate
		case hasChildOfKind(n, "visibility_modifier"):
			return domain.VisPublic
		default:
			return domain.VisPrivate
		}

	case domain.LangJava, domain.LangCSharp:
		mods := modifierText(n, source)
		switch {
		case strings.Contains(mods, "public"):
			return domain.VisPublic
		case strings.Contains(mods, "private"):
			return domain.VisPrivate
		case strings.Contains(mods, "protected"):
			return domain.VisProtected
		default:
			return domain.VisCrate // package-private default
		}

	case domain.LangC:
		if strings.Contains(firstLineOf(n, source), "static") {
			return domain.VisPrivate
		}
		return domain.VisPublic

	case domain.LangTypeScript, domain.LangJavaScript, domain.LangPHP:
		mods := modifierText(n, source)
		switch {
		case strings.Contains(mods, "private") || strings.HasPrefix(name, "#"):
			return domain.VisPrivate
		case strings.Contains(mods, "protected"):
			return domain.VisProtected
		default:
			return domain.VisPublic
		}

	default:
		if strings.HasPrefix(name, "_") {
			return domain.VisPrivate
		}
		return domain.VisPublic
	}
}

func hasChildOfKind(n *sitter.Node, kind string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		if n.Child(i).Kind() == kind {
			return true
		}
	}
	return false
}

func hasChildOfKindWithText(n *sitter.Node, source []byte, kind, text string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child.Kind() == kind && strings.ReplaceAll(nodeText(child, source), " ", "") == text {
			return true
		}
	}
	return false
}

// modifierText returns the concatenated text of any "modifiers"
// children (Java, PHP, TS class members).
func modifierText(n *sitter.Node, source []byte) string {
	var parts []string
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		kind := child.Kind()
		if kind == "modifiers" || kind == "modifier" || strings.HasSuffix(kind, "_modifier") {
			parts = append(parts, nodeText(child, source))
		}
	}
	return strings.Join(parts, " ")
}

func firstLineOf(n *sitter.Node, source []byte) string {
	text := nodeText(n, source)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

// docCommentFor extracts the doc comment directly preceding the
// declaration: contiguous comment siblings above it, or (Python) a
// string expression as the first statement of the body.
func docCommentFor(n *sitter.Node, source []byte, lang domain.Language) string {
	if lang == domain.LangPython {
		if doc := pythonDocstring(n, source); doc != "" {
			return doc
		}
	}

	var commentLines []string
	for prev := n.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		kind := prev.Kind()
		if kind == "attribute_item" || kind == "decorator" {
			continue // attributes sit between doc comment and item
		}
		if !strings.Contains(kind, "comment") {
			break
		}
		commentLines = append([]string{cleanCommentText(nodeText(prev, source))}, commentLines...)
	}
	return strings.TrimSpace(strings.Join(commentLines, "\n"))
}

func pythonDocstring(n *sitter.Node, source []byte) string {
	body := n.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first == nil || first.Kind() != "expression_statement" {
		return ""
	}
	if first.ChildCount() == 0 || first.Child(0).Kind() != "string" {
		return ""
	}
	text := nodeText(first.Child(0), source)
	text = strings.Trim(text, "\"'")
	return strings.TrimSpace(text)
}

// cleanCommentText strips comment markers (///, //!, /** */, //, #)
// from one comment's raw text.
func cleanCommentText(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "///")
		line = strings.TrimPrefix(line, "//!")
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimPrefix(line, "/**")
		line = strings.TrimPrefix(line, "/*")
		line = strings.TrimSuffix(line, "*/")
		line = strings.TrimPrefix(strings.TrimSpace(line), "*")
		line = strings.TrimPrefix(line, "#")
		out = append(out, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// callReferences collects the callee names of call sites inside the
// element's subtree, deduplicated, name-only (not type-resolved).
func callReferences(root *sitter.Node, source []byte) []string {
	seen := make(map[string]bool)
	var refs []string

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if callKindsByNode[n.Kind()] {
			if name := calleeNameOf(n, source); name != "" && !seen[name] {
				seen[name] = true
				refs = append(refs, name)
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	for i := uint(0); i < root.ChildCount(); i++ {
		walk(root.Child(i))
	}
	return refs
}

// calleeNameOf extracts the called name from a call node: the
// "function"/"name" field's trailing identifier segment.
func calleeNameOf(n *sitter.Node, source []byte) string {
	target := n.ChildByFieldName("function")
	if target == nil {
		target = n.ChildByFieldName("name")
	}
	if target == nil && n.ChildCount() > 0 {
		target = n.Child(0)
	}
	if target == nil {
		return ""
	}
	text := nodeText(target, source)
	// "obj.method" / "Type::method" -> "method"
	for _, sep := range []string{"::", ".", "->"} {
		if i := strings.LastIndex(text, sep); i >= 0 {
			text = text[i+len(sep):]
		}
	}
	if text == "" || strings.ContainsAny(text, "({[ \t\n") {
		return ""
	}
	return text
}

// extendsNames returns the superclass names from a declaration's
// superclass/superclasses field, best-effort.
func extendsNames(n *sitter.Node, source []byte) []string {
	for _, field := range []string{"superclass", "superclasses"} {
		if sc := n.ChildByFieldName(field); sc != nil {
			return identifierNames(sc, source)
		}
	}
	return nil
}

// implementsNames returns implemented-interface names from an
// "interfaces" field (Java) or similar clause, best-effort.
func implementsNames(n *sitter.Node, source []byte) []string {
	if ifs := n.ChildByFieldName("interfaces"); ifs != nil {
		return identifierNames(ifs, source)
	}
	return nil
}

func identifierNames(n *sitter.Node, source []byte) []string {
	var names []string
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if strings.HasSuffix(node.Kind(), "identifier") {
			names = append(names, nodeText(node, source))
			return
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walk(node.Child(i))
		}
	}
	walk(n)
	return names
}

// parseImportText splits one raw import statement into a module path
// and an optional imported name, across the supported syntaxes:
// "from a.b import C", "import a.b.C;", "use a::b::C;",
// "#include <x.h>", "use A\B\C;".
func parseImportText(text string) domain.ImportStatement {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))

	if strings.HasPrefix(text, "#include") {
		path := strings.Trim(strings.TrimSpace(strings.TrimPrefix(text, "#include")), `<>"`)
		return domain.ImportStatement{Path: path}
	}

	if strings.HasPrefix(text, "from ") {
		rest := strings.TrimPrefix(text, "from ")
		if i := strings.Index(rest, " import "); i >= 0 {
			name := strings.TrimSpace(rest[i+len(" import "):])
			if j := strings.IndexAny(name, ", "); j >= 0 {
				name = name[:j]
			}
			return domain.ImportStatement{Path: strings.TrimSpace(rest[:i]), Name: name}
		}
	}

	for _, prefix := range []string{"import ", "use "} {
		if strings.HasPrefix(text, prefix) {
			rest := strings.TrimSpace(strings.TrimPrefix(text, prefix))
			if i := strings.Index(rest, " as "); i >= 0 {
				rest = strings.TrimSpace(rest[:i])
			}
			for _, sep := range []string{"::", ".", `\`} {
				if i := strings.LastIndex(rest, sep); i >= 0 {
					return domain.ImportStatement{Path: rest[:i], Name: rest[i+len(sep):]}
				}
			}
			return domain.ImportStatement{Path: rest}
		}
	}

	return domain.ImportStatement{Path: text}
}

func fieldName(n *sitter.Node, source []byte) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return nodeText(name, source)
	}
	// Fall back to the first identifier-like child, covering grammars
	// (e.g. C's function_definition) that nest the name under a
	// declarator rather than exposing a direct "name" field.
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if strings.Contains(child.Kind(), "identifier") {
			return nodeText(child, source)
		}
		if strings.Contains(child.Kind(), "declarator") {
			if inner := fieldName(child, source); inner != "" {
				return inner
			}
		}
	}
	return ""
}

func nodeText(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return string(source[n.StartByte():n.EndByte()])
}

func extractLines(lines []string, startLine, endLine int) string {
	if startLine < 1 || startLine > len(lines) {
		return ""
	}
	start := startLine - 1
	end := endLine
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// wholeFileElement is the fallback for a file whose grammar produced
// no recognised top-level constructs (a header-only file, a script
// consisting only of statements).
func wholeFileElement(path string, lines []string) domain.StructuralElement {
	return domain.StructuralElement{
		SymbolPath: path,
		Name:       path,
		Kind:       domain.KindTopLevel,
		Visibility: domain.VisPublic,
		LineStart:  1,
		LineEnd:    len(lines),
		Content:    strings.Join(lines, "\n"),
	}
}
