package parser

import (
	"go/ast"
	"go/doc"
	"go/parser"
	"go/token"
	"strings"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

// goAnalyzer is the dedicated structural analyzer for domain.LangGo. Unlike
// the regex fallback used for languages the pack ships no grammar for, Go
// gets a real go/ast walk: the toolchain that ships with the compiler is
// authoritative for Go syntax, so there is no reason to fall back to line
// scanning for the one language the standard library already parses.
type goAnalyzer struct{}

func newGoAnalyzer() *goAnalyzer { return &goAnalyzer{} }

func (a *goAnalyzer) Analyze(path string, source []byte) ([]domain.StructuralElement, []domain.ImportStatement, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, source, parser.ParseComments)
	if err != nil {
		return nil, nil, err
	}

	lines := strings.Split(string(source), "\n")
	pkgName := file.Name.Name

	var imports []domain.ImportStatement
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		name := ""
		if imp.Name != nil {
			name = imp.Name.Name
		}
		imports = append(imports, domain.ImportStatement{
			Path: importPath,
			Name: name,
			Line: fset.Position(imp.Pos()).Line,
		})
	}

	var elements []domain.StructuralElement
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok == token.TYPE {
				for _, spec := range d.Specs {
					typeSpec, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					elements = append(elements, goTypeElement(typeSpec, d, fset, pkgName, lines))
				}
			}
			if d.Tok == token.CONST || d.Tok == token.VAR {
				for _, spec := range d.Specs {
					valueSpec, ok := spec.(*ast.ValueSpec)
					if !ok {
						continue
					}
					for _, name := range valueSpec.Names {
						if name.Name == "_" {
							continue
						}
						elements = append(elements, goConstElement(name, d, fset, pkgName, lines))
					}
				}
			}
		case *ast.FuncDecl:
			elements = append(elements, goFuncElement(d, fset, pkgName, lines))
		}
	}

	if len(elements) == 0 {
		elements = append(elements, wholeFileElement(path, lines))
	}

	return elements, imports, nil
}

func goTypeElement(spec *ast.TypeSpec, decl *ast.GenDecl, fset *token.FileSet, pkgName string, lines []string) domain.StructuralElement {
	name := spec.Name.Name
	start := fset.Position(decl.Pos()).Line
	end := fset.Position(decl.End()).Line

	kind := domain.KindTypeDef
	var implements []string
	switch t := spec.Type.(type) {
	case *ast.InterfaceType:
		kind = domain.KindTrait
		implements = embeddedInterfaceNames(t)
	case *ast.StructType:
		kind = domain.KindClass
	}

	return domain.StructuralElement{
		SymbolPath: pkgName + domain.LangGo.SymbolSeparator() + name,
		Name:       name,
		Kind:       kind,
		Visibility: goVisibility(name),
		LineStart:  start,
		LineEnd:    end,
		Content:    extractLines(lines, start, end),
		DocComment: docText(spec.Doc, decl.Doc),
		Implements: implements,
	}
}

func goConstElement(name *ast.Ident, decl *ast.GenDecl, fset *token.FileSet, pkgName string, lines []string) domain.StructuralElement {
	start := fset.Position(decl.Pos()).Line
	end := fset.Position(decl.End()).Line

	return domain.StructuralElement{
		SymbolPath: pkgName + domain.LangGo.SymbolSeparator() + name.Name,
		Name:       name.Name,
		Kind:       domain.KindConst,
		Visibility: goVisibility(name.Name),
		LineStart:  start,
		LineEnd:    end,
		Content:    extractLines(lines, start, end),
		DocComment: docText(decl.Doc),
	}
}

func goFuncElement(decl *ast.FuncDecl, fset *token.FileSet, pkgName string, lines []string) domain.StructuralElement {
	name := decl.Name.Name
	start := fset.Position(decl.Pos()).Line
	end := fset.Position(decl.End()).Line

	symbolPath := pkgName + domain.LangGo.SymbolSeparator() + name
	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		recv := receiverTypeName(decl.Recv.List[0].Type)
		symbolPath = pkgName + domain.LangGo.SymbolSeparator() + recv + "." + name
	}

	kind := domain.KindFunction
	if strings.HasPrefix(name, "Test") || strings.HasPrefix(name, "Benchmark") || strings.HasPrefix(name, "Example") {
		kind = domain.KindTest
	}

	return domain.StructuralElement{
		SymbolPath: symbolPath,
		Name:       name,
		Kind:       kind,
		Visibility: goVisibility(name),
		LineStart:  start,
		LineEnd:    end,
		Content:    extractLines(lines, start, end),
		DocComment: docText(decl.Doc),
		References: goCallReferences(decl.Body),
	}
}

// goCallReferences walks a function body for call-site identifiers:
// best-effort selector/ident resolution, no type checking.
func goCallReferences(body *ast.BlockStmt) []string {
	if body == nil {
		return nil
	}
	seen := make(map[string]bool)
	var refs []string
	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		name := calleeName(call.Fun)
		if name == "" || seen[name] {
			return true
		}
		seen[name] = true
		refs = append(refs, name)
		return true
	})
	return refs
}

func calleeName(fun ast.Expr) string {
	switch f := fun.(type) {
	case *ast.Ident:
		return f.Name
	case *ast.SelectorExpr:
		if ident, ok := f.X.(*ast.Ident); ok {
			return ident.Name + "." + f.Sel.Name
		}
		return f.Sel.Name
	}
	return ""
}

func embeddedInterfaceNames(iface *ast.InterfaceType) []string {
	if iface.Methods == nil {
		return nil
	}
	var names []string
	for _, field := range iface.Methods.List {
		if len(field.Names) != 0 {
			continue
		}
		switch t := field.Type.(type) {
		case *ast.Ident:
			names = append(names, t.Name)
		case *ast.SelectorExpr:
			names = append(names, t.Sel.Name)
		}
	}
	return names
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name
		}
	}
	return "unknown"
}

func goVisibility(name string) domain.Visibility {
	if name == "" {
		return domain.VisPrivate
	}
	if r := []rune(name)[0]; r >= 'A' && r <= 'Z' {
		return domain.VisPublic
	}
	return domain.VisPrivate
}

func docText(groups ...*ast.CommentGroup) string {
	for _, g := range groups {
		if g != nil {
			return strings.TrimSpace(doc.Synopsis(g.Text()))
		}
	}
	return ""
}
