// Package parser implements the multi-language structural analyzers:
// each Analyze call turns one file's source into a flat list of
// domain.StructuralElement plus the file's import statements, handed
// to the chunker and the dependency graph.
//
// Every analyzer emits the same uniform domain.StructuralElement list
// regardless of source language, so the chunker and graph builder
// never branch on language themselves.
package parser

import (
	"fmt"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

// Analyzer turns one file's source bytes into structural elements and
// import statements.
type Analyzer interface {
	Analyze(path string, source []byte) ([]domain.StructuralElement, []domain.ImportStatement, error)
}

// Registry dispatches to the right Analyzer by language tag.
type Registry struct {
	analyzers map[domain.Language]Analyzer
}

// NewRegistry builds the default registry: tree-sitter analyzers for
// the languages with grammar bindings, a dedicated go/ast analyzer
// for Go, regex/line-scan analyzers for the remaining grammar-less
// languages, plus the non-AST Markdown/TOML analyzers and the
// blank-line splitter for YAML/JSON/HTML/shell.
func NewRegistry() *Registry {
	r := &Registry{analyzers: make(map[domain.Language]Analyzer)}

	r.analyzers[domain.LangPython] = newTreeSitterAnalyzer(pythonLang(), domain.LangPython, pythonNodeKinds)
	r.analyzers[domain.LangRuby] = newTreeSitterAnalyzer(rubyLang(), domain.LangRuby, rubyNodeKinds)
	r.analyzers[domain.LangRust] = newTreeSitterAnalyzer(rustLang(), domain.LangRust, rustNodeKinds)
	r.analyzers[domain.LangJava] = newTreeSitterAnalyzer(javaLang(), domain.LangJava, javaNodeKinds)
	r.analyzers[domain.LangC] = newTreeSitterAnalyzer(cLang(), domain.LangC, cNodeKinds)
	r.analyzers[domain.LangPHP] = newTreeSitterAnalyzer(phpLang(), domain.LangPHP, phpNodeKinds)
	r.analyzers[domain.LangTypeScript] = newTreeSitterAnalyzer(typescriptLang(), domain.LangTypeScript, tsNodeKinds)
	// The TypeScript grammar parses the JavaScript subset it shares
	// without error; no separate grammar ships in the pack.
	r.analyzers[domain.LangJavaScript] = newTreeSitterAnalyzer(typescriptLang(), domain.LangJavaScript, tsNodeKinds)

	// Go gets a dedicated go/ast analyzer rather than the regex
	// fallback, since the standard library already parses Go precisely.
	r.analyzers[domain.LangGo] = newGoAnalyzer()

	regex := newRegexAnalyzer()
	r.analyzers[domain.LangCPP] = regex
	r.analyzers[domain.LangCSharp] = regex
	r.analyzers[domain.LangSwift] = regex
	r.analyzers[domain.LangKotlin] = regex

	r.analyzers[domain.LangMarkdown] = newMarkdownAnalyzer()
	r.analyzers[domain.LangTOML] = newTOMLAnalyzer()
	r.analyzers[domain.LangGeneric] = newBlankLineAnalyzer()

	return r
}

// Analyze dispatches to the analyzer registered for lang. Unknown
// languages fall back to the blank-line splitter so every file still
// produces at least one structural element.
func (r *Registry) Analyze(lang domain.Language, path string, source []byte) ([]domain.StructuralElement, []domain.ImportStatement, error) {
	a, ok := r.analyzers[lang]
	if !ok {
		a = r.analyzers[domain.LangGeneric]
	}
	elements, imports, err := a.Analyze(path, source)
	if err != nil {
		return nil, nil, fmt.Errorf("parser: analyze %s: %w", path, err)
	}
	return elements, imports, nil
}
