package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

func TestPythonAnalyzerExtractsClassAndFunction(t *testing.T) {
	src := `import os


class Widget:
    def render(self):
        return "ok"


def helper():
    pass
`
	r := NewRegistry()
	elements, imports, err := r.Analyze(domain.LangPython, "widget.py", []byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, imports)

	var names []string
	for _, el := range elements {
		names = append(names, el.Name)
	}
	assert.Contains(t, names, "Widget")
	assert.Contains(t, names, "helper")
}

func TestGoAnalyzerExtractsFunctionViaRegistry(t *testing.T) {
	src := `package main

import "fmt"

func main() {
	fmt.Println("hi")
}
`
	r := NewRegistry()
	elements, imports, err := r.Analyze(domain.LangGo, "main.go", []byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, imports)
	require.NotEmpty(t, elements)

	found := false
	for _, el := range elements {
		if el.Name == "main" && el.Kind == domain.KindFunction {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPythonAnalyzerVisibilityTiers(t *testing.T) {
	src := `class Widget:
    def __init__(self):
        pass

    def _shade(self):
        pass

    def __hide(self):
        pass

    def render(self):
        pass
`
	r := NewRegistry()
	elements, _, err := r.Analyze(domain.LangPython, "widget.py", []byte(src))
	require.NoError(t, err)

	vis := make(map[string]domain.Visibility)
	for _, el := range elements {
		vis[el.Name] = el.Visibility
	}
	assert.Equal(t, domain.VisPublic, vis["__init__"], "dunder is public")
	assert.Equal(t, domain.VisProtected, vis["_shade"])
	assert.Equal(t, domain.VisPrivate, vis["__hide"])
	assert.Equal(t, domain.VisPublic, vis["render"])
}

func TestPythonAnalyzerDocstringAndTestKind(t *testing.T) {
	src := `def test_render():
    """Renders the empty widget."""
    build()
`
	r := NewRegistry()
	elements, _, err := r.Analyze(domain.LangPython, "widget_test.py", []byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, elements)

	el := elements[0]
	assert.Equal(t, domain.KindTest, el.Kind)
	assert.Contains(t, el.DocComment, "Renders the empty widget")
	assert.Contains(t, el.References, "build")
}

func TestPythonAnalyzerModuleRootedSymbolPath(t *testing.T) {
	src := `class Widget:
    def render(self):
        pass
`
	r := NewRegistry()
	elements, _, err := r.Analyze(domain.LangPython, "src/ui/widget.py", []byte(src))
	require.NoError(t, err)

	paths := make(map[string]bool)
	for _, el := range elements {
		paths[el.SymbolPath] = true
	}
	assert.True(t, paths["widget.Widget"], "class path rooted in module, got %v", paths)
	assert.True(t, paths["widget.Widget.render"], "nested method path, got %v", paths)
}

func TestParseImportText(t *testing.T) {
	cases := []struct {
		in   string
		path string
		name string
	}{
		{"from os import path", "os", "path"},
		{"import a.b.C;", "a.b", "C"},
		{"use crate::auth::Token;", "crate::auth", "Token"},
		{`#include <stdio.h>`, "stdio.h", ""},
	}
	for _, tc := range cases {
		got := parseImportText(tc.in)
		assert.Equal(t, tc.path, got.Path, "path of %q", tc.in)
		assert.Equal(t, tc.name, got.Name, "name of %q", tc.in)
	}
}

func TestMarkdownAnalyzerSplitsOnHeaders(t *testing.T) {
	src := "# Title\nintro\n\n## Section A\nbody a\n\n## Section B\nbody b\n"
	r := NewRegistry()
	elements, _, err := r.Analyze(domain.LangMarkdown, "doc.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, elements, 3)
	assert.Equal(t, "Title", elements[0].Name)
	assert.Equal(t, "Section A", elements[1].Name)
	assert.Equal(t, "Section B", elements[2].Name)
}

func TestBlankLineAnalyzerSplitsOnDoubleBlank(t *testing.T) {
	src := "a: 1\nb: 2\n\n\nc: 3\nd: 4\n"
	r := NewRegistry()
	elements, _, err := r.Analyze(domain.LangGeneric, "config.yaml", []byte(src))
	require.NoError(t, err)
	require.Len(t, elements, 2)
}

func TestUnknownLanguageFallsBackToBlankLineSplitter(t *testing.T) {
	r := NewRegistry()
	elements, _, err := r.Analyze(domain.LangUnknown, "data.bin", []byte("x\ny\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, elements)
}
