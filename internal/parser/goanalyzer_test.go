package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

const goFixture = `package widget

import (
	"fmt"
)

// Widget renders a thing.
type Widget struct {
	Name string
}

// Renderer can render itself.
type Renderer interface {
	Render() string
}

const defaultName = "anon"

// Render implements Renderer for Widget.
func (w *Widget) Render() string {
	return fmt.Sprintf("widget:%s", w.Name)
}

func helper() string {
	return defaultName
}

func TestWidgetRender(t *testing.T) {
}
`

func TestGoAnalyzerExtractsStructAndInterface(t *testing.T) {
	a := newGoAnalyzer()
	elements, imports, err := a.Analyze("widget.go", []byte(goFixture))
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, "fmt", imports[0].Path)

	byName := make(map[string]domain.StructuralElement)
	for _, el := range elements {
		byName[el.Name] = el
	}

	widget, ok := byName["Widget"]
	require.True(t, ok)
	assert.Equal(t, domain.KindClass, widget.Kind)
	assert.Equal(t, domain.VisPublic, widget.Visibility)
	assert.Equal(t, "widget.Widget", widget.SymbolPath)

	renderer, ok := byName["Renderer"]
	require.True(t, ok)
	assert.Equal(t, domain.KindTrait, renderer.Kind)

	constEl, ok := byName["defaultName"]
	require.True(t, ok)
	assert.Equal(t, domain.KindConst, constEl.Kind)
	assert.Equal(t, domain.VisPrivate, constEl.Visibility)
}

func TestGoAnalyzerQualifiesMethodSymbolPath(t *testing.T) {
	a := newGoAnalyzer()
	elements, _, err := a.Analyze("widget.go", []byte(goFixture))
	require.NoError(t, err)

	found := false
	for _, el := range elements {
		if el.Name == "Render" && el.Kind == domain.KindFunction {
			assert.Equal(t, "widget.Widget.Render", el.SymbolPath)
			assert.Contains(t, el.References, "fmt.Sprintf")
			found = true
		}
	}
	assert.True(t, found, "expected Render method element")
}

func TestGoAnalyzerTagsTestFunctions(t *testing.T) {
	a := newGoAnalyzer()
	elements, _, err := a.Analyze("widget.go", []byte(goFixture))
	require.NoError(t, err)

	found := false
	for _, el := range elements {
		if el.Name == "TestWidgetRender" {
			assert.Equal(t, domain.KindTest, el.Kind)
			found = true
		}
	}
	assert.True(t, found)
}

func TestGoAnalyzerInvalidSourceReturnsError(t *testing.T) {
	a := newGoAnalyzer()
	_, _, err := a.Analyze("broken.go", []byte("package widget\nfunc ("))
	assert.Error(t, err)
}
