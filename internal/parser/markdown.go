package parser

import (
	"regexp"
	"strings"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

// markdownAnalyzer splits a Markdown document on ATX headers
// (`^#+ `), producing one structural element per section, so the
// chunker can treat document sections the same way it treats code
// elements.
type markdownAnalyzer struct{}

func newMarkdownAnalyzer() *markdownAnalyzer { return &markdownAnalyzer{} }

var markdownHeaderRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

func (a *markdownAnalyzer) Analyze(path string, source []byte) ([]domain.StructuralElement, []domain.ImportStatement, error) {
	lines := strings.Split(string(source), "\n")

	var elements []domain.StructuralElement
	start := 0
	title := path

	flush := func(end int) {
		if end <= start {
			return
		}
		elements = append(elements, domain.StructuralElement{
			SymbolPath: title,
			Name:       title,
			Kind:       domain.KindModule,
			Visibility: domain.VisPublic,
			LineStart:  start + 1,
			LineEnd:    end,
			Content:    strings.Join(lines[start:end], "\n"),
		})
	}

	for i, line := range lines {
		if m := markdownHeaderRe.FindStringSubmatch(line); m != nil {
			flush(i)
			start = i
			title = strings.TrimSpace(m[2])
		}
	}
	flush(len(lines))

	if len(elements) == 0 {
		elements = append(elements, wholeFileElement(path, lines))
	}

	return elements, nil, nil
}

// tomlAnalyzer splits a TOML document on `[section]` / `[[array.of.tables]]`
// headers, one structural element per table.
type tomlAnalyzer struct{}

func newTOMLAnalyzer() *tomlAnalyzer { return &tomlAnalyzer{} }

var tomlTableRe = regexp.MustCompile(`^\s*\[{1,2}([^\]]+)\]{1,2}\s*$`)

func (a *tomlAnalyzer) Analyze(path string, source []byte) ([]domain.StructuralElement, []domain.ImportStatement, error) {
	lines := strings.Split(string(source), "\n")

	var elements []domain.StructuralElement
	start := 0
	name := path

	flush := func(end int) {
		if end <= start {
			return
		}
		elements = append(elements, domain.StructuralElement{
			SymbolPath: name,
			Name:       name,
			Kind:       domain.KindConst,
			Visibility: domain.VisPublic,
			LineStart:  start + 1,
			LineEnd:    end,
			Content:    strings.Join(lines[start:end], "\n"),
		})
	}

	for i, line := range lines {
		if m := tomlTableRe.FindStringSubmatch(line); m != nil {
			flush(i)
			start = i
			name = strings.TrimSpace(m[1])
		}
	}
	flush(len(lines))

	if len(elements) == 0 {
		elements = append(elements, wholeFileElement(path, lines))
	}

	return elements, nil, nil
}
