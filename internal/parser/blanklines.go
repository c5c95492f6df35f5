package parser

import (
	"strconv"
	"strings"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

// blankLineAnalyzer splits files with no meaningful AST (YAML, JSON,
// HTML, shell scripts) on runs of two or more blank lines, the
// coarsest structural signal available without a format-specific
// parser. Each resulting block becomes one KindTopLevel element.
type blankLineAnalyzer struct{}

func newBlankLineAnalyzer() *blankLineAnalyzer { return &blankLineAnalyzer{} }

func (a *blankLineAnalyzer) Analyze(path string, source []byte) ([]domain.StructuralElement, []domain.ImportStatement, error) {
	lines := strings.Split(string(source), "\n")

	var elements []domain.StructuralElement
	start := 0
	blank := 0

	flush := func(end int) {
		// Trim trailing blank lines from the block before emitting.
		for end > start && strings.TrimSpace(lines[end-1]) == "" {
			end--
		}
		if end <= start {
			return
		}
		elements = append(elements, domain.StructuralElement{
			SymbolPath: blockName(path, len(elements)),
			Name:       blockName(path, len(elements)),
			Kind:       domain.KindTopLevel,
			Visibility: domain.VisPublic,
			LineStart:  start + 1,
			LineEnd:    end,
			Content:    strings.Join(lines[start:end], "\n"),
		})
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank == 2 {
				flush(i - 1)
				start = i + 1
			}
			continue
		}
		blank = 0
	}
	flush(len(lines))

	if len(elements) == 0 {
		elements = append(elements, wholeFileElement(path, lines))
	}

	return elements, nil, nil
}

func blockName(path string, index int) string {
	return path + "#" + strconv.Itoa(index)
}
