package parser

import (
	"regexp"
	"strings"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

// regexAnalyzer is a line-scan structural extractor for languages with
// no tree-sitter grammar binding (C++, C#, Swift, Kotlin; Go gets its
// own go/ast analyzer). It finds top-level declaration headers with a
// small per-language regex set and takes each declaration's body as
// running from its header line to the matching closing brace, which is
// less precise than an AST but keeps every language covered.
type regexAnalyzer struct{}

func newRegexAnalyzer() *regexAnalyzer { return &regexAnalyzer{} }

var declPatterns = []struct {
	re   *regexp.Regexp
	kind domain.ChunkKind
}{
	{regexp.MustCompile(`^\s*(?:pub\s+|public\s+|private\s+|protected\s+|internal\s+|open\s+|final\s+)*(?:abstract\s+)?(?:class|struct)\s+([A-Za-z_][A-Za-z0-9_]*)`), domain.KindClass},
	{regexp.MustCompile(`^\s*(?:pub\s+|public\s+|private\s+|protected\s+|internal\s+)*(?:interface|protocol|trait)\s+([A-Za-z_][A-Za-z0-9_]*)`), domain.KindTrait},
	{regexp.MustCompile(`^\s*(?:pub\s+|public\s+|private\s+|protected\s+|internal\s+)*(?:enum)\s+([A-Za-z_][A-Za-z0-9_]*)`), domain.KindTypeDef},
	{regexp.MustCompile(`^\s*(?:pub\s+|public\s+|private\s+|protected\s+|internal\s+|static\s+|final\s+|override\s+|func\s+)*func\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)\s*\(`), domain.KindFunction},
	{regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|internal\s+|static\s+|final\s+|override\s+|async\s+|fun\s+)*fun\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`), domain.KindFunction},
	{regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|internal\s+|static\s+|virtual\s+|override\s+)*[A-Za-z_][A-Za-z0-9_<>\[\],. ]*\s+([A-Za-z_][A-Za-z0-9_]*)\s*\([^;]*\)\s*\{`), domain.KindFunction},
}

var importPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*import\s+(.+)$`),
	regexp.MustCompile(`^\s*using\s+([A-Za-z0-9_.]+)\s*;`),
	regexp.MustCompile(`^\s*#include\s+[<"]([^">]+)[">]`),
}

func (a *regexAnalyzer) Analyze(path string, source []byte) ([]domain.StructuralElement, []domain.ImportStatement, error) {
	lines := strings.Split(string(source), "\n")

	var elements []domain.StructuralElement
	var imports []domain.ImportStatement

	for i, line := range lines {
		for _, ip := range importPatterns {
			if m := ip.FindStringSubmatch(line); m != nil {
				imports = append(imports, domain.ImportStatement{Path: m[1], Line: i + 1})
				break
			}
		}

		for _, dp := range declPatterns {
			m := dp.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[1]
			end := matchClosingBrace(lines, i)
			vis := domain.VisPublic
			if strings.Contains(line, "private") {
				vis = domain.VisPrivate
			} else if strings.Contains(line, "protected") {
				vis = domain.VisProtected
			}
			elements = append(elements, domain.StructuralElement{
				SymbolPath: name,
				Name:       name,
				Kind:       dp.kind,
				Visibility: vis,
				LineStart:  i + 1,
				LineEnd:    end + 1,
				Content:    extractLines(lines, i+1, end+1),
			})
			break
		}
	}

	if len(elements) == 0 {
		elements = append(elements, wholeFileElement(path, lines))
	}

	return elements, imports, nil
}

// matchClosingBrace returns the 0-based line index of the brace that
// closes the block opened on or after startLine, by depth counting.
// If no closing brace is found the file's last line is returned.
func matchClosingBrace(lines []string, startLine int) int {
	depth := 0
	seenOpen := false
	for i := startLine; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				seenOpen = true
			case '}':
				depth--
				if seenOpen && depth == 0 {
					return i
				}
			}
		}
	}
	return len(lines) - 1
}
