// Package chunker splits structural elements produced by a language
// analyzer into embedding-sized chunks, respecting AST boundaries
// where the element is too large to embed as a single unit.
package chunker

import (
	"fmt"
	"strings"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

// Config bounds the chunker's behaviour.
type Config struct {
	MaxTokens int     // per-chunk token budget, default 512
	Overlap   float64 // fraction of the previous segment repeated, default 0.12
}

// DefaultConfig returns the spec's default chunking parameters.
func DefaultConfig() Config {
	return Config{MaxTokens: 512, Overlap: 0.12}
}

// EstimateTokens estimates a token count at one token per four source
// bytes, floored at 1.
func EstimateTokens(content string) int {
	n := len(content) / 4
	if n < 1 {
		return 1
	}
	return n
}

// TruncateToTokens truncates content to fit within maxTokens,
// preferring to cut at the last newline before the byte budget.
// Idempotent.
func TruncateToTokens(content string, maxTokens int) string {
	maxChars := maxTokens * 4
	if maxChars <= 0 || len(content) <= maxChars {
		return content
	}
	cut := strings.LastIndexByte(content[:maxChars], '\n')
	if cut <= 0 {
		return content[:maxChars]
	}
	return content[:cut]
}

// ChunkElements splits one file's structural elements into
// embedding-sized chunks, splitting oversized elements at structural
// boundaries.
func ChunkElements(elements []domain.StructuralElement, fileID int64, cfg Config) []domain.Chunk {
	var out []domain.Chunk
	for _, el := range elements {
		if EstimateTokens(el.Content) <= cfg.MaxTokens {
			out = append(out, elementToChunk(el, fileID, cfg))
			continue
		}
		out = append(out, splitElement(el, fileID, cfg)...)
	}
	return out
}

func computeWeight(el domain.StructuralElement) float64 {
	return domain.ComputeWeight(el.Kind, el.Visibility)
}

func elementToChunk(el domain.StructuralElement, fileID int64, cfg Config) domain.Chunk {
	content := el.Content
	if EstimateTokens(content) > cfg.MaxTokens {
		content = TruncateToTokens(content, cfg.MaxTokens)
	}
	return domain.Chunk{
		FileID:     fileID,
		SymbolPath: el.SymbolPath,
		Kind:       el.Kind,
		Visibility: el.Visibility,
		LineStart:  el.LineStart,
		LineEnd:    el.LineEnd,
		Content:    content,
		DocComment: el.DocComment,
		TokenCount: EstimateTokens(content),
		Weight:     computeWeight(el),
	}
}

// splitElement cuts an oversized element at split points: line indices
// (0-based, within el's line slice) at which a new sub-chunk may start.
func splitElement(el domain.StructuralElement, fileID int64, cfg Config) []domain.Chunk {
	lines := strings.Split(el.Content, "\n")

	var points []int
	switch el.Kind {
	case domain.KindClass, domain.KindTrait, domain.KindImpl:
		points = findClassSplitPoints(lines)
	case domain.KindFunction, domain.KindTest:
		points = findFunctionSplitPoints(lines)
	default:
		points = findLineSplitPoints(lines, cfg.MaxTokens)
	}

	return createChunksFromSplits(el, fileID, lines, points, cfg)
}

var classMethodPrefixes = []string{
	"def ", "async def ", "fn ", "pub fn ", "pub(crate) fn ",
	"public ", "private ", "protected ", "static ",
	"constructor(", "async ", "get ", "set ",
}

func findClassSplitPoints(lines []string) []int {
	var points []int
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, prefix := range classMethodPrefixes {
			if strings.HasPrefix(trimmed, prefix) {
				points = append(points, i)
				break
			}
		}
	}
	return points
}

var funcBoundaryPrefixes = []string{
	"if ", "for ", "while ", "match ", "return", "let ", "const ",
	"try", "with ",
}

func findFunctionSplitPoints(lines []string) []int {
	if len(lines) == 0 {
		return nil
	}
	// Split points sit at the body's base indentation: that of the first
	// non-blank line after the signature.
	baseIndent := leadingWhitespace(lines[0])
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) != "" {
			baseIndent = leadingWhitespace(line)
			break
		}
	}
	var points []int
	for i, line := range lines {
		if leadingWhitespace(line) != baseIndent {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "}" || strings.HasSuffix(trimmed, ":") {
			points = append(points, i)
			continue
		}
		for _, prefix := range funcBoundaryPrefixes {
			if strings.HasPrefix(trimmed, prefix) {
				points = append(points, i)
				break
			}
		}
	}
	return points
}

func findLineSplitPoints(lines []string, maxTokens int) []int {
	maxLines := maxTokens * 4 / 80
	if maxLines < 10 {
		maxLines = 10
	}
	var points []int
	for i := maxLines; i < len(lines); i += maxLines {
		snap := i
		for d := 0; d <= 5; d++ {
			if i+d < len(lines) && strings.TrimSpace(lines[i+d]) == "" {
				snap = i + d
				break
			}
			if i-d >= 0 && strings.TrimSpace(lines[i-d]) == "" {
				snap = i - d
				break
			}
		}
		points = append(points, snap)
	}
	return points
}

func leadingWhitespace(line string) int {
	n := 0
	for _, r := range line {
		if r != ' ' && r != '\t' {
			break
		}
		n++
	}
	return n
}

// boundary is a contiguous line range [start, end) of the element.
type boundary struct {
	start, end int
}

func createChunksFromSplits(el domain.StructuralElement, fileID int64, lines []string, points []int, cfg Config) []domain.Chunk {
	if len(points) <= 1 {
		content := TruncateToTokens(el.Content, cfg.MaxTokens)
		c := elementToChunk(el, fileID, cfg)
		c.Content = content
		c.TokenCount = EstimateTokens(content)
		return []domain.Chunk{c}
	}

	boundaries := make([]boundary, 0, len(points)+1)
	prev := 0
	for _, p := range points {
		if p > prev {
			boundaries = append(boundaries, boundary{prev, p})
			prev = p
		}
	}
	if prev < len(lines) {
		boundaries = append(boundaries, boundary{prev, len(lines)})
	}

	boundaries = mergeSmallBoundaries(lines, boundaries, cfg.MaxTokens/4)

	n := len(boundaries)
	chunks := make([]domain.Chunk, 0, n)
	header := extractHeader(el)

	for i, b := range boundaries {
		segLines := lines[b.start:b.end]
		var sb strings.Builder

		if i > 0 {
			prevB := boundaries[i-1]
			prevLines := lines[prevB.start:prevB.end]
			overlapN := int(float64(len(prevLines))*cfg.Overlap + 0.999999)
			if overlapN > len(prevLines) {
				overlapN = len(prevLines)
			}
			if overlapN > 0 {
				sb.WriteString(strings.Join(prevLines[len(prevLines)-overlapN:], "\n"))
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("// ... continued from %s\n", el.Name))
			sb.WriteString(header)
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(segLines, "\n"))

		content := TruncateToTokens(sb.String(), cfg.MaxTokens)

		symbolPath := el.SymbolPath
		if n > 1 {
			symbolPath = fmt.Sprintf("%s[%d/%d]", el.SymbolPath, i+1, n)
		}

		doc := ""
		if i == 0 {
			doc = el.DocComment
		}

		chunks = append(chunks, domain.Chunk{
			FileID:     fileID,
			SymbolPath: symbolPath,
			Kind:       el.Kind,
			Visibility: el.Visibility,
			LineStart:  el.LineStart + b.start,
			LineEnd:    el.LineStart + b.end,
			Content:    content,
			DocComment: doc,
			TokenCount: EstimateTokens(content),
			Weight:     computeWeight(el),
		})
	}

	return chunks
}

func mergeSmallBoundaries(lines []string, boundaries []boundary, minTokens int) []boundary {
	if minTokens < 1 {
		minTokens = 1
	}
	var merged []boundary
	for _, b := range boundaries {
		if len(merged) > 0 {
			last := merged[len(merged)-1]
			lastText := strings.Join(lines[last.start:last.end], "\n")
			if EstimateTokens(lastText) < minTokens {
				merged[len(merged)-1] = boundary{last.start, b.end}
				continue
			}
		}
		merged = append(merged, b)
	}
	return merged
}

// extractHeader finds the element's signature line, skipping leading
// decorator/attribute lines (`@...`, `#...`).
func extractHeader(el domain.StructuralElement) string {
	lines := strings.Split(el.Content, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "@") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return line
	}
	if len(lines) > 0 {
		return lines[0]
	}
	return ""
}
