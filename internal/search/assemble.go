package search

import (
	"sort"
	"strings"

	"github.com/steeltroops-ai/omnicontext/internal/chunker"
	"github.com/steeltroops-ai/omnicontext/internal/domain"
)

const (
	fileClusterThreshold  = 3
	fileClusterScoreScale = 0.9
	graphNeighborDist1    = 0.5
	graphNeighborDist2    = 0.4
)

// assemble builds the context window from an already-deduplicated
// result set: strategy-based kind filtering, file-cluster inclusion,
// 1-hop graph-neighbor pull, priority assignment, and greedy
// token-budget packing with per-tier compression.
func (r *Retriever) assemble(deduped []boosted, outcome pipelineOutcome, tokenBudget int) (*domain.ContextWindow, error) {
	entries := make([]domain.ContextEntry, 0, len(deduped))
	seenChunks := make(map[int64]bool)

	for _, b := range deduped {
		if !strategyIncludes(outcome.Strategy, b.Chunk.Kind) {
			continue
		}
		entries = append(entries, domain.ContextEntry{
			FilePath: b.FilePath,
			Chunk:    b.Chunk,
			Score:    b.Score,
		})
		seenChunks[b.Chunk.ID] = true
	}

	entries = r.expandFileClusters(entries, seenChunks)

	if outcome.HasAnchor && outcome.Strategy.GraphDepth > 0 {
		entries = r.expandGraphNeighbors(entries, outcome.AnchorSymbolID, seenChunks)
	}

	for i := range entries {
		isTest := entries[i].Chunk.Kind == domain.KindTest
		entries[i].Priority = domain.PriorityFromScoreAndContext(entries[i].Score, false, isTest)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Score > entries[j].Score
	})

	return packToBudget(entries, tokenBudget, outcome.Strategy), nil
}

// strategyIncludes applies the intent strategy's kind filters: tests
// only when the strategy asks for them, module/section chunks under
// the architecture flag, everything else under implementation.
func strategyIncludes(strategy domain.ContextStrategy, kind domain.ChunkKind) bool {
	switch kind {
	case domain.KindTest:
		return strategy.IncludeTests
	case domain.KindModule:
		return strategy.IncludeArchitecture
	default:
		return strategy.IncludeImplementation
	}
}

// expandFileClusters implements the "≥3 matches in one file" rule:
// every chunk of a file that already contributed fileClusterThreshold
// or more matches is pulled in at fileClusterScoreScale times the
// group's average score.
func (r *Retriever) expandFileClusters(entries []domain.ContextEntry, seen map[int64]bool) []domain.ContextEntry {
	type group struct {
		fileID   int64
		filePath string
		total    float64
		count    int
	}
	groups := make(map[int64]*group)
	for _, e := range entries {
		g, ok := groups[e.Chunk.FileID]
		if !ok {
			g = &group{fileID: e.Chunk.FileID, filePath: e.FilePath}
			groups[e.Chunk.FileID] = g
		}
		g.total += e.Score
		g.count++
	}

	for _, g := range groups {
		if g.count < fileClusterThreshold {
			continue
		}
		avg := g.total / float64(g.count)
		chunks, err := r.Store.ChunksByFile(g.fileID)
		if err != nil {
			continue
		}
		for _, c := range chunks {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			entries = append(entries, domain.ContextEntry{
				FilePath: g.filePath,
				Chunk:    c,
				Score:    avg * fileClusterScoreScale,
			})
		}
	}
	return entries
}

// expandGraphNeighbors pulls the anchor symbol's 1-hop neighbors in
// both directions, scored relative to the anchor's own score.
func (r *Retriever) expandGraphNeighbors(entries []domain.ContextEntry, anchorSymbolID int64, seen map[int64]bool) []domain.ContextEntry {
	var anchorScore float64
	for _, e := range entries {
		if sym, found, err := r.Store.GetSymbolByChunkID(e.Chunk.ID); err == nil && found && sym.ID == anchorSymbolID {
			anchorScore = e.Score
			break
		}
	}
	if anchorScore == 0 {
		return entries
	}

	if r.Graph == nil {
		return entries
	}

	neighbors := append(r.Graph.Upstream(anchorSymbolID, 1), r.Graph.Downstream(anchorSymbolID, 1)...)
	for i, symID := range neighbors {
		sym, found, err := r.Store.GetSymbolByID(symID)
		if err != nil || !found || sym.ChunkID == nil {
			continue
		}
		if seen[*sym.ChunkID] {
			continue
		}
		chunk, found, err := r.Store.GetChunk(*sym.ChunkID)
		if err != nil || !found {
			continue
		}
		file, found, err := r.Store.GetFileByID(chunk.FileID)
		filePath := ""
		if err == nil && found {
			filePath = file.Path
		}

		scale := graphNeighborDist2
		if i == 0 {
			scale = graphNeighborDist1
		}
		seen[*sym.ChunkID] = true
		entries = append(entries, domain.ContextEntry{
			FilePath:        filePath,
			Chunk:           chunk,
			Score:           anchorScore * scale,
			IsGraphNeighbor: true,
		})
	}
	return entries
}

// packToBudget greedily packs entries (already sorted best-first) into
// tokenBudget. Each entry is tried uncompressed first; only when it
// would overflow is the per-tier compression applied. Critical entries
// are never compressed. An entry that still doesn't fit compressed
// ends the packing, except that under a high-level-prioritizing
// strategy a Low entry is merely skipped.
func packToBudget(entries []domain.ContextEntry, tokenBudget int, strategy domain.ContextStrategy) *domain.ContextWindow {
	window := &domain.ContextWindow{TokenBudget: tokenBudget}
	used := 0

	for _, e := range entries {
		tokens := e.Chunk.TokenCount
		if tokens == 0 {
			tokens = chunker.EstimateTokens(e.Chunk.Content)
		}

		if tokenBudget <= 0 || used+tokens <= tokenBudget {
			e.Chunk.TokenCount = tokens
			window.Entries = append(window.Entries, e)
			used += tokens
			continue
		}

		if e.Priority == domain.PriorityCritical {
			continue // never compressed; just doesn't fit
		}

		compressed := compressForPriority(e.Chunk.Content, e.Chunk.DocComment, e.Priority)
		compressedTokens := chunker.EstimateTokens(compressed)
		if used+compressedTokens <= tokenBudget {
			e.Chunk.Content = compressed
			e.Chunk.TokenCount = compressedTokens
			window.Entries = append(window.Entries, e)
			used += compressedTokens
			continue
		}

		if strategy.PrioritizeHighLevel && e.Priority == domain.PriorityLow {
			continue
		}
		break
	}

	window.UsedTokens = used
	return window
}

// compressForPriority implements the per-tier compression rules:
// Critical is untouched; High keeps the signature (first line) plus
// the first 5 body lines; Medium keeps the signature plus the first
// doc-comment line; Low keeps only the signature.
func compressForPriority(content, docComment string, priority domain.ChunkPriority) string {
	if priority == domain.PriorityCritical {
		return content
	}

	lines := strings.Split(content, "\n")
	signature := ""
	if len(lines) > 0 {
		signature = lines[0]
	}

	switch priority {
	case domain.PriorityHigh:
		body := lines
		if len(lines) > 1 {
			body = lines[1:]
		}
		if len(body) > 5 {
			body = body[:5]
		}
		return strings.Join(append([]string{signature}, body...), "\n") + "\n// ..."
	case domain.PriorityMedium:
		docLine := ""
		if docComment != "" {
			docLine = strings.Split(docComment, "\n")[0]
		}
		if docLine != "" {
			return signature + "\n" + docLine + "\n// ..."
		}
		return signature + "\n// ..."
	default: // PriorityLow
		return signature + "\n{ /* ... */ }"
	}
}
