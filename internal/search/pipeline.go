package search

import (
	"context"
	"sort"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/steeltroops-ai/omnicontext/internal/embed"
)

// runPipeline executes the retrieval stages shared by Search and
// SearchContextWindow: classify, expand, generate three candidate
// lists, RRF-fuse, optionally rerank, select an anchor, then apply
// the structural+graph boost.
func (r *Retriever) runPipeline(ctx context.Context, query string) (pipelineOutcome, error) {
	queryType := ClassifyQueryType(query)
	intent := ClassifyIntent(query)
	strategy := StrategyForIntent(intent)

	retrievalLimit := r.Cfg.RetrievalLimit
	if retrievalLimit <= 0 {
		retrievalLimit = 100
	}

	expanded := query
	if queryType == domain.QueryNaturalLanguage {
		expanded = ExpandQuery(query)
	}

	keyword := r.keywordCandidates(expanded, query, retrievalLimit)
	semantic := r.semanticCandidates(ctx, query, queryType, retrievalLimit)
	symbol := r.symbolCandidates(query, queryType, retrievalLimit)

	weights := rrfWeights{Keyword: r.Cfg.KeywordWeight, Semantic: r.Cfg.SemanticWeight, Symbol: r.Cfg.SymbolWeight}
	k := r.Cfg.RRFK
	if k <= 0 {
		k = 60
	}
	fusedList := fuseRRF(keyword, semantic, symbol, weights, k)

	maxCandidates := r.Cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 100
	}
	fusedList = r.maybeRerank(ctx, query, fusedList, maxCandidates)

	candidates := r.hydrateChunks(fusedList)

	anchorSymbolID, hasAnchor := r.selectAnchor(fusedList)

	recentPaths := r.recentlyChangedPaths(strategy)
	boostedResults := applyStructuralAndGraphBoost(candidates, r.Graph, anchorSymbolID, hasAnchor, r.Cfg.DefaultTokenBudget, recentPaths)

	return pipelineOutcome{
		Results:        boostedResults,
		AnchorSymbolID: anchorSymbolID,
		HasAnchor:      hasAnchor,
		Intent:         intent,
		Strategy:       strategy,
	}, nil
}

// recentlyChangedPaths asks the injected git collaborator which files
// commits touched in the last recentChangesWindow, when the query's
// intent calls for recent-changes weighting. Returns nil (no boost) when the strategy
// doesn't call for it or no git collaborator is wired.
func (r *Retriever) recentlyChangedPaths(strategy domain.ContextStrategy) map[string]bool {
	if !strategy.IncludeRecentChanges || r.GitOps == nil {
		return nil
	}
	paths, err := r.GitOps.RecentlyChanged(r.RootDir, recentChangesWindow)
	if err != nil || len(paths) == 0 {
		return nil
	}
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

// keywordCandidates runs BM25 lexical search on the expanded (or raw)
// query, retrying once with the raw query on parse failure.
func (r *Retriever) keywordCandidates(expanded, raw string, limit int) rankedList {
	hits, err := r.Store.SearchLexical(expanded, limit)
	if err != nil {
		hits, err = r.Store.SearchLexical(raw, limit)
		if err != nil {
			return nil
		}
	}
	out := make(rankedList, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ChunkID)
	}
	return out
}

// semanticCandidates runs step 3b: embed the raw query and search the
// vector index, skipped entirely when the embedder is unavailable or
// the query classified as Symbol (a bare identifier gains nothing from
// semantic similarity).
func (r *Retriever) semanticCandidates(ctx context.Context, query string, queryType domain.QueryType, limit int) rankedList {
	if r.Embedder == nil || !r.Embedder.IsAvailable() || queryType == domain.QuerySymbol {
		return nil
	}

	vecs, err := r.Embedder.Embed(ctx, []string{query}, embed.EmbedModeQuery)
	if err != nil || len(vecs) == 0 {
		return nil
	}

	results, err := r.Index.Search(vecs[0], limit)
	if err != nil {
		return nil
	}

	out := make(rankedList, 0, len(results))
	for _, res := range results {
		chunk, found, err := r.Store.GetChunkByVectorID(res.ID)
		if err != nil || !found {
			continue
		}
		out = append(out, chunk.ID)
	}
	return out
}

// symbolCandidates runs step 3c: prefix-match symbol names, restricted
// to query types that plausibly name a symbol.
func (r *Retriever) symbolCandidates(query string, queryType domain.QueryType, limit int) rankedList {
	if queryType != domain.QuerySymbol && queryType != domain.QueryMixed {
		return nil
	}

	symbols, err := r.Store.SearchSymbolsByName(query, limit)
	if err != nil {
		return nil
	}

	out := make(rankedList, 0, len(symbols))
	for _, sym := range symbols {
		if sym.ChunkID != nil {
			out = append(out, *sym.ChunkID)
		}
	}
	return out
}

// maybeRerank runs step 5: cross-encoder rerank over the top
// maxCandidates fused items, min-max normalized and blended with the
// RRF score; candidates the reranker skipped are demoted.
func (r *Retriever) maybeRerank(ctx context.Context, query string, fusedList []fused, maxCandidates int) []fused {
	if r.Reranker == nil || !r.Reranker.IsAvailable() || len(fusedList) == 0 {
		return fusedList
	}

	head := fusedList
	var tail []fused
	if len(fusedList) > maxCandidates {
		head = make([]fused, maxCandidates)
		copy(head, fusedList[:maxCandidates])
		tail = make([]fused, len(fusedList)-maxCandidates)
		copy(tail, fusedList[maxCandidates:])
	}

	texts := make([]string, len(head))
	rrfScores := make([]float64, len(head))
	for i, f := range head {
		chunk, found, err := r.Store.GetChunk(f.ChunkID)
		if err != nil || !found {
			texts[i] = ""
		} else {
			texts[i] = chunk.Content
		}
		rrfScores[i] = f.Score
	}

	rerankScores, err := r.Reranker.Score(ctx, query, texts)
	if err != nil {
		return fusedList
	}

	rrfNorm := minMaxNormalize(rrfScores)
	rerankNorm := minMaxNormalize(rerankScores)

	weight := r.Cfg.RerankWeight
	if weight <= 0 {
		weight = 0.5
	}
	demotion := r.Cfg.UnrankedDemotion
	if demotion <= 0 {
		demotion = 0.5
	}

	for i := range head {
		blended := weight*rrfNorm[i] + (1-weight)*rerankNorm[i]
		if len(rerankScores) <= i || rerankScores[i] == 0 {
			blended *= demotion
		}
		head[i].Score = blended
	}

	merged := append(head, tail...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	return merged
}

// selectAnchor implements step 6: the first of the top-3 fused items
// whose chunk has an owning symbol.
func (r *Retriever) selectAnchor(fusedList []fused) (int64, bool) {
	limit := 3
	if len(fusedList) < limit {
		limit = len(fusedList)
	}
	for _, f := range fusedList[:limit] {
		sym, found, err := r.Store.GetSymbolByChunkID(f.ChunkID)
		if err == nil && found {
			return sym.ID, true
		}
	}
	return 0, false
}

// hydrateChunks loads the chunk row, file path, and owning symbol id
// for each fused candidate, dropping entries whose chunk no longer
// exists (e.g. raced with a concurrent delete).
func (r *Retriever) hydrateChunks(fusedList []fused) []boosted {
	out := make([]boosted, 0, len(fusedList))
	fileCache := make(map[int64]string)

	for _, f := range fusedList {
		chunk, found, err := r.Store.GetChunk(f.ChunkID)
		if err != nil || !found {
			continue
		}

		filePath, ok := fileCache[chunk.FileID]
		if !ok {
			file, found, err := r.Store.GetFileByID(chunk.FileID)
			if err == nil && found {
				filePath = file.Path
			}
			fileCache[chunk.FileID] = filePath
		}

		var symbolID int64
		if sym, found, err := r.Store.GetSymbolByChunkID(f.ChunkID); err == nil && found {
			symbolID = sym.ID
		}

		out = append(out, boosted{
			Chunk:    chunk,
			FilePath: filePath,
			SymbolID: symbolID,
			Score:    f.Score,
			Breakdown: domain.ScoreBreakdown{
				SemanticRank: f.SemanticRank,
				KeywordRank:  f.KeywordRank,
				RRFScore:     f.Score,
			},
		})
	}
	return out
}
