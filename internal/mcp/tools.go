package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/steeltroops-ai/omnicontext/internal/engine"
)

// AddSearchTool registers omni_search: hybrid lexical/semantic/symbol
// search over the indexed repository.
func AddSearchTool(s *server.MCPServer, e *engine.Engine) {
	tool := mcp.NewTool(
		"omni_search",
		mcp.WithDescription("Search the indexed codebase with hybrid lexical, semantic, and symbol matching. Returns ranked code chunks with file, symbol path, line range, and score."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query: an identifier ('validate_token'), keywords, or a natural-language question")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10)")),
	)
	s.AddTool(tool, searchHandler(e))
}

func searchHandler(e *engine.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		query, ok := args["query"].(string)
		if !ok || query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		limit := intArg(args, "limit", 10)

		results, err := e.Search(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		type hit struct {
			File      string  `json:"file"`
			Symbol    string  `json:"symbol"`
			Kind      string  `json:"kind"`
			Score     float64 `json:"score"`
			LineStart int     `json:"line_start"`
			LineEnd   int     `json:"line_end"`
			Content   string  `json:"content"`
		}
		hits := make([]hit, 0, len(results))
		for _, r := range results {
			hits = append(hits, hit{
				File:      r.FilePath,
				Symbol:    r.SymbolPath,
				Kind:      string(r.Kind),
				Score:     r.Score,
				LineStart: r.LineStart,
				LineEnd:   r.LineEnd,
				Content:   r.Content,
			})
		}
		return jsonResult(map[string]any{"count": len(hits), "results": hits})
	}
}

// AddContextWindowTool registers omni_context: token-budget-aware
// context assembly for a task description.
func AddContextWindowTool(s *server.MCPServer, e *engine.Engine) {
	tool := mcp.NewTool(
		"omni_context",
		mcp.WithDescription("Assemble a token-budget-aware context window for a task: the most relevant code, deduplicated, compressed by priority, plus dependency-graph neighbors of the best match."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Description of the task needing context")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of seed results (default: 10)")),
		mcp.WithNumber("token_budget",
			mcp.Description("Token budget for the assembled window (default: configured search.token_budget)")),
	)
	s.AddTool(tool, contextWindowHandler(e))
}

func contextWindowHandler(e *engine.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		query, ok := args["query"].(string)
		if !ok || query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		limit := intArg(args, "limit", 10)
		budget := intArg(args, "token_budget", 0)

		window, err := e.SearchContextWindow(ctx, query, limit, budget)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("context assembly failed: %v", err)), nil
		}
		return jsonResult(map[string]any{
			"entries_count": len(window.Entries),
			"total_tokens":  window.TotalTokens(),
			"token_budget":  window.TokenBudget,
			"rendered":      window.Render(),
		})
	}
}

// AddStatusTool registers omni_status: index freshness and component
// health.
func AddStatusTool(s *server.MCPServer, e *engine.Engine) {
	tool := mcp.NewTool(
		"omni_status",
		mcp.WithDescription("Report index statistics: files, chunks, symbols, dependency edges, vector coverage, and component health."),
	)
	s.AddTool(tool, statusHandler(e))
}

func statusHandler(e *engine.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, err := e.Status()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
		}
		languages, err := e.Store().LanguageDistribution()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("language distribution failed: %v", err)), nil
		}
		langCounts := make(map[string]int, len(languages))
		for lang, count := range languages {
			langCounts[string(lang)] = count
		}
		return jsonResult(map[string]any{
			"files_indexed":   status.FileCount,
			"chunks_indexed":  status.ChunkCount,
			"symbols_indexed": status.SymbolCount,
			"dep_edges":       status.EdgeCount,
			"vectors_indexed": status.VectorCount,
			"has_cycles":      status.HasCycles,
			"embedder_up":     status.EmbedderUp,
			"reranker_up":     status.RerankerUp,
			"languages":       langCounts,
		})
	}
}

// AddDependenciesTool registers omni_dependencies: BFS traversal of
// the symbol dependency graph from a named symbol.
func AddDependenciesTool(s *server.MCPServer, e *engine.Engine) {
	tool := mcp.NewTool(
		"omni_dependencies",
		mcp.WithDescription("Walk the dependency graph from a symbol: what it depends on (upstream), what depends on it (downstream), or both."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Symbol name or fully-qualified name to start from")),
		mcp.WithString("direction",
			mcp.Description("'upstream', 'downstream', or 'both' (default: 'both')")),
		mcp.WithNumber("depth",
			mcp.Description("Maximum BFS depth (default: 2)")),
	)
	s.AddTool(tool, dependenciesHandler(e))
}

func dependenciesHandler(e *engine.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		name, ok := args["symbol"].(string)
		if !ok || name == "" {
			return mcp.NewToolResultError("symbol parameter is required"), nil
		}
		direction, _ := args["direction"].(string)
		if direction == "" {
			direction = "both"
		}
		depth := intArg(args, "depth", 2)

		sym, found, err := e.Store().GetSymbolByFQN(name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("symbol lookup failed: %v", err)), nil
		}
		if !found {
			matches, err := e.Store().SearchSymbolsByName(name, 1)
			if err != nil || len(matches) == 0 {
				return mcp.NewToolResultError(fmt.Sprintf("symbol not found: %s", name)), nil
			}
			sym = matches[0]
		}

		result := map[string]any{"symbol": sym.FQN, "kind": string(sym.Kind)}
		if direction == "upstream" || direction == "both" {
			result["upstream"] = resolveNames(e, e.Graph().Upstream(sym.ID, depth))
		}
		if direction == "downstream" || direction == "both" {
			result["downstream"] = resolveNames(e, e.Graph().Downstream(sym.ID, depth))
		}
		return jsonResult(result)
	}
}

// AddIndexTool registers omni_index: a full rescan of the repository.
func AddIndexTool(s *server.MCPServer, e *engine.Engine) {
	tool := mcp.NewTool(
		"omni_index",
		mcp.WithDescription("Run a full index scan of the repository. Unchanged files are skipped by content hash; returns per-batch counts."),
	)
	s.AddTool(tool, indexHandler(e))
}

func indexHandler(e *engine.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := e.Index(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("indexing failed: %v", err)), nil
		}
		return jsonResult(map[string]any{
			"files_processed":      stats.FilesProcessed,
			"files_failed":         stats.FilesFailed,
			"chunks_created":       stats.ChunksCreated,
			"symbols_extracted":    stats.SymbolsExtracted,
			"embeddings_generated": stats.EmbeddingsGenerated,
		})
	}
}

func resolveNames(e *engine.Engine, ids []int64) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if sym, found, err := e.Store().GetSymbolByID(id); err == nil && found {
			names = append(names, sym.FQN)
		}
	}
	return names
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	if v, ok := args[key].(float64); ok && v > 0 {
		return int(v)
	}
	return fallback
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to serialize result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
