package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/steeltroops-ai/omnicontext/internal/domain"
	"github.com/steeltroops-ai/omnicontext/internal/errs"
)

// dispatch routes one request to its handler and shapes the response.
// Unknown methods map to METHOD_NOT_FOUND; parameter decoding failures
// to INVALID_PARAMS; engine failures through the errs taxonomy.
func (s *Server) dispatch(ctx context.Context, req Request) Response {
	start := time.Now()

	var result any
	var errResp *Response

	switch req.Method {
	case "ping":
		result = map[string]any{"pong": true}

	case "status":
		result, errResp = s.handleStatus(req)

	case "system_status":
		result, errResp = s.handleSystemStatus(req)

	case "performance_metrics":
		result, errResp = s.handlePerformanceMetrics(req)

	case "search":
		result, errResp = s.handleSearch(ctx, req)

	case "context_window":
		result, errResp = s.handleContextWindow(ctx, req)

	case "preflight":
		result, errResp = s.handlePreflight(ctx, req, start)

	case "module_map":
		result, errResp = s.handleModuleMap(req)

	case "index":
		result, errResp = s.handleIndex(ctx, req)

	case "ide_event":
		result, errResp = s.handleIDEEvent(ctx, req)

	case "prefetch_stats":
		result = s.prefetch.Stats()

	case "clear_cache":
		s.prefetch.Clear()
		result = map[string]any{"cleared": true}

	case "update_config":
		result, errResp = s.handleUpdateConfig(req)

	case "clear_index":
		if err := s.engine.ClearIndex(); err != nil {
			return engineError(req.ID, err)
		}
		s.prefetch.Clear()
		result = map[string]any{"cleared": true}

	case "shutdown":
		s.requestShutdown()
		result = map[string]any{"shutting_down": true}

	default:
		return errorResponse(req.ID, errs.CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}

	elapsed := time.Since(start)
	log.Printf("daemon: method=%s elapsed=%s ok=%t", req.Method, elapsed, errResp == nil)

	if errResp != nil {
		return *errResp
	}
	return successResponse(req.ID, result)
}

func decodeParams[T any](req Request) (T, *Response) {
	var params T
	if len(req.Params) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		resp := errorResponse(req.ID, errs.CodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
		return params, &resp
	}
	return params, nil
}

func (s *Server) handleStatus(req Request) (any, *Response) {
	status, err := s.engine.Status()
	if err != nil {
		resp := engineError(req.ID, err)
		return nil, &resp
	}
	return map[string]any{
		"files_indexed":   status.FileCount,
		"chunks_indexed":  status.ChunkCount,
		"symbols_indexed": status.SymbolCount,
		"dep_edges":       status.EdgeCount,
		"vectors_indexed": status.VectorCount,
		"graph_nodes":     status.GraphNodes,
		"graph_edges":     status.GraphEdges,
		"has_cycles":      status.HasCycles,
		"embedder_up":     status.EmbedderUp,
		"reranker_up":     status.RerankerUp,
	}, nil
}

func (s *Server) handleSystemStatus(req Request) (any, *Response) {
	status, err := s.engine.Status()
	if err != nil {
		resp := engineError(req.ID, err)
		return nil, &resp
	}

	initState := "initializing"
	if status.FileCount > 0 {
		initState = "ready"
	}
	return map[string]any{
		"initialization_status": initState,
		"connection_health":     "connected",
		"daemon_uptime_seconds": uint64(time.Since(s.started).Seconds()),
		"files_indexed":         status.FileCount,
		"chunks_indexed":        status.ChunkCount,
	}, nil
}

func (s *Server) handlePerformanceMetrics(req Request) (any, *Response) {
	status, err := s.engine.Status()
	if err != nil {
		resp := engineError(req.ID, err)
		return nil, &resp
	}

	coverage := 0.0
	if status.ChunkCount > 0 {
		coverage = float64(status.VectorCount) / float64(status.ChunkCount) * 100.0
	}
	current := s.metrics.CurrentHeapBytes()
	return map[string]any{
		"search_latency_p50_ms":      s.metrics.LatencyPercentile(0.5),
		"search_latency_p95_ms":      s.metrics.LatencyPercentile(0.95),
		"search_latency_p99_ms":      s.metrics.LatencyPercentile(0.99),
		"embedding_coverage_percent": coverage,
		"memory_usage_bytes":         current,
		"peak_memory_usage_bytes":    s.metrics.PeakHeapBytes(),
		"total_searches":             s.metrics.TotalSearches(),
	}, nil
}

func (s *Server) handleSearch(ctx context.Context, req Request) (any, *Response) {
	params, errResp := decodeParams[searchParams](req)
	if errResp != nil {
		return nil, errResp
	}
	if params.Query == "" {
		resp := errorResponse(req.ID, errs.CodeInvalidParams, "query must not be empty")
		return nil, &resp
	}

	start := time.Now()
	results, err := s.engine.Search(ctx, params.Query, params.Limit)
	s.metrics.RecordSearch(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		resp := engineError(req.ID, err)
		return nil, &resp
	}

	entries := make([]map[string]any, 0, len(results))
	for _, r := range results {
		entries = append(entries, map[string]any{
			"file":       r.FilePath,
			"symbol":     r.SymbolPath,
			"kind":       string(r.Kind),
			"score":      r.Score,
			"line_start": r.LineStart,
			"line_end":   r.LineEnd,
			"content":    r.Content,
		})
	}
	return map[string]any{"count": len(entries), "results": entries}, nil
}

func (s *Server) handleContextWindow(ctx context.Context, req Request) (any, *Response) {
	params, errResp := decodeParams[contextWindowParams](req)
	if errResp != nil {
		return nil, errResp
	}
	if params.Query == "" {
		resp := errorResponse(req.ID, errs.CodeInvalidParams, "query must not be empty")
		return nil, &resp
	}

	start := time.Now()
	window, err := s.engine.SearchContextWindow(ctx, params.Query, params.Limit, params.TokenBudget)
	s.metrics.RecordSearch(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		resp := engineError(req.ID, err)
		return nil, &resp
	}

	return map[string]any{
		"entries_count": len(window.Entries),
		"total_tokens":  window.TotalTokens(),
		"token_budget":  window.TokenBudget,
		"rendered":      window.Render(),
	}, nil
}

// handlePreflight assembles the system-context block an agent injects
// before a task: repository overview, active-file state, and the
// ranked context window for the prompt. Served from the prefetch
// cache when the IDE already reported the active file.
func (s *Server) handlePreflight(ctx context.Context, req Request, start time.Time) (any, *Response) {
	params, errResp := decodeParams[preflightParams](req)
	if errResp != nil {
		return nil, errResp
	}
	if params.Prompt == "" {
		resp := errorResponse(req.ID, errs.CodeInvalidParams, "prompt must not be empty")
		return nil, &resp
	}

	if params.ActiveFile != "" {
		if cached, ok := s.prefetch.GetFileContext(params.ActiveFile); ok {
			return map[string]any{
				"system_context": cached,
				"entries_count":  0,
				"tokens_used":    0,
				"token_budget":   params.TokenBudget,
				"elapsed_ms":     time.Since(start).Milliseconds(),
				"from_cache":     true,
			}, nil
		}
	}

	window, err := s.engine.SearchContextWindow(ctx, params.Prompt, 20, params.TokenBudget)
	if err != nil {
		resp := engineError(req.ID, err)
		return nil, &resp
	}
	status, err := s.engine.Status()
	if err != nil {
		resp := engineError(req.ID, err)
		return nil, &resp
	}

	intent := params.Intent
	if intent == "" {
		intent = "general"
	}

	var b strings.Builder
	b.WriteString("<context_engine>\n")
	b.WriteString("The codebase has been analyzed and the following relevant code retrieved for the current task.\n\n")
	fmt.Fprintf(&b, "## Repository\n- Files: %d\n- Symbols: %d\n- Intent: %s\n\n", status.FileCount, status.SymbolCount, intent)
	if params.ActiveFile != "" {
		fmt.Fprintf(&b, "## Active File\n%s\n", params.ActiveFile)
		if params.CursorLine > 0 {
			fmt.Fprintf(&b, "Cursor at line: %d\n", params.CursorLine)
		}
		b.WriteByte('\n')
	}
	b.WriteString("## Relevant Code (ranked by relevance)\n\n")
	b.WriteString(window.Render())
	b.WriteString("\n</context_engine>\n")
	systemContext := b.String()

	if params.ActiveFile != "" {
		s.prefetch.PutFileContext(params.ActiveFile, systemContext)
	}

	return map[string]any{
		"system_context": systemContext,
		"entries_count":  len(window.Entries),
		"tokens_used":    window.TotalTokens(),
		"token_budget":   window.TokenBudget,
		"elapsed_ms":     time.Since(start).Milliseconds(),
		"from_cache":     false,
	}, nil
}

// handleModuleMap groups indexed files by directory and lists each
// file's definition-level symbols, a cheap architectural overview for
// agents that want structure before content.
func (s *Server) handleModuleMap(req Request) (any, *Response) {
	files, err := s.engine.Store().AllFiles()
	if err != nil {
		resp := engineError(req.ID, err)
		return nil, &resp
	}

	modules := make(map[string][]map[string]any)
	for _, f := range files {
		moduleKey := filepath.ToSlash(filepath.Dir(f.Path))

		chunks, err := s.engine.Store().ChunksByFile(f.ID)
		if err != nil {
			resp := engineError(req.ID, err)
			return nil, &resp
		}
		var symbols []string
		for _, c := range chunks {
			switch c.Kind {
			case domain.KindFunction, domain.KindClass, domain.KindTrait:
				symbols = append(symbols, c.SymbolPath)
			}
		}
		sort.Strings(symbols)

		modules[moduleKey] = append(modules[moduleKey], map[string]any{
			"file":     f.Path,
			"language": string(f.Language),
			"symbols":  symbols,
		})
	}

	return map[string]any{
		"module_count": len(modules),
		"file_count":   len(files),
		"modules":      modules,
	}, nil
}

func (s *Server) handleIndex(ctx context.Context, req Request) (any, *Response) {
	start := time.Now()
	stats, err := s.engine.Index(ctx)
	if err != nil {
		resp := engineError(req.ID, err)
		return nil, &resp
	}
	s.prefetch.Clear() // cached windows may describe pre-reindex code
	return map[string]any{
		"files_processed":      stats.FilesProcessed,
		"files_failed":         stats.FilesFailed,
		"chunks_created":       stats.ChunksCreated,
		"symbols_extracted":    stats.SymbolsExtracted,
		"embeddings_generated": stats.EmbeddingsGenerated,
		"elapsed_ms":           time.Since(start).Milliseconds(),
	}, nil
}

// handleIDEEvent feeds the prefetch cache from editor activity:
// opening a file precomputes its context window, moving onto a symbol
// precomputes that symbol's window, and edits invalidate the file's
// cached context until the next reindex.
func (s *Server) handleIDEEvent(ctx context.Context, req Request) (any, *Response) {
	params, errResp := decodeParams[ideEventParams](req)
	if errResp != nil {
		return nil, errResp
	}
	if params.FilePath == "" {
		resp := errorResponse(req.ID, errs.CodeInvalidParams, "file_path must not be empty")
		return nil, &resp
	}

	switch params.EventType {
	case "file_opened":
		query := strings.TrimSuffix(filepath.Base(params.FilePath), filepath.Ext(params.FilePath))
		if window, err := s.engine.SearchContextWindow(ctx, query, 10, 0); err == nil {
			s.prefetch.PutFileContext(params.FilePath, window.Render())
		}
	case "cursor_moved":
		if params.Symbol != "" {
			if window, err := s.engine.SearchContextWindow(ctx, params.Symbol, 10, 0); err == nil {
				s.prefetch.PutSymbolContext(params.FilePath, params.Symbol, window.Render())
			}
		}
	case "text_edited":
		s.prefetch.InvalidateFile(params.FilePath)
	default:
		log.Printf("daemon: unknown ide event type %q", params.EventType)
	}

	return map[string]any{"acknowledged": true, "event_type": params.EventType}, nil
}

func (s *Server) handleUpdateConfig(req Request) (any, *Response) {
	params, errResp := decodeParams[updateConfigParams](req)
	if errResp != nil {
		return nil, errResp
	}
	updated := s.prefetch.UpdateConfig(params.CacheSize, params.CacheTTLSeconds)
	return map[string]any{"updated": updated}, nil
}
