package daemon

import (
	"encoding/json"

	"github.com/steeltroops-ai/omnicontext/internal/errs"
)

// Request is one newline-delimited JSON-RPC 2.0 request line.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCError is the error member of a failed Response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is one newline-delimited JSON-RPC 2.0 response line.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

func successResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// engineError maps an engine-level error onto the daemon's JSON-RPC
// code set via the errs taxonomy.
func engineError(id json.RawMessage, err error) Response {
	return errorResponse(id, errs.JSONRPCCode(errs.KindOf(err)), err.Error())
}

// searchParams are the parameters of the `search` method.
type searchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// contextWindowParams are the parameters of the `context_window` method.
type contextWindowParams struct {
	Query       string `json:"query"`
	Limit       int    `json:"limit"`
	TokenBudget int    `json:"token_budget"`
}

// preflightParams are the parameters of the `preflight` method: the
// agent's prompt plus optional editor state used for cache keying.
type preflightParams struct {
	Prompt      string `json:"prompt"`
	ActiveFile  string `json:"active_file,omitempty"`
	CursorLine  int    `json:"cursor_line,omitempty"`
	Intent      string `json:"intent,omitempty"`
	TokenBudget int    `json:"token_budget"`
}

// ideEventParams describe one editor event feeding the prefetch cache.
type ideEventParams struct {
	EventType string `json:"event_type"`
	FilePath  string `json:"file_path"`
	Symbol    string `json:"symbol,omitempty"`
}

// updateConfigParams carry the prefetch-cache knobs `update_config`
// may change at runtime.
type updateConfigParams struct {
	CacheSize       *int    `json:"cache_size,omitempty"`
	CacheTTLSeconds *uint64 `json:"cache_ttl_seconds,omitempty"`
}
