// Package transport carries JSON-RPC 2.0 request/response pairs over
// HTTP POST to a single path ("/mcp") on each peer, per spec.md §4.1.
// The JSON-RPC envelope is a thin wrapper; its "arguments" field holds
// one league.v2 protocol.Envelope verbatim.
package transport

import "github.com/league-agents/core/internal/protocol"

const (
	jsonRPCVersion = "2.0"
	toolCallMethod = "tools/call"
	mcpPath        = "/mcp"
	healthPath     = "/health"
)

// rpcParams is the "params" object of a tools/call request.
type rpcParams struct {
	Name      protocol.MessageType `json:"name"`
	Arguments protocol.Envelope    `json:"arguments"`
}

// rpcRequest is the full outbound JSON-RPC 2.0 envelope.
type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

// rpcErrorObject mirrors a JSON-RPC 2.0 error object.
type rpcErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcResponse is the full inbound JSON-RPC 2.0 envelope. Result carries
// the responder's league.v2 protocol.Envelope when present.
type rpcResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      string            `json:"id"`
	Result  *protocol.Envelope `json:"result,omitempty"`
	Error   *rpcErrorObject    `json:"error,omitempty"`
}
