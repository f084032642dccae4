package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/league-agents/core/internal/platform/logging"
	"github.com/league-agents/core/internal/protocol"
)

// ToolHandler processes one decoded inbound league.v2 message and
// returns the reply message type and payload, or an error. Returning a
// *protocol.RPCError controls the JSON-RPC error code written back to
// the caller; any other error is reported as ErrorCodeInternal.
type ToolHandler func(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error)

// Authenticator validates the auth token header against the sender
// identity in envelope. Registration tools are exempt (see
// RegisterTool's skipAuth flag); every other tool must authenticate
// per spec.md §4.2.
type Authenticator func(ctx context.Context, envelope protocol.Envelope, token string) error

type registeredTool struct {
	handler  ToolHandler
	skipAuth bool
}

// Server exposes "POST /mcp" and "GET /health" per spec.md §6.2. Each
// inbound /mcp call gets its own root span — fasthttp has no
// net/http.Handler to wrap with otelhttp, so the span is started by
// hand around the dispatch, mirroring the "don't create a span unless
// you're a true entry point" discipline of the rest of this stack.
type Server struct {
	logger        *logging.Logger
	authenticator Authenticator
	startRootSpan func(ctx context.Context, name string) (context.Context, trace.Span)

	toolsMu sync.RWMutex
	tools   map[protocol.MessageType]registeredTool

	fast *fasthttp.Server
}

// NewServer builds an empty Server; register tools with RegisterTool
// before calling ListenAndServe.
func NewServer(logger *logging.Logger, authenticator Authenticator) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	root, _ := logging.NewSpanStarter("league.transport")
	s := &Server{
		logger:        logger,
		authenticator: authenticator,
		startRootSpan: root,
		tools:         make(map[protocol.MessageType]registeredTool),
	}
	s.fast = &fasthttp.Server{
		Handler: s.handle,
	}
	return s
}

// SetAuthenticator (re)binds the Server's Authenticator. Agents that
// authenticate against their own in-memory state (e.g. a Player
// checking a Referee-issued session token) construct the Server before
// the agent exists, then bind the agent's method here.
func (s *Server) SetAuthenticator(authenticator Authenticator) {
	s.toolsMu.Lock()
	defer s.toolsMu.Unlock()
	s.authenticator = authenticator
}

// RegisterTool wires a league.v2 message_type to its handler.
// skipAuth should be true only for the two registration request types.
func (s *Server) RegisterTool(name protocol.MessageType, handler ToolHandler, skipAuth bool) {
	s.toolsMu.Lock()
	defer s.toolsMu.Unlock()
	s.tools[name] = registeredTool{handler: handler, skipAuth: skipAuth}
}

// ListenAndServe blocks serving on addr until the listener errors or is
// closed by Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	return s.fast.ListenAndServe(addr)
}

// Shutdown gracefully stops the server, allowing in-flight requests to
// finish.
func (s *Server) Shutdown() error {
	return s.fast.Shutdown()
}

func (s *Server) handle(fctx *fasthttp.RequestCtx) {
	path := string(fctx.Path())
	switch {
	case path == healthPath && fctx.IsGet():
		s.handleHealth(fctx)
	case path == mcpPath && fctx.IsPost():
		s.handleMCP(fctx)
	default:
		fctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) handleHealth(fctx *fasthttp.RequestCtx) {
	fctx.SetContentType("application/json")
	fctx.SetStatusCode(fasthttp.StatusOK)
	_, _ = fctx.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleMCP(fctx *fasthttp.RequestCtx) {
	ctx, span := s.startRootSpan(context.Background(), "transport.mcp.handle")
	defer span.End()

	var req rpcRequest
	if err := protocol.Unmarshal(fctx.PostBody(), &req); err != nil {
		span.SetStatus(codes.Error, "malformed envelope")
		s.writeError(fctx, "", protocol.ErrorCodeInvalidRequest, "malformed envelope: "+err.Error())
		return
	}
	if req.JSONRPC != jsonRPCVersion || req.ID == "" || req.Method != toolCallMethod {
		span.SetStatus(codes.Error, "malformed jsonrpc envelope")
		s.writeError(fctx, req.ID, protocol.ErrorCodeInvalidRequest, "malformed jsonrpc envelope")
		return
	}
	span.SetAttributes(attribute.String("tool", string(req.Params.Name)))

	s.toolsMu.RLock()
	tool, known := s.tools[req.Params.Name]
	s.toolsMu.RUnlock()
	if !known {
		span.SetStatus(codes.Error, "unknown tool")
		s.writeError(fctx, req.ID, protocol.ErrorCodeUnknownTool, fmt.Sprintf("unknown tool %q", req.Params.Name))
		return
	}

	envelope := req.Params.Arguments
	if err := protocol.Validate(envelope); err != nil {
		span.SetStatus(codes.Error, "invalid params")
		s.writeError(fctx, req.ID, protocol.ErrorCodeInvalidParams, "invalid envelope: "+err.Error())
		return
	}

	if !tool.skipAuth {
		token := string(fctx.Request.Header.Peek(AuthTokenHeader))
		if s.authenticator == nil || s.authenticator(ctx, envelope, token) != nil {
			span.SetStatus(codes.Error, "unauthenticated")
			s.writeError(fctx, req.ID, protocol.ErrorCodeUnauthenticated, "unauthenticated")
			return
		}
	}

	replyType, payload, err := tool.handler(ctx, envelope)
	if err != nil {
		if rpcErr, ok := err.(*protocol.RPCError); ok {
			span.SetStatus(codes.Error, rpcErr.Message)
			s.writeError(fctx, req.ID, rpcErr.Code, rpcErr.Message)
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "internal error")
		s.logger.Zap().Error("tool handler failed", zap.String("tool", string(req.Params.Name)), zap.Error(err))
		s.writeError(fctx, req.ID, protocol.ErrorCodeInternal, "internal error")
		return
	}

	result := envelope.Reply(envelope.Sender, replyType, payload)
	s.writeResult(fctx, req.ID, result)
}

func (s *Server) writeResult(fctx *fasthttp.RequestCtx, id string, result protocol.Envelope) {
	body, err := protocol.Marshal(rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Result: &result})
	if err != nil {
		fctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	fctx.SetContentType("application/json")
	fctx.SetStatusCode(fasthttp.StatusOK)
	_, _ = fctx.Write(body)
}

func (s *Server) writeError(fctx *fasthttp.RequestCtx, id string, code protocol.ErrorCode, message string) {
	body, err := protocol.Marshal(rpcResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &rpcErrorObject{Code: int(code), Message: message},
	})
	if err != nil {
		fctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	fctx.SetContentType("application/json")
	fctx.SetStatusCode(fasthttp.StatusOK)
	_, _ = fctx.Write(body)
}
