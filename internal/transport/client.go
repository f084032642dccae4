package transport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/league-agents/core/internal/platform/logging"
	"github.com/league-agents/core/internal/platform/resilience"
	"github.com/league-agents/core/internal/protocol"
)

// AuthTokenHeader carries the caller's auth_token/session_token on every
// request beyond registration, per spec.md §4.2.
const AuthTokenHeader = "X-League-Auth-Token"

// ClientConfig configures a peer Client.
type ClientConfig struct {
	DialTimeout     time.Duration
	IdleConnTimeout time.Duration
	CircuitBreaker  resilience.CircuitBreakerConfig
	Logger          *logging.Logger
}

// Client issues league.v2 tool calls to a peer's /mcp endpoint. One
// Client is safe for many concurrent in-flight calls and may be shared
// across many destination endpoints; fasthttp pools connections
// per-host internally, so no separate pool map is required here.
type Client struct {
	http   *fasthttp.Client
	logger *logging.Logger

	breakerCfg resilience.CircuitBreakerConfig
	breakersMu sync.Mutex
	breakers   map[string]*resilience.CircuitBreaker
}

// NewClient builds a Client from cfg, defaulting any zero fields.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	idleConnTimeout := cfg.IdleConnTimeout
	if idleConnTimeout <= 0 {
		idleConnTimeout = 90 * time.Second
	}

	return &Client{
		http: &fasthttp.Client{
			Dial:                (&fasthttp.TCPDialer{}).Dial,
			MaxIdleConnDuration: idleConnTimeout,
			ReadTimeout:         dialTimeout,
			WriteTimeout:        dialTimeout,
		},
		logger:     logger,
		breakerCfg: resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker),
		breakers:   make(map[string]*resilience.CircuitBreaker),
	}
}

func (c *Client) breakerFor(endpoint string) *resilience.CircuitBreaker {
	c.breakersMu.Lock()
	defer c.breakersMu.Unlock()

	b, ok := c.breakers[endpoint]
	if !ok {
		b = resilience.NewCircuitBreaker(c.breakerCfg.FailureThreshold, c.breakerCfg.OpenTimeout, c.breakerCfg.HalfOpenMaxReq)
		c.breakers[endpoint] = b
	}
	return b
}

// Call sends one league.v2 tool invocation to endpoint and returns the
// peer's response envelope, or one of ConnectError/TimeoutError/
// ProtocolError/RemoteError.
func (c *Client) Call(ctx context.Context, endpoint, leagueID, sender, authToken string, tool protocol.MessageType, payload any, timeout time.Duration) (protocol.Envelope, error) {
	breaker := c.breakerFor(endpoint)
	if c.breakerCfg.Enabled {
		if err := breaker.Allow(); err != nil {
			return protocol.Envelope{}, NewConnectError(endpoint, err)
		}
	}

	requestID := uuid.NewString()
	envelope := protocol.NewEnvelope(leagueID, sender, tool, payload)
	body, err := protocol.Marshal(rpcRequest{
		JSONRPC: jsonRPCVersion,
		ID:      requestID,
		Method:  toolCallMethod,
		Params:  rpcParams{Name: tool, Arguments: envelope},
	})
	if err != nil {
		return protocol.Envelope{}, NewProtocolError(endpoint, "encode request: "+err.Error())
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint + mcpPath)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if authToken != "" {
		req.Header.Set(AuthTokenHeader, authToken)
	}
	req.SetBody(body)

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	err = c.http.DoDeadline(req, resp, deadline)
	if err != nil {
		if c.breakerCfg.Enabled {
			breaker.RecordFailure()
		}
		if err == fasthttp.ErrTimeout {
			return protocol.Envelope{}, NewTimeoutError(endpoint, string(tool))
		}
		return protocol.Envelope{}, NewConnectError(endpoint, err)
	}

	var decoded rpcResponse
	if err := protocol.Unmarshal(resp.Body(), &decoded); err != nil {
		if c.breakerCfg.Enabled {
			breaker.RecordFailure()
		}
		return protocol.Envelope{}, NewProtocolError(endpoint, "decode response: "+err.Error())
	}
	if decoded.ID != requestID {
		if c.breakerCfg.Enabled {
			breaker.RecordFailure()
		}
		return protocol.Envelope{}, NewProtocolError(endpoint, "response id mismatch")
	}

	if c.breakerCfg.Enabled {
		breaker.RecordSuccess()
	}

	if decoded.Error != nil {
		return protocol.Envelope{}, NewRemoteError(endpoint, decoded.Error.Code, decoded.Error.Message)
	}
	if decoded.Result == nil {
		return protocol.Envelope{}, NewProtocolError(endpoint, "missing result")
	}
	return *decoded.Result, nil
}
