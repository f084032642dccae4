package transport

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ConnectError wraps a failure to establish or complete the underlying
// HTTP exchange (DNS, dial, connection reset).
type ConnectError struct {
	Endpoint string
	Cause    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Endpoint, e.Cause)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

// NewConnectError builds a ConnectError with a stack trace captured at
// the call site, so a logged peer-dial failure points back at the Call
// that triggered it rather than just the fasthttp internals.
func NewConnectError(endpoint string, cause error) error {
	return errors.WithStack(&ConnectError{Endpoint: endpoint, Cause: cause})
}

// TimeoutError reports the per-call deadline elapsing before a response
// arrived.
type TimeoutError struct {
	Endpoint string
	Tool     string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("call %s on %s timed out", e.Tool, e.Endpoint)
}

func NewTimeoutError(endpoint, tool string) error {
	return errors.WithStack(&TimeoutError{Endpoint: endpoint, Tool: tool})
}

// ProtocolError reports a malformed JSON-RPC envelope: invalid JSON, a
// missing id, or an id that does not match the request.
type ProtocolError struct {
	Endpoint string
	Reason   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error from %s: %s", e.Endpoint, e.Reason)
}

func NewProtocolError(endpoint, reason string) error {
	return errors.WithStack(&ProtocolError{Endpoint: endpoint, Reason: reason})
}

// RemoteError reports a well-formed JSON-RPC error object returned by
// the peer; Code and Message mirror protocol.RPCError.
type RemoteError struct {
	Endpoint string
	Code     int
	Message  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error from %s: %d %s", e.Endpoint, e.Code, e.Message)
}

func NewRemoteError(endpoint string, code int, message string) error {
	return errors.WithStack(&RemoteError{Endpoint: endpoint, Code: code, Message: message})
}

// AsRemoteError unwraps err (which may carry a cockroachdb/errors stack
// frame) down to its *RemoteError, if any.
func AsRemoteError(err error) (*RemoteError, bool) {
	var remoteErr *RemoteError
	return remoteErr, errors.As(err, &remoteErr)
}
