package transport

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/league-agents/core/internal/platform/resilience"
	"github.com/league-agents/core/internal/protocol"
)

func TestServerClient_RoundTripsToolCall(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, func(ctx context.Context, envelope protocol.Envelope, token string) error {
		if token != "shared-secret" {
			return fmt.Errorf("bad token")
		}
		return nil
	})
	server.RegisterTool(protocol.MessageTypeGameInviteAck, func(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
		var ack protocol.GameInviteAck
		if err := protocol.DecodePayload(envelope.Payload, &ack); err != nil {
			return "", nil, protocol.NewRPCError(protocol.ErrorCodeInvalidParams, err.Error())
		}
		return protocol.MessageTypeGameInviteAck, protocol.GameInviteAck{Accepted: ack.Accepted}, nil
	}, false)

	ln := fasthttputil.NewInmemoryListener()
	defer ln.Close()

	go func() {
		_ = server.fast.Serve(ln)
	}()

	client := NewClient(ClientConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})
	client.http.Dial = func(addr string) (net.Conn, error) {
		return ln.Dial()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Call(ctx, "http://in-memory", "league-1", "referee-1", "shared-secret",
		protocol.MessageTypeGameInviteAck, protocol.GameInviteAck{Accepted: true}, time.Second)
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	var ack protocol.GameInviteAck
	if err := protocol.DecodePayload(resp.Payload, &ack); err != nil {
		t.Fatalf("decode response payload: %v", err)
	}
	if !ack.Accepted {
		t.Fatalf("expected accepted=true in round-tripped response")
	}
}

func TestServerClient_RejectsMissingAuthToken(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, func(ctx context.Context, envelope protocol.Envelope, token string) error {
		return fmt.Errorf("always reject")
	})
	server.RegisterTool(protocol.MessageTypeGameInviteAck, func(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
		return protocol.MessageTypeGameInviteAck, protocol.GameInviteAck{Accepted: true}, nil
	}, false)

	ln := fasthttputil.NewInmemoryListener()
	defer ln.Close()
	go func() { _ = server.fast.Serve(ln) }()

	client := NewClient(ClientConfig{CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false}})
	client.http.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Call(ctx, "http://in-memory", "league-1", "referee-1", "",
		protocol.MessageTypeGameInviteAck, protocol.GameInviteAck{Accepted: true}, time.Second)
	if err == nil {
		t.Fatalf("expected an authentication error")
	}
	remoteErr, ok := AsRemoteError(err)
	if !ok {
		t.Fatalf("expected *RemoteError, got %T: %v", err, err)
	}
	if remoteErr.Code != int(protocol.ErrorCodeUnauthenticated) {
		t.Fatalf("expected UNAUTHENTICATED code, got %d", remoteErr.Code)
	}
}
