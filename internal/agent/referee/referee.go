// Package referee implements the Referee agent of spec.md §4.5: accepts
// match.assign from the League Manager, runs the invite and play phases
// against the two assigned Players, finalizes the outcome via the
// matched GameRules, and reports the result with at-least-once
// semantics.
package referee

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/league-agents/core/internal/domain/gamerules"
	"github.com/league-agents/core/internal/domain/match"
	"github.com/league-agents/core/internal/observability"
	"github.com/league-agents/core/internal/platform/logging"
	"github.com/league-agents/core/internal/protocol"
	"github.com/league-agents/core/internal/repository"
	"github.com/league-agents/core/internal/transport"
)

// Config holds a Referee's self-description and tuning knobs.
type Config struct {
	LeagueID              string
	SelfEndpoint          string
	DisplayName           string
	Version               string
	SupportedGameTypes    []string
	LeagueManagerEndpoint string
	MaxConcurrentMatches  int
	RegisterTimeout       time.Duration
}

// Referee is the agent: a JSON-RPC server (inbound match.assign) and
// client (outbound invites, move calls, result reporting) in one
// process. At most Config.MaxConcurrentMatches MatchRunners execute
// concurrently, enforced by an ants worker pool.
type Referee struct {
	cfg     Config
	client  *transport.Client
	server  *transport.Server
	rules   map[string]gamerules.GameRules
	logger  *logging.Logger
	sink    observability.Sink
	outbox  repository.ResultOutbox

	identityMu sync.RWMutex
	refereeID  string
	authToken  string

	pool       *ants.Pool
	loadMu     sync.Mutex
	currentLoad int
}

// New builds a Referee, sizing its worker pool to cfg.MaxConcurrentMatches
// and registering match.assign on server.
func New(cfg Config, client *transport.Client, server *transport.Server, rules map[string]gamerules.GameRules, logger *logging.Logger, sink observability.Sink, outbox repository.ResultOutbox) (*Referee, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if sink == nil {
		sink = observability.NopSink{}
	}
	size := cfg.MaxConcurrentMatches
	if size <= 0 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create match worker pool: %w", err)
	}

	r := &Referee{
		cfg:    cfg,
		client: client,
		server: server,
		rules:  rules,
		logger: logger,
		sink:   sink,
		outbox: outbox,
		pool:   pool,
	}

	server.RegisterTool(protocol.MessageTypeMatchAssign, r.handleMatchAssign, false)
	return r, nil
}

// Authenticate is the Referee's transport.Authenticator: every request
// beyond registration must carry the Referee's own AuthToken, minted by
// the League Manager at referee.register.
func (r *Referee) Authenticate(_ context.Context, _ protocol.Envelope, token string) error {
	r.identityMu.RLock()
	defer r.identityMu.RUnlock()
	if token == "" || token != r.authToken {
		return fmt.Errorf("invalid or missing auth token")
	}
	return nil
}

// ID returns the RefereeID assigned at registration, or "" if
// unregistered.
func (r *Referee) ID() string {
	r.identityMu.RLock()
	defer r.identityMu.RUnlock()
	return r.refereeID
}

// Close releases the worker pool's goroutines.
func (r *Referee) Close() {
	r.pool.Release()
}

// Register performs referee.register.request against the configured
// League Manager, mirroring the Player's 3-attempt capped exponential
// backoff (base 500ms, cap 8s, jitter +-25%).
func (r *Referee) Register(ctx context.Context) error {
	const maxAttempts = 3
	req := protocol.RefereeRegisterRequest{
		DisplayName:          r.cfg.DisplayName,
		Version:              r.cfg.Version,
		SupportedGameTypes:   r.cfg.SupportedGameTypes,
		ContactEndpoint:      r.cfg.SelfEndpoint,
		MaxConcurrentMatches: r.cfg.MaxConcurrentMatches,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		timeout := r.cfg.RegisterTimeout
		if timeout <= 0 {
			timeout = protocol.DeadlineRegistration
		}
		envelope, err := r.client.Call(ctx, r.cfg.LeagueManagerEndpoint, r.cfg.LeagueID, r.cfg.DisplayName, "",
			protocol.MessageTypeRefereeRegisterRequest, req, timeout)
		if err != nil {
			lastErr = err
			r.logger.WarnContext(ctx, "referee registration attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			if attempt < maxAttempts {
				sleepBackoff(ctx, attempt)
			}
			continue
		}

		var resp protocol.RefereeRegisterResponse
		if err := protocol.DecodePayload(envelope.Payload, &resp); err != nil {
			lastErr = fmt.Errorf("decode registration response: %w", err)
			continue
		}
		if resp.Status != protocol.RegistrationAccepted {
			return fmt.Errorf("registration rejected: %s", resp.Reason)
		}

		r.identityMu.Lock()
		r.refereeID = resp.RefereeID
		r.authToken = resp.AuthToken
		r.identityMu.Unlock()

		r.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: r.cfg.LeagueID, ToState: "registered", Peer: resp.RefereeID})
		return nil
	}
	return fmt.Errorf("referee registration failed after %d attempts: %w", maxAttempts, lastErr)
}

func sleepBackoff(ctx context.Context, attempt int) {
	base := 500 * time.Millisecond
	capDelay := 8 * time.Second
	backoff := base << (attempt - 1)
	if backoff > capDelay || backoff <= 0 {
		backoff = capDelay
	}
	jitter := time.Duration(float64(backoff) * (rand.Float64()*0.5 - 0.25))
	delay := backoff + jitter
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (r *Referee) handleMatchAssign(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
	var assign protocol.MatchAssign
	if err := protocol.DecodePayload(envelope.Payload, &assign); err != nil {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeInvalidParams, err.Error())
	}

	rules, ok := r.rules[assign.GameType]
	if !ok {
		return protocol.MessageTypeMatchAck, protocol.MatchAck{Accepted: false, Reason: "unsupported game type"}, nil
	}

	if !r.tryAcquireCapacity() {
		return protocol.MessageTypeMatchAck, protocol.MatchAck{Accepted: false, Reason: "at capacity"}, nil
	}

	runner := &matchRunner{
		referee: r,
		rules:   rules,
		assign:  assign,
	}
	if err := r.pool.Submit(func() { runner.run(context.Background()) }); err != nil {
		r.releaseCapacity()
		return protocol.MessageTypeMatchAck, protocol.MatchAck{Accepted: false, Reason: "worker pool unavailable"}, nil
	}

	r.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: envelope.LeagueID, MatchID: assign.MatchID, RoundID: assign.RoundID, ToState: string(match.StateAccepted)})
	return protocol.MessageTypeMatchAck, protocol.MatchAck{Accepted: true}, nil
}

func (r *Referee) tryAcquireCapacity() bool {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.currentLoad >= r.cfg.MaxConcurrentMatches {
		return false
	}
	r.currentLoad++
	return true
}

func (r *Referee) releaseCapacity() {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.currentLoad > 0 {
		r.currentLoad--
	}
}
