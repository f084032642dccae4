// Package player implements the Player agent of spec.md §4.3: registers
// with the League Manager, accepts game invitations, and produces moves
// via a pluggable Strategy, falling back to the GameRules default move
// whenever the Strategy misses its deadline.
package player

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/league-agents/core/internal/domain/apperr"
	"github.com/league-agents/core/internal/domain/gamerules"
	"github.com/league-agents/core/internal/domain/match"
	"github.com/league-agents/core/internal/domain/strategy"
	"github.com/league-agents/core/internal/observability"
	"github.com/league-agents/core/internal/platform/authtoken"
	"github.com/league-agents/core/internal/platform/logging"
	"github.com/league-agents/core/internal/protocol"
	"github.com/league-agents/core/internal/transport"
)

// Config holds everything a Player needs to know about itself and its
// League Manager before registration.
type Config struct {
	LeagueID              string
	SelfEndpoint          string
	DisplayName           string
	Version               string
	SupportedGameTypes    []string
	LeagueManagerEndpoint string
	RegisterTimeout       time.Duration
}

type session struct {
	matchID          string
	opponentID       string
	opponentEndpoint string
	roleTag          protocol.Role
	gameType         string
	bestOfK          int
	sessionToken     string
	state            match.GameSessionState
	runningScore     protocol.RunningScore
	history          []strategy.HistoryEntry
}

// Player is the agent: a JSON-RPC server (inbound invites/moves) and
// client (outbound registration) in one process.
type Player struct {
	cfg      Config
	client   *transport.Client
	server   *transport.Server
	strategy strategy.Strategy
	rules    map[string]gamerules.GameRules
	logger   *logging.Logger
	sink     observability.Sink

	identityMu sync.RWMutex
	playerID   string
	authToken  string

	sessionsMu sync.Mutex
	sessions   map[string]*session

	standingsMu sync.Mutex
	standings   []protocol.StandingRow
}

// New builds a Player and registers its inbound tool handlers on
// server. Register may run after the server has started listening:
// peers only dial back once registration and a match.assign have
// occurred.
func New(cfg Config, client *transport.Client, server *transport.Server, strat strategy.Strategy, rules map[string]gamerules.GameRules, logger *logging.Logger, sink observability.Sink) *Player {
	if logger == nil {
		logger = logging.Default()
	}
	if sink == nil {
		sink = observability.NopSink{}
	}
	p := &Player{
		cfg:      cfg,
		client:   client,
		server:   server,
		strategy: strat,
		rules:    rules,
		logger:   logger,
		sink:     sink,
		sessions: make(map[string]*session),
	}

	server.RegisterTool(protocol.MessageTypeGameInvite, p.handleGameInvite, false)
	server.RegisterTool(protocol.MessageTypeChooseMoveCall, p.handleChooseMove, false)
	server.RegisterTool(protocol.MessageTypeRoundResult, p.handleRoundResult, false)
	server.RegisterTool(protocol.MessageTypeGameOver, p.handleGameOver, false)
	server.RegisterTool(protocol.MessageTypeStandingsUpdate, p.handleStandingsUpdate, true)
	server.RegisterTool(protocol.MessageTypeLeagueCompleted, p.handleLeagueCompleted, true)

	return p
}

// Authenticate is the Player's transport.Authenticator. A game.invite
// carries no prior session to check a header token against, so it is
// verified instead by re-deriving the session token with the same HKDF
// scheme the Referee used to mint it and comparing that against the
// token embedded in the invite payload. Every other message must carry
// the session_token the Referee minted for that match_id at invite time.
func (p *Player) Authenticate(_ context.Context, envelope protocol.Envelope, token string) error {
	if envelope.MessageType == protocol.MessageTypeGameInvite {
		var invite protocol.GameInvite
		if err := protocol.DecodePayload(envelope.Payload, &invite); err != nil || invite.MatchID == "" {
			return fmt.Errorf("%w: missing match_id", apperr.ErrUnauthorized)
		}

		p.identityMu.RLock()
		selfID, selfAuthToken := p.playerID, p.authToken
		p.identityMu.RUnlock()

		expected, err := authtoken.DeriveSessionToken(selfAuthToken, selfID, invite.MatchID)
		if err != nil || invite.SessionToken == "" || invite.SessionToken != expected {
			return apperr.ErrUnauthorized
		}
		return nil
	}

	var ref struct {
		MatchID string `json:"match_id"`
	}
	if err := protocol.DecodePayload(envelope.Payload, &ref); err != nil || ref.MatchID == "" {
		return fmt.Errorf("%w: missing match_id", apperr.ErrUnauthorized)
	}

	p.sessionsMu.Lock()
	sess, ok := p.sessions[ref.MatchID]
	p.sessionsMu.Unlock()
	if !ok || token == "" || token != sess.sessionToken {
		return apperr.ErrUnauthorized
	}
	return nil
}

// ID returns the PlayerID assigned at registration, or "" if
// unregistered.
func (p *Player) ID() string {
	p.identityMu.RLock()
	defer p.identityMu.RUnlock()
	return p.playerID
}

// Register performs player.register.request against the configured
// League Manager, retrying up to 3 attempts total with capped
// exponential backoff (base 500ms, cap 8s, jitter +-25%), per spec.md
// §4.3.
func (p *Player) Register(ctx context.Context) error {
	const maxAttempts = 3
	req := protocol.PlayerRegisterRequest{
		DisplayName:        p.cfg.DisplayName,
		Version:            p.cfg.Version,
		SupportedGameTypes: p.cfg.SupportedGameTypes,
		ContactEndpoint:    p.cfg.SelfEndpoint,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		timeout := p.cfg.RegisterTimeout
		if timeout <= 0 {
			timeout = protocol.DeadlineRegistration
		}
		envelope, err := p.client.Call(ctx, p.cfg.LeagueManagerEndpoint, p.cfg.LeagueID, p.cfg.DisplayName, "",
			protocol.MessageTypePlayerRegisterRequest, req, timeout)
		if err != nil {
			lastErr = err
			p.logger.WarnContext(ctx, "player registration attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			if attempt < maxAttempts {
				sleepBackoff(ctx, attempt)
			}
			continue
		}

		var resp protocol.PlayerRegisterResponse
		if err := protocol.DecodePayload(envelope.Payload, &resp); err != nil {
			lastErr = fmt.Errorf("decode registration response: %w", err)
			continue
		}
		if resp.Status != protocol.RegistrationAccepted {
			return fmt.Errorf("registration rejected: %s", resp.Reason)
		}

		p.identityMu.Lock()
		p.playerID = resp.PlayerID
		p.authToken = resp.AuthToken
		p.identityMu.Unlock()

		p.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: p.cfg.LeagueID, ToState: "registered", Peer: resp.PlayerID})
		return nil
	}
	return fmt.Errorf("player registration failed after %d attempts: %w", maxAttempts, lastErr)
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

func (p *Player) handleGameInvite(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
	var invite protocol.GameInvite
	if err := protocol.DecodePayload(envelope.Payload, &invite); err != nil {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeInvalidParams, err.Error())
	}

	p.sessionsMu.Lock()
	_, exists := p.sessions[invite.MatchID]
	p.sessionsMu.Unlock()
	if exists {
		return protocol.MessageTypeGameInviteAck, protocol.GameInviteAck{Accepted: false, Reason: "already in a session for this match"}, nil
	}
	if !p.supportsGameType(invite.GameType) {
		return protocol.MessageTypeGameInviteAck, protocol.GameInviteAck{Accepted: false, Reason: "unsupported game type"}, nil
	}

	sess := &session{
		matchID:          invite.MatchID,
		opponentID:       invite.OpponentID,
		opponentEndpoint: invite.OpponentEndpoint,
		roleTag:          invite.RoleTag,
		gameType:         invite.GameType,
		bestOfK:          invite.BestOfK,
		sessionToken:     invite.SessionToken,
		state:            match.SessionAccepted,
	}
	p.sessionsMu.Lock()
	p.sessions[invite.MatchID] = sess
	p.sessionsMu.Unlock()

	p.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: envelope.LeagueID, MatchID: invite.MatchID, ToState: string(match.SessionAccepted), Peer: invite.OpponentID})
	return protocol.MessageTypeGameInviteAck, protocol.GameInviteAck{Accepted: true}, nil
}

func (p *Player) supportsGameType(gameType string) bool {
	for _, t := range p.cfg.SupportedGameTypes {
		if t == gameType {
			return true
		}
	}
	return false
}

func (p *Player) handleChooseMove(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
	var call protocol.ChooseMoveCall
	if err := protocol.DecodePayload(envelope.Payload, &call); err != nil {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeInvalidParams, err.Error())
	}

	p.sessionsMu.Lock()
	sess, ok := p.sessions[call.MatchID]
	p.sessionsMu.Unlock()
	if !ok {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeUnknownMatch, "no session for match_id")
	}

	p.transitionSession(sess, match.SessionMakingMove)

	cancelAt := call.Deadline.Add(-protocol.MoveCancellationWindow)
	strategyCtx, cancel := context.WithDeadline(ctx, cancelAt)
	defer cancel()

	view := strategy.View{
		GameType:    sess.gameType,
		RoleTag:     roleToWinner(sess.roleTag),
		GameRoundID: call.GameRoundID,
		History:     cloneHistory(sess.history),
	}
	view.RunningScore.A = call.RunningScore.A
	view.RunningScore.B = call.RunningScore.B

	type choice struct {
		move string
		err  error
	}
	chosen := make(chan choice, 1)
	go func() {
		mv, chooseErr := p.strategy.ChooseMove(strategyCtx, view)
		chosen <- choice{move: mv, err: chooseErr}
	}()

	var move string
	var err error
	select {
	case c := <-chosen:
		move, err = c.move, c.err
	case <-strategyCtx.Done():
		err = strategyCtx.Err()
	}
	if err != nil || move == "" {
		rules := p.rules[sess.gameType]
		move = rules.DefaultMove(roleToWinner(sess.roleTag))
		p.logger.WarnContext(ctx, "strategy missed deadline or failed, substituting default move",
			zap.String("match_id", call.MatchID), zap.Int("game_round_id", call.GameRoundID), zap.Error(err))
	}

	p.transitionSession(sess, match.SessionAwaitingNext)
	return protocol.MessageTypeChooseMoveResp, protocol.ChooseMoveResponse{
		MatchID:     call.MatchID,
		GameRoundID: call.GameRoundID,
		Move:        move,
	}, nil
}

func roleToWinner(role protocol.Role) match.RoundWinner {
	if role == protocol.RoleA {
		return match.RoundWinnerA
	}
	return match.RoundWinnerB
}

func cloneHistory(in []strategy.HistoryEntry) []strategy.HistoryEntry {
	out := make([]strategy.HistoryEntry, len(in))
	copy(out, in)
	return out
}

func (p *Player) handleRoundResult(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
	var result protocol.RoundResult
	if err := protocol.DecodePayload(envelope.Payload, &result); err != nil {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeInvalidParams, err.Error())
	}

	p.sessionsMu.Lock()
	sess, ok := p.sessions[result.MatchID]
	p.sessionsMu.Unlock()
	if !ok {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeUnknownMatch, "no session for match_id")
	}

	winner := match.RoundWinner("")
	if result.RoundWinnerRole != nil {
		winner = roleToWinner(*result.RoundWinnerRole)
	} else {
		winner = match.RoundWinnerDraw
	}

	p.sessionsMu.Lock()
	sess.history = append(sess.history, strategy.HistoryEntry{
		OwnMove:      result.YourMove,
		OpponentMove: result.OpponentMove,
		RoundWinner:  winner,
	})
	sess.runningScore = result.RunningScore
	p.sessionsMu.Unlock()

	return protocol.MessageTypeRoundResult, struct{}{}, nil
}

func (p *Player) handleGameOver(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
	var over protocol.GameOver
	if err := protocol.DecodePayload(envelope.Payload, &over); err != nil {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeInvalidParams, err.Error())
	}

	p.sessionsMu.Lock()
	sess, ok := p.sessions[over.MatchID]
	if ok {
		sess.state = match.SessionCompleted
		delete(p.sessions, over.MatchID)
	}
	p.sessionsMu.Unlock()

	p.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: envelope.LeagueID, MatchID: over.MatchID, ToState: string(match.SessionCompleted), Fields: map[string]string{"status": string(over.Status)}})
	return protocol.MessageTypeGameOver, struct{}{}, nil
}

// handleStandingsUpdate records the League Manager's per-round standings
// broadcast as the Player's local view (spec.md §4, §5's per-player
// ordering guarantee).
func (p *Player) handleStandingsUpdate(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
	var update protocol.StandingsUpdate
	if err := protocol.DecodePayload(envelope.Payload, &update); err != nil {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeInvalidParams, err.Error())
	}

	p.standingsMu.Lock()
	p.standings = update.Standings
	p.standingsMu.Unlock()

	p.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: envelope.LeagueID, ToState: "standings_updated", Fields: map[string]string{"round_id": update.RoundID}})
	return protocol.MessageTypeStandingsUpdate, struct{}{}, nil
}

// handleLeagueCompleted records the final standings broadcast at
// league completion (spec.md §3.4).
func (p *Player) handleLeagueCompleted(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
	var completed protocol.LeagueCompleted
	if err := protocol.DecodePayload(envelope.Payload, &completed); err != nil {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeInvalidParams, err.Error())
	}

	p.standingsMu.Lock()
	p.standings = completed.FinalStandings
	p.standingsMu.Unlock()

	champion := ""
	if completed.ChampionID != nil {
		champion = *completed.ChampionID
	}
	p.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: envelope.LeagueID, ToState: "league_completed", Fields: map[string]string{"champion_id": champion}})
	return protocol.MessageTypeLeagueCompleted, struct{}{}, nil
}

// Standings returns the Player's most recently received standings
// snapshot (empty until the first standings.update or league.completed
// arrives).
func (p *Player) Standings() []protocol.StandingRow {
	p.standingsMu.Lock()
	defer p.standingsMu.Unlock()
	out := make([]protocol.StandingRow, len(p.standings))
	copy(out, p.standings)
	return out
}

func (p *Player) transitionSession(sess *session, to match.GameSessionState) {
	p.sessionsMu.Lock()
	defer p.sessionsMu.Unlock()
	if match.CanTransitionSession(sess.state, to) {
		sess.state = to
	}
}
