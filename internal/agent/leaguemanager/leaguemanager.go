// Package leaguemanager implements the League Manager agent of
// spec.md §4.6: registration, schedule construction, round dispatch
// with referee-capacity backpressure and watchdog reassignment,
// idempotent result ingestion, and cached standings.
package leaguemanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/league-agents/core/internal/domain/league"
	"github.com/league-agents/core/internal/domain/match"
	"github.com/league-agents/core/internal/domain/registry"
	"github.com/league-agents/core/internal/domain/schedule"
	"github.com/league-agents/core/internal/domain/standings"
	"github.com/league-agents/core/internal/observability"
	"github.com/league-agents/core/internal/platform/authtoken"
	"github.com/league-agents/core/internal/platform/logging"
	"github.com/league-agents/core/internal/platform/resilience"
	"github.com/league-agents/core/internal/protocol"
	"github.com/league-agents/core/internal/repository"
	"github.com/league-agents/core/internal/transport"
)

// Config holds the League Manager's self-description and tournament
// rules (spec.md §3.6, §6.3).
type Config struct {
	LeagueID               string
	SelfEndpoint           string
	Version                string
	GameType               string
	MinPlayers             int
	BestOfK                int
	PointsWin              int
	PointsDraw             int
	AuthTokenBytes         int
	AssignDeadline         time.Duration
	RoundWatchdogMultiplier int
}

const standingsCacheKey = "standings"

// LeagueManager is the agent: a JSON-RPC server for registration,
// reporting, and read-only queries, a JSON-RPC client for match.assign,
// and an operator.Channel for start_league/run_round/run_all_rounds.
type LeagueManager struct {
	cfg       Config
	client    *transport.Client
	server    *transport.Server
	directory *registry.Directory
	logger    *logging.Logger
	sink      observability.Sink

	playersRepo   repository.Players
	refereesRepo  repository.Referees
	matchesRepo   repository.Matches
	resultsRepo   repository.Results
	standingsRepo repository.Standings

	standingsCache *resilience.Cache

	stateMu         sync.Mutex
	state           league.State
	sched           schedule.Schedule
	currentRoundIdx int
	matchIndex      map[string]schedule.Match // matchID -> schedule entry, built at start_league

	resultsMu     sync.Mutex
	results       map[string]match.Result // matchID -> accepted result
	matchReferee  map[string]string       // matchID -> dispatched RefereeID

	roundsMu sync.Mutex
	pending  map[string]map[string]struct{} // roundID -> set of outstanding non-BYE matchIDs
	roundDone map[string]chan struct{}      // roundID -> closed when pending becomes empty

	backlogMu sync.Mutex
	backlog   []dispatchRequest // matches awaiting referee capacity
	wakeup    chan struct{}     // buffered(1) nudge for dispatchLoop

	reassignedMu sync.Mutex
	reassigned   map[string]bool // matchID -> already reassigned once

	cancelDispatch context.CancelFunc
}

type dispatchRequest struct {
	roundID string
	m       schedule.Match
	exclude map[string]bool
}

// New builds a League Manager and registers its inbound tool handlers.
func New(cfg Config, client *transport.Client, server *transport.Server, directory *registry.Directory,
	playersRepo repository.Players, refereesRepo repository.Referees, matchesRepo repository.Matches,
	resultsRepo repository.Results, standingsRepo repository.Standings,
	logger *logging.Logger, sink observability.Sink) *LeagueManager {
	if logger == nil {
		logger = logging.Default()
	}
	if sink == nil {
		sink = observability.NopSink{}
	}
	if cfg.RoundWatchdogMultiplier <= 0 {
		cfg.RoundWatchdogMultiplier = 5
	}

	lm := &LeagueManager{
		cfg:            cfg,
		client:         client,
		server:         server,
		directory:      directory,
		logger:         logger,
		sink:           sink,
		playersRepo:    playersRepo,
		refereesRepo:   refereesRepo,
		matchesRepo:    matchesRepo,
		resultsRepo:    resultsRepo,
		standingsRepo:  standingsRepo,
		standingsCache: resilience.NewCache(0),
		state:          league.StateRegistration,
		results:        make(map[string]match.Result),
		matchReferee:   make(map[string]string),
		pending:        make(map[string]map[string]struct{}),
		roundDone:      make(map[string]chan struct{}),
		wakeup:         make(chan struct{}, 1),
		reassigned:     make(map[string]bool),
	}

	server.RegisterTool(protocol.MessageTypePlayerRegisterRequest, lm.handlePlayerRegister, true)
	server.RegisterTool(protocol.MessageTypeRefereeRegisterRequest, lm.handleRefereeRegister, true)
	server.RegisterTool(protocol.MessageTypeMatchResultReport, lm.handleMatchResultReport, false)
	server.RegisterTool(protocol.MessageTypeStandingsGet, lm.handleStandingsGet, false)
	server.RegisterTool(protocol.MessageTypeScheduleGet, lm.handleScheduleGet, false)
	server.RegisterTool(protocol.MessageTypeLeagueStatus, lm.handleLeagueStatus, false)

	dispatchCtx, cancel := context.WithCancel(context.Background())
	lm.cancelDispatch = cancel
	go lm.dispatchLoop(dispatchCtx)
	return lm
}

// Authenticate is the League Manager's transport.Authenticator: the
// presented token must match the stored AuthToken of either a
// registered player or a registered referee named by envelope.Sender.
func (lm *LeagueManager) Authenticate(_ context.Context, envelope protocol.Envelope, token string) error {
	if token == "" {
		return fmt.Errorf("missing auth token")
	}
	if rec, ok := lm.directory.Player(envelope.Sender); ok {
		if rec.AuthToken == token {
			return nil
		}
	}
	if rec, ok := lm.directory.Referee(envelope.Sender); ok {
		if rec.AuthToken == token {
			return nil
		}
	}
	return fmt.Errorf("invalid auth token for sender %q", envelope.Sender)
}

func (lm *LeagueManager) currentState() league.State {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	return lm.state
}

func (lm *LeagueManager) handlePlayerRegister(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
	var req protocol.PlayerRegisterRequest
	if err := protocol.DecodePayload(envelope.Payload, &req); err != nil {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeInvalidParams, err.Error())
	}

	if lm.currentState() != league.StateRegistration {
		return protocol.MessageTypePlayerRegisterResponse, protocol.PlayerRegisterResponse{
			Status: protocol.RegistrationRejected, Reason: "registration is closed",
		}, nil
	}
	if !supportsGameType(req.SupportedGameTypes, lm.cfg.GameType) {
		return protocol.MessageTypePlayerRegisterResponse, protocol.PlayerRegisterResponse{
			Status: protocol.RegistrationRejected, Reason: fmt.Sprintf("unsupported game type, league plays %q", lm.cfg.GameType),
		}, nil
	}

	authToken, err := authtoken.Mint(lm.cfg.AuthTokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("mint player auth token: %w", err)
	}

	rec := registry.PlayerRecord{
		PlayerID:           mintID("player"),
		DisplayName:        req.DisplayName,
		Endpoint:           req.ContactEndpoint,
		SupportedGameTypes: req.SupportedGameTypes,
		AuthToken:          authToken,
		Status:             registry.PlayerStatusActive,
	}
	if err := lm.directory.RegisterPlayer(rec); err != nil {
		return "", nil, fmt.Errorf("register player: %w", err)
	}
	if lm.playersRepo != nil {
		if err := lm.playersRepo.Put(ctx, rec); err != nil {
			lm.logger.WarnContext(ctx, "player durability write failed", zap.String("player_id", rec.PlayerID), zap.Error(err))
		}
	}

	lm.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: lm.cfg.LeagueID, ToState: "registered", Peer: rec.PlayerID})
	return protocol.MessageTypePlayerRegisterResponse, protocol.PlayerRegisterResponse{
		Status: protocol.RegistrationAccepted, PlayerID: rec.PlayerID, AuthToken: rec.AuthToken,
	}, nil
}

func (lm *LeagueManager) handleRefereeRegister(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
	var req protocol.RefereeRegisterRequest
	if err := protocol.DecodePayload(envelope.Payload, &req); err != nil {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeInvalidParams, err.Error())
	}

	if lm.currentState() != league.StateRegistration {
		return protocol.MessageTypeRefereeRegisterResponse, protocol.RefereeRegisterResponse{
			Status: protocol.RegistrationRejected, Reason: "registration is closed",
		}, nil
	}
	if !supportsGameType(req.SupportedGameTypes, lm.cfg.GameType) {
		return protocol.MessageTypeRefereeRegisterResponse, protocol.RefereeRegisterResponse{
			Status: protocol.RegistrationRejected, Reason: fmt.Sprintf("unsupported game type, league plays %q", lm.cfg.GameType),
		}, nil
	}

	authToken, err := authtoken.Mint(lm.cfg.AuthTokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("mint referee auth token: %w", err)
	}

	rec := registry.RefereeRecord{
		RefereeID:            mintID("referee"),
		Endpoint:              req.ContactEndpoint,
		SupportedGameTypes:    req.SupportedGameTypes,
		MaxConcurrentMatches:  req.MaxConcurrentMatches,
		AuthToken:             authToken,
	}
	if err := lm.directory.RegisterReferee(rec); err != nil {
		return "", nil, fmt.Errorf("register referee: %w", err)
	}
	if lm.refereesRepo != nil {
		if err := lm.refereesRepo.Put(ctx, rec); err != nil {
			lm.logger.WarnContext(ctx, "referee durability write failed", zap.String("referee_id", rec.RefereeID), zap.Error(err))
		}
	}

	lm.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: lm.cfg.LeagueID, ToState: "registered", Peer: rec.RefereeID})
	lm.wakeDispatcher()
	return protocol.MessageTypeRefereeRegisterResponse, protocol.RefereeRegisterResponse{
		Status: protocol.RegistrationAccepted, RefereeID: rec.RefereeID, AuthToken: rec.AuthToken,
	}, nil
}

func supportsGameType(supported []string, want string) bool {
	for _, t := range supported {
		if t == want {
			return true
		}
	}
	return false
}

func mintID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func (lm *LeagueManager) handleStandingsGet(ctx context.Context, _ protocol.Envelope) (protocol.MessageType, any, error) {
	rows := lm.computeStandings(ctx)
	out := make([]protocol.StandingRow, len(rows))
	for i, r := range rows {
		out[i] = protocol.StandingRow{PlayerID: r.PlayerID, Wins: r.Wins, Losses: r.Losses, Draws: r.Draws, Points: r.Points, Rank: r.Rank}
	}
	return protocol.MessageTypeStandingsGet, protocol.StandingsUpdate{Standings: out, RoundID: lm.currentRoundID()}, nil
}

func (lm *LeagueManager) handleScheduleGet(_ context.Context, _ protocol.Envelope) (protocol.MessageType, any, error) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	rounds := make([]protocol.RoundSummary, len(lm.sched.Rounds))
	for i, r := range lm.sched.Rounds {
		matches := make([]protocol.ScheduledMatchSummary, len(r.Matches))
		for j, m := range r.Matches {
			matches[j] = protocol.ScheduledMatchSummary{MatchID: m.MatchID, PlayerAID: m.PlayerAID, PlayerBID: m.PlayerBID, GameType: m.GameType, IsBye: m.IsBye}
		}
		rounds[i] = protocol.RoundSummary{RoundID: r.RoundID, Matches: matches}
	}
	return protocol.MessageTypeScheduleGet, protocol.ScheduleGetResponse{Rounds: rounds}, nil
}

func (lm *LeagueManager) handleLeagueStatus(_ context.Context, _ protocol.Envelope) (protocol.MessageType, any, error) {
	lm.stateMu.Lock()
	state := lm.state
	roundID := lm.currentRoundIDLocked()
	lm.stateMu.Unlock()

	return protocol.MessageTypeLeagueStatus, protocol.LeagueStatusResponse{
		State:              string(state),
		CurrentRoundID:     roundID,
		PlayersRegistered:  lm.directory.PlayerCount(),
		RefereesRegistered: lm.directory.RefereeCount(),
	}, nil
}

func (lm *LeagueManager) currentRoundID() string {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	return lm.currentRoundIDLocked()
}

func (lm *LeagueManager) currentRoundIDLocked() string {
	if lm.currentRoundIdx == 0 || lm.currentRoundIdx > len(lm.sched.Rounds) {
		return ""
	}
	return lm.sched.Rounds[lm.currentRoundIdx-1].RoundID
}

// handleMatchResultReport ingests one match_result.report, idempotent
// by MatchID per spec.md §4.6.
func (lm *LeagueManager) handleMatchResultReport(ctx context.Context, envelope protocol.Envelope) (protocol.MessageType, any, error) {
	var payload protocol.MatchResultReport
	if err := protocol.DecodePayload(envelope.Payload, &payload); err != nil {
		return "", nil, protocol.NewRPCError(protocol.ErrorCodeInvalidParams, err.Error())
	}

	result := match.Result{
		MatchID:       payload.MatchID,
		RoundID:       payload.RoundID,
		WinnerID:      payload.WinnerID,
		ScoreA:        payload.ScoreA,
		ScoreB:        payload.ScoreB,
		History:       fromProtocolHistory(payload.History),
		ForfeitReason: payload.ForfeitReason,
	}

	accepted, duplicate := lm.recordResult(ctx, result, envelope.Sender)
	return protocol.MessageTypeMatchResultAck, protocol.MatchResultAck{Accepted: accepted, Duplicate: duplicate}, nil
}

// recordResult applies result exactly once. A second delivery with
// identical fields is a no-op duplicate ack; conflicting fields raise
// an alert and are rejected without mutating state. The referee whose
// load is released on a first delivery is the one recorded at dispatch
// time for the match; reporter is only logged with a conflicting
// report (it is empty for a watchdog-driven abandonment).
func (lm *LeagueManager) recordResult(ctx context.Context, result match.Result, reporter string) (accepted, duplicate bool) {
	lm.resultsMu.Lock()
	existing, found := lm.results[result.MatchID]
	if found {
		defer lm.resultsMu.Unlock()
		if resultsMatch(existing, result) {
			return true, true
		}
		lm.logger.ErrorContext(ctx, "conflicting match_result.report", zap.String("match_id", result.MatchID), zap.String("reporter", reporter))
		lm.sink.Record(ctx, observability.Event{Kind: "alert", LeagueID: lm.cfg.LeagueID, MatchID: result.MatchID, Fields: map[string]string{"reason": "conflicting match_result.report"}})
		return false, true
	}
	lm.results[result.MatchID] = result
	refereeID := lm.matchReferee[result.MatchID]
	lm.resultsMu.Unlock()

	if refereeID != "" {
		lm.directory.AdjustRefereeLoad(refereeID, -1)
	}

	lm.stateMu.Lock()
	m, known := lm.matchIndex[result.MatchID]
	lm.stateMu.Unlock()
	if known {
		lm.directory.ApplyMatchResult(m.PlayerAID, m.PlayerBID, result.WinnerID, lm.cfg.PointsWin, lm.cfg.PointsDraw)
	}

	finalState := match.StateCompleted
	if result.ForfeitReason != "" {
		finalState = match.StateForfeited
	}
	if lm.matchesRepo != nil {
		if err := lm.matchesRepo.Put(ctx, result.MatchID, result.RoundID, refereeID, finalState); err != nil {
			lm.logger.WarnContext(ctx, "match durability write failed", zap.String("match_id", result.MatchID), zap.Error(err))
		}
	}
	if lm.resultsRepo != nil {
		if err := lm.resultsRepo.Put(ctx, result); err != nil {
			lm.logger.WarnContext(ctx, "result durability write failed", zap.String("match_id", result.MatchID), zap.Error(err))
		}
	}

	lm.standingsCache.InvalidatePrefix(standingsCacheKey)
	lm.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: lm.cfg.LeagueID, MatchID: result.MatchID, RoundID: result.RoundID, ToState: string(finalState)})

	lm.markMatchDone(result.RoundID, result.MatchID)
	lm.wakeDispatcher()
	return true, false
}

func resultsMatch(a, b match.Result) bool {
	if a.MatchID != b.MatchID || a.RoundID != b.RoundID || a.ScoreA != b.ScoreA || a.ScoreB != b.ScoreB || a.ForfeitReason != b.ForfeitReason {
		return false
	}
	switch {
	case a.WinnerID == nil && b.WinnerID == nil:
		return true
	case a.WinnerID == nil || b.WinnerID == nil:
		return false
	default:
		return *a.WinnerID == *b.WinnerID
	}
}

func fromProtocolHistory(in []protocol.GameRoundRecord) []match.GameRoundRecord {
	out := make([]match.GameRoundRecord, len(in))
	for i, rec := range in {
		out[i] = match.GameRoundRecord{GameRoundID: rec.GameRoundID, MoveA: rec.MoveA, MoveB: rec.MoveB}
		switch {
		case rec.RoundWinnerRole == nil:
			out[i].Winner = match.RoundWinnerDraw
		case *rec.RoundWinnerRole == protocol.RoleA:
			out[i].Winner = match.RoundWinnerA
		default:
			out[i].Winner = match.RoundWinnerB
		}
	}
	return out
}

// computeStandings serves standings.get from the cache, recomputing
// from the accepted results on a miss.
func (lm *LeagueManager) computeStandings(ctx context.Context) []standings.Row {
	value, _ := lm.standingsCache.GetOrLoad(ctx, standingsCacheKey, func(context.Context) (any, error) {
		return lm.recomputeStandings(), nil
	})
	rows, _ := value.([]standings.Row)
	return rows
}

func (lm *LeagueManager) recomputeStandings() []standings.Row {
	playerIDs := make([]string, 0)
	for _, rec := range lm.directory.ActivePlayers() {
		playerIDs = append(playerIDs, rec.PlayerID)
	}

	lm.stateMu.Lock()
	matchIndex := lm.matchIndex
	lm.stateMu.Unlock()

	lm.resultsMu.Lock()
	defer lm.resultsMu.Unlock()

	outcomes := make([]standings.MatchOutcome, 0, len(lm.results))
	for matchID, result := range lm.results {
		m, ok := matchIndex[matchID]
		if !ok {
			continue
		}
		roundsA, roundsB := 0, 0
		for _, rec := range result.History {
			switch rec.Winner {
			case match.RoundWinnerA:
				roundsA++
			case match.RoundWinnerB:
				roundsB++
			}
		}
		outcomes = append(outcomes, standings.MatchOutcome{
			PlayerAID: m.PlayerAID, PlayerBID: m.PlayerBID, WinnerID: result.WinnerID,
			RoundsWonA: roundsA, RoundsWonB: roundsB,
		})
	}

	return standings.Compute(playerIDs, outcomes, standings.PointRules{Win: lm.cfg.PointsWin, Draw: lm.cfg.PointsDraw})
}

func (lm *LeagueManager) markMatchDone(roundID, matchID string) {
	lm.roundsMu.Lock()
	defer lm.roundsMu.Unlock()
	set, ok := lm.pending[roundID]
	if !ok {
		return
	}
	delete(set, matchID)
	if len(set) == 0 {
		if done, ok := lm.roundDone[roundID]; ok {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	}
}

func (lm *LeagueManager) wakeDispatcher() {
	select {
	case lm.wakeup <- struct{}{}:
	default:
	}
}
