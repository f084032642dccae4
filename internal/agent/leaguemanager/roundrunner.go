package leaguemanager

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/league-agents/core/internal/domain/league"
	"github.com/league-agents/core/internal/domain/match"
	"github.com/league-agents/core/internal/domain/registry"
	"github.com/league-agents/core/internal/domain/schedule"
	"github.com/league-agents/core/internal/domain/standings"
	"github.com/league-agents/core/internal/observability"
	"github.com/league-agents/core/internal/protocol"
	"github.com/league-agents/core/internal/repository"
)

func toSnapshotRows(rows []standings.Row) []repository.StandingSnapshotRow {
	out := make([]repository.StandingSnapshotRow, len(rows))
	for i, r := range rows {
		out[i] = repository.StandingSnapshotRow{PlayerID: r.PlayerID, Wins: r.Wins, Losses: r.Losses, Draws: r.Draws, Points: r.Points, Rank: r.Rank}
	}
	return out
}

// StartLeague transitions REGISTRATION -> READY: checks the player/
// referee quorum and builds the Schedule, per spec.md §3.4 and §4.4.
func (lm *LeagueManager) StartLeague(ctx context.Context) error {
	lm.stateMu.Lock()
	if lm.state != league.StateRegistration {
		lm.stateMu.Unlock()
		return fmt.Errorf("start_league requires state REGISTRATION, got %s", lm.state)
	}

	playerCount := lm.directory.PlayerCount()
	if playerCount < lm.cfg.MinPlayers {
		lm.stateMu.Unlock()
		return fmt.Errorf("need at least %d players to start, have %d", lm.cfg.MinPlayers, playerCount)
	}
	if lm.directory.RefereeCount() < 1 {
		lm.stateMu.Unlock()
		return fmt.Errorf("need at least 1 referee to start")
	}

	playerIDs := make([]string, 0, playerCount)
	for _, rec := range lm.directory.ActivePlayers() {
		playerIDs = append(playerIDs, rec.PlayerID)
	}

	sched, err := schedule.Build(playerIDs, lm.cfg.GameType)
	if err != nil {
		lm.stateMu.Unlock()
		return fmt.Errorf("build schedule: %w", err)
	}

	matchIndex := make(map[string]schedule.Match)
	for _, round := range sched.Rounds {
		for _, m := range round.Matches {
			if _, dup := matchIndex[m.MatchID]; dup {
				lm.stateMu.Unlock()
				return fmt.Errorf("fatal: schedule produced duplicate match id %q", m.MatchID)
			}
			matchIndex[m.MatchID] = m
		}
	}

	lm.sched = sched
	lm.currentRoundIdx = 0
	lm.matchIndex = matchIndex
	lm.state = league.StateReady
	lm.stateMu.Unlock()

	for _, round := range sched.Rounds {
		for _, m := range round.Matches {
			state := match.StateScheduled
			if m.IsBye {
				state = match.StateCompleted
			}
			if lm.matchesRepo != nil {
				if err := lm.matchesRepo.Put(ctx, m.MatchID, round.RoundID, "", state); err != nil {
					lm.logger.WarnContext(ctx, "match durability write failed", zap.String("match_id", m.MatchID), zap.Error(err))
				}
			}
		}
	}

	lm.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: lm.cfg.LeagueID, FromState: string(league.StateRegistration), ToState: string(league.StateReady)})
	return nil
}

// RunRound dispatches every non-BYE Match of the current Round, waits
// for the Round to complete, updates standings, and broadcasts them to
// every player, per spec.md §4.6.
func (lm *LeagueManager) RunRound(ctx context.Context) error {
	lm.stateMu.Lock()
	if lm.state != league.StateReady && lm.state != league.StateInProgress {
		lm.stateMu.Unlock()
		return fmt.Errorf("run_round requires state READY or IN_PROGRESS, got %s", lm.state)
	}
	if lm.currentRoundIdx >= len(lm.sched.Rounds) {
		lm.stateMu.Unlock()
		return fmt.Errorf("all rounds have already completed")
	}
	firstRound := lm.state == league.StateReady
	if firstRound {
		lm.state = league.StateInProgress
	}
	round := lm.sched.Rounds[lm.currentRoundIdx]
	lm.currentRoundIdx++
	isLastRound := lm.currentRoundIdx >= len(lm.sched.Rounds)
	lm.stateMu.Unlock()

	if firstRound {
		lm.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: lm.cfg.LeagueID, FromState: string(league.StateReady), ToState: string(league.StateInProgress)})
	}

	done := lm.beginRound(round)
	for _, m := range round.Matches {
		if m.IsBye {
			continue
		}
		lm.enqueueDispatch(dispatchRequest{roundID: round.RoundID, m: m})
	}
	lm.wakeDispatcher()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	rows := lm.recomputeStandings()
	lm.standingsCache.Set(standingsCacheKey, rows)
	if lm.standingsRepo != nil {
		if err := lm.standingsRepo.Put(ctx, lm.cfg.LeagueID, round.RoundID, toSnapshotRows(rows)); err != nil {
			lm.logger.WarnContext(ctx, "standings durability write failed", zap.String("round_id", round.RoundID), zap.Error(err))
		}
	}
	lm.broadcastStandings(ctx, round.RoundID, rows)

	if isLastRound {
		lm.stateMu.Lock()
		lm.state = league.StateCompleted
		lm.stateMu.Unlock()
		lm.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: lm.cfg.LeagueID, FromState: string(league.StateInProgress), ToState: string(league.StateCompleted)})
		lm.broadcastLeagueCompleted(ctx, rows)
	}
	return nil
}

// RunAllRounds iterates RunRound until every Round has completed.
func (lm *LeagueManager) RunAllRounds(ctx context.Context) error {
	for {
		lm.stateMu.Lock()
		remaining := lm.currentRoundIdx < len(lm.sched.Rounds)
		lm.stateMu.Unlock()
		if !remaining {
			return nil
		}
		if err := lm.RunRound(ctx); err != nil {
			return err
		}
	}
}

// Status answers the operator's status query with the same view
// league.status serves to peers.
func (lm *LeagueManager) Status(_ context.Context) (any, error) {
	lm.stateMu.Lock()
	state := lm.state
	roundID := lm.currentRoundIDLocked()
	lm.stateMu.Unlock()

	return protocol.LeagueStatusResponse{
		State:              string(state),
		CurrentRoundID:     roundID,
		PlayersRegistered:  lm.directory.PlayerCount(),
		RefereesRegistered: lm.directory.RefereeCount(),
	}, nil
}

// Shutdown stops the dispatch loop and the JSON-RPC server.
func (lm *LeagueManager) Shutdown(_ context.Context) error {
	lm.cancelDispatch()
	return lm.server.Shutdown()
}

func (lm *LeagueManager) beginRound(round schedule.Round) <-chan struct{} {
	pendingSet := make(map[string]struct{}, len(round.Matches))
	for _, m := range round.Matches {
		if !m.IsBye {
			pendingSet[m.MatchID] = struct{}{}
		}
	}
	done := make(chan struct{})
	if len(pendingSet) == 0 {
		close(done)
	}

	lm.roundsMu.Lock()
	lm.pending[round.RoundID] = pendingSet
	lm.roundDone[round.RoundID] = done
	lm.roundsMu.Unlock()
	return done
}

func (lm *LeagueManager) enqueueDispatch(req dispatchRequest) {
	lm.backlogMu.Lock()
	lm.backlog = append(lm.backlog, req)
	lm.backlogMu.Unlock()
}

// dispatchLoop is the League Manager's single dispatcher: it wakes on
// every referee-capacity-freeing event (a match_result.report accepted,
// a new referee registering, a watchdog reassignment) and tries to
// place every backlogged Match with a currently least-loaded referee,
// implementing spec.md §5's backpressure rule.
func (lm *LeagueManager) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-lm.wakeup:
			lm.drainBacklog(ctx)
		}
	}
}

func (lm *LeagueManager) drainBacklog(ctx context.Context) {
	lm.backlogMu.Lock()
	queue := lm.backlog
	lm.backlog = nil
	lm.backlogMu.Unlock()

	var stillPending []dispatchRequest
	for _, req := range queue {
		ref, ok := lm.directory.ClaimRefereeExcept(req.m.GameType, req.exclude)
		if !ok {
			stillPending = append(stillPending, req)
			continue
		}
		go lm.dispatchToReferee(ctx, req, ref)
	}

	if len(stillPending) == 0 {
		return
	}
	lm.backlogMu.Lock()
	lm.backlog = append(stillPending, lm.backlog...)
	lm.backlogMu.Unlock()
	time.AfterFunc(500*time.Millisecond, lm.wakeDispatcher)
}

func (lm *LeagueManager) dispatchToReferee(ctx context.Context, req dispatchRequest, ref registry.RefereeRecord) {
	lm.resultsMu.Lock()
	lm.matchReferee[req.m.MatchID] = ref.RefereeID
	lm.resultsMu.Unlock()

	playerA, _ := lm.directory.Player(req.m.PlayerAID)
	playerB, _ := lm.directory.Player(req.m.PlayerBID)

	assign := protocol.MatchAssign{
		MatchID:          req.m.MatchID,
		RoundID:          req.roundID,
		PlayerAID:        req.m.PlayerAID,
		PlayerAEndpoint:  playerA.Endpoint,
		PlayerAAuthToken: playerA.AuthToken,
		PlayerBID:        req.m.PlayerBID,
		PlayerBEndpoint:  playerB.Endpoint,
		PlayerBAuthToken: playerB.AuthToken,
		GameType:         req.m.GameType,
		BestOfK:          lm.cfg.BestOfK,
	}

	envelope, err := lm.client.Call(ctx, ref.Endpoint, lm.cfg.LeagueID, "league-manager", ref.AuthToken,
		protocol.MessageTypeMatchAssign, assign, lm.cfg.AssignDeadline)

	accepted := false
	if err == nil {
		var ack protocol.MatchAck
		if decodeErr := protocol.DecodePayload(envelope.Payload, &ack); decodeErr == nil {
			accepted = ack.Accepted
		}
	}
	if !accepted {
		lm.directory.AdjustRefereeLoad(ref.RefereeID, -1)
		lm.logger.WarnContext(ctx, "match.assign rejected or failed", zap.String("match_id", req.m.MatchID), zap.String("referee_id", ref.RefereeID), zap.Error(err))
		lm.enqueueDispatch(dispatchRequest{roundID: req.roundID, m: req.m, exclude: mergeExclude(req.exclude, ref.RefereeID)})
		lm.wakeDispatcher()
		return
	}

	if lm.matchesRepo != nil {
		if err := lm.matchesRepo.Put(ctx, req.m.MatchID, req.roundID, ref.RefereeID, match.StateInvited); err != nil {
			lm.logger.WarnContext(ctx, "match durability write failed", zap.String("match_id", req.m.MatchID), zap.Error(err))
		}
	}
	lm.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: lm.cfg.LeagueID, MatchID: req.m.MatchID, RoundID: req.roundID, ToState: string(match.StateInvited), Peer: ref.RefereeID})

	lm.startWatchdog(req.roundID, req.m, ref.RefereeID)
}

func mergeExclude(base map[string]bool, id string) map[string]bool {
	out := make(map[string]bool, len(base)+1)
	for k := range base {
		out[k] = true
	}
	out[id] = true
	return out
}

// matchTimeoutBudget estimates one Match's worst-case wall-clock span
// across every phase deadline, the basis for the watchdog window
// (spec.md §4.6: "5 x match-level timeout budget").
func (lm *LeagueManager) matchTimeoutBudget() time.Duration {
	bestOfK := lm.cfg.BestOfK
	if bestOfK < 1 {
		bestOfK = 1
	}
	return protocol.DeadlineInviteAck +
		time.Duration(bestOfK)*(protocol.DeadlineMoveResponse+protocol.MoveResponseGrace) +
		protocol.DeadlineGameOver +
		protocol.DeadlineResultReport
}

// startWatchdog arms a one-shot timer that, if result has not arrived
// by the watchdog deadline, reassigns the Match to a different referee
// once; a second miss marks it ABANDONED and scores it (0,0).
func (lm *LeagueManager) startWatchdog(roundID string, m schedule.Match, refereeID string) {
	watchdog := time.Duration(lm.cfg.RoundWatchdogMultiplier) * lm.matchTimeoutBudget()
	time.AfterFunc(watchdog, func() {
		lm.resultsMu.Lock()
		_, reported := lm.results[m.MatchID]
		lm.resultsMu.Unlock()
		if reported {
			return
		}

		lm.reassignedMu.Lock()
		already := lm.reassigned[m.MatchID]
		lm.reassigned[m.MatchID] = true
		lm.reassignedMu.Unlock()

		lm.directory.AdjustRefereeLoad(refereeID, -1)
		ctx := context.Background()

		if already {
			lm.logger.ErrorContext(ctx, "match abandoned after watchdog reassignment failed twice", zap.String("match_id", m.MatchID), zap.String("round_id", roundID))
			lm.abandonMatch(ctx, roundID, m)
			return
		}

		lm.logger.WarnContext(ctx, "match.assign watchdog expired, reassigning", zap.String("match_id", m.MatchID), zap.String("referee_id", refereeID))
		lm.enqueueDispatch(dispatchRequest{roundID: roundID, m: m, exclude: map[string]bool{refereeID: true}})
		lm.wakeDispatcher()
	})
}

func (lm *LeagueManager) abandonMatch(ctx context.Context, roundID string, m schedule.Match) {
	result := match.Result{
		MatchID:       m.MatchID,
		RoundID:       roundID,
		WinnerID:      nil,
		ScoreA:        0,
		ScoreB:        0,
		ForfeitReason: "abandoned: no referee could complete this match after one reassignment",
	}
	lm.recordResult(ctx, result, "")
}

func (lm *LeagueManager) broadcastStandings(ctx context.Context, roundID string, rows []standings.Row) {
	out := make([]protocol.StandingRow, len(rows))
	for i, r := range rows {
		out[i] = protocol.StandingRow{PlayerID: r.PlayerID, Wins: r.Wins, Losses: r.Losses, Draws: r.Draws, Points: r.Points, Rank: r.Rank}
	}
	update := protocol.StandingsUpdate{Standings: out, RoundID: roundID}

	p := pool.New()
	for _, rec := range lm.directory.ActivePlayers() {
		rec := rec
		p.Go(func() {
			_, err := lm.client.Call(ctx, rec.Endpoint, lm.cfg.LeagueID, "league-manager", "",
				protocol.MessageTypeStandingsUpdate, update, protocol.DeadlineGameOver)
			if err != nil {
				lm.logger.WarnContext(ctx, "standings.update delivery failed", zap.String("player_id", rec.PlayerID), zap.Error(err))
			}
		})
	}
	p.Wait()
}

func (lm *LeagueManager) broadcastLeagueCompleted(ctx context.Context, rows []standings.Row) {
	out := make([]protocol.StandingRow, len(rows))
	for i, r := range rows {
		out[i] = protocol.StandingRow{PlayerID: r.PlayerID, Wins: r.Wins, Losses: r.Losses, Draws: r.Draws, Points: r.Points, Rank: r.Rank}
	}
	var champion *string
	if len(rows) > 0 {
		id := rows[0].PlayerID
		champion = &id
	}
	completed := protocol.LeagueCompleted{ChampionID: champion, FinalStandings: out}

	p := pool.New()
	for _, rec := range lm.directory.ActivePlayers() {
		rec := rec
		p.Go(func() {
			_, err := lm.client.Call(ctx, rec.Endpoint, lm.cfg.LeagueID, "league-manager", "",
				protocol.MessageTypeLeagueCompleted, completed, protocol.DeadlineGameOver)
			if err != nil {
				lm.logger.WarnContext(ctx, "league.completed delivery failed", zap.String("player_id", rec.PlayerID), zap.Error(err))
			}
		})
	}
	p.Wait()
}
