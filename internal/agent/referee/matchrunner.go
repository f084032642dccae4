package referee

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/league-agents/core/internal/domain/gamerules"
	"github.com/league-agents/core/internal/domain/match"
	"github.com/league-agents/core/internal/observability"
	"github.com/league-agents/core/internal/platform/authtoken"
	"github.com/league-agents/core/internal/protocol"
)

// forfeitThreshold is the consecutive-fault count (timeout or invalid
// move) at which a side forfeits the match outright.
const forfeitThreshold = 3

type sideInfo struct {
	playerID      string
	endpoint      string
	role          protocol.Role
	authToken     string
	sessionToken  string
	consecutiveFaults int
}

// matchRunner drives one assigned Match through invite, play, and
// reporting. Exactly one goroutine, taken from the Referee's bounded
// worker pool, owns a matchRunner for its entire lifetime.
type matchRunner struct {
	referee *Referee
	rules   gamerules.GameRules
	assign  protocol.MatchAssign

	sideA sideInfo
	sideB sideInfo

	history       []match.GameRoundRecord
	scoreA, scoreB int
	forfeitReason string
	forfeitedRole *protocol.Role
}

func (m *matchRunner) run(ctx context.Context) {
	defer m.referee.releaseCapacity()

	m.sideA = sideInfo{playerID: m.assign.PlayerAID, endpoint: m.assign.PlayerAEndpoint, role: protocol.RoleA, authToken: m.assign.PlayerAAuthToken}
	m.sideB = sideInfo{playerID: m.assign.PlayerBID, endpoint: m.assign.PlayerBEndpoint, role: protocol.RoleB, authToken: m.assign.PlayerBAuthToken}

	tokenA, err := authtoken.DeriveSessionToken(m.sideA.authToken, m.sideA.playerID, m.assign.MatchID)
	if err != nil {
		m.abandon(ctx, "derive session token for player A: "+err.Error())
		return
	}
	tokenB, err := authtoken.DeriveSessionToken(m.sideB.authToken, m.sideB.playerID, m.assign.MatchID)
	if err != nil {
		m.abandon(ctx, "derive session token for player B: "+err.Error())
		return
	}
	m.sideA.sessionToken = tokenA
	m.sideB.sessionToken = tokenB

	if !m.invitePhase(ctx) {
		m.report(ctx)
		return
	}

	m.playPhase(ctx)
	m.notifyGameOver(ctx)
	m.report(ctx)
}

func (m *matchRunner) abandon(ctx context.Context, reason string) {
	m.forfeitReason = reason
	m.referee.logger.ErrorContext(ctx, "match abandoned before play began", zap.String("match_id", m.assign.MatchID), zap.String("reason", reason))
	m.report(ctx)
}

// invitePhase sends game.invite to both sides concurrently, each with 2
// retries over a 5s-per-attempt deadline. Returns false (and records a
// forfeit) if either side fails to accept.
func (m *matchRunner) invitePhase(ctx context.Context) bool {
	p := pool.New()
	p.Go(func() { m.invite(ctx, &m.sideA, &m.sideB) })
	p.Go(func() { m.invite(ctx, &m.sideB, &m.sideA) })
	p.Wait()

	switch {
	case m.sideA.consecutiveFaults >= 1 && m.sideB.consecutiveFaults >= 1:
		m.forfeitReason = "both players failed to accept the invite"
		return false
	case m.sideA.consecutiveFaults >= 1:
		role := protocol.RoleA
		m.forfeitedRole = &role
		m.forfeitReason = "player A failed to accept the invite"
		return false
	case m.sideB.consecutiveFaults >= 1:
		role := protocol.RoleB
		m.forfeitedRole = &role
		m.forfeitReason = "player B failed to accept the invite"
		return false
	}
	return true
}

// invite attempts to deliver game.invite to side, recording a fault (via
// side.consecutiveFaults, reused here purely as a sentinel) if it is
// rejected or unreachable after retries.
func (m *matchRunner) invite(ctx context.Context, side, opponent *sideInfo) {
	const maxAttempts = 3
	invite := protocol.GameInvite{
		MatchID:          m.assign.MatchID,
		OpponentID:       opponent.playerID,
		OpponentEndpoint: opponent.endpoint,
		RoleTag:          side.role,
		GameType:         m.assign.GameType,
		BestOfK:          m.assign.BestOfK,
		SessionToken:     side.sessionToken,
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		envelope, err := m.referee.client.Call(ctx, side.endpoint, m.referee.cfg.LeagueID, m.referee.ID(), m.refereeAuthToken(),
			protocol.MessageTypeGameInvite, invite, protocol.DeadlineInviteAck)
		if err != nil {
			m.referee.logger.WarnContext(ctx, "game.invite attempt failed", zap.String("match_id", m.assign.MatchID), zap.String("player_id", side.playerID), zap.Int("attempt", attempt), zap.Error(err))
			if attempt < maxAttempts {
				sleepBackoff(ctx, attempt)
			}
			continue
		}

		var ack protocol.GameInviteAck
		if err := protocol.DecodePayload(envelope.Payload, &ack); err != nil {
			continue
		}
		if ack.Accepted {
			return
		}
		side.consecutiveFaults = 1
		return
	}
	side.consecutiveFaults = 1
}

func (m *matchRunner) refereeAuthToken() string {
	m.referee.identityMu.RLock()
	defer m.referee.identityMu.RUnlock()
	return m.referee.authToken
}

func (m *matchRunner) playPhase(ctx context.Context) {
	clinch := (m.assign.BestOfK + 1) / 2
	for round := 1; round <= m.assign.BestOfK; round++ {
		if m.forfeitedRole != nil {
			return
		}
		m.playRound(ctx, round)
		if m.scoreA >= clinch || m.scoreB >= clinch {
			return
		}
	}
}

func (m *matchRunner) playRound(ctx context.Context, gameRoundID int) {
	deadline := time.Now().Add(protocol.DeadlineMoveResponse)

	var moveA, moveB string
	var faultA, faultB bool

	p := pool.New()
	p.Go(func() { moveA, faultA = m.requestMove(ctx, &m.sideA, gameRoundID, deadline) })
	p.Go(func() { moveB, faultB = m.requestMove(ctx, &m.sideB, gameRoundID, deadline) })
	p.Wait()

	record := match.GameRoundRecord{GameRoundID: gameRoundID, MoveA: moveA, MoveB: moveB, TimeoutA: faultA, TimeoutB: faultB}

	// A faulted side's move is already the GameRules default move, so the
	// round is scored on the moves as substituted.
	winner, err := m.rules.ScoreRound(moveA, moveB)
	if err != nil {
		record.Winner = match.RoundWinnerDraw
	} else {
		record.Winner = winner
	}

	switch record.Winner {
	case match.RoundWinnerA:
		m.scoreA++
	case match.RoundWinnerB:
		m.scoreB++
	}
	m.history = append(m.history, record)

	m.updateFaultStreak(&m.sideA, faultA)
	m.updateFaultStreak(&m.sideB, faultB)

	m.notifyRoundResult(ctx, &m.sideA, &m.sideB, record)
	m.notifyRoundResult(ctx, &m.sideB, &m.sideA, record)

	if m.sideA.consecutiveFaults >= forfeitThreshold {
		role := protocol.RoleA
		m.forfeitedRole = &role
		m.forfeitReason = "player A exceeded the consecutive timeout/invalid-move threshold"
	} else if m.sideB.consecutiveFaults >= forfeitThreshold {
		role := protocol.RoleB
		m.forfeitedRole = &role
		m.forfeitReason = "player B exceeded the consecutive timeout/invalid-move threshold"
	}
}

func (m *matchRunner) updateFaultStreak(side *sideInfo, faulted bool) {
	if faulted {
		side.consecutiveFaults++
	} else {
		side.consecutiveFaults = 0
	}
}

// requestMove calls choose_move.call on side, waiting up to
// DeadlineMoveResponse plus MoveResponseGrace. Returns the chosen move
// and whether the call faulted (timeout, transport error, or an
// illegal move per GameRules.Validate).
func (m *matchRunner) requestMove(ctx context.Context, side *sideInfo, gameRoundID int, deadline time.Time) (string, bool) {
	call := protocol.ChooseMoveCall{
		MatchID:      m.assign.MatchID,
		GameRoundID:  gameRoundID,
		RunningScore: protocol.RunningScore{A: m.scoreA, B: m.scoreB},
		Deadline:     deadline,
	}

	envelope, err := m.referee.client.Call(ctx, side.endpoint, m.envelopeLeagueID(), m.referee.ID(), side.sessionToken,
		protocol.MessageTypeChooseMoveCall, call, protocol.DeadlineMoveResponse+protocol.MoveResponseGrace)
	if err != nil {
		m.referee.logger.WarnContext(ctx, "choose_move.call failed", zap.String("match_id", m.assign.MatchID), zap.String("player_id", side.playerID), zap.Int("game_round_id", gameRoundID), zap.Error(err))
		return m.rules.DefaultMove(side.roundWinner()), true
	}

	var resp protocol.ChooseMoveResponse
	if err := protocol.DecodePayload(envelope.Payload, &resp); err != nil {
		return m.rules.DefaultMove(side.roundWinner()), true
	}
	if !m.rules.Validate(resp.Move, side.roundWinner()) {
		return m.rules.DefaultMove(side.roundWinner()), true
	}
	return resp.Move, false
}

func (s sideInfo) roundWinner() match.RoundWinner {
	if s.role == protocol.RoleA {
		return match.RoundWinnerA
	}
	return match.RoundWinnerB
}

func (m *matchRunner) envelopeLeagueID() string { return m.referee.cfg.LeagueID }

func (m *matchRunner) notifyRoundResult(ctx context.Context, recipient, opponent *sideInfo, record match.GameRoundRecord) {
	ownMove, opponentMove := record.MoveA, record.MoveB
	if recipient.role == protocol.RoleB {
		ownMove, opponentMove = record.MoveB, record.MoveA
	}

	var winnerRole *protocol.Role
	if record.Winner == match.RoundWinnerA {
		r := protocol.RoleA
		winnerRole = &r
	} else if record.Winner == match.RoundWinnerB {
		r := protocol.RoleB
		winnerRole = &r
	}

	result := protocol.RoundResult{
		MatchID:         m.assign.MatchID,
		GameRoundID:     record.GameRoundID,
		RoundWinnerRole: winnerRole,
		YourMove:        ownMove,
		OpponentMove:    opponentMove,
		RunningScore:    protocol.RunningScore{A: m.scoreA, B: m.scoreB},
	}
	_, err := m.referee.client.Call(ctx, recipient.endpoint, m.envelopeLeagueID(), m.referee.ID(), recipient.sessionToken,
		protocol.MessageTypeRoundResult, result, protocol.DeadlineGameOver)
	if err != nil {
		m.referee.logger.WarnContext(ctx, "round_result delivery failed", zap.String("match_id", m.assign.MatchID), zap.String("player_id", recipient.playerID), zap.Error(err))
	}
}

func (m *matchRunner) notifyGameOver(ctx context.Context) {
	winnerID, _ := m.finalWinner()

	p := pool.New()
	p.Go(func() { m.sendGameOver(ctx, &m.sideA, winnerID) })
	p.Go(func() { m.sendGameOver(ctx, &m.sideB, winnerID) })
	p.Wait()
}

func (m *matchRunner) sendGameOver(ctx context.Context, side *sideInfo, winnerID *string) {
	status := protocol.GameOverDraw
	switch {
	case m.forfeitedRole != nil && *m.forfeitedRole == side.role:
		status = protocol.GameOverForfeit
	case winnerID != nil && *winnerID == side.playerID:
		status = protocol.GameOverWin
	case winnerID != nil:
		status = protocol.GameOverLoss
	}

	over := protocol.GameOver{
		MatchID:    m.assign.MatchID,
		Status:     status,
		FinalScore: protocol.RunningScore{A: m.scoreA, B: m.scoreB},
		History:    toProtocolHistory(m.history),
	}
	_, err := m.referee.client.Call(ctx, side.endpoint, m.envelopeLeagueID(), m.referee.ID(), side.sessionToken,
		protocol.MessageTypeGameOver, over, protocol.DeadlineGameOver)
	if err != nil {
		m.referee.logger.WarnContext(ctx, "game.over delivery failed", zap.String("match_id", m.assign.MatchID), zap.String("player_id", side.playerID), zap.Error(err))
	}
}

func (m *matchRunner) finalWinner() (*string, error) {
	if m.forfeitedRole != nil {
		winner := m.sideA.playerID
		if *m.forfeitedRole == protocol.RoleA {
			winner = m.sideB.playerID
		}
		return &winner, nil
	}
	if len(m.history) == 0 {
		return nil, nil
	}

	winnerRole, err := m.rules.Finalize(m.history, m.scoreA, m.scoreB)
	if err != nil || winnerRole == nil {
		return nil, err
	}
	winner := m.sideA.playerID
	if *winnerRole == match.RoundWinnerB {
		winner = m.sideB.playerID
	}
	return &winner, nil
}

func toProtocolHistory(history []match.GameRoundRecord) []protocol.GameRoundRecord {
	out := make([]protocol.GameRoundRecord, len(history))
	for i, rec := range history {
		out[i] = protocol.GameRoundRecord{GameRoundID: rec.GameRoundID, MoveA: rec.MoveA, MoveB: rec.MoveB}
		switch rec.Winner {
		case match.RoundWinnerA:
			role := protocol.RoleA
			out[i].RoundWinnerRole = &role
		case match.RoundWinnerB:
			role := protocol.RoleB
			out[i].RoundWinnerRole = &role
		}
	}
	return out
}

// report delivers match_result.report with 5 retries of exponential
// backoff (1s, 2s, 4s, 8s, 16s); on exhaustion it persists the result to
// the outbox for later replay, per spec.md §4.5.
func (m *matchRunner) report(ctx context.Context) {
	winnerID, _ := m.finalWinner()
	result := match.Result{
		MatchID:       m.assign.MatchID,
		RoundID:       m.assign.RoundID,
		WinnerID:      winnerID,
		ScoreA:        m.scoreA,
		ScoreB:        m.scoreB,
		History:       m.history,
		ForfeitReason: m.forfeitReason,
	}

	const maxAttempts = 6 // first delivery plus 5 retries
	delay := time.Second
	payload := protocol.MatchResultReport{
		MatchID:       result.MatchID,
		RoundID:       result.RoundID,
		WinnerID:      result.WinnerID,
		ScoreA:        result.ScoreA,
		ScoreB:        result.ScoreB,
		History:       toProtocolHistory(result.History),
		ForfeitReason: result.ForfeitReason,
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		envelope, err := m.referee.client.Call(ctx, m.referee.cfg.LeagueManagerEndpoint, m.referee.cfg.LeagueID, m.referee.ID(), m.refereeAuthToken(),
			protocol.MessageTypeMatchResultReport, payload, protocol.DeadlineResultReport)
		if err == nil {
			var ack protocol.MatchResultAck
			if decodeErr := protocol.DecodePayload(envelope.Payload, &ack); decodeErr == nil && ack.Accepted {
				m.referee.sink.Record(ctx, observability.Event{Kind: "state_transition", LeagueID: m.referee.cfg.LeagueID, MatchID: m.assign.MatchID, ToState: string(match.StateCompleted)})
				return
			}
		}
		m.referee.logger.WarnContext(ctx, "match_result.report attempt failed", zap.String("match_id", m.assign.MatchID), zap.Int("attempt", attempt), zap.Error(err))
		if attempt < maxAttempts {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
			delay *= 2
		}
	}

	if err := m.referee.outbox.Enqueue(ctx, result); err != nil {
		m.referee.logger.ErrorContext(ctx, "failed to enqueue undelivered match result", zap.String("match_id", m.assign.MatchID), zap.Error(err))
	}
}
