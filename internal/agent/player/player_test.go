package player

import (
	"context"
	"testing"
	"time"

	"github.com/league-agents/core/internal/domain/gamerules"
	"github.com/league-agents/core/internal/domain/match"
	"github.com/league-agents/core/internal/domain/strategy"
	"github.com/league-agents/core/internal/platform/authtoken"
	"github.com/league-agents/core/internal/protocol"
	"github.com/league-agents/core/internal/transport"
)

func newTestPlayer(t *testing.T, strat strategy.Strategy) *Player {
	t.Helper()
	server := transport.NewServer(nil, nil)
	client := transport.NewClient(transport.ClientConfig{})
	rules := map[string]gamerules.GameRules{"parity": gamerules.NewParityGame()}
	p := New(Config{
		LeagueID:           "league-1",
		SelfEndpoint:       "http://player-a",
		DisplayName:        "player-a",
		Version:            "1.0.0",
		SupportedGameTypes: []string{"parity"},
	}, client, server, strat, rules, nil, nil)
	server.SetAuthenticator(p.Authenticate)
	return p
}

func TestHandleGameInvite_AcceptsSupportedGameType(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t, strategy.NewUniformRandom())

	envelope := protocol.NewEnvelope("league-1", "referee-1", protocol.MessageTypeGameInvite, protocol.GameInvite{
		MatchID:          "R1M1",
		OpponentID:       "player-b",
		OpponentEndpoint: "http://player-b",
		RoleTag:          protocol.RoleA,
		GameType:         "parity",
		BestOfK:          3,
		SessionToken:     "tok-1",
	})

	_, payload, err := p.handleGameInvite(context.Background(), envelope)
	if err != nil {
		t.Fatalf("handleGameInvite: %v", err)
	}
	ack, ok := payload.(protocol.GameInviteAck)
	if !ok || !ack.Accepted {
		t.Fatalf("expected accepted ack, got %#v", payload)
	}

	p.sessionsMu.Lock()
	_, exists := p.sessions["R1M1"]
	p.sessionsMu.Unlock()
	if !exists {
		t.Fatalf("expected a session to be tracked for R1M1")
	}
}

func TestHandleGameInvite_RejectsUnsupportedGameType(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t, strategy.NewUniformRandom())

	envelope := protocol.NewEnvelope("league-1", "referee-1", protocol.MessageTypeGameInvite, protocol.GameInvite{
		MatchID:          "R1M1",
		OpponentID:       "player-b",
		OpponentEndpoint: "http://player-b",
		RoleTag:          protocol.RoleA,
		GameType:         "chess",
		BestOfK:          3,
		SessionToken:     "tok-1",
	})

	_, payload, err := p.handleGameInvite(context.Background(), envelope)
	if err != nil {
		t.Fatalf("handleGameInvite: %v", err)
	}
	ack := payload.(protocol.GameInviteAck)
	if ack.Accepted {
		t.Fatalf("expected rejection for unsupported game type")
	}
}

func TestHandleChooseMove_UsesStrategyWhenItAnswersInTime(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t, fixedMoveStrategy{move: "7"})
	p.sessions["R1M1"] = &session{matchID: "R1M1", gameType: "parity", roleTag: protocol.RoleA, sessionToken: "tok-1"}

	call := protocol.ChooseMoveCall{
		MatchID:      "R1M1",
		GameRoundID:  1,
		RunningScore: protocol.RunningScore{},
		Deadline:     time.Now().Add(time.Second),
	}
	envelope := protocol.NewEnvelope("league-1", "referee-1", protocol.MessageTypeChooseMoveCall, call)

	_, payload, err := p.handleChooseMove(context.Background(), envelope)
	if err != nil {
		t.Fatalf("handleChooseMove: %v", err)
	}
	resp := payload.(protocol.ChooseMoveResponse)
	if resp.Move != "7" {
		t.Fatalf("expected strategy's move to be used, got %q", resp.Move)
	}
}

func TestHandleChooseMove_FallsBackToDefaultMoveOnStrategyTimeout(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t, slowStrategy{delay: time.Second})
	p.sessions["R1M1"] = &session{matchID: "R1M1", gameType: "parity", roleTag: protocol.RoleA, sessionToken: "tok-1"}

	call := protocol.ChooseMoveCall{
		MatchID:      "R1M1",
		GameRoundID:  1,
		RunningScore: protocol.RunningScore{},
		Deadline:     time.Now().Add(50 * time.Millisecond),
	}
	envelope := protocol.NewEnvelope("league-1", "referee-1", protocol.MessageTypeChooseMoveCall, call)

	_, payload, err := p.handleChooseMove(context.Background(), envelope)
	if err != nil {
		t.Fatalf("handleChooseMove: %v", err)
	}
	resp := payload.(protocol.ChooseMoveResponse)
	if resp.Move != gamerules.NewParityGame().DefaultMove("A") {
		t.Fatalf("expected default move fallback, got %q", resp.Move)
	}
}

func TestAuthenticate_RejectsWrongSessionToken(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t, strategy.NewUniformRandom())
	p.sessions["R1M1"] = &session{matchID: "R1M1", sessionToken: "correct-token"}

	envelope := protocol.NewEnvelope("league-1", "referee-1", protocol.MessageTypeChooseMoveCall, protocol.ChooseMoveCall{
		MatchID: "R1M1", GameRoundID: 1, Deadline: time.Now().Add(time.Second),
	})

	if err := p.Authenticate(context.Background(), envelope, "wrong-token"); err == nil {
		t.Fatalf("expected authentication failure for wrong session token")
	}
	if err := p.Authenticate(context.Background(), envelope, "correct-token"); err != nil {
		t.Fatalf("expected authentication success for correct session token: %v", err)
	}
}

func TestAuthenticate_GameInviteRequiresMatchingDerivedSessionToken(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t, strategy.NewUniformRandom())
	p.identityMu.Lock()
	p.playerID = "player-a"
	p.authToken = "player-a-registration-token"
	p.identityMu.Unlock()

	validToken, err := authtoken.DeriveSessionToken(p.authToken, p.playerID, "R1M1")
	if err != nil {
		t.Fatalf("derive session token: %v", err)
	}

	invite := protocol.GameInvite{
		MatchID:          "R1M1",
		OpponentID:       "player-b",
		OpponentEndpoint: "http://player-b",
		RoleTag:          protocol.RoleA,
		GameType:         "parity",
		BestOfK:          3,
		SessionToken:     validToken,
	}
	envelope := protocol.NewEnvelope("league-1", "referee-1", protocol.MessageTypeGameInvite, invite)
	if err := p.Authenticate(context.Background(), envelope, "referee-own-token"); err != nil {
		t.Fatalf("expected a correctly derived session token to authenticate: %v", err)
	}

	forged := invite
	forged.SessionToken = "forged-token"
	forgedEnvelope := protocol.NewEnvelope("league-1", "referee-1", protocol.MessageTypeGameInvite, forged)
	if err := p.Authenticate(context.Background(), forgedEnvelope, "referee-own-token"); err == nil {
		t.Fatalf("expected a forged session token to be rejected")
	}
}

func TestHandleStandingsUpdate_StoresLatestSnapshot(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t, strategy.NewUniformRandom())

	update := protocol.StandingsUpdate{
		RoundID: "R1",
		Standings: []protocol.StandingRow{
			{PlayerID: "player-a", Wins: 1, Points: 3, Rank: 1},
			{PlayerID: "player-b", Losses: 1, Rank: 2},
		},
	}
	envelope := protocol.NewEnvelope("league-1", "league-manager", protocol.MessageTypeStandingsUpdate, update)

	_, _, err := p.handleStandingsUpdate(context.Background(), envelope)
	if err != nil {
		t.Fatalf("handleStandingsUpdate: %v", err)
	}
	if got := p.Standings(); len(got) != 2 || got[0].PlayerID != "player-a" {
		t.Fatalf("expected stored standings to reflect the broadcast, got %#v", got)
	}
}

func TestHandleLeagueCompleted_StoresFinalStandingsAndChampion(t *testing.T) {
	t.Parallel()
	p := newTestPlayer(t, strategy.NewUniformRandom())

	champion := "player-a"
	completed := protocol.LeagueCompleted{
		ChampionID:     &champion,
		FinalStandings: []protocol.StandingRow{{PlayerID: "player-a", Wins: 3, Points: 9, Rank: 1}},
	}
	envelope := protocol.NewEnvelope("league-1", "league-manager", protocol.MessageTypeLeagueCompleted, completed)

	_, _, err := p.handleLeagueCompleted(context.Background(), envelope)
	if err != nil {
		t.Fatalf("handleLeagueCompleted: %v", err)
	}
	if got := p.Standings(); len(got) != 1 || got[0].PlayerID != "player-a" {
		t.Fatalf("expected final standings to be stored, got %#v", got)
	}
}

type fixedMoveStrategy struct{ move string }

func (f fixedMoveStrategy) ChooseMove(ctx context.Context, _ strategy.View) (string, error) {
	return f.move, nil
}

type slowStrategy struct{ delay time.Duration }

func (s slowStrategy) ChooseMove(ctx context.Context, _ strategy.View) (string, error) {
	select {
	case <-time.After(s.delay):
		return "9", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
