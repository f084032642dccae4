package leaguemanager

import (
	"context"
	"testing"
	"time"

	"github.com/league-agents/core/internal/domain/league"
	"github.com/league-agents/core/internal/domain/match"
	"github.com/league-agents/core/internal/domain/registry"
	"github.com/league-agents/core/internal/protocol"
	"github.com/league-agents/core/internal/repository/memory"
	"github.com/league-agents/core/internal/transport"
)

func newTestLeagueManager(t *testing.T) *LeagueManager {
	t.Helper()
	server := transport.NewServer(nil, nil)
	client := transport.NewClient(transport.ClientConfig{})
	directory := registry.NewDirectory()
	lm := New(Config{
		LeagueID:       "league-1",
		SelfEndpoint:   "http://league-manager",
		Version:        "1.0.0",
		GameType:       "parity",
		MinPlayers:     2,
		BestOfK:        3,
		PointsWin:      3,
		PointsDraw:     1,
		AuthTokenBytes: 16,
		AssignDeadline: time.Second,
	}, client, server, directory,
		memory.NewPlayers(), memory.NewReferees(), memory.NewMatches(), memory.NewResults(), memory.NewStandings(),
		nil, nil)
	server.SetAuthenticator(lm.Authenticate)
	t.Cleanup(func() { _ = lm.Shutdown(context.Background()) })
	return lm
}

func TestHandlePlayerRegister_AcceptsDuringRegistration(t *testing.T) {
	t.Parallel()
	lm := newTestLeagueManager(t)

	envelope := protocol.NewEnvelope("league-1", "player-x", protocol.MessageTypePlayerRegisterRequest, protocol.PlayerRegisterRequest{
		DisplayName: "Ada", Version: "1.0.0", SupportedGameTypes: []string{"parity"}, ContactEndpoint: "http://player-x",
	})

	_, payload, err := lm.handlePlayerRegister(context.Background(), envelope)
	if err != nil {
		t.Fatalf("handlePlayerRegister: %v", err)
	}
	resp := payload.(protocol.PlayerRegisterResponse)
	if resp.Status != protocol.RegistrationAccepted {
		t.Fatalf("expected acceptance, got %+v", resp)
	}
	if resp.PlayerID == "" || resp.AuthToken == "" {
		t.Fatalf("expected a minted player id and auth token, got %+v", resp)
	}
}

func TestHandlePlayerRegister_RejectsUnsupportedGameType(t *testing.T) {
	t.Parallel()
	lm := newTestLeagueManager(t)

	envelope := protocol.NewEnvelope("league-1", "player-x", protocol.MessageTypePlayerRegisterRequest, protocol.PlayerRegisterRequest{
		DisplayName: "Ada", Version: "1.0.0", SupportedGameTypes: []string{"chess"}, ContactEndpoint: "http://player-x",
	})

	_, payload, err := lm.handlePlayerRegister(context.Background(), envelope)
	if err != nil {
		t.Fatalf("handlePlayerRegister: %v", err)
	}
	resp := payload.(protocol.PlayerRegisterResponse)
	if resp.Status != protocol.RegistrationRejected {
		t.Fatalf("expected rejection for unsupported game type, got %+v", resp)
	}
}

func TestHandlePlayerRegister_RejectsOnceRegistrationClosed(t *testing.T) {
	t.Parallel()
	lm := newTestLeagueManager(t)
	lm.stateMu.Lock()
	lm.state = league.StateInProgress
	lm.stateMu.Unlock()

	envelope := protocol.NewEnvelope("league-1", "player-x", protocol.MessageTypePlayerRegisterRequest, protocol.PlayerRegisterRequest{
		DisplayName: "Ada", Version: "1.0.0", SupportedGameTypes: []string{"parity"}, ContactEndpoint: "http://player-x",
	})

	_, payload, err := lm.handlePlayerRegister(context.Background(), envelope)
	if err != nil {
		t.Fatalf("handlePlayerRegister: %v", err)
	}
	resp := payload.(protocol.PlayerRegisterResponse)
	if resp.Status != protocol.RegistrationRejected {
		t.Fatalf("expected rejection once registration is closed, got %+v", resp)
	}
}

func TestRecordResult_DuplicateIdenticalIsNoopAck(t *testing.T) {
	t.Parallel()
	lm := newTestLeagueManager(t)

	winner := "player-a"
	result := match.Result{MatchID: "R1M1", RoundID: "R1", WinnerID: &winner, ScoreA: 2, ScoreB: 1}

	accepted, duplicate := lm.recordResult(context.Background(), result, "referee-1")
	if !accepted || duplicate {
		t.Fatalf("expected first delivery to be accepted and non-duplicate, got accepted=%v duplicate=%v", accepted, duplicate)
	}

	accepted, duplicate = lm.recordResult(context.Background(), result, "referee-1")
	if !accepted || !duplicate {
		t.Fatalf("expected identical redelivery to be accepted=true duplicate=true, got accepted=%v duplicate=%v", accepted, duplicate)
	}
}

func TestRecordResult_ConflictingDuplicateIsRejected(t *testing.T) {
	t.Parallel()
	lm := newTestLeagueManager(t)

	winnerA := "player-a"
	first := match.Result{MatchID: "R1M1", RoundID: "R1", WinnerID: &winnerA, ScoreA: 2, ScoreB: 1}
	accepted, duplicate := lm.recordResult(context.Background(), first, "referee-1")
	if !accepted || duplicate {
		t.Fatalf("expected first delivery accepted, got accepted=%v duplicate=%v", accepted, duplicate)
	}

	winnerB := "player-b"
	conflicting := match.Result{MatchID: "R1M1", RoundID: "R1", WinnerID: &winnerB, ScoreA: 1, ScoreB: 2}
	accepted, duplicate = lm.recordResult(context.Background(), conflicting, "referee-1")
	if accepted || !duplicate {
		t.Fatalf("expected conflicting redelivery to be accepted=false duplicate=true, got accepted=%v duplicate=%v", accepted, duplicate)
	}
}

func TestStartLeague_RejectsBelowMinPlayers(t *testing.T) {
	t.Parallel()
	lm := newTestLeagueManager(t)

	if err := lm.StartLeague(context.Background()); err == nil {
		t.Fatalf("expected StartLeague to fail with zero registered players")
	}
}
