package referee

import (
	"context"
	"testing"

	"github.com/league-agents/core/internal/domain/gamerules"
	"github.com/league-agents/core/internal/domain/match"
	"github.com/league-agents/core/internal/protocol"
	"github.com/league-agents/core/internal/repository/memory"
	"github.com/league-agents/core/internal/transport"
)

func newTestReferee(t *testing.T, maxConcurrent int) *Referee {
	t.Helper()
	server := transport.NewServer(nil, nil)
	client := transport.NewClient(transport.ClientConfig{})
	rules := map[string]gamerules.GameRules{"parity": gamerules.NewParityGame()}
	r, err := New(Config{
		LeagueID:             "league-1",
		SelfEndpoint:         "http://referee-a",
		DisplayName:          "referee-a",
		Version:              "1.0.0",
		SupportedGameTypes:   []string{"parity"},
		MaxConcurrentMatches: maxConcurrent,
	}, client, server, rules, nil, nil, memory.NewResultOutbox())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	server.SetAuthenticator(r.Authenticate)
	return r
}

func TestHandleMatchAssign_RejectsUnsupportedGameType(t *testing.T) {
	t.Parallel()
	r := newTestReferee(t, 4)
	defer r.Close()

	envelope := protocol.NewEnvelope("league-1", "league-manager", protocol.MessageTypeMatchAssign, protocol.MatchAssign{
		MatchID: "R1M1", RoundID: "R1",
		PlayerAID: "player-a", PlayerAEndpoint: "http://player-a", PlayerAAuthToken: "tok-a",
		PlayerBID: "player-b", PlayerBEndpoint: "http://player-b", PlayerBAuthToken: "tok-b",
		GameType: "chess", BestOfK: 3,
	})

	_, payload, err := r.handleMatchAssign(context.Background(), envelope)
	if err != nil {
		t.Fatalf("handleMatchAssign: %v", err)
	}
	ack := payload.(protocol.MatchAck)
	if ack.Accepted {
		t.Fatalf("expected rejection for unsupported game type")
	}
}

func TestHandleMatchAssign_RejectsAtCapacity(t *testing.T) {
	t.Parallel()
	r := newTestReferee(t, 1)
	defer r.Close()
	r.currentLoad = 1 // simulate one in-flight match already consuming the only slot

	envelope := protocol.NewEnvelope("league-1", "league-manager", protocol.MessageTypeMatchAssign, protocol.MatchAssign{
		MatchID: "R1M1", RoundID: "R1",
		PlayerAID: "player-a", PlayerAEndpoint: "http://player-a", PlayerAAuthToken: "tok-a",
		PlayerBID: "player-b", PlayerBEndpoint: "http://player-b", PlayerBAuthToken: "tok-b",
		GameType: "parity", BestOfK: 3,
	})

	_, payload, err := r.handleMatchAssign(context.Background(), envelope)
	if err != nil {
		t.Fatalf("handleMatchAssign: %v", err)
	}
	ack := payload.(protocol.MatchAck)
	if ack.Accepted {
		t.Fatalf("expected rejection at capacity")
	}
}

func TestMatchRunner_FinalWinner_PicksForfeitingOpponent(t *testing.T) {
	t.Parallel()
	role := protocol.RoleA
	m := &matchRunner{
		assign:        protocol.MatchAssign{PlayerAID: "player-a", PlayerBID: "player-b"},
		sideA:         sideInfo{playerID: "player-a", role: protocol.RoleA},
		sideB:         sideInfo{playerID: "player-b", role: protocol.RoleB},
		forfeitedRole: &role,
	}

	winnerID, err := m.finalWinner()
	if err != nil {
		t.Fatalf("finalWinner: %v", err)
	}
	if winnerID == nil || *winnerID != "player-b" {
		t.Fatalf("expected player-b to win by forfeit, got %v", winnerID)
	}
}

func TestMatchRunner_FinalWinner_UsesGameRulesFinalize(t *testing.T) {
	t.Parallel()
	m := &matchRunner{
		assign: protocol.MatchAssign{PlayerAID: "player-a", PlayerBID: "player-b"},
		sideA:  sideInfo{playerID: "player-a", role: protocol.RoleA},
		sideB:  sideInfo{playerID: "player-b", role: protocol.RoleB},
		rules:  gamerules.NewParityGame(),
		history: []match.GameRoundRecord{
			{GameRoundID: 1, Winner: match.RoundWinnerA},
			{GameRoundID: 2, Winner: match.RoundWinnerA},
			{GameRoundID: 3, Winner: match.RoundWinnerB},
		},
		scoreA: 2,
		scoreB: 1,
	}

	winnerID, err := m.finalWinner()
	if err != nil {
		t.Fatalf("finalWinner: %v", err)
	}
	if winnerID == nil || *winnerID != "player-a" {
		t.Fatalf("expected player-a to win 2-1, got %v", winnerID)
	}
}

func TestToProtocolHistory_PreservesRoundWinners(t *testing.T) {
	t.Parallel()
	out := toProtocolHistory([]match.GameRoundRecord{
		{GameRoundID: 1, MoveA: "3", MoveB: "4", Winner: match.RoundWinnerA},
		{GameRoundID: 2, MoveA: "5", MoveB: "5", Winner: match.RoundWinnerB},
	})
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	if out[0].RoundWinnerRole == nil || *out[0].RoundWinnerRole != protocol.RoleA {
		t.Fatalf("expected round 1 winner role A, got %v", out[0].RoundWinnerRole)
	}
	if out[1].RoundWinnerRole == nil || *out[1].RoundWinnerRole != protocol.RoleB {
		t.Fatalf("expected round 2 winner role B, got %v", out[1].RoundWinnerRole)
	}
}
