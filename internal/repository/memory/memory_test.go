package memory

import (
	"context"
	"testing"

	"github.com/league-agents/core/internal/domain/match"
	"github.com/league-agents/core/internal/domain/registry"
	"github.com/league-agents/core/internal/repository"
)

func TestPlayers_PutGetRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := NewPlayers()
	rec := registry.PlayerRecord{PlayerID: "p1", DisplayName: "Ada", Endpoint: "e", SupportedGameTypes: []string{"parity"}, AuthToken: "tok"}
	if err := p.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := p.Get(ctx, "p1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.DisplayName != "Ada" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestResults_PutGetByMatchID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewResults()
	res := match.Result{MatchID: "R1M1", RoundID: "R1", ScoreA: 3, ScoreB: 1}
	if err := r.Put(ctx, res); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := r.Get(ctx, "R1M1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.ScoreA != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestStandings_PutGetRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStandings()
	rows := []repository.StandingSnapshotRow{{PlayerID: "p1", Points: 3, Rank: 1}}
	if err := s.Put(ctx, "league-1", "R1", rows); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, roundID, ok, err := s.Get(ctx, "league-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if roundID != "R1" || len(got) != 1 || got[0].PlayerID != "p1" {
		t.Fatalf("unexpected snapshot: round=%s rows=%+v", roundID, got)
	}
}

func TestResultOutbox_EnqueueList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	o := NewResultOutbox()
	if err := o.Enqueue(ctx, match.Result{MatchID: "R1M1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	items, err := o.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].MatchID != "R1M1" {
		t.Fatalf("unexpected outbox contents: %+v", items)
	}
}
