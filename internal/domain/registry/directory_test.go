package registry

import "testing"

func TestDirectory_RegisterPlayerRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	rec := PlayerRecord{PlayerID: "p1", DisplayName: "Ada", Endpoint: "http://localhost:8101", SupportedGameTypes: []string{"parity"}, AuthToken: "tok", Status: PlayerStatusActive}
	if err := d.RegisterPlayer(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.RegisterPlayer(rec); err != ErrDuplicateID {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestDirectory_LeastLoadedRefereeTiesBreakByID(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	_ = d.RegisterReferee(RefereeRecord{RefereeID: "r2", Endpoint: "http://localhost:8002", SupportedGameTypes: []string{"parity"}, MaxConcurrentMatches: 3, AuthToken: "tok", CurrentLoad: 0})
	_ = d.RegisterReferee(RefereeRecord{RefereeID: "r1", Endpoint: "http://localhost:8001", SupportedGameTypes: []string{"parity"}, MaxConcurrentMatches: 3, AuthToken: "tok", CurrentLoad: 0})

	chosen, ok := d.LeastLoadedReferee("parity")
	if !ok {
		t.Fatalf("expected a referee to be available")
	}
	if chosen.RefereeID != "r1" {
		t.Fatalf("expected tie to break towards lowest id, got %s", chosen.RefereeID)
	}
}

func TestDirectory_LeastLoadedRefereeExcludesAtCapacity(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	_ = d.RegisterReferee(RefereeRecord{RefereeID: "r1", Endpoint: "http://localhost:8001", SupportedGameTypes: []string{"parity"}, MaxConcurrentMatches: 1, AuthToken: "tok", CurrentLoad: 1})
	_ = d.RegisterReferee(RefereeRecord{RefereeID: "r2", Endpoint: "http://localhost:8002", SupportedGameTypes: []string{"parity"}, MaxConcurrentMatches: 1, AuthToken: "tok", CurrentLoad: 0})

	chosen, ok := d.LeastLoadedReferee("parity")
	if !ok || chosen.RefereeID != "r2" {
		t.Fatalf("expected r2 (the only referee with capacity), got %+v ok=%v", chosen, ok)
	}
}

func TestDirectory_ClaimRefereeIncrementsLoadAtomically(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	_ = d.RegisterReferee(RefereeRecord{RefereeID: "r1", Endpoint: "http://localhost:8001", SupportedGameTypes: []string{"parity"}, MaxConcurrentMatches: 1, AuthToken: "tok"})

	rec, ok := d.ClaimReferee("parity")
	if !ok || rec.RefereeID != "r1" {
		t.Fatalf("expected to claim r1, got %+v ok=%v", rec, ok)
	}

	r1, _ := d.Referee("r1")
	if r1.CurrentLoad != 1 {
		t.Fatalf("expected current_load to be incremented to 1, got %d", r1.CurrentLoad)
	}

	if _, ok := d.ClaimReferee("parity"); ok {
		t.Fatalf("expected no referee with capacity left to claim")
	}
}

func TestDirectory_ClaimRefereeExceptSkipsExcluded(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	_ = d.RegisterReferee(RefereeRecord{RefereeID: "r1", Endpoint: "http://localhost:8001", SupportedGameTypes: []string{"parity"}, MaxConcurrentMatches: 3, AuthToken: "tok"})
	_ = d.RegisterReferee(RefereeRecord{RefereeID: "r2", Endpoint: "http://localhost:8002", SupportedGameTypes: []string{"parity"}, MaxConcurrentMatches: 3, AuthToken: "tok"})

	rec, ok := d.ClaimRefereeExcept("parity", map[string]bool{"r1": true})
	if !ok || rec.RefereeID != "r2" {
		t.Fatalf("expected r2 since r1 was excluded, got %+v ok=%v", rec, ok)
	}
}

func TestDirectory_ApplyMatchResultConservesPoints(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	_ = d.RegisterPlayer(PlayerRecord{PlayerID: "p1", DisplayName: "A", Endpoint: "e", SupportedGameTypes: []string{"parity"}, AuthToken: "t", Status: PlayerStatusActive})
	_ = d.RegisterPlayer(PlayerRecord{PlayerID: "p2", DisplayName: "B", Endpoint: "e", SupportedGameTypes: []string{"parity"}, AuthToken: "t", Status: PlayerStatusActive})

	winner := "p1"
	d.ApplyMatchResult("p1", "p2", &winner, 3, 1)

	a, _ := d.Player("p1")
	b, _ := d.Player("p2")
	if a.Wins != 1 || a.Points != 3 || a.MatchesPlayed != 1 {
		t.Fatalf("unexpected winner record: %+v", a)
	}
	if b.Losses != 1 || b.Points != 0 || b.MatchesPlayed != 1 {
		t.Fatalf("unexpected loser record: %+v", b)
	}

	d.ApplyMatchResult("p1", "p2", nil, 3, 1)
	a, _ = d.Player("p1")
	b, _ = d.Player("p2")
	if a.Draws != 1 || a.Points != 4 {
		t.Fatalf("unexpected draw record for a: %+v", a)
	}
	if b.Draws != 1 || b.Points != 1 {
		t.Fatalf("unexpected draw record for b: %+v", b)
	}
}
