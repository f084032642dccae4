package authtoken

import "testing"

func TestMint_ProducesDistinctHighEntropyTokens(t *testing.T) {
	t.Parallel()

	a, err := Mint(32)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	b, err := Mint(32)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct tokens")
	}
	if len(a) != 64 {
		t.Fatalf("expected 32 bytes hex-encoded (64 chars), got %d", len(a))
	}
}

func TestDeriveSessionToken_DeterministicPerPlayerAndMatch(t *testing.T) {
	t.Parallel()

	t1, err := DeriveSessionToken("player-auth-token", "p1", "R1M1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	t2, err := DeriveSessionToken("player-auth-token", "p1", "R1M1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if t1 != t2 {
		t.Fatalf("expected deterministic derivation, got %s != %s", t1, t2)
	}

	other, err := DeriveSessionToken("player-auth-token", "p2", "R1M1")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if other == t1 {
		t.Fatalf("expected distinct tokens for distinct players in the same match")
	}

	otherMatch, err := DeriveSessionToken("player-auth-token", "p1", "R1M2")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if otherMatch == t1 {
		t.Fatalf("expected distinct tokens for the same player across matches")
	}
}
