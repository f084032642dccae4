package gamerules

import (
	"testing"

	"github.com/league-agents/core/internal/domain/match"
)

func TestParityGame_ScoreRound(t *testing.T) {
	t.Parallel()

	g := NewParityGame()

	winner, err := g.ScoreRound("3", "4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner != match.RoundWinnerA {
		t.Fatalf("expected A (odd sum 7) to win, got %s", winner)
	}

	winner, err = g.ScoreRound("4", "4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner != match.RoundWinnerB {
		t.Fatalf("expected B (even sum 8) to win, got %s", winner)
	}
}

func TestParityGame_ValidateRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	g := NewParityGame()
	if g.Validate("0", match.RoundWinnerA) {
		t.Fatalf("expected 0 to be invalid")
	}
	if g.Validate("11", match.RoundWinnerA) {
		t.Fatalf("expected 11 to be invalid")
	}
	if g.Validate("abc", match.RoundWinnerA) {
		t.Fatalf("expected non-numeric move to be invalid")
	}
	if !g.Validate("7", match.RoundWinnerA) {
		t.Fatalf("expected 7 to be valid")
	}
}

func TestParityGame_DefaultMoveIsThree(t *testing.T) {
	t.Parallel()

	g := NewParityGame()
	if g.DefaultMove(match.RoundWinnerA) != "3" {
		t.Fatalf("expected default move 3")
	}
}

func TestParityGame_FinalizePicksMoreRoundWins(t *testing.T) {
	t.Parallel()

	g := NewParityGame()
	winner, err := g.Finalize(nil, 3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if winner == nil || *winner != match.RoundWinnerA {
		t.Fatalf("expected side A to win 3-2, got %v", winner)
	}
}

func TestParityGame_FinalizeRejectsTie(t *testing.T) {
	t.Parallel()

	g := NewParityGame()
	if _, err := g.Finalize(nil, 2, 2); err == nil {
		t.Fatalf("expected an error for a tied best_of_k outcome")
	}
}
