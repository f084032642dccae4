// Package gamerules defines the pluggable GameRules contract (spec.md
// §6.4) and ships the mandatory parity-game reference implementation.
package gamerules

import (
	"fmt"
	"strconv"

	"github.com/league-agents/core/internal/domain/match"
)

// GameRules is the external-collaborator contract a game type must
// implement to be playable under the core.
type GameRules interface {
	// GameType names the game this implementation plays (e.g. "parity").
	GameType() string
	// Validate reports whether move is legal for roleTag.
	Validate(move string, roleTag match.RoundWinner) bool
	// DefaultMove is substituted when a player times out or submits an
	// invalid move.
	DefaultMove(roleTag match.RoundWinner) string
	// ScoreRound decides the winner of one game-round given both moves.
	ScoreRound(moveA, moveB string) (match.RoundWinner, error)
	// Finalize decides the match winner from the completed history and
	// final score; returns a nil winner role only when best_of_k allows
	// a tie (never for the parity reference game, since best_of_k must
	// be odd).
	Finalize(history []match.GameRoundRecord, scoreA, scoreB int) (*match.RoundWinner, error)
}

// ParityGame is the reference GameRules implementation of spec.md §6.4:
// two roles (ODD is side A, EVEN is side B by convention), each
// game-round both sides choose an integer in [1,10], ODD wins if the
// sum is odd.
type ParityGame struct{}

// NewParityGame returns the stateless parity reference game.
func NewParityGame() ParityGame { return ParityGame{} }

func (ParityGame) GameType() string { return "parity" }

func (ParityGame) Validate(move string, _ match.RoundWinner) bool {
	n, err := parseMove(move)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 10
}

func (ParityGame) DefaultMove(_ match.RoundWinner) string { return "3" }

func (ParityGame) ScoreRound(moveA, moveB string) (match.RoundWinner, error) {
	a, err := parseMove(moveA)
	if err != nil {
		return "", fmt.Errorf("invalid move for side A: %w", err)
	}
	b, err := parseMove(moveB)
	if err != nil {
		return "", fmt.Errorf("invalid move for side B: %w", err)
	}
	if (a+b)%2 != 0 {
		return match.RoundWinnerA, nil // ODD is side A
	}
	return match.RoundWinnerB, nil // EVEN is side B
}

func (ParityGame) Finalize(_ []match.GameRoundRecord, scoreA, scoreB int) (*match.RoundWinner, error) {
	if scoreA == scoreB {
		return nil, fmt.Errorf("parity game requires an odd best_of_k; scores tied at %d-%d", scoreA, scoreB)
	}
	winner := match.RoundWinnerA
	if scoreB > scoreA {
		winner = match.RoundWinnerB
	}
	return &winner, nil
}

func parseMove(move string) (int, error) {
	return strconv.Atoi(move)
}
