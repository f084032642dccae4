// Package strategy defines the Player agent's pluggable move-choosing
// contract (spec.md §6.5) and ships a uniform-random reference
// implementation.
package strategy

import (
	"context"
	"math/rand/v2"
	"strconv"

	"github.com/league-agents/core/internal/domain/match"
)

// HistoryEntry is one prior game-round from the acting player's point
// of view.
type HistoryEntry struct {
	OwnMove      string
	OpponentMove string
	RoundWinner  match.RoundWinner
}

// View is the read-only per-call snapshot a Strategy observes. The
// core guarantees it is consistent for the duration of one
// choose_move call; implementations may retain state across calls on
// the same Match.
type View struct {
	GameType     string
	RoleTag      match.RoundWinner
	GameRoundID  int
	RunningScore struct{ A, B int }
	History      []HistoryEntry
}

// Strategy chooses a move for one game-round. Implementations must
// return before ctx is cancelled (the core cancels 250ms before the
// Referee-supplied deadline, per spec.md §5) and should treat
// cancellation as a hard stop rather than racing to finish.
type Strategy interface {
	ChooseMove(ctx context.Context, view View) (string, error)
}

// UniformRandom is the reference Strategy of spec.md §6.5: chooses an
// integer in [1,10] uniformly at random every game-round, ignoring
// history.
type UniformRandom struct{}

// NewUniformRandom returns the stateless uniform-random reference
// strategy.
func NewUniformRandom() UniformRandom { return UniformRandom{} }

func (UniformRandom) ChooseMove(ctx context.Context, _ View) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strconv.Itoa(rand.IntN(10) + 1), nil
}
