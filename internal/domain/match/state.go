// Package match models the Match and Game Session state machines of
// spec.md §3.5, owned respectively by the Referee and the Player.
package match

import "fmt"

// State is a Match's lifecycle state, managed by the Referee and
// mirrored in the League Manager once reported.
type State string

const (
	StateScheduled  State = "SCHEDULED"
	StateInvited    State = "INVITED"
	StateAccepted   State = "ACCEPTED"
	StateInProgress State = "IN_PROGRESS"
	StateCompleted  State = "COMPLETED"
	StateForfeited  State = "FORFEITED"
	StateAbandoned  State = "ABANDONED"
)

var validMatchTransitions = map[State]map[State]bool{
	StateScheduled:  {StateInvited: true, StateAbandoned: true},
	StateInvited:    {StateAccepted: true, StateForfeited: true, StateAbandoned: true},
	StateAccepted:   {StateInProgress: true, StateForfeited: true, StateAbandoned: true},
	StateInProgress: {StateCompleted: true, StateForfeited: true, StateAbandoned: true},
}

// CanTransition reports whether moving from 'from' to 'to' is a legal
// Match state transition.
func CanTransition(from, to State) bool {
	return validMatchTransitions[from][to]
}

// GameSessionState is a Player's per-Match session lifecycle state.
type GameSessionState string

const (
	SessionInvited     GameSessionState = "invited"
	SessionAccepted    GameSessionState = "accepted"
	SessionMakingMove  GameSessionState = "making_move"
	SessionAwaitingNext GameSessionState = "awaiting_next"
	SessionCompleted   GameSessionState = "completed"
	SessionForfeited   GameSessionState = "forfeited"
)

var validSessionTransitions = map[GameSessionState]map[GameSessionState]bool{
	SessionInvited:      {SessionAccepted: true, SessionForfeited: true},
	SessionAccepted:     {SessionMakingMove: true, SessionForfeited: true, SessionCompleted: true},
	SessionMakingMove:   {SessionAwaitingNext: true, SessionForfeited: true},
	SessionAwaitingNext: {SessionMakingMove: true, SessionCompleted: true, SessionForfeited: true},
}

// CanTransitionSession reports whether moving from 'from' to 'to' is a
// legal Game Session transition.
func CanTransitionSession(from, to GameSessionState) bool {
	return validSessionTransitions[from][to]
}

// RoundWinner identifies which side won a single game-round, or a draw.
type RoundWinner string

const (
	RoundWinnerA    RoundWinner = "A"
	RoundWinnerB    RoundWinner = "B"
	RoundWinnerDraw RoundWinner = "DRAW"
)

// GameRoundRecord is one completed game-round within a Match's history.
type GameRoundRecord struct {
	GameRoundID int
	MoveA       string
	MoveB       string
	Winner      RoundWinner
	TimeoutA    bool
	TimeoutB    bool
}

// Result is the terminal outcome of a Match, ready to be reported to
// the League Manager as match_result.report.
type Result struct {
	MatchID       string
	RoundID       string
	WinnerID      *string
	ScoreA        int
	ScoreB        int
	History       []GameRoundRecord
	ForfeitReason string
}

// Validate checks Result's internal consistency: running score must
// equal the count of A/B wins recorded in History (spec.md §3.5's
// "running score consistency" invariant).
func (r Result) Validate() error {
	wantA, wantB := 0, 0
	for _, rec := range r.History {
		switch rec.Winner {
		case RoundWinnerA:
			wantA++
		case RoundWinnerB:
			wantB++
		}
	}
	if wantA != r.ScoreA || wantB != r.ScoreB {
		return fmt.Errorf("running score mismatch: history implies (%d,%d), result carries (%d,%d)", wantA, wantB, r.ScoreA, r.ScoreB)
	}
	return nil
}
