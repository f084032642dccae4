// Package schedule builds and represents a tournament Schedule via the
// circle-method round-robin algorithm of spec.md §4.4.
package schedule

import (
	"fmt"
	"sort"
)

// ByeSentinel is the synthetic opponent ID for a round with an odd
// player count.
const ByeSentinel = "BYE"

// MatchState mirrors the subset of domain/match.State a freshly built
// Schedule can carry (COMPLETED for BYEs, SCHEDULED otherwise) without
// importing the match package; neither package imports the other.
type MatchState string

const (
	MatchStateScheduled MatchState = "SCHEDULED"
	MatchStateCompleted MatchState = "COMPLETED"
)

// Match is one pairing within a Round.
type Match struct {
	MatchID         string
	PlayerAID       string
	PlayerBID       string
	GameType        string
	IsBye           bool
	AssignedReferee string
	State           MatchState
}

// Round is one round of the Schedule: an unordered set of Matches, no
// two of which (outside BYE) share a player.
type Round struct {
	RoundID string
	Matches []Match
}

// Schedule is the immutable output of Build: an ordered list of Rounds.
type Schedule struct {
	Rounds []Round
}

// Build runs the circle method over playerIDs for gameType, per
// spec.md §4.4. playerIDs need not be pre-sorted; the function sorts a
// working copy so side-A/side-B assignment (lexicographically smaller
// ID is side A) and match ID numbering are deterministic regardless of
// input order.
func Build(playerIDs []string, gameType string) (Schedule, error) {
	if len(playerIDs) < 2 {
		return Schedule{}, fmt.Errorf("at least 2 players are required to build a schedule")
	}

	ids := make([]string, len(playerIDs))
	copy(ids, playerIDs)
	sort.Strings(ids)

	hasBye := len(ids)%2 == 1
	if hasBye {
		ids = append(ids, ByeSentinel)
	}
	n := len(ids)
	numRounds := n - 1

	positions := make([]string, n)
	copy(positions, ids)

	rounds := make([]Round, 0, numRounds)
	for roundIdx := 1; roundIdx <= numRounds; roundIdx++ {
		matches := make([]Match, 0, n/2)
		pairIdx := 1
		for i := 0; i < n/2; i++ {
			left := positions[i]
			right := positions[n-1-i]

			isBye := left == ByeSentinel || right == ByeSentinel
			playerA, playerB := orderSides(left, right)

			m := Match{
				MatchID:   fmt.Sprintf("R%dM%d", roundIdx, pairIdx),
				PlayerAID: playerA,
				PlayerBID: playerB,
				GameType:  gameType,
				IsBye:     isBye,
				State:     MatchStateScheduled,
			}
			if isBye {
				m.State = MatchStateCompleted
			}
			matches = append(matches, m)
			pairIdx++
		}
		rounds = append(rounds, Round{
			RoundID: fmt.Sprintf("R%d", roundIdx),
			Matches: matches,
		})

		positions = rotate(positions)
	}

	return Schedule{Rounds: rounds}, nil
}

// orderSides puts the lexicographically smaller, non-BYE ID in side A,
// per spec.md §4.4 ("the lexicographically smaller PlayerID is side A").
// A BYE pairing keeps the real player as side A for readability.
func orderSides(left, right string) (string, string) {
	if left == ByeSentinel {
		return right, left
	}
	if right == ByeSentinel {
		return left, right
	}
	if left < right {
		return left, right
	}
	return right, left
}

// rotate fixes position 0 and rotates every other position one slot
// clockwise, the circle method's per-round transform.
func rotate(positions []string) []string {
	n := len(positions)
	next := make([]string, n)
	next[0] = positions[0]
	next[1] = positions[n-1]
	for i := 2; i < n; i++ {
		next[i] = positions[i-1]
	}
	return next
}
