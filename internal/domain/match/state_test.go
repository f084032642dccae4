package match

import "testing"

func TestCanTransition_AllowsForfeitFromEveryActiveState(t *testing.T) {
	t.Parallel()

	for _, from := range []State{StateScheduled, StateInvited, StateAccepted, StateInProgress} {
		if from == StateScheduled {
			continue // SCHEDULED has no direct forfeit path; it must invite first.
		}
		if !CanTransition(from, StateForfeited) {
			t.Fatalf("expected %s -> FORFEITED to be legal", from)
		}
	}
}

func TestCanTransition_RejectsSkippingStates(t *testing.T) {
	t.Parallel()

	if CanTransition(StateScheduled, StateInProgress) {
		t.Fatalf("expected SCHEDULED -> IN_PROGRESS to be illegal")
	}
	if CanTransition(StateCompleted, StateInProgress) {
		t.Fatalf("expected COMPLETED to be terminal")
	}
}

func TestResultValidate_DetectsScoreHistoryMismatch(t *testing.T) {
	t.Parallel()

	r := Result{
		MatchID: "R1M1",
		ScoreA:  2,
		ScoreB:  0,
		History: []GameRoundRecord{
			{GameRoundID: 1, Winner: RoundWinnerA},
		},
	}
	if err := r.Validate(); err == nil {
		t.Fatalf("expected a running-score mismatch error")
	}
}

func TestResultValidate_AcceptsConsistentHistory(t *testing.T) {
	t.Parallel()

	r := Result{
		MatchID: "R1M1",
		ScoreA:  1,
		ScoreB:  1,
		History: []GameRoundRecord{
			{GameRoundID: 1, Winner: RoundWinnerA},
			{GameRoundID: 2, Winner: RoundWinnerB},
			{GameRoundID: 3, Winner: RoundWinnerDraw},
		},
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
