package league

import "testing"

func TestCanTransition_HappyPath(t *testing.T) {
	t.Parallel()

	path := []State{StateRegistration, StateReady, StateInProgress, StateCompleted}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Fatalf("expected %s -> %s to be legal", path[i], path[i+1])
		}
	}
}

func TestCanTransition_AbortedReachableFromAnyNonTerminalState(t *testing.T) {
	t.Parallel()

	for _, s := range []State{StateRegistration, StateReady, StateInProgress} {
		if !CanTransition(s, StateAborted) {
			t.Fatalf("expected %s -> ABORTED to be legal", s)
		}
	}
}

func TestCanTransition_RejectsSkippingStates(t *testing.T) {
	t.Parallel()

	if CanTransition(StateRegistration, StateInProgress) {
		t.Fatalf("expected REGISTRATION -> IN_PROGRESS to be illegal")
	}
	if CanTransition(StateRegistration, StateCompleted) {
		t.Fatalf("expected REGISTRATION -> COMPLETED to be illegal")
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	if !IsTerminal(StateCompleted) || !IsTerminal(StateAborted) {
		t.Fatalf("expected COMPLETED and ABORTED to be terminal")
	}
	if IsTerminal(StateRegistration) || IsTerminal(StateReady) || IsTerminal(StateInProgress) {
		t.Fatalf("expected non-terminal states to report as non-terminal")
	}
}
