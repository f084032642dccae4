// Package league models the League Manager's top-level lifecycle state
// machine, per spec.md §3.4.
package league

// State is the league's lifecycle state.
type State string

const (
	StateRegistration State = "REGISTRATION"
	StateReady         State = "READY"
	StateInProgress     State = "IN_PROGRESS"
	StateCompleted     State = "COMPLETED"
	StateAborted       State = "ABORTED"
)

var validTransitions = map[State]map[State]bool{
	StateRegistration: {StateReady: true, StateAborted: true},
	StateReady:         {StateInProgress: true, StateAborted: true},
	StateInProgress:     {StateCompleted: true, StateAborted: true},
}

// CanTransition reports whether moving from 'from' to 'to' is a legal
// league state transition. ABORTED is reachable from any non-terminal
// state; COMPLETED and ABORTED are sinks.
func CanTransition(from, to State) bool {
	return validTransitions[from][to]
}

// IsTerminal reports whether s is a sink state with no further
// transitions.
func IsTerminal(s State) bool {
	return s == StateCompleted || s == StateAborted
}
