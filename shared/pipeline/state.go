package pipeline

import "fmt"

// State is the position of a run in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateResolving
	StatePaginating
	StateFetchingStats
	StateEnriching
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StatePaginating:
		return "paginating"
	case StateFetchingStats:
		return "fetching_stats"
	case StateEnriching:
		return "enriching"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateAborted
}

var transitions = map[State][]State{
	StateIdle:          {StateResolving},
	StateResolving:     {StatePaginating, StateFetchingStats},
	StatePaginating:    {StateFetchingStats},
	StateFetchingStats: {StateEnriching, StateComplete},
	StateEnriching:     {StateComplete},
}

// CanTransition reports whether from → to is a legal move. Aborted is
// reachable from every non-terminal state.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateAborted {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
