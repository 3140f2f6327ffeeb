package retrieval

// State is a step of the per-query state machine:
//
//	RECEIVED -> GENERAL_CHECK -> GENERAL_ANSWER
//	                          -> RETRIEVE -> ROUTE -> VISION_ANSWER | TEXT_ANSWER
//
// Every answer state converges to RESPONDED.
type State string

const (
	StateReceived      State = "RECEIVED"
	StateGeneralCheck  State = "GENERAL_CHECK"
	StateGeneralAnswer State = "GENERAL_ANSWER"
	StateRetrieve      State = "RETRIEVE"
	StateRoute         State = "ROUTE"
	StateVisionAnswer  State = "VISION_ANSWER"
	StateTextAnswer    State = "TEXT_ANSWER"
	StateResponded     State = "RESPONDED"
)

var transitions = map[State][]State{
	StateReceived:      {StateGeneralCheck},
	StateGeneralCheck:  {StateGeneralAnswer, StateRetrieve},
	StateRetrieve:      {StateGeneralAnswer, StateRoute},
	StateRoute:         {StateVisionAnswer, StateTextAnswer},
	StateGeneralAnswer: {StateResponded},
	StateVisionAnswer:  {StateResponded},
	StateTextAnswer:    {StateResponded},
}

// CanTransition reports whether next may follow s.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s is an answer state.
func (s State) Terminal() bool {
	return s == StateGeneralAnswer || s == StateVisionAnswer || s == StateTextAnswer
}
