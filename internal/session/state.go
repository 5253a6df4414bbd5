package session

// State is the controller's position in the subtitle workflow.
type State int

const (
	StateIdle State = iota
	StateReady
	StateProcessing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateProcessing:
		return "processing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a user action or generation outcome.
type Event int

const (
	EventSelect Event = iota
	EventInvoke
	EventSucceed
	EventFail
	EventRetry
	EventClear
)

func (e Event) String() string {
	switch e {
	case EventSelect:
		return "select"
	case EventInvoke:
		return "invoke"
	case EventSucceed:
		return "succeed"
	case EventFail:
		return "fail"
	case EventRetry:
		return "retry"
	case EventClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Transition returns the state reached by applying e in s. ok is false when
// the event is not allowed in s, in which case s is returned unchanged.
func Transition(s State, e Event) (State, bool) {
	switch e {
	case EventClear:
		return StateIdle, true
	case EventSelect:
		if s == StateProcessing {
			return s, false
		}
		return StateReady, true
	case EventInvoke:
		if s == StateReady || s == StateDone {
			return StateProcessing, true
		}
	case EventRetry:
		if s == StateFailed {
			return StateProcessing, true
		}
	case EventSucceed:
		if s == StateProcessing {
			return StateDone, true
		}
	case EventFail:
		if s == StateProcessing {
			return StateFailed, true
		}
	}
	return s, false
}
