package session

// State is the closed set of stream session states. Transitions:
//
//	Idle -> Streaming          (stream opened)
//	Streaming -> Reconciling   (done event)
//	Streaming -> Failed        (error event, transport failure, teardown)
//	Reconciling -> Settled     (canonical replacement, patch best-effort)
//	Reconciling -> Failed      (teardown during reconciliation)
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateReconciling
	StateSettled
	StateFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateReconciling:
		return "reconciling"
	case StateSettled:
		return "settled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session has finished
func (s State) Terminal() bool {
	return s == StateSettled || s == StateFailed
}
