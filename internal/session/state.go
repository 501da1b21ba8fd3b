package session

import "time"

// LivenessState is the request channel state seen by the Monitor.
type LivenessState int

const (
	Idle LivenessState = iota
	AwaitingReply
	Reconnecting
)

func (s LivenessState) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingReply:
		return "awaiting_reply"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// State is the per-session client state. It is only touched by the
// goroutine driving the session.
type State struct {
	// MessageNum is the last message number seen, or -1.
	MessageNum    int64
	Outstanding   bool
	LastHeartbeat time.Time
	LastReply     time.Time
	RetryAttempt  int
	Liveness      LivenessState
	Reconnects    uint64
	Pending       PendingRequest
}
