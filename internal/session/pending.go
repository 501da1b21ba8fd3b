package session

import "time"

const (
	RequestHeartbeat = "heartbeat"
	RequestEvent     = "event"
)

// PendingRequest describes the one request awaiting its reply.
type PendingRequest struct {
	Kind          string
	SentAt        time.Time
	Attempts      int
	LastAttemptAt time.Time
}

func (s *State) track(kind string, now time.Time) {
	s.Outstanding = true
	s.LastReply = now
	s.RetryAttempt = 0
	s.Liveness = AwaitingReply
	s.Pending = PendingRequest{Kind: kind, SentAt: now}
	if kind == RequestHeartbeat {
		s.LastHeartbeat = now
	}
}

func (s *State) markRetry(now time.Time) int {
	s.RetryAttempt++
	s.Pending.Attempts = s.RetryAttempt
	s.Pending.LastAttemptAt = now
	return s.RetryAttempt
}

// settle clears the outstanding request after a reply or a reconnect.
func (s *State) settle(now time.Time) {
	s.Outstanding = false
	s.LastReply = now
	s.RetryAttempt = 0
	s.Liveness = Idle
	s.Pending = PendingRequest{}
}
