package session

import (
	"math/rand"
	"time"
)

// Action is what the Monitor asks the session to do this cycle.
type Action int

const (
	ActionNone Action = iota
	ActionSendHeartbeat
	ActionRetry
	ActionReconnect
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionSendHeartbeat:
		return "send_heartbeat"
	case ActionRetry:
		return "retry"
	case ActionReconnect:
		return "reconnect"
	default:
		return "unknown"
	}
}

// Monitor implements the lazy pirate liveness rules:
//
//	Idle          --heartbeat overdue-->            AwaitingReply (send heartbeat)
//	AwaitingReply --reply-->                        Idle
//	AwaitingReply --overdue, reply window open-->   AwaitingReply (pace next check)
//	AwaitingReply --overdue, reply window expired--> Reconnecting
//
// Reconnecting returns to Idle once the session has rebuilt the channel.
type Monitor struct {
	cfg Config
	rng *rand.Rand
}

func NewMonitor(cfg Config, rng *rand.Rand) *Monitor {
	return &Monitor{cfg: cfg, rng: rng}
}

// Check evaluates st at now and mutates the pacing fields. It never does
// I/O; the caller performs the returned action.
func (m *Monitor) Check(st *State, now time.Time) Action {
	if now.Sub(st.LastHeartbeat) <= m.cfg.HeartbeatInterval {
		return ActionNone
	}
	if !st.Outstanding {
		return ActionSendHeartbeat
	}
	attempt := st.markRetry(now)
	st.LastHeartbeat = st.LastHeartbeat.Add(m.cfg.HeartbeatRetry.Delay(attempt, m.rng))
	if now.Sub(st.LastReply) > m.cfg.ReconnectAfter {
		st.Liveness = Reconnecting
		return ActionReconnect
	}
	return ActionRetry
}
