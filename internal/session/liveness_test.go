package session

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/danmuck/oestream/internal/testutil/testlog"
	"github.com/danmuck/oestream/internal/transport"
)

func TestBackoffDelayGrowsToMax(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       false,
	}
	if got := cfg.Delay(1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := cfg.Delay(2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := cfg.Delay(3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := cfg.Delay(6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
	cfg.Jitter = true
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		if got := cfg.Delay(9, rng); got > cfg.MaxDelay {
			t.Fatalf("jitter exceeded max got=%v", got)
		}
	}
}

func TestBackoffDelayJitterRange(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{InitialDelay: time.Second, Multiplier: 2.0, MaxDelay: 10 * time.Second, Jitter: true}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		got := cfg.Delay(3, rng)
		if got < 2*time.Second || got > 6*time.Second {
			t.Fatalf("jittered delay out of range got=%v", got)
		}
	}
}

func TestDefaultRetryPacingIsConstantOneSecond(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig().HeartbeatRetry
	for attempt := 1; attempt <= 20; attempt++ {
		if got := cfg.Delay(attempt, nil); got != time.Second {
			t.Fatalf("attempt %d got=%v", attempt, got)
		}
	}
}

func monitorAt(cfg Config) (*Monitor, *State, time.Time) {
	t0 := time.Unix(1700000000, 0)
	return NewMonitor(cfg, nil), &State{MessageNum: -1, LastReply: t0}, t0
}

func TestMonitorHeartbeatWhenIdleAndOverdue(t *testing.T) {
	testlog.Start(t)
	m, st, t0 := monitorAt(DefaultConfig())
	if got := m.Check(st, t0); got != ActionSendHeartbeat {
		t.Fatalf("zero last heartbeat should be overdue, got %v", got)
	}
	st.track(RequestHeartbeat, t0)
	st.settle(t0)
	if got := m.Check(st, t0.Add(2*time.Second)); got != ActionNone {
		t.Fatalf("interval not yet exceeded, got %v", got)
	}
	if got := m.Check(st, t0.Add(2*time.Second+time.Millisecond)); got != ActionSendHeartbeat {
		t.Fatalf("expected heartbeat, got %v", got)
	}
}

func TestMonitorRetryAdvancesLastHeartbeat(t *testing.T) {
	testlog.Start(t)
	m, st, t0 := monitorAt(DefaultConfig())
	st.track(RequestHeartbeat, t0)

	now := t0.Add(3 * time.Second)
	if got := m.Check(st, now); got != ActionRetry {
		t.Fatalf("expected retry, got %v", got)
	}
	if !st.LastHeartbeat.Equal(t0.Add(time.Second)) {
		t.Fatalf("last heartbeat should advance by one step, got %v", st.LastHeartbeat.Sub(t0))
	}
	if st.RetryAttempt != 1 || st.Pending.Attempts != 1 || st.Liveness != AwaitingReply {
		t.Fatalf("unexpected state %+v", st)
	}
	if got := m.Check(st, now); got != ActionNone {
		t.Fatalf("paced check should wait, got %v", got)
	}
	if got := m.Check(st, now.Add(time.Millisecond)); got != ActionRetry {
		t.Fatalf("overdue again, expected retry, got %v", got)
	}
	if st.RetryAttempt != 2 {
		t.Fatalf("attempt got=%d", st.RetryAttempt)
	}
}

func TestMonitorReconnectAfterWindow(t *testing.T) {
	testlog.Start(t)
	m, st, t0 := monitorAt(DefaultConfig())
	st.track(RequestEvent, t0)
	if got := m.Check(st, t0.Add(10*time.Second)); got != ActionRetry {
		t.Fatalf("window not yet expired, got %v", got)
	}
	if got := m.Check(st, t0.Add(10*time.Second+time.Millisecond)); got != ActionReconnect {
		t.Fatalf("expected reconnect, got %v", got)
	}
	if st.Liveness != Reconnecting {
		t.Fatalf("expected reconnecting state, got %v", st.Liveness)
	}
}

func TestMonitorUsesConfiguredPacing(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.HeartbeatRetry = BackoffConfig{InitialDelay: 500 * time.Millisecond, Multiplier: 2, MaxDelay: 2 * time.Second}
	m, st, t0 := monitorAt(cfg)
	st.track(RequestHeartbeat, t0)
	now := t0.Add(9 * time.Second)
	var steps []time.Duration
	for i := 0; i < 4; i++ {
		before := st.LastHeartbeat
		m.Check(st, now)
		steps = append(steps, st.LastHeartbeat.Sub(before))
	}
	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 2 * time.Second}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("step %d got=%v want=%v", i, steps[i], want[i])
		}
	}
}

func TestConfigValidate(t *testing.T) {
	testlog.Start(t)
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for name, mutate := range map[string]func(*Config){
		"data endpoint":  func(c *Config) { c.DataEndpoint = " " },
		"event endpoint": func(c *Config) { c.EventEndpoint = "" },
		"application":    func(c *Config) { c.Application = "" },
		"heartbeat":      func(c *Config) { c.HeartbeatInterval = 0 },
		"window":         func(c *Config) { c.ReconnectAfter = c.HeartbeatInterval },
		"retry":          func(c *Config) { c.HeartbeatRetry.InitialDelay = 0 },
		"poll":           func(c *Config) { c.PollTimeout = -1 },
		"drain":          func(c *Config) { c.MaxDrain = 0 },
	} {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
	cfg := DefaultConfig()
	cfg.Security.Mode = transport.SecurityModeProduction
	if err := cfg.Validate(); !errors.Is(err, transport.ErrCurveRequired) {
		t.Fatalf("expected ErrCurveRequired, got %v", err)
	}
}
