package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/oestream/internal/protocol/frame"
	"github.com/danmuck/oestream/internal/transport"
)

var ErrInvalidConfig = errors.New("session: invalid config")

// Config defines endpoints and liveness timing for one stream session.
type Config struct {
	DataEndpoint  string
	EventEndpoint string
	Application   string

	// HeartbeatInterval is the idle time after which a heartbeat is sent.
	HeartbeatInterval time.Duration
	// ReconnectAfter is the silence since the last reply after which the
	// request channel is rebuilt.
	ReconnectAfter time.Duration
	// HeartbeatRetry paces overdue checks while a reply is outstanding.
	HeartbeatRetry BackoffConfig
	PollTimeout    time.Duration
	// MaxDrain caps inbound messages handled per Cycle.
	MaxDrain int
	Limits   frame.Limits
	Security transport.Security
}

// DefaultConfig matches the acquisition server's stock ports and the
// client's historical heartbeat timing.
func DefaultConfig() Config {
	return Config{
		DataEndpoint:      "tcp://localhost:5556",
		EventEndpoint:     "tcp://localhost:5557",
		Application:       "Plot Process",
		HeartbeatInterval: 2 * time.Second,
		ReconnectAfter:    10 * time.Second,
		HeartbeatRetry: BackoffConfig{
			InitialDelay: time.Second,
			Multiplier:   1.0,
		},
		PollTimeout: 10 * time.Millisecond,
		MaxDrain:    256,
		Limits:      frame.DefaultLimits(),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DataEndpoint) == "" {
		return fmt.Errorf("%w: data endpoint required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.EventEndpoint) == "" {
		return fmt.Errorf("%w: event endpoint required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Application) == "" {
		return fmt.Errorf("%w: application required", ErrInvalidConfig)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat interval must be > 0", ErrInvalidConfig)
	}
	if c.ReconnectAfter <= c.HeartbeatInterval {
		return fmt.Errorf("%w: reconnect window %s must exceed heartbeat interval %s",
			ErrInvalidConfig, c.ReconnectAfter, c.HeartbeatInterval)
	}
	if c.HeartbeatRetry.InitialDelay <= 0 {
		return fmt.Errorf("%w: heartbeat retry delay must be > 0", ErrInvalidConfig)
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("%w: poll timeout must be >= 0", ErrInvalidConfig)
	}
	if c.MaxDrain <= 0 {
		return fmt.Errorf("%w: max drain must be > 0", ErrInvalidConfig)
	}
	return c.Security.Validate()
}
