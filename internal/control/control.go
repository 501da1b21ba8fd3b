// Package control passes raw remote-control command strings to the
// acquisition server and returns each single-string reply verbatim.
package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/oestream/internal/observability"
	"github.com/danmuck/oestream/internal/protocol"
	"github.com/danmuck/oestream/internal/transport"
)

// Commands the server documents. Any other non-empty string is sent as is.
const (
	StartAcquisition = "StartAcquisition"
	StopAcquisition  = "StopAcquisition"
	StartRecord      = "StartRecord"
	StopRecord       = "StopRecord"
	IsAcquiring      = "IsAcquiring"
	IsRecording      = "IsRecording"
	GetRecordingPath = "GetRecordingPath"

	pollStep = 50 * time.Millisecond
)

var (
	ErrEmptyCommand  = errors.New("control: empty command")
	ErrInvalidConfig = errors.New("control: invalid config")
)

var known = map[string]struct{}{
	StartAcquisition: {},
	StopAcquisition:  {},
	StartRecord:      {},
	StopRecord:       {},
	IsAcquiring:      {},
	IsRecording:      {},
	GetRecordingPath: {},
}

// Known reports whether cmd names a documented command; the verb is the
// first whitespace separated word.
func Known(cmd string) bool {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return false
	}
	_, ok := known[fields[0]]
	return ok
}

type Config struct {
	Endpoint string
	// Timeout bounds the wait for each attempt's reply.
	Timeout time.Duration
	Retries int
}

func DefaultConfig() Config {
	return Config{
		Endpoint: "tcp://localhost:5556",
		Timeout:  2500 * time.Millisecond,
		Retries:  3,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("%w: endpoint required", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be > 0", ErrInvalidConfig)
	}
	if c.Retries <= 0 {
		return fmt.Errorf("%w: retries must be > 0", ErrInvalidConfig)
	}
	return nil
}

// Client is a lazy pirate request-reply client. It is not safe for
// concurrent use.
type Client struct {
	cfg    Config
	dialer transport.Dialer
	log    zerolog.Logger

	req    transport.Channel
	poller transport.Poller
}

type Option func(*Client)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(cfg Config, dialer transport.Dialer, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dialer == nil {
		return nil, fmt.Errorf("%w: dialer required", ErrInvalidConfig)
	}
	c := &Client{
		cfg:    cfg,
		dialer: dialer,
		log:    log.Logger.With().Str("component", "control").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do sends command and returns the reply. After Retries attempts without a
// reply it fails with protocol.ErrConnectionLost.
func (c *Client) Do(ctx context.Context, command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", ErrEmptyCommand
	}
	if !Known(command) {
		c.log.Debug().Str("command", command).Msg("passing through unrecognized command")
	}
	start := time.Now()
	reply, err := c.do(ctx, command)
	observability.RecordControlCommand(metricLabel(command), err, time.Since(start))
	return reply, err
}

func (c *Client) do(ctx context.Context, command string) (string, error) {
	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		if err := c.ensure(); err != nil {
			return "", err
		}
		if err := c.req.Send([]byte(command)); err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("send failed, recreating socket")
			c.reset()
			continue
		}
		reply, ok, err := c.await(ctx)
		if err != nil {
			c.reset()
			return "", err
		}
		if ok {
			return reply, nil
		}
		c.log.Warn().
			Str("command", command).
			Int("attempt", attempt).
			Dur("timeout", c.cfg.Timeout).
			Msg("no reply, recreating socket")
		c.reset()
	}
	return "", fmt.Errorf("%w: no reply to %q after %d attempts", protocol.ErrConnectionLost, command, c.cfg.Retries)
}

// await waits up to Timeout for the reply, waking at least every pollStep
// to honour ctx.
func (c *Client) await(ctx context.Context) (string, bool, error) {
	deadline := time.Now().Add(c.cfg.Timeout)
	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", false, nil
		}
		ready, err := c.poller.Poll(min(remaining, pollStep))
		if err != nil {
			return "", false, protocol.WrapChannel("poll", err)
		}
		if len(ready) == 0 {
			continue
		}
		parts, err := c.req.Recv()
		if errors.Is(err, transport.ErrNoMessage) {
			continue
		}
		if err != nil {
			return "", false, nil
		}
		if len(parts) == 0 {
			return "", true, nil
		}
		return string(parts[0]), true, nil
	}
}

func (c *Client) ensure() error {
	if c.req != nil {
		return nil
	}
	req, err := c.dialer.Request(c.cfg.Endpoint)
	if err != nil {
		return protocol.WrapChannel("dial "+c.cfg.Endpoint, err)
	}
	if c.poller == nil {
		c.poller = c.dialer.NewPoller()
	}
	if err := c.poller.Add(req); err != nil {
		_ = req.Close()
		return protocol.WrapChannel("register channel", err)
	}
	c.req = req
	return nil
}

func (c *Client) reset() {
	if c.req == nil {
		return
	}
	_ = c.poller.Remove(c.req)
	_ = c.req.Close()
	c.req = nil
	observability.RecordReconnect("control")
}

func (c *Client) Close() error {
	if c.req == nil {
		return nil
	}
	_ = c.poller.Remove(c.req)
	err := c.req.Close()
	c.req = nil
	return err
}

func metricLabel(command string) string {
	if Known(command) {
		return strings.Fields(command)[0]
	}
	return "other"
}
