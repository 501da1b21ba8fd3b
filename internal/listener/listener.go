// Package listener runs the companion listener: a subscribe channel that
// carries the compact three-frame encoding (tag, timestamp, body).
package listener

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
	"github.com/danmuck/oestream/internal/protocol/compact"
	"github.com/danmuck/oestream/internal/protocol/frame"
	"github.com/danmuck/oestream/internal/sink"
	"github.com/danmuck/oestream/internal/transport"
)

var ErrInvalidConfig = errors.New("listener: invalid config")

type Config struct {
	Endpoint    string
	Topics      []string
	PollTimeout time.Duration
	MaxDrain    int
	Limits      frame.Limits
}

func DefaultConfig() Config {
	return Config{
		Endpoint:    "tcp://localhost:5557",
		PollTimeout: 100 * time.Millisecond,
		MaxDrain:    256,
		Limits:      frame.DefaultLimits(),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("%w: endpoint required", ErrInvalidConfig)
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("%w: poll timeout must be >= 0", ErrInvalidConfig)
	}
	if c.MaxDrain <= 0 {
		return fmt.Errorf("%w: max drain must be > 0", ErrInvalidConfig)
	}
	return nil
}

// Stats counts what the listener has seen since it started.
type Stats struct {
	Delivered uint64
	Dropped   uint64
}

type Listener struct {
	cfg    Config
	dialer transport.Dialer
	sink   sink.Sink
	log    zerolog.Logger

	sub    transport.Channel
	poller transport.Poller
	stats  Stats
}

type Option func(*Listener)

func WithLogger(l zerolog.Logger) Option {
	return func(ln *Listener) { ln.log = l }
}

func New(cfg Config, dialer transport.Dialer, out sink.Sink, opts ...Option) (*Listener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dialer == nil {
		return nil, fmt.Errorf("%w: dialer required", ErrInvalidConfig)
	}
	if out == nil {
		out = sink.Nop{}
	}
	l := &Listener{
		cfg:    cfg,
		dialer: dialer,
		sink:   out,
		log:    log.Logger.With().Str("component", "listener").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Listener) Stats() Stats { return l.stats }

// Connect subscribes on first use.
func (l *Listener) Connect() error {
	if l.sub != nil {
		return nil
	}
	sub, err := l.dialer.Subscribe(l.cfg.Endpoint, l.cfg.Topics...)
	if err != nil {
		return protocol.WrapChannel("subscribe "+l.cfg.Endpoint, err)
	}
	poller := l.dialer.NewPoller()
	if err := poller.Add(sub); err != nil {
		_ = sub.Close()
		return protocol.WrapChannel("register channel", err)
	}
	l.sub, l.poller = sub, poller
	l.log.Info().Str("endpoint", l.cfg.Endpoint).Msg("listener connected")
	return nil
}

// Cycle polls once and handles up to MaxDrain messages.
func (l *Listener) Cycle() error {
	if err := l.Connect(); err != nil {
		return err
	}
	ready, err := l.poller.Poll(l.cfg.PollTimeout)
	if err != nil {
		return protocol.WrapChannel("poll", err)
	}
	if len(ready) == 0 {
		return nil
	}
	for i := 0; i < l.cfg.MaxDrain; i++ {
		parts, err := l.sub.Recv()
		if errors.Is(err, transport.ErrNoMessage) {
			return nil
		}
		if err != nil {
			return protocol.WrapChannel("recv", err)
		}
		l.handle(frame.Multipart(parts))
	}
	return nil
}

func (l *Listener) handle(parts frame.Multipart) {
	if err := frame.Check(parts, l.cfg.Limits); err != nil {
		l.drop(err)
		return
	}
	msg, err := compact.Decode(parts)
	if err != nil {
		l.drop(err)
		return
	}
	switch {
	case msg.Event != nil:
		l.sink.OnEvent(*msg.Event)
	case msg.Spike != nil:
		l.sink.OnSpike(*msg.Spike)
	case msg.Text != nil:
		l.sink.OnMessage(*msg.Text)
	}
	l.stats.Delivered++
	observability.RecordListenerMessage(compact.TagName(msg.Tag))
}

func (l *Listener) drop(err error) {
	l.stats.Dropped++
	observability.RecordListenerDrop(err)
	l.log.Warn().Err(err).Msg("compact message dropped")
}

// Run cycles until ctx is cancelled (nil) or the channel fails.
func (l *Listener) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := l.Cycle(); err != nil {
			return err
		}
	}
}

func (l *Listener) Close() error {
	if l.sub == nil {
		return nil
	}
	_ = l.poller.Remove(l.sub)
	err := l.sub.Close()
	l.sub, l.poller = nil, nil
	return err
}
