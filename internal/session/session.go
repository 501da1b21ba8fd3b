package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/oestream/internal/observability"
	"github.com/danmuck/oestream/internal/params"
	"github.com/danmuck/oestream/internal/protocol"
	"github.com/danmuck/oestream/internal/protocol/frame"
	"github.com/danmuck/oestream/internal/protocol/verbose"
	"github.com/danmuck/oestream/internal/sink"
	"github.com/danmuck/oestream/internal/transport"
)

// Ready names the channels with input after PollOnce.
type Ready struct {
	Inbound bool
	Reply   bool
}

func (r Ready) Any() bool { return r.Inbound || r.Reply }

// Session owns the subscribe and request channels of one stream client.
type Session struct {
	cfg     Config
	dialer  transport.Dialer
	sink    sink.Sink
	log     zerolog.Logger
	now     func() time.Time
	rng     *rand.Rand
	uuid    string
	params  *params.Params
	seq     *verbose.Sequence
	decoder *verbose.Decoder
	monitor *Monitor

	state   State
	eventNo int

	poller transport.Poller
	sub    transport.Channel
	req    transport.Channel
}

type Option func(*Session)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

func WithUUID(id string) Option {
	return func(s *Session) { s.uuid = id }
}

// WithParams seeds the client-local parameters that param messages update.
func WithParams(p params.Params) Option {
	return func(s *Session) { *s.params = p }
}

func New(cfg Config, dialer transport.Dialer, out sink.Sink, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dialer == nil {
		return nil, fmt.Errorf("%w: dialer required", ErrInvalidConfig)
	}
	if out == nil {
		out = sink.Nop{}
	}
	p := params.Default()
	p.Application = cfg.Application
	s := &Session{
		cfg:    cfg,
		dialer: dialer,
		sink:   out,
		log:    log.Logger.With().Str("component", "session").Logger(),
		now:    time.Now,
		uuid:   uuid.NewString(),
		params: &p,
		seq:    &verbose.Sequence{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.now().UnixNano()))
	}
	s.decoder = verbose.NewDecoder(s.seq, s.params,
		verbose.WithLogger(s.log.With().Str("component", "verbose.decoder").Logger()),
		verbose.WithLimits(cfg.Limits),
	)
	s.monitor = NewMonitor(cfg, s.rng)
	s.state = State{MessageNum: -1, LastReply: s.now()}
	return s, nil
}

func (s *Session) UUID() string { return s.uuid }

func (s *Session) Params() params.Params { return *s.params }

// State returns a snapshot of the client state.
func (s *Session) State() State {
	st := s.state
	st.MessageNum = s.seq.Last()
	return st
}

func (s *Session) Connected() bool { return s.poller != nil }

// Connect opens both channels on first use. Later calls are no-ops.
func (s *Session) Connect() error {
	if s.Connected() {
		return nil
	}
	sub, err := s.dialer.Subscribe(s.cfg.DataEndpoint)
	if err != nil {
		return protocol.WrapChannel("subscribe "+s.cfg.DataEndpoint, err)
	}
	req, err := s.dialer.Request(s.cfg.EventEndpoint)
	if err != nil {
		_ = sub.Close()
		return protocol.WrapChannel("dial "+s.cfg.EventEndpoint, err)
	}
	poller := s.dialer.NewPoller()
	for _, ch := range []transport.Channel{sub, req} {
		if err := poller.Add(ch); err != nil {
			_ = sub.Close()
			_ = req.Close()
			return protocol.WrapChannel("register channel", err)
		}
	}
	s.sub, s.req, s.poller = sub, req, poller
	s.log.Info().
		Str("data", s.cfg.DataEndpoint).
		Str("events", s.cfg.EventEndpoint).
		Str("uuid", s.uuid).
		Msg("session connected")
	return nil
}

// PollOnce waits up to timeout for either channel. A timeout is an empty
// Ready and no error.
func (s *Session) PollOnce(timeout time.Duration) (Ready, error) {
	if err := s.Connect(); err != nil {
		return Ready{}, err
	}
	chans, err := s.poller.Poll(timeout)
	if err != nil {
		return Ready{}, protocol.WrapChannel("poll", err)
	}
	var r Ready
	for _, ch := range chans {
		switch ch {
		case s.sub:
			r.Inbound = true
		case s.req:
			r.Reply = true
		}
	}
	return r, nil
}

// RecvInbound reads and decodes one message from the subscribe channel.
// transport.ErrNoMessage means nothing was queued.
func (s *Session) RecvInbound() (verbose.Message, error) {
	if err := s.Connect(); err != nil {
		return verbose.Message{}, err
	}
	parts, err := s.sub.Recv()
	if err != nil {
		if errors.Is(err, transport.ErrNoMessage) {
			return verbose.Message{}, err
		}
		return verbose.Message{}, protocol.WrapChannel("recv inbound", err)
	}
	return s.decoder.Decode(frame.Multipart(parts))
}

// RecvReply reads the reply to the outstanding request.
func (s *Session) RecvReply() ([]byte, error) {
	if !s.state.Outstanding {
		return nil, protocol.Protocolf("reply read with no outstanding request")
	}
	parts, err := s.req.Recv()
	if err != nil {
		if errors.Is(err, transport.ErrNoMessage) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: recv reply: %v", protocol.ErrConnectionLost, err)
	}
	kind, sent := s.state.Pending.Kind, s.state.Pending.SentAt
	now := s.now()
	s.state.settle(now)
	reply := []byte(nil)
	if len(parts) > 0 {
		reply = parts[0]
	}
	s.log.Debug().
		Str("kind", kind).
		Dur("rtt", now.Sub(sent)).
		Bytes("reply", reply).
		Msg("reply received")
	return reply, nil
}

// Cycle runs one liveness check, an optional synthetic event, one bounded
// poll and the dispatch of whatever arrived. Only channel errors are
// returned; everything else drops the affected message and is logged.
func (s *Session) Cycle() error {
	if err := s.Connect(); err != nil {
		return err
	}
	if err := s.checkLiveness(); err != nil {
		return err
	}
	s.maybeSendTestEvent()

	ready, err := s.PollOnce(s.cfg.PollTimeout)
	if err != nil {
		return err
	}
	if ready.Reply {
		s.handleReply()
	}
	if ready.Inbound {
		return s.drainInbound()
	}
	return nil
}

func (s *Session) checkLiveness() error {
	now := s.now()
	action := s.monitor.Check(&s.state, now)
	switch action {
	case ActionSendHeartbeat:
		if res := s.SendHeartbeat(); res.Err != nil {
			s.log.Warn().Err(res.Err).Msg("heartbeat not sent")
		}
	case ActionRetry:
		s.log.Debug().
			Int("attempt", s.state.RetryAttempt).
			Str("pending", s.state.Pending.Kind).
			Msg("no reply yet, retrying")
	case ActionReconnect:
		return s.reconnect(now)
	}
	return nil
}

// reconnect rebuilds the request channel. The in-flight request is lost.
func (s *Session) reconnect(now time.Time) error {
	s.log.Warn().
		Dur("silence", now.Sub(s.state.LastReply)).
		Str("lost", s.state.Pending.Kind).
		Msg("server silent, reconnecting request channel")
	if err := s.poller.Remove(s.req); err != nil && !errors.Is(err, transport.ErrNotRegistered) {
		s.log.Debug().Err(err).Msg("unregister request channel")
	}
	if err := s.req.Close(); err != nil {
		s.log.Debug().Err(err).Msg("close request channel")
	}
	req, err := s.dialer.Request(s.cfg.EventEndpoint)
	if err != nil {
		return protocol.WrapChannel("redial "+s.cfg.EventEndpoint, err)
	}
	if err := s.poller.Add(req); err != nil {
		_ = req.Close()
		return protocol.WrapChannel("register channel", err)
	}
	s.req = req
	s.state.settle(now)
	s.state.Reconnects++
	observability.RecordReconnect("stream")
	return nil
}

func (s *Session) maybeSendTestEvent() {
	rate := s.params.TestEventRate
	if rate <= 0 || s.rng.Float64() >= rate {
		return
	}
	res := s.SendEvent(verbose.EventSpec{
		Type:         protocol.EventTTL,
		EventID:      s.eventNo,
		EventChannel: s.params.EventChannel,
	})
	if res.Err != nil {
		s.log.Debug().Err(res.Err).Msg("test event not sent")
	}
}

func (s *Session) handleReply() {
	_, err := s.RecvReply()
	switch {
	case err == nil, errors.Is(err, transport.ErrNoMessage):
	case errors.Is(err, protocol.ErrConnectionLost):
		s.log.Warn().Err(err).Msg("reply channel failed")
		if rerr := s.reconnect(s.now()); rerr != nil {
			s.log.Error().Err(rerr).Msg("reconnect failed")
		}
	default:
		observability.RecordStreamDrop(err)
		s.log.Warn().Err(err).Msg("unexpected reply dropped")
	}
}

func (s *Session) drainInbound() error {
	for i := 0; i < s.cfg.MaxDrain; i++ {
		msg, err := s.RecvInbound()
		if errors.Is(err, transport.ErrNoMessage) {
			return nil
		}
		if msg.Gap != nil {
			observability.RecordSequenceGap()
		}
		if err != nil {
			if !protocol.Recoverable(err) {
				s.log.Error().Err(err).Msg("inbound channel failed")
				return err
			}
			observability.RecordStreamDrop(err)
			s.log.Warn().
				Err(err).
				Int64("message_num", msg.Envelope.MessageNum).
				Str("type", string(msg.Envelope.Type)).
				Msg("message dropped")
			continue
		}
		s.deliver(msg)
	}
	return nil
}

func (s *Session) deliver(msg verbose.Message) {
	switch {
	case msg.Ignored:
		observability.RecordStreamMessage("ignored")
	case msg.Frame != nil:
		observability.RecordStreamMessage(string(protocol.MessageData))
		s.sink.UpdatePlot(msg.Frame.Samples, msg.Frame.SampleRate)
	case msg.Event != nil:
		observability.RecordStreamMessage(string(protocol.MessageEvent))
		s.sink.OnEvent(*msg.Event)
	case msg.Spike != nil:
		observability.RecordStreamMessage(string(protocol.MessageSpike))
		s.sink.OnSpike(*msg.Spike)
	case msg.Params != nil:
		observability.RecordStreamMessage(string(protocol.MessageParam))
		s.log.Info().Interface("params", msg.Params).Msg("parameters updated")
	}
}

// Run cycles until ctx is cancelled (nil) or a channel error occurs.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Connect(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := s.Cycle(); err != nil {
			return err
		}
	}
}

// Close releases both channels. The dialer stays open.
func (s *Session) Close() error {
	if !s.Connected() {
		return nil
	}
	var errs []error
	for _, ch := range []transport.Channel{s.sub, s.req} {
		if ch == nil {
			continue
		}
		if err := s.poller.Remove(ch); err != nil && !errors.Is(err, transport.ErrNotRegistered) {
			errs = append(errs, err)
		}
		if err := ch.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.sub, s.req, s.poller = nil, nil, nil
	s.log.Info().Msg("session closed")
	return errors.Join(errs...)
}
