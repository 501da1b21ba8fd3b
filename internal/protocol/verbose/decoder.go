package verbose

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/oestream/internal/params"
	"github.com/danmuck/oestream/internal/protocol"
	"github.com/danmuck/oestream/internal/protocol/frame"
)

// Message is one decoded verbose message. At most one of Frame, Event,
// Spike or Params is set; Ignored marks messages that consumed a sequence
// number but produced nothing for the sink.
type Message struct {
	Envelope protocol.Envelope
	Gap      *Gap
	Frame    *protocol.DataFrame
	Event    *protocol.DigitalEvent
	Spike    *protocol.SpikeEvent
	Params   map[string]any
	Ignored  bool
}

// Decoder turns raw multi-frame messages into typed records.
type Decoder struct {
	seq    *Sequence
	params *params.Params
	limits frame.Limits
	log    zerolog.Logger
}

type DecoderOption func(*Decoder)

func WithLogger(l zerolog.Logger) DecoderOption {
	return func(d *Decoder) { d.log = l }
}

func WithLimits(l frame.Limits) DecoderOption {
	return func(d *Decoder) { d.limits = l }
}

func NewDecoder(seq *Sequence, p *params.Params, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		seq:    seq,
		params: p,
		limits: frame.DefaultLimits(),
		log:    log.Logger.With().Str("component", "verbose.decoder").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode parses frame 0, updates the sequence and dispatches on the
// envelope type. An error drops only this message.
func (d *Decoder) Decode(parts frame.Multipart) (Message, error) {
	if err := frame.Check(parts, d.limits); err != nil {
		return Message{}, err
	}
	if err := parts.AtLeast(frame.MinVerboseFrames); err != nil {
		return Message{}, err
	}
	env, err := parseEnvelope(parts.Frame(frame.IndexEnvelope))
	if err != nil {
		return Message{}, err
	}

	msg := Message{Envelope: env.Envelope}
	if gap, ok := d.seq.Observe(env.MessageNum); ok {
		msg.Gap = &gap
		d.log.Warn().
			Int64("expected", gap.Expected).
			Int64("got", gap.Got).
			Msg("sequence gap")
	}

	switch env.Type {
	case protocol.MessageData:
		err = d.decodeData(env, parts, &msg)
	case protocol.MessageEvent:
		err = d.decodeEvent(env, parts, &msg)
	case protocol.MessageSpike:
		err = d.decodeSpikeMessage(env, parts, &msg)
	case protocol.MessageParam:
		err = d.applyParams(env, &msg)
	default:
		err = protocol.Protocolf("unknown message type %q", env.Type)
	}
	if err != nil {
		return Message{Envelope: env.Envelope, Gap: msg.Gap}, err
	}
	return msg, nil
}

func (d *Decoder) decodeData(env envelope, parts frame.Multipart, msg *Message) error {
	var c DataContent
	if err := decodeContent(env.content, &c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}
	if *c.ChannelNum != d.params.MonitoredChannel {
		msg.Ignored = true
		return nil
	}
	if err := parts.AtLeast(frame.PayloadFrames); err != nil {
		return err
	}
	df, err := decodeDataFrame(c, parts.Frame(frame.IndexPayload))
	if err != nil {
		return err
	}
	if df.NumSamples == 0 {
		msg.Ignored = true
		return nil
	}
	msg.Frame = &df
	return nil
}

func (d *Decoder) decodeEvent(env envelope, parts frame.Multipart, msg *Message) error {
	var c EventContent
	if err := decodeContent(env.content, &c); err != nil {
		return err
	}
	ev, err := eventFromContent(c)
	if err != nil {
		return err
	}
	size := 0
	switch {
	case c.DataSize != nil:
		size = *c.DataSize
	case env.dataSize != nil:
		size = *env.dataSize
	}
	if size > 0 {
		if err := parts.AtLeast(frame.PayloadFrames); err != nil {
			return err
		}
		payload := parts.Frame(frame.IndexPayload)
		if len(payload) != size {
			return &protocol.DecodeError{Field: "data_size", Need: size, Have: len(payload)}
		}
		if err := DecodeEventPayload(&ev, payload); err != nil {
			return err
		}
	}
	msg.Event = &ev
	return nil
}

func (d *Decoder) decodeSpikeMessage(env envelope, parts frame.Multipart, msg *Message) error {
	if err := parts.AtLeast(frame.PayloadFrames); err != nil {
		return err
	}
	sp, err := decodeSpike(env, parts.Frame(frame.IndexPayload))
	if err != nil {
		return err
	}
	msg.Spike = &sp
	return nil
}

func (d *Decoder) applyParams(env envelope, msg *Message) error {
	if err := d.params.Apply(env.Content); err != nil {
		return protocol.WrapProtocol(err, "param update rejected")
	}
	msg.Params = env.Content
	return nil
}
