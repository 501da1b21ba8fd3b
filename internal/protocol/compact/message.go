package compact

import (
	"unicode/utf8"

	"github.com/danmuck/oestream/internal/protocol"
	"github.com/danmuck/oestream/internal/protocol/frame"
)

// Message is one decoded compact-encoding message. Exactly one of Event,
// Spike or Text is set.
type Message struct {
	Tag     byte
	Seconds float64
	Event   *protocol.DigitalEvent
	Spike   *protocol.SpikeEvent
	Text    *protocol.TextMessage
}

// Decode demultiplexes a three-frame compact message.
func Decode(parts frame.Multipart) (Message, error) {
	if err := parts.Exactly(frame.CompactFrames); err != nil {
		return Message{}, err
	}
	tag, err := decodeTag(parts.Frame(frame.IndexTag))
	if err != nil {
		return Message{}, err
	}
	seconds, err := DecodeTimestamp(parts.Frame(frame.IndexTimestamp))
	if err != nil {
		return Message{}, err
	}
	body := parts.Frame(frame.IndexBody)

	msg := Message{Tag: tag, Seconds: seconds}
	switch tag {
	case TagTTL:
		ev, err := DecodeTTLBody(body, seconds)
		if err != nil {
			return Message{}, err
		}
		msg.Event = &ev
	case TagSpike:
		rec, err := DecodeSpike(body)
		if err != nil {
			return Message{}, err
		}
		msg.Spike = &protocol.SpikeEvent{
			SourceNode:       int(rec.Header.SourceNodeID),
			SampleNum:        rec.Timestamp,
			TimestampSeconds: seconds,
			Record:           rec,
		}
	case TagMessage:
		if !utf8.Valid(body) {
			return Message{}, protocol.Decodef("message", "body is not valid UTF-8")
		}
		msg.Text = &protocol.TextMessage{TimestampSeconds: seconds, Text: string(body)}
	default:
		return Message{}, protocol.Protocolf("unknown compact type tag %d", tag)
	}
	return msg, nil
}

func decodeTag(b []byte) (byte, error) {
	r := protocol.NewReader(b)
	tag := r.Uint8("type_tag")
	if err := r.Done(); err != nil {
		return 0, err
	}
	return tag, nil
}

// DecodeTimestamp consumes exactly one little-endian float64.
func DecodeTimestamp(b []byte) (float64, error) {
	r := protocol.NewReader(b)
	v := r.Float64("timestamp")
	if err := r.Done(); err != nil {
		return 0, err
	}
	return v, nil
}

// Encode builds the three frames for a tag, timestamp and body.
func Encode(tag byte, seconds float64, body []byte) frame.Multipart {
	return frame.Multipart{
		{tag},
		protocol.NewWriter(lenTimestamp).Float64(seconds).Bytes(),
		body,
	}
}
