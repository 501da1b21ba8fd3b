package compact

import (
	"github.com/danmuck/oestream/internal/protocol"
)

// DecodeTTL consumes exactly one little-endian 8-byte TTL word.
func DecodeTTL(b []byte) (uint64, error) {
	r := protocol.NewReader(b)
	word := r.Uint64("ttl_word")
	if err := r.Done(); err != nil {
		return 0, err
	}
	return word, nil
}

// DecodeTTLBody decodes header + word and derives the digital event.
func DecodeTTLBody(b []byte, seconds float64) (protocol.DigitalEvent, error) {
	if len(b) < StandardHeaderLen {
		return protocol.DigitalEvent{}, &protocol.DecodeError{
			Field: "standard_header", Need: StandardHeaderLen, Have: len(b),
		}
	}
	h, err := DecodeStandardHeader(b[:StandardHeaderLen])
	if err != nil {
		return protocol.DigitalEvent{}, err
	}
	word, err := DecodeTTL(b[StandardHeaderLen:])
	if err != nil {
		return protocol.DigitalEvent{}, err
	}
	return DigitalFromTTL(h, word, seconds), nil
}

// DigitalFromTTL maps the header fields onto line (event_channel+1) and
// on/off state (low bit of event_id).
func DigitalFromTTL(h protocol.StandardHeader, word uint64, seconds float64) protocol.DigitalEvent {
	return protocol.DigitalEvent{
		Type:             protocol.EventTTL,
		SourceNode:       int(h.SourceNodeID),
		Line:             h.EventChannel + 1,
		State:            h.EventID & 1,
		Word:             word,
		TimestampSeconds: seconds,
	}
}

func EncodeTTLBody(h protocol.StandardHeader, word uint64) []byte {
	w := protocol.NewWriter(TTLBodyLen)
	return appendStandardHeader(w, h).Uint64(word).Bytes()
}
