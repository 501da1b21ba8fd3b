package verbose

import (
	"github.com/danmuck/oestream/internal/protocol"
)

const (
	lenEventLine  = 1
	lenEventState = 1
	lenEventWord  = 8
	lenTimestamp  = 8

	TTLPayloadLen       = lenEventLine + lenEventState + lenEventWord
	TimestampPayloadLen = lenTimestamp
)

// EventContent is the envelope content of an event message.
type EventContent struct {
	Type       *int   `json:"type"`
	Stream     string `json:"stream"`
	SampleNum  int64  `json:"sample_num"`
	SourceNode int    `json:"source_node"`
	EventState uint8  `json:"event_state"`
	EventLine  uint8  `json:"event_line"`
	EventWord  uint64 `json:"event_word"`
	DataSize   *int   `json:"data_size"`
}

func eventFromContent(c EventContent) (protocol.DigitalEvent, error) {
	if c.Type == nil {
		return protocol.DigitalEvent{}, protocol.Decodef("type", "missing event type")
	}
	t, err := protocol.ParseEventType(*c.Type)
	if err != nil {
		return protocol.DigitalEvent{}, err
	}
	return protocol.DigitalEvent{
		Type:       t,
		Stream:     c.Stream,
		SampleNum:  c.SampleNum,
		SourceNode: c.SourceNode,
		State:      c.EventState,
		Line:       c.EventLine,
		Word:       c.EventWord,
	}, nil
}

// DecodeEventPayload fills ev from the raw event frame. TTL payloads are
// line u8 | state u8 | word u64; TIMESTAMP payloads are one i64; other
// types keep the bytes uninterpreted.
func DecodeEventPayload(ev *protocol.DigitalEvent, payload []byte) error {
	r := protocol.NewReader(payload)
	switch ev.Type {
	case protocol.EventTTL:
		line := r.Uint8("event_line")
		state := r.Uint8("event_state")
		word := r.Uint64("event_word")
		if err := r.Done(); err != nil {
			return err
		}
		ev.Line, ev.State, ev.Word = line, state, word
	case protocol.EventTimestamp:
		ts := r.Int64("timestamp")
		if err := r.Done(); err != nil {
			return err
		}
		ev.Timestamp, ev.HasTimestamp = ts, true
	default:
		ev.Data = r.Bytes(r.Remaining(), "data")
	}
	if ev.Data == nil {
		ev.Data = append([]byte(nil), payload...)
	}
	return nil
}

// EncodeTTLPayload is the inverse of the TTL branch of DecodeEventPayload.
func EncodeTTLPayload(line, state uint8, word uint64) []byte {
	return protocol.NewWriter(TTLPayloadLen).Uint8(line).Uint8(state).Uint64(word).Bytes()
}
