package protocol

import "fmt"

// EventType is the numeric event code shared by both encodings.
type EventType uint8

const (
	EventTimestamp       EventType = 0
	EventBufferSize      EventType = 1
	EventParameterChange EventType = 2
	EventTTL             EventType = 3
	EventSpike           EventType = 4
	EventMessage         EventType = 5
	EventBinaryMessage   EventType = 6
)

var eventTypeNames = map[EventType]string{
	EventTimestamp:       "TIMESTAMP",
	EventBufferSize:      "BUFFER_SIZE",
	EventParameterChange: "PARAMETER_CHANGE",
	EventTTL:             "TTL",
	EventSpike:           "SPIKE",
	EventMessage:         "MESSAGE",
	EventBinaryMessage:   "BINARY_MSG",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EventType(%d)", uint8(t))
}

func (t EventType) Valid() bool {
	_, ok := eventTypeNames[t]
	return ok
}

// ParseEventType maps a wire code to an EventType.
func ParseEventType(code int) (EventType, error) {
	if code < 0 || code > 255 || !EventType(code).Valid() {
		return 0, Decodef("type", "unknown event type %d", code)
	}
	return EventType(code), nil
}
