package verbose

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/oestream/internal/protocol"
)

const (
	RequestTypeHeartbeat = "heartbeat"
	RequestTypeEvent     = "event"

	maxRequestBytes = 64 * 1024
)

var (
	ErrInvalidRequest  = errors.New("verbose: invalid request")
	ErrRequestTooLarge = errors.New("verbose: request too large")
)

// EventSpec describes one synthetic event to inject into the server.
type EventSpec struct {
	Type         protocol.EventType `json:"event_type"`
	SampleNum    int64              `json:"sample_num"`
	EventID      int                `json:"event_id"`
	EventChannel int                `json:"event_channel"`
}

// RequestEvent is the wire shape of the event field of an event request.
type RequestEvent struct {
	Type         int   `json:"type"`
	SampleNum    int64 `json:"sample_num"`
	EventID      int   `json:"event_id"`
	EventChannel int   `json:"event_channel"`
}

// Request is the single-frame envelope sent on the event channel.
type Request struct {
	Application string        `json:"application"`
	UUID        string        `json:"uuid"`
	Type        string        `json:"type"`
	Event       *RequestEvent `json:"event,omitempty"`
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Application) == "" {
		return fmt.Errorf("%w: missing application", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.UUID) == "" {
		return fmt.Errorf("%w: missing uuid", ErrInvalidRequest)
	}
	switch r.Type {
	case RequestTypeHeartbeat:
		if r.Event != nil {
			return fmt.Errorf("%w: heartbeat carries an event", ErrInvalidRequest)
		}
	case RequestTypeEvent:
		if r.Event == nil {
			return fmt.Errorf("%w: missing event", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRequest, r.Type)
	}
	return nil
}

func NewHeartbeat(application, uuid string) Request {
	return Request{Application: application, UUID: uuid, Type: RequestTypeHeartbeat}
}

// NewEventRequest maps the caller's event id onto the server's 1/2 on/off id.
func NewEventRequest(application, uuid string, spec EventSpec) Request {
	return Request{
		Application: application,
		UUID:        uuid,
		Type:        RequestTypeEvent,
		Event: &RequestEvent{
			Type:         int(spec.Type),
			SampleNum:    spec.SampleNum,
			EventID:      wireEventID(spec.EventID),
			EventChannel: spec.EventChannel,
		},
	}
}

func wireEventID(id int) int {
	return (id%2+2)%2 + 1
}

func EncodeRequest(r Request) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

func DecodeRequest(b []byte) (Request, error) {
	if len(b) > maxRequestBytes {
		return Request{}, ErrRequestTooLarge
	}
	var r Request
	if err := json.Unmarshal(b, &r); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}
