package session

import (
	"errors"
	"fmt"

	"github.com/danmuck/oestream/internal/observability"
	"github.com/danmuck/oestream/internal/protocol"
	"github.com/danmuck/oestream/internal/protocol/verbose"
)

var ErrRequestOutstanding = errors.New("session: request outstanding")

// SendResult reports what happened to one request. Sent is false when the
// gate refused it or the channel failed; Err says which.
type SendResult struct {
	Kind string
	Sent bool
	Err  error
}

// SendEvent injects one synthetic event. A second call before the reply
// arrives is refused with ErrRequestOutstanding.
func (s *Session) SendEvent(spec verbose.EventSpec) SendResult {
	res := s.send(RequestEvent, verbose.NewEventRequest(s.params.Application, s.uuid, spec))
	if res.Sent {
		s.eventNo++
	}
	return res
}

// SendEvents evaluates each spec independently and reports every outcome;
// once the gate closes the remaining items come back not sent.
func (s *Session) SendEvents(specs []verbose.EventSpec) []SendResult {
	out := make([]SendResult, 0, len(specs))
	for _, spec := range specs {
		out = append(out, s.SendEvent(spec))
	}
	return out
}

func (s *Session) SendHeartbeat() SendResult {
	return s.send(RequestHeartbeat, verbose.NewHeartbeat(s.params.Application, s.uuid))
}

func (s *Session) send(kind string, req verbose.Request) SendResult {
	res := SendResult{Kind: kind}
	if err := s.Connect(); err != nil {
		res.Err = err
		return s.recordSend(res)
	}
	if s.state.Outstanding {
		res.Err = ErrRequestOutstanding
		s.log.Debug().Str("kind", kind).Str("pending", s.state.Pending.Kind).Msg("request refused, reply outstanding")
		return s.recordSend(res)
	}
	payload, err := verbose.EncodeRequest(req)
	if err != nil {
		res.Err = err
		return s.recordSend(res)
	}
	if err := s.req.Send(payload); err != nil {
		res.Err = fmt.Errorf("%w: send %s: %v", protocol.ErrConnectionLost, kind, err)
		return s.recordSend(res)
	}
	s.state.track(kind, s.now())
	res.Sent = true
	s.log.Debug().Str("kind", kind).RawJSON("request", payload).Msg("request sent")
	return s.recordSend(res)
}

func (s *Session) recordSend(res SendResult) SendResult {
	result := "sent"
	switch {
	case errors.Is(res.Err, ErrRequestOutstanding):
		result = "refused"
	case res.Err != nil:
		result = "failed"
	}
	observability.RecordRequest(res.Kind, result)
	return res
}
