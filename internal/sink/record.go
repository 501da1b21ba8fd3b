package sink

import (
	"time"

	"github.com/danmuck/oestream/internal/protocol"
)

type Kind string

const (
	KindData    Kind = "data"
	KindEvent   Kind = "event"
	KindSpike   Kind = "spike"
	KindMessage Kind = "message"
)

// Record is one delivered sink call, as stored by the Recorder and sent
// over the feed.
type Record struct {
	Kind       Kind                   `json:"kind" msgpack:"kind"`
	At         time.Time              `json:"at" msgpack:"at"`
	Samples    []float32              `json:"samples,omitempty" msgpack:"samples,omitempty"`
	SampleRate float64                `json:"sample_rate,omitempty" msgpack:"sample_rate,omitempty"`
	Event      *protocol.DigitalEvent `json:"event,omitempty" msgpack:"event,omitempty"`
	Spike      *protocol.SpikeEvent   `json:"spike,omitempty" msgpack:"spike,omitempty"`
	Message    *protocol.TextMessage  `json:"message,omitempty" msgpack:"message,omitempty"`
}

// Apply replays the record into s.
func (r Record) Apply(s Sink) bool {
	switch {
	case r.Kind == KindData:
		s.UpdatePlot(r.Samples, r.SampleRate)
	case r.Kind == KindEvent && r.Event != nil:
		s.OnEvent(*r.Event)
	case r.Kind == KindSpike && r.Spike != nil:
		s.OnSpike(*r.Spike)
	case r.Kind == KindMessage && r.Message != nil:
		s.OnMessage(*r.Message)
	default:
		return false
	}
	return true
}

// recordAdapter turns sink calls into Records for emit.
type recordAdapter struct {
	now  func() time.Time
	emit func(Record)
}

func (a recordAdapter) UpdatePlot(samples []float32, sampleRate float64) {
	a.emit(Record{Kind: KindData, At: a.now(), Samples: samples, SampleRate: sampleRate})
}

func (a recordAdapter) OnEvent(ev protocol.DigitalEvent) {
	a.emit(Record{Kind: KindEvent, At: a.now(), Event: &ev})
}

func (a recordAdapter) OnSpike(sp protocol.SpikeEvent) {
	a.emit(Record{Kind: KindSpike, At: a.now(), Spike: &sp})
}

func (a recordAdapter) OnMessage(msg protocol.TextMessage) {
	a.emit(Record{Kind: KindMessage, At: a.now(), Message: &msg})
}
