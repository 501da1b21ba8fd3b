// Package sink holds the consumers decoded records are delivered to: the
// Sink interface the stream and listener loops call, plus adapters for
// logging, recording to disk and a websocket feed.
package sink

import (
	"github.com/danmuck/oestream/internal/protocol"
)

// Sink receives decoded records. Methods are called from the decoding loop
// and must not block it.
type Sink interface {
	UpdatePlot(samples []float32, sampleRate float64)
	OnEvent(ev protocol.DigitalEvent)
	OnSpike(sp protocol.SpikeEvent)
	OnMessage(msg protocol.TextMessage)
}

type Nop struct{}

func (Nop) UpdatePlot([]float32, float64)  {}
func (Nop) OnEvent(protocol.DigitalEvent)  {}
func (Nop) OnSpike(protocol.SpikeEvent)    {}
func (Nop) OnMessage(protocol.TextMessage) {}

// Funcs adapts optional callbacks to a Sink; nil fields are skipped.
type Funcs struct {
	Plot    func(samples []float32, sampleRate float64)
	Event   func(protocol.DigitalEvent)
	Spike   func(protocol.SpikeEvent)
	Message func(protocol.TextMessage)
}

func (f Funcs) UpdatePlot(samples []float32, sampleRate float64) {
	if f.Plot != nil {
		f.Plot(samples, sampleRate)
	}
}

func (f Funcs) OnEvent(ev protocol.DigitalEvent) {
	if f.Event != nil {
		f.Event(ev)
	}
}

func (f Funcs) OnSpike(sp protocol.SpikeEvent) {
	if f.Spike != nil {
		f.Spike(sp)
	}
}

func (f Funcs) OnMessage(msg protocol.TextMessage) {
	if f.Message != nil {
		f.Message(msg)
	}
}

// Multi delivers every record to each sink in order.
type Multi []Sink

func NewMulti(sinks ...Sink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m Multi) UpdatePlot(samples []float32, sampleRate float64) {
	for _, s := range m {
		s.UpdatePlot(samples, sampleRate)
	}
}

func (m Multi) OnEvent(ev protocol.DigitalEvent) {
	for _, s := range m {
		s.OnEvent(ev)
	}
}

func (m Multi) OnSpike(sp protocol.SpikeEvent) {
	for _, s := range m {
		s.OnSpike(sp)
	}
}

func (m Multi) OnMessage(msg protocol.TextMessage) {
	for _, s := range m {
		s.OnMessage(msg)
	}
}
