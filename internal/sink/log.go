package sink

import (
	"github.com/rs/zerolog"

	"github.com/danmuck/oestream/internal/protocol"
)

// Log writes a line per record; data frames go to debug.
type Log struct {
	Logger zerolog.Logger
}

func NewLog(l zerolog.Logger) Log {
	return Log{Logger: l.With().Str("component", "sink.log").Logger()}
}

func (l Log) UpdatePlot(samples []float32, sampleRate float64) {
	l.Logger.Debug().Int("samples", len(samples)).Float64("sample_rate", sampleRate).Msg("data")
}

func (l Log) OnEvent(ev protocol.DigitalEvent) {
	e := l.Logger.Info().
		Stringer("type", ev.Type).
		Str("stream", ev.Stream).
		Int64("sample_num", ev.SampleNum).
		Uint8("line", ev.Line).
		Bool("on", ev.On()).
		Uint64("word", ev.Word)
	if ev.HasTimestamp {
		e = e.Int64("timestamp", ev.Timestamp)
	}
	if ev.TimestampSeconds != 0 {
		e = e.Float64("seconds", ev.TimestampSeconds)
	}
	e.Msg("event")
}

func (l Log) OnSpike(sp protocol.SpikeEvent) {
	l.Logger.Info().
		Str("stream", sp.Stream).
		Str("electrode", sp.Electrode).
		Int64("sample_num", sp.SampleNum).
		Uint16("electrode_id", sp.Record.ElectrodeID).
		Uint16("sorted_id", sp.Record.SortedID).
		Uint16("channels", sp.Record.NChannels).
		Uint16("samples", sp.Record.NSamples).
		Msg("spike")
}

func (l Log) OnMessage(msg protocol.TextMessage) {
	l.Logger.Info().Float64("seconds", msg.TimestampSeconds).Str("text", msg.Text).Msg("message")
}
