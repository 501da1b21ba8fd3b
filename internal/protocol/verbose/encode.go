package verbose

import (
	"github.com/danmuck/oestream/internal/protocol"
	"github.com/danmuck/oestream/internal/protocol/compact"
	"github.com/danmuck/oestream/internal/protocol/frame"
)

func encodeMessage(messageNum int64, t protocol.MessageType, content map[string]any, payload []byte) (frame.Multipart, error) {
	env, err := EncodeEnvelope(protocol.Envelope{MessageNum: messageNum, Type: t, Content: content})
	if err != nil {
		return nil, err
	}
	parts := frame.Multipart{env, {}}
	if payload != nil {
		parts = append(parts, payload)
	}
	return parts, nil
}

// EncodeData builds the three frames of a data message.
func EncodeData(messageNum int64, channel int, sampleRate float64, samples []float32) (frame.Multipart, error) {
	return encodeMessage(messageNum, protocol.MessageData, map[string]any{
		"channel_num": channel,
		"num_samples": len(samples),
		"sample_rate": sampleRate,
	}, EncodeSamples(samples))
}

// EncodeEvent builds an event message; payload may be nil.
func EncodeEvent(messageNum int64, ev protocol.DigitalEvent, payload []byte) (frame.Multipart, error) {
	return encodeMessage(messageNum, protocol.MessageEvent, map[string]any{
		"type":        int(ev.Type),
		"stream":      ev.Stream,
		"sample_num":  ev.SampleNum,
		"source_node": ev.SourceNode,
		"event_state": ev.State,
		"event_line":  ev.Line,
		"event_word":  ev.Word,
		"data_size":   len(payload),
	}, payload)
}

// EncodeSpike builds a spike message carrying the compact spike layout.
func EncodeSpike(messageNum int64, meta SpikeContent, rec protocol.SpikeRecord) (frame.Multipart, error) {
	return encodeMessage(messageNum, protocol.MessageSpike, map[string]any{
		"stream":      meta.Stream,
		"source_node": meta.SourceNode,
		"electrode":   string(meta.Electrode),
		"sample_num":  meta.SampleNum,
	}, compact.EncodeSpike(rec))
}

// EncodeParam builds a two-frame param message.
func EncodeParam(messageNum int64, update map[string]any) (frame.Multipart, error) {
	return encodeMessage(messageNum, protocol.MessageParam, update, nil)
}

// EncodeRaw builds a message with an arbitrary type string.
func EncodeRaw(messageNum int64, t string, content map[string]any) (frame.Multipart, error) {
	return encodeMessage(messageNum, protocol.MessageType(t), content, nil)
}
