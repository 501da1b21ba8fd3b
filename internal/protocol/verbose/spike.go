package verbose

import (
	"bytes"
	"encoding/json"

	"github.com/danmuck/oestream/internal/protocol"
	"github.com/danmuck/oestream/internal/protocol/compact"
)

// SpikeContent is the metadata sent alongside a spike payload.
type SpikeContent struct {
	Stream     string `json:"stream"`
	SourceNode int    `json:"source_node"`
	Electrode  label  `json:"electrode"`
	SampleNum  int64  `json:"sample_num"`
}

func decodeSpike(env envelope, payload []byte) (protocol.SpikeEvent, error) {
	var meta SpikeContent
	raw := env.content
	if len(env.spike) > 0 {
		raw = env.spike
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return protocol.SpikeEvent{}, protocol.Decodef("spike", "%v", err)
		}
	}
	rec, err := compact.DecodeSpike(payload)
	if err != nil {
		return protocol.SpikeEvent{}, err
	}
	return protocol.SpikeEvent{
		Stream:     meta.Stream,
		SourceNode: meta.SourceNode,
		Electrode:  string(meta.Electrode),
		SampleNum:  meta.SampleNum,
		Record:     rec,
	}, nil
}

// label accepts either a JSON string or a bare number.
type label string

func (l *label) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = label(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*l = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*l = label(n.String())
	return nil
}
