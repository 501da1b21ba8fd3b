package verbose

import (
	"math"

	"github.com/danmuck/oestream/internal/protocol"
)

const sampleLen = 4

// DataContent is the envelope content of a data message.
type DataContent struct {
	ChannelNum *int     `json:"channel_num"`
	NumSamples *int     `json:"num_samples"`
	SampleRate *float64 `json:"sample_rate"`
}

func (c DataContent) validate() error {
	if c.ChannelNum == nil {
		return protocol.Decodef("channel_num", "missing")
	}
	if c.NumSamples == nil {
		return protocol.Decodef("num_samples", "missing")
	}
	if *c.NumSamples < 0 {
		return protocol.Decodef("num_samples", "negative count %d", *c.NumSamples)
	}
	if c.SampleRate == nil {
		return protocol.Decodef("sample_rate", "missing")
	}
	return nil
}

// DecodeSamples interprets b as exactly n little-endian float32 samples.
func DecodeSamples(b []byte, n int) ([]float32, error) {
	if n < 0 || len(b)%sampleLen != 0 || len(b)/sampleLen != n {
		need := math.MaxInt
		if n >= 0 && n <= math.MaxInt/sampleLen {
			need = n * sampleLen
		}
		return nil, &protocol.DecodeError{Field: "samples", Need: need, Have: len(b)}
	}
	r := protocol.NewReader(b)
	out := r.Float32s(n, "samples")
	if err := r.Done(); err != nil {
		return nil, err
	}
	return out, nil
}

func EncodeSamples(samples []float32) []byte {
	return protocol.NewWriter(len(samples) * sampleLen).Float32s(samples).Bytes()
}

func decodeDataFrame(c DataContent, payload []byte) (protocol.DataFrame, error) {
	samples, err := DecodeSamples(payload, *c.NumSamples)
	if err != nil {
		return protocol.DataFrame{}, err
	}
	return protocol.DataFrame{
		ChannelNum: *c.ChannelNum,
		NumSamples: *c.NumSamples,
		SampleRate: *c.SampleRate,
		Samples:    samples,
	}, nil
}
