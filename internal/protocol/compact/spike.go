package compact

import (
	"github.com/danmuck/oestream/internal/protocol"
)

// DecodeSpike decodes the fixed SpikePrefixLen prefix and, when present, the
// exact waveform/gain/threshold trailer it declares.
func DecodeSpike(b []byte) (protocol.SpikeRecord, error) {
	r := protocol.NewReader(b)
	var s protocol.SpikeRecord
	s.Header = readStandardHeader(r)
	s.Timestamp = r.Int64("timestamp")
	s.TimestampSoftware = r.Int64("timestamp_software")
	r.Skip(lenSpikePad, "spike_pad")
	s.NChannels = r.Uint16("n_channels")
	s.NSamples = r.Uint16("n_samples")
	s.SortedID = r.Uint16("sorted_id")
	s.ElectrodeID = r.Uint16("electrode_id")
	s.Channel = r.Uint16("channel")
	s.ColorR = r.Uint8("color_r")
	s.ColorG = r.Uint8("color_g")
	s.ColorB = r.Uint8("color_b")
	r.Skip(lenColorPad, "color_pad")
	s.PCProjX = r.Float32("pc_proj_x")
	s.PCProjY = r.Float32("pc_proj_y")
	s.SamplingFrequencyHz = r.Uint16("sampling_frequency_hz")
	if err := r.Err(); err != nil {
		return protocol.SpikeRecord{}, err
	}

	if r.Remaining() > 0 {
		want := spikeTrailerLen(s.NChannels, s.NSamples)
		if r.Remaining() != want {
			return protocol.SpikeRecord{}, &protocol.DecodeError{
				Field: "waveform", Offset: r.Offset(), Need: want, Have: r.Remaining(),
			}
		}
		ch := int(s.NChannels)
		s.Waveform = r.Bytes(ch*int(s.NSamples)*lenSample, "waveform")
		s.Gain = r.Float32s(ch, "gain")
		s.Threshold = r.Float32s(ch, "threshold")
	}
	if err := r.Done(); err != nil {
		return protocol.SpikeRecord{}, err
	}
	return s, nil
}

// EncodeSpike writes the prefix and, when Waveform is set, the trailer.
func EncodeSpike(s protocol.SpikeRecord) []byte {
	w := protocol.NewWriter(SpikePrefixLen + len(s.Waveform) + 8*len(s.Gain))
	appendStandardHeader(w, s.Header).
		Int64(s.Timestamp).
		Int64(s.TimestampSoftware).
		Pad(lenSpikePad).
		Uint16(s.NChannels).
		Uint16(s.NSamples).
		Uint16(s.SortedID).
		Uint16(s.ElectrodeID).
		Uint16(s.Channel).
		Uint8(s.ColorR).
		Uint8(s.ColorG).
		Uint8(s.ColorB).
		Pad(lenColorPad).
		Float32(s.PCProjX).
		Float32(s.PCProjY).
		Uint16(s.SamplingFrequencyHz)
	if len(s.Waveform) > 0 {
		w.Raw(s.Waveform).Float32s(s.Gain).Float32s(s.Threshold)
	}
	return w.Bytes()
}
