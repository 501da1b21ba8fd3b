package compact

const (
	TagTTL     byte = 3
	TagSpike   byte = 4
	TagMessage byte = 5

	lenTag       int = 1
	lenTimestamp int = 8

	// Standard header
	lenNodeID       int = 1
	lenEventID      int = 1
	lenHeaderPad    int = 1
	lenEventChannel int = 1

	// TTL
	lenTTLWord int = 8

	// Spike
	lenSpikeTimestamp         int = 8
	lenSpikeTimestampSoftware int = 8
	lenSpikePad               int = 2
	lenNChannels              int = 2
	lenNSamples               int = 2
	lenSortedID               int = 2
	lenElectrodeID            int = 2
	lenChannel                int = 2
	lenColor                  int = 3
	lenColorPad               int = 1
	lenPCProj                 int = 4
	lenSamplingFrequency      int = 2
	lenSample                 int = 4

	// Calculated
	StandardHeaderLen int = lenNodeID +
		lenEventID +
		lenHeaderPad +
		lenEventChannel
	TTLBodyLen int = StandardHeaderLen +
		lenTTLWord
	SpikePrefixLen int = StandardHeaderLen +
		lenSpikeTimestamp +
		lenSpikeTimestampSoftware +
		lenSpikePad +
		lenNChannels +
		lenNSamples +
		lenSortedID +
		lenElectrodeID +
		lenChannel +
		lenColor +
		lenColorPad +
		2*lenPCProj +
		lenSamplingFrequency
)

// spikeTrailerLen is the waveform + gain + threshold length for a spike prefix.
func spikeTrailerLen(nChannels, nSamples uint16) int {
	ch := int(nChannels)
	return ch*int(nSamples)*lenSample + 2*ch*lenSample
}

// TagName labels a type tag for logs and metrics.
func TagName(tag byte) string {
	switch tag {
	case TagTTL:
		return "TTL"
	case TagSpike:
		return "SPIKE"
	case TagMessage:
		return "MESSAGE"
	default:
		return "unknown"
	}
}
