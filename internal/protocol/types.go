package protocol

// MessageType is the envelope type of a verbose-encoding message.
type MessageType string

const (
	MessageData  MessageType = "data"
	MessageEvent MessageType = "event"
	MessageSpike MessageType = "spike"
	MessageParam MessageType = "param"
)

// Envelope is frame 0 of every verbose-encoding message.
type Envelope struct {
	MessageNum int64
	Type       MessageType
	Content    map[string]any
}

// DataFrame is one block of continuous samples for a single channel.
type DataFrame struct {
	ChannelNum int
	NumSamples int
	SampleRate float64
	Samples    []float32
}

// StandardHeader is the common prefix of every compact-encoding event body.
type StandardHeader struct {
	NodeID       uint8
	EventID      uint8
	EventChannel uint8
	SourceNodeID uint8
}

// DigitalEvent is a decoded TTL/timestamp/message event from either encoding.
type DigitalEvent struct {
	Type         EventType
	Stream       string
	SampleNum    int64
	SourceNode   int
	State        uint8
	Line         uint8
	Word         uint64
	HasTimestamp bool
	Timestamp    int64
	// TimestampSeconds is set by the compact encoding only.
	TimestampSeconds float64
	Data             []byte
}

// On reports whether the event line went high.
func (e DigitalEvent) On() bool {
	return e.State != 0
}

// SpikeRecord is the fixed compact spike layout plus its optional trailing buffers.
type SpikeRecord struct {
	Header              StandardHeader
	Timestamp           int64
	TimestampSoftware   int64
	NChannels           uint16
	NSamples            uint16
	SortedID            uint16
	ElectrodeID         uint16
	Channel             uint16
	ColorR              uint8
	ColorG              uint8
	ColorB              uint8
	PCProjX             float32
	PCProjY             float32
	SamplingFrequencyHz uint16
	Waveform            []byte
	Gain                []float32
	Threshold           []float32
}

// SpikeEvent wraps a SpikeRecord with the metadata of the message that carried it.
type SpikeEvent struct {
	Stream           string
	SourceNode       int
	Electrode        string
	SampleNum        int64
	TimestampSeconds float64
	Record           SpikeRecord
}

// TextMessage is a compact-encoding MESSAGE frame.
type TextMessage struct {
	TimestampSeconds float64
	Text             string
}
