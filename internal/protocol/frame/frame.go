package frame

import (
	"github.com/danmuck/oestream/internal/protocol"
)

const (
	// MinVerboseFrames is envelope + reserved frame.
	MinVerboseFrames = 2
	// PayloadFrames is envelope + reserved + payload.
	PayloadFrames = 3
	// CompactFrames is tag + timestamp + body.
	CompactFrames = 3

	IndexEnvelope  = 0
	IndexPayload   = 2
	IndexTag       = 0
	IndexTimestamp = 1
	IndexBody      = 2
)

// Limits constrains frame memory use.
type Limits struct {
	MaxFrames     int
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxFrames:     8,
		MaxFrameBytes: 8 * 1024 * 1024,
	}
}

// Multipart is one complete message as received from a channel.
type Multipart [][]byte

// AtLeast fails with a FramingError if fewer than n frames are present.
func (m Multipart) AtLeast(n int) error {
	if len(m) < n {
		return protocol.Framingf(len(m), n, "got %d frames, want at least %d", len(m), n)
	}
	return nil
}

// Exactly fails with a FramingError unless exactly n frames are present.
func (m Multipart) Exactly(n int) error {
	if len(m) != n {
		return protocol.Framingf(len(m), n, "got %d frames, want exactly %d", len(m), n)
	}
	return nil
}

// Frame returns frame i or nil when absent.
func (m Multipart) Frame(i int) []byte {
	if i < 0 || i >= len(m) {
		return nil
	}
	return m[i]
}

// Check enforces limits on an inbound message.
func Check(m Multipart, limits Limits) error {
	if limits.MaxFrames > 0 && len(m) > limits.MaxFrames {
		return protocol.Framingf(len(m), limits.MaxFrames, "too many frames: %d > %d", len(m), limits.MaxFrames)
	}
	if limits.MaxFrameBytes <= 0 {
		return nil
	}
	for i, part := range m {
		if len(part) > limits.MaxFrameBytes {
			return protocol.Framingf(len(m), len(m), "frame %d too large: %d bytes", i, len(part))
		}
	}
	return nil
}

// Total returns the byte length of all frames.
func (m Multipart) Total() int {
	n := 0
	for _, part := range m {
		n += len(part)
	}
	return n
}
