package compact

import (
	"github.com/danmuck/oestream/internal/protocol"
)

// DecodeStandardHeader consumes exactly StandardHeaderLen bytes.
func DecodeStandardHeader(b []byte) (protocol.StandardHeader, error) {
	r := protocol.NewReader(b)
	h := readStandardHeader(r)
	if err := r.Done(); err != nil {
		return protocol.StandardHeader{}, err
	}
	return h, nil
}

func readStandardHeader(r *protocol.Reader) protocol.StandardHeader {
	var h protocol.StandardHeader
	h.NodeID = r.Uint8("node_id")
	h.EventID = r.Uint8("event_id")
	r.Skip(lenHeaderPad, "header_pad")
	h.EventChannel = r.Uint8("event_channel")
	// The compact header carries a single node byte.
	h.SourceNodeID = h.NodeID
	return h
}

func EncodeStandardHeader(h protocol.StandardHeader) []byte {
	return appendStandardHeader(protocol.NewWriter(StandardHeaderLen), h).Bytes()
}

func appendStandardHeader(w *protocol.Writer, h protocol.StandardHeader) *protocol.Writer {
	return w.Uint8(h.NodeID).Uint8(h.EventID).Pad(lenHeaderPad).Uint8(h.EventChannel)
}
