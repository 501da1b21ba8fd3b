package verbose

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/danmuck/oestream/internal/protocol"
)

type wireEnvelope struct {
	MessageNum *int64          `json:"message_num"`
	Type       string          `json:"type"`
	Content    json.RawMessage `json:"content,omitempty"`
	DataSize   *int            `json:"data_size,omitempty"`
	Spike      json.RawMessage `json:"spike,omitempty"`
}

type envelope struct {
	protocol.Envelope
	content  json.RawMessage
	spike    json.RawMessage
	dataSize *int
}

// parseEnvelope decodes frame 0 of a verbose message.
func parseEnvelope(b []byte) (envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(b, &w); err != nil {
		return envelope{}, protocol.Decodef("envelope", "%v", err)
	}
	if w.MessageNum == nil {
		return envelope{}, protocol.Decodef("message_num", "missing")
	}
	if strings.TrimSpace(w.Type) == "" {
		return envelope{}, protocol.Decodef("type", "missing")
	}

	content := map[string]any{}
	if len(w.Content) > 0 && !bytes.Equal(bytes.TrimSpace(w.Content), []byte("null")) {
		if err := json.Unmarshal(w.Content, &content); err != nil {
			return envelope{}, protocol.Decodef("content", "%v", err)
		}
	}
	return envelope{
		Envelope: protocol.Envelope{
			MessageNum: *w.MessageNum,
			Type:       protocol.MessageType(w.Type),
			Content:    content,
		},
		content:  w.Content,
		spike:    w.Spike,
		dataSize: w.DataSize,
	}, nil
}

// decodeContent unmarshals raw content into a typed struct.
func decodeContent(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return protocol.Decodef("content", "missing")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return protocol.Decodef("content", "%v", err)
	}
	return nil
}

// EncodeEnvelope writes frame 0 of a verbose message.
func EncodeEnvelope(env protocol.Envelope) ([]byte, error) {
	w := struct {
		MessageNum int64          `json:"message_num"`
		Type       string         `json:"type"`
		Content    map[string]any `json:"content"`
	}{
		MessageNum: env.MessageNum,
		Type:       string(env.Type),
		Content:    env.Content,
	}
	if w.Content == nil {
		w.Content = map[string]any{}
	}
	return json.Marshal(w)
}
