package sink

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/oestream/internal/protocol"
	"github.com/danmuck/oestream/internal/testutil/testlog"
)

type collector struct {
	plots    [][]float32
	events   []protocol.DigitalEvent
	spikes   []protocol.SpikeEvent
	messages []protocol.TextMessage
}

func (c *collector) UpdatePlot(samples []float32, _ float64) { c.plots = append(c.plots, samples) }
func (c *collector) OnEvent(ev protocol.DigitalEvent)        { c.events = append(c.events, ev) }
func (c *collector) OnSpike(sp protocol.SpikeEvent)          { c.spikes = append(c.spikes, sp) }
func (c *collector) OnMessage(msg protocol.TextMessage)      { c.messages = append(c.messages, msg) }

func fixedClock() func() time.Time {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestMultiFansOutAndSkipsNil(t *testing.T) {
	testlog.Start(t)
	a, b := &collector{}, &collector{}
	m := NewMulti(a, nil, b)
	require.Len(t, m, 2)

	m.UpdatePlot([]float32{1}, 1000)
	m.OnEvent(protocol.DigitalEvent{Line: 2})
	m.OnSpike(protocol.SpikeEvent{Electrode: "e"})
	m.OnMessage(protocol.TextMessage{Text: "hi"})

	for _, c := range []*collector{a, b} {
		assert.Len(t, c.plots, 1)
		assert.Len(t, c.events, 1)
		assert.Len(t, c.spikes, 1)
		assert.Len(t, c.messages, 1)
	}
}

func TestFuncsSkipsNilCallbacks(t *testing.T) {
	testlog.Start(t)
	var got []uint8
	f := Funcs{Event: func(ev protocol.DigitalEvent) { got = append(got, ev.Line) }}
	f.UpdatePlot(nil, 0)
	f.OnSpike(protocol.SpikeEvent{})
	f.OnMessage(protocol.TextMessage{})
	f.OnEvent(protocol.DigitalEvent{Line: 7})
	assert.Equal(t, []uint8{7}, got)
}

func TestLogSinkWritesEvents(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	s := NewLog(zerolog.New(&buf).Level(zerolog.InfoLevel))
	s.UpdatePlot([]float32{1, 2}, 30000)
	s.OnEvent(protocol.DigitalEvent{Type: protocol.EventTTL, Line: 1, State: 1})
	s.OnMessage(protocol.TextMessage{Text: "hello"})

	out := buf.String()
	assert.NotContains(t, out, `"message":"data"`)
	assert.Contains(t, out, `"type":"TTL"`)
	assert.Contains(t, out, `"on":true`)
	assert.Contains(t, out, `"text":"hello"`)
}

func TestRecorderRoundTrip(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf, WithRecorderClock(fixedClock()))
	require.NoError(t, err)

	nan := math.Float32frombits(0x7fc00001)
	rec.UpdatePlot([]float32{0.5, nan}, 30000)
	rec.OnEvent(protocol.DigitalEvent{Type: protocol.EventTTL, Line: 3, State: 1, Word: 4})
	rec.OnSpike(protocol.SpikeEvent{Electrode: "Tetrode 1", Record: protocol.SpikeRecord{
		NChannels: 1, NSamples: 1, Waveform: []byte{1, 2, 3, 4}, Gain: []float32{2}, Threshold: []float32{-50},
	}})
	rec.OnMessage(protocol.TextMessage{TimestampSeconds: 1.5, Text: "note"})
	require.NoError(t, rec.Close())
	assert.EqualValues(t, 4, rec.Count())

	records, err := ReadAll(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, KindData, records[0].Kind)
	assert.Equal(t, math.Float32bits(nan), math.Float32bits(records[0].Samples[1]))
	assert.True(t, records[0].At.Equal(fixedClock()()))
	assert.Equal(t, uint8(3), records[1].Event.Line)
	assert.Equal(t, []byte{1, 2, 3, 4}, records[2].Spike.Record.Waveform)
	assert.Equal(t, "note", records[3].Message.Text)

	c := &collector{}
	n, err := Replay(bytes.NewReader(buf.Bytes()), c)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, c.events, 1)
	assert.Equal(t, "Tetrode 1", c.spikes[0].Electrode)
}

func TestRecorderCloseIsIdempotent(t *testing.T) {
	testlog.Start(t)
	rec, err := NewRecorder(&bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())
	rec.OnMessage(protocol.TextMessage{Text: "late"})
	assert.Zero(t, rec.Count())
	assert.ErrorIs(t, rec.Flush(), ErrRecorderClosed)
}

func TestReplayRejectsGarbage(t *testing.T) {
	testlog.Start(t)
	_, err := Replay(strings.NewReader("definitely not zstd"), Nop{})
	assert.Error(t, err)
}

func TestFeedHubDeliversJSON(t *testing.T) {
	testlog.Start(t)
	hub := NewFeedHub(WithFeedBuffer(4))
	hub.now = fixedClock()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.OnEvent(protocol.DigitalEvent{Type: protocol.EventTTL, Line: 5, State: 1})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var got Record
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, KindEvent, got.Kind)
	require.NotNil(t, got.Event)
	assert.Equal(t, uint8(5), got.Event.Line)
}

func TestFeedHubDropsForSlowClient(t *testing.T) {
	testlog.Start(t)
	hub := NewFeedHub(WithFeedBuffer(1))
	c := &feedClient{send: make(chan []byte, 1)}
	hub.clients[c] = struct{}{}

	hub.OnMessage(protocol.TextMessage{Text: "a"})
	hub.OnMessage(protocol.TextMessage{Text: "b"})
	hub.OnMessage(protocol.TextMessage{Text: "c"})
	assert.EqualValues(t, 2, hub.Dropped())
	assert.Len(t, c.send, 1)
}

func TestFeedHubCountsUnencodableRecords(t *testing.T) {
	testlog.Start(t)
	hub := NewFeedHub()
	hub.UpdatePlot([]float32{float32(math.NaN())}, 1)
	assert.EqualValues(t, 1, hub.Dropped())
}
