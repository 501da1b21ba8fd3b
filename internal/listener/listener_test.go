package listener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/oestream/internal/protocol"
	"github.com/danmuck/oestream/internal/protocol/compact"
	"github.com/danmuck/oestream/internal/sink"
	"github.com/danmuck/oestream/internal/testutil/faketransport"
	"github.com/danmuck/oestream/internal/testutil/testlog"
)

type got struct {
	events   []protocol.DigitalEvent
	spikes   []protocol.SpikeEvent
	messages []protocol.TextMessage
}

func newTestListener(t *testing.T, d *faketransport.Dialer) (*Listener, *got) {
	t.Helper()
	g := &got{}
	out := sink.Funcs{
		Event:   func(ev protocol.DigitalEvent) { g.events = append(g.events, ev) },
		Spike:   func(sp protocol.SpikeEvent) { g.spikes = append(g.spikes, sp) },
		Message: func(m protocol.TextMessage) { g.messages = append(g.messages, m) },
	}
	l, err := New(DefaultConfig(), d, out)
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	if err := l.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return l, g
}

func TestListenerDispatchesEachTag(t *testing.T) {
	testlog.Start(t)
	d := &faketransport.Dialer{}
	l, g := newTestListener(t, d)
	sub := d.Subscriptions()[0]
	if sub.Endpoint != "tcp://localhost:5557" {
		t.Fatalf("unexpected endpoint %s", sub.Endpoint)
	}

	header := protocol.StandardHeader{NodeID: 100, EventID: 1, EventChannel: 0}
	sub.Push(compact.Encode(compact.TagTTL, 1.25, compact.EncodeTTLBody(header, 1))...)
	sub.Push(compact.Encode(compact.TagSpike, 2.5, compact.EncodeSpike(protocol.SpikeRecord{ElectrodeID: 9}))...)
	sub.Push(compact.Encode(compact.TagMessage, 3, []byte("hello"))...)

	if err := l.Cycle(); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(g.events) != 1 || g.events[0].Line != 1 || !g.events[0].On() || g.events[0].TimestampSeconds != 1.25 {
		t.Fatalf("unexpected events %+v", g.events)
	}
	if len(g.spikes) != 1 || g.spikes[0].Record.ElectrodeID != 9 {
		t.Fatalf("unexpected spikes %+v", g.spikes)
	}
	if len(g.messages) != 1 || g.messages[0].Text != "hello" {
		t.Fatalf("unexpected messages %+v", g.messages)
	}
	if l.Stats().Delivered != 3 || l.Stats().Dropped != 0 {
		t.Fatalf("unexpected stats %+v", l.Stats())
	}
}

func TestListenerDropsMalformedAndContinues(t *testing.T) {
	testlog.Start(t)
	d := &faketransport.Dialer{}
	l, g := newTestListener(t, d)
	sub := d.Subscriptions()[0]

	sub.Push([]byte{compact.TagTTL}, []byte{1, 2, 3})
	sub.Push(compact.Encode(9, 0, nil)...)
	sub.Push(compact.Encode(compact.TagMessage, 0, []byte{0xff, 0xfe})...)
	sub.Push(compact.Encode(compact.TagSpike, 0, make([]byte, 10))...)
	sub.Push(compact.Encode(compact.TagMessage, 0, []byte("ok"))...)

	if err := l.Cycle(); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if l.Stats().Dropped != 4 || len(g.messages) != 1 {
		t.Fatalf("unexpected stats %+v messages=%d", l.Stats(), len(g.messages))
	}
}

func TestListenerChannelErrorIsFatal(t *testing.T) {
	testlog.Start(t)
	d := &faketransport.Dialer{}
	l, _ := newTestListener(t, d)
	d.Subscriptions()[0].FailRecv(errors.New("closed"))
	if err := l.Run(context.Background()); !errors.Is(err, protocol.ErrChannel) {
		t.Fatalf("expected ErrChannel, got %v", err)
	}
}

func TestListenerRunStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := &faketransport.Dialer{OnPoller: func(p *faketransport.Poller) {
		p.OnIdle = func(time.Duration) { cancel() }
	}}
	l, _ := newTestListener(t, d)
	if err := l.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !d.Subscriptions()[0].Closed() {
		t.Fatalf("subscription should be closed")
	}
}

func TestConfigValidate(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.Endpoint = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
