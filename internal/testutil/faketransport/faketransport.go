// Package faketransport provides in-memory transport.Channel, Poller and
// Dialer implementations for deterministic tests.
package faketransport

import (
	"errors"
	"sync"
	"time"

	"github.com/danmuck/oestream/internal/transport"
)

type Kind string

const (
	KindSubscribe Kind = "sub"
	KindRequest   Kind = "req"
)

// Channel is an in-memory channel. Push queues inbound messages; Sent
// records everything written to it.
type Channel struct {
	Kind     Kind
	Endpoint string
	Topics   []string

	mu      sync.Mutex
	inbox   [][][]byte
	sent    [][][]byte
	closed  bool
	recvErr error
	sendErr error
	reply   func([][]byte) [][]byte
}

func (c *Channel) Push(parts ...[]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, parts)
}

// FailRecv makes every following Recv return err.
func (c *Channel) FailRecv(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recvErr = err
}

func (c *Channel) FailSend(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

func (c *Channel) Sent() [][][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && (len(c.inbox) > 0 || c.recvErr != nil)
}

func (c *Channel) Recv() ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, transport.ErrClosed
	}
	if c.recvErr != nil {
		return nil, c.recvErr
	}
	if len(c.inbox) == 0 {
		return nil, transport.ErrNoMessage
	}
	msg := c.inbox[0]
	c.inbox = c.inbox[1:]
	return msg, nil
}

func (c *Channel) Send(parts ...[]byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return transport.ErrClosed
	}
	if c.sendErr != nil {
		err := c.sendErr
		c.mu.Unlock()
		return err
	}
	c.sent = append(c.sent, parts)
	reply := c.reply
	c.mu.Unlock()
	if reply != nil {
		if out := reply(parts); out != nil {
			c.Push(out...)
		}
	}
	return nil
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Poller reports registered channels that have queued input. It never
// sleeps; OnIdle runs instead when nothing is ready.
type Poller struct {
	mu       sync.Mutex
	channels []*Channel
	OnIdle   func(timeout time.Duration)
	pollErr  error
}

var ErrForeignChannel = errors.New("faketransport: foreign channel")

func (p *Poller) Add(ch transport.Channel) error {
	fc, ok := ch.(*Channel)
	if !ok {
		return ErrForeignChannel
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.channels {
		if c == fc {
			return nil
		}
	}
	p.channels = append(p.channels, fc)
	return nil
}

func (p *Poller) Remove(ch transport.Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.channels {
		if transport.Channel(c) == ch {
			p.channels = append(p.channels[:i], p.channels[i+1:]...)
			return nil
		}
	}
	return transport.ErrNotRegistered
}

func (p *Poller) Registered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

func (p *Poller) FailPoll(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollErr = err
}

func (p *Poller) Poll(timeout time.Duration) ([]transport.Channel, error) {
	p.mu.Lock()
	if p.pollErr != nil {
		err := p.pollErr
		p.mu.Unlock()
		return nil, err
	}
	var ready []transport.Channel
	for _, c := range p.channels {
		if c.ready() {
			ready = append(ready, c)
		}
	}
	idle := p.OnIdle
	p.mu.Unlock()
	if len(ready) == 0 && idle != nil {
		idle(timeout)
	}
	return ready, nil
}

// Dialer hands out fake channels and remembers them in dial order.
type Dialer struct {
	mu       sync.Mutex
	subs     []*Channel
	reqs     []*Channel
	pollers  []*Poller
	closed   bool
	dialErr  error
	Reply    func(req [][]byte) [][]byte
	OnPoller func(*Poller)
}

func (d *Dialer) FailDial(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErr = err
}

func (d *Dialer) Subscribe(endpoint string, topics ...string) (transport.Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(endpoint); err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		topics = []string{""}
	}
	ch := &Channel{Kind: KindSubscribe, Endpoint: endpoint, Topics: topics}
	d.subs = append(d.subs, ch)
	return ch, nil
}

func (d *Dialer) Request(endpoint string) (transport.Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(endpoint); err != nil {
		return nil, err
	}
	ch := &Channel{Kind: KindRequest, Endpoint: endpoint, reply: d.Reply}
	d.reqs = append(d.reqs, ch)
	return ch, nil
}

func (d *Dialer) check(endpoint string) error {
	if d.closed {
		return transport.ErrClosed
	}
	if d.dialErr != nil {
		return d.dialErr
	}
	if endpoint == "" {
		return transport.ErrEndpoint
	}
	return nil
}

func (d *Dialer) NewPoller() transport.Poller {
	d.mu.Lock()
	p := &Poller{}
	d.pollers = append(d.pollers, p)
	hook := d.OnPoller
	d.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	return p
}

func (d *Dialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Dialer) Subscriptions() []*Channel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Channel(nil), d.subs...)
}

func (d *Dialer) Requests() []*Channel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Channel(nil), d.reqs...)
}

// LastRequest returns the most recently dialled request channel.
func (d *Dialer) LastRequest() *Channel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.reqs) == 0 {
		return nil
	}
	return d.reqs[len(d.reqs)-1]
}

func (d *Dialer) Pollers() []*Poller {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Poller(nil), d.pollers...)
}

func (d *Dialer) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
