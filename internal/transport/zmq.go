package transport

import (
	"fmt"
	"strings"
	"sync"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// ZMQDialer creates ZeroMQ sockets from one private context.
type ZMQDialer struct {
	ctx      *zmq.Context
	security Security

	mu      sync.Mutex
	sockets map[*zmqChannel]struct{}
	closed  bool
}

func NewZMQDialer(security Security) (*ZMQDialer, error) {
	if err := security.Validate(); err != nil {
		return nil, err
	}
	ctx, err := zmq.NewContext()
	if err != nil {
		return nil, fmt.Errorf("transport: new context: %w", err)
	}
	return &ZMQDialer{ctx: ctx, security: security, sockets: make(map[*zmqChannel]struct{})}, nil
}

func (d *ZMQDialer) Subscribe(endpoint string, topics ...string) (Channel, error) {
	ch, err := d.open(zmq.SUB, endpoint)
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		topics = []string{""}
	}
	for _, topic := range topics {
		if err := ch.soc.SetSubscribe(topic); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("transport: subscribe %q: %w", topic, err)
		}
	}
	return ch, nil
}

func (d *ZMQDialer) Request(endpoint string) (Channel, error) {
	return d.open(zmq.REQ, endpoint)
}

func (d *ZMQDialer) open(kind zmq.Type, endpoint string) (*zmqChannel, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrEndpoint
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	soc, err := d.ctx.NewSocket(kind)
	if err != nil {
		return nil, fmt.Errorf("transport: new %s socket: %w", kind, err)
	}
	// Pending requests are discarded on close so reconnects never hang.
	if err := soc.SetLinger(0); err != nil {
		_ = soc.Close()
		return nil, fmt.Errorf("transport: set linger: %w", err)
	}
	if d.security.Curve.Enabled {
		c := d.security.Curve
		if err := soc.ClientAuthCurve(c.ServerPublicKey, c.ClientPublicKey, c.ClientSecretKey); err != nil {
			_ = soc.Close()
			return nil, fmt.Errorf("transport: curve auth: %w", err)
		}
	}
	if err := soc.Connect(endpoint); err != nil {
		_ = soc.Close()
		return nil, fmt.Errorf("%w: connect %s: %v", ErrEndpoint, endpoint, err)
	}
	ch := &zmqChannel{soc: soc, endpoint: endpoint, owner: d}
	d.sockets[ch] = struct{}{}
	return ch, nil
}

func (d *ZMQDialer) forget(ch *zmqChannel) {
	d.mu.Lock()
	delete(d.sockets, ch)
	d.mu.Unlock()
}

func (d *ZMQDialer) NewPoller() Poller {
	return &zmqPoller{p: zmq.NewPoller(), byID: make(map[*zmq.Socket]*zmqChannel)}
}

// Close closes every socket still open and terminates the context.
func (d *ZMQDialer) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	open := make([]*zmqChannel, 0, len(d.sockets))
	for ch := range d.sockets {
		open = append(open, ch)
	}
	d.sockets = nil
	d.mu.Unlock()

	for _, ch := range open {
		_ = ch.closeSocket()
	}
	return d.ctx.Term()
}

type zmqChannel struct {
	soc      *zmq.Socket
	endpoint string
	owner    *ZMQDialer

	once   sync.Once
	closed bool
}

func (c *zmqChannel) Recv() ([][]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	parts, err := c.soc.RecvMessageBytes(zmq.DONTWAIT)
	if err != nil {
		if zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN) {
			return nil, ErrNoMessage
		}
		return nil, fmt.Errorf("transport: recv %s: %w", c.endpoint, err)
	}
	return parts, nil
}

func (c *zmqChannel) Send(parts ...[]byte) error {
	if c.closed {
		return ErrClosed
	}
	if len(parts) == 0 {
		parts = [][]byte{{}}
	}
	for i, part := range parts {
		flag := zmq.Flag(0)
		if i < len(parts)-1 {
			flag = zmq.SNDMORE
		}
		if _, err := c.soc.SendBytes(part, flag); err != nil {
			return fmt.Errorf("transport: send %s: %w", c.endpoint, err)
		}
	}
	return nil
}

func (c *zmqChannel) Close() error {
	err := c.closeSocket()
	if c.owner != nil {
		c.owner.forget(c)
	}
	return err
}

func (c *zmqChannel) closeSocket() error {
	var err error
	c.once.Do(func() {
		c.closed = true
		err = c.soc.Close()
	})
	return err
}

type zmqPoller struct {
	p    *zmq.Poller
	byID map[*zmq.Socket]*zmqChannel
}

func (p *zmqPoller) Add(ch Channel) error {
	zc, ok := ch.(*zmqChannel)
	if !ok {
		return fmt.Errorf("transport: poller cannot watch %T", ch)
	}
	if _, dup := p.byID[zc.soc]; dup {
		return nil
	}
	p.p.Add(zc.soc, zmq.POLLIN)
	p.byID[zc.soc] = zc
	return nil
}

func (p *zmqPoller) Remove(ch Channel) error {
	zc, ok := ch.(*zmqChannel)
	if !ok {
		return fmt.Errorf("transport: poller cannot watch %T", ch)
	}
	if _, known := p.byID[zc.soc]; !known {
		return ErrNotRegistered
	}
	delete(p.byID, zc.soc)
	return p.p.RemoveBySocket(zc.soc)
}

func (p *zmqPoller) Poll(timeout time.Duration) ([]Channel, error) {
	polled, err := p.p.Poll(timeout)
	if err != nil {
		if zmq.AsErrno(err) == zmq.Errno(syscall.EINTR) {
			return nil, nil
		}
		return nil, fmt.Errorf("transport: poll: %w", err)
	}
	ready := make([]Channel, 0, len(polled))
	for _, item := range polled {
		if item.Events&zmq.POLLIN == 0 {
			continue
		}
		if ch, ok := p.byID[item.Socket]; ok {
			ready = append(ready, ch)
		}
	}
	return ready, nil
}
