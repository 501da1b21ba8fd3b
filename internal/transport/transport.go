// Package transport abstracts the message channels the client talks to:
// a subscribe-only inbound channel, request-reply channels and a poller
// that waits on several of them with a bounded timeout.
//
// The production implementation is ZeroMQ (see ZMQDialer); tests use the
// in-memory channels of internal/testutil/faketransport.
package transport

import (
	"errors"
	"time"
)

var (
	ErrClosed        = errors.New("transport: channel closed")
	ErrNoMessage     = errors.New("transport: no message ready")
	ErrNotRegistered = errors.New("transport: channel not registered with poller")
	ErrEndpoint      = errors.New("transport: invalid endpoint")
)

// Channel is one connected socket. Recv never blocks: with nothing queued
// it returns ErrNoMessage. A multi-frame message is always returned whole.
type Channel interface {
	Recv() ([][]byte, error)
	Send(parts ...[]byte) error
	Close() error
}

// Poller waits for inbound activity on registered channels.
type Poller interface {
	Add(ch Channel) error
	Remove(ch Channel) error
	// Poll returns the channels with a message ready. A timeout yields an
	// empty slice and a nil error.
	Poll(timeout time.Duration) ([]Channel, error)
}

// Dialer creates channels and pollers bound to one context.
type Dialer interface {
	// Subscribe connects a subscribe channel; no topics means all topics.
	Subscribe(endpoint string, topics ...string) (Channel, error)
	// Request connects a request-reply channel.
	Request(endpoint string) (Channel, error)
	NewPoller() Poller
	Close() error
}
