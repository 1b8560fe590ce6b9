package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"pasteanywhere/internal/wire"
)

// DefaultQueueSize is the outbound queue depth per connection.
const DefaultQueueSize = 64

var (
	// ErrClosed is returned by Send and Receive after the connection is closed.
	ErrClosed = errors.New("connection closed")
	// ErrSlowPeer is returned by Send when the outbound queue is full. The
	// connection is closed as a side effect; backpressure is realized as
	// disconnection.
	ErrSlowPeer = errors.New("peer too slow, outbound queue full")
)

// Direction records which side opened a connection.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

// String returns the string representation of a Direction.
func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// Conn is a framed message connection. Receive may be called from one
// goroutine; Send is safe from any goroutine and never blocks on the peer.
type Conn struct {
	nc        net.Conn
	direction Direction

	sendCh    chan wire.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newConn(nc net.Conn, direction Direction, queueSize int) *Conn {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	c := &Conn{
		nc:        nc,
		direction: direction,
		sendCh:    make(chan wire.Message, queueSize),
		closed:    make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// writeLoop drains the outbound queue onto the socket. Messages queued on
// one connection go out in queue order.
func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.sendCh:
			if err := wire.WriteMessage(c.nc, msg); err != nil {
				c.Close()
				return
			}
		}
	}
}

// Send queues a message for delivery. If the queue is saturated the
// connection is closed and ErrSlowPeer is returned.
func (c *Conn) Send(msg wire.Message) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	select {
	case c.sendCh <- msg:
		return nil
	case <-c.closed:
		return ErrClosed
	default:
		c.Close()
		return ErrSlowPeer
	}
}

// Receive blocks until a full message arrives or the connection ends. It
// returns io.EOF on a clean close, a wire.ProtocolError on a corrupted
// stream and ErrClosed after Close.
func (c *Conn) Receive() (wire.Message, error) {
	msg, err := wire.ReadMessage(c.nc)
	if err != nil {
		select {
		case <-c.closed:
			return nil, ErrClosed
		default:
		}
		return nil, err
	}
	return msg, nil
}

// Close tears the connection down. It is idempotent and unblocks any
// pending Receive.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.nc.Close()
	})
	return nil
}

// Done is closed when the connection has been torn down.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

// Direction reports which side opened the connection.
func (c *Conn) Direction() Direction {
	return c.direction
}

// RemoteAddr returns the remote socket address. Note this differs from the
// peer's advertised listen address on inbound connections.
func (c *Conn) RemoteAddr() string {
	return c.nc.RemoteAddr().String()
}

// Dial opens an outbound connection. The context bounds the TCP handshake
// only, not the life of the connection.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Conn, error) {
	d := net.Dialer{Timeout: timeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return newConn(nc, Outbound, DefaultQueueSize), nil
}

// Listener accepts inbound framed connections.
type Listener struct {
	nl net.Listener
}

// Listen binds a TCP listener. Passing port 0 picks an ephemeral port;
// Addr reports the assigned one.
func Listen(addr string) (*Listener, error) {
	nl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return &Listener{nl: nl}, nil
}

// Accept blocks until a connection arrives. It returns an error only once
// the listener is closed.
func (l *Listener) Accept() (*Conn, error) {
	nc, err := l.nl.Accept()
	if err != nil {
		return nil, err
	}
	return newConn(nc, Inbound, DefaultQueueSize), nil
}

// Addr returns the bound listen address.
func (l *Listener) Addr() net.Addr {
	return l.nl.Addr()
}

// Close stops accepting. Established connections are unaffected.
func (l *Listener) Close() error {
	return l.nl.Close()
}
