package transport

import (
	"net"
	"sync"
	"time"
)

// NetChannel is a Channel over a net.Conn. Read timeouts are implemented
// with read deadlines renewed on every Read.
type NetChannel struct {
	net.Conn

	mu      sync.Mutex
	timeout time.Duration
}

// NewNetChannel wraps conn as a Channel.
func NewNetChannel(conn net.Conn) *NetChannel {
	return &NetChannel{Conn: conn}
}

// SetReadTimeout sets the wait applied to each following Read.
func (c *NetChannel) SetReadTimeout(d time.Duration) error {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
	return nil
}

// Read reads from the connection, waiting at most the read timeout.
func (c *NetChannel) Read(p []byte) (int, error) {
	c.mu.Lock()
	d := c.timeout
	c.mu.Unlock()

	var deadline time.Time
	if d > 0 {
		deadline = time.Now().Add(d)
	}
	if err := c.Conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func dialNet(proto, addr string) (*NetChannel, error) {
	conn, err := net.Dial(proto, addr)
	if err != nil {
		return nil, err
	}
	return NewNetChannel(conn), nil
}

// DialTCP connects to a TCP address.
func DialTCP(addr string) (*NetChannel, error) {
	return dialNet("tcp", addr)
}

// DialUnix connects to a Unix domain socket.
func DialUnix(addr string) (*NetChannel, error) {
	return dialNet("unix", addr)
}
