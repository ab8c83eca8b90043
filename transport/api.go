// Package transport adapts byte streams to the polled Channel the ITP engine
// runs over: TCP and Unix sockets, WebSockets, serial lines and plain
// reader/writer pairs such as stdio.
package transport

import (
	"net"
	"time"
)

// Channel is a bidirectional byte stream with bounded reads. It does not
// preserve message boundaries.
type Channel interface {
	// Read reads up to len(p) bytes. When a read timeout is set and no data
	// arrives in time, Read returns an error matching os.ErrDeadlineExceeded.
	Read(p []byte) (int, error)

	// Write writes p to the stream and reports how much was accepted.
	Write(p []byte) (int, error)

	// Close closes the underlying stream. Blocked reads are unblocked.
	Close() error

	// SetReadTimeout bounds how long each following Read waits for data.
	// Zero means reads wait indefinitely.
	SetReadTimeout(d time.Duration) error
}

type Listener interface {
	// Close closes the listener.
	// Any blocked Accept operations will be unblocked and return errors.
	Close() error

	// Accept waits for and returns the next connected channel.
	Accept() (Channel, error)

	// Addr returns the listener's network address if available.
	Addr() net.Addr
}
