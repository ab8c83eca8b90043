package transport

import (
	"io"
	"net"
	"os"
	"sync"
)

// singleListener hands out one already open channel, then reports io.EOF.
// It lets point-to-point links like stdio and serial lines be used where a
// Listener is expected.
type singleListener struct {
	mu sync.Mutex
	ch Channel
}

// Accept returns the wrapped channel the first time it is called.
func (l *singleListener) Accept() (Channel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ch == nil {
		return nil, io.EOF
	}
	ch := l.ch
	l.ch = nil
	return ch, nil
}

// Close closes the channel if it was never accepted.
func (l *singleListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ch == nil {
		return nil
	}
	err := l.ch.Close()
	l.ch = nil
	return err
}

func (l *singleListener) Addr() net.Addr {
	return nil
}

// ListenIO returns a Listener that gives a single channel based on
// separate WriteCloser and ReadCloser.
func ListenIO(out io.WriteCloser, in io.ReadCloser) (Listener, error) {
	return &singleListener{ch: newIODuplex(out, in)}, nil
}

// ListenStdio is a convenience for calling ListenIO with Stdout and Stdin.
func ListenStdio() (Listener, error) {
	return ListenIO(os.Stdout, os.Stdin)
}
