package transport

import (
	"io"
	"net"
	"sync"
)

// NetListener wraps a net.Listener to return connected channels.
type NetListener struct {
	net.Listener
	accepted chan Channel
	errs     chan error
	done     chan struct{}
	once     sync.Once
}

// Accept waits for and returns the next connected channel to the listener.
func (l *NetListener) Accept() (Channel, error) {
	select {
	case <-l.done:
		return nil, io.EOF
	case err := <-l.errs:
		return nil, err
	case ch := <-l.accepted:
		return ch, nil
	}
}

// Close closes the listener.
// Any blocked Accept operations will be unblocked and return errors.
func (l *NetListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return l.Listener.Close()
}

func newNetListener(l net.Listener) *NetListener {
	return &NetListener{
		Listener: l,
		accepted: make(chan Channel),
		errs:     make(chan error, 2),
		done:     make(chan struct{}),
	}
}

// offer hands ch to a pending Accept, closing it if the listener goes away first.
func (l *NetListener) offer(ch Channel) bool {
	select {
	case l.accepted <- ch:
		return true
	case <-l.done:
		ch.Close()
		return false
	}
}

func listenNet(proto, addr string) (*NetListener, error) {
	l, err := net.Listen(proto, addr)
	if err != nil {
		return nil, err
	}
	nl := newNetListener(l)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				nl.errs <- err
				return
			}
			if !nl.offer(NewNetChannel(conn)) {
				return
			}
		}
	}()
	return nl, nil
}

// ListenTCP creates a TCP listener at the given address.
func ListenTCP(addr string) (*NetListener, error) {
	return listenNet("tcp", addr)
}

// ListenUnix creates a Unix domain socket listener at the given path.
func ListenUnix(path string) (*NetListener, error) {
	return listenNet("unix", path)
}
