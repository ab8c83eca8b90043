// Package quic provides a QUIC transport for ITP. Each channel is a single
// bidirectional stream on its own connection. Importing the package
// registers it as the "quic" transport.
package quic

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"math/big"
	"net"
	"os"
	"sync"
	"time"

	"github.com/progrium/itp-go/transport"
	"github.com/quic-go/quic-go"
)

// NextProto is the ALPN protocol negotiated by both ends.
const NextProto = "itp-quic"

// Linger bounds how long Close waits for the peer to hang up first, so the
// final frame written on a stream is not cut off by the connection close.
var Linger = time.Second

// ClientTLSConfig is used by the registered "quic" dialer.
var ClientTLSConfig = &tls.Config{
	NextProtos: []string{NextProto},
}

func init() {
	transport.Dialers["quic"] = func(addr string) (transport.Channel, error) {
		return Dial(context.Background(), addr, ClientTLSConfig)
	}
	transport.Listeners["quic"] = func(addr string) (transport.Listener, error) {
		tlsConf, err := GenerateTLSConfig()
		if err != nil {
			return nil, err
		}
		return Listen(addr, tlsConf)
	}
}

// Dial connects to addr and opens the stream used for the transfer.
func Dial(ctx context.Context, addr string, tlsConf *tls.Config) (*Channel, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(0, "")
		return nil, err
	}
	// the peer only learns about a stream once data arrives on it
	if _, err := stream.Write([]byte("!")); err != nil {
		conn.CloseWithError(0, "")
		return nil, err
	}
	return New(conn, stream), nil
}

// Channel is a transport.Channel over one QUIC stream.
type Channel struct {
	conn   quic.Connection
	stream quic.Stream

	mu      sync.Mutex
	timeout time.Duration
	once    sync.Once
}

// New wraps an established stream. Closing the channel closes conn.
func New(conn quic.Connection, stream quic.Stream) *Channel {
	return &Channel{conn: conn, stream: stream}
}

// SetReadTimeout sets the wait applied to each following Read.
func (c *Channel) SetReadTimeout(d time.Duration) error {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
	return nil
}

func (c *Channel) Read(p []byte) (int, error) {
	c.mu.Lock()
	d := c.timeout
	c.mu.Unlock()

	var deadline time.Time
	if d > 0 {
		deadline = time.Now().Add(d)
	}
	if err := c.stream.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	n, err := c.stream.Read(p)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() && !errors.Is(err, os.ErrDeadlineExceeded) {
		err = os.ErrDeadlineExceeded
	}
	return n, err
}

func (c *Channel) Write(p []byte) (int, error) {
	return c.stream.Write(p)
}

// Close finishes the stream and closes the connection once the peer has
// gone or Linger has passed.
func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		c.stream.Close()
		select {
		case <-c.conn.Context().Done():
		case <-time.After(Linger):
		}
		c.stream.CancelRead(0)
		err = c.conn.CloseWithError(0, "")
	})
	return err
}

// Listener accepts QUIC connections and returns the first stream of each.
type Listener struct {
	ql       *quic.Listener
	accepted chan transport.Channel
	errs     chan error
	done     chan struct{}
	once     sync.Once
}

// Listen listens for QUIC connections at addr.
func Listen(addr string, tlsConf *tls.Config) (*Listener, error) {
	ql, err := quic.ListenAddr(addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		ql:       ql,
		accepted: make(chan transport.Channel),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
	go l.loop()
	return l, nil
}

func (l *Listener) loop() {
	for {
		conn, err := l.ql.Accept(context.Background())
		if err != nil {
			l.errs <- err
			return
		}
		go l.handle(conn)
	}
}

func (l *Listener) handle(conn quic.Connection) {
	stream, err := conn.AcceptStream(context.Background())
	if err != nil {
		conn.CloseWithError(0, "")
		return
	}
	header := make([]byte, 1)
	if _, err := io.ReadFull(stream, header); err != nil {
		conn.CloseWithError(0, "")
		return
	}
	ch := New(conn, stream)
	select {
	case l.accepted <- ch:
	case <-l.done:
		conn.CloseWithError(0, "")
	}
}

// Accept waits for the next connected channel.
func (l *Listener) Accept() (transport.Channel, error) {
	select {
	case <-l.done:
		return nil, io.EOF
	case err := <-l.errs:
		return nil, err
	case ch := <-l.accepted:
		return ch, nil
	}
}

// Close stops the listener. Blocked Accept calls return io.EOF.
func (l *Listener) Close() error {
	l.once.Do(func() { close(l.done) })
	return l.ql.Close()
}

func (l *Listener) Addr() net.Addr {
	return l.ql.Addr()
}

// GenerateTLSConfig returns a server config with a fresh self-signed
// certificate.
func GenerateTLSConfig() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		NextProtos:   []string{NextProto},
	}, nil
}
