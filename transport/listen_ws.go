package transport

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"
)

// wsChannel keeps the WebSocket handler alive until the channel is closed.
type wsChannel struct {
	*NetChannel
	closed chan struct{}
	once   sync.Once
}

func (c *wsChannel) Close() error {
	err := c.NetChannel.Close()
	c.once.Do(func() { close(c.closed) })
	return err
}

// HandleWS takes a WebSocket connection, wraps it as a channel and sends it
// to a NetListener to be accepted. It returns once the channel is closed.
func HandleWS(l *NetListener, ws *websocket.Conn) {
	ws.PayloadType = websocket.BinaryFrame
	ch := &wsChannel{
		NetChannel: NewNetChannel(ws),
		closed:     make(chan struct{}),
	}
	if !l.offer(ch) {
		return
	}
	select {
	case <-ch.closed:
	case <-l.done:
		ch.Close()
	}
}

// ListenWS takes a TCP address and returns a NetListener with an HTTP+WebSocket server listening on the given address.
func ListenWS(addr string) (*NetListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	nl := newNetListener(l)
	s := &http.Server{
		Addr: addr,
		Handler: websocket.Handler(func(ws *websocket.Conn) {
			HandleWS(nl, ws)
		}),
	}
	go func() {
		nl.errs <- s.Serve(l)
	}()
	return nl, nil
}
