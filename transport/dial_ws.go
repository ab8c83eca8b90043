package transport

import (
	"net/url"

	"golang.org/x/net/websocket"
)

// DialWS opens a WebSocket to the root path of addr, given as host:port,
// and exchanges ITP frames as binary messages.
func DialWS(addr string) (*NetChannel, error) {
	target := url.URL{Scheme: "ws", Host: addr, Path: "/"}
	origin := url.URL{Scheme: "http", Host: addr, Path: "/"}
	cfg, err := websocket.NewConfig(target.String(), origin.String())
	if err != nil {
		return nil, err
	}
	ws, err := websocket.DialConfig(cfg)
	if err != nil {
		return nil, err
	}
	ws.PayloadType = websocket.BinaryFrame
	return NewNetChannel(ws), nil
}
