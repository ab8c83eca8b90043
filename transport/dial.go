package transport

import "fmt"

// A Dialer connects to addr and returns a Channel.
type Dialer func(addr string) (Channel, error)

// A ListenFunc starts listening at addr.
type ListenFunc func(addr string) (Listener, error)

// Dialers is map of transport strings to Dialers
// and includes all builtin transports
var Dialers map[string]Dialer

// Listeners is the listening counterpart of Dialers.
var Listeners map[string]ListenFunc

func init() {
	Dialers = map[string]Dialer{
		"tcp": func(addr string) (Channel, error) {
			return DialTCP(addr)
		},
		"unix": func(addr string) (Channel, error) {
			return DialUnix(addr)
		},
		"ws": func(addr string) (Channel, error) {
			return DialWS(addr)
		},
		"serial": func(addr string) (Channel, error) {
			return DialSerial(addr)
		},
		"stdio": func(_ string) (Channel, error) {
			return DialStdio()
		},
	}
	Listeners = map[string]ListenFunc{
		"tcp": func(addr string) (Listener, error) {
			return ListenTCP(addr)
		},
		"unix": func(addr string) (Listener, error) {
			return ListenUnix(addr)
		},
		"ws": func(addr string) (Listener, error) {
			return ListenWS(addr)
		},
		"serial": ListenSerial,
		"stdio": func(_ string) (Listener, error) {
			return ListenStdio()
		},
	}
}

// Dial connects to a remote address using a registered transport.
// Available transports are "tcp", "unix", "ws", "serial" and "stdio". In the
// case of "stdio", the addr can be left an empty string.
func Dial(transport, addr string) (Channel, error) {
	d, ok := Dialers[transport]
	if !ok {
		return nil, fmt.Errorf("transport '%s' not in available in Dialers", transport)
	}
	return d(addr)
}

// Listen listens at addr using a registered transport.
func Listen(transport, addr string) (Listener, error) {
	l, ok := Listeners[transport]
	if !ok {
		return nil, fmt.Errorf("transport '%s' not in available in Listeners", transport)
	}
	return l(addr)
}
