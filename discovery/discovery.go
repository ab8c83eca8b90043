// Package discovery finds ITP receivers on the local network over mDNS.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/brutella/dnssd"
	dnssdlog "github.com/brutella/dnssd/log"
)

const (
	// ServiceType is the DNS-SD type receivers announce.
	ServiceType = "_itp._tcp"

	// Domain is the mDNS domain.
	Domain = "local"
)

// ErrNotFound is returned by Lookup when ctx ends before a receiver shows up.
var ErrNotFound = errors.New("discovery: no receiver found")

// Quiet silences the dnssd package loggers.
func Quiet() {
	dnssdlog.Info.SetOutput(io.Discard)
	dnssdlog.Debug.SetOutput(io.Discard)
}

// Announce advertises a receiver listening on port until ctx is done.
func Announce(ctx context.Context, name string, port int) error {
	cfg := dnssd.Config{
		Name:   name,
		Type:   ServiceType,
		Domain: Domain,
		Port:   port,
		Text:   map[string]string{"proto": "itp"},
	}
	service, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("discovery: service: %w", err)
	}
	rp, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("discovery: responder: %w", err)
	}
	if _, err := rp.Add(service); err != nil {
		return fmt.Errorf("discovery: add: %w", err)
	}
	err = rp.Respond(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Receiver is an announced receiver.
type Receiver struct {
	Name string
	Addr string
}

// Lookup browses for receivers and returns the first one with a usable
// address.
func Lookup(ctx context.Context) (Receiver, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan Receiver, 1)
	add := func(e dnssd.BrowseEntry) {
		addr, ok := address(e.IPs, e.Port)
		if !ok {
			return
		}
		select {
		case found <- Receiver{Name: e.Name, Addr: addr}:
			cancel()
		default:
		}
	}
	rmv := func(dnssd.BrowseEntry) {}

	err := dnssd.LookupType(ctx, fmt.Sprintf("%s.%s.", ServiceType, Domain), add, rmv)
	select {
	case r := <-found:
		return r, nil
	default:
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return Receiver{}, fmt.Errorf("discovery: lookup: %w", err)
	}
	return Receiver{}, ErrNotFound
}

// address picks an IPv4 address when one is available.
func address(ips []net.IP, port int) (string, bool) {
	if len(ips) == 0 || port <= 0 {
		return "", false
	}
	ip := ips[0]
	for _, candidate := range ips {
		if candidate.To4() != nil {
			ip = candidate
			break
		}
	}
	return net.JoinHostPort(ip.String(), strconv.Itoa(port)), true
}
