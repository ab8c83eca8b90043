package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/progrium/itp-go/discovery"
	"github.com/progrium/itp-go/envelope"
	"github.com/progrium/itp-go/frame"
	"github.com/progrium/itp-go/transport"
	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send FILE",
		Short: "send a file to a waiting receiver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd.Context(), args[0])
		},
	}
	cmd.Flags().Bool("raw", false, "send the file bytes without an envelope")
	cmd.Flags().Bool("discover", false, "find the receiver over mDNS")
	return cmd
}

func payload(path string) ([]byte, error) {
	if cfg.Raw {
		return os.ReadFile(path)
	}
	e, err := envelope.Open(path)
	if err != nil {
		return nil, err
	}
	log.Info("sending file", "envelope", e)
	return e.Encode()
}

func send(ctx context.Context, path string) error {
	buf, err := payload(path)
	if err != nil {
		return err
	}

	proto, addr := cfg.Transport, cfg.DialAddr()
	if cfg.Discover {
		discovery.Quiet()
		lctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		r, err := discovery.Lookup(lctx)
		cancel()
		if err != nil {
			return err
		}
		log.Info("discovered receiver", "name", r.Name, "addr", r.Addr)
		proto, addr = "tcp", r.Addr
	}

	ch, err := transport.Dial(proto, addr)
	if err != nil {
		return err
	}
	defer ch.Close()

	s := cfg.Sender(log)
	s.Progress = func(acked, total int) {
		log.Debug("progress", "acked", acked, "total", total)
	}

	start := time.Now()
	if err := s.Send(ctx, ch, buf); err != nil {
		return err
	}
	elapsed := time.Since(start)
	chunks := (len(buf) + frame.MaxPayload - 1) / frame.MaxPayload
	fmt.Fprintf(os.Stderr, "sent %s in %d chunks over %s in %s\n", humanize(len(buf)), chunks, proto, elapsed.Round(time.Millisecond))
	return nil
}
