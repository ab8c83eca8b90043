package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/progrium/itp-go/discovery"
	"github.com/progrium/itp-go/envelope"
	"github.com/progrium/itp-go/transport"
	"github.com/spf13/cobra"
)

// rawName is the file written when raw bytes arrive into a directory.
const rawName = "itp.bin"

func receiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receive [DIR|FILE]",
		Short: "wait for one sender and write what it sends",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) > 0 {
				target = args[0]
			}
			return receive(cmd.Context(), target)
		},
	}
	cmd.Flags().Bool("raw", false, "write the received bytes as they are")
	cmd.Flags().Bool("announce", false, "announce the receiver over mDNS")
	cmd.Flags().Int("max-size", 0, "largest buffer accepted in bytes (0 for no limit)")
	return cmd
}

func receive(ctx context.Context, target string) error {
	l, err := transport.Listen(cfg.Transport, cfg.DialAddr())
	if err != nil {
		return err
	}
	defer l.Close()
	log.Info("waiting for sender", "transport", cfg.Transport, "addr", l.Addr())

	if cfg.Announce {
		port, err := announcePort(cfg.Transport, l.Addr())
		if err != nil {
			return err
		}
		actx, cancel := context.WithCancel(ctx)
		defer cancel()
		discovery.Quiet()
		name, _ := os.Hostname()
		go func() {
			if err := discovery.Announce(actx, "itp-"+name, port); err != nil {
				log.Warn("announce failed", "err", err)
			}
		}()
	}

	accepted := make(chan transport.Channel, 1)
	acceptErr := make(chan error, 1)
	go func() {
		ch, err := l.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- ch
	}()

	var ch transport.Channel
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-acceptErr:
		return err
	case ch = <-accepted:
	}
	defer ch.Close()

	r := cfg.Receiver(log)
	r.Progress = func(received, total int) {
		log.Debug("progress", "received", received, "total", total)
	}
	start := time.Now()
	buf, err := r.Receive(ctx, ch, cfg.MaxSize)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	path, err := store(buf, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "received %s into %s in %s\n", humanize(len(buf)), path, elapsed.Round(time.Millisecond))
	return nil
}

// announcePort is the port to advertise for a listener. Senders that find a
// receiver over mDNS dial it with tcp, so only tcp listeners are announced.
func announcePort(proto string, addr net.Addr) (int, error) {
	tcp, ok := addr.(*net.TCPAddr)
	if proto != "tcp" || !ok {
		return 0, fmt.Errorf("announce needs a tcp listener, not %s", proto)
	}
	return tcp.Port, nil
}

// store writes buf under target. Envelopes are unpacked into target when it
// is a directory. Anything else is written as is.
func store(buf []byte, target string) (string, error) {
	fi, err := os.Stat(target)
	isDir := err == nil && fi.IsDir()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if !cfg.Raw {
		e, err := envelope.Decode(buf)
		if err == nil {
			log.Info("received file", "envelope", e)
			if isDir {
				return e.WriteTo(target)
			}
			return target, os.WriteFile(target, e.Data, 0o644)
		}
		log.Warn("not an envelope, writing raw bytes", "err", err)
	}

	path := target
	if isDir {
		path = filepath.Join(target, rawName)
	}
	return path, os.WriteFile(path, buf, 0o644)
}
