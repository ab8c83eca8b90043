package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/progrium/itp-go/transport"
	"github.com/spf13/cobra"
)

var checkSizes = []int{45, 1 << 10, 16 << 10, 64 << 10}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "run a loopback transfer self-test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return check(cmd.Context())
		},
	}
}

func check(ctx context.Context) error {
	l, err := transport.ListenTCP("127.0.0.1:0")
	if err != nil {
		return err
	}
	defer l.Close()

	for _, size := range checkSizes {
		elapsed, err := checkOnce(ctx, l, size)
		if err != nil {
			return fmt.Errorf("check %s: %w", humanize(size), err)
		}
		rate := float64(size) / elapsed.Seconds()
		fmt.Printf("%8s  %10s  %s/s\n", humanize(size), elapsed.Round(time.Microsecond), humanize(int(rate)))
	}
	fmt.Println("OK")
	return nil
}

func checkOnce(ctx context.Context, l *transport.NetListener, size int) (time.Duration, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return 0, err
	}

	sender, err := transport.DialTCP(l.Addr().String())
	if err != nil {
		return 0, err
	}
	defer sender.Close()
	receiver, err := l.Accept()
	if err != nil {
		return 0, err
	}
	defer receiver.Close()

	start := time.Now()
	sent := make(chan error, 1)
	go func() {
		sent <- cfg.Sender(log).Send(ctx, sender, buf)
	}()
	got, err := cfg.Receiver(log).Receive(ctx, receiver, 0)
	if err != nil {
		return 0, err
	}
	if err := <-sent; err != nil {
		return 0, err
	}
	elapsed := time.Since(start)

	if !bytes.Equal(got, buf) {
		return 0, errors.New("received buffer differs from the one sent")
	}
	return elapsed, nil
}
