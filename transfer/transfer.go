package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// DefaultPollTimeout is how long a side waits for the next bytes of a frame
// when no PollTimeout is configured.
const DefaultPollTimeout = time.Second

// Channel is the exclusively owned byte stream a transfer runs over.
type Channel interface {
	io.ReadWriter
	SetReadTimeout(d time.Duration) error
}

// Send transfers buf with a default Sender.
func Send(ctx context.Context, ch Channel, buf []byte) error {
	return new(Sender).Send(ctx, ch, buf)
}

// Receive receives one buffer with a default Receiver.
func Receive(ctx context.Context, ch Channel, maxSize int) ([]byte, error) {
	return new(Receiver).Receive(ctx, ch, maxSize)
}

func pollTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPollTimeout
	}
	return d
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

// wait blocks for d or until ctx is done. Read errors that return at once
// wait out a poll this way so a broken channel cannot spin a retry loop.
func wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func closed(err error) error {
	return fmt.Errorf("%w: %w", ErrClosed, err)
}
