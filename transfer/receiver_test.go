package transfer

import (
	"bytes"
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/progrium/itp-go/frame"
)

// preload queues the wire frames of buf's chunks in the given order.
func preload(ch *fakeChannel, buf []byte, order ...int) {
	chunks := Chunks(buf, frame.MaxPayload)
	for _, i := range order {
		ch.in.Write(frame.EncodeData(chunks[i], uint16(i), uint16(len(chunks))))
	}
}

func TestReceiveInOrder(t *testing.T) {
	buf := sequence(45)
	ch := &fakeChannel{}
	preload(ch, buf, 0, 1, 2)

	got, err := Receive(context.Background(), ch, 0)
	fatal(err, t)
	if !bytes.Equal(got, buf) {
		t.Fatalf("got %v, want %v", got, buf)
	}
	expectFrames(t, ch.frames(t), frame.Ack(0, 3), frame.Ack(1, 3), frame.Ack(2, 3))
}

func TestReceiveDuplicate(t *testing.T) {
	buf := sequence(45)
	ch := &fakeChannel{}
	preload(ch, buf, 0, 0, 1, 0, 1, 2)

	var lengths []int
	r := &Receiver{Progress: func(received, total int) {
		lengths = append(lengths, received)
	}}
	got, err := r.Receive(context.Background(), ch, 0)
	fatal(err, t)
	if !bytes.Equal(got, buf) {
		t.Fatalf("duplicate appended: got %d bytes", len(got))
	}
	expectFrames(t, ch.frames(t),
		frame.Ack(0, 3), frame.Ack(0, 3), frame.Ack(1, 3),
		frame.Ack(0, 3), frame.Ack(1, 3), frame.Ack(2, 3),
	)
	if len(lengths) != 3 {
		t.Fatalf("progress reported %v", lengths)
	}
}

func TestReceiveGap(t *testing.T) {
	buf := sequence(45)
	ch := &fakeChannel{}
	preload(ch, buf, 0, 2, 1, 2)

	got, err := Receive(context.Background(), ch, 0)
	fatal(err, t)
	if !bytes.Equal(got, buf) {
		t.Fatal("buffer mismatch after gap")
	}
	expectFrames(t, ch.frames(t),
		frame.Ack(0, 3), frame.Nack(1, 3), frame.Ack(1, 3), frame.Ack(2, 3),
	)
}

func TestReceiveGapFirst(t *testing.T) {
	// the first valid frame fixes total even when it is out of order
	buf := sequence(45)
	ch := &fakeChannel{}
	preload(ch, buf, 1, 0, 1, 2)

	got, err := Receive(context.Background(), ch, 0)
	fatal(err, t)
	if !bytes.Equal(got, buf) {
		t.Fatal("buffer mismatch")
	}
	expectFrames(t, ch.frames(t),
		frame.Nack(0, 3), frame.Ack(0, 3), frame.Ack(1, 3), frame.Ack(2, 3),
	)
}

func TestReceiveInvalid(t *testing.T) {
	buf := sequence(30)
	chunks := Chunks(buf, frame.MaxPayload)

	corrupt := frame.EncodeData(chunks[0], 0, 2)
	corrupt[frame.HeaderLen+3] ^= 0x01

	ch := &fakeChannel{}
	ch.in.Write(corrupt)
	ch.in.Write(frame.EncodeAck(0, 2))
	ch.in.Write(frame.EncodeData(chunks[0], 0, 2))
	ch.in.Write(frame.EncodeData(nil, 0, 0))
	ch.in.Write(frame.EncodeData(chunks[1], 1, 2))

	got, err := Receive(context.Background(), ch, 0)
	fatal(err, t)
	if !bytes.Equal(got, buf) {
		t.Fatal("buffer mismatch")
	}
	expectFrames(t, ch.frames(t),
		frame.Nack(0, 0), frame.Nack(0, 0), frame.Ack(0, 2), frame.Nack(1, 2), frame.Ack(1, 2),
	)
}

func TestReceiveTotalFixed(t *testing.T) {
	buf := sequence(40)
	chunks := Chunks(buf, frame.MaxPayload)
	ch := &fakeChannel{}
	ch.in.Write(frame.EncodeData(chunks[0], 0, 2))
	ch.in.Write(frame.EncodeData(chunks[1], 1, 5))

	got, err := Receive(context.Background(), ch, 0)
	fatal(err, t)
	if !bytes.Equal(got, buf) {
		t.Fatal("buffer mismatch")
	}
	expectFrames(t, ch.frames(t), frame.Ack(0, 2), frame.Ack(1, 2))
}

func TestReceiveRetryLimit(t *testing.T) {
	ch := &fakeChannel{}
	r := &Receiver{Retry: RetryPolicy{MaxAttempts: 3}}
	_, err := r.Receive(context.Background(), ch, 0)
	if !errors.Is(err, ErrRetryLimit) {
		t.Fatalf("expected ErrRetryLimit, got %v", err)
	}
	expectFrames(t, ch.frames(t), frame.Nack(0, 0), frame.Nack(0, 0), frame.Nack(0, 0))
}

func TestReceiveTooLarge(t *testing.T) {
	ch := &fakeChannel{}
	preload(ch, sequence(45), 0, 1, 2)

	_, err := Receive(context.Background(), ch, 30)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	expectFrames(t, ch.frames(t), frame.Ack(0, 3), frame.Error())
}

func TestReceiveTooLargeClosed(t *testing.T) {
	ch := &fakeChannel{}
	ch.respond = func([]byte) []byte {
		ch.writeErr = syscall.EPIPE
		return nil
	}
	preload(ch, sequence(45), 0, 1, 2)

	_, err := Receive(context.Background(), ch, 30)
	if !errors.Is(err, ErrClosed) || !errors.Is(err, syscall.EPIPE) {
		t.Fatalf("expected ErrClosed wrapping EPIPE, got %v", err)
	}
}

func TestReceiveReadErrorWaits(t *testing.T) {
	ch := &fakeChannel{readErr: errors.New("framing error")}
	r := &Receiver{PollTimeout: 20 * time.Millisecond, Retry: RetryPolicy{MaxAttempts: 3}}
	start := time.Now()
	if _, err := r.Receive(context.Background(), ch, 0); !errors.Is(err, ErrRetryLimit) {
		t.Fatalf("expected ErrRetryLimit, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("retried without waiting: %s", elapsed)
	}
	if ch.reads != 3 {
		t.Fatalf("%d reads, want 3", ch.reads)
	}
}

func TestReceiveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := &fakeChannel{}
	preload(ch, sequence(10), 0)
	if _, err := Receive(ctx, ch, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReceiveClosed(t *testing.T) {
	ch := &fakeChannel{closed: true}
	if _, err := Receive(context.Background(), ch, 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
