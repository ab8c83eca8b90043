package transfer

import (
	"bytes"
	"io"
	"os"
	"testing"
	"time"

	"github.com/progrium/itp-go/frame"
)

func fatal(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// fakeChannel is a single goroutine Channel. Reads are served from in and
// time out immediately once it is empty; every complete write is recorded
// and may queue a scripted reply.
type fakeChannel struct {
	in          bytes.Buffer
	written     [][]byte
	respond     func(b []byte) []byte
	shortWrites int
	idle        time.Duration
	closed      bool
	writeErr    error
	readErr     error
	reads       int
}

func (c *fakeChannel) Read(p []byte) (int, error) {
	c.reads++
	if c.closed {
		return 0, io.EOF
	}
	if c.readErr != nil {
		return 0, c.readErr
	}
	if c.in.Len() == 0 {
		time.Sleep(c.idle)
		return 0, os.ErrDeadlineExceeded
	}
	return c.in.Read(p)
}

func (c *fakeChannel) Write(p []byte) (int, error) {
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	if c.shortWrites > 0 {
		c.shortWrites--
		return len(p) - 1, nil
	}
	c.written = append(c.written, append([]byte(nil), p...))
	if c.respond != nil {
		c.in.Write(c.respond(p))
	}
	return len(p), nil
}

func (c *fakeChannel) SetReadTimeout(time.Duration) error {
	return nil
}

func (c *fakeChannel) frames(t *testing.T) []frame.Frame {
	t.Helper()
	var out []frame.Frame
	for _, b := range c.written {
		f, err := frame.Decode(b)
		fatal(err, t)
		out = append(out, f)
	}
	return out
}

func mustDecode(t *testing.T, b []byte) frame.Frame {
	t.Helper()
	f, err := frame.Decode(b)
	fatal(err, t)
	return f
}

// sequence returns a buffer of n bytes counting up from 0.
func sequence(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func expectFrames(t *testing.T, got []frame.Frame, want ...frame.Frame) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d frames %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i].Kind != want[i].Kind || got[i].Sequence != want[i].Sequence || got[i].Total != want[i].Total {
			t.Fatalf("frame %d: got %s, want %s", i, got[i], want[i])
		}
	}
}
