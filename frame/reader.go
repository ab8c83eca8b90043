package frame

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"time"
)

// ErrTimeout is returned by ReadFrame when the channel stays silent for a
// whole poll timeout, whether before the first byte or part way through a
// frame.
var ErrTimeout = errors.New("itp: frame read timed out")

// Channel is the byte stream a Reader pulls frames from. Reads may return
// fewer bytes than asked for. After SetReadTimeout, a Read that waits longer
// than d fails with an error matching os.ErrDeadlineExceeded, or returns
// zero bytes and no error.
type Channel interface {
	io.Reader
	SetReadTimeout(d time.Duration) error
}

// Reader reassembles whole frames from a Channel that does not preserve
// message boundaries.
type Reader struct {
	ch      Channel
	timeout time.Duration
	buf     [MaxFrameLen]byte
}

// NewReader returns a Reader that waits at most timeout for each read.
func NewReader(ch Channel, timeout time.Duration) *Reader {
	return &Reader{ch: ch, timeout: timeout}
}

// Timeout is the wait applied to each read.
func (r *Reader) Timeout() time.Duration {
	return r.timeout
}

// ReadFrame reads the bytes of exactly one frame. The header is read first;
// once its kind and length are known, a DataSend frame's payload is read
// until the frame is complete. The channel is never read past the end of
// the frame. Partial data is dropped on timeout.
//
// The bytes are not verified; pass them to Decode. The returned slice is
// only valid until the next call.
func (r *Reader) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := r.ch.SetReadTimeout(r.timeout); err != nil {
		return nil, err
	}

	want := HeaderLen
	n := 0
	for n < want {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := r.ch.Read(r.buf[n:want])
		n += m
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, err
		}
		if m == 0 {
			return nil, ErrTimeout
		}
		if want == HeaderLen && n == HeaderLen {
			want = frameLen(r.buf[:HeaderLen])
		}
	}
	return r.buf[:n], nil
}

// frameLen is the full wire length implied by a tentative header. Lengths
// that cannot fit a read buffer are not trusted; the header alone is
// returned and fails verification.
func frameLen(header []byte) int {
	if Kind(header[2]) != KindDataSend {
		return HeaderLen
	}
	size := HeaderLen + int(binary.BigEndian.Uint16(header[7:9]))
	if size > MaxFrameLen {
		return HeaderLen
	}
	return size
}
