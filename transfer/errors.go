package transfer

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

var (
	// ErrAborted means the peer answered with an Err frame.
	ErrAborted = errors.New("itp: transfer aborted by peer")

	// ErrUnexpectedFrame means the sender got a valid frame it has no
	// transition for while waiting for an acknowledgement.
	ErrUnexpectedFrame = errors.New("itp: unexpected frame")

	// ErrRetryLimit means a chunk used up RetryPolicy.MaxAttempts.
	ErrRetryLimit = errors.New("itp: retry limit exceeded")

	// ErrClosed means the channel was closed underneath the transfer.
	ErrClosed = errors.New("itp: channel closed")

	// ErrEmpty is returned when asked to send nothing.
	ErrEmpty = errors.New("itp: empty buffer")

	// ErrTooLarge is returned when a buffer needs more chunks than a frame
	// can number, or exceeds the receiver's size limit.
	ErrTooLarge = errors.New("itp: buffer too large")
)

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
