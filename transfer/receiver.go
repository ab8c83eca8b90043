package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/progrium/itp-go/frame"
	"github.com/rs/xid"
)

// Receiver reassembles buffers sent by a Sender.
type Receiver struct {
	// PollTimeout bounds each wait for frame bytes. Zero means
	// DefaultPollTimeout.
	PollTimeout time.Duration

	// Retry bounds how long the receiver waits without progress. The zero
	// value waits forever.
	Retry RetryPolicy

	// Progress is called after each new chunk is appended.
	Progress func(received, total int)

	Logger *slog.Logger
}

// Receive reads chunks from ch until the whole buffer announced by the
// first valid DataSend frame has arrived, and returns it.
//
// In-order chunks are appended and acknowledged. Duplicates are
// acknowledged again but not appended, so a sender whose Ack was lost can
// move on. Chunks from beyond a gap, corrupt frames and silence are all
// answered with a Nack for the next expected chunk. When maxSize is
// positive and the buffer would grow past it, the receiver sends Err and
// fails with ErrTooLarge.
func (r *Receiver) Receive(ctx context.Context, ch Channel, maxSize int) ([]byte, error) {
	ctx, cancel := r.Retry.context(ctx)
	defer cancel()

	log := logger(r.Logger).With("session", xid.New().String(), "role", "receiver")
	enc := frame.NewEncoder(ch)
	rd := frame.NewReader(ch, pollTimeout(r.PollTimeout))

	var (
		out      []byte
		expected uint16
		total    = -1 // unknown until the first valid DataSend
		stalled  int
		start    = time.Now()
	)

	reply := func(f frame.Frame) error {
		log.Debug("send frame", "frame", f)
		err := enc.Encode(f)
		if err != nil && isClosed(err) {
			return closed(err)
		}
		// a lost reply is recovered by the sender timing out
		return nil
	}
	nack := func() error {
		var t uint16
		if total >= 0 {
			t = uint16(total)
		}
		return reply(frame.Nack(expected, t))
	}

	for int(expected) != total {
		if r.Retry.exhausted(stalled) {
			err := fmt.Errorf("%w: chunk %d after %d attempts", ErrRetryLimit, expected, stalled)
			log.Warn("receive failed", "error", err)
			return nil, err
		}
		stalled++

		b, err := rd.ReadFrame(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if isClosed(err) {
				return nil, closed(err)
			}
			log.Debug("no frame", "error", err)
			if !errors.Is(err, frame.ErrTimeout) {
				wait(ctx, rd.Timeout())
			}
			if err := nack(); err != nil {
				return nil, err
			}
			continue
		}

		in, err := frame.Decode(b)
		if err != nil || in.Kind != frame.KindDataSend || in.Total == 0 {
			log.Debug("invalid frame", "bytes", len(b))
			if err := nack(); err != nil {
				return nil, err
			}
			continue
		}
		log.Debug("recv frame", "frame", in)

		if total < 0 {
			total = int(in.Total)
			log.Info("receive started", "chunks", total)
		}

		if in.Sequence > expected {
			if err := nack(); err != nil {
				return nil, err
			}
			continue
		}

		if in.Sequence == expected && maxSize > 0 && len(out)+len(in.Payload) > maxSize {
			if err := reply(frame.Error()); err != nil {
				return nil, err
			}
			err := fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxSize)
			log.Warn("receive failed", "error", err)
			return nil, err
		}

		if err := reply(frame.Ack(in.Sequence, uint16(total))); err != nil {
			return nil, err
		}

		if in.Sequence == expected {
			out = append(out, in.Payload...)
			expected++
			stalled = 0
			if r.Progress != nil {
				r.Progress(int(expected), total)
			}
		}
	}

	log.Info("receive complete", "bytes", len(out), "elapsed", time.Since(start))
	return out, nil
}
