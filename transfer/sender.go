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

// Sender sends buffers as a sequence of acknowledged chunks.
type Sender struct {
	// PollTimeout bounds each wait for reply bytes. Zero means
	// DefaultPollTimeout.
	PollTimeout time.Duration

	// Retry bounds retransmission. The zero value retries forever.
	Retry RetryPolicy

	// StrictAcks makes Ack and Nack frames that name a chunk other than
	// the outstanding one count as noise. By default any valid Ack or Nack
	// is acted on whatever chunk it names.
	StrictAcks bool

	// Progress is called after each chunk is acknowledged.
	Progress func(acked, total int)

	Logger *slog.Logger
}

// Send transfers buf over ch. It returns nil once every chunk has been
// acknowledged in order. It fails with ErrAborted when the peer sends Err,
// with ErrUnexpectedFrame on any other frame it cannot act on, and with
// ErrRetryLimit or a context error when the retry policy runs out. The
// remaining chunks are abandoned on failure.
func (s *Sender) Send(ctx context.Context, ch Channel, buf []byte) error {
	if err := checkSendable(buf, frame.MaxPayload); err != nil {
		return err
	}
	ctx, cancel := s.Retry.context(ctx)
	defer cancel()

	chunks := Chunks(buf, frame.MaxPayload)
	total := uint16(len(chunks))
	log := logger(s.Logger).With("session", xid.New().String(), "role", "sender")
	log.Info("send started", "bytes", len(buf), "chunks", total)

	enc := frame.NewEncoder(ch)
	r := frame.NewReader(ch, pollTimeout(s.PollTimeout))
	start := time.Now()
	for i, chunk := range chunks {
		out := frame.Data(chunk, uint16(i), total)
		if err := s.deliver(ctx, log, enc, r, out); err != nil {
			log.Warn("send failed", "chunk", i, "error", err)
			return err
		}
		if s.Progress != nil {
			s.Progress(i+1, int(total))
		}
	}
	log.Info("send complete", "bytes", len(buf), "elapsed", time.Since(start))
	return nil
}

// deliver sends one chunk until it is acknowledged.
func (s *Sender) deliver(ctx context.Context, log *slog.Logger, enc *frame.Encoder, r *frame.Reader, out frame.Frame) error {
	for attempt := 0; ; attempt++ {
		if s.Retry.exhausted(attempt) {
			return fmt.Errorf("%w: chunk %d after %d attempts", ErrRetryLimit, out.Sequence, attempt)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Debug("send frame", "frame", out, "attempt", attempt+1)
		if err := enc.Encode(out); err != nil {
			if isClosed(err) {
				return closed(err)
			}
			// the read below still waits one poll before the next attempt
			log.Debug("write failed", "error", err)
		}

		b, err := r.ReadFrame(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if isClosed(err) {
				return closed(err)
			}
			log.Debug("no reply", "error", err)
			if !errors.Is(err, frame.ErrTimeout) {
				wait(ctx, r.Timeout())
			}
			continue
		}
		in, err := frame.Decode(b)
		if err != nil {
			log.Debug("invalid reply", "bytes", len(b))
			continue
		}
		log.Debug("recv frame", "frame", in)

		switch in.Kind {
		case frame.KindAck:
			if s.StrictAcks && in.Sequence != out.Sequence {
				continue
			}
			return nil
		case frame.KindNack:
			continue
		case frame.KindErr:
			return ErrAborted
		default:
			return fmt.Errorf("%w: %s", ErrUnexpectedFrame, in)
		}
	}
}
