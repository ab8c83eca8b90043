package transfer

import (
	"context"
	"time"
)

// RetryPolicy bounds how long a transfer keeps trying. The zero value
// retries forever.
type RetryPolicy struct {
	// MaxAttempts is the number of tries a single chunk gets before the
	// transfer fails with ErrRetryLimit. For the sender every write of the
	// chunk counts; for the receiver every frame read that does not
	// advance the transfer counts. Zero means unlimited.
	MaxAttempts int

	// Deadline bounds a whole Send or Receive call. Zero means no deadline.
	Deadline time.Duration
}

// context applies the deadline to ctx.
func (p RetryPolicy) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Deadline > 0 {
		return context.WithTimeout(ctx, p.Deadline)
	}
	return context.WithCancel(ctx)
}

// exhausted reports whether attempts have used up the policy.
func (p RetryPolicy) exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}
