package retry

import (
	"time"

	"callbridge/pkg/models"
)

// Policy decides whether a failed invocation should be re-dispatched.
// It is only ever consulted for server errors and transport failures;
// binding errors, client errors and decode failures are terminal.
type Policy interface {
	// Next returns the delay before attempt n+1 (attempt is 1-based and
	// counts the attempt that just failed) and whether to retry at all.
	Next(attempt int, out *models.Outcome) (time.Duration, bool)
}

// None is the default policy: every outcome is terminal.
type None struct{}

func (None) Next(int, *models.Outcome) (time.Duration, bool) { return 0, false }

// Backoff retries up to MaxAttempts with capped exponential delays.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (b Backoff) Next(attempt int, out *models.Outcome) (time.Duration, bool) {
	if attempt >= b.MaxAttempts {
		return 0, false
	}
	if out != nil && out.Kind == models.KindTransportFailure && out.Reason == models.FailureCancelled {
		return 0, false
	}
	d := b.BaseDelay
	if d <= 0 {
		d = 100 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.MaxDelay > 0 && d >= b.MaxDelay {
			return b.MaxDelay, true
		}
	}
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	return d, true
}
