package oracle

import (
	"context"
	"time"
)

// rpsLimiter throttles oracle calls to at most rps per second using a
// refilled channel as the token bucket. A nil limiter is a no-op, so
// callers never have to branch on whether limiting is configured.
type rpsLimiter struct {
	bucket chan struct{}
	done   chan struct{}
}

// newRPSLimiter returns a limiter for rps events per second with the
// given burst capacity, or nil when rps <= 0.
func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	l := &rpsLimiter{
		bucket: make(chan struct{}, burst),
		done:   make(chan struct{}),
	}
	for i := 0; i < burst; i++ {
		l.bucket <- struct{}{}
	}
	go l.refill(rps)
	return l
}

// refill adds one token per interval. Fractional rps stretches the
// interval past a second (0.25 rps is one token every 4s).
func (l *rpsLimiter) refill(rps float64) {
	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			select {
			case l.bucket <- struct{}{}:
			default:
				// full, token lost
			}
		case <-l.done:
			return
		}
	}
}

// Acquire blocks until a token is available, the context is canceled,
// or the limiter is stopped.
func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return context.Canceled
	case <-l.bucket:
		return nil
	}
}

// Stop ends the refill goroutine. Call at most once.
func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	close(l.done)
}
