package scheduler

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var ErrInvalidConcurrency = errors.New("concurrency must be at least 1")

// Limiter caps the number of probe tasks doing I/O at once.
type Limiter struct {
	n        int64
	sem      *semaphore.Weighted
	pace     *rate.Limiter
	inFlight atomic.Int64
}

// NewLimiter returns a limiter with n permits. launchRPS > 0 also paces how
// fast permitted tasks may start; 0 leaves launches unpaced.
func NewLimiter(n int, launchRPS float64) (*Limiter, error) {
	if n < 1 {
		return nil, ErrInvalidConcurrency
	}
	l := &Limiter{n: int64(n), sem: semaphore.NewWeighted(int64(n))}
	if launchRPS > 0 {
		burst := min(n, int(launchRPS))
		if burst < 1 {
			burst = 1
		}
		l.pace = rate.NewLimiter(rate.Limit(launchRPS), burst)
	}
	return l, nil
}

// Acquire blocks until a permit is free. It fails only when ctx is done,
// in which case no permit is held.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if l.pace != nil {
		if err := l.pace.Wait(ctx); err != nil {
			l.sem.Release(1)
			return err
		}
	}
	l.inFlight.Add(1)
	return nil
}

func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// InFlight reports how many permits are currently held.
func (l *Limiter) InFlight() int { return int(l.inFlight.Load()) }

func (l *Limiter) Size() int { return int(l.n) }
