package probe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/siteprobe/internal/domain"
)

// Attempt records one resolved step of a fallback chain.
type Attempt struct {
	Scheme  domain.Scheme
	Cause   domain.Cause
	Err     error
	Elapsed time.Duration
}

// Resolution is the terminal state of a chain for one domain.
type Resolution struct {
	Outcome  domain.Outcome
	Attempts []Attempt
}

// Chain tries each scheme in order, stopping at the first success.
// A scheme that failed is never retried for the same domain.
type Chain struct {
	Action  Action
	Schemes []domain.Scheme
	Timeout time.Duration
	Logger  *zap.Logger
}

func NewChain(action Action, schemes []domain.Scheme, timeout time.Duration, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{Action: action, Schemes: schemes, Timeout: timeout, Logger: logger}
}

func (c *Chain) Resolve(ctx context.Context, d string) Resolution {
	res := Resolution{Attempts: make([]Attempt, 0, len(c.Schemes))}
	allTLS := len(c.Schemes) > 0

	for _, s := range c.Schemes {
		start := time.Now()
		out := c.attempt(ctx, d, s)
		elapsed := time.Since(start)

		if out.Succeeded() {
			out.Scheme = s
			res.Attempts = append(res.Attempts, Attempt{Scheme: s, Elapsed: elapsed})
			res.Outcome = out
			return res
		}

		res.Attempts = append(res.Attempts, Attempt{Scheme: s, Cause: out.Cause, Err: out.Err, Elapsed: elapsed})
		if out.Cause != domain.CauseTLS {
			allTLS = false
		}
		c.Logger.Debug("probe_attempt_failed",
			zap.String("domain", d),
			zap.String("scheme", string(s)),
			zap.Stringer("cause", out.Cause),
			zap.Duration("elapsed", elapsed),
			zap.Error(out.Err),
		)
	}

	cause := domain.CauseNetwork
	if allTLS {
		cause = domain.CauseTLS
	}
	res.Outcome = domain.Outcome{Kind: domain.OutcomeExhausted, Cause: cause}
	return res
}

func (c *Chain) attempt(ctx context.Context, d string, s domain.Scheme) (out domain.Outcome) {
	actx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			out = domain.Failure(s, domain.CauseUnknown, fmt.Errorf("probe action panicked: %v", r))
		}
	}()

	out = c.Action.Attempt(actx, d, s)
	if out.Kind != domain.OutcomeSuccess && out.Kind != domain.OutcomeFailure {
		out = domain.Failure(s, domain.CauseUnknown, fmt.Errorf("probe action returned outcome kind %d", out.Kind))
	}
	return out
}
