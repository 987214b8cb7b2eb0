// Package runner assembles a probe run from configuration: the action for
// the variant, the scheme chain, the limiter and the scheduler.
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/siteprobe/internal/config"
	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/probe"
	"github.com/hamed0406/siteprobe/internal/repo"
	"github.com/hamed0406/siteprobe/internal/scheduler"
)

type Runner struct {
	Config   config.Config
	Variant  domain.Variant
	Logger   *zap.Logger
	Progress scheduler.ProgressFunc
}

func New(cfg config.Config, v domain.Variant, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Config: cfg, Variant: v, Logger: logger}
}

// Run probes domains and streams each result into sink (which may be nil).
// Configuration problems fail the run before any domain is contacted.
func (r *Runner) Run(ctx context.Context, domains []string, sink repo.ResultSink) ([]domain.ProbeResult, error) {
	if err := r.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	schemes, err := r.Config.ParsedSchemes()
	if err != nil {
		return nil, err
	}
	n, timeout := r.Config.ForVariant(r.Variant)
	limiter, err := scheduler.NewLimiter(n, r.Config.LaunchRPS)
	if err != nil {
		return nil, err
	}

	action, release, err := r.action(ctx, n)
	if err != nil {
		return nil, err
	}
	defer release()

	chain := probe.NewChain(action, schemes, timeout, r.Logger)
	s := scheduler.New(r.Logger, chain, probe.ClassifierFor(r.Variant), limiter)
	s.Sink = sink
	s.Progress = r.Progress
	s.DNSDiagnostics = r.Config.DNSDiagnostics
	return s.Run(ctx, domains)
}

func (r *Runner) action(ctx context.Context, n int) (probe.Action, func(), error) {
	c := r.Config
	switch r.Variant {
	case domain.VariantCapture:
		a, release, err := probe.NewCaptureAction(ctx, probe.CaptureOptions{
			Dir:                c.ScreenshotDir,
			Width:              c.ViewportWidth,
			Height:             c.ViewportHeight,
			Settle:             c.Settle,
			ExecPath:           c.ChromePath,
			InsecureSkipVerify: c.InsecureTLS,
			UserAgent:          c.UserAgent,
		})
		if err != nil {
			return nil, nil, err
		}
		return a, release, nil
	case domain.VariantStatus, "":
		return probe.NewHTTPAction(probe.HTTPOptions{
			InsecureSkipVerify: c.InsecureTLS,
			MaxRedirects:       c.MaxRedirects,
			UserAgent:          c.UserAgent,
			MaxConns:           n,
		}), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown variant %q", r.Variant)
}
