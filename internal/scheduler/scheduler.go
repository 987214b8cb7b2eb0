package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/probe"
	"github.com/hamed0406/siteprobe/internal/repo"
	"github.com/hamed0406/siteprobe/internal/repo/memory"
)

var (
	ErrNoAction   = errors.New("probe action is not configured")
	ErrBadTimeout = errors.New("attempt timeout must be positive")
	ErrNoLimiter  = errors.New("limiter is not configured")
)

// ProgressFunc is called once per finished domain, from a single goroutine.
type ProgressFunc func(done, total int, r *domain.ProbeResult)

// Scheduler probes a list of domains with bounded parallelism. Every domain
// runs its own fallback chain; results are funnelled to one aggregator.
type Scheduler struct {
	Logger     *zap.Logger
	Chain      *probe.Chain
	Classifier probe.Classifier
	Limiter    *Limiter
	// Sink optionally receives every result in addition to the in-memory collector.
	Sink     repo.ResultSink
	Progress ProgressFunc

	DNSDiagnostics bool
	Resolver       probe.Resolver
}

func New(logger *zap.Logger, chain *probe.Chain, classifier probe.Classifier, limiter *Limiter) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = probe.StatusClassifier
	}
	return &Scheduler{Logger: logger, Chain: chain, Classifier: classifier, Limiter: limiter}
}

// Validate reports every configuration problem that would make a run meaningless.
func (s *Scheduler) Validate() error {
	var err error
	if s.Limiter == nil {
		err = multierr.Append(err, ErrNoLimiter)
	} else if s.Limiter.Size() < 1 {
		err = multierr.Append(err, ErrInvalidConcurrency)
	}
	if s.Chain == nil || s.Chain.Action == nil {
		err = multierr.Append(err, ErrNoAction)
	}
	if s.Chain != nil {
		if len(s.Chain.Schemes) == 0 {
			err = multierr.Append(err, domain.ErrNoSchemes)
		}
		if s.Chain.Timeout <= 0 {
			err = multierr.Append(err, ErrBadTimeout)
		}
	}
	return err
}

// Run probes every domain and returns exactly one result per input entry, in
// completion order. When ctx is cancelled the remaining domains resolve as
// exhausted and ctx.Err() is returned alongside the full result set.
func (s *Scheduler) Run(ctx context.Context, domains []string) ([]domain.ProbeResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	classifier := s.Classifier
	if classifier == nil {
		classifier = probe.StatusClassifier
	}

	total := len(domains)
	started := time.Now()
	log.Info("run_started",
		zap.Int("domains", total),
		zap.Int("concurrency", s.Limiter.Size()),
		zap.Duration("timeout", s.Chain.Timeout),
		zap.Any("schemes", s.Chain.Schemes),
	)

	collector := memory.NewCollector(total)
	results := make(chan domain.ProbeResult)
	aggDone := make(chan struct{})

	go func() {
		defer close(aggDone)
		done := 0
		for r := range results {
			done++
			collector.Add(r)
			if s.Sink != nil {
				// the run context may already be cancelled; history should still be written
				if err := s.Sink.Append(context.WithoutCancel(ctx), &r); err != nil {
					log.Warn("result_sink_error", zap.String("domain", r.Domain), zap.Error(err))
				}
			}
			log.Info("probe_finished",
				zap.Int("done", done),
				zap.Int("total", total),
				zap.String("domain", r.Domain),
				zap.Stringer("classification", r.Classification),
				zap.String("final_url", r.FinalURL),
				zap.String("artifact", r.Artifact.String()),
				zap.Int("attempts", r.Attempts),
				zap.Duration("duration", r.Duration),
			)
			if s.Progress != nil {
				s.Progress(done, total, &r)
			}
		}
	}()

	var wg sync.WaitGroup
	for i, d := range domains {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.probe(ctx, classifier, i, d)
		}()
	}
	wg.Wait()
	close(results)
	<-aggDone

	out := collector.Results()
	log.Info("run_finished",
		zap.Int("domains", total),
		zap.Int("results", len(out)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return out, ctx.Err()
}

func (s *Scheduler) probe(ctx context.Context, classifier probe.Classifier, idx int, d string) domain.ProbeResult {
	start := time.Now()
	r := domain.ProbeResult{Index: idx, Domain: d}

	if err := s.Limiter.Acquire(ctx); err != nil {
		out := domain.Outcome{Kind: domain.OutcomeExhausted, Cause: domain.CauseNetwork}
		r.Classification = classifier.Classify(out)
		r.Detail = "cancelled before start"
		r.Duration = time.Since(start)
		r.CheckedAt = time.Now().UTC()
		return r
	}
	defer s.Limiter.Release()

	res := s.Chain.Resolve(ctx, d)
	r.Attempts = len(res.Attempts)
	r.Classification = classifier.Classify(res.Outcome)
	if res.Outcome.Succeeded() {
		r.FinalURL = res.Outcome.FinalURL
		r.Artifact = res.Outcome.Artifact
		r.Scheme = res.Outcome.Scheme
	} else {
		if n := len(res.Attempts); n > 0 && res.Attempts[n-1].Err != nil {
			r.Detail = res.Attempts[n-1].Err.Error()
		}
		if s.DNSDiagnostics && ctx.Err() == nil {
			diag := "dns=" + probe.CheckDNS(ctx, s.Resolver, d).Class
			if r.Detail != "" {
				diag = r.Detail + "; " + diag
			}
			r.Detail = diag
		}
	}
	r.Duration = time.Since(start)
	r.CheckedAt = time.Now().UTC()
	return r
}
