package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/probe"
	"github.com/hamed0406/siteprobe/internal/repo/memory"
)

// --- fakes ---

// scripted answers per "domain|scheme"; missing keys fail with a network cause.
type scripted map[string]domain.Outcome

func (s scripted) Attempt(ctx context.Context, d string, sc domain.Scheme) domain.Outcome {
	if out, ok := s[d+"|"+string(sc)]; ok {
		return out
	}
	return domain.Failure(sc, domain.CauseNetwork, errors.New("connection refused"))
}

func ok(code int, url string) domain.Outcome {
	return domain.Success("", url, domain.Artifact{StatusCode: code})
}

// gauge tracks the peak number of concurrent attempts.
type gauge struct {
	cur, peak atomic.Int64
	delay     time.Duration
}

func (g *gauge) Attempt(ctx context.Context, d string, sc domain.Scheme) domain.Outcome {
	n := g.cur.Add(1)
	defer g.cur.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
		return domain.Failure(sc, domain.CauseNetwork, ctx.Err())
	}
	return ok(200, sc.URL(d))
}

func newScheduler(t *testing.T, action probe.Action, n int) *Scheduler {
	t.Helper()
	lim, err := NewLimiter(n, 0)
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}
	chain := probe.NewChain(action, domain.DefaultSchemes(), time.Second, nil)
	return New(zap.NewNop(), chain, probe.StatusClassifier, lim)
}

func byDomain(rs []domain.ProbeResult) map[string]domain.ProbeResult {
	m := make(map[string]domain.ProbeResult, len(rs))
	for _, r := range rs {
		m[r.Domain] = r
	}
	return m
}

// --- tests ---

func TestScheduler_FallbackScenario(t *testing.T) {
	action := scripted{
		"a.test|https": ok(200, "https://a.test"),
		"b.test|http":  ok(301, "http://b.test"),
	}
	s := newScheduler(t, action, 1)

	rs, err := s.Run(context.Background(), []string{"a.test", "b.test"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rs) != 2 {
		t.Fatalf("want 2 results, got %d", len(rs))
	}
	m := byDomain(rs)
	a, b := m["a.test"], m["b.test"]
	if a.Classification != domain.Live || a.FinalURL != "https://a.test" || a.Artifact.StatusCode != 200 || a.Attempts != 1 {
		t.Fatalf("a.test: %+v", a)
	}
	if b.Classification != domain.LiveRedirect || b.FinalURL != "http://b.test" || b.Scheme != domain.SchemeHTTP || b.Attempts != 2 {
		t.Fatalf("b.test: %+v", b)
	}
	if a.Index != 0 || b.Index != 1 {
		t.Fatalf("input positions lost: a=%d b=%d", a.Index, b.Index)
	}
}

func TestScheduler_ExhaustedHasNoArtifact(t *testing.T) {
	s := newScheduler(t, scripted{}, 2)
	rs, err := s.Run(context.Background(), []string{"y.test"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	r := rs[0]
	if r.Classification != domain.OfflineOrTimeout {
		t.Fatalf("want OFFLINE_OR_TIMEOUT, got %s", r.Classification)
	}
	if !r.Artifact.IsZero() || r.FinalURL != "" {
		t.Fatalf("exhausted result must carry no artifact: %+v", r)
	}
	if r.Attempts != 2 || r.Detail == "" {
		t.Fatalf("attempts/detail not recorded: %+v", r)
	}
}

func TestScheduler_UniformTLSFailureIsSSLError(t *testing.T) {
	tlsErr := errors.New("x509: certificate signed by unknown authority")
	action := scripted{
		"s.test|https": domain.Failure(domain.SchemeHTTPS, domain.CauseTLS, tlsErr),
		"s.test|http":  domain.Failure(domain.SchemeHTTP, domain.CauseTLS, tlsErr),
	}
	rs, _ := newScheduler(t, action, 1).Run(context.Background(), []string{"s.test"})
	if rs[0].Classification != domain.SSLError {
		t.Fatalf("want SSL_ERROR, got %s", rs[0].Classification)
	}
}

func TestScheduler_OneResultPerInputIncludingDuplicates(t *testing.T) {
	in := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		in = append(in, fmt.Sprintf("d%d.test", i%10))
	}
	s := newScheduler(t, &gauge{delay: time.Millisecond}, 8)
	rs, err := s.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rs) != len(in) {
		t.Fatalf("want %d results, got %d", len(in), len(rs))
	}
	seen := make(map[int]bool)
	for _, r := range rs {
		if seen[r.Index] {
			t.Fatalf("index %d reported twice", r.Index)
		}
		seen[r.Index] = true
		if r.Domain != in[r.Index] {
			t.Fatalf("index %d: domain %q want %q", r.Index, r.Domain, in[r.Index])
		}
	}
}

func TestScheduler_NeverExceedsConcurrency(t *testing.T) {
	const n = 5
	g := &gauge{delay: 5 * time.Millisecond}
	in := make([]string, 200)
	for i := range in {
		in[i] = fmt.Sprintf("d%d.test", i)
	}
	s := newScheduler(t, g, n)
	if _, err := s.Run(context.Background(), in); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p := g.peak.Load(); p > n {
		t.Fatalf("peak in-flight %d exceeds limit %d", p, n)
	}
	if g.peak.Load() < 2 {
		t.Fatalf("expected some parallelism, peak=%d", g.peak.Load())
	}
	if s.Limiter.InFlight() != 0 {
		t.Fatalf("permits leaked: %d", s.Limiter.InFlight())
	}
}

type panicky struct{}

func (panicky) Attempt(ctx context.Context, d string, sc domain.Scheme) domain.Outcome {
	if d == "bad.test" {
		panic("boom")
	}
	return ok(200, sc.URL(d))
}

func TestScheduler_FailingDomainDoesNotAbortOthers(t *testing.T) {
	s := newScheduler(t, panicky{}, 2)
	rs, err := s.Run(context.Background(), []string{"good.test", "bad.test", "also.test"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m := byDomain(rs)
	if m["good.test"].Classification != domain.Live || m["also.test"].Classification != domain.Live {
		t.Fatalf("healthy domains affected: %+v", rs)
	}
	if m["bad.test"].Classification != domain.OfflineOrTimeout {
		t.Fatalf("bad.test: %+v", m["bad.test"])
	}
	if s.Limiter.InFlight() != 0 {
		t.Fatalf("permits leaked on panic: %d", s.Limiter.InFlight())
	}
}

func TestScheduler_CancelledRunStillReportsEveryDomain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := &gauge{delay: time.Second}
	s := newScheduler(t, g, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	in := []string{"a.test", "b.test", "c.test", "d.test"}
	rs, err := s.Run(ctx, in)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if len(rs) != len(in) {
		t.Fatalf("want %d results, got %d", len(in), len(rs))
	}
	for _, r := range rs {
		if r.Classification != domain.OfflineOrTimeout {
			t.Fatalf("%s: want OFFLINE_OR_TIMEOUT after cancel, got %s", r.Domain, r.Classification)
		}
	}
}

func TestScheduler_ValidateRejectsBrokenConfig(t *testing.T) {
	s := &Scheduler{Chain: &probe.Chain{}}
	err := s.Validate()
	for _, want := range []error{ErrNoLimiter, ErrNoAction, domain.ErrNoSchemes, ErrBadTimeout} {
		if !errors.Is(err, want) {
			t.Fatalf("want %v in %v", want, err)
		}
	}
	if _, err := s.Run(context.Background(), []string{"a.test"}); err == nil {
		t.Fatal("Run must refuse an invalid configuration")
	}
}

func TestScheduler_SinkAndProgress(t *testing.T) {
	sink := memory.NewCollector(0)
	s := newScheduler(t, scripted{"a.test|https": ok(200, "https://a.test")}, 2)
	s.Sink = sink

	var mu sync.Mutex
	var calls []int
	s.Progress = func(done, total int, r *domain.ProbeResult) {
		mu.Lock()
		defer mu.Unlock()
		if total != 3 {
			t.Errorf("total=%d", total)
		}
		calls = append(calls, done)
	}

	if _, err := s.Run(context.Background(), []string{"a.test", "b.test", "c.test"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sink.Len() != 3 {
		t.Fatalf("sink got %d results", sink.Len())
	}
	if len(calls) != 3 || calls[0] != 1 || calls[2] != 3 {
		t.Fatalf("progress calls %v", calls)
	}
}

type nxResolver struct{}

func (nxResolver) LookupIP(context.Context, string, string) ([]net.IP, error) {
	return nil, &net.DNSError{Err: "no such host", IsNotFound: true}
}
func (nxResolver) LookupCNAME(_ context.Context, host string) (string, error) { return host + ".", nil }
func (nxResolver) LookupNS(context.Context, string) ([]*net.NS, error) {
	return nil, &net.DNSError{Err: "no such host", IsNotFound: true}
}

func TestScheduler_DNSDiagnosticsAppendToTransportError(t *testing.T) {
	s := newScheduler(t, scripted{"a.test|https": ok(200, "https://a.test")}, 2)
	s.DNSDiagnostics = true
	s.Resolver = nxResolver{}

	rs, _ := s.Run(context.Background(), []string{"a.test", "gone.test"})
	m := byDomain(rs)
	if m["gone.test"].Detail != "connection refused; dns="+probe.DNSNXDomain {
		t.Fatalf("detail=%q", m["gone.test"].Detail)
	}
	if m["a.test"].Detail != "" {
		t.Fatalf("successful domains get no diagnostics: %q", m["a.test"].Detail)
	}
}

func TestScheduler_LogsRunLifecycle(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := newScheduler(t, scripted{}, 1)
	s.Logger = zap.New(core)

	if _, err := s.Run(context.Background(), []string{"y.test"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, ev := range []string{"run_started", "probe_finished", "run_finished"} {
		if logs.FilterMessage(ev).Len() != 1 {
			t.Fatalf("want one %s log entry", ev)
		}
	}
	e := logs.FilterMessage("probe_finished").All()[0]
	if got := e.ContextMap()["classification"]; got != "OFFLINE_OR_TIMEOUT" {
		t.Fatalf("classification field=%v", got)
	}
}

func TestScheduler_HTTPEndToEnd(t *testing.T) {
	secure := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer secure.Close()
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://elsewhere.test/", http.StatusMovedPermanently)
	}))
	defer plain.Close()

	host := func(u string) string { return u[strings.Index(u, "://")+3:] }
	a, b := host(secure.URL), host(plain.URL)

	action := probe.NewHTTPAction(probe.HTTPOptions{InsecureSkipVerify: true, MaxRedirects: 0})
	s := newScheduler(t, action, 1)
	rs, err := s.Run(context.Background(), []string{a, b})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m := byDomain(rs)
	if m[a].Classification != domain.Live || m[a].Scheme != domain.SchemeHTTPS {
		t.Fatalf("secure host: %+v", m[a])
	}
	if m[b].Classification != domain.LiveRedirect || m[b].Scheme != domain.SchemeHTTP || m[b].Artifact.StatusCode != 301 {
		t.Fatalf("plain host: %+v", m[b])
	}
}
