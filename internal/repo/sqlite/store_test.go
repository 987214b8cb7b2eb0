package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/repo"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	run := &domain.Run{Variant: domain.VariantCapture, Total: 3}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.ID == "" || run.Status != domain.RunRunning {
		t.Fatalf("defaults not applied: %+v", run)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Variant != domain.VariantCapture || got.Total != 3 || got.FinishedAt != nil {
		t.Fatalf("unexpected run: %+v", got)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Fatalf("created_at drifted: %v vs %v", got.CreatedAt, run.CreatedAt)
	}

	done := time.Now().UTC()
	if err := s.FinishRun(ctx, run.ID, domain.RunFinished, done); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, _ = s.GetRun(ctx, run.ID)
	if got.Status != domain.RunFinished || got.FinishedAt == nil || !got.FinishedAt.Equal(done) {
		t.Fatalf("run not finished: %+v", got)
	}
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		r := &domain.Run{Variant: domain.VariantStatus, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := s.CreateRun(ctx, r); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}
	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("want 3 runs, got %d", len(runs))
	}
	if !runs[0].CreatedAt.After(runs[2].CreatedAt) {
		t.Fatalf("want newest first: %v .. %v", runs[0].CreatedAt, runs[2].CreatedAt)
	}
}

func TestStore_ResultsRoundTripInInputOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	run := &domain.Run{Variant: domain.VariantStatus}
	_ = s.CreateRun(ctx, run)

	in := []domain.ProbeResult{
		{Index: 1, Domain: "b.test", FinalURL: "http://b.test/", Artifact: domain.Artifact{StatusCode: 301},
			Classification: domain.LiveRedirect, Scheme: domain.SchemeHTTP, Attempts: 2, Duration: 40 * time.Millisecond},
		{Index: 0, Domain: "a.test", FinalURL: "https://a.test", Artifact: domain.Artifact{StatusCode: 200, Title: "A"},
			Classification: domain.Live, Scheme: domain.SchemeHTTPS, Attempts: 1},
		{Index: 2, Domain: "y.test", Classification: domain.OfflineOrTimeout, Attempts: 2, Detail: "dns=NXDOMAIN"},
	}
	for i := range in {
		if err := s.AppendResult(ctx, run.ID, &in[i]); err != nil {
			t.Fatalf("AppendResult: %v", err)
		}
	}

	out, err := s.Results(ctx, run.ID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("want 3 results, got %d", len(out))
	}
	if out[0].Domain != "a.test" || out[1].Domain != "b.test" || out[2].Domain != "y.test" {
		t.Fatalf("not in input order: %s %s %s", out[0].Domain, out[1].Domain, out[2].Domain)
	}
	b := out[1]
	if b.Classification != domain.LiveRedirect || b.Artifact.StatusCode != 301 || b.Scheme != domain.SchemeHTTP ||
		b.Attempts != 2 || b.Duration != 40*time.Millisecond {
		t.Fatalf("fields lost: %+v", b)
	}
	if out[0].Artifact.Title != "A" || out[2].Detail != "dns=NXDOMAIN" {
		t.Fatalf("fields lost: %+v %+v", out[0], out[2])
	}
}

func TestStore_UnknownRun(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, repo.ErrRunNotFound) {
		t.Fatalf("want ErrRunNotFound, got %v", err)
	}
	if _, err := s.Results(ctx, "missing"); !errors.Is(err, repo.ErrRunNotFound) {
		t.Fatalf("want ErrRunNotFound, got %v", err)
	}
	if err := s.FinishRun(ctx, "missing", domain.RunFailed, time.Now()); !errors.Is(err, repo.ErrRunNotFound) {
		t.Fatalf("want ErrRunNotFound, got %v", err)
	}
}
