package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/repo"
)

func TestMemoryStore_CreateAndListRuns(t *testing.T) {
	ctx := context.Background()
	s := New()

	run := &domain.Run{Variant: domain.VariantStatus, Total: 2}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.ID == "" {
		t.Fatalf("expected run ID to be set")
	}
	if run.Status != domain.RunRunning {
		t.Fatalf("expected running status, got %q", run.Status)
	}

	all, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 1 || all[0].ID != run.ID {
		t.Fatalf("unexpected runs: %+v", all)
	}

	now := time.Now().UTC()
	if err := s.FinishRun(ctx, run.ID, domain.RunFinished, now); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != domain.RunFinished || got.FinishedAt == nil || !got.FinishedAt.Equal(now) {
		t.Fatalf("run not finished: %+v", got)
	}
}

func TestMemoryStore_ResultsInInputOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	run := &domain.Run{}
	_ = s.CreateRun(ctx, run)

	for _, i := range []int{2, 0, 1} {
		r := &domain.ProbeResult{Index: i, Domain: fmt.Sprintf("d%d.test", i)}
		if err := s.AppendResult(ctx, run.ID, r); err != nil {
			t.Fatalf("AppendResult: %v", err)
		}
	}
	rs, err := s.Results(ctx, run.ID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	for i, r := range rs {
		if r.Index != i {
			t.Fatalf("position %d holds %d", i, r.Index)
		}
	}
}

func TestMemoryStore_UnknownRun(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.GetRun(ctx, "nope"); !errors.Is(err, repo.ErrRunNotFound) {
		t.Fatalf("want ErrRunNotFound, got %v", err)
	}
	if err := s.AppendResult(ctx, "nope", &domain.ProbeResult{}); !errors.Is(err, repo.ErrRunNotFound) {
		t.Fatalf("want ErrRunNotFound, got %v", err)
	}
	if err := s.FinishRun(ctx, "nope", domain.RunFinished, time.Now()); !errors.Is(err, repo.ErrRunNotFound) {
		t.Fatalf("want ErrRunNotFound, got %v", err)
	}
}

func TestCollector_ConcurrentAppendsKeepEveryRecord(t *testing.T) {
	c := NewCollector(0)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(domain.ProbeResult{Index: i, Domain: fmt.Sprintf("d%d.test", i)})
		}()
	}
	wg.Wait()

	rs := c.Results()
	if len(rs) != 200 || c.Len() != 200 {
		t.Fatalf("want 200 results, got %d", len(rs))
	}
	seen := make(map[int]bool)
	for _, r := range rs {
		if r.Domain != fmt.Sprintf("d%d.test", r.Index) {
			t.Fatalf("record corrupted: %+v", r)
		}
		seen[r.Index] = true
	}
	if len(seen) != 200 {
		t.Fatalf("duplicate or lost records: %d unique", len(seen))
	}
}

func TestCollector_SnapshotIsACopy(t *testing.T) {
	c := NewCollector(1)
	_ = c.Append(context.Background(), &domain.ProbeResult{Domain: "a.test"})
	snap := c.Results()
	snap[0].Domain = "mutated"
	if c.Results()[0].Domain != "a.test" {
		t.Fatal("snapshot must not alias internal storage")
	}
}

func TestCollector_AppendStoresACopy(t *testing.T) {
	c := NewCollector(1)
	r := &domain.ProbeResult{Domain: "a.test"}
	if err := c.Append(context.Background(), r); err != nil {
		t.Fatalf("Append: %v", err)
	}
	r.Domain = "changed"
	if c.Results()[0].Domain != "a.test" {
		t.Fatal("Append must copy the result")
	}
}
