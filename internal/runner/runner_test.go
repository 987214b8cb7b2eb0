package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/siteprobe/internal/config"
	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/repo/memory"
)

func TestRunner_StatusRunAgainstLocalServers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	follow := httptest.NewServer(mux)
	defer follow.Close()

	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer gone.Close()

	cfg := config.Default()
	cfg.Schemes = []string{"http"}
	cfg.Concurrency = 2
	cfg.Timeout = 2 * time.Second
	cfg.DatabasePath = ""

	hostOf := func(u string) string { return strings.TrimPrefix(u, "http://") }
	sink := memory.NewCollector(0)
	var progress int
	r := New(cfg, domain.VariantStatus, nil)
	r.Progress = func(done, total int, _ *domain.ProbeResult) { progress = done }

	rs, err := r.Run(context.Background(), []string{hostOf(follow.URL), hostOf(gone.URL)}, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rs) != 2 || sink.Len() != 2 || progress != 2 {
		t.Fatalf("results=%d sink=%d progress=%d", len(rs), sink.Len(), progress)
	}
	domain.SortByInput(rs)
	if rs[0].Classification != domain.Live || !strings.HasSuffix(rs[0].FinalURL, "/ok") {
		t.Fatalf("redirect should be followed to LIVE: %+v", rs[0])
	}
	if rs[1].Classification != domain.NotFound || rs[1].Artifact.StatusCode != 410 {
		t.Fatalf("410 should be NOT_FOUND: %+v", rs[1])
	}
}

func TestRunner_InvalidConfigFailsBeforeProbing(t *testing.T) {
	cfg := config.Default()
	cfg.Schemes = []string{"gopher"}
	if _, err := New(cfg, domain.VariantStatus, nil).Run(context.Background(), []string{"a.test"}, nil); err == nil {
		t.Fatal("want configuration error")
	}
}
