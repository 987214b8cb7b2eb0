package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/report"
)

func TestSlack_OK(t *testing.T) {
	var got slackPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	if s == nil {
		t.Fatal("expected slack client")
	}
	if err := s.Send(context.Background(), "Title", "Hello"); err != nil {
		t.Fatalf("send err: %v", err)
	}
	if got.Text != "*Title*\nHello" {
		t.Fatalf("fallback text not as expected: %q", got.Text)
	}
	if len(got.Blocks) != 2 || got.Blocks[0].Type != "header" || got.Blocks[0].Text.Text != "Title" {
		t.Fatalf("header block not as expected: %+v", got.Blocks)
	}
	if got.Blocks[1].Text.Type != "mrkdwn" || got.Blocks[1].Text.Text != "Hello" {
		t.Fatalf("section block not as expected: %+v", got.Blocks[1])
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	err := NewSlack(ts.URL).Send(context.Background(), "X", "Y")
	if !errors.Is(err, ErrSlackStatus) {
		t.Fatalf("expected ErrSlackStatus, got %v", err)
	}
}

func TestSlack_Disabled(t *testing.T) {
	if NewSlack("") != nil {
		t.Fatal("empty webhook must disable slack")
	}
	var s *Slack
	if err := s.Send(context.Background(), "X", "Y"); !errors.Is(err, ErrSlackDisabled) {
		t.Fatalf("want ErrSlackDisabled, got %v", err)
	}
	if FromConfig("") != nil {
		t.Fatal("no notifiers configured must yield nil")
	}
}

type recorder struct {
	titles []string
	err    error
}

func (r *recorder) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func TestMulti_DeliversToAllAndCombinesErrors(t *testing.T) {
	a := &recorder{err: errors.New("a down")}
	b := &recorder{}
	c := &recorder{err: errors.New("c down")}
	err := Multi{a, nil, b, c}.Send(context.Background(), "t", "x")
	if len(multierr.Errors(err)) != 2 {
		t.Fatalf("want 2 errors, got %v", err)
	}
	if len(a.titles) != 1 || len(b.titles) != 1 || len(c.titles) != 1 {
		t.Fatal("every notifier must be called")
	}
}

func TestSendRun(t *testing.T) {
	rec := &recorder{}
	rs := []domain.ProbeResult{
		{Domain: "a.test", Classification: domain.OK},
		{Domain: "b.test", Classification: domain.Error},
	}
	if err := SendRun(context.Background(), rec, domain.VariantCapture, rs, 1500*time.Millisecond); err != nil {
		t.Fatalf("SendRun: %v", err)
	}
	if len(rec.titles) != 1 || !strings.Contains(rec.titles[0], "capture") {
		t.Fatalf("titles %v", rec.titles)
	}
	title, text := RunMessage(domain.VariantCapture, report.Summarize(rs), 1500*time.Millisecond)
	if title == "" || !strings.Contains(text, "2 domains in 2s, 50% healthy") || !strings.Contains(text, "ERROR: 1") {
		t.Fatalf("text %q", text)
	}
	if err := SendRun(context.Background(), nil, domain.VariantStatus, rs, 0); err != nil {
		t.Fatalf("nil notifier must be a no-op: %v", err)
	}
}
