package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/report"
)

// RunMessage formats the end-of-run notification.
func RunMessage(v domain.Variant, s report.Summary, elapsed time.Duration) (title, text string) {
	title = fmt.Sprintf("siteprobe %s run finished", v)
	var b strings.Builder
	fmt.Fprintf(&b, "%d domains in %s, %.0f%% healthy\n", s.Total, elapsed.Round(time.Second), s.HealthyPercent())
	for _, cc := range s.Counts() {
		fmt.Fprintf(&b, "• %s: %d\n", cc.Class, cc.Count)
	}
	return title, strings.TrimRight(b.String(), "\n")
}

// SendRun is a no-op when n is nil.
func SendRun(ctx context.Context, n Notifier, v domain.Variant, results []domain.ProbeResult, elapsed time.Duration) error {
	if n == nil {
		return nil
	}
	title, text := RunMessage(v, report.Summarize(results), elapsed)
	return n.Send(ctx, title, text)
}
