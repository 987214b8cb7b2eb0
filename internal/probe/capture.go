package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/hamed0406/siteprobe/internal/domain"
)

type CaptureOptions struct {
	Dir                string
	Width              int
	Height             int
	Settle             time.Duration
	ExecPath           string
	InsecureSkipVerify bool
	UserAgent          string
}

// CaptureAction loads a page in a shared headless browser and stores a
// full-page PNG under Dir. Every attempt owns its own tab.
type CaptureAction struct {
	opts    CaptureOptions
	browser context.Context
}

// NewCaptureAction launches the browser. The returned func releases it and
// must be called once all attempts are done.
func NewCaptureAction(ctx context.Context, opts CaptureOptions) (*CaptureAction, func(), error) {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 800
	}
	if opts.Dir == "" {
		opts.Dir = "screenshots"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("screenshot dir: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.InsecureSkipVerify {
		allocOpts = append(allocOpts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	release := func() {
		cancelBrowser()
		cancelAlloc()
	}
	// an empty Run starts the browser so launch failures surface before scheduling
	if err := chromedp.Run(browserCtx); err != nil {
		release()
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}
	return &CaptureAction{opts: opts, browser: browserCtx}, release, nil
}

func (a *CaptureAction) Attempt(ctx context.Context, d string, s domain.Scheme) domain.Outcome {
	tabCtx, closeTab := chromedp.NewContext(a.browser)
	defer closeTab()
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	var (
		buf   []byte
		final string
		title string
	)
	target := s.URL(d)
	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(a.opts.Width), int64(a.opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(a.opts.Settle),
		chromedp.Location(&final),
		chromedp.Title(&title),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return domain.Failure(s, navigationCause(err), err)
	}
	if len(buf) == 0 {
		return domain.Failure(s, domain.CauseUnknown, errors.New("empty screenshot"))
	}

	path := filepath.Join(a.opts.Dir, domain.ArtifactName(d))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return domain.Failure(s, domain.CauseUnknown, fmt.Errorf("write screenshot: %w", err))
	}
	if final == "" {
		final = target
	}
	return domain.Success(s, final, domain.Artifact{Path: path, Title: title})
}

// navigationCause maps Chrome net::ERR_* navigation errors to a cause.
func navigationCause(err error) domain.Cause {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "net::ERR_CERT_"),
		strings.Contains(msg, "net::ERR_SSL_"),
		strings.Contains(msg, "net::ERR_BAD_SSL_CLIENT_AUTH_CERT"):
		return domain.CauseTLS
	case strings.Contains(msg, "net::ERR_"):
		return domain.CauseNetwork
	}
	return errorCause(err)
}
