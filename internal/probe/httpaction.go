package probe

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hamed0406/siteprobe/internal/domain"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36"
	DefaultMaxRedirects = 10
	defaultMaxBody      = 512 << 10
)

type HTTPOptions struct {
	InsecureSkipVerify bool
	// MaxRedirects bounds redirect following; 0 reports the first 3xx as terminal.
	MaxRedirects int
	UserAgent    string
	MaxConns     int
}

// HTTPAction issues a GET and reports the terminal status and resolved URL.
type HTTPAction struct {
	Client    *http.Client
	UserAgent string
	MaxBody   int64
}

func NewHTTPAction(opts HTTPOptions) *HTTPAction {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify} //nolint:gosec // opt-in via config
	if opts.MaxConns > 0 {
		tr.MaxIdleConns = opts.MaxConns
		tr.MaxConnsPerHost = opts.MaxConns
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	maxRedirects := opts.MaxRedirects
	return &HTTPAction{
		// no client-level timeout: the fallback chain bounds every attempt via ctx
		Client: &http.Client{
			Transport: tr,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		UserAgent: ua,
		MaxBody:   defaultMaxBody,
	}
}

func (h *HTTPAction) Attempt(ctx context.Context, d string, s domain.Scheme) domain.Outcome {
	target := s.URL(d)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.Failure(s, domain.CauseUnknown, err)
	}
	req.Header.Set("User-Agent", h.UserAgent)

	resp, err := h.Client.Do(req)
	if err != nil {
		return domain.Failure(s, errorCause(err), err)
	}
	defer resp.Body.Close()

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return domain.Success(s, final, domain.Artifact{
		StatusCode: resp.StatusCode,
		Title:      pageTitle(resp, h.MaxBody),
	})
}

// pageTitle reads at most limit bytes of an HTML body and returns its <title>.
func pageTitle(resp *http.Response, limit int64) string {
	if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "html") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, limit))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}
