package report

import (
	"html/template"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hamed0406/siteprobe/internal/domain"
)

// HTMLWriter renders a standalone dark-themed page. Capture runs show a
// thumbnail per domain linking to the final URL.
type HTMLWriter struct {
	// BaseDir is the directory the page is written to; screenshot paths are
	// made relative to it when possible.
	BaseDir string
	Now     func() time.Time
}

type htmlRow struct {
	Domain   string
	Class    string
	Healthy  bool
	Status   string
	FinalURL string
	Image    string
	Detail   string
}

type htmlPage struct {
	Title     string
	Capture   bool
	Summary   Summary
	Rows      []htmlRow
	Generated string
}

var pageTmpl = template.Must(template.New("report").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; background: #0f1220; color: #e6e8ef; margin: 24px; }
    a { color: #8ab4ff; }
    .summary { opacity: .85; margin-bottom: 16px; }
    .row { display: flex; gap: 16px; align-items: center; padding: 10px; border-bottom: 1px solid #2a2f55; }
    .domain { width: 320px; font-weight: 600; }
    .status { width: 180px; }
    .ok { color: #6ef3a5; }
    .err { color: #ff7b7b; }
    img { max-width: 420px; border-radius: 6px; box-shadow: 0 6px 16px rgba(0,0,0,.35); }
    .nosnap { opacity: .7; font-style: italic; }
    table { border-collapse: collapse; width: 100%; }
    th, td { text-align: left; padding: 8px 10px; border-bottom: 1px solid #2a2f55; }
    footer { margin-top: 24px; opacity: .6; font-size: 12px; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="summary">{{.Summary}}</div>
{{- if .Capture}}
{{- range .Rows}}
  <div class="row">
    <div class="domain">{{.Domain}}</div>
    <div class="status {{if .Healthy}}ok{{else}}err{{end}}">{{.Class}}</div>
    {{- if .Image}}
    <a href="{{.FinalURL}}" target="_blank"><img src="{{.Image}}" alt="{{.Domain}}"></a>
    {{- else}}
    <div class="nosnap">No screenshot</div>
    {{- end}}
  </div>
{{- end}}
{{- else}}
  <table>
    <tr><th>Domain</th><th>HTTP status</th><th>Classification</th><th>Final URL</th></tr>
{{- range .Rows}}
    <tr>
      <td>{{.Domain}}</td>
      <td>{{.Status}}</td>
      <td class="{{if .Healthy}}ok{{else}}err{{end}}">{{.Class}}</td>
      <td>{{if .FinalURL}}<a href="{{.FinalURL}}" target="_blank">{{.FinalURL}}</a>{{else}}<span title="{{.Detail}}">-</span>{{end}}</td>
    </tr>
{{- end}}
  </table>
{{- end}}
  <footer>Generated {{.Generated}}</footer>
</body>
</html>
`))

func (h HTMLWriter) Write(w io.Writer, v domain.Variant, results []domain.ProbeResult) error {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	page := htmlPage{
		Title:     "Domain Status Report",
		Capture:   v == domain.VariantCapture,
		Summary:   Summarize(results),
		Generated: now().UTC().Format(time.RFC1123) + " (" + humanize.Time(now()) + ")",
	}
	if page.Capture {
		page.Title = "Live Domain Screenshots"
	}
	for _, r := range sorted(results) {
		row := htmlRow{
			Domain:   r.Domain,
			Class:    r.Classification.String(),
			Healthy:  r.Classification.Healthy(),
			Status:   httpStatus(r),
			FinalURL: r.FinalURL,
			Detail:   r.Detail,
		}
		if page.Capture && r.Classification == domain.OK && r.Artifact.Path != "" {
			row.Image = h.relPath(r.Artifact.Path)
		}
		page.Rows = append(page.Rows, row)
	}
	return pageTmpl.Execute(w, page)
}

func (h HTMLWriter) relPath(p string) string {
	if h.BaseDir == "" {
		return filepath.ToSlash(p)
	}
	absBase, err1 := filepath.Abs(h.BaseDir)
	absP, err2 := filepath.Abs(p)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(p)
	}
	if rel, err := filepath.Rel(absBase, absP); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(p)
}
