package report

import (
	"strconv"

	"github.com/hamed0406/siteprobe/internal/domain"
)

var (
	statusColumns  = []string{"Domain", "HTTP_Status", "Classification", "Final_URL"}
	captureColumns = []string{"Domain", "Final_URL", "Screenshot_Path", "Status"}
)

func columns(v domain.Variant) []string {
	if v == domain.VariantCapture {
		return captureColumns
	}
	return statusColumns
}

// record is the tabular form shared by CSV, XLSX and Markdown.
func record(v domain.Variant, r domain.ProbeResult) []string {
	if v == domain.VariantCapture {
		return []string{r.Domain, r.FinalURL, r.Artifact.Path, r.Classification.String()}
	}
	return []string{r.Domain, httpStatus(r), r.Classification.String(), r.FinalURL}
}

// httpStatus is the numeric code, or ERROR when no response was received.
func httpStatus(r domain.ProbeResult) string {
	if r.Artifact.StatusCode == 0 {
		return "ERROR"
	}
	return strconv.Itoa(r.Artifact.StatusCode)
}
