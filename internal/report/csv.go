package report

import (
	"encoding/csv"
	"io"

	"github.com/hamed0406/siteprobe/internal/domain"
)

type CSVWriter struct{}

func (CSVWriter) Write(w io.Writer, v domain.Variant, results []domain.ProbeResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns(v)); err != nil {
		return err
	}
	for _, r := range sorted(results) {
		if err := cw.Write(record(v, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
