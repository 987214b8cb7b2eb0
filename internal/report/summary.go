package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/hamed0406/siteprobe/internal/domain"
)

type ClassCount struct {
	Class domain.Classification
	Count int
}

// Summary counts results per classification.
type Summary struct {
	Total   int
	Healthy int
	counts  map[domain.Classification]int
}

func Summarize(results []domain.ProbeResult) Summary {
	s := Summary{Total: len(results), counts: make(map[domain.Classification]int)}
	for _, r := range results {
		s.counts[r.Classification]++
		if r.Classification.Healthy() {
			s.Healthy++
		}
	}
	return s
}

func (s Summary) Count(c domain.Classification) int { return s.counts[c] }

// Counts lists non-zero classes in declaration order.
func (s Summary) Counts() []ClassCount {
	var out []ClassCount
	for _, c := range domain.Classifications() {
		if n := s.counts[c]; n > 0 {
			out = append(out, ClassCount{Class: c, Count: n})
		}
	}
	return out
}

// HealthyPercent is the share of healthy results, 0 for an empty run.
func (s Summary) HealthyPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Healthy) * 100 / float64(s.Total)
}

func (s Summary) String() string {
	parts := make([]string, 0, len(s.counts))
	for _, cc := range s.Counts() {
		parts = append(parts, fmt.Sprintf("%s %s", humanize.Comma(int64(cc.Count)), cc.Class))
	}
	if len(parts) == 0 {
		return "0 domains"
	}
	return fmt.Sprintf("%s domains: %s (%.0f%% healthy)",
		humanize.Comma(int64(s.Total)), strings.Join(parts, ", "), s.HealthyPercent())
}
