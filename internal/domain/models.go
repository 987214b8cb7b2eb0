package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

type Scheme string

const (
	SchemeHTTPS Scheme = "https"
	SchemeHTTP  Scheme = "http"
)

var (
	ErrNoSchemes       = errors.New("scheme list is empty")
	ErrUnknownScheme   = errors.New("unknown scheme")
	ErrDuplicateScheme = errors.New("duplicate scheme")
)

// DefaultSchemes is secure-first, then plaintext.
func DefaultSchemes() []Scheme { return []Scheme{SchemeHTTPS, SchemeHTTP} }

// ParseSchemes validates an ordered list of scheme names. Order is kept as given.
func ParseSchemes(names []string) ([]Scheme, error) {
	out := make([]Scheme, 0, len(names))
	seen := make(map[Scheme]bool, len(names))
	for _, n := range names {
		s := Scheme(strings.ToLower(strings.TrimSpace(n)))
		if s == "" {
			continue
		}
		if s != SchemeHTTPS && s != SchemeHTTP {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, n)
		}
		if seen[s] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateScheme, n)
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrNoSchemes
	}
	return out, nil
}

// URL builds the root URL of d under scheme s.
func (s Scheme) URL(d string) string { return string(s) + "://" + d }

type Variant string

const (
	VariantStatus  Variant = "status"
	VariantCapture Variant = "capture"
)

type Artifact struct {
	Path       string `json:"path,omitempty"`        // capture: screenshot file
	StatusCode int    `json:"status_code,omitempty"` // status: terminal HTTP status
	Title      string `json:"title,omitempty"`
}

func (a Artifact) IsZero() bool { return a.Path == "" && a.StatusCode == 0 }

func (a Artifact) String() string {
	switch {
	case a.Path != "":
		return a.Path
	case a.StatusCode != 0:
		return fmt.Sprintf("%d", a.StatusCode)
	}
	return ""
}

type ProbeResult struct {
	Index          int            `json:"index"`
	Domain         string         `json:"domain"`
	FinalURL       string         `json:"final_url"`
	Artifact       Artifact       `json:"artifact"`
	Classification Classification `json:"classification"`
	Scheme         Scheme         `json:"scheme,omitempty"`
	Attempts       int            `json:"attempts"`
	Detail         string         `json:"detail,omitempty"`
	Duration       time.Duration  `json:"duration_ns"`
	CheckedAt      time.Time      `json:"checked_at"`
}

// SortByInput orders results by their position in the input list.
func SortByInput(rs []ProbeResult) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Index < rs[j].Index })
}

type RunID string

type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

type Run struct {
	ID         RunID      `json:"id"`
	Variant    Variant    `json:"variant"`
	Status     RunStatus  `json:"status"`
	Total      int        `json:"total"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
