package domain

import "strings"

// Cause is the coarse reason an attempt failed.
type Cause int

const (
	CauseNone Cause = iota
	CauseNetwork
	CauseTLS
	CauseUnknown
)

func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseNetwork:
		return "network"
	case CauseTLS:
		return "tls"
	}
	return "unknown"
}

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeFailure
	// OutcomeExhausted is only produced by the fallback chain, never by an action.
	OutcomeExhausted
)

// Outcome is the explicit result of one (domain, scheme) attempt, or of a
// whole chain when Kind is OutcomeExhausted.
type Outcome struct {
	Kind     OutcomeKind
	Scheme   Scheme
	FinalURL string
	Artifact Artifact
	Cause    Cause
	Err      error
}

func Success(s Scheme, finalURL string, a Artifact) Outcome {
	return Outcome{Kind: OutcomeSuccess, Scheme: s, FinalURL: finalURL, Artifact: a}
}

func Failure(s Scheme, c Cause, err error) Outcome {
	if c == CauseNone {
		c = CauseUnknown
	}
	return Outcome{Kind: OutcomeFailure, Scheme: s, Cause: c, Err: err}
}

func (o Outcome) Succeeded() bool { return o.Kind == OutcomeSuccess }

type Classification int

const (
	Unknown Classification = iota
	Live
	LiveRedirect
	Blocked
	NotFound
	ServerError
	SSLError
	OfflineOrTimeout
	OK
	Error
)

var classificationNames = map[Classification]string{
	Unknown:          "UNKNOWN",
	Live:             "LIVE",
	LiveRedirect:     "LIVE_REDIRECT",
	Blocked:          "BLOCKED",
	NotFound:         "NOT_FOUND",
	ServerError:      "SERVER_ERROR",
	SSLError:         "SSL_ERROR",
	OfflineOrTimeout: "OFFLINE_OR_TIMEOUT",
	OK:               "OK",
	Error:            "ERROR",
}

// Classifications lists every category in report order.
func Classifications() []Classification {
	return []Classification{Live, LiveRedirect, Blocked, NotFound, ServerError, SSLError, OfflineOrTimeout, Unknown, OK, Error}
}

func (c Classification) String() string {
	if n, ok := classificationNames[c]; ok {
		return n
	}
	return classificationNames[Unknown]
}

func (c Classification) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Classification) UnmarshalText(b []byte) error {
	*c = ParseClassification(string(b))
	return nil
}

// ParseClassification maps a name back to its category; unrecognised names are Unknown.
func ParseClassification(s string) Classification {
	s = strings.ToUpper(strings.TrimSpace(s))
	for c, n := range classificationNames {
		if n == s {
			return c
		}
	}
	return Unknown
}

// Healthy reports whether the category means the domain answered usefully.
func (c Classification) Healthy() bool {
	return c == Live || c == LiveRedirect || c == OK
}
