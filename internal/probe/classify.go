package probe

import "github.com/hamed0406/siteprobe/internal/domain"

// Classifier maps a terminal outcome to a category. Implementations are
// pure and total: every outcome yields exactly one category.
type Classifier interface {
	Classify(o domain.Outcome) domain.Classification
}

type ClassifierFunc func(o domain.Outcome) domain.Classification

func (f ClassifierFunc) Classify(o domain.Outcome) domain.Classification { return f(o) }

// StatusClassifier classifies reachability probes by terminal HTTP status.
var StatusClassifier Classifier = ClassifierFunc(classifyStatus)

// CaptureClassifier collapses visual-capture outcomes to OK / ERROR.
var CaptureClassifier Classifier = ClassifierFunc(classifyCapture)

func ClassifierFor(v domain.Variant) Classifier {
	if v == domain.VariantCapture {
		return CaptureClassifier
	}
	return StatusClassifier
}

func classifyStatus(o domain.Outcome) domain.Classification {
	switch o.Kind {
	case domain.OutcomeSuccess:
		return ClassifyStatusCode(o.Artifact.StatusCode)
	case domain.OutcomeExhausted, domain.OutcomeFailure:
		if o.Cause == domain.CauseTLS {
			return domain.SSLError
		}
		return domain.OfflineOrTimeout
	}
	return domain.Unknown
}

// ClassifyStatusCode maps a terminal HTTP status code to its category.
func ClassifyStatusCode(code int) domain.Classification {
	switch {
	case code >= 200 && code < 300:
		return domain.Live
	case code == 301, code == 302, code == 307, code == 308:
		return domain.LiveRedirect
	case code == 403:
		return domain.Blocked
	case code == 404, code == 410:
		return domain.NotFound
	case code >= 500 && code < 600:
		return domain.ServerError
	}
	return domain.Unknown
}

func classifyCapture(o domain.Outcome) domain.Classification {
	if o.Kind == domain.OutcomeSuccess && o.Artifact.Path != "" {
		return domain.OK
	}
	return domain.Error
}
