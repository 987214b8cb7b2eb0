package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/hamed0406/siteprobe/internal/domain"
)

// Action performs one network attempt for one (domain, scheme) pair.
// Implementations must honor ctx and report every failure as an Outcome
// instead of panicking.
type Action interface {
	Attempt(ctx context.Context, d string, s domain.Scheme) domain.Outcome
}

// ActionFunc adapts a plain function to Action.
type ActionFunc func(ctx context.Context, d string, s domain.Scheme) domain.Outcome

func (f ActionFunc) Attempt(ctx context.Context, d string, s domain.Scheme) domain.Outcome {
	return f(ctx, d, s)
}

// errorCause maps a transport error to a coarse cause.
func errorCause(err error) domain.Cause {
	if err == nil {
		return domain.CauseNone
	}

	var (
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
	)
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr),
		errors.As(err, &recordErr),
		errors.As(err, &alertErr):
		return domain.CauseTLS
	}

	var dnsErr *net.DNSError
	var netErr net.Error
	var opErr *net.OpError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.As(err, &dnsErr):
		return domain.CauseNetwork
	case errors.As(err, &netErr) && netErr.Timeout():
		return domain.CauseNetwork
	case errors.As(err, &opErr):
		return domain.CauseNetwork
	}

	// Handshake failures sometimes only surface as text.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "tls:") || strings.Contains(msg, "x509:") || strings.Contains(msg, "certificate") {
		return domain.CauseTLS
	}
	return domain.CauseUnknown
}
