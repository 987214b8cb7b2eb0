package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// Name-level explanations for a domain that could not be reached.
const (
	DNSResolves    = "RESOLVES"
	DNSNXDomain    = "NXDOMAIN"
	DNSNoARecord   = "NO_A_RECORD"
	DNSServfail    = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName = "INVALID_NAME"

	dnsBudget = 3 * time.Second
)

type DNSStatus struct {
	Domain string
	Class  string
	Err    error // address lookup error, nil when the name resolved
}

// Resolver is the subset of *net.Resolver used by CheckDNS.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// CheckDNS classifies why d failed at the name level. The NS lookup only
// runs when no address was found, to tell a dead zone from an empty one.
// A nil resolver uses the OS resolver.
func CheckDNS(ctx context.Context, r Resolver, d string) DNSStatus {
	host := strings.TrimSpace(d)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	st := DNSStatus{Domain: host}
	if host == "" || strings.Contains(d, "://") {
		st.Class = DNSInvalidName
		return st
	}
	if r == nil {
		r = net.DefaultResolver
	}

	ctx, cancel := context.WithTimeout(ctx, dnsBudget)
	defer cancel()

	ips, err := r.LookupIP(ctx, "ip", host)
	if err == nil && len(ips) > 0 {
		st.Class = DNSResolves
		return st
	}
	st.Err = err
	if transientDNS(err) {
		st.Class = DNSServfail
		return st
	}
	if ns, nsErr := r.LookupNS(ctx, host); nsErr == nil && len(ns) > 0 {
		st.Class = DNSNoARecord
		return st
	}
	var de *net.DNSError
	if err == nil || (errors.As(err, &de) && de.IsNotFound) {
		st.Class = DNSNXDomain
	} else {
		st.Class = DNSServfail
	}
	return st
}

func transientDNS(err error) bool {
	var de *net.DNSError
	if errors.As(err, &de) {
		return de.IsTemporary || de.IsTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}
