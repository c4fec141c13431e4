package mailwright

import (
	"context"
	"net"
	"strings"
	"time"

	raverdns "github.com/mailwright/mailwright/dns"
)

// MXCheckExtension is an opt-in, local policy extension that verifies the
// connected relay's PTR record resolves back to ExpectedDomain, rejecting
// the connection otherwise. DNS resolution is outside the core's own
// scope; this extension is the sanctioned escape hatch spec.md's
// "delegated to extensions" language describes. It has no ESMTP keyword,
// so register it with RegisterAlwaysOnExtension rather than
// RegisterExtension, and it implements ConnectionValidator rather than the
// GoAhead sub-stage: the check runs once per connection and never needs to
// intercept a server reply.
type MXCheckExtension struct {
	BaseExtension

	// ExpectedDomain is the domain the connected host's PTR record must
	// resolve to (case-insensitively, ignoring a trailing dot).
	ExpectedDomain string

	// Resolver performs the PTR lookup. A *raverdns.DNSResolver satisfies
	// this; tests may substitute a raverdns.MockResolver.
	Resolver raverdns.Resolver

	// Timeout bounds the PTR lookup. Defaults to 5 seconds when zero.
	Timeout time.Duration
}

func (m *MXCheckExtension) ValidateConnection(remoteAddr net.Addr, validated func(ok bool)) {
	if m.Resolver == nil || m.ExpectedDomain == "" {
		validated(true)
		return
	}

	host, _, err := net.SplitHostPort(remoteAddr.String())
	if err != nil {
		host = remoteAddr.String()
	}
	ip := net.ParseIP(host)
	if ip == nil {
		validated(false)
		return
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	go func() {
		lctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		result, err := m.Resolver.LookupAddr(lctx, ip)
		if err != nil {
			validated(false)
			return
		}

		want := strings.ToLower(strings.TrimSuffix(m.ExpectedDomain, "."))
		for _, name := range result.Records {
			if strings.ToLower(strings.TrimSuffix(name, ".")) == want {
				validated(true)
				return
			}
		}
		validated(false)
	}()
}
