package dns

import (
	"context"
	"net"
	"slices"
)

// MockResolver is a Resolver used for testing.
// Set DNS records in the fields, which map IP strings to PTR names.
type MockResolver struct {
	PTR map[string][]string

	// Fail contains records that will return a temporary error (SERVFAIL).
	// Format: "type name", e.g. "ptr 192.0.2.10" where type is lowercase.
	Fail []string

	// AllAuthentic sets the default value for Authentic in responses.
	// Overridden by Authentic and Inauthentic lists.
	AllAuthentic bool

	// Authentic contains records that will have Authentic=true.
	// Format: "type name", e.g. "ptr 192.0.2.10"
	Authentic []string

	// Inauthentic contains records that will have Authentic=false.
	// Format: "type name", e.g. "ptr 192.0.2.10"
	Inauthentic []string
}

var _ Resolver = MockResolver{}

// mockReq represents a mock DNS request.
type mockReq struct {
	Type string // always "ptr"
	Name string // the raw IP string being looked up
}

func (mr mockReq) String() string {
	return mr.Type + " " + mr.Name
}

// LookupAddr performs a reverse DNS lookup.
func (r MockResolver) LookupAddr(ctx context.Context, ip net.IP) (Result, error) {
	ipStr := ip.String()
	mr := mockReq{"ptr", ipStr}

	authentic := r.AllAuthentic
	if err := ctx.Err(); err != nil {
		return Result{Authentic: authentic}, err
	}
	if slices.Contains(r.Fail, mr.String()) {
		return Result{Authentic: authentic}, ErrDNSServFail
	}
	if slices.Contains(r.Authentic, mr.String()) {
		authentic = true
	}
	if slices.Contains(r.Inauthentic, mr.String()) {
		authentic = false
	}

	records, ok := r.PTR[ipStr]
	if !ok || len(records) == 0 {
		return Result{Authentic: authentic}, ErrDNSNotFound
	}

	return Result{Records: records, Authentic: authentic}, nil
}
