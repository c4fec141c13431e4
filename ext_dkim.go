package mailwright

import (
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/mailwright/mailwright/dkim"
)

// DKIMExtension signs outgoing mail with a DKIM-Signature header (RFC
// 6376) before the headers block is transmitted. It has no corresponding
// ESMTP keyword — DKIM is a local signing policy, not something the
// server advertises — so it is registered with RegisterAlwaysOnExtension
// rather than RegisterExtension, and implements MailPreparer instead of
// ModifyMessage: the signer needs the complete header set and a hash of
// the whole body before it can produce a signature, which a single-line
// rewrite hook cannot supply.
type DKIMExtension struct {
	BaseExtension

	Signer dkim.Signer
}

// NewDKIMExtension builds a DKIM-signing extension from a ready-to-use
// Signer.
func NewDKIMExtension(signer dkim.Signer) *DKIMExtension {
	return &DKIMExtension{Signer: signer}
}

// PrepareMail signs headers+body and prepends the resulting DKIM-Signature
// header to the headers block. If the From header is missing or its domain
// does not align with the signer's (see fromAlignsWithSigner), or if
// signing fails, the headers and body are returned unmodified and the
// message is sent unsigned rather than blocking submission on a local
// policy extension.
func (d *DKIMExtension) PrepareMail(ctx *MessageContext, headers Headers, body string) (Headers, string) {
	if !d.fromAlignsWithSigner(headers) {
		return headers, body
	}

	message := headers.GenerateRaw() + body

	sigHeader, err := d.Signer.Sign([]byte(message))
	if err != nil {
		return headers, body
	}

	return &signedHeaders{raw: sigHeader, inner: headers}, body
}

// fromAlignsWithSigner reports whether the From header's domain shares an
// organizational (registrable) domain with the signer's Domain, per the
// public suffix list. A mismatch here means the signer is configured for
// a different organization than the message claims to be from, so
// signing is skipped rather than producing a signature that will fail
// DMARC alignment at the receiving end.
func (d *DKIMExtension) fromAlignsWithSigner(headers Headers) bool {
	fromDomain := domainOf(headers.Get("From"))
	if fromDomain == "" || d.Signer.Domain == "" {
		return false
	}

	fromOrg, err := publicsuffix.EffectiveTLDPlusOne(fromDomain)
	if err != nil {
		return false
	}
	signerOrg, err := publicsuffix.EffectiveTLDPlusOne(d.Signer.Domain)
	if err != nil {
		return false
	}
	return strings.EqualFold(fromOrg, signerOrg)
}

// domainOf extracts the domain portion of an address that may be wrapped
// in angle brackets, e.g. "Alice <alice@example.com>" or
// "<alice@example.com>".
func domainOf(address string) string {
	if idx := strings.LastIndexByte(address, '<'); idx >= 0 {
		address = address[idx+1:]
		address = strings.TrimSuffix(address, ">")
	}
	at := strings.LastIndexByte(address, '@')
	if at < 0 {
		return ""
	}
	return address[at+1:]
}

// signedHeaders wraps a Headers value to prepend a precomputed raw header
// line (the DKIM-Signature) ahead of everything else GenerateRaw produces.
type signedHeaders struct {
	raw   string
	inner Headers
}

func (s *signedHeaders) GenerateRaw() string {
	return s.raw + s.inner.GenerateRaw()
}

func (s *signedHeaders) HasHeader(name string) bool {
	if name == "DKIM-Signature" {
		return true
	}
	return s.inner.HasHeader(name)
}

func (s *signedHeaders) Get(name string) string {
	return s.inner.Get(name)
}

func (s *signedHeaders) MultiValue(name string) []string {
	return s.inner.MultiValue(name)
}
