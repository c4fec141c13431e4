package mailwright

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"

	"github.com/mailwright/mailwright/dkim"
)

func TestDKIMPrepareMailPrependsSignature(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	d := NewDKIMExtension(dkim.Signer{
		Domain:     "example.com",
		Selector:   "test",
		PrivateKey: key,
	})

	headers := newFakeHeaders("<alice@example.com>", "<bob@example.com>")
	body := "Hello, Bob.\r\n"

	newHeaders, newBody := d.PrepareMail(&MessageContext{}, headers, body)
	if newBody != body {
		t.Errorf("body changed: got %q, want %q", newBody, body)
	}
	if !newHeaders.HasHeader("DKIM-Signature") {
		t.Error("HasHeader(\"DKIM-Signature\") = false after signing")
	}
	if !strings.HasPrefix(newHeaders.GenerateRaw(), "DKIM-Signature:") {
		t.Errorf("GenerateRaw() = %q, want DKIM-Signature: prefix", newHeaders.GenerateRaw())
	}
	if newHeaders.Get("From") != "<alice@example.com>" {
		t.Errorf("Get(\"From\") = %q, want unchanged", newHeaders.Get("From"))
	}
}

func TestDKIMPrepareMailFallsBackUnsignedOnError(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	d := NewDKIMExtension(dkim.Signer{Domain: "example.com", Selector: "test", PrivateKey: key})

	// No From header: there is no From domain to align with the signer, so
	// PrepareMail must skip signing and hand back the original headers
	// rather than blocking submission.
	headers := NewMapHeaders([2]string{"To", "<bob@example.com>"})
	body := "body\r\n"

	newHeaders, newBody := d.PrepareMail(&MessageContext{}, headers, body)
	if newHeaders != headers {
		t.Error("PrepareMail() replaced headers despite a signing error")
	}
	if newBody != body {
		t.Errorf("body = %q, want unchanged %q", newBody, body)
	}
}

func TestDKIMPrepareMailSkipsSigningAcrossOrganizationalBoundary(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	// The signer is configured for a different organization than the
	// message claims to be from; signing must be skipped.
	d := NewDKIMExtension(dkim.Signer{Domain: "other-company.example", Selector: "test", PrivateKey: key})

	headers := newFakeHeaders("<alice@example.com>", "<bob@example.com>")
	body := "body\r\n"

	newHeaders, newBody := d.PrepareMail(&MessageContext{}, headers, body)
	if newHeaders != headers {
		t.Error("PrepareMail() signed a message whose From domain does not match the signer's organization")
	}
	if newBody != body {
		t.Errorf("body = %q, want unchanged %q", newBody, body)
	}
}
