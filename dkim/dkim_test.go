package dkim

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
)

func testMessage() []byte {
	return []byte("From: sender@example.com\r\n" +
		"To: recipient@example.org\r\n" +
		"Subject: Test Message\r\n" +
		"Date: Thu, 18 Dec 2025 12:00:00 +0000\r\n" +
		"MIME-Version: 1.0\r\n" +
		"\r\n" +
		"This is a test message.\r\n")
}

func TestSignRSAProducesWellFormedHeader(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	signer := &Signer{
		Domain:                 "example.com",
		Selector:               "test",
		PrivateKey:             privateKey,
		Headers:                []string{"From", "To", "Subject", "Date"},
		HeaderCanonicalization: CanonRelaxed,
		BodyCanonicalization:   CanonRelaxed,
	}

	header, err := signer.Sign(testMessage())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if !strings.HasPrefix(header, "DKIM-Signature:") {
		t.Fatalf("header = %q, want DKIM-Signature: prefix", header)
	}
	if !strings.HasSuffix(header, "\r\n") {
		t.Error("header does not end with CRLF")
	}
	for _, want := range []string{"a=rsa-sha256", "d=example.com", "s=test"} {
		if !strings.Contains(header, want) {
			t.Errorf("header missing %q: %s", want, header)
		}
	}
}

func TestSignEd25519UsesFixedHash(t *testing.T) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	signer := &Signer{
		Domain:     "example.com",
		Selector:   "ed25519",
		PrivateKey: privateKey,
	}

	header, err := signer.Sign(testMessage())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if !strings.Contains(header, "a=ed25519-sha256") {
		t.Errorf("header = %q, want a=ed25519-sha256", header)
	}
}

func TestSignWithoutFromHeaderFails(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	message := []byte("To: recipient@example.org\r\n\r\nNo From header.\r\n")
	signer := &Signer{Domain: "example.com", Selector: "test", PrivateKey: privateKey}

	if _, err := signer.Sign(message); err == nil {
		t.Error("Sign() expected error for message without a From header")
	}
}

func TestSignDefaultsToDefaultSignedHeaders(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	signer := &Signer{Domain: "example.com", Selector: "test", PrivateKey: privateKey}
	header, err := signer.Sign(testMessage())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	// h= lists the headers actually present in the message, in signed order.
	if !strings.Contains(header, "h=") {
		t.Errorf("header missing h= tag: %s", header)
	}
}
