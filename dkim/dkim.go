// Package dkim implements DomainKeys Identified Mail (DKIM) signing per RFC 6376.
//
// DKIM lets a sender associate a domain name with an outgoing message by
// adding a DKIM-Signature header containing a cryptographic signature of
// the message headers and body.
//
// This implementation supports:
//   - RSA-SHA256 (required by RFC 6376)
//   - RSA-SHA1 (deprecated, but supported for compatibility)
//   - Ed25519-SHA256 (RFC 8463)
//
// # Basic Usage
//
//	signer := dkim.Signer{
//	    Domain:     "example.com",
//	    Selector:   "selector1",
//	    PrivateKey: privateKey,
//	}
//	signature, err := signer.Sign(message)
package dkim

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"time"
)

// Algorithm represents a DKIM signing algorithm.
type Algorithm string

const (
	// AlgRSASHA256 is the RSA-SHA256 algorithm (required by RFC 6376).
	AlgRSASHA256 Algorithm = "rsa-sha256"

	// AlgRSASHA1 is the deprecated RSA-SHA1 algorithm.
	AlgRSASHA1 Algorithm = "rsa-sha1"

	// AlgEd25519SHA256 is the Ed25519-SHA256 algorithm (RFC 8463).
	AlgEd25519SHA256 Algorithm = "ed25519-sha256"
)

// Canonicalization represents header/body canonicalization algorithms.
type Canonicalization string

const (
	// CanonSimple uses the "simple" canonicalization algorithm.
	CanonSimple Canonicalization = "simple"

	// CanonRelaxed uses the "relaxed" canonicalization algorithm.
	CanonRelaxed Canonicalization = "relaxed"
)

// Signing errors.
var (
	ErrHashAlgorithmUnknown = errors.New("dkim: unknown hash algorithm")
	ErrSigAlgorithmUnknown  = errors.New("dkim: unknown signature algorithm")
	ErrFromRequired         = errors.New("dkim: From header is required")
	ErrHeaderMalformed      = errors.New("dkim: mail header is malformed")
)

// DefaultSignedHeaders is the default list of headers to sign.
var DefaultSignedHeaders = []string{
	"From",
	"To",
	"Cc",
	"Subject",
	"Date",
	"Message-ID",
	"In-Reply-To",
	"References",
	"MIME-Version",
	"Content-Type",
	"Content-Transfer-Encoding",
	"Content-Disposition",
	"Reply-To",
}

// timeNow is used for testing.
var timeNow = time.Now

// cryptoRand is the random source for signing.
var cryptoRand = rand.Reader

// signWithKey signs data with the given private key.
func signWithKey(key crypto.Signer, hash crypto.Hash, data []byte) ([]byte, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k.Sign(cryptoRand, data, hash)
	case ed25519.PrivateKey:
		// Ed25519 uses PureEdDSA, not pre-hashed data
		return k.Sign(cryptoRand, data, crypto.Hash(0))
	default:
		return nil, ErrSigAlgorithmUnknown
	}
}
