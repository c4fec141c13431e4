package dkim

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Signature represents a parsed DKIM-Signature header (RFC 6376 Section 3.5).
type Signature struct {
	// Required fields
	Version       int      // v= Version, must be 1
	Algorithm     string   // a= Algorithm (e.g., "rsa-sha256")
	Signature     []byte   // b= Signature data
	BodyHash      []byte   // bh= Body hash
	Domain        string   // d= Signing domain
	SignedHeaders []string // h= Signed header fields
	Selector      string   // s= Selector

	// Optional fields
	Canonicalization string   // c= Canonicalization (e.g., "relaxed/simple")
	Identity         string   // i= Agent or User Identifier (AUID)
	Length           int64    // l= Body length limit (-1 if not set)
	QueryMethods     []string // q= Query methods
	SignTime         int64    // t= Signature timestamp (-1 if not set)
	ExpireTime       int64    // x= Signature expiration (-1 if not set)
	CopiedHeaders    []string // z= Copied header fields
}

// NewSignature creates a new Signature with default values.
func NewSignature() *Signature {
	return &Signature{
		Version:          1,
		Canonicalization: "simple/simple",
		Length:           -1,
		SignTime:         -1,
		ExpireTime:       -1,
	}
}

// headerWriter helps create DKIM-Signature headers with proper folding.
// It tracks line length and folds to the next line when needed (RFC 5322).
type headerWriter struct {
	b        strings.Builder
	lineLen  int
	nonfirst bool
}

// add adds text, potentially folding to a new line if it exceeds maxLen.
func (w *headerWriter) add(sep, text string) {
	const maxLen = 76

	n := len(text)
	if w.nonfirst && w.lineLen > 1 && w.lineLen+len(sep)+n > maxLen {
		w.b.WriteString("\r\n\t")
		w.lineLen = 1
	} else if w.nonfirst && sep != "" {
		w.b.WriteString(sep)
		w.lineLen += len(sep)
	}
	w.b.WriteString(text)
	w.lineLen += len(text)
	w.nonfirst = true
}

// addf formats and adds text.
func (w *headerWriter) addf(sep, format string, args ...any) {
	w.add(sep, fmt.Sprintf(format, args...))
}

// addWrap adds data that can be wrapped at any position (like base64).
func (w *headerWriter) addWrap(data []byte) {
	const maxLen = 76

	for len(data) > 0 {
		n := maxLen - w.lineLen
		if n <= 0 {
			w.b.WriteString("\r\n\t")
			w.lineLen = 1
			n = maxLen - 1
		}
		if n > len(data) {
			n = len(data)
		}
		w.b.Write(data[:n])
		w.lineLen += n
		data = data[n:]
	}
}

// String returns the header content (without trailing CRLF).
func (w *headerWriter) String() string {
	return w.b.String()
}

// Header generates the DKIM-Signature header string.
// If includeSignature is false, the b= value is left empty for signing.
func (s *Signature) Header(includeSignature bool) (string, error) {
	w := &headerWriter{}

	// Header name and version (required, must be first)
	w.addf("", "DKIM-Signature: v=%d;", s.Version)

	// Domain (required, must always be ASCII per RFC 6376)
	w.addf(" ", "d=%s;", s.Domain)

	// Selector (required)
	w.addf(" ", "s=%s;", s.Selector)

	// Algorithm (required)
	w.addf(" ", "a=%s;", s.Algorithm)

	// Canonicalization (only if not default simple/simple)
	if s.Canonicalization != "" &&
		!strings.EqualFold(s.Canonicalization, "simple") &&
		!strings.EqualFold(s.Canonicalization, "simple/simple") {
		w.addf(" ", "c=%s;", s.Canonicalization)
	}

	// Identity (optional)
	if s.Identity != "" {
		w.addf(" ", "i=%s;", s.Identity)
	}

	// Query methods (only if not default dns/txt)
	if len(s.QueryMethods) > 0 && !(len(s.QueryMethods) == 1 && strings.EqualFold(s.QueryMethods[0], "dns/txt")) {
		w.addf(" ", "q=%s;", strings.Join(s.QueryMethods, ":"))
	}

	// Timestamp
	if s.SignTime >= 0 {
		w.addf(" ", "t=%d;", s.SignTime)
	}

	// Expiration
	if s.ExpireTime >= 0 {
		w.addf(" ", "x=%d;", s.ExpireTime)
	}

	// Body length (optional, but discouraged for security)
	if s.Length >= 0 {
		w.addf(" ", "l=%d;", s.Length)
	}

	// Signed headers (required)
	if len(s.SignedHeaders) > 0 {
		// Add h= prefix to first header, colon separators, and semicolon at end
		for i, h := range s.SignedHeaders {
			sep := ""
			if i == 0 {
				h = "h=" + h
				sep = " "
			}
			if i < len(s.SignedHeaders)-1 {
				h += ":"
			} else {
				h += ";"
			}
			w.add(sep, h)
		}
	}

	// Copied headers (optional)
	if len(s.CopiedHeaders) > 0 {
		for i, h := range s.CopiedHeaders {
			// Encode the header
			parts := strings.SplitN(h, ":", 2)
			var encoded string
			if len(parts) == 2 {
				encoded = parts[0] + ":" + encodeCopiedHeader(parts[1])
			} else {
				encoded = encodeCopiedHeader(h)
			}

			sep := ""
			if i == 0 {
				encoded = "z=" + encoded
				sep = " "
			}
			if i < len(s.CopiedHeaders)-1 {
				encoded += "|"
			} else {
				encoded += ";"
			}
			w.add(sep, encoded)
		}
	}

	// Body hash (required)
	w.addf(" ", "bh=%s;", base64.StdEncoding.EncodeToString(s.BodyHash))

	// Signature
	w.add(" ", "b=")
	if includeSignature && len(s.Signature) > 0 {
		w.addWrap([]byte(base64.StdEncoding.EncodeToString(s.Signature)))
	}

	return w.String(), nil
}

// encodeCopiedHeader encodes a header value for the z= tag using DKIM quoted-printable.
func encodeCopiedHeader(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for _, c := range []byte(s) {
		// DKIM-safe-char: printable ASCII except ; = | :
		if c > ' ' && c < 0x7f && c != ';' && c != '=' && c != '|' && c != ':' {
			b.WriteByte(c)
		} else {
			b.WriteByte('=')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}
