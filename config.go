package mailwright

import (
	"crypto/tls"
	"log/slog"
	"time"
)

// ClientConfig configures a Client's transport and logging behavior.
type ClientConfig struct {
	// LocalName is not read by Client: it is neither sent nor logged. The
	// EHLO argument is always derived from the connection's local address
	// per RFC 5321 §4.1.3.
	LocalName string

	// TLSConfig is not read by Client; Connect does not negotiate TLS on
	// its own. TLS is negotiated by the Transport, e.g. a TCPTransport whose
	// TCPConfig.TLSConfig is set.
	TLSConfig *tls.Config

	// ConnectTimeout bounds the TCP dial.
	ConnectTimeout time.Duration

	// TLSHandshakeTimeout is not read by Client; the handshake deadline is
	// the Transport's, e.g. TCPConfig.TLSHandshakeTimeout, which defaults to
	// DefaultTLSHandshakeTimeout when zero.
	TLSHandshakeTimeout time.Duration

	// Logger receives structured diagnostics. Defaults to slog.Default()
	// when nil.
	Logger *slog.Logger
}

// DefaultClientConfig returns a ClientConfig with the protocol's fixed
// one-second TLS handshake timeout and no TLS configured.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		TLSHandshakeTimeout: DefaultTLSHandshakeTimeout,
		Logger:              slog.Default(),
	}
}
