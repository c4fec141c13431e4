package mailwright

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// OnBytesFunc is invoked, from a transport-owned goroutine, whenever bytes
// arrive on the connection.
type OnBytesFunc func(data []byte)

// OnBrokenFunc is invoked, from a transport-owned goroutine, exactly once
// when the connection is lost. graceful is true for an orderly close
// initiated by this side (Disconnect), false for anything else.
type OnBrokenFunc func(graceful bool)

// Connection is an established bidirectional byte transport. Send may be
// called concurrently with itself and with Close; after Close or after
// OnBroken fires, further Sends are no-ops.
type Connection interface {
	// Send writes data to the connection. It does not block on the peer;
	// errors surface asynchronously via OnBroken.
	Send(data []byte)

	// Close closes the connection from this side.
	Close()

	// SetCallbacks installs the callbacks the connection delivers inbound
	// data and loss notifications through. Must be called at most once,
	// immediately after a successful Transport.Connect.
	SetCallbacks(onBytes OnBytesFunc, onBroken OnBrokenFunc)

	// LocalAddr returns the locally bound address, used to format the
	// EHLO IPv4 literal.
	LocalAddr() net.Addr

	// RemoteAddr returns the peer's address, used by connection-validating
	// extensions (e.g. MXCheckExtension).
	RemoteAddr() net.Addr
}

// Transport is the abstract port the core consumes for socket/TLS detail,
// per the transport-port boundary: connect, send, close, and asynchronous
// on_bytes/on_broken delivery.
type Transport interface {
	// Connect dials host:port and returns an established Connection, or
	// nil and an error if the attempt failed.
	Connect(ctx context.Context, host string, port int) (Connection, error)
}

// TCPConfig configures a TCPTransport.
type TCPConfig struct {
	// TLSConfig, if non-nil, causes Connect to perform a TLS handshake
	// over the dialed TCP connection using this configuration.
	TLSConfig *tls.Config

	// DialTimeout bounds the TCP dial. Zero means no explicit timeout
	// beyond the context passed to Connect.
	DialTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake once the TCP
	// connection is established. Per the protocol's fixed timeout, this
	// defaults to one second when zero.
	TLSHandshakeTimeout time.Duration
}

// DefaultTLSHandshakeTimeout is the handshake deadline applied when a
// TCPConfig leaves TLSHandshakeTimeout unset.
const DefaultTLSHandshakeTimeout = 1 * time.Second

// TCPTransport dials plain TCP or TLS-tunneled connections, adapted from a
// blocking dial into one that pushes inbound bytes to the core via a
// background read loop rather than handing back a blocking reader.
type TCPTransport struct {
	cfg TCPConfig
}

// NewTCPTransport builds a Transport from the given configuration.
func NewTCPTransport(cfg TCPConfig) *TCPTransport {
	return &TCPTransport{cfg: cfg}
}

func (t *TCPTransport) Connect(ctx context.Context, host string, port int) (Connection, error) {
	dialer := &net.Dialer{Timeout: t.cfg.DialTimeout}
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	if t.cfg.TLSConfig != nil {
		conn, err = t.handshakeTLS(ctx, conn)
		if err != nil {
			return nil, err
		}
	}

	return newTCPConnection(conn), nil
}

func (t *TCPTransport) handshakeTLS(ctx context.Context, raw net.Conn) (net.Conn, error) {
	timeout := t.cfg.TLSHandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultTLSHandshakeTimeout
	}

	tlsConn := tls.Client(raw, t.cfg.TLSConfig)

	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(hctx)
	g.Go(func() error {
		return tlsConn.HandshakeContext(gctx)
	})

	if err := g.Wait(); err != nil {
		raw.Close()
		if hctx.Err() != nil {
			return nil, ErrTLSHandshakeTimeout
		}
		return nil, fmt.Errorf("transport: tls handshake: %w", err)
	}

	return tlsConn, nil
}

// tcpConnection adapts a net.Conn into the Connection port, running a
// background read loop that pushes OnBytes/OnBroken callbacks instead of
// exposing a blocking reader to the caller.
type tcpConnection struct {
	conn net.Conn

	mu       sync.Mutex
	closed   bool
	onBytes  OnBytesFunc
	onBroken OnBrokenFunc
}

func newTCPConnection(conn net.Conn) *tcpConnection {
	c := &tcpConnection{conn: conn}
	return c
}

func (c *tcpConnection) SetCallbacks(onBytes OnBytesFunc, onBroken OnBrokenFunc) {
	c.mu.Lock()
	c.onBytes = onBytes
	c.onBroken = onBroken
	c.mu.Unlock()

	go c.readLoop()
}

func (c *tcpConnection) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.mu.Lock()
			onBytes := c.onBytes
			c.mu.Unlock()
			if onBytes != nil {
				onBytes(append([]byte(nil), buf[:n]...))
			}
		}
		if err != nil {
			c.mu.Lock()
			graceful := c.closed
			onBroken := c.onBroken
			c.mu.Unlock()
			if onBroken != nil {
				onBroken(graceful)
			}
			return
		}
	}
}

func (c *tcpConnection) Send(data []byte) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	_, _ = c.conn.Write(data)
}

func (c *tcpConnection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	_ = c.conn.Close()
}

func (c *tcpConnection) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *tcpConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
