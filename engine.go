package mailwright

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/mailwright/mailwright/internal/future"
	"github.com/mailwright/mailwright/internal/linebuf"
	"github.com/mailwright/mailwright/utils"
)

// MailPreparer is an optional, additive capability an extension may
// implement alongside ExtensionHandler. Unlike ModifyMessage, which rewrites
// one outbound command line at a time, PrepareMail is given the complete
// headers and processed body of an outgoing message once, before DATA
// transmission begins, and may return a replacement of either. This is the
// escape hatch for extensions (DKIM signing, in particular) that need the
// whole message in hand rather than a single line. Supported extensions
// implementing it are consulted in advertised order, each seeing the
// previous one's output.
type MailPreparer interface {
	PrepareMail(ctx *MessageContext, headers Headers, body string) (Headers, string)
}

// ConnectionValidator is another additive, optional capability: an
// extension implementing it is asked to approve the freshly dialed
// connection's remote address once Connect succeeds. It runs alongside
// normal greeting/EHLO processing rather than through the active-extension
// sub-stage mechanism, since §4.4's GoAhead contract assumes the claiming
// extension will consume the server's next replies — which a connection
// check has no use for. validated's argument reports whether the
// connection passed; false triggers a hard failure.
type ConnectionValidator interface {
	ValidateConnection(remoteAddr net.Addr, validated func(ok bool))
}

// Client drives one client-side SMTP submission session: the line
// reassembler, the reply parser, the state machine, and the extension
// dispatch pipeline. All mutable session state lives on the single
// goroutine started by NewClient; every public method and every transport
// callback is dispatched onto it through cmds, which plays the role of the
// reentrant lock the protocol's actor model calls for.
type Client struct {
	transport Transport
	cfg       ClientConfig
	logger    *slog.Logger

	cmds chan func()

	conn                 Connection
	registeredExtensions map[string]ExtensionHandler
	alwaysOnExtensions   []string
	supportedExtensions  []string
	activeExtension      string

	ctx        MessageContext
	reassembler linebuf.Reassembler

	readyOrBrokenHandles []*future.Bool
	inFlightSend         *future.Bool

	headers        Headers
	body           string
	recipients     []string
	currentSendID  string
}

// NewClient creates a Client bound to the given transport and starts its
// single command-processing goroutine.
func NewClient(transport Transport, cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		transport:            transport,
		cfg:                  cfg,
		logger:                logger,
		cmds:                  make(chan func(), 64),
		registeredExtensions: make(map[string]ExtensionHandler),
	}
	go c.loop()
	return c
}

func (c *Client) loop() {
	for cmd := range c.cmds {
		cmd()
	}
}

// run enqueues fn to execute on the client's actor goroutine, without
// waiting for it to complete.
func (c *Client) run(fn func()) {
	c.cmds <- fn
}

// runSync enqueues fn and blocks until it has executed.
func (c *Client) runSync(fn func()) {
	done := make(chan struct{})
	c.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

// RegisterExtension associates a handler with an extension name. Extensions
// must be registered before Connect; the registry is consulted while
// parsing the EHLO reply to decide which advertised extensions are
// supported.
func (c *Client) RegisterExtension(name string, handler ExtensionHandler) {
	c.runSync(func() {
		c.registeredExtensions[name] = handler
	})
}

// RegisterAlwaysOnExtension registers an extension the same way
// RegisterExtension does, but additionally marks it supported on every
// connection regardless of whether the server advertises a matching ESMTP
// keyword. This is the escape hatch for local policy extensions — DKIM
// signing chief among them — that have no EHLO keyword of their own but
// still need to sit in the dispatch pipeline.
func (c *Client) RegisterAlwaysOnExtension(name string, handler ExtensionHandler) {
	c.runSync(func() {
		c.registeredExtensions[name] = handler
		c.alwaysOnExtensions = append(c.alwaysOnExtensions, name)
	})
}

// Connect resets every registered extension, then asks the transport to
// dial host:port. The returned future resolves true once the transport
// connection is established (not once the greeting/options exchange
// completes — callers await ReadyOrBroken for that).
func (c *Client) Connect(ctx context.Context, host string, port int) *future.Bool {
	result := future.New()
	attemptID := utils.GenerateID()

	var handlers []ExtensionHandler
	c.runSync(func() {
		for _, h := range c.registeredExtensions {
			handlers = append(handlers, h)
		}
	})
	for _, h := range handlers {
		h.Reset()
	}

	go func() {
		dialCtx := ctx
		if c.cfg.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
			defer cancel()
		}
		c.logger.Debug("connect attempt", slog.String("attempt_id", attemptID), slog.String("host", host), slog.Int("port", port))
		conn, err := c.transport.Connect(dialCtx, host, port)
		if err != nil {
			c.logger.Warn("connect failed", slog.String("attempt_id", attemptID), slog.String("host", host), slog.Int("port", port), slog.Any("error", err))
			result.Resolve(false)
			return
		}
		c.run(func() {
			c.onConnected(conn)
			result.Resolve(true)
		})
	}()

	return result
}

func (c *Client) onConnected(conn Connection) {
	c.conn = conn
	c.ctx = MessageContext{stage: Greeting}
	c.supportedExtensions = append([]string{}, c.alwaysOnExtensions...)
	c.activeExtension = ""
	c.recipients = nil
	c.headers = nil
	c.body = ""
	c.reassembler.Reset()
	conn.SetCallbacks(c.onBytes, c.onBroken)

	remoteAddr := conn.RemoteAddr()
	for _, h := range c.registeredExtensions {
		if cv, ok := h.(ConnectionValidator); ok {
			cv.ValidateConnection(remoteAddr, c.onConnectionValidated)
		}
	}
}

// onConnectionValidated is the callback handed to ConnectionValidator
// extensions; it may run on any goroutine.
func (c *Client) onConnectionValidated(ok bool) {
	c.run(func() {
		if !ok {
			c.hardFailure(fmt.Errorf("smtp: connection failed validation"))
		}
	})
}

// onBytes is the transport callback for inbound data; it may be invoked
// from a transport-owned goroutine, so it hops onto the actor goroutine
// before touching any session state.
func (c *Client) onBytes(data []byte) {
	c.run(func() {
		c.processBytes(data)
	})
}

func (c *Client) onBroken(graceful bool) {
	c.run(func() {
		c.processBroken(graceful)
	})
}

func (c *Client) processBytes(data []byte) {
	for _, line := range c.reassembler.Feed(data) {
		parsed, err := ParseReply(line)
		if err != nil {
			c.hardFailure(&ErrFramingError{Line: line, Err: err})
			return
		}

		if c.activeExtension != "" {
			ext := c.registeredExtensions[c.activeExtension]
			if !ext.HandleServerReply(&c.ctx, parsed) {
				c.hardFailure(fmt.Errorf("extension %q returned false from HandleServerReply", c.activeExtension))
				return
			}
			continue
		}

		c.handleReply(parsed)
	}
}

func (c *Client) processBroken(graceful bool) {
	if c.conn == nil {
		return
	}
	c.conn = nil
	c.logger.Debug("connection broken", slog.Bool("graceful", graceful))
	c.drainReadyOrBroken(false)
	if c.inFlightSend != nil {
		c.inFlightSend.Resolve(false)
		c.inFlightSend = nil
	}
	c.ctx.stage = Greeting
	c.supportedExtensions = nil
	c.activeExtension = ""
	c.recipients = nil
}

// handleReply is the core eight-state table of spec §4.3, invoked only
// when there is no active extension.
func (c *Client) handleReply(r ParsedReply) {
	switch c.ctx.stage {
	case Greeting:
		if r.Code != CodeServiceReady {
			c.hardFailure(&ProtocolError{Kind: HardFailure, Stage: c.ctx.stage, Code: r.Code, Text: r.Text})
			return
		}
		c.sendCommand("EHLO " + FormatIPv4Literal(c.conn.LocalAddr()))
		c.transition(Options)

	case HelloResponse:
		// Unreachable in this implementation: nothing ever transitions into
		// HelloResponse. Kept for completeness, matching the state table.
		if r.Code == CodeOK && r.Last {
			c.transition(ReadyToSend)
			return
		}
		if r.Code == CodeOK && !r.Last {
			c.transition(Options)
			return
		}
		c.hardFailure(&ProtocolError{Kind: HardFailure, Stage: c.ctx.stage, Code: r.Code, Text: r.Text})

	case Options:
		if r.Code != CodeOK {
			c.hardFailure(&ProtocolError{Kind: HardFailure, Stage: c.ctx.stage, Code: r.Code, Text: r.Text})
			return
		}
		c.parseCapability(r.Text)
		if r.Last {
			c.transition(ReadyToSend)
		} else {
			c.transition(Options)
		}

	case DeclaringSender:
		if r.Code != CodeOK {
			c.softFailure(&ProtocolError{Kind: SoftFailure, Stage: c.ctx.stage, Code: r.Code, Text: r.Text})
			return
		}
		if len(c.recipients) == 0 {
			c.sendCommand("DATA")
			c.transition(SendingData)
			return
		}
		addr := c.recipients[0]
		c.recipients = c.recipients[1:]
		c.sendCommand("RCPT TO:" + addr)
		c.transition(DeclaringRecipients)

	case DeclaringRecipients:
		if r.Code != CodeOK {
			c.softFailure(&ProtocolError{Kind: SoftFailure, Stage: c.ctx.stage, Code: r.Code, Text: r.Text})
			return
		}
		if len(c.recipients) > 0 {
			addr := c.recipients[0]
			c.recipients = c.recipients[1:]
			c.sendCommand("RCPT TO:" + addr)
			c.transition(DeclaringRecipients)
			return
		}
		c.sendCommand("DATA")
		c.transition(SendingData)

	case SendingData:
		if r.Code != CodeStartMailInput {
			c.softFailure(&ProtocolError{Kind: SoftFailure, Stage: c.ctx.stage, Code: r.Code, Text: r.Text})
			return
		}
		c.conn.Send([]byte(c.headers.GenerateRaw()))
		c.conn.Send([]byte(c.body))
		c.conn.Send([]byte(".\r\n"))
		c.transition(AwaitingSendResponse)

	case AwaitingSendResponse:
		if c.inFlightSend != nil {
			c.inFlightSend.Resolve(r.Code == CodeOK)
			c.inFlightSend = nil
		}
		c.transition(ReadyToSend)

	default:
		c.hardFailure(fmt.Errorf("smtp: reply received in unexpected stage %s", c.ctx.stage))
	}
}

// parseCapability splits an EHLO capability line into name and parameters,
// and promotes the extension to supported if it was registered.
func (c *Client) parseCapability(text string) {
	name, params := text, ""
	if idx := strings.IndexByte(text, ' '); idx >= 0 {
		name, params = text[:idx], text[idx+1:]
	}

	handler, registered := c.registeredExtensions[name]
	if !registered {
		return
	}
	c.supportedExtensions = append(c.supportedExtensions, name)
	handler.Configure(params)
}

// sendCommand chains line through every supported extension's
// ModifyMessage, in advertised order, then sends it with a CRLF appended.
func (c *Client) sendCommand(line string) {
	for _, name := range c.supportedExtensions {
		line = c.registeredExtensions[name].ModifyMessage(&c.ctx, line)
	}
	c.conn.Send([]byte(line + "\r\n"))
}

// sendLineRaw sends payload to the transport unmodified, for use by an
// active extension's auxiliary sub-stage.
func (c *Client) sendLineRaw(payload string) {
	if c.conn == nil {
		return
	}
	c.conn.Send([]byte(payload))
}

// transition implements the transition() hook of spec §4.3: it clears the
// active extension, sets the new stage, gives each supported extension a
// chance to claim the stage, and drains ReadyOrBroken handles if no
// extension claimed a ReadyToSend entry.
func (c *Client) transition(next ProtocolStage) {
	c.activeExtension = ""
	c.ctx.stage = next

	for _, name := range c.supportedExtensions {
		handler := c.registeredExtensions[name]
		if handler.IsExtraStageNeededHere(&c.ctx) {
			c.activeExtension = name
			handler.GoAhead(c.sendLineRaw, c.onStageComplete)
			break
		}
	}

	if next == ReadyToSend && c.activeExtension == "" {
		c.drainReadyOrBroken(true)
	}
}

// onStageComplete is the callback handed to the active extension's GoAhead
// call. It may be invoked from any goroutine, so it re-enters the actor
// before mutating state.
func (c *Client) onStageComplete(success bool) {
	c.run(func() {
		c.handleStageComplete(success)
	})
}

func (c *Client) handleStageComplete(success bool) {
	name := c.activeExtension
	c.activeExtension = ""
	if success {
		c.transition(c.ctx.stage)
		return
	}
	if c.inMailTransaction() {
		c.softFailure(fmt.Errorf("extension %q failed its auxiliary sub-stage", name))
		return
	}
	c.hardFailure(fmt.Errorf("extension %q failed its auxiliary sub-stage outside a mail transaction", name))
}

func (c *Client) inMailTransaction() bool {
	switch c.ctx.stage {
	case DeclaringSender, DeclaringRecipients, SendingData, AwaitingSendResponse:
		return true
	default:
		return false
	}
}

// hardFailure drains all ready-or-broken handles with false, resolves any
// in-flight send with false, and closes the transport. The session is
// unusable until a fresh Connect.
func (c *Client) hardFailure(err error) {
	c.logger.Error("hard failure", slog.Any("error", err), slog.String("stage", c.ctx.stage.String()))
	if c.inFlightSend != nil {
		c.inFlightSend.Resolve(false)
		c.inFlightSend = nil
	}
	c.drainReadyOrBroken(false)
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// softFailure resolves only the in-flight send and returns the session to
// ReadyToSend; the connection remains open.
func (c *Client) softFailure(err error) {
	c.logger.Warn("soft failure", slog.Any("error", err), slog.String("stage", c.ctx.stage.String()))
	if c.inFlightSend != nil {
		c.inFlightSend.Resolve(false)
		c.inFlightSend = nil
	}
	c.transition(ReadyToSend)
}

func (c *Client) drainReadyOrBroken(value bool) {
	for _, f := range c.readyOrBrokenHandles {
		f.Resolve(value)
	}
	c.readyOrBrokenHandles = nil
}

// ReadyOrBroken returns a future that resolves true on the next transition
// into ReadyToSend with no active extension, or false on the next
// connection break. Multiple callers may await distinct futures
// concurrently.
func (c *Client) ReadyOrBroken() *future.Bool {
	f := future.New()
	c.run(func() {
		if c.conn != nil && c.ctx.stage == ReadyToSend && c.activeExtension == "" {
			f.Resolve(true)
			return
		}
		c.readyOrBrokenHandles = append(c.readyOrBrokenHandles, f)
	})
	return f
}

// SendMail submits one message. It resolves false immediately, without any
// protocol I/O, if there is no connection, the client is not in
// ReadyToSend, or headers lack a From header.
func (c *Client) SendMail(headers Headers, body string) *future.Bool {
	f := future.New()
	c.run(func() {
		if c.conn == nil || c.ctx.stage != ReadyToSend {
			f.Resolve(false)
			return
		}
		if !headers.HasHeader("From") {
			f.Resolve(false)
			return
		}

		processed := normalizeLineEndings(body)
		processed = dotStuff(processed)
		processed = ensureTrailingCRLF(processed)

		preparedHeaders, preparedBody := headers, processed
		for _, name := range c.supportedExtensions {
			if preparer, ok := c.registeredExtensions[name].(MailPreparer); ok {
				preparedHeaders, preparedBody = preparer.PrepareMail(&c.ctx, preparedHeaders, preparedBody)
			}
		}

		c.headers = preparedHeaders
		c.body = preparedBody
		c.recipients = append([]string{}, headers.MultiValue("To")...)
		c.inFlightSend = f
		c.currentSendID = ulid.Make().String()

		c.logger.Debug("send_mail",
			slog.String("send_id", c.currentSendID),
			slog.String("from", headers.Get("From")),
			slog.Int("recipients", len(c.recipients)))

		c.sendCommand("MAIL FROM:" + headers.Get("From"))
		c.transition(DeclaringSender)
	})
	return f
}

// Disconnect closes the transport if one is open, resolves every
// outstanding handle with false, and resets the client to its initial
// state. Idempotent.
func (c *Client) Disconnect() {
	c.runSync(func() {
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.drainReadyOrBroken(false)
		if c.inFlightSend != nil {
			c.inFlightSend.Resolve(false)
			c.inFlightSend = nil
		}
		c.ctx = MessageContext{stage: Greeting}
		c.supportedExtensions = nil
		c.activeExtension = ""
		c.recipients = nil
		c.reassembler.Reset()
	})
}

// Snapshot returns a point-in-time view of observable session state, for
// diagnostics dumps (see internal/wire).
func (c *Client) Snapshot() (stage string, supported []string, sendID string, pendingRecipients int) {
	c.runSync(func() {
		stage = c.ctx.stage.String()
		supported = append([]string{}, c.supportedExtensions...)
		sendID = c.currentSendID
		pendingRecipients = len(c.recipients)
	})
	return
}

func normalizeLineEndings(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	return strings.ReplaceAll(body, "\n", "\r\n")
}

// dotStuff doubles the leading '.' of any line in body, per RFC 5321
// §4.5.2. body's lines are assumed CRLF-terminated except possibly the
// last.
func dotStuff(body string) string {
	lines := strings.SplitAfter(body, "\r\n")
	for i, line := range lines {
		if strings.HasPrefix(line, ".") {
			lines[i] = "." + line
		}
	}
	return strings.Join(lines, "")
}

func ensureTrailingCRLF(body string) string {
	if strings.HasSuffix(body, "\r\n") {
		return body
	}
	return body + "\r\n"
}
