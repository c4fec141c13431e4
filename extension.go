package mailwright

// SendLineFunc sends a line verbatim to the transport. The payload must
// carry its own terminators; it bypasses ModifyMessage.
type SendLineFunc func(payload string)

// StageCompleteFunc signals the end of an extension's auxiliary sub-stage.
// success = false triggers a soft failure for the in-flight mail when the
// client is in a mail transaction (DeclaringSender through
// AwaitingSendResponse), and a hard failure in any other stage.
type StageCompleteFunc func(success bool)

// ExtensionHandler is the capability set a registered extension may
// implement. Every method is optional; BaseExtension supplies the defaults
// described in each method's doc comment, so handlers only need to
// override the hooks they care about.
type ExtensionHandler interface {
	// Configure is called when the server advertises this extension in its
	// EHLO reply, with the extension's parameter string (possibly empty).
	Configure(parameters string)

	// Reset is called on every new connection attempt, before any I/O.
	Reset()

	// ModifyMessage is called immediately before every outbound command
	// line (never the raw body payload or the .\r\n terminator) is handed
	// to the transport. Supported extensions are chained in
	// server-advertised order, each seeing the previous one's output. The
	// input and output exclude the trailing CRLF.
	ModifyMessage(ctx *MessageContext, line string) string

	// IsExtraStageNeededHere is called on every transition. If it returns
	// true, this extension becomes the active extension and receives a
	// GoAhead call.
	IsExtraStageNeededHere(ctx *MessageContext) bool

	// GoAhead is the entry point into the extension's auxiliary sub-stage.
	// The extension may call sendLine any number of times and must
	// eventually call onStageComplete exactly once.
	GoAhead(sendLine SendLineFunc, onStageComplete StageCompleteFunc)

	// HandleServerReply is called, while this extension is active, for
	// every inbound parsed reply. Returning false triggers a hard failure.
	HandleServerReply(ctx *MessageContext, reply ParsedReply) bool
}

// BaseExtension implements ExtensionHandler with the defaults specified by
// the capability contract: Configure, Reset, and GoAhead do nothing;
// ModifyMessage is the identity function; IsExtraStageNeededHere and
// HandleServerReply return false. Embed it in a concrete extension and
// override only the hooks that extension needs.
type BaseExtension struct{}

func (BaseExtension) Configure(parameters string) {}

func (BaseExtension) Reset() {}

func (BaseExtension) ModifyMessage(ctx *MessageContext, line string) string {
	return line
}

func (BaseExtension) IsExtraStageNeededHere(ctx *MessageContext) bool {
	return false
}

func (BaseExtension) GoAhead(sendLine SendLineFunc, onStageComplete StageCompleteFunc) {}

func (BaseExtension) HandleServerReply(ctx *MessageContext, reply ParsedReply) bool {
	return false
}
