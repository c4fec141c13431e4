package mailwright

// SMTP reply codes referenced by the state machine (RFC 5321 §4.2).
const (
	CodeServiceReady     = 220
	CodeOK               = 250
	CodeStartMailInput   = 354
	CodeServiceClosing   = 221
	CodeActionAborted    = 421
	CodeMailboxBusy      = 450
	CodeLocalError       = 451
	CodeInsufficientStor = 452
	CodeSyntaxError      = 500
	CodeArgSyntaxError   = 501
	CodeCommandNotImpl   = 502
	CodeBadSequence      = 503
	CodeMailboxUnavail   = 550
	CodeUserNotLocal     = 551
	CodeExceededStorage  = 552
	CodeMailboxNameBad   = 553
	CodeTransactionFail  = 554
)
