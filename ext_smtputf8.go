package mailwright

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mailwright/mailwright/utils"
)

// SMTPUTF8Extension normalizes the address portion of MAIL FROM and RCPT
// TO command lines to Unicode NFC before transmission, once the server
// has advertised SMTPUTF8 (RFC 6531). Servers and receiving MTAs compare
// UTF-8 local-parts byte-for-byte, so an unnormalized local-part risks a
// silent mismatch against the recipient's actual mailbox encoding.
type SMTPUTF8Extension struct {
	BaseExtension
}

func (SMTPUTF8Extension) ModifyMessage(ctx *MessageContext, line string) string {
	switch {
	case strings.HasPrefix(line, "MAIL FROM:"):
		return "MAIL FROM:" + normalizeIfNonASCII(strings.TrimPrefix(line, "MAIL FROM:"))
	case strings.HasPrefix(line, "RCPT TO:"):
		return "RCPT TO:" + normalizeIfNonASCII(strings.TrimPrefix(line, "RCPT TO:"))
	default:
		return line
	}
}

// normalizeIfNonASCII leaves a pure-ASCII address untouched and only pays
// for NFC normalization when utils.ContainsNonASCII reports a reason to.
func normalizeIfNonASCII(addr string) string {
	if !utils.ContainsNonASCII(addr) {
		return addr
	}
	return norm.NFC.String(addr)
}
