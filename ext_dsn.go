package mailwright

import "strings"

// DSNExtension implements Delivery Status Notification parameter
// injection (RFC 3461). It reads nothing from the server's EHLO capability
// line (it keeps BaseExtension's no-op Configure; DSN carries no
// parameters of its own in the EHLO reply) and is in effect only once the
// server has advertised the keyword. It rewrites MAIL FROM/RCPT TO
// command lines via ModifyMessage to append RET=/NOTIFY=/ORCPT= as
// configured by the caller.
type DSNExtension struct {
	BaseExtension

	// Notify lists the NOTIFY values to request per recipient, e.g.
	// []string{"SUCCESS", "FAILURE"}. Empty means omit NOTIFY entirely.
	Notify []string

	// Ret is the RET value ("FULL" or "HDRS") requested on MAIL FROM.
	// Empty means omit RET entirely.
	Ret string

	// ORCPT, if non-nil, is called with the exact recipient address text
	// (as it appears after "RCPT TO:") to compute that recipient's ORCPT
	// value. An empty return omits ORCPT for that recipient.
	ORCPT func(addr string) string
}

func (d *DSNExtension) ModifyMessage(ctx *MessageContext, line string) string {
	switch {
	case strings.HasPrefix(line, "MAIL FROM:"):
		if d.Ret != "" {
			line += " RET=" + d.Ret
		}
	case strings.HasPrefix(line, "RCPT TO:"):
		var params []string
		if len(d.Notify) > 0 {
			params = append(params, "NOTIFY="+strings.Join(d.Notify, ","))
		}
		if d.ORCPT != nil {
			addr := strings.TrimPrefix(line, "RCPT TO:")
			if o := d.ORCPT(addr); o != "" {
				params = append(params, "ORCPT="+o)
			}
		}
		if len(params) > 0 {
			line += " " + strings.Join(params, " ")
		}
	}
	return line
}
