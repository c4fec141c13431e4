package mailwright

import (
	"fmt"
	"net"

	"github.com/mailwright/mailwright/utils"
)

// FormatIPv4Literal formats the IPv4 address of addr as the bracketed
// address literal RFC 5321 §4.1.3 requires for an EHLO argument, e.g.
// "[127.0.0.1]". If addr's address is IPv6, it is rendered under the
// "IPv6:" literal form instead, since a bare EHLO literal must say which
// family it carries.
func FormatIPv4Literal(addr net.Addr) string {
	ip, err := utils.GetIPFromAddr(addr)
	if err != nil {
		return "[127.0.0.1]"
	}
	if v4 := ip.To4(); v4 != nil {
		return fmt.Sprintf("[%s]", v4.String())
	}
	return fmt.Sprintf("[IPv6:%s]", ip.String())
}
