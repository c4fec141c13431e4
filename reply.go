package mailwright

import (
	"github.com/mailwright/mailwright/internal/reply"
)

// ParsedReply is a single parsed server reply line, per RFC 5321 §4.2.
type ParsedReply struct {
	Code int
	Last bool
	Text string
}

// ParseReply parses one CRLF-terminated server reply line. A non-nil error
// indicates malformed framing, which the state machine treats as a hard
// failure.
func ParseReply(line string) (ParsedReply, error) {
	p, err := reply.Parse(line)
	if err != nil {
		return ParsedReply{}, err
	}
	return ParsedReply{Code: p.Code, Last: p.Last, Text: p.Text}, nil
}
