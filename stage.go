package mailwright

// ProtocolStage is one state in the client's SMTP submission dialog.
type ProtocolStage int

const (
	Greeting ProtocolStage = iota
	HelloResponse
	Options
	ReadyToSend
	DeclaringSender
	DeclaringRecipients
	SendingData
	AwaitingSendResponse
)

func (s ProtocolStage) String() string {
	switch s {
	case Greeting:
		return "Greeting"
	case HelloResponse:
		return "HelloResponse"
	case Options:
		return "Options"
	case ReadyToSend:
		return "ReadyToSend"
	case DeclaringSender:
		return "DeclaringSender"
	case DeclaringRecipients:
		return "DeclaringRecipients"
	case SendingData:
		return "SendingData"
	case AwaitingSendResponse:
		return "AwaitingSendResponse"
	default:
		return "Unknown"
	}
}

// MessageContext is the piece of client state extensions are given read
// access to. It is owned and mutated exclusively by the state machine.
type MessageContext struct {
	stage ProtocolStage
}

// Stage returns the client's current protocol stage.
func (c *MessageContext) Stage() ProtocolStage {
	return c.stage
}
