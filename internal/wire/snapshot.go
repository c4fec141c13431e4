// Package wire provides a hand-written MessagePack codec, in the shape the
// msgp code generator produces, for serializing point-in-time session
// snapshots to an out-of-band diagnostics sink.
package wire

import (
	"github.com/tinylib/msgp/msgp"
)

// SessionSnapshot captures the observable protocol state of a client at a
// moment in time, for debugging dumps. It intentionally excludes anything
// that can't cross a process boundary (the transport, extension handlers).
type SessionSnapshot struct {
	Stage               string   `msg:"stage"`
	SupportedExtensions []string `msg:"supported_extensions"`
	SendID              string   `msg:"send_id"`
	PendingRecipients    int     `msg:"pending_recipients"`
}

// MarshalMsg appends the MessagePack encoding of z to b and returns the
// extended slice.
func (z *SessionSnapshot) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.AppendMapHeader(b, 4)
	o = msgp.AppendString(o, "stage")
	o = msgp.AppendString(o, z.Stage)
	o = msgp.AppendString(o, "supported_extensions")
	o = msgp.AppendArrayHeader(o, uint32(len(z.SupportedExtensions)))
	for _, ext := range z.SupportedExtensions {
		o = msgp.AppendString(o, ext)
	}
	o = msgp.AppendString(o, "send_id")
	o = msgp.AppendString(o, z.SendID)
	o = msgp.AppendString(o, "pending_recipients")
	o = msgp.AppendInt(o, z.PendingRecipients)
	return o, nil
}

// UnmarshalMsg decodes the MessagePack encoding in bz into z, returning any
// unconsumed trailing bytes.
func (z *SessionSnapshot) UnmarshalMsg(bz []byte) ([]byte, error) {
	var n uint32
	var err error
	n, bz, err = msgp.ReadMapHeaderBytes(bz)
	if err != nil {
		return bz, err
	}

	for i := uint32(0); i < n; i++ {
		var field []byte
		field, bz, err = msgp.ReadStringZC(bz)
		if err != nil {
			return bz, err
		}
		switch string(field) {
		case "stage":
			z.Stage, bz, err = msgp.ReadStringBytes(bz)
		case "supported_extensions":
			var arrLen uint32
			arrLen, bz, err = msgp.ReadArrayHeaderBytes(bz)
			if err != nil {
				return bz, err
			}
			z.SupportedExtensions = make([]string, arrLen)
			for j := uint32(0); j < arrLen; j++ {
				z.SupportedExtensions[j], bz, err = msgp.ReadStringBytes(bz)
				if err != nil {
					return bz, err
				}
			}
			continue
		case "send_id":
			z.SendID, bz, err = msgp.ReadStringBytes(bz)
		case "pending_recipients":
			z.PendingRecipients, bz, err = msgp.ReadIntBytes(bz)
		default:
			bz, err = msgp.Skip(bz)
		}
		if err != nil {
			return bz, err
		}
	}
	return bz, nil
}

// Msgsize returns an upper bound on the encoded size of z, in the style of
// msgp-generated sizers.
func (z *SessionSnapshot) Msgsize() int {
	s := msgp.MapHeaderSize
	s += msgp.StringPrefixSize + len("stage") + msgp.StringPrefixSize + len(z.Stage)
	s += msgp.StringPrefixSize + len("supported_extensions") + msgp.ArrayHeaderSize
	for _, ext := range z.SupportedExtensions {
		s += msgp.StringPrefixSize + len(ext)
	}
	s += msgp.StringPrefixSize + len("send_id") + msgp.StringPrefixSize + len(z.SendID)
	s += msgp.StringPrefixSize + len("pending_recipients") + msgp.IntSize
	return s
}
