package wire

import "github.com/google/uuid"

// Inbox correlates a Packet with a prior request-response round-trip:
// Request carries the id a responder must echo back in a Respond so the
// original caller's waiting goroutine can be woken.
type Inbox struct {
	Request *InboxRequest
	Respond *InboxRespond
}

type InboxRequest struct {
	ID uuid.UUID
}

type InboxRespond struct {
	ID uuid.UUID
}

// NewInboxRequest builds an Inbox carrying a fresh request id.
func NewInboxRequest(id uuid.UUID) *Inbox {
	return &Inbox{Request: &InboxRequest{ID: id}}
}

// NewInboxRespond builds an Inbox answering request id.
func NewInboxRespond(id uuid.UUID) *Inbox {
	return &Inbox{Respond: &InboxRespond{ID: id}}
}

// ID returns the correlation id regardless of which side is set.
func (i Inbox) ID() uuid.UUID {
	switch {
	case i.Request != nil:
		return i.Request.ID
	case i.Respond != nil:
		return i.Respond.ID
	default:
		return uuid.Nil
	}
}

type inboxWire struct {
	T  string    `cbor:"t"`
	ID uuid.UUID `cbor:"id"`
}

func (i Inbox) MarshalCBOR() ([]byte, error) {
	switch {
	case i.Request != nil:
		return marshal(inboxWire{"req", i.Request.ID})
	case i.Respond != nil:
		return marshal(inboxWire{"res", i.Respond.ID})
	default:
		return nil, ErrInvalidPacket
	}
}

func (i *Inbox) UnmarshalCBOR(data []byte) error {
	var w inboxWire
	if err := unmarshal(data, &w); err != nil {
		return err
	}
	switch w.T {
	case "req":
		*i = Inbox{Request: &InboxRequest{ID: w.ID}}
	case "res":
		*i = Inbox{Respond: &InboxRespond{ID: w.ID}}
	default:
		return ErrInvalidPacket
	}
	return nil
}

// Ctl is a subscription control message: join or leave a room's relay
// without sending a chat payload.
type Ctl int

const (
	// CtlSub subscribes the sending connection to the packet's room.
	CtlSub Ctl = iota
	// CtlUnsub unsubscribes it.
	CtlUnsub
)

type ctlWire struct {
	T string `cbor:"t"`
}

func (c Ctl) MarshalCBOR() ([]byte, error) {
	switch c {
	case CtlSub:
		return marshal(ctlWire{"sub"})
	case CtlUnsub:
		return marshal(ctlWire{"unsub"})
	default:
		return nil, ErrInvalidPacket
	}
}

func (c *Ctl) UnmarshalCBOR(data []byte) error {
	var w ctlWire
	if err := unmarshal(data, &w); err != nil {
		return err
	}
	switch w.T {
	case "sub":
		*c = CtlSub
	case "unsub":
		*c = CtlUnsub
	default:
		return ErrInvalidPacket
	}
	return nil
}
