package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Payload is the plaintext a Packet's ciphertext decrypts to: either a
// Message or an Event, never both. Its own "t" discriminator ("m"/"e") is
// merged into the same CBOR map as whichever side is set, rather than
// nesting a sub-object, so the wire form stays a single flat map.
type Payload struct {
	Message *Message
	Event   *Event
}

// NewMessagePayload wraps msg as a Payload.
func NewMessagePayload(msg Message) Payload {
	return Payload{Message: &msg}
}

// NewEventPayload wraps ev as a Payload.
func NewEventPayload(ev Event) Payload {
	return Payload{Event: &ev}
}

func (p Payload) MarshalCBOR() ([]byte, error) {
	var tag string
	var inner any

	switch {
	case p.Message != nil:
		tag, inner = "m", p.Message
	case p.Event != nil:
		tag, inner = "e", p.Event
	default:
		return nil, fmt.Errorf("wire: payload has neither message nor event set")
	}

	innerBytes, err := marshal(inner)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal payload body: %w", err)
	}

	var fields map[string]cbor.RawMessage
	if err := unmarshal(innerBytes, &fields); err != nil {
		return nil, fmt.Errorf("wire: unwrap payload body: %w", err)
	}

	tagBytes, err := marshal(tag)
	if err != nil {
		return nil, err
	}
	fields["t"] = tagBytes

	return marshal(fields)
}

func (p *Payload) UnmarshalCBOR(data []byte) error {
	var tag struct {
		T string `cbor:"t"`
	}
	if err := unmarshal(data, &tag); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch tag.T {
	case "m":
		var msg Message
		if err := unmarshal(data, &msg); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		p.Message, p.Event = &msg, nil
	case "e":
		var ev Event
		if err := unmarshal(data, &ev); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		p.Event, p.Message = &ev, nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPayloadVariant, tag.T)
	}
	return nil
}
