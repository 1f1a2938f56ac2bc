package wire

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/relaybridge/msgist/cipher"
)

// Envelope type values carried in Packet.Type.
const (
	EnvelopeMessage = "message"
	EnvelopeEvent   = "event"
	EnvelopeCtl     = "ctl"
)

// Packet is the outermost wire structure exchanged over a relay
// connection: a room-scoped envelope around either encrypted payload
// bytes (message/event) or a bare subscription control (ctl).
type Packet struct {
	Type    string    `cbor:"t"`
	Content []byte    `cbor:"c"`
	Nonce   []byte    `cbor:"n"`
	RoomID  uuid.UUID `cbor:"rid"`
	Inbox   *Inbox    `cbor:"inbox,omitempty"`
	Ctl     *Ctl      `cbor:"ctl,omitempty"`
}

// New encrypts payload under c and wraps it in a Packet addressed to
// roomID. The envelope type is derived from which side of payload is set.
func New(roomID uuid.UUID, payload Payload, c *cipher.Cipher) (*Packet, error) {
	var ty string
	switch {
	case payload.Message != nil:
		ty = EnvelopeMessage
	case payload.Event != nil:
		ty = EnvelopeEvent
	default:
		return nil, fmt.Errorf("wire: cannot build a packet from an empty payload")
	}

	plaintext, err := marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal payload: %w", err)
	}

	nonce, err := c.NewNonce()
	if err != nil {
		return nil, fmt.Errorf("wire: generate nonce: %w", err)
	}
	ciphertext, err := c.Encrypt(nonce, plaintext)
	if err != nil {
		return nil, fmt.Errorf("wire: encrypt payload: %w", err)
	}

	return &Packet{
		Type:    ty,
		Content: ciphertext,
		Nonce:   nonce,
		RoomID:  roomID,
	}, nil
}

// NewSub builds a ctl packet that subscribes to roomID.
func NewSub(roomID uuid.UUID) *Packet {
	ctl := CtlSub
	return &Packet{
		Type:    EnvelopeCtl,
		Content: []byte{},
		Nonce:   []byte{},
		RoomID:  roomID,
		Ctl:     &ctl,
	}
}

// NewUnsub builds a ctl packet that unsubscribes from roomID.
func NewUnsub(roomID uuid.UUID) *Packet {
	ctl := CtlUnsub
	return &Packet{
		Type:    EnvelopeCtl,
		Content: []byte{},
		Nonce:   []byte{},
		RoomID:  roomID,
		Ctl:     &ctl,
	}
}

// WithInbox attaches an inbox correlation to p and returns p for chaining.
func (p *Packet) WithInbox(ib *Inbox) *Packet {
	p.Inbox = ib
	return p
}

// Validate checks p against the field-combination invariants of the wire
// format: a ctl packet carries no ciphertext, and a message/event packet
// carries a full-size nonce.
func (p *Packet) Validate() error {
	switch p.Type {
	case EnvelopeCtl:
		if len(p.Content) != 0 || len(p.Nonce) != 0 {
			return fmt.Errorf("%w: ctl packet carries ciphertext", ErrInvalidPacket)
		}
		if p.Ctl == nil {
			return fmt.Errorf("%w: ctl packet missing ctl field", ErrInvalidPacket)
		}
	case EnvelopeMessage, EnvelopeEvent:
		if len(p.Nonce) != cipher.NonceSize {
			return fmt.Errorf("%w: nonce length %d, want %d", ErrInvalidPacket, len(p.Nonce), cipher.NonceSize)
		}
		if p.Ctl != nil {
			return fmt.Errorf("%w: %s packet carries a ctl field", ErrInvalidPacket, p.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnvelopeType, p.Type)
	}
	return nil
}

// Decrypt opens p's ciphertext under c and decodes the resulting Payload.
// It is an error to call Decrypt on a ctl packet.
func (p *Packet) Decrypt(c *cipher.Cipher) (*Payload, error) {
	if p.Type == EnvelopeCtl {
		return nil, ErrDecryptMismatch
	}

	plaintext, err := c.Decrypt(p.Nonce, p.Content)
	if err != nil {
		return nil, fmt.Errorf("wire: decrypt packet: %w", err)
	}

	var payload Payload
	if err := unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("wire: decode payload: %w", err)
	}
	return &payload, nil
}

// ToBytes serializes p to its canonical CBOR encoding.
func (p *Packet) ToBytes() ([]byte, error) {
	return marshal(p)
}

// FromBytes decodes a Packet previously produced by ToBytes.
func FromBytes(data []byte) (*Packet, error) {
	var p Packet
	if err := unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &p, nil
}
