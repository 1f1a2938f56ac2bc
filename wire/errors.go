package wire

import "errors"

var (
	// ErrDecode wraps any CBOR structural decode failure (malformed bytes,
	// a field of the wrong CBOR type). Fields absent from the encoded map
	// are not reported; they decode as zero values.
	ErrDecode = errors.New("wire: decode failure")

	// ErrUnknownEnvelopeType is returned when a Packet's "t" field is not
	// one of "message", "event", or "ctl". Unlike unknown Payload variant
	// tags (which are tolerated for forward compatibility), an unknown
	// envelope type is rejected outright per the wire-compat invariant.
	ErrUnknownEnvelopeType = errors.New("wire: unknown envelope type")

	// ErrDecryptMismatch is returned by Packet.Decrypt when called on a
	// control packet, which carries no ciphertext.
	ErrDecryptMismatch = errors.New("wire: cannot decrypt a ctl packet")

	// ErrUnknownPayloadVariant is returned by Payload decoding when the "t"
	// discriminator names neither "m" nor "e".
	ErrUnknownPayloadVariant = errors.New("wire: unknown payload variant")

	// ErrUnknownMessageTypeTag is returned by MessageType.MarshalCBOR when
	// no known variant is set, including a value that was decoded from an
	// unrecognized tag. Decoding never returns it: an unrecognized tag
	// decodes with Unknown set, and the surrounding Message still decodes.
	ErrUnknownMessageTypeTag = errors.New("wire: unknown message type tag")

	// ErrUnknownEventTag mirrors ErrUnknownMessageTypeTag for Event.MarshalCBOR.
	ErrUnknownEventTag = errors.New("wire: unknown event tag")

	// ErrInvalidPacket is returned when a Packet's field combination
	// violates the §3 invariants (e.g. a "ctl" packet with non-empty
	// content, or a "message"/"event" packet with an empty nonce).
	ErrInvalidPacket = errors.New("wire: packet violates field invariants")
)
