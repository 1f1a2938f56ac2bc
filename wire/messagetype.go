package wire

import "github.com/fxamacker/cbor/v2"

// MessageType is one entry in a Message's chain: a tagged union of Text,
// Edit, and Image content. Exactly one of the typed fields is set on a
// value produced by this package. A value decoded from an unrecognized
// tag has Unknown set instead, so that one peer shipping a new chain
// entry kind doesn't break an older peer's decode of the surrounding
// Message — the entry is simply skipped by callers that range over
// Message.Chain and check IsKnown.
type MessageType struct {
	Text  *TextContent
	Edit  *EditContent
	Image *ImageContent

	Unknown    bool
	UnknownTag string
}

// TextContent is a plain text chain entry.
type TextContent struct {
	Content string `cbor:"content"`
}

// EditContent replaces the text of a previously sent message.
type EditContent struct {
	Content string `cbor:"content"`
}

// ImageContent references image bytes by content-addressed id, with an
// optional origin URL an adapter can use to refetch it.
type ImageContent struct {
	ID  []byte  `cbor:"id"`
	URL *string `cbor:"url,omitempty"`
}

// IsKnown reports whether m decoded to a recognized variant.
func (m MessageType) IsKnown() bool {
	return !m.Unknown
}

type messageTypeTag struct {
	T string `cbor:"t"`
}

func (m MessageType) MarshalCBOR() ([]byte, error) {
	switch {
	case m.Text != nil:
		return marshal(struct {
			T       string `cbor:"t"`
			Content string `cbor:"content"`
		}{"text", m.Text.Content})
	case m.Edit != nil:
		return marshal(struct {
			T       string `cbor:"t"`
			Content string `cbor:"content"`
		}{"edit", m.Edit.Content})
	case m.Image != nil:
		return marshal(struct {
			T   string  `cbor:"t"`
			ID  []byte  `cbor:"id"`
			URL *string `cbor:"url,omitempty"`
		}{"image", m.Image.ID, m.Image.URL})
	default:
		return nil, ErrUnknownMessageTypeTag
	}
}

func (m *MessageType) UnmarshalCBOR(data []byte) error {
	var tag messageTypeTag
	if err := unmarshal(data, &tag); err != nil {
		return err
	}

	switch tag.T {
	case "text":
		var v TextContent
		if err := unmarshal(data, &v); err != nil {
			return err
		}
		*m = MessageType{Text: &v}
	case "edit":
		var v EditContent
		if err := unmarshal(data, &v); err != nil {
			return err
		}
		*m = MessageType{Edit: &v}
	case "image":
		var v ImageContent
		if err := unmarshal(data, &v); err != nil {
			return err
		}
		*m = MessageType{Image: &v}
	default:
		*m = MessageType{Unknown: true, UnknownTag: tag.T}
	}
	return nil
}

var (
	_ cbor.Marshaler   = MessageType{}
	_ cbor.Unmarshaler = (*MessageType)(nil)
)
