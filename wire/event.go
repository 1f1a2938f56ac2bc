package wire

// Event is a control-plane round-trip between two peers that isn't a chat
// message: asking a peer for the URL behind an image id, or a liveness
// probe. Like MessageType, it's an open tagged union — Unknown is set
// when decode sees a tag this build doesn't recognize, and the surrounding
// Packet still decodes successfully.
//
// Its own discriminator is serialized under the key "et" rather than "t":
// Event values are themselves wrapped inside a Payload, whose own "t" field
// (see Payload) already occupies that key at the outer map level.
type Event struct {
	RequestImage *RequestImage
	RespondImage *RespondImage
	RequestEcho  *RequestEcho
	RespondEcho  *RespondEcho

	Unknown    bool
	UnknownTag string
}

// RequestImage asks the peer holding image id to send it back via
// RespondImage, correlated through the Packet's inbox id. ID is the raw
// resource id bytes, the same bytes resourcecache.ResourceID addresses
// the cache by — not a derived value, since the peer must resolve these
// exact bytes through its own image-id store.
type RequestImage struct {
	ID []byte `cbor:"id"`
}

// RespondImage answers a RequestImage with the resource's origin URL, or
// an empty URL if the responder has no record of it.
type RespondImage struct {
	ID  []byte `cbor:"id"`
	URL string `cbor:"url"`
}

// RequestEcho is a liveness probe: ask a peer to prove it's alive and
// processing packets, independent of the transport's own keepalive frames.
type RequestEcho struct {
	Name string `cbor:"name"`
}

// RespondEcho answers a RequestEcho, echoing its name back.
type RespondEcho struct {
	Name string `cbor:"name"`
}

func (e Event) IsKnown() bool {
	return !e.Unknown
}

type eventTag struct {
	ET string `cbor:"et"`
}

func (e Event) MarshalCBOR() ([]byte, error) {
	switch {
	case e.RequestImage != nil:
		return marshal(struct {
			ET string `cbor:"et"`
			ID []byte `cbor:"id"`
		}{"request_image", e.RequestImage.ID})
	case e.RespondImage != nil:
		return marshal(struct {
			ET  string `cbor:"et"`
			ID  []byte `cbor:"id"`
			URL string `cbor:"url"`
		}{"respond_image", e.RespondImage.ID, e.RespondImage.URL})
	case e.RequestEcho != nil:
		return marshal(struct {
			ET   string `cbor:"et"`
			Name string `cbor:"name"`
		}{"request_echo", e.RequestEcho.Name})
	case e.RespondEcho != nil:
		return marshal(struct {
			ET   string `cbor:"et"`
			Name string `cbor:"name"`
		}{"respond_echo", e.RespondEcho.Name})
	default:
		return nil, ErrUnknownEventTag
	}
}

func (e *Event) UnmarshalCBOR(data []byte) error {
	var tag eventTag
	if err := unmarshal(data, &tag); err != nil {
		return err
	}

	switch tag.ET {
	case "request_image":
		var v RequestImage
		if err := unmarshal(data, &v); err != nil {
			return err
		}
		*e = Event{RequestImage: &v}
	case "respond_image":
		var v RespondImage
		if err := unmarshal(data, &v); err != nil {
			return err
		}
		*e = Event{RespondImage: &v}
	case "request_echo":
		var v RequestEcho
		if err := unmarshal(data, &v); err != nil {
			return err
		}
		*e = Event{RequestEcho: &v}
	case "respond_echo":
		var v RespondEcho
		if err := unmarshal(data, &v); err != nil {
			return err
		}
		*e = Event{RespondEcho: &v}
	default:
		*e = Event{Unknown: true, UnknownTag: tag.ET}
	}
	return nil
}
