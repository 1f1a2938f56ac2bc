package wire

import (
	"testing"
)

func textMessage(t *testing.T, content string) Message {
	t.Helper()
	msg, err := NewMessage(
		Profile{ID: []byte("user-1")},
		[]byte("msg-1"),
		[]byte("platform-a"),
		MessageType{Text: &TextContent{Content: content}},
	)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	return msg
}

func TestPayloadMessageRoundTrip(t *testing.T) {
	msg := textMessage(t, "hello room")
	payload := NewMessagePayload(msg)

	data, err := marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Payload
	if err := unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Message == nil || decoded.Event != nil {
		t.Fatalf("decoded payload = %+v, want Message set", decoded)
	}
	if len(decoded.Message.Chain) != 1 || decoded.Message.Chain[0].Text == nil {
		t.Fatalf("decoded chain = %+v, want one text entry", decoded.Message.Chain)
	}
	if decoded.Message.Chain[0].Text.Content != "hello room" {
		t.Fatalf("decoded content = %q, want %q", decoded.Message.Chain[0].Text.Content, "hello room")
	}
}

func TestPayloadEventRoundTrip(t *testing.T) {
	id := []byte("remote-image-uid")
	payload := NewEventPayload(Event{RequestImage: &RequestImage{ID: id}})

	data, err := marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Payload
	if err := unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Event == nil || decoded.Event.RequestImage == nil {
		t.Fatalf("decoded payload = %+v, want RequestImage event", decoded)
	}
	if string(decoded.Event.RequestImage.ID) != string(id) {
		t.Fatalf("decoded id = %v, want %v", decoded.Event.RequestImage.ID, id)
	}
}

func TestPayloadUnknownTagRejected(t *testing.T) {
	raw := []byte{0xa1, 0x61, 't', 0x61, 'x'} // {"t": "x"}
	var decoded Payload
	if err := unmarshal(raw, &decoded); err == nil {
		t.Fatal("unmarshal unknown payload tag succeeded, want error")
	}
}

func TestMessageTypeUnknownTagTolerated(t *testing.T) {
	data, err := marshal(struct {
		T string `cbor:"t"`
	}{"sticker"})
	if err != nil {
		t.Fatalf("marshal placeholder: %v", err)
	}

	var mt MessageType
	if err := unmarshal(data, &mt); err != nil {
		t.Fatalf("unmarshal unknown message type tag returned error: %v", err)
	}
	if mt.IsKnown() {
		t.Fatal("expected unknown MessageType tag to decode as unknown")
	}
	if mt.UnknownTag != "sticker" {
		t.Fatalf("UnknownTag = %q, want %q", mt.UnknownTag, "sticker")
	}

	msg := textMessage(t, "hi")
	msg.Chain = append(msg.Chain, mt)
	if known := msg.KnownChain(); len(known) != 1 {
		t.Fatalf("KnownChain len = %d, want 1", len(known))
	}
}
