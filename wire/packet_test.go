package wire

import (
	"testing"

	"github.com/google/uuid"

	"github.com/relaybridge/msgist/cipher"
)

func TestPacketMessageRoundTrip(t *testing.T) {
	c, err := cipher.New("room passphrase")
	if err != nil {
		t.Fatalf("cipher.New: %v", err)
	}
	roomID := RoomID("wss://relay.example/ws", "room passphrase")

	msg := textMessage(t, "hello")
	pkt, err := New(roomID, NewMessagePayload(msg), c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := pkt.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	raw, err := pkt.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}

	decoded, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if decoded.RoomID != roomID {
		t.Fatalf("RoomID = %v, want %v", decoded.RoomID, roomID)
	}

	payload, err := decoded.Decrypt(c)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if payload.Message == nil {
		t.Fatal("decrypted payload has no message")
	}
	if payload.Message.Chain[0].Text.Content != "hello" {
		t.Fatalf("content = %q, want %q", payload.Message.Chain[0].Text.Content, "hello")
	}
}

func TestPacketDecryptWrongKeyFails(t *testing.T) {
	a, _ := cipher.New("key-a")
	b, _ := cipher.New("key-b")
	roomID := uuid.New()

	pkt, err := New(roomID, NewMessagePayload(textMessage(t, "secret")), a)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := pkt.Decrypt(b); err == nil {
		t.Fatal("Decrypt with wrong key succeeded, want error")
	}
}

func TestPacketSubUnsubInvariants(t *testing.T) {
	roomID := uuid.New()

	sub := NewSub(roomID)
	if err := sub.Validate(); err != nil {
		t.Fatalf("Validate sub: %v", err)
	}
	if sub.Ctl == nil || *sub.Ctl != CtlSub {
		t.Fatalf("sub.Ctl = %v, want CtlSub", sub.Ctl)
	}

	unsub := NewUnsub(roomID)
	if err := unsub.Validate(); err != nil {
		t.Fatalf("Validate unsub: %v", err)
	}
	if unsub.Ctl == nil || *unsub.Ctl != CtlUnsub {
		t.Fatalf("unsub.Ctl = %v, want CtlUnsub", unsub.Ctl)
	}

	raw, err := sub.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	decoded, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if decoded.Type != EnvelopeCtl || decoded.Ctl == nil || *decoded.Ctl != CtlSub {
		t.Fatalf("decoded sub packet = %+v", decoded)
	}
}

func TestPacketDecryptRejectsCtl(t *testing.T) {
	c, _ := cipher.New("key")
	pkt := NewSub(uuid.New())
	if _, err := pkt.Decrypt(c); err != ErrDecryptMismatch {
		t.Fatalf("Decrypt ctl error = %v, want %v", err, ErrDecryptMismatch)
	}
}

func TestPacketValidateRejectsUnknownEnvelopeType(t *testing.T) {
	pkt := &Packet{Type: "bogus", RoomID: uuid.New(), Content: []byte{}, Nonce: []byte{}}
	if err := pkt.Validate(); err == nil {
		t.Fatal("Validate accepted an unknown envelope type")
	}
}

func TestPacketInboxRoundTrip(t *testing.T) {
	c, _ := cipher.New("key")
	roomID := uuid.New()
	reqID := uuid.New()

	pkt, err := New(roomID, NewEventPayload(Event{RequestImage: &RequestImage{ID: []byte{1, 2, 3}}}), c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pkt.WithInbox(NewInboxRequest(reqID))

	raw, err := pkt.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	decoded, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if decoded.Inbox == nil || decoded.Inbox.Request == nil {
		t.Fatalf("decoded inbox = %+v, want a request", decoded.Inbox)
	}
	if decoded.Inbox.ID() != reqID {
		t.Fatalf("inbox id = %v, want %v", decoded.Inbox.ID(), reqID)
	}

	payload, err := decoded.Decrypt(c)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if payload.Event == nil || payload.Event.RequestImage == nil {
		t.Fatalf("decoded payload = %+v, want a RequestImage event", payload)
	}
	if got := payload.Event.RequestImage.ID; string(got) != string([]byte{1, 2, 3}) {
		t.Fatalf("decoded RequestImage id = %v, want %v", got, []byte{1, 2, 3})
	}
}
