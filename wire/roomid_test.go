package wire

import "testing"

func TestRoomIDIsDeterministic(t *testing.T) {
	a := RoomID("wss://relay.example/ws", "shared-key")
	b := RoomID("wss://relay.example/ws", "shared-key")
	if a != b {
		t.Fatalf("RoomID not deterministic: %v != %v", a, b)
	}
}

func TestRoomIDDependsOnBothInputs(t *testing.T) {
	base := RoomID("wss://relay.example/ws", "shared-key")

	if other := RoomID("wss://relay.example/ws", "other-key"); other == base {
		t.Fatal("RoomID did not change with a different cipher key")
	}
	if other := RoomID("wss://other.example/ws", "shared-key"); other == base {
		t.Fatal("RoomID did not change with a different address")
	}
}
