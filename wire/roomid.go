package wire

import "github.com/google/uuid"

// roomNamespace is the fixed UUID namespace mixed into every room-id
// derivation. It has no meaning beyond seeding uuid.NewSHA1; it must never
// change or every existing room-id would shift.
var roomNamespace = uuid.MustParse("179e3449-c41f-4a57-a763-59a787efaa52")

// RoomID deterministically derives a room's UUID from its address and the
// room's cipher key. Two peers configured with the same address and key
// always land on the same room-id without exchanging it out of band.
func RoomID(address, cipherKey string) uuid.UUID {
	return uuid.NewSHA1(roomNamespace, []byte(address+cipherKey))
}
