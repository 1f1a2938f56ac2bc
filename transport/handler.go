package transport

import "github.com/relaybridge/msgist/wire"

// Outcome is the two-way protocol between the transport and the
// registered PacketHandler: Continue means the handler fully consumed the
// packet, Break means the transport must still route it through inbox
// correlation.
type Outcome int

const (
	Continue Outcome = iota
	Break
)

// PacketHandler is invoked once per inbound Packet. Returning Break along
// with the packet hands it back to the transport so a matching pending
// request can be resolved; returning Continue tells the transport the
// handler is done with it.
type PacketHandler func(serverID string, pkt *wire.Packet) (Outcome, *wire.Packet)
