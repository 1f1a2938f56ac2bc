package msgist

import "github.com/relaybridge/msgist/transport"

// Outcome tells the transport whether a handled packet is done (Continue)
// or should also be checked against pending inbox correlations (Break).
type Outcome = transport.Outcome

const (
	Continue = transport.Continue
	Break    = transport.Break
)

// PacketHandler processes one inbound packet for a given server_id.
type PacketHandler = transport.PacketHandler
