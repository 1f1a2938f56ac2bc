// Package msgist is a cross-platform encrypted chat-bridge message relay
// library: it carries Messages and Events between chat platform adapters
// through one or more relay servers, encrypting every room's traffic
// under a shared passphrase so the relay never sees plaintext.
//
// Apply builds a ready-to-use Library from a config.Config. Callers
// install their own packet handler with Library.SetPacketHandler and
// drive traffic through Library.Send, Library.Sub, Library.Unsub, and
// Library.Request — see transport.Client for the semantics each of those
// methods share with the underlying transport.
package msgist
