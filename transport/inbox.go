package transport

import (
	"sync"

	"github.com/google/uuid"

	"github.com/relaybridge/msgist/wire"
)

// inboxTable correlates outstanding requests with their eventual
// responses. Entries are created by request and consumed by the first
// inbound packet carrying a matching Inbox.Respond id.
type inboxTable struct {
	mu      sync.Mutex
	pending map[uuid.UUID]chan *wire.Packet
}

func newInboxTable() *inboxTable {
	return &inboxTable{pending: make(map[uuid.UUID]chan *wire.Packet)}
}

// register installs a one-shot channel under id, replacing and discarding
// any prior (collided) entry — a request with the same id supersedes it,
// per the spec's note that UUIDv4 collision is the only way this happens.
func (t *inboxTable) register(id uuid.UUID) chan *wire.Packet {
	ch := make(chan *wire.Packet, 1)
	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()
	return ch
}

// resolve delivers pkt to the waiter registered under id, if any. It
// reports whether a waiter was found; a dropped receiver (nobody reading
// the channel) does not block this call since the channel is buffered.
func (t *inboxTable) resolve(id uuid.UUID, pkt *wire.Packet) bool {
	t.mu.Lock()
	ch, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	ch <- pkt
	return true
}

// forget removes id's entry without delivering anything, used when a
// caller's wait times out so a late response doesn't leak the channel.
func (t *inboxTable) forget(id uuid.UUID) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

func (t *inboxTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
