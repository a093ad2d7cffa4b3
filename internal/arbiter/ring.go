package arbiter

import "github.com/google/uuid"

// idRing is a bounded ring of processed event IDs used to absorb
// duplicate deliveries after transport retransmission. When the ring is
// full the oldest entry is evicted.
type idRing struct {
	ids  []uuid.UUID
	seen map[uuid.UUID]struct{}
	next int
	full bool
}

func newIDRing(capacity int) *idRing {
	if capacity <= 0 {
		capacity = 512
	}
	return &idRing{
		ids:  make([]uuid.UUID, capacity),
		seen: make(map[uuid.UUID]struct{}, capacity),
	}
}

func (r *idRing) contains(id uuid.UUID) bool {
	_, ok := r.seen[id]
	return ok
}

func (r *idRing) add(id uuid.UUID) {
	if r.contains(id) {
		return
	}
	if r.full {
		delete(r.seen, r.ids[r.next])
	}
	r.ids[r.next] = id
	r.seen[id] = struct{}{}
	r.next++
	if r.next == len(r.ids) {
		r.next = 0
		r.full = true
	}
}
