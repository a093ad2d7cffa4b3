// Package memtransport implements the sync transport for coordinator
// and followers living in the same process (the same-origin tab case,
// and tests). Snapshots fan out over channels; bids collect in a shared
// slice polled by the desktop role.
package memtransport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/auctionhq/gavel/internal/models"
)

// Transport is an in-process implementation of syncer.Transport.
type Transport struct {
	mu          sync.Mutex
	snapshot    *models.SyncSnapshot
	bids        []models.BidEvent
	heartbeat   time.Time
	subscribers map[int]chan models.SyncSnapshot
	nextSubID   int
	closed      bool
}

// New builds an empty in-process transport.
func New() *Transport {
	return &Transport{
		subscribers: make(map[int]chan models.SyncSnapshot),
	}
}

// PublishSnapshot overwrites the shared document and fans out to
// subscribers. Slow subscribers drop deliveries; they catch up on the
// next publish because snapshots are whole-state.
func (t *Transport) PublishSnapshot(_ context.Context, snap models.SyncSnapshot) error {
	t.mu.Lock()
	t.snapshot = &snap
	subs := make([]chan models.SyncSnapshot, 0, len(t.subscribers))
	for _, ch := range t.subscribers {
		subs = append(subs, ch)
	}
	t.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
			log.Debug().Msg("subscriber slow, dropping snapshot delivery")
		}
	}
	return nil
}

// SubscribeSnapshots registers a subscriber channel. The current
// snapshot, if any, is delivered immediately so new followers do not
// wait for the next mutation.
func (t *Transport) SubscribeSnapshots(ctx context.Context) (<-chan models.SyncSnapshot, error) {
	ch := make(chan models.SyncSnapshot, 16)

	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.subscribers[id] = ch
	current := t.snapshot
	t.mu.Unlock()

	if current != nil {
		ch <- *current
	}

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		delete(t.subscribers, id)
		t.mu.Unlock()
	}()
	return ch, nil
}

// SubmitBid appends to the shared inbound queue.
func (t *Transport) SubmitBid(_ context.Context, ev models.BidEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bids = append(t.bids, ev)
	return nil
}

// PollBids returns all entries not yet pruned.
func (t *Transport) PollBids(_ context.Context) ([]models.BidEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.BidEvent, len(t.bids))
	copy(out, t.bids)
	return out, nil
}

// PruneBids removes processed entries by ID.
func (t *Transport) PruneBids(_ context.Context, processed []uuid.UUID) error {
	drop := make(map[uuid.UUID]struct{}, len(processed))
	for _, id := range processed {
		drop[id] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.bids[:0]
	for _, ev := range t.bids {
		if _, ok := drop[ev.ID]; !ok {
			kept = append(kept, ev)
		}
	}
	t.bids = kept
	return nil
}

// PublishHeartbeat refreshes the desktop liveness timestamp.
func (t *Transport) PublishHeartbeat(_ context.Context, ts time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.heartbeat = ts
	return nil
}

// LastHeartbeat returns the most recent heartbeat, zero if none yet.
func (t *Transport) LastHeartbeat(_ context.Context) (time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.heartbeat, nil
}

// Close drops all subscribers.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for id, ch := range t.subscribers {
		close(ch)
		delete(t.subscribers, id)
	}
	return nil
}
