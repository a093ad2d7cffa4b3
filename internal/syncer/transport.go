package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/auctionhq/gavel/internal/models"
)

// Transport is the shared channel between the desktop role and its
// followers. State travels as a single overwritten snapshot document
// (last-writer-wins by timestamp); bids travel as an appended queue.
// The two are intentionally distinct primitives: overwrite semantics
// for state, append/order semantics for bids.
type Transport interface {
	// PublishSnapshot overwrites the shared snapshot document.
	PublishSnapshot(ctx context.Context, snap models.SyncSnapshot) error

	// SubscribeSnapshots delivers inbound snapshots until ctx ends.
	// Delivery order is best-effort; receivers discard stale snapshots
	// by LastUpdate.
	SubscribeSnapshots(ctx context.Context) (<-chan models.SyncSnapshot, error)

	// SubmitBid appends a bid event to the shared inbound queue.
	SubmitBid(ctx context.Context, ev models.BidEvent) error

	// PollBids returns inbound bid events not yet pruned. Duplicate
	// delivery across polls is allowed; the arbiter absorbs it.
	PollBids(ctx context.Context) ([]models.BidEvent, error)

	// PruneBids removes already-processed entries to bound growth.
	PruneBids(ctx context.Context, processed []uuid.UUID) error

	// PublishHeartbeat refreshes the desktop liveness timestamp.
	PublishHeartbeat(ctx context.Context, ts time.Time) error

	// LastHeartbeat returns the most recent desktop heartbeat.
	LastHeartbeat(ctx context.Context) (time.Time, error)

	// Close releases transport resources.
	Close() error
}
