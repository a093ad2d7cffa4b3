package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/auctionhq/gavel/internal/models"
)

// SnapshotListener is notified whenever the follower's local projection
// is replaced by a fresher snapshot.
type SnapshotListener func(models.SyncSnapshot)

// Follower is a mobile-role client. It holds a read-only projection of
// auction state refreshed by snapshot delivery and submits bid events
// over the shared transport. It never mutates auction state directly.
type Follower struct {
	transport Transport
	clock     clockwork.Clock
	clientID  string
	teamID    string
	hbEvery   time.Duration

	mu      sync.RWMutex
	applied *models.SyncSnapshot

	listeners []SnapshotListener
}

// NewFollower builds a follower bound to one team device.
func NewFollower(transport Transport, teamID, clientID string, heartbeatInterval time.Duration, clock clockwork.Clock) *Follower {
	return &Follower{
		transport: transport,
		clock:     clock,
		clientID:  clientID,
		teamID:    teamID,
		hbEvery:   heartbeatInterval,
	}
}

// Subscribe attaches a projection listener (typically the device UI).
func (f *Follower) Subscribe(l SnapshotListener) {
	f.listeners = append(f.listeners, l)
}

// Snapshot returns the last applied projection, or nil before the first
// delivery.
func (f *Follower) Snapshot() *models.SyncSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.applied
}

// Apply replaces the local projection if the snapshot is fresher than
// the one already applied. Non-increasing LastUpdate values are
// discarded, which protects against out-of-order delivery. Returns
// whether the snapshot was applied.
func (f *Follower) Apply(snap models.SyncSnapshot) bool {
	f.mu.Lock()
	if !snap.NewerThan(f.applied) {
		f.mu.Unlock()
		log.Debug().
			Int64("last_update", snap.LastUpdate).
			Msg("discarding stale snapshot")
		return false
	}
	f.applied = &snap
	listeners := f.listeners
	f.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return true
}

// Run subscribes to snapshot delivery until ctx ends.
func (f *Follower) Run(ctx context.Context) error {
	ch, err := f.transport.SubscribeSnapshots(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("client_id", f.clientID).Str("team_id", f.teamID).Msg("follower started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("client_id", f.clientID).Msg("follower shutting down")
			return nil
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			f.Apply(snap)
		}
	}
}

// SubmitRaise submits a raise for the player currently on the block,
// stamped with this device's clock.
func (f *Follower) SubmitRaise(ctx context.Context, amount int64) error {
	snap := f.Snapshot()
	playerID := ""
	if snap != nil && snap.CurrentPlayer != nil {
		playerID = snap.CurrentPlayer.ID
	}
	ev := models.NewRaise(f.teamID, playerID, amount, models.BidOriginMobile, f.clientID, f.clock.Now())
	return f.transport.SubmitBid(ctx, ev)
}

// SubmitStop signals that this team is withdrawing from further raises
// on the current player. Advisory only.
func (f *Follower) SubmitStop(ctx context.Context) error {
	snap := f.Snapshot()
	playerID := ""
	if snap != nil && snap.CurrentPlayer != nil {
		playerID = snap.CurrentPlayer.ID
	}
	ev := models.NewStop(f.teamID, playerID, models.BidOriginMobile, f.clientID, f.clock.Now())
	return f.transport.SubmitBid(ctx, ev)
}

// DesktopLive reports whether the desktop role looks alive: time since
// its last heartbeat is under three heartbeat intervals.
func (f *Follower) DesktopLive(ctx context.Context) bool {
	hb, err := f.transport.LastHeartbeat(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read desktop heartbeat")
		return false
	}
	if hb.IsZero() {
		return false
	}
	return f.clock.Now().Sub(hb) < 3*f.hbEvery
}
