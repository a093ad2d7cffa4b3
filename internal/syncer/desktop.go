// Package syncer implements the cross-device auction-state sync
// protocol: a desktop-authoritative coordinator that broadcasts
// snapshots and ingests follower bid submissions, and a follower that
// applies snapshots last-writer-wins and submits bids.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/auctionhq/gavel/internal/arbiter"
	"github.com/auctionhq/gavel/internal/auction"
	"github.com/auctionhq/gavel/internal/auction/events"
	"github.com/auctionhq/gavel/internal/config"
	"github.com/auctionhq/gavel/internal/models"
)

// Desktop is the authoritative coordinator. It owns the only writable
// engine and its arbitration queue, publishes snapshots on every
// mutation and emits the liveness heartbeat. Engine mutation is
// serialized between the drain loop and admin operations by opMu, so
// there is a single logical thread of control per tick.
type Desktop struct {
	engine    *auction.Engine
	queue     *arbiter.Queue
	transport Transport
	clock     clockwork.Clock
	cfg       config.Sync

	sessionID  string
	lastUpdate int64
	opMu       sync.Mutex

	processedMu sync.Mutex
	processed   []uuid.UUID

	snapListeners []func(models.SyncSnapshot)
}

// NewDesktop wires the coordinator over an engine and a transport. The
// arbitration queue is created here so its drain cycles share the
// coordinator's mutation lock.
func NewDesktop(engine *auction.Engine, transport Transport, cfg config.Sync, clock clockwork.Clock, queueOpts ...arbiter.Option) *Desktop {
	d := &Desktop{
		engine:    engine,
		transport: transport,
		clock:     clock,
		cfg:       cfg,
		sessionID: uuid.New().String(),
	}

	opts := append([]arbiter.Option{
		arbiter.WithClock(clock),
		arbiter.WithDrainInterval(cfg.DrainInterval),
		arbiter.WithLocker(&d.opMu),
	}, queueOpts...)
	d.queue = arbiter.New(engine, opts...)

	// Both listeners fire on paths that already hold opMu: drain cycles
	// via the queue's locker, admin operations via their own Lock.
	d.queue.Subscribe(func(dec arbiter.Decision) {
		d.processedMu.Lock()
		d.processed = append(d.processed, dec.Event.ID)
		d.processedMu.Unlock()
		if dec.Event.Outcome == models.BidOutcomeAccepted && dec.Event.Kind == models.BidKindRaise {
			d.publishLocked()
		}
	})
	engine.Subscribe(func(t events.EventType, payload any) {
		switch t {
		case events.EventTypePlayerSelected, events.EventTypePlayerSold,
			events.EventTypePlayerUnsold, events.EventTypeSaleUndone,
			events.EventTypeAuctionPaused, events.EventTypeAuctionResumed,
			events.EventTypeAuctionReset:
			d.publishLocked()
		}
	})
	return d
}

// SessionID returns the coordinator's unique session identifier.
func (d *Desktop) SessionID() string {
	return d.sessionID
}

// Queue exposes the arbitration queue, mainly for tests.
func (d *Desktop) Queue() *arbiter.Queue {
	return d.queue
}

// OnSnapshot attaches a listener invoked with every published snapshot.
// The gateway hangs off this to fan snapshots out to its devices.
func (d *Desktop) OnSnapshot(f func(models.SyncSnapshot)) {
	d.snapListeners = append(d.snapListeners, f)
}

// Submit feeds a bid event into the arbitration queue, whatever its
// origin: keyboard, admin console, gateway device or transport poll.
func (d *Desktop) Submit(ev models.BidEvent) {
	d.queue.Submit(ev)
}

// nextUpdateStamp returns a strictly increasing wall-clock stamp.
// Two mutations within the same millisecond still produce increasing
// values so receivers never discard a fresher snapshot. Caller must
// hold opMu.
func (d *Desktop) nextUpdateStamp() int64 {
	now := d.clock.Now().UnixMilli()
	if now <= d.lastUpdate {
		now = d.lastUpdate + 1
	}
	d.lastUpdate = now
	return now
}

// publishLocked serializes the current state, overwrites the shared
// snapshot document and notifies local listeners. Caller must hold
// opMu so the stamp and the state read are one atomic observation.
func (d *Desktop) publishLocked() {
	snap := d.engine.Snapshot(d.sessionID, d.nextUpdateStamp())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.transport.PublishSnapshot(ctx, snap); err != nil {
		log.Error().Err(err).Int64("last_update", snap.LastUpdate).Msg("failed to publish snapshot")
	}
	for _, f := range d.snapListeners {
		f(snap)
	}
}

// PublishSnapshot publishes the current state under the mutation lock.
func (d *Desktop) PublishSnapshot() {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	d.publishLocked()
}

// Admin surface: each operation delegates to the engine under the
// mutation lock. Snapshot publication rides on the engine's lifecycle
// events, except where noted.

// SelectPlayer puts a specific player on the block.
func (d *Desktop) SelectPlayer(playerID string) error {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	return d.engine.SelectPlayer(playerID)
}

// SelectNext puts the next pool player on the block.
func (d *Desktop) SelectNext() (*models.Player, error) {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	return d.engine.SelectNext()
}

// CommitCurrent sells the current player to the leading team at the
// current bid.
func (d *Desktop) CommitCurrent() error {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	state := d.engine.State()
	if state.LeadingTeamID == "" {
		return auction.ErrNoTeamSelected
	}
	return d.engine.CommitSale(state.LeadingTeamID, state.CurrentBid)
}

// MarkUnsold passes on the current player for this round.
func (d *Desktop) MarkUnsold() error {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	return d.engine.MarkUnsold()
}

// Undo reverses the last sold/unsold commit.
func (d *Desktop) Undo() error {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	return d.engine.Undo()
}

// NextRound re-enters unsold players and advances the round.
func (d *Desktop) NextRound() error {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	if err := d.engine.NextRound(); err != nil {
		return err
	}
	// NextRound has no lifecycle event; publish explicitly.
	d.publishLocked()
	return nil
}

// Pause suspends bid acceptance.
func (d *Desktop) Pause(reason string) {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	d.engine.Pause(reason)
}

// Resume re-enables bid acceptance.
func (d *Desktop) Resume() {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	d.engine.Resume()
}

// Reset tears the auction down to the imported baseline.
func (d *Desktop) Reset() {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	d.engine.Reset()
}

// CurrentSnapshot builds a snapshot without publishing it, for the HTTP
// state endpoint.
func (d *Desktop) CurrentSnapshot() models.SyncSnapshot {
	d.opMu.Lock()
	defer d.opMu.Unlock()
	return d.engine.Snapshot(d.sessionID, d.lastUpdate)
}

// Run operates the coordinator loops until ctx ends: the arbitration
// drain, the inbound bid poll, the heartbeat and the processed-bid
// prune. All engine/ledger mutation happens on the drain path or on
// admin calls; the other loops only read or touch the transport.
func (d *Desktop) Run(ctx context.Context) error {
	log.Info().
		Str("session_id", d.sessionID).
		Dur("heartbeat", d.cfg.HeartbeatInterval).
		Dur("poll", d.cfg.PollInterval).
		Msg("desktop coordinator started")

	go func() {
		if err := d.queue.Run(ctx); err != nil {
			log.Error().Err(err).Msg("arbiter loop ended with error")
		}
	}()

	// Publish the initial snapshot so late joiners see state immediately.
	d.PublishSnapshot()

	heartbeat := d.clock.NewTicker(d.cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	poll := d.clock.NewTicker(d.cfg.PollInterval)
	defer poll.Stop()
	prune := d.clock.NewTicker(d.cfg.PruneInterval)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("session_id", d.sessionID).Msg("desktop coordinator shutting down")
			return nil
		case <-heartbeat.Chan():
			if err := d.transport.PublishHeartbeat(ctx, d.clock.Now()); err != nil {
				log.Error().Err(err).Msg("failed to publish heartbeat")
			}
		case <-poll.Chan():
			d.ingestBids(ctx)
		case <-prune.Chan():
			d.pruneProcessed(ctx)
		}
	}
}

// ingestBids pulls follower submissions off the transport into the
// arbitration queue. Duplicate deliveries are absorbed downstream.
func (d *Desktop) ingestBids(ctx context.Context) {
	evs, err := d.transport.PollBids(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to poll inbound bids")
		return
	}
	for _, ev := range evs {
		d.queue.Submit(ev)
	}
}

// pruneProcessed removes already-arbitrated entries from the shared
// transport to bound its growth.
func (d *Desktop) pruneProcessed(ctx context.Context) {
	d.processedMu.Lock()
	batch := d.processed
	d.processed = nil
	d.processedMu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := d.transport.PruneBids(ctx, batch); err != nil {
		log.Error().Err(err).Int("count", len(batch)).Msg("failed to prune processed bids")
		// Put them back so the next cycle retries.
		d.processedMu.Lock()
		d.processed = append(batch, d.processed...)
		d.processedMu.Unlock()
	}
}
