// Package arbiter resolves races between bids arriving out of
// submission order. Inbound events are buffered and periodically
// drained in ascending origin-timestamp order against the authoritative
// auction state, so a late-delivered earlier bid still wins its drain
// cycle. State only moves forward across cycles.
package arbiter

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/auctionhq/gavel/internal/auction"
	"github.com/auctionhq/gavel/internal/models"
	"github.com/auctionhq/gavel/internal/rules"
)

// DefaultDrainInterval is the drain cadence when none is configured.
const DefaultDrainInterval = 50 * time.Millisecond

// DefaultRingSize bounds the processed-ID ring for duplicate detection.
const DefaultRingSize = 512

// Decision is the arbitration outcome for one processed event, delivered
// to listeners. PreviousBid is the authoritative bid at the moment the
// event was arbitrated, before any mutation it caused.
type Decision struct {
	Event       models.BidEvent
	Results     rules.Results
	PreviousBid int64
}

// Listener receives arbitration decisions. Listeners are invoked on the
// drain goroutine and must not block.
type Listener func(Decision)

// Queue is the bid arbitration queue. Submit may be called from any
// goroutine; draining happens on a single timer-driven loop.
type Queue struct {
	engine   *auction.Engine
	clock    clockwork.Clock
	interval time.Duration

	mu      sync.Mutex
	pending []models.BidEvent
	ring    *idRing

	// lock serializes engine mutation with the coordinator's admin
	// operations. Held for the duration of a drain cycle.
	lock sync.Locker

	listeners []Listener
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// Option configures a Queue.
type Option func(*Queue)

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(q *Queue) { q.clock = c }
}

// WithDrainInterval overrides the drain cadence.
func WithDrainInterval(d time.Duration) Option {
	return func(q *Queue) { q.interval = d }
}

// WithRingSize overrides the processed-ID ring capacity.
func WithRingSize(n int) Option {
	return func(q *Queue) { q.ring = newIDRing(n) }
}

// WithLocker sets the lock held while a drain cycle mutates the engine.
func WithLocker(l sync.Locker) Option {
	return func(q *Queue) { q.lock = l }
}

// New builds a queue over the authoritative engine.
func New(engine *auction.Engine, opts ...Option) *Queue {
	q := &Queue{
		engine:   engine,
		clock:    clockwork.NewRealClock(),
		interval: DefaultDrainInterval,
		ring:     newIDRing(DefaultRingSize),
		lock:     noopLocker{},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Subscribe attaches a decision listener.
func (q *Queue) Subscribe(l Listener) {
	q.listeners = append(q.listeners, l)
}

// Submit appends an inbound event to the unordered buffer. Events whose
// ID has already been processed are silently dropped.
func (q *Queue) Submit(ev models.BidEvent) {
	q.mu.Lock()
	if q.ring.contains(ev.ID) {
		q.mu.Unlock()
		log.Debug().Str("bid_id", ev.ID.String()).Msg("dropping duplicate bid delivery")
		return
	}
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
}

// PendingCount returns the size of the unprocessed buffer.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run drains the buffer on a fixed interval until the context ends.
func (q *Queue) Run(ctx context.Context) error {
	log.Info().Dur("interval", q.interval).Msg("bid arbiter started")

	timer := q.clock.NewTimer(q.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("bid arbiter shutting down")
			return nil
		case <-timer.Chan():
			q.Drain()
			timer.Reset(q.interval)
		}
	}
}

// Drain runs one arbitration cycle: take all pending events, sort by
// origin timestamp ascending, and process each in order against the
// current authoritative state. One rejected bid never blocks the rest
// of the cycle.
func (q *Queue) Drain() []Decision {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].TimestampMs < batch[j].TimestampMs
	})

	q.lock.Lock()
	defer q.lock.Unlock()

	decisions := make([]Decision, 0, len(batch))
	for _, ev := range batch {
		q.mu.Lock()
		dup := q.ring.contains(ev.ID)
		if !dup {
			q.ring.add(ev.ID)
		}
		q.mu.Unlock()
		if dup {
			log.Debug().Str("bid_id", ev.ID.String()).Msg("dropping duplicate bid in drain")
			continue
		}

		decisions = append(decisions, q.process(ev))
	}

	for _, d := range decisions {
		for _, l := range q.listeners {
			l(d)
		}
	}
	return decisions
}

func (q *Queue) process(ev models.BidEvent) Decision {
	prev := q.engine.State().CurrentBid

	if ev.Kind == models.BidKindStop {
		// Advisory: a team withdrawing from further raises. Never
		// mutates the current bid.
		ev.Outcome = models.BidOutcomeAccepted
		log.Info().
			Str("team_id", ev.TeamID).
			Str("player_id", ev.PlayerID).
			Msg("stop signal received")
		return Decision{Event: ev, PreviousBid: prev}
	}

	rs, err := q.engine.PlaceBid(ev)
	switch {
	case err != nil:
		ev.Outcome = models.BidOutcomeRejected
		ev.Reason = err.Error()
		log.Warn().
			Err(err).
			Str("bid_id", ev.ID.String()).
			Str("team_id", ev.TeamID).
			Int64("amount", ev.Amount).
			Msg("bid rejected")
	case !rs.OK():
		failure, _ := rs.FirstFailure()
		ev.Outcome = models.BidOutcomeRejected
		ev.Reason = failure.Message
		log.Info().
			Str("bid_id", ev.ID.String()).
			Str("team_id", ev.TeamID).
			Int64("amount", ev.Amount).
			Str("rule", string(failure.RuleID)).
			Msg("bid rejected by rule")
	default:
		ev.Outcome = models.BidOutcomeAccepted
		log.Info().
			Str("bid_id", ev.ID.String()).
			Str("team_id", ev.TeamID).
			Int64("amount", ev.Amount).
			Msg("bid accepted")
	}
	return Decision{Event: ev, Results: rs, PreviousBid: prev}
}
