// Package auction implements the auction lifecycle state machine:
// player selection, bidding, sold/unsold commits and round advancement.
// A single Engine instance is owned by the desktop-role coordinator and
// is never mutated concurrently.
package auction

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/auctionhq/gavel/internal/auction/events"
	"github.com/auctionhq/gavel/internal/config"
	"github.com/auctionhq/gavel/internal/ledger"
	"github.com/auctionhq/gavel/internal/models"
	"github.com/auctionhq/gavel/internal/rules"
)

// SelectionMode defines how SelectNext picks from the available pool.
type SelectionMode string

const (
	SelectionSequential SelectionMode = "sequential"
	SelectionRandom     SelectionMode = "random"
)

// EventSink receives lifecycle events emitted by the engine. The overlay
// layer and the sync coordinator both attach here.
type EventSink func(eventType events.EventType, payload any)

// SoldRecord is one committed sale, kept for export.
type SoldRecord struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Role       string    `json:"role"`
	TeamID     string    `json:"team_id"`
	TeamName   string    `json:"team_name"`
	Amount     int64     `json:"amount"`
	Round      int       `json:"round"`
	SoldAt     time.Time `json:"sold_at"`
}

// lastCommit is the single-step undo buffer.
type lastCommit struct {
	playerID    string
	sold        bool
	teamID      string
	amount      int64
	isUnderAge  bool
	prevHighest int64
}

// Engine drives the auction state machine. All mutation happens on the
// coordinator's single logical thread.
type Engine struct {
	cfg    config.Rules
	mode   SelectionMode
	clock  clockwork.Clock
	ledger *ledger.TeamLedger

	players  map[string]*models.Player
	order    []string
	baseline map[string]models.Player
	cursor   int

	state models.AuctionState
	sold  []SoldRecord
	last  *lastCommit

	sinks []EventSink
	randN func(n int) int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRand replaces the random draw, for tests.
func WithRand(f func(n int) int) Option {
	return func(e *Engine) { e.randN = f }
}

// NewEngine builds an engine over the imported player pool. The pool
// order is the sequential-selection order; the baseline snapshot is
// captured for Reset.
func NewEngine(players []models.Player, l *ledger.TeamLedger, cfg config.Rules, mode SelectionMode, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		mode:     mode,
		clock:    clockwork.NewRealClock(),
		ledger:   l,
		players:  make(map[string]*models.Player, len(players)),
		order:    make([]string, 0, len(players)),
		baseline: make(map[string]models.Player, len(players)),
		randN:    rand.Intn,
		state: models.AuctionState{
			Phase: models.PhaseIdle,
			Round: 1,
		},
	}
	for i := range players {
		p := players[i]
		e.players[p.ID] = &p
		e.order = append(e.order, p.ID)
		e.baseline[p.ID] = p
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe attaches an event sink. Sinks are invoked synchronously in
// registration order.
func (e *Engine) Subscribe(sink EventSink) {
	e.sinks = append(e.sinks, sink)
}

func (e *Engine) emit(t events.EventType, payload any) {
	for _, sink := range e.sinks {
		sink(t, payload)
	}
}

// State returns the authoritative auction state. Callers outside the
// coordinator must treat it as read-only.
func (e *Engine) State() *models.AuctionState {
	return &e.state
}

// Player returns a player by ID.
func (e *Engine) Player(id string) (*models.Player, bool) {
	p, ok := e.players[id]
	return p, ok
}

// SoldRecords returns the committed sales in commit order.
func (e *Engine) SoldRecords() []SoldRecord {
	return e.sold
}

// availableIDs returns the IDs of available players in pool order.
func (e *Engine) availableIDs() []string {
	var out []string
	for _, id := range e.order {
		if e.players[id].Available() {
			out = append(out, id)
		}
	}
	return out
}

// AvailableCount returns how many players remain in the pool.
func (e *Engine) AvailableCount() int {
	return len(e.availableIDs())
}

// SelectPlayer puts a specific available player on the block. Only legal
// from Idle.
func (e *Engine) SelectPlayer(playerID string) error {
	if e.state.Phase != models.PhaseIdle {
		return ErrBiddingInProgress
	}
	p, ok := e.players[playerID]
	if !ok || !p.Available() {
		return ErrPlayerNotAvailable
	}

	p.Status = models.PlayerStatusInAuction
	e.state.Phase = models.PhaseBidding
	e.state.CurrentPlayer = p
	e.state.CurrentBid = p.BasePrice
	e.state.PreviousBid = 0
	e.state.LeadingTeamID = ""
	e.state.BidHistory = nil

	log.Info().
		Str("player_id", p.ID).
		Str("player_name", p.Name).
		Int64("base_price", p.BasePrice).
		Int("round", e.state.Round).
		Msg("player selected")

	e.emit(events.EventTypePlayerSelected, events.PlayerSelectedPayload{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		BasePrice:  p.BasePrice,
		Round:      e.state.Round,
		SelectedAt: e.clock.Now(),
	})
	return nil
}

// SelectNext selects the next player from the available pool using the
// configured mode. Returns ErrNoPlayersLeft when the pool is empty.
func (e *Engine) SelectNext() (*models.Player, error) {
	if e.state.Phase != models.PhaseIdle {
		return nil, ErrBiddingInProgress
	}
	avail := e.availableIDs()
	if len(avail) == 0 {
		return nil, ErrNoPlayersLeft
	}

	var id string
	switch e.mode {
	case SelectionRandom:
		id = avail[e.randN(len(avail))]
	default:
		// Sequential cursor over the import order, wrapping at the end
		// and skipping players no longer available.
		for range e.order {
			candidate := e.order[e.cursor%len(e.order)]
			e.cursor++
			if e.players[candidate].Available() {
				id = candidate
				break
			}
		}
	}
	if id == "" {
		return nil, ErrNoPlayersLeft
	}
	if err := e.SelectPlayer(id); err != nil {
		return nil, err
	}
	return e.players[id], nil
}

// PlaceBid validates a raise against the current state and applies it if
// accepted. The returned results carry the full rule report either way.
func (e *Engine) PlaceBid(ev models.BidEvent) (rules.Results, error) {
	if e.state.Phase != models.PhaseBidding {
		return nil, ErrAuctionNotActive
	}
	team, ok := e.ledger.Team(ev.TeamID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, ev.TeamID)
	}

	rs := rules.Validate(ev.Amount, team, e.state.CurrentPlayer, &e.state, e.cfg)
	if !rs.OK() {
		return rs, nil
	}

	e.state.PreviousBid = e.state.CurrentBid
	e.state.CurrentBid = ev.Amount
	e.state.LeadingTeamID = ev.TeamID
	ev.Outcome = models.BidOutcomeAccepted
	e.state.BidHistory = append(e.state.BidHistory, ev)
	return rs, nil
}

// CommitSale sells the current player to a team. Re-validates one final
// time as defense against drift between the last accepted bid and the
// commit. Only legal from Bidding.
func (e *Engine) CommitSale(teamID string, amount int64) error {
	if e.state.Phase != models.PhaseBidding {
		return ErrAuctionNotActive
	}
	if teamID == "" {
		return ErrNoTeamSelected
	}
	team, ok := e.ledger.Team(teamID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTeam, teamID)
	}

	p := e.state.CurrentPlayer
	rs := rules.ValidateSale(amount, team, p, &e.state, e.cfg)
	if failure, failed := rs.FirstFailure(); failed {
		return fmt.Errorf("%w: %s: %s", ErrSaleRejected, failure.RuleID, failure.Message)
	}

	isUnderAge := p.Age < e.cfg.UnderAgeThreshold
	prevHighest := team.HighestBid
	if err := e.ledger.ApplySale(teamID, amount, isUnderAge); err != nil {
		return err
	}

	p.Status = models.PlayerStatusSold
	p.SoldTo = teamID
	p.SoldAmount = amount

	record := SoldRecord{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Role:       p.Role,
		TeamID:     teamID,
		TeamName:   team.Name,
		Amount:     amount,
		Round:      e.state.Round,
		SoldAt:     e.clock.Now(),
	}
	e.sold = append(e.sold, record)
	e.last = &lastCommit{
		playerID:    p.ID,
		sold:        true,
		teamID:      teamID,
		amount:      amount,
		isUnderAge:  isUnderAge,
		prevHighest: prevHighest,
	}

	log.Info().
		Str("player_id", p.ID).
		Str("team_id", teamID).
		Int64("amount", amount).
		Msg("player sold")

	e.clearBlock()
	e.emit(events.EventTypePlayerSold, events.PlayerSoldPayload{
		PlayerID:   record.PlayerID,
		PlayerName: record.PlayerName,
		TeamID:     record.TeamID,
		TeamName:   record.TeamName,
		Amount:     record.Amount,
		Round:      record.Round,
		SoldAt:     record.SoldAt,
	})
	return nil
}

// MarkUnsold tags the current player unsold for this round. Only legal
// from Bidding.
func (e *Engine) MarkUnsold() error {
	if e.state.Phase != models.PhaseBidding {
		return ErrAuctionNotActive
	}

	p := e.state.CurrentPlayer
	p.Status = models.PlayerStatusUnsold
	p.UnsoldInRound = e.state.Round
	e.last = &lastCommit{playerID: p.ID, sold: false}

	log.Info().
		Str("player_id", p.ID).
		Int("round", e.state.Round).
		Msg("player unsold")

	unsoldAt := e.clock.Now()
	name := p.Name
	round := e.state.Round
	e.clearBlock()
	e.emit(events.EventTypePlayerUnsold, events.PlayerUnsoldPayload{
		PlayerID:   p.ID,
		PlayerName: name,
		Round:      round,
		UnsoldAt:   unsoldAt,
	})
	return nil
}

// clearBlock returns the state machine to Idle after a terminal commit.
func (e *Engine) clearBlock() {
	e.state.Phase = models.PhaseIdle
	e.state.CurrentPlayer = nil
	e.state.CurrentBid = 0
	e.state.PreviousBid = 0
	e.state.LeadingTeamID = ""
	e.state.BidHistory = nil
}

// NextRound re-enters this round's unsold players into the available
// pool and advances the round counter, up to the configured limit.
func (e *Engine) NextRound() error {
	if e.state.Phase != models.PhaseIdle {
		return ErrBiddingInProgress
	}
	if e.state.Round >= e.cfg.MaxRounds {
		return ErrNoPlayersLeft
	}

	reentered := 0
	for _, id := range e.order {
		p := e.players[id]
		if p.Status == models.PlayerStatusUnsold {
			p.Status = models.PlayerStatusAvailable
			reentered++
		}
	}
	e.state.Round++
	e.cursor = 0
	e.last = nil

	log.Info().
		Int("round", e.state.Round).
		Int("reentered", reentered).
		Msg("advanced to next round")
	return nil
}

// Undo reverses the last sold/unsold commit: the ledger mutation is
// rolled back and the player is returned to the available pool. This is
// a last-action buffer, not a history stack.
func (e *Engine) Undo() error {
	if e.state.Phase != models.PhaseIdle {
		return ErrBiddingInProgress
	}
	if e.last == nil {
		return ErrNothingToUndo
	}

	p := e.players[e.last.playerID]
	undone := events.SaleUndonePayload{
		PlayerID: p.ID,
		WasSold:  e.last.sold,
		TeamID:   e.last.teamID,
		Amount:   e.last.amount,
		UndoneAt: e.clock.Now(),
	}
	if e.last.sold {
		if err := e.ledger.ReverseSale(e.last.teamID, e.last.amount, e.last.isUnderAge, e.last.prevHighest); err != nil {
			return err
		}
		if n := len(e.sold); n > 0 && e.sold[n-1].PlayerID == p.ID {
			e.sold = e.sold[:n-1]
		}
		p.SoldTo = ""
		p.SoldAmount = 0
	} else {
		p.UnsoldInRound = 0
	}
	p.Status = models.PlayerStatusAvailable
	e.last = nil

	log.Info().Str("player_id", p.ID).Msg("last commit undone")
	e.emit(events.EventTypeSaleUndone, undone)
	return nil
}

// Pause stops bid acceptance without clearing the block.
func (e *Engine) Pause(reason string) {
	if e.state.Paused {
		return
	}
	e.state.Paused = true
	log.Info().Str("reason", reason).Msg("auction paused")
	e.emit(events.EventTypeAuctionPaused, events.AuctionPausedPayload{
		PausedAt: e.clock.Now(),
		Reason:   reason,
	})
}

// Resume re-enables bid acceptance.
func (e *Engine) Resume() {
	if !e.state.Paused {
		return
	}
	e.state.Paused = false
	log.Info().Msg("auction resumed")
	e.emit(events.EventTypeAuctionResumed, events.AuctionResumedPayload{
		ResumedAt: e.clock.Now(),
	})
}

// Reset restores players and teams to the imported baseline and returns
// to Idle at round 1. The sold list and undo buffer are discarded.
func (e *Engine) Reset() {
	for id := range e.players {
		base := e.baseline[id]
		*e.players[id] = base
	}
	e.ledger.ResetAll()
	e.cursor = 0
	e.sold = nil
	e.last = nil
	e.state = models.AuctionState{
		Phase: models.PhaseIdle,
		Round: 1,
	}

	log.Info().Msg("auction reset to initial snapshot")
	e.emit(events.EventTypeAuctionReset, events.AuctionResetPayload{
		ResetAt: e.clock.Now(),
	})
}

// Snapshot builds the wire projection of the current state.
func (e *Engine) Snapshot(sessionID string, lastUpdate int64) models.SyncSnapshot {
	snap := models.SyncSnapshot{
		CurrentBid:    e.state.CurrentBid,
		Teams:         e.ledger.Summaries(),
		AuctionActive: e.state.Phase == models.PhaseBidding && !e.state.Paused,
		Round:         e.state.Round,
		LastUpdate:    lastUpdate,
		SessionID:     sessionID,
	}
	if p := e.state.CurrentPlayer; p != nil {
		snap.CurrentPlayer = &models.PlayerCard{
			ID:        p.ID,
			Name:      p.Name,
			Role:      p.Role,
			ImageURL:  p.ImageURL,
			BasePrice: p.BasePrice,
		}
	}
	if e.state.LeadingTeamID != "" {
		if t, ok := e.ledger.Team(e.state.LeadingTeamID); ok {
			snap.SelectedTeam = &models.TeamCard{
				ID:      t.ID,
				Name:    t.Name,
				LogoURL: t.LogoURL,
			}
		}
	}
	return snap
}
