package models

import (
	"time"

	"github.com/google/uuid"
)

// BidKind defines what a bid event asks for.
type BidKind string

const (
	BidKindRaise BidKind = "RAISE"
	BidKindStop  BidKind = "STOP"
)

// BidOrigin identifies where a bid event was produced.
type BidOrigin string

const (
	BidOriginKeyboard BidOrigin = "KEYBOARD"
	BidOriginMobile   BidOrigin = "MOBILE"
	BidOriginAdmin    BidOrigin = "ADMIN"
)

// BidOutcome is the arbitration decision for a processed bid event.
type BidOutcome string

const (
	BidOutcomePending  BidOutcome = "PENDING"
	BidOutcomeAccepted BidOutcome = "ACCEPTED"
	BidOutcomeRejected BidOutcome = "REJECTED"
)

// BidEvent is a single immutable bid submission. The timestamp is taken
// at the origin device, not at arrival, so arbitration can re-order
// late-delivered events within a drain cycle.
type BidEvent struct {
	ID          uuid.UUID  `json:"id"`
	TeamID      string     `json:"team_id"`
	TeamName    string     `json:"team_name,omitempty"`
	PlayerID    string     `json:"player_id"`
	Amount      int64      `json:"amount"`
	TimestampMs int64      `json:"timestamp_ms"`
	Kind        BidKind    `json:"kind"`
	Origin      BidOrigin  `json:"origin"`
	ClientID    string     `json:"client_id"`
	Outcome     BidOutcome `json:"outcome,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// NewRaise builds a raise event stamped with the caller's clock.
func NewRaise(teamID, playerID string, amount int64, origin BidOrigin, clientID string, now time.Time) BidEvent {
	return BidEvent{
		ID:          uuid.New(),
		TeamID:      teamID,
		PlayerID:    playerID,
		Amount:      amount,
		TimestampMs: now.UnixMilli(),
		Kind:        BidKindRaise,
		Origin:      origin,
		ClientID:    clientID,
		Outcome:     BidOutcomePending,
	}
}

// NewStop builds an advisory stop event for the current player.
func NewStop(teamID, playerID string, origin BidOrigin, clientID string, now time.Time) BidEvent {
	return BidEvent{
		ID:          uuid.New(),
		TeamID:      teamID,
		PlayerID:    playerID,
		TimestampMs: now.UnixMilli(),
		Kind:        BidKindStop,
		Origin:      origin,
		ClientID:    clientID,
		Outcome:     BidOutcomePending,
	}
}
