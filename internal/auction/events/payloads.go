package events

import (
	"time"
)

// Event payload types shared between the auction engine and the gateway.

// EventType identifies a lifecycle event emitted by the auction engine.
type EventType string

const (
	EventTypePlayerSelected EventType = "PlayerSelected"
	EventTypeBidAccepted    EventType = "BidAccepted"
	EventTypeBidRejected    EventType = "BidRejected"
	EventTypeBidStopped     EventType = "BidStopped"
	EventTypePlayerSold     EventType = "PlayerSold"
	EventTypePlayerUnsold   EventType = "PlayerUnsold"
	EventTypeSaleUndone     EventType = "SaleUndone"
	EventTypeAuctionPaused  EventType = "AuctionPaused"
	EventTypeAuctionResumed EventType = "AuctionResumed"
	EventTypeAuctionReset   EventType = "AuctionReset"
)

// PlayerSelectedPayload is the payload for a PlayerSelected event
type PlayerSelectedPayload struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	BasePrice  int64     `json:"base_price"`
	Round      int       `json:"round"`
	SelectedAt time.Time `json:"selected_at"`
}

// BidAcceptedPayload is the payload for a BidAccepted event
type BidAcceptedPayload struct {
	BidID       string    `json:"bid_id"`
	TeamID      string    `json:"team_id"`
	TeamName    string    `json:"team_name"`
	PlayerID    string    `json:"player_id"`
	Amount      int64     `json:"amount"`
	PreviousBid int64     `json:"previous_bid"`
	AcceptedAt  time.Time `json:"accepted_at"`
}

// BidRejectedPayload is the payload for a BidRejected event
type BidRejectedPayload struct {
	BidID      string    `json:"bid_id"`
	TeamID     string    `json:"team_id"`
	PlayerID   string    `json:"player_id"`
	Amount     int64     `json:"amount"`
	RuleID     string    `json:"rule_id"`
	Reason     string    `json:"reason"`
	RejectedAt time.Time `json:"rejected_at"`
}

// BidStoppedPayload is the payload for a BidStopped event
type BidStoppedPayload struct {
	TeamID    string    `json:"team_id"`
	PlayerID  string    `json:"player_id"`
	StoppedAt time.Time `json:"stopped_at"`
}

// PlayerSoldPayload is the payload for a PlayerSold event
type PlayerSoldPayload struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	TeamID     string    `json:"team_id"`
	TeamName   string    `json:"team_name"`
	Amount     int64     `json:"amount"`
	Round      int       `json:"round"`
	SoldAt     time.Time `json:"sold_at"`
}

// PlayerUnsoldPayload is the payload for a PlayerUnsold event
type PlayerUnsoldPayload struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Round      int       `json:"round"`
	UnsoldAt   time.Time `json:"unsold_at"`
}

// SaleUndonePayload is the payload for a SaleUndone event
type SaleUndonePayload struct {
	PlayerID string    `json:"player_id"`
	WasSold  bool      `json:"was_sold"`
	TeamID   string    `json:"team_id,omitempty"`
	Amount   int64     `json:"amount,omitempty"`
	UndoneAt time.Time `json:"undone_at"`
}

// AuctionPausedPayload is the payload for an AuctionPaused event
type AuctionPausedPayload struct {
	PausedAt time.Time `json:"paused_at"`
	Reason   string    `json:"reason"`
}

// AuctionResumedPayload is the payload for an AuctionResumed event
type AuctionResumedPayload struct {
	ResumedAt time.Time `json:"resumed_at"`
}

// AuctionResetPayload is the payload for an AuctionReset event
type AuctionResetPayload struct {
	ResetAt time.Time `json:"reset_at"`
}
