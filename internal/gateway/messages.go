package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/auctionhq/gavel/internal/models"
)

// ServerMessageType identifies outbound message kinds.
type ServerMessageType string

const (
	ServerMessageSnapshot ServerMessageType = "Snapshot"
	ServerMessageEvent    ServerMessageType = "Event"
)

// ServerMessage is the envelope broadcast to connected devices.
type ServerMessage struct {
	Type      ServerMessageType `json:"type"`
	EventType string            `json:"event_type,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
}

// NewSnapshotMessage wraps a snapshot for broadcast.
func NewSnapshotMessage(snap models.SyncSnapshot) (ServerMessage, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return ServerMessage{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	return ServerMessage{
		Type:      ServerMessageSnapshot,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}

// NewEventMessage wraps a lifecycle event payload for broadcast.
func NewEventMessage(eventType string, payload any) (ServerMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return ServerMessage{}, fmt.Errorf("marshal event payload: %w", err)
	}
	return ServerMessage{
		Type:      ServerMessageEvent,
		EventType: eventType,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}

// ClientMessageType identifies inbound message kinds.
type ClientMessageType string

const (
	ClientMessageRaise ClientMessageType = "Raise"
	ClientMessageStop  ClientMessageType = "Stop"
)

// ClientMessage is a bid submission from a team device. The timestamp
// is the device's clock at submission time; arbitration orders by it.
type ClientMessage struct {
	Type        ClientMessageType `json:"type"`
	ID          string            `json:"id,omitempty"`
	PlayerID    string            `json:"player_id"`
	Amount      int64             `json:"amount,omitempty"`
	TimestampMs int64             `json:"timestamp_ms,omitempty"`
}

// ToBidEvent converts the message into a BidEvent bound to the
// connection's team and client identity. A missing ID gets a fresh
// UUID; a missing timestamp falls back to server receive time.
func (m ClientMessage) ToBidEvent(teamID, clientID string) (models.BidEvent, error) {
	var kind models.BidKind
	switch m.Type {
	case ClientMessageRaise:
		kind = models.BidKindRaise
		if m.Amount <= 0 {
			return models.BidEvent{}, fmt.Errorf("raise requires a positive amount, got %d", m.Amount)
		}
	case ClientMessageStop:
		kind = models.BidKindStop
	default:
		return models.BidEvent{}, fmt.Errorf("unknown client message type %q", m.Type)
	}

	id := uuid.New()
	if m.ID != "" {
		parsed, err := uuid.Parse(m.ID)
		if err != nil {
			return models.BidEvent{}, fmt.Errorf("invalid bid id %q: %w", m.ID, err)
		}
		id = parsed
	}

	ts := m.TimestampMs
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	return models.BidEvent{
		ID:          id,
		TeamID:      teamID,
		PlayerID:    m.PlayerID,
		Amount:      m.Amount,
		TimestampMs: ts,
		Kind:        kind,
		Origin:      models.BidOriginMobile,
		ClientID:    clientID,
		Outcome:     models.BidOutcomePending,
	}, nil
}
