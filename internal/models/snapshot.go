package models

// AuctionPhase defines the state machine position for the current player.
type AuctionPhase string

const (
	PhaseIdle    AuctionPhase = "IDLE"
	PhaseBidding AuctionPhase = "BIDDING"
)

// AuctionState is the single authoritative mutable view of the auction.
// Only the desktop-role coordinator may mutate it; everything else holds
// read-only projections built from snapshots.
//
// Invariant: when CurrentPlayer is nil, CurrentBid == 0 and
// LeadingTeamID == "".
type AuctionState struct {
	Phase         AuctionPhase `json:"phase"`
	CurrentPlayer *Player      `json:"current_player,omitempty"`
	CurrentBid    int64        `json:"current_bid"`
	PreviousBid   int64        `json:"previous_bid"`
	LeadingTeamID string       `json:"leading_team_id,omitempty"`
	BidHistory    []BidEvent   `json:"bid_history,omitempty"`
	Round         int          `json:"round"`
	Paused        bool         `json:"paused"`
}

// PlayerCard is the snapshot projection of the player on the block.
type PlayerCard struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	ImageURL  string `json:"image_url,omitempty"`
	BasePrice int64  `json:"base_price"`
}

// TeamCard is the snapshot projection of the leading team.
type TeamCard struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

// SyncSnapshot is the wire projection of AuctionState broadcast from the
// desktop role to followers. Receivers compare LastUpdate and discard
// anything non-increasing, so delivery order does not matter.
type SyncSnapshot struct {
	CurrentPlayer *PlayerCard   `json:"current_player,omitempty"`
	CurrentBid    int64         `json:"current_bid"`
	SelectedTeam  *TeamCard     `json:"selected_team,omitempty"`
	Teams         []TeamSummary `json:"teams"`
	AuctionActive bool          `json:"auction_active"`
	Round         int           `json:"round"`
	LastUpdate    int64         `json:"last_update"`
	SessionID     string        `json:"session_id"`
}

// NewerThan reports whether this snapshot supersedes other. A nil other
// is always superseded.
func (s *SyncSnapshot) NewerThan(other *SyncSnapshot) bool {
	if other == nil {
		return true
	}
	return s.LastUpdate > other.LastUpdate
}
