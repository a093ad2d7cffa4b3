package models

// PlayerStatus defines where a player sits in the auction lifecycle.
type PlayerStatus string

const (
	PlayerStatusAvailable PlayerStatus = "AVAILABLE"
	PlayerStatusInAuction PlayerStatus = "IN_AUCTION"
	PlayerStatusSold      PlayerStatus = "SOLD"
	PlayerStatusUnsold    PlayerStatus = "UNSOLD"
)

// Player represents a player entered into the auction pool.
// Players are never deleted, only re-tagged as the auction progresses.
type Player struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Role      string       `json:"role"`
	Age       int          `json:"age"`
	BasePrice int64        `json:"base_price"`
	ImageURL  string       `json:"image_url,omitempty"`
	Status    PlayerStatus `json:"status"`

	// Set on a committed sale.
	SoldTo     string `json:"sold_to,omitempty"`
	SoldAmount int64  `json:"sold_amount,omitempty"`

	// Round in which the player last went unsold, if any.
	UnsoldInRound int `json:"unsold_in_round,omitempty"`
}

// Available reports whether the player can still be put up for bidding.
func (p *Player) Available() bool {
	return p.Status == PlayerStatusAvailable
}
