package models

// Team represents a bidding franchise and its purse position.
// Mutated exclusively by the ledger on a committed sale.
type Team struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	LogoURL         string `json:"logo_url,omitempty"`
	AllocatedPurse  int64  `json:"allocated_purse"`
	RemainingPurse  int64  `json:"remaining_purse"`
	RosterCapacity  int    `json:"roster_capacity"`
	PlayersBought   int    `json:"players_bought"`
	UnderAgePlayers int    `json:"under_age_players"`
	HighestBid      int64  `json:"highest_bid"`
}

// RemainingSlots returns how many roster spots the team still has to fill.
func (t *Team) RemainingSlots() int {
	n := t.RosterCapacity - t.PlayersBought
	if n < 0 {
		return 0
	}
	return n
}

// TeamSummary is the lightweight team projection carried inside snapshots.
type TeamSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	LogoURL         string `json:"logo_url,omitempty"`
	RemainingPurse  int64  `json:"remaining_purse"`
	PlayersBought   int    `json:"players_bought"`
	UnderAgePlayers int    `json:"under_age_players"`
	HighestBid      int64  `json:"highest_bid"`
}

// Summary builds the snapshot projection for the team.
func (t *Team) Summary() TeamSummary {
	return TeamSummary{
		ID:              t.ID,
		Name:            t.Name,
		LogoURL:         t.LogoURL,
		RemainingPurse:  t.RemainingPurse,
		PlayersBought:   t.PlayersBought,
		UnderAgePlayers: t.UnderAgePlayers,
		HighestBid:      t.HighestBid,
	}
}
