// Package ledger tracks per-team purse and roster positions. The ledger
// is mutated only by the desktop-role coordinator on committed sales.
package ledger

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/auctionhq/gavel/internal/models"
)

// TeamLedger owns the authoritative team records and their allocation
// baselines. Not safe for concurrent use; the coordinator serializes
// all access on its single logical thread.
type TeamLedger struct {
	teams    map[string]*models.Team
	baseline map[string]models.Team
}

// New builds a ledger from imported teams. The allocation baseline is
// captured at construction and used by ResetAll.
func New(teams []models.Team) *TeamLedger {
	l := &TeamLedger{
		teams:    make(map[string]*models.Team, len(teams)),
		baseline: make(map[string]models.Team, len(teams)),
	}
	for i := range teams {
		t := teams[i]
		l.teams[t.ID] = &t
		l.baseline[t.ID] = t
	}
	return l
}

// Team returns the live record for a team ID.
func (l *TeamLedger) Team(id string) (*models.Team, bool) {
	t, ok := l.teams[id]
	return t, ok
}

// Teams returns all live team records ordered by ID.
func (l *TeamLedger) Teams() []*models.Team {
	out := make([]*models.Team, 0, len(l.teams))
	for _, t := range l.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Summaries returns the snapshot projections for all teams, ordered by ID.
func (l *TeamLedger) Summaries() []models.TeamSummary {
	teams := l.Teams()
	out := make([]models.TeamSummary, 0, len(teams))
	for _, t := range teams {
		out = append(out, t.Summary())
	}
	return out
}

// ApplySale records a committed sale as a single mutation. Purse
// violations are clamped and logged loudly: the validation rules are
// supposed to make a negative purse unreachable, so hitting the clamp
// indicates a rules bug.
func (l *TeamLedger) ApplySale(teamID string, amount int64, isUnderAge bool) error {
	t, ok := l.teams[teamID]
	if !ok {
		return fmt.Errorf("unknown team %q", teamID)
	}

	t.PlayersBought++
	t.RemainingPurse -= amount
	if t.RemainingPurse < 0 {
		log.Error().
			Str("team_id", teamID).
			Int64("amount", amount).
			Int64("remaining_purse", t.RemainingPurse).
			Msg("purse went negative on sale; clamping — validation rules let an over-purse bid through")
		t.RemainingPurse = 0
	}
	if amount > t.HighestBid {
		t.HighestBid = amount
	}
	if isUnderAge {
		t.UnderAgePlayers++
	}
	return nil
}

// ReverseSale undoes the most recent ApplySale for a team. Used by the
// single-step undo path; callers are responsible for only reversing a
// sale that actually happened.
func (l *TeamLedger) ReverseSale(teamID string, amount int64, isUnderAge bool, prevHighest int64) error {
	t, ok := l.teams[teamID]
	if !ok {
		return fmt.Errorf("unknown team %q", teamID)
	}

	t.PlayersBought--
	if t.PlayersBought < 0 {
		log.Error().Str("team_id", teamID).Msg("players bought went negative on undo; clamping")
		t.PlayersBought = 0
	}
	t.RemainingPurse += amount
	if t.RemainingPurse > t.AllocatedPurse {
		log.Error().
			Str("team_id", teamID).
			Int64("remaining_purse", t.RemainingPurse).
			Msg("purse exceeded allocation on undo; clamping")
		t.RemainingPurse = t.AllocatedPurse
	}
	t.HighestBid = prevHighest
	if isUnderAge {
		t.UnderAgePlayers--
		if t.UnderAgePlayers < 0 {
			t.UnderAgePlayers = 0
		}
	}
	return nil
}

// ResetAll restores every team to its allocated baseline.
func (l *TeamLedger) ResetAll() {
	for id := range l.teams {
		base := l.baseline[id]
		*l.teams[id] = base
	}
	log.Info().Int("teams", len(l.teams)).Msg("team ledger reset to baseline")
}
