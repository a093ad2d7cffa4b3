// Package rules implements the pure bid-validation rules. Nothing here
// holds state; callers pass the current team, player and auction view
// and get back an ordered list of rule results.
package rules

import (
	"fmt"

	"github.com/auctionhq/gavel/internal/config"
	"github.com/auctionhq/gavel/internal/models"
)

// RuleID identifies a single validation rule.
type RuleID string

const (
	RulePlayerActive  RuleID = "PLAYER_ACTIVE"
	RuleMinimumBid    RuleID = "MINIMUM_BID"
	RuleStrictRaise   RuleID = "STRICT_RAISE"
	RuleMinimumRaise  RuleID = "MINIMUM_RAISE"
	RuleRosterCap     RuleID = "ROSTER_CAP"
	RulePurseReserve  RuleID = "PURSE_RESERVE"
	RuleUnderAgeQuota RuleID = "UNDER_AGE_QUOTA"
	RuleAlreadyLead   RuleID = "ALREADY_LEADING"
	RulePaused        RuleID = "AUCTION_PAUSED"
)

// Severity separates failures that block a commit from annotations.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
)

// Result is the outcome of evaluating one rule against a candidate bid.
type Result struct {
	RuleID   RuleID
	Severity Severity
	Valid    bool
	Message  string
}

// Results is the full rule report for one candidate bid.
type Results []Result

// OK reports whether no critical rule failed. Warnings never block.
func (rs Results) OK() bool {
	for _, r := range rs {
		if !r.Valid && r.Severity == SeverityCritical {
			return false
		}
	}
	return true
}

// FirstFailure returns the highest-precedence critical failure, if any.
func (rs Results) FirstFailure() (Result, bool) {
	for _, r := range rs {
		if !r.Valid && r.Severity == SeverityCritical {
			return r, true
		}
	}
	return Result{}, false
}

// Warnings returns the non-blocking annotations that fired.
func (rs Results) Warnings() []Result {
	var out []Result
	for _, r := range rs {
		if !r.Valid && r.Severity == SeverityWarning {
			out = append(out, r)
		}
	}
	return out
}

// MaxBid returns the most a team may bid without bidding itself into
// inability to fill its remaining roster slots at minimum base price.
// Floored at zero.
func MaxBid(team *models.Team, cfg config.Rules) int64 {
	remainingAfterThis := team.RemainingSlots() - 1
	if remainingAfterThis < 0 {
		remainingAfterThis = 0
	}
	max := team.RemainingPurse - int64(remainingAfterThis)*cfg.MinimumBasePrice
	if max < 0 {
		return 0
	}
	return max
}

// Validate evaluates a candidate raise in fixed precedence order. All
// applicable rules are reported for diagnostics; callers must not commit
// on any critical failure (Results.OK).
func Validate(amount int64, team *models.Team, player *models.Player, state *models.AuctionState, cfg config.Rules) Results {
	var rs Results

	if state.Paused {
		rs = append(rs, Result{
			RuleID:   RulePaused,
			Severity: SeverityCritical,
			Valid:    false,
			Message:  "auction is paused",
		})
	}

	playerActive := player != nil && player.Status == models.PlayerStatusInAuction
	rs = append(rs, Result{
		RuleID:   RulePlayerActive,
		Severity: SeverityCritical,
		Valid:    playerActive,
		Message:  messageIf(!playerActive, "no player is up for bidding"),
	})
	if !playerActive {
		// Remaining rules are meaningless without an active player.
		return rs
	}

	rs = append(rs, Result{
		RuleID:   RuleMinimumBid,
		Severity: SeverityCritical,
		Valid:    amount >= cfg.MinimumBid,
		Message:  messageIf(amount < cfg.MinimumBid, fmt.Sprintf("bid %d is below minimum %d", amount, cfg.MinimumBid)),
	})

	rs = append(rs, Result{
		RuleID:   RuleStrictRaise,
		Severity: SeverityCritical,
		Valid:    amount > state.CurrentBid,
		Message:  messageIf(amount <= state.CurrentBid, fmt.Sprintf("bid %d does not exceed current bid %d", amount, state.CurrentBid)),
	})

	// The opening bid only has to beat the base price; once a team
	// leads, raises must clear the configured increment.
	if state.LeadingTeamID != "" {
		required := state.CurrentBid + cfg.BidIncrement
		rs = append(rs, Result{
			RuleID:   RuleMinimumRaise,
			Severity: SeverityCritical,
			Valid:    amount >= required,
			Message:  messageIf(amount < required, fmt.Sprintf("bid %d is below minimum raise %d (current %d + increment %d)", amount, required, state.CurrentBid, cfg.BidIncrement)),
		})
	}

	rosterFull := team.RemainingSlots() == 0
	rs = append(rs, Result{
		RuleID:   RuleRosterCap,
		Severity: SeverityCritical,
		Valid:    !rosterFull,
		Message:  messageIf(rosterFull, fmt.Sprintf("team %s roster is full (%d players)", team.ID, team.PlayersBought)),
	})

	maxBid := MaxBid(team, cfg)
	rs = append(rs, Result{
		RuleID:   RulePurseReserve,
		Severity: SeverityCritical,
		Valid:    amount <= maxBid,
		Message:  messageIf(amount > maxBid, fmt.Sprintf("bid %d exceeds max bid %d for team %s", amount, maxBid, team.ID)),
	})

	if player.Age < cfg.UnderAgeThreshold {
		quotaOK := team.UnderAgePlayers < cfg.MaxUnderAgePlayers
		rs = append(rs, Result{
			RuleID:   RuleUnderAgeQuota,
			Severity: SeverityCritical,
			Valid:    quotaOK,
			Message:  messageIf(!quotaOK, fmt.Sprintf("team %s reached under-age cap of %d", team.ID, cfg.MaxUnderAgePlayers)),
		})
	}

	if state.LeadingTeamID == team.ID {
		rs = append(rs, Result{
			RuleID:   RuleAlreadyLead,
			Severity: SeverityWarning,
			Valid:    false,
			Message:  fmt.Sprintf("team %s is already leading", team.ID),
		})
	}

	return rs
}

// ValidateSale runs the same rule set for a sale commit, where the sale
// amount equals the winning bid. The raise rules do not apply because
// the amount being committed is the current bid itself.
func ValidateSale(amount int64, team *models.Team, player *models.Player, state *models.AuctionState, cfg config.Rules) Results {
	var out Results
	for _, r := range Validate(amount, team, player, state, cfg) {
		if r.RuleID == RuleStrictRaise || r.RuleID == RuleMinimumRaise {
			continue
		}
		out = append(out, r)
	}
	return out
}

func messageIf(cond bool, msg string) string {
	if cond {
		return msg
	}
	return ""
}
