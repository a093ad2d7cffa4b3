package rules

import (
	"testing"

	"github.com/auctionhq/gavel/internal/config"
	"github.com/auctionhq/gavel/internal/models"
)

func testRules() config.Rules {
	return config.Rules{
		MinimumBid:         100,
		BidIncrement:       25,
		MinimumBasePrice:   100,
		MaxUnderAgePlayers: 3,
		UnderAgeThreshold:  19,
		MaxRounds:          3,
	}
}

func testTeam() *models.Team {
	return &models.Team{
		ID:             "t1",
		Name:           "Thunder",
		AllocatedPurse: 1000,
		RemainingPurse: 1000,
		RosterCapacity: 3,
	}
}

func testPlayer() *models.Player {
	return &models.Player{
		ID:        "p1",
		Name:      "A. Striker",
		Age:       24,
		BasePrice: 100,
		Status:    models.PlayerStatusInAuction,
	}
}

func biddingState(currentBid int64) *models.AuctionState {
	return &models.AuctionState{
		Phase:      models.PhaseBidding,
		CurrentBid: currentBid,
		Round:      1,
	}
}

func TestMaxBid(t *testing.T) {
	cfg := testRules()

	tests := []struct {
		name   string
		purse  int64
		bought int
		want   int64
	}{
		{name: "full roster ahead reserves two base prices", purse: 1000, bought: 0, want: 800},
		{name: "one slot left reserves nothing", purse: 1000, bought: 2, want: 1000},
		{name: "reserve exceeds purse floors at zero", purse: 150, bought: 0, want: 0},
		{name: "roster already full floors at zero headroom", purse: 500, bought: 3, want: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team := testTeam()
			team.RemainingPurse = tt.purse
			team.PlayersBought = tt.bought
			if got := MaxBid(team, cfg); got != tt.want {
				t.Fatalf("MaxBid() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := testRules()

	tests := []struct {
		name     string
		amount   int64
		team     func(*models.Team)
		player   func(*models.Player)
		state    func(*models.AuctionState)
		wantOK   bool
		wantRule RuleID
	}{
		{
			name:   "accepted at exact max bid",
			amount: 800,
			wantOK: true,
		},
		{
			name:     "rejected one over max bid",
			amount:   801,
			wantOK:   false,
			wantRule: RulePurseReserve,
		},
		{
			name:     "rejected below minimum",
			amount:   50,
			wantOK:   false,
			wantRule: RuleMinimumBid,
		},
		{
			name:     "tie with current bid is not a raise",
			amount:   300,
			state:    func(s *models.AuctionState) { s.CurrentBid = 300 },
			wantOK:   false,
			wantRule: RuleStrictRaise,
		},
		{
			name:   "opening bid needs no increment",
			amount: 101,
			wantOK: true,
		},
		{
			name:   "raise under the increment over a leader",
			amount: 220,
			state: func(s *models.AuctionState) {
				s.CurrentBid = 200
				s.LeadingTeamID = "t9"
			},
			wantOK:   false,
			wantRule: RuleMinimumRaise,
		},
		{
			name:   "raise at exactly the increment over a leader",
			amount: 225,
			state: func(s *models.AuctionState) {
				s.CurrentBid = 200
				s.LeadingTeamID = "t9"
			},
			wantOK: true,
		},
		{
			name:     "no player on the block",
			amount:   200,
			player:   func(p *models.Player) { p.Status = models.PlayerStatusAvailable },
			wantOK:   false,
			wantRule: RulePlayerActive,
		},
		{
			name:     "roster full",
			amount:   200,
			team:     func(tm *models.Team) { tm.PlayersBought = 3 },
			wantOK:   false,
			wantRule: RuleRosterCap,
		},
		{
			name:     "under-age quota reached",
			amount:   200,
			team:     func(tm *models.Team) { tm.UnderAgePlayers = 3 },
			player:   func(p *models.Player) { p.Age = 17 },
			wantOK:   false,
			wantRule: RuleUnderAgeQuota,
		},
		{
			name:   "under-age accepted below quota",
			amount: 200,
			team:   func(tm *models.Team) { tm.UnderAgePlayers = 2 },
			player: func(p *models.Player) { p.Age = 17 },
			wantOK: true,
		},
		{
			name:     "paused auction blocks everything",
			amount:   200,
			state:    func(s *models.AuctionState) { s.Paused = true },
			wantOK:   false,
			wantRule: RulePaused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team := testTeam()
			player := testPlayer()
			state := biddingState(100)
			if tt.team != nil {
				tt.team(team)
			}
			if tt.player != nil {
				tt.player(player)
			}
			if tt.state != nil {
				tt.state(state)
			}

			rs := Validate(tt.amount, team, player, state, cfg)
			if rs.OK() != tt.wantOK {
				t.Fatalf("OK() = %v, want %v (results %+v)", rs.OK(), tt.wantOK, rs)
			}
			if !tt.wantOK {
				failure, ok := rs.FirstFailure()
				if !ok {
					t.Fatalf("expected a critical failure, got none")
				}
				if failure.RuleID != tt.wantRule {
					t.Fatalf("FirstFailure() rule = %s, want %s", failure.RuleID, tt.wantRule)
				}
			}
		})
	}
}

func TestValidateAlreadyLeadingWarnsOnly(t *testing.T) {
	cfg := testRules()
	team := testTeam()
	player := testPlayer()
	state := biddingState(100)
	state.LeadingTeamID = team.ID

	rs := Validate(200, team, player, state, cfg)
	if !rs.OK() {
		t.Fatalf("warning must not block: %+v", rs)
	}
	warnings := rs.Warnings()
	if len(warnings) != 1 || warnings[0].RuleID != RuleAlreadyLead {
		t.Fatalf("expected a single ALREADY_LEADING warning, got %+v", warnings)
	}
}

func TestValidateSaleSkipsRaiseRules(t *testing.T) {
	cfg := testRules()
	team := testTeam()
	player := testPlayer()
	state := biddingState(300)
	state.LeadingTeamID = "t9"

	// Committing at exactly the current bid is the normal sale path.
	rs := ValidateSale(300, team, player, state, cfg)
	if !rs.OK() {
		t.Fatalf("sale at current bid must validate: %+v", rs)
	}
	for _, r := range rs {
		if r.RuleID == RuleStrictRaise || r.RuleID == RuleMinimumRaise {
			t.Fatalf("raise rule %s must not be evaluated for sales", r.RuleID)
		}
	}
}
