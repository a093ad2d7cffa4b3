package ledger

import (
	"testing"

	"github.com/auctionhq/gavel/internal/models"
)

func testTeams() []models.Team {
	return []models.Team{
		{ID: "t1", Name: "Thunder", AllocatedPurse: 1000, RemainingPurse: 1000, RosterCapacity: 3},
		{ID: "t2", Name: "Blaze", AllocatedPurse: 800, RemainingPurse: 800, RosterCapacity: 3},
	}
}

func TestApplySale(t *testing.T) {
	l := New(testTeams())

	if err := l.ApplySale("t1", 300, true); err != nil {
		t.Fatalf("ApplySale() error = %v", err)
	}

	team, ok := l.Team("t1")
	if !ok {
		t.Fatalf("team t1 missing")
	}
	if team.RemainingPurse != 700 {
		t.Errorf("RemainingPurse = %d, want 700", team.RemainingPurse)
	}
	if team.PlayersBought != 1 {
		t.Errorf("PlayersBought = %d, want 1", team.PlayersBought)
	}
	if team.UnderAgePlayers != 1 {
		t.Errorf("UnderAgePlayers = %d, want 1", team.UnderAgePlayers)
	}
	if team.HighestBid != 300 {
		t.Errorf("HighestBid = %d, want 300", team.HighestBid)
	}
}

func TestApplySaleUnknownTeam(t *testing.T) {
	l := New(testTeams())
	if err := l.ApplySale("nope", 100, false); err == nil {
		t.Fatalf("expected error for unknown team")
	}
}

func TestApplySaleClampsNegativePurse(t *testing.T) {
	l := New(testTeams())

	if err := l.ApplySale("t2", 900, false); err != nil {
		t.Fatalf("ApplySale() error = %v", err)
	}
	team, _ := l.Team("t2")
	if team.RemainingPurse != 0 {
		t.Fatalf("RemainingPurse = %d, want clamp to 0", team.RemainingPurse)
	}
}

func TestReverseSaleRestoresPosition(t *testing.T) {
	l := New(testTeams())

	team, _ := l.Team("t1")
	before := *team
	prevHighest := team.HighestBid

	if err := l.ApplySale("t1", 450, true); err != nil {
		t.Fatalf("ApplySale() error = %v", err)
	}
	if err := l.ReverseSale("t1", 450, true, prevHighest); err != nil {
		t.Fatalf("ReverseSale() error = %v", err)
	}

	after, _ := l.Team("t1")
	if *after != before {
		t.Fatalf("reverse did not restore team: got %+v, want %+v", *after, before)
	}
}

func TestReverseSaleRestoresHighestBid(t *testing.T) {
	l := New(testTeams())

	if err := l.ApplySale("t1", 200, false); err != nil {
		t.Fatalf("ApplySale() error = %v", err)
	}
	team, _ := l.Team("t1")
	prevHighest := team.HighestBid // 200

	if err := l.ApplySale("t1", 500, false); err != nil {
		t.Fatalf("ApplySale() error = %v", err)
	}
	if err := l.ReverseSale("t1", 500, false, prevHighest); err != nil {
		t.Fatalf("ReverseSale() error = %v", err)
	}

	team, _ = l.Team("t1")
	if team.HighestBid != 200 {
		t.Fatalf("HighestBid = %d, want 200 after undo", team.HighestBid)
	}
}

func TestResetAll(t *testing.T) {
	l := New(testTeams())

	if err := l.ApplySale("t1", 300, false); err != nil {
		t.Fatalf("ApplySale() error = %v", err)
	}
	if err := l.ApplySale("t2", 100, true); err != nil {
		t.Fatalf("ApplySale() error = %v", err)
	}

	l.ResetAll()

	for _, want := range testTeams() {
		got, ok := l.Team(want.ID)
		if !ok {
			t.Fatalf("team %s missing after reset", want.ID)
		}
		if *got != want {
			t.Errorf("team %s = %+v, want baseline %+v", want.ID, *got, want)
		}
	}
}

func TestSummariesOrderedByID(t *testing.T) {
	l := New(testTeams())
	sums := l.Summaries()
	if len(sums) != 2 {
		t.Fatalf("Summaries() len = %d, want 2", len(sums))
	}
	if sums[0].ID != "t1" || sums[1].ID != "t2" {
		t.Fatalf("summaries out of order: %s, %s", sums[0].ID, sums[1].ID)
	}
}
