package auction

import (
	"errors"
	"testing"
	"time"

	"github.com/auctionhq/gavel/internal/auction/events"
	"github.com/auctionhq/gavel/internal/config"
	"github.com/auctionhq/gavel/internal/ledger"
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

func testPlayers() []models.Player {
	return []models.Player{
		{ID: "p1", Name: "A. Striker", Age: 24, BasePrice: 100, Status: models.PlayerStatusAvailable},
		{ID: "p2", Name: "B. Keeper", Age: 17, BasePrice: 150, Status: models.PlayerStatusAvailable},
		{ID: "p3", Name: "C. Winger", Age: 28, BasePrice: 100, Status: models.PlayerStatusAvailable},
	}
}

func testLedger() *ledger.TeamLedger {
	return ledger.New([]models.Team{
		{ID: "t1", Name: "Thunder", AllocatedPurse: 1000, RemainingPurse: 1000, RosterCapacity: 3},
		{ID: "t2", Name: "Blaze", AllocatedPurse: 800, RemainingPurse: 800, RosterCapacity: 3},
	})
}

func testEngine(opts ...Option) *Engine {
	return NewEngine(testPlayers(), testLedger(), testRules(), SelectionSequential, opts...)
}

func raise(teamID string, amount int64) models.BidEvent {
	return models.NewRaise(teamID, "p1", amount, models.BidOriginKeyboard, "kb", time.Now())
}

func TestSelectPlayer(t *testing.T) {
	e := testEngine()

	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	state := e.State()
	if state.Phase != models.PhaseBidding {
		t.Errorf("Phase = %s, want BIDDING", state.Phase)
	}
	if state.CurrentPlayer == nil || state.CurrentPlayer.ID != "p1" {
		t.Errorf("CurrentPlayer = %+v, want p1", state.CurrentPlayer)
	}
	if state.CurrentBid != 100 {
		t.Errorf("CurrentBid = %d, want base price 100", state.CurrentBid)
	}

	if err := e.SelectPlayer("p2"); !errors.Is(err, ErrBiddingInProgress) {
		t.Errorf("SelectPlayer() during bidding = %v, want ErrBiddingInProgress", err)
	}
}

func TestSelectPlayerUnavailable(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("nope"); !errors.Is(err, ErrPlayerNotAvailable) {
		t.Fatalf("SelectPlayer(unknown) = %v, want ErrPlayerNotAvailable", err)
	}
}

func TestSelectNextSequential(t *testing.T) {
	e := testEngine()

	p, err := e.SelectNext()
	if err != nil {
		t.Fatalf("SelectNext() error = %v", err)
	}
	if p.ID != "p1" {
		t.Fatalf("SelectNext() = %s, want p1", p.ID)
	}

	// Sell p1 so the cursor has to move past it next time round.
	if _, err := e.PlaceBid(raise("t1", 200)); err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}
	if err := e.CommitSale("t1", 200); err != nil {
		t.Fatalf("CommitSale() error = %v", err)
	}

	p, err = e.SelectNext()
	if err != nil {
		t.Fatalf("SelectNext() error = %v", err)
	}
	if p.ID != "p2" {
		t.Fatalf("SelectNext() = %s, want p2", p.ID)
	}
}

func TestSelectNextRandom(t *testing.T) {
	e := NewEngine(testPlayers(), testLedger(), testRules(), SelectionRandom,
		WithRand(func(n int) int { return n - 1 }))

	p, err := e.SelectNext()
	if err != nil {
		t.Fatalf("SelectNext() error = %v", err)
	}
	if p.ID != "p3" {
		t.Fatalf("SelectNext() with last-index draw = %s, want p3", p.ID)
	}
}

func TestPlaceBid(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}

	rs, err := e.PlaceBid(raise("t1", 200))
	if err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}
	if !rs.OK() {
		t.Fatalf("PlaceBid() rejected: %+v", rs)
	}

	state := e.State()
	if state.CurrentBid != 200 || state.PreviousBid != 100 {
		t.Errorf("bid state = %d/%d, want 200/100", state.CurrentBid, state.PreviousBid)
	}
	if state.LeadingTeamID != "t1" {
		t.Errorf("LeadingTeamID = %s, want t1", state.LeadingTeamID)
	}
	if len(state.BidHistory) != 1 {
		t.Errorf("BidHistory len = %d, want 1", len(state.BidHistory))
	}
}

func TestPlaceBidRejectedKeepsState(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if _, err := e.PlaceBid(raise("t1", 200)); err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}

	rs, err := e.PlaceBid(raise("t2", 200)) // tie, not a raise
	if err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}
	if rs.OK() {
		t.Fatalf("tie bid must be rejected")
	}

	state := e.State()
	if state.CurrentBid != 200 || state.LeadingTeamID != "t1" {
		t.Fatalf("rejected bid mutated state: bid=%d leader=%s", state.CurrentBid, state.LeadingTeamID)
	}
	if len(state.BidHistory) != 1 {
		t.Fatalf("rejected bid appended to history")
	}
}

func TestPlaceBidOutsideBidding(t *testing.T) {
	e := testEngine()
	if _, err := e.PlaceBid(raise("t1", 200)); !errors.Is(err, ErrAuctionNotActive) {
		t.Fatalf("PlaceBid() from idle = %v, want ErrAuctionNotActive", err)
	}
}

func TestPlaceBidUnknownTeam(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if _, err := e.PlaceBid(raise("ghost", 200)); !errors.Is(err, ErrUnknownTeam) {
		t.Fatalf("PlaceBid(unknown team) = %v, want ErrUnknownTeam", err)
	}
}

func TestCommitSale(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if _, err := e.PlaceBid(raise("t1", 300)); err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}

	if err := e.CommitSale("t1", 300); err != nil {
		t.Fatalf("CommitSale() error = %v", err)
	}

	p, _ := e.Player("p1")
	if p.Status != models.PlayerStatusSold || p.SoldTo != "t1" || p.SoldAmount != 300 {
		t.Errorf("player after sale = %+v", p)
	}
	if e.State().Phase != models.PhaseIdle {
		t.Errorf("Phase = %s, want IDLE after commit", e.State().Phase)
	}
	if n := len(e.SoldRecords()); n != 1 {
		t.Errorf("SoldRecords len = %d, want 1", n)
	}

	// No player on the block anymore.
	if err := e.CommitSale("t1", 300); !errors.Is(err, ErrAuctionNotActive) {
		t.Errorf("second CommitSale() = %v, want ErrAuctionNotActive", err)
	}
}

func TestCommitSaleRequiresTeam(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if err := e.CommitSale("", 100); !errors.Is(err, ErrNoTeamSelected) {
		t.Fatalf("CommitSale(no team) = %v, want ErrNoTeamSelected", err)
	}
}

func TestCommitSaleRevalidates(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	// 801 breaches the purse reserve for a 1000 purse with 2 slots to keep.
	if err := e.CommitSale("t1", 801); !errors.Is(err, ErrSaleRejected) {
		t.Fatalf("CommitSale(over reserve) = %v, want ErrSaleRejected", err)
	}
}

func TestMarkUnsoldAndNextRound(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if err := e.MarkUnsold(); err != nil {
		t.Fatalf("MarkUnsold() error = %v", err)
	}

	p, _ := e.Player("p1")
	if p.Status != models.PlayerStatusUnsold || p.UnsoldInRound != 1 {
		t.Fatalf("player after unsold = %+v", p)
	}

	if err := e.NextRound(); err != nil {
		t.Fatalf("NextRound() error = %v", err)
	}
	if e.State().Round != 2 {
		t.Fatalf("Round = %d, want 2", e.State().Round)
	}
	p, _ = e.Player("p1")
	if !p.Available() {
		t.Fatalf("unsold player not re-entered on next round: %+v", p)
	}
}

func TestNextRoundLimit(t *testing.T) {
	e := testEngine()
	if err := e.NextRound(); err != nil {
		t.Fatalf("NextRound() error = %v", err)
	}
	if err := e.NextRound(); err != nil {
		t.Fatalf("NextRound() error = %v", err)
	}
	if err := e.NextRound(); !errors.Is(err, ErrNoPlayersLeft) {
		t.Fatalf("NextRound() past limit = %v, want ErrNoPlayersLeft", err)
	}
}

func TestNextRoundDuringBidding(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if err := e.NextRound(); !errors.Is(err, ErrBiddingInProgress) {
		t.Fatalf("NextRound() during bidding = %v, want ErrBiddingInProgress", err)
	}
}

func TestUndoSale(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if _, err := e.PlaceBid(raise("t1", 300)); err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}
	if err := e.CommitSale("t1", 300); err != nil {
		t.Fatalf("CommitSale() error = %v", err)
	}

	if err := e.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}

	p, _ := e.Player("p1")
	if !p.Available() || p.SoldTo != "" || p.SoldAmount != 0 {
		t.Errorf("player after undo = %+v", p)
	}
	if n := len(e.SoldRecords()); n != 0 {
		t.Errorf("SoldRecords len = %d, want 0 after undo", n)
	}
	team, _ := e.ledger.Team("t1")
	if team.RemainingPurse != 1000 || team.PlayersBought != 0 {
		t.Errorf("team after undo = %+v", team)
	}

	if err := e.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("second Undo() = %v, want ErrNothingToUndo", err)
	}
}

func TestUndoUnsold(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if err := e.MarkUnsold(); err != nil {
		t.Fatalf("MarkUnsold() error = %v", err)
	}
	if err := e.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}

	p, _ := e.Player("p1")
	if !p.Available() || p.UnsoldInRound != 0 {
		t.Fatalf("player after undo = %+v", p)
	}
}

func TestUndoDuringBidding(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if err := e.Undo(); !errors.Is(err, ErrBiddingInProgress) {
		t.Fatalf("Undo() during bidding = %v, want ErrBiddingInProgress", err)
	}
}

func TestPauseBlocksBids(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}

	e.Pause("break")
	rs, err := e.PlaceBid(raise("t1", 200))
	if err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}
	if rs.OK() {
		t.Fatalf("bid accepted while paused")
	}

	e.Resume()
	rs, err = e.PlaceBid(raise("t1", 200))
	if err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}
	if !rs.OK() {
		t.Fatalf("bid rejected after resume: %+v", rs)
	}
}

func TestReset(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if _, err := e.PlaceBid(raise("t1", 300)); err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}
	if err := e.CommitSale("t1", 300); err != nil {
		t.Fatalf("CommitSale() error = %v", err)
	}

	e.Reset()

	if e.State().Round != 1 || e.State().Phase != models.PhaseIdle {
		t.Errorf("state after reset = %+v", e.State())
	}
	if e.AvailableCount() != 3 {
		t.Errorf("AvailableCount = %d, want 3", e.AvailableCount())
	}
	if n := len(e.SoldRecords()); n != 0 {
		t.Errorf("SoldRecords len = %d, want 0", n)
	}
	team, _ := e.ledger.Team("t1")
	if team.RemainingPurse != 1000 {
		t.Errorf("purse after reset = %d, want 1000", team.RemainingPurse)
	}
}

func TestLifecycleEvents(t *testing.T) {
	e := testEngine()
	var seen []events.EventType
	e.Subscribe(func(typ events.EventType, _ any) {
		seen = append(seen, typ)
	})

	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if _, err := e.PlaceBid(raise("t1", 200)); err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}
	if err := e.CommitSale("t1", 200); err != nil {
		t.Fatalf("CommitSale() error = %v", err)
	}
	if err := e.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}

	want := []events.EventType{
		events.EventTypePlayerSelected,
		events.EventTypePlayerSold,
		events.EventTypeSaleUndone,
	}
	if len(seen) != len(want) {
		t.Fatalf("events = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("events = %v, want %v", seen, want)
		}
	}
}

func TestSnapshotProjection(t *testing.T) {
	e := testEngine()
	if err := e.SelectPlayer("p1"); err != nil {
		t.Fatalf("SelectPlayer() error = %v", err)
	}
	if _, err := e.PlaceBid(raise("t1", 200)); err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}

	snap := e.Snapshot("session", 42)
	if snap.CurrentPlayer == nil || snap.CurrentPlayer.ID != "p1" {
		t.Errorf("snapshot player = %+v", snap.CurrentPlayer)
	}
	if snap.SelectedTeam == nil || snap.SelectedTeam.ID != "t1" {
		t.Errorf("snapshot leading team = %+v", snap.SelectedTeam)
	}
	if snap.CurrentBid != 200 || !snap.AuctionActive {
		t.Errorf("snapshot bid/active = %d/%v", snap.CurrentBid, snap.AuctionActive)
	}
	if snap.LastUpdate != 42 || snap.SessionID != "session" {
		t.Errorf("snapshot stamps = %d/%s", snap.LastUpdate, snap.SessionID)
	}
	if len(snap.Teams) != 2 {
		t.Errorf("snapshot teams len = %d, want 2", len(snap.Teams))
	}
}
