package auction

import "errors"

// ErrAuctionNotActive is returned when a bidding-phase operation is
// attempted with no player on the block.
var ErrAuctionNotActive = errors.New("auction not active")

// ErrBiddingInProgress is returned when a player is selected while
// another is still on the block.
var ErrBiddingInProgress = errors.New("bidding already in progress")

// ErrNoTeamSelected is returned when a sale is committed with no leading team.
var ErrNoTeamSelected = errors.New("no team selected")

// ErrNoPlayersLeft is returned when the available pool is empty.
var ErrNoPlayersLeft = errors.New("no players left")

// ErrPlayerNotAvailable is returned when selecting a player that is not
// in the available pool.
var ErrPlayerNotAvailable = errors.New("player not available")

// ErrNothingToUndo is returned when undo is called with no commit in the
// last-action buffer.
var ErrNothingToUndo = errors.New("nothing to undo")

// ErrUnknownTeam is returned when a sale names a team the ledger does not know.
var ErrUnknownTeam = errors.New("unknown team")

// ErrSaleRejected is returned when the final pre-commit validation fails.
var ErrSaleRejected = errors.New("sale rejected by validation rules")
