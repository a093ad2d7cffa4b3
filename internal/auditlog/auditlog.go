// Package auditlog keeps the append-only record of bid arbitration
// decisions and committed sales, and renders the CSV export of sold
// players.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/auctionhq/gavel/internal/auction"
	"github.com/auctionhq/gavel/internal/models"
)

// Decision is one audited arbitration outcome.
type Decision struct {
	BidID     string            `json:"bid_id"`
	TeamID    string            `json:"team_id"`
	PlayerID  string            `json:"player_id"`
	Amount    int64             `json:"amount"`
	Kind      models.BidKind    `json:"kind"`
	Origin    models.BidOrigin  `json:"origin"`
	Outcome   models.BidOutcome `json:"outcome"`
	Reason    string            `json:"reason,omitempty"`
	DecidedAt time.Time         `json:"decided_at"`
}

// Log is the in-memory audit trail. Safe for concurrent use.
type Log struct {
	mu        sync.RWMutex
	decisions []Decision
	sold      []auction.SoldRecord
}

// New builds an empty audit log.
func New() *Log {
	return &Log{}
}

// RecordDecision appends an arbitration outcome.
func (l *Log) RecordDecision(d Decision) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decisions = append(l.decisions, d)
}

// RecordSale appends a committed sale.
func (l *Log) RecordSale(r auction.SoldRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sold = append(l.sold, r)
}

// DropLastSale removes the most recent sale record; used when a sale is
// undone.
func (l *Log) DropLastSale(playerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.sold); n > 0 && l.sold[n-1].PlayerID == playerID {
		l.sold = l.sold[:n-1]
	}
}

// Decisions returns a copy of the decision trail.
func (l *Log) Decisions() []Decision {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Decision, len(l.decisions))
	copy(out, l.decisions)
	return out
}

// SoldRecords returns a copy of the committed sales.
func (l *Log) SoldRecords() []auction.SoldRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]auction.SoldRecord, len(l.sold))
	copy(out, l.sold)
	return out
}

// WriteSoldCSV renders the sold-player export.
func (l *Log) WriteSoldCSV(w io.Writer) error {
	records := l.SoldRecords()

	cw := csv.NewWriter(w)
	header := []string{"player_id", "player_name", "role", "team_id", "team_name", "amount", "round", "sold_at"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.PlayerID,
			r.PlayerName,
			r.Role,
			r.TeamID,
			r.TeamName,
			strconv.FormatInt(r.Amount, 10),
			strconv.Itoa(r.Round),
			r.SoldAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
