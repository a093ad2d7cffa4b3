// Package pgstore implements the sync transport over a shared Postgres
// database for cross-device deployments without a broker. State lives
// in a single overwritten snapshot row (last-writer-wins); bids are
// appended rows the desktop polls and prunes once arbitrated. Followers
// discover fresh snapshots by polling the row's last_update column.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/auctionhq/gavel/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS auction_snapshot (
    id          INT PRIMARY KEY,
    payload     JSONB NOT NULL,
    last_update BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS auction_bids (
    id           UUID PRIMARY KEY,
    payload      JSONB NOT NULL,
    submitted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS auction_heartbeat (
    id        INT PRIMARY KEY,
    beat_ms   BIGINT NOT NULL
);
`

// Transport is a Postgres-backed implementation of syncer.Transport.
type Transport struct {
	pool         *pgxpool.Pool
	pollInterval time.Duration
}

// New connects to the shared store and ensures the schema exists.
func New(ctx context.Context, cfg Config, pollInterval time.Duration) (*Transport, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Transport{pool: pool, pollInterval: pollInterval}, nil
}

// PublishSnapshot overwrites the single snapshot row.
func (t *Transport) PublishSnapshot(ctx context.Context, snap models.SyncSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = t.pool.Exec(ctx, `
		INSERT INTO auction_snapshot (id, payload, last_update) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET payload = $1, last_update = $2`,
		payload, snap.LastUpdate)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// SubscribeSnapshots polls the snapshot row and delivers it whenever
// last_update advances past what was already delivered.
func (t *Transport) SubscribeSnapshots(ctx context.Context) (<-chan models.SyncSnapshot, error) {
	ch := make(chan models.SyncSnapshot, 16)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(t.pollInterval)
		defer ticker.Stop()

		var delivered int64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap, err := t.readSnapshot(ctx)
				if err != nil {
					if !errors.Is(err, pgx.ErrNoRows) {
						log.Error().Err(err).Msg("failed to poll snapshot row")
					}
					continue
				}
				if snap.LastUpdate <= delivered {
					continue
				}
				delivered = snap.LastUpdate
				select {
				case ch <- snap:
				default:
					log.Debug().Msg("snapshot channel full, dropping delivery")
				}
			}
		}
	}()
	return ch, nil
}

func (t *Transport) readSnapshot(ctx context.Context) (models.SyncSnapshot, error) {
	var payload []byte
	err := t.pool.QueryRow(ctx, `SELECT payload FROM auction_snapshot WHERE id = 1`).Scan(&payload)
	if err != nil {
		return models.SyncSnapshot{}, err
	}
	var snap models.SyncSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return models.SyncSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// SubmitBid appends a bid row. Retransmitted events hit the primary key
// and are ignored; the arbiter's ring would absorb them anyway.
func (t *Transport) SubmitBid(ctx context.Context, ev models.BidEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal bid: %w", err)
	}
	_, err = t.pool.Exec(ctx, `
		INSERT INTO auction_bids (id, payload) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`,
		ev.ID, payload)
	if err != nil {
		return fmt.Errorf("write bid: %w", err)
	}
	return nil
}

// PollBids returns all bid rows not yet pruned, oldest first.
func (t *Transport) PollBids(ctx context.Context) ([]models.BidEvent, error) {
	rows, err := t.pool.Query(ctx, `SELECT payload FROM auction_bids ORDER BY submitted_at`)
	if err != nil {
		return nil, fmt.Errorf("query bids: %w", err)
	}
	defer rows.Close()

	var out []models.BidEvent
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan bid row: %w", err)
		}
		var ev models.BidEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Error().Err(err).Msg("skipping undecodable bid row")
			continue
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// PruneBids deletes processed bid rows.
func (t *Transport) PruneBids(ctx context.Context, processed []uuid.UUID) error {
	if len(processed) == 0 {
		return nil
	}
	_, err := t.pool.Exec(ctx, `DELETE FROM auction_bids WHERE id = ANY($1)`, processed)
	if err != nil {
		return fmt.Errorf("prune bids: %w", err)
	}
	return nil
}

// PublishHeartbeat overwrites the heartbeat row.
func (t *Transport) PublishHeartbeat(ctx context.Context, ts time.Time) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO auction_heartbeat (id, beat_ms) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET beat_ms = $1`,
		ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return nil
}

// LastHeartbeat reads the heartbeat row, zero time if absent.
func (t *Transport) LastHeartbeat(ctx context.Context) (time.Time, error) {
	var ms int64
	err := t.pool.QueryRow(ctx, `SELECT beat_ms FROM auction_heartbeat WHERE id = 1`).Scan(&ms)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read heartbeat: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// Close releases the connection pool.
func (t *Transport) Close() error {
	t.pool.Close()
	return nil
}
