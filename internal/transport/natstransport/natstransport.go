// Package natstransport implements the sync transport over NATS
// subjects for cross-device deployments: one subject overwritten with
// whole-state snapshots, one carrying the bid queue and one carrying
// the desktop heartbeat.
package natstransport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/auctionhq/gavel/internal/models"
)

// Config holds NATS connection settings.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns the default NATS transport configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "gavel.auction",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Transport is a NATS-backed implementation of syncer.Transport.
// Bids delivered to the desktop accumulate in a local inbox until the
// coordinator polls them; nothing is retained on the wire, so pruning
// is a no-op here.
type Transport struct {
	nc     *nats.Conn
	config Config

	mu        sync.Mutex
	inbox     []models.BidEvent
	heartbeat time.Time

	bidSub *nats.Subscription
	hbSub  *nats.Subscription
}

// New connects to NATS and wires the inbound subscriptions.
func New(config Config) (*Transport, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	t := &Transport{nc: nc, config: config}

	t.bidSub, err = nc.Subscribe(t.subject("bids"), func(msg *nats.Msg) {
		var ev models.BidEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Error().Err(err).Msg("failed to decode inbound bid")
			return
		}
		t.mu.Lock()
		t.inbox = append(t.inbox, ev)
		t.mu.Unlock()
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe bids: %w", err)
	}

	t.hbSub, err = nc.Subscribe(t.subject("heartbeat"), func(msg *nats.Msg) {
		var ms int64
		if err := json.Unmarshal(msg.Data, &ms); err != nil {
			log.Error().Err(err).Msg("failed to decode heartbeat")
			return
		}
		t.mu.Lock()
		t.heartbeat = time.UnixMilli(ms)
		t.mu.Unlock()
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe heartbeat: %w", err)
	}

	return t, nil
}

func (t *Transport) subject(kind string) string {
	return fmt.Sprintf("%s.%s", t.config.SubjectPrefix, kind)
}

// PublishSnapshot broadcasts the snapshot document.
func (t *Transport) PublishSnapshot(_ context.Context, snap models.SyncSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return t.nc.Publish(t.subject("snapshot"), data)
}

// SubscribeSnapshots delivers inbound snapshots until ctx ends.
func (t *Transport) SubscribeSnapshots(ctx context.Context) (<-chan models.SyncSnapshot, error) {
	ch := make(chan models.SyncSnapshot, 16)
	sub, err := t.nc.Subscribe(t.subject("snapshot"), func(msg *nats.Msg) {
		var snap models.SyncSnapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			log.Error().Err(err).Msg("failed to decode snapshot")
			return
		}
		select {
		case ch <- snap:
		default:
			log.Debug().Msg("snapshot channel full, dropping delivery")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe snapshots: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("failed to unsubscribe snapshots")
		}
		close(ch)
	}()
	return ch, nil
}

// SubmitBid publishes a bid event onto the bid subject.
func (t *Transport) SubmitBid(_ context.Context, ev models.BidEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal bid: %w", err)
	}
	return t.nc.Publish(t.subject("bids"), data)
}

// PollBids drains the local inbox of delivered bids.
func (t *Transport) PollBids(_ context.Context) ([]models.BidEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.inbox
	t.inbox = nil
	return out, nil
}

// PruneBids is a no-op: polled bids are already removed from the inbox.
func (t *Transport) PruneBids(_ context.Context, _ []uuid.UUID) error {
	return nil
}

// PublishHeartbeat broadcasts the desktop liveness timestamp.
func (t *Transport) PublishHeartbeat(_ context.Context, ts time.Time) error {
	data, err := json.Marshal(ts.UnixMilli())
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}
	return t.nc.Publish(t.subject("heartbeat"), data)
}

// LastHeartbeat returns the most recent heartbeat seen on the wire.
func (t *Transport) LastHeartbeat(_ context.Context) (time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.heartbeat, nil
}

// Close drains and closes the NATS connection.
func (t *Transport) Close() error {
	if t.nc != nil {
		t.nc.Close()
	}
	return nil
}
