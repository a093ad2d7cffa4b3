// gavel-mobile is a follower-role client: it mirrors auction state from
// the shared transport and submits bids typed on stdin. It never
// mutates auction state itself.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/auctionhq/gavel/internal/config"
	"github.com/auctionhq/gavel/internal/models"
	"github.com/auctionhq/gavel/internal/syncer"
	"github.com/auctionhq/gavel/internal/transport/natstransport"
	"github.com/auctionhq/gavel/internal/transport/pgstore"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	teamID := flag.String("team", "", "team this device bids for (required)")
	clientID := flag.String("client", "", "device identifier (defaults to a fresh UUID)")
	transportKind := flag.String("transport", getEnv("TRANSPORT", "nats"), "sync transport: nats | postgres")
	flag.Parse()

	if *teamID == "" {
		log.Fatal().Msg("-team is required")
	}
	if *clientID == "" {
		*clientID = uuid.New().String()
	}

	cfg := config.Default()

	transport, err := buildTransport(*transportKind, cfg.Sync.PollInterval)
	if err != nil {
		log.Fatal().Err(err).Str("transport", *transportKind).Msg("failed to build transport")
	}
	defer transport.Close()

	clock := clockwork.NewRealClock()
	follower := syncer.NewFollower(transport, *teamID, *clientID, cfg.Sync.HeartbeatInterval, clock)
	follower.Subscribe(func(snap models.SyncSnapshot) {
		ev := log.Info().
			Int64("current_bid", snap.CurrentBid).
			Int("round", snap.Round).
			Bool("active", snap.AuctionActive)
		if snap.CurrentPlayer != nil {
			ev = ev.Str("player", snap.CurrentPlayer.Name)
		}
		if snap.SelectedTeam != nil {
			ev = ev.Str("leading_team", snap.SelectedTeam.Name)
		}
		ev.Msg("auction state updated")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := follower.Run(ctx); err != nil {
			log.Error().Err(err).Msg("follower loop failed")
		}
	}()

	// Watch desktop liveness; warn the operator when the authoritative
	// role goes quiet.
	go func() {
		ticker := time.NewTicker(cfg.Sync.HeartbeatInterval)
		defer ticker.Stop()
		live := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := follower.DesktopLive(ctx)
				if now != live {
					if now {
						log.Info().Msg("desktop is back online")
					} else {
						log.Warn().Msg("desktop heartbeat lost, bids will queue until it returns")
					}
					live = now
				}
			}
		}
	}()

	go readCommands(ctx, follower)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	cancel()
}

// readCommands accepts bid commands on stdin:
//
//	raise <amount>   submit a raise at the given amount
//	stop             withdraw from raises on the current player
func readCommands(ctx context.Context, follower *syncer.Follower) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "raise":
			if len(fields) != 2 {
				fmt.Fprintln(os.Stderr, "usage: raise <amount>")
				continue
			}
			amount, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil || amount <= 0 {
				fmt.Fprintln(os.Stderr, "amount must be a positive integer")
				continue
			}
			if err := follower.SubmitRaise(ctx, amount); err != nil {
				log.Error().Err(err).Int64("amount", amount).Msg("failed to submit raise")
			}
		case "stop":
			if err := follower.SubmitStop(ctx); err != nil {
				log.Error().Err(err).Msg("failed to submit stop")
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q (want raise|stop)\n", fields[0])
		}
	}
}

func buildTransport(kind string, pollInterval time.Duration) (syncer.Transport, error) {
	switch kind {
	case "nats":
		natsCfg := natstransport.DefaultConfig()
		if url := os.Getenv("NATS_URL"); url != "" {
			natsCfg.URL = url
		}
		return natstransport.New(natsCfg)
	case "postgres":
		return pgstore.New(context.Background(), pgstore.NewConfigFromEnv(), pollInterval)
	default:
		return nil, fmt.Errorf("unsupported transport %q for a follower device", kind)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
