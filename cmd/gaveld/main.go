package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/auctionhq/gavel/internal/arbiter"
	"github.com/auctionhq/gavel/internal/auction"
	"github.com/auctionhq/gavel/internal/auction/events"
	"github.com/auctionhq/gavel/internal/auditlog"
	"github.com/auctionhq/gavel/internal/config"
	"github.com/auctionhq/gavel/internal/gateway"
	"github.com/auctionhq/gavel/internal/importer"
	"github.com/auctionhq/gavel/internal/ledger"
	"github.com/auctionhq/gavel/internal/models"
	"github.com/auctionhq/gavel/internal/syncer"
	"github.com/auctionhq/gavel/internal/transport/memtransport"
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

	configPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
		cfg = loaded
	}

	players, err := importer.LoadPlayers(cfg.PlayersFile, cfg.Rules.MinimumBasePrice)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to import players")
	}
	teams, err := importer.LoadTeams(cfg.TeamsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to import teams")
	}

	teamLedger := ledger.New(teams)
	engine := auction.NewEngine(players, teamLedger, cfg.Rules, auction.SelectionMode(cfg.SelectionMode))

	transport, err := buildTransport(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("transport", cfg.Transport).Msg("failed to build transport")
	}
	defer transport.Close()

	clock := clockwork.NewRealClock()
	desktop := syncer.NewDesktop(engine, transport, cfg.Sync, clock,
		arbiter.WithRingSize(arbiter.DefaultRingSize))

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), desktop.Submit)

	audit := auditlog.New()
	desktop.Queue().Subscribe(func(dec arbiter.Decision) {
		audit.RecordDecision(auditlog.Decision{
			BidID:     dec.Event.ID.String(),
			TeamID:    dec.Event.TeamID,
			PlayerID:  dec.Event.PlayerID,
			Amount:    dec.Event.Amount,
			Kind:      dec.Event.Kind,
			Origin:    dec.Event.Origin,
			Outcome:   dec.Event.Outcome,
			Reason:    dec.Event.Reason,
			DecidedAt: clock.Now(),
		})
		broadcastDecision(cm, teamLedger, dec, clock.Now())
	})
	desktop.OnSnapshot(func(snap models.SyncSnapshot) {
		msg, err := gateway.NewSnapshotMessage(snap)
		if err != nil {
			log.Error().Err(err).Msg("failed to build snapshot broadcast")
			return
		}
		cm.Broadcast(msg)
	})
	engine.Subscribe(func(t events.EventType, payload any) {
		switch t {
		case events.EventTypePlayerSold:
			if p, ok := payload.(events.PlayerSoldPayload); ok {
				record := auction.SoldRecord{
					PlayerID:   p.PlayerID,
					PlayerName: p.PlayerName,
					TeamID:     p.TeamID,
					TeamName:   p.TeamName,
					Amount:     p.Amount,
					Round:      p.Round,
					SoldAt:     p.SoldAt,
				}
				if pl, ok := engine.Player(p.PlayerID); ok {
					record.Role = pl.Role
				}
				audit.RecordSale(record)
			}
		case events.EventTypeSaleUndone:
			if p, ok := payload.(events.SaleUndonePayload); ok && p.WasSold {
				audit.DropLastSale(p.PlayerID)
			}
		}
		msg, err := gateway.NewEventMessage(string(t), payload)
		if err != nil {
			log.Error().Err(err).Msg("failed to build event broadcast")
			return
		}
		cm.Broadcast(msg)
	})

	server := gateway.NewHTTPServer(cfg.HTTPPort, cm, desktop.CurrentSnapshot, audit, desktop)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go cm.Start(ctx)

	go func() {
		if err := desktop.Run(ctx); err != nil {
			log.Error().Err(err).Msg("desktop coordinator failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("gateway server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("gateway server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("gateway server shutdown failed")
	}
	cancel()

	log.Info().Msg("gaveld shutdown complete")
}

// broadcastDecision tells connected devices how each bid was arbitrated.
func broadcastDecision(cm *gateway.ConnectionManager, teams *ledger.TeamLedger, dec arbiter.Decision, now time.Time) {
	ev := dec.Event

	var (
		typ     events.EventType
		payload any
	)
	switch {
	case ev.Kind == models.BidKindStop:
		typ = events.EventTypeBidStopped
		payload = events.BidStoppedPayload{
			TeamID:    ev.TeamID,
			PlayerID:  ev.PlayerID,
			StoppedAt: now,
		}
	case ev.Outcome == models.BidOutcomeAccepted:
		teamName := ""
		if t, ok := teams.Team(ev.TeamID); ok {
			teamName = t.Name
		}
		typ = events.EventTypeBidAccepted
		payload = events.BidAcceptedPayload{
			BidID:       ev.ID.String(),
			TeamID:      ev.TeamID,
			TeamName:    teamName,
			PlayerID:    ev.PlayerID,
			Amount:      ev.Amount,
			PreviousBid: dec.PreviousBid,
			AcceptedAt:  now,
		}
	default:
		ruleID := ""
		if failure, ok := dec.Results.FirstFailure(); ok {
			ruleID = string(failure.RuleID)
		}
		typ = events.EventTypeBidRejected
		payload = events.BidRejectedPayload{
			BidID:      ev.ID.String(),
			TeamID:     ev.TeamID,
			PlayerID:   ev.PlayerID,
			Amount:     ev.Amount,
			RuleID:     ruleID,
			Reason:     ev.Reason,
			RejectedAt: now,
		}
	}

	msg, err := gateway.NewEventMessage(string(typ), payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to build decision broadcast")
		return
	}
	cm.Broadcast(msg)
}

func buildTransport(cfg config.Config) (syncer.Transport, error) {
	switch cfg.Transport {
	case "nats":
		natsCfg := natstransport.DefaultConfig()
		if url := os.Getenv("NATS_URL"); url != "" {
			natsCfg.URL = url
		}
		return natstransport.New(natsCfg)
	case "postgres":
		return pgstore.New(context.Background(), pgstore.NewConfigFromEnv(), cfg.Sync.PollInterval)
	default:
		return memtransport.New(), nil
	}
}
