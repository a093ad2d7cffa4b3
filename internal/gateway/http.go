package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/auctionhq/gavel/internal/auditlog"
	"github.com/auctionhq/gavel/internal/models"
)

// StateProvider returns the current snapshot for the HTTP state endpoint.
type StateProvider func() models.SyncSnapshot

// AuctionAdmin is the operator control surface exposed under /admin.
// The desktop coordinator implements it.
type AuctionAdmin interface {
	SelectPlayer(playerID string) error
	SelectNext() (*models.Player, error)
	CommitCurrent() error
	MarkUnsold() error
	Undo() error
	NextRound() error
	Pause(reason string)
	Resume()
	Reset()
}

// NewHTTPServer assembles the operator- and device-facing HTTP server:
// WebSocket upgrades, a snapshot endpoint for polling clients, the
// operator admin surface, the sold-player CSV export and the bid audit
// trail.
func NewHTTPServer(port string, cm *ConnectionManager, state StateProvider, audit *auditlog.Log, admin AuctionAdmin) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		teamID := r.URL.Query().Get("team_id")
		clientID := r.URL.Query().Get("client_id")
		if teamID == "" || clientID == "" {
			http.Error(w, "team_id and client_id are required", http.StatusBadRequest)
			return
		}
		if err := cm.UpgradeConnection(w, r, teamID, clientID); err != nil {
			log.Error().Err(err).Msg("websocket upgrade failed")
		}
	})

	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state()); err != nil {
			log.Error().Err(err).Msg("failed to encode state response")
		}
	})

	mux.HandleFunc("/export/sold.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="sold_players.csv"`)
		if err := audit.WriteSoldCSV(w); err != nil {
			log.Error().Err(err).Msg("failed to write sold-player export")
		}
	})

	mux.HandleFunc("/audit", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(audit.Decisions()); err != nil {
			log.Error().Err(err).Msg("failed to encode audit response")
		}
	})

	setupAdminRoutes(mux, admin, state)
	setupHealthCheck(mux)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func setupAdminRoutes(mux *http.ServeMux, admin AuctionAdmin, state StateProvider) {
	do := func(name string, fn func(r *http.Request) error) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "POST required", http.StatusMethodNotAllowed)
				return
			}
			if err := fn(r); err != nil {
				log.Warn().Err(err).Str("op", name).Msg("admin operation rejected")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(state()); err != nil {
				log.Error().Err(err).Str("op", name).Msg("failed to encode admin response")
			}
		}
	}

	mux.HandleFunc("/admin/select", do("select", func(r *http.Request) error {
		playerID := r.URL.Query().Get("player_id")
		if playerID == "" {
			return fmt.Errorf("player_id is required")
		}
		return admin.SelectPlayer(playerID)
	}))
	mux.HandleFunc("/admin/next", do("next", func(*http.Request) error {
		_, err := admin.SelectNext()
		return err
	}))
	mux.HandleFunc("/admin/commit", do("commit", func(*http.Request) error {
		return admin.CommitCurrent()
	}))
	mux.HandleFunc("/admin/unsold", do("unsold", func(*http.Request) error {
		return admin.MarkUnsold()
	}))
	mux.HandleFunc("/admin/undo", do("undo", func(*http.Request) error {
		return admin.Undo()
	}))
	mux.HandleFunc("/admin/round", do("round", func(*http.Request) error {
		return admin.NextRound()
	}))
	mux.HandleFunc("/admin/pause", do("pause", func(r *http.Request) error {
		admin.Pause(r.URL.Query().Get("reason"))
		return nil
	}))
	mux.HandleFunc("/admin/resume", do("resume", func(*http.Request) error {
		admin.Resume()
		return nil
	}))
	mux.HandleFunc("/admin/reset", do("reset", func(*http.Request) error {
		admin.Reset()
		return nil
	}))
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
