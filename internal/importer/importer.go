// Package importer builds the player pool and team list from import
// files. Every record goes through explicit typed construction with
// validated required fields; defaulting rules are documented on the
// constructors.
package importer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/auctionhq/gavel/internal/models"
)

// PlayerRecord is the raw player import shape.
type PlayerRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Age       int    `json:"age"`
	BasePrice int64  `json:"base_price"`
	ImageURL  string `json:"image_url"`
}

// TeamRecord is the raw team import shape.
type TeamRecord struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	LogoURL              string `json:"logo_url"`
	AllocatedAmount      int64  `json:"allocated_amount"`
	TotalPlayerThreshold int    `json:"total_player_threshold"`
}

// NewPlayer validates a player record and constructs the model.
// Defaults: a zero base price falls back to minBasePrice.
func NewPlayer(rec PlayerRecord, minBasePrice int64) (models.Player, error) {
	if rec.ID == "" {
		return models.Player{}, fmt.Errorf("player record missing id (name=%q)", rec.Name)
	}
	if rec.Name == "" {
		return models.Player{}, fmt.Errorf("player %s missing name", rec.ID)
	}
	if rec.Age <= 0 {
		return models.Player{}, fmt.Errorf("player %s has invalid age %d", rec.ID, rec.Age)
	}
	base := rec.BasePrice
	if base == 0 {
		base = minBasePrice
	}
	if base < 0 {
		return models.Player{}, fmt.Errorf("player %s has negative base price %d", rec.ID, rec.BasePrice)
	}
	return models.Player{
		ID:        rec.ID,
		Name:      rec.Name,
		Role:      rec.Role,
		Age:       rec.Age,
		BasePrice: base,
		ImageURL:  rec.ImageURL,
		Status:    models.PlayerStatusAvailable,
	}, nil
}

// NewTeam validates a team record and constructs the model. The
// remaining purse starts at the full allocation.
func NewTeam(rec TeamRecord) (models.Team, error) {
	if rec.ID == "" {
		return models.Team{}, fmt.Errorf("team record missing id (name=%q)", rec.Name)
	}
	if rec.Name == "" {
		return models.Team{}, fmt.Errorf("team %s missing name", rec.ID)
	}
	if rec.AllocatedAmount <= 0 {
		return models.Team{}, fmt.Errorf("team %s has non-positive purse %d", rec.ID, rec.AllocatedAmount)
	}
	if rec.TotalPlayerThreshold <= 0 {
		return models.Team{}, fmt.Errorf("team %s has non-positive roster capacity %d", rec.ID, rec.TotalPlayerThreshold)
	}
	return models.Team{
		ID:             rec.ID,
		Name:           rec.Name,
		LogoURL:        rec.LogoURL,
		AllocatedPurse: rec.AllocatedAmount,
		RemainingPurse: rec.AllocatedAmount,
		RosterCapacity: rec.TotalPlayerThreshold,
	}, nil
}

// LoadPlayers reads and validates a player import file. Duplicate IDs
// are rejected.
func LoadPlayers(path string, minBasePrice int64) ([]models.Player, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read players file: %w", err)
	}
	var records []PlayerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse players file: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	players := make([]models.Player, 0, len(records))
	for _, rec := range records {
		p, err := NewPlayer(rec, minBasePrice)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate player id %s", p.ID)
		}
		seen[p.ID] = struct{}{}
		players = append(players, p)
	}

	log.Info().Int("players", len(players)).Str("file", path).Msg("player pool imported")
	return players, nil
}

// LoadTeams reads and validates a team import file. Duplicate IDs are
// rejected.
func LoadTeams(path string) ([]models.Team, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read teams file: %w", err)
	}
	var records []TeamRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse teams file: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	teams := make([]models.Team, 0, len(records))
	for _, rec := range records {
		t, err := NewTeam(rec)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("duplicate team id %s", t.ID)
		}
		seen[t.ID] = struct{}{}
		teams = append(teams, t)
	}

	log.Info().Int("teams", len(teams)).Str("file", path).Msg("teams imported")
	return teams, nil
}
