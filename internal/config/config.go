package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Rules holds the admin-configured auction rule parameters.
type Rules struct {
	MinimumBid         int64 `yaml:"minimum_bid"`
	BidIncrement       int64 `yaml:"bid_increment"`
	MinimumBasePrice   int64 `yaml:"minimum_base_price"`
	MaxUnderAgePlayers int   `yaml:"max_under_age_players"`
	UnderAgeThreshold  int   `yaml:"under_age_threshold"`
	MaxRounds          int   `yaml:"max_rounds"`
}

// Sync holds the timing knobs for the cross-device protocol.
type Sync struct {
	DrainInterval     time.Duration `yaml:"drain_interval"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	PruneInterval     time.Duration `yaml:"prune_interval"`
	PollInterval      time.Duration `yaml:"poll_interval"`
}

// Config is the top-level daemon configuration.
type Config struct {
	HTTPPort      string `yaml:"http_port"`
	Transport     string `yaml:"transport"` // memory | nats | postgres
	SelectionMode string `yaml:"selection_mode"`
	PlayersFile   string `yaml:"players_file"`
	TeamsFile     string `yaml:"teams_file"`
	Rules         Rules  `yaml:"rules"`
	Sync          Sync   `yaml:"sync"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		HTTPPort:      getEnv("PORT", "8080"),
		Transport:     getEnv("TRANSPORT", "memory"),
		SelectionMode: "sequential",
		PlayersFile:   "data/players.json",
		TeamsFile:     "data/teams.json",
		Rules: Rules{
			MinimumBid:         100,
			BidIncrement:       25,
			MinimumBasePrice:   100,
			MaxUnderAgePlayers: getEnvAsInt("MAX_UNDER_AGE_PLAYERS", 3),
			UnderAgeThreshold:  19,
			MaxRounds:          getEnvAsInt("MAX_ROUNDS", 3),
		},
		Sync: Sync{
			DrainInterval:     50 * time.Millisecond,
			HeartbeatInterval: 2 * time.Second,
			PruneInterval:     10 * time.Second,
			PollInterval:      500 * time.Millisecond,
		},
	}
}

// Load reads the YAML config at path, falling back to defaults for any
// field the file leaves unset.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Rules.MinimumBid <= 0 {
		return fmt.Errorf("minimum_bid must be positive, got %d", c.Rules.MinimumBid)
	}
	if c.Rules.BidIncrement <= 0 {
		return fmt.Errorf("bid_increment must be positive, got %d", c.Rules.BidIncrement)
	}
	if c.Rules.MaxRounds <= 0 {
		return fmt.Errorf("max_rounds must be positive, got %d", c.Rules.MaxRounds)
	}
	if c.Sync.DrainInterval <= 0 {
		return fmt.Errorf("drain_interval must be positive, got %s", c.Sync.DrainInterval)
	}
	if c.Sync.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %s", c.Sync.HeartbeatInterval)
	}
	switch c.Transport {
	case "memory", "nats", "postgres":
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	switch c.SelectionMode {
	case "sequential", "random":
	default:
		return fmt.Errorf("unknown selection_mode %q", c.SelectionMode)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
