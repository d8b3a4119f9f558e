package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/coinduel/dueljack/internal/game"
)

// Config represents the complete server configuration
type Config struct {
	Server   ServerSettings `hcl:"server,block"`
	Match    *MatchConfig   `hcl:"match,block"`
	Database *DBConfig      `hcl:"database,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address      string `hcl:"address,optional"`
	Port         int    `hcl:"port,optional"`
	LogLevel     string `hcl:"log_level,optional"`
	PollInterval int    `hcl:"poll_interval_ms,optional"`
}

// MatchConfig overrides the per-mode rule defaults. Zero values leave the
// mode's own default in place.
type MatchConfig struct {
	Decks                  int  `hcl:"decks,optional"`
	CutCard                int  `hcl:"cut_card,optional"`
	TurnStake              int  `hcl:"turn_stake,optional"`
	CarryoverBonus         int  `hcl:"carryover_bonus,optional"`
	MaxBoxes               int  `hcl:"max_boxes,optional"`
	MaxRounds              int  `hcl:"max_rounds,optional"`
	ReshuffleBetweenRounds bool `hcl:"reshuffle_between_rounds,optional"`
	DecisionTimeoutSecs    int  `hcl:"decision_timeout_seconds,optional"`
	ResultDelaySecs        int  `hcl:"result_delay_seconds,optional"`
}

// DBConfig selects the persistence backend. An empty URL falls back to the
// DATABASE_URL environment variable; if that is empty too the server runs
// on the in-memory store.
type DBConfig struct {
	URL string `hcl:"url,optional"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:      "localhost",
			Port:         8080,
			LogLevel:     "info",
			PollInterval: 500,
		},
	}
}

// LoadConfig loads server configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.PollInterval == 0 {
		config.Server.PollInterval = 500
	}
	return &config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.PollInterval < 50 {
		return fmt.Errorf("poll interval must be at least 50ms, got %dms", c.Server.PollInterval)
	}
	// Overrides must produce valid rules for every mode they touch.
	for _, mode := range []string{"classic", "manual", "freehand", "joker"} {
		if _, err := c.Rules(mode); err != nil {
			return fmt.Errorf("mode %s: %w", mode, err)
		}
	}
	return nil
}

// Rules builds the effective rules for a game mode: the mode defaults with
// the match block's overrides applied on top.
func (c *Config) Rules(mode string) (game.Rules, error) {
	rules, err := game.ModeRules(mode)
	if err != nil {
		return game.Rules{}, err
	}
	if m := c.Match; m != nil {
		if m.Decks > 0 {
			rules.Decks = m.Decks
		}
		if m.CutCard > 0 {
			rules.CutCard = m.CutCard
		}
		if m.TurnStake > 0 {
			rules.TurnStake = m.TurnStake
		}
		if m.CarryoverBonus > 0 {
			rules.CarryoverBonus = m.CarryoverBonus
		}
		if m.MaxBoxes > 0 {
			rules.MaxBoxes = m.MaxBoxes
		}
		if m.MaxRounds > 0 {
			rules.MaxRounds = m.MaxRounds
		}
		if m.ReshuffleBetweenRounds {
			rules.ReshuffleBetweenRounds = true
		}
		if m.DecisionTimeoutSecs > 0 {
			rules.DecisionTimeout = time.Duration(m.DecisionTimeoutSecs) * time.Second
		}
		if m.ResultDelaySecs > 0 {
			rules.ResultDelay = time.Duration(m.ResultDelaySecs) * time.Second
		}
	}
	if err := rules.Validate(); err != nil {
		return game.Rules{}, err
	}
	return rules, nil
}

// DatabaseURL resolves the persistence backend, preferring the config file
// over the environment.
func (c *Config) DatabaseURL() string {
	if c.Database != nil && c.Database.URL != "" {
		return c.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}

// ListenAddress returns the full listen address
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
