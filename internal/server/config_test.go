package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dueljack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "localhost", config.Server.Address)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "info", config.Server.LogLevel)
	require.NoError(t, config.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server {
  address = "0.0.0.0"
  port = 9000
  log_level = "debug"
}

match {
  decks = 4
  cut_card = 130
  decision_timeout_seconds = 20
  reshuffle_between_rounds = true
}

database {
  url = "postgres://localhost/dueljack"
}
`)
	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, "0.0.0.0:9000", config.ListenAddress())
	assert.Equal(t, "debug", config.Server.LogLevel)
	assert.Equal(t, "postgres://localhost/dueljack", config.DatabaseURL())

	// Overrides apply on top of every mode's defaults.
	rules, err := config.Rules("joker")
	require.NoError(t, err)
	assert.Equal(t, 4, rules.Decks)
	assert.Equal(t, 130, rules.CutCard)
	assert.Equal(t, 20*time.Second, rules.DecisionTimeout)
	assert.True(t, rules.ReshuffleBetweenRounds)
	assert.True(t, rules.Jokers, "mode flags survive the overrides")

	_, err = config.Rules("bogus")
	assert.Error(t, err)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeConfig(t, `server { port = "not-a-number" }`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	config.Server.Port = -1
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Match = &MatchConfig{MaxBoxes: 7}
	assert.Error(t, config.Validate(), "overrides must keep the rules valid")
}
