package config

import (
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, 8083, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Matchmaking.QueueStale)
	assert.Equal(t, 60*time.Second, cfg.Matchmaking.MatchStale)
	assert.Equal(t, "http://localhost:8082", cfg.GameService.URL)
	assert.Equal(t, "/api/games/create", cfg.GameService.CreatePath)
	assert.Zero(t, cfg.GameService.Timeout, "No timeout unless configured")
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, log.DebugLevel, cfg.Log.Level)
	assert.Equal(t, 1200*time.Millisecond, cfg.Client.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Client.ErrorBackoff)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load([]byte(`
[server]
port = 9000

[matchmaking]
queue_stale_ms = 500
match_stale_ms = 1000

[gameservice]
url = http://games:8082
timeout_ms = 2500

[metrics]
enabled = false

[log]
level = warn
`))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Matchmaking.QueueStale)
	assert.Equal(t, time.Second, cfg.Matchmaking.MatchStale)
	assert.Equal(t, "http://games:8082", cfg.GameService.URL)
	assert.Equal(t, 2500*time.Millisecond, cfg.GameService.Timeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, log.WarnLevel, cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	invalid := map[string]string{
		"bad log level":       "[log]\nlevel = chatty\n",
		"zero queue stale":    "[matchmaking]\nqueue_stale_ms = 0\n",
		"negative match ttl":  "[matchmaking]\nmatch_stale_ms = -5\n",
		"port out of range":   "[server]\nport = 70000\n",
		"negative timeout":    "[gameservice]\ntimeout_ms = -1\n",
		"zero client backoff": "[client]\nerror_backoff_ms = 0\n",
	}
	for name, body := range invalid {
		_, err := Load([]byte(body))
		assert.Error(t, err, name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.ini")

	_, err := Load(missing)
	assert.Error(t, err, "The server requires its configuration file")

	cfg, err := LoadOrDefaults(missing)
	require.NoError(t, err, "The client falls back to defaults")
	assert.Equal(t, "http://localhost:8083", cfg.Client.ServerURL)
}

func TestPath(t *testing.T) {
	t.Setenv("SERVER_CONFIG", "")
	assert.Equal(t, DefaultPath, Path())

	t.Setenv("SERVER_CONFIG", "/etc/matchmaker.ini")
	assert.Equal(t, "/etc/matchmaker.ini", Path())
}
