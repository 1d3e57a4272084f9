package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// DefaultPath is read when SERVER_CONFIG is not set
const DefaultPath = "server.ini"

// Config holds every setting read from the ini file. Keys missing from the file take their defaults.
type Config struct {
	Server      ServerConfig
	Matchmaking MatchmakingConfig
	GameService GameServiceConfig
	Metrics     MetricsConfig
	Log         LogConfig
	Client      ClientConfig
}

type ServerConfig struct {
	Port int
}

type MatchmakingConfig struct {
	QueueStale time.Duration
	MatchStale time.Duration
}

type GameServiceConfig struct {
	URL        string
	CreatePath string
	// Zero means no timeout beyond the transport's own
	Timeout time.Duration
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type LogConfig struct {
	Level log.Level
}

type ClientConfig struct {
	ServerURL    string
	PollInterval time.Duration
	ErrorBackoff time.Duration
}

// Path returns the configuration file location, honouring SERVER_CONFIG
func Path() string {
	if location := os.Getenv("SERVER_CONFIG"); location != "" {
		return location
	}
	return DefaultPath
}

// Load reads configuration from source, which is anything ini.Load accepts (a file name or raw bytes).
// The source must exist.
func Load(source interface{}) (*Config, error) {
	file, err := ini.Load(source)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return parse(file)
}

// LoadOrDefaults is like Load but a missing file yields the defaults
func LoadOrDefaults(path string) (*Config, error) {
	file, err := ini.LooseLoad(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return parse(file)
}

func parse(file *ini.File) (*Config, error) {
	server := file.Section("server")
	matchmaking := file.Section("matchmaking")
	games := file.Section("gameservice")
	metrics := file.Section("metrics")
	logging := file.Section("log")
	client := file.Section("client")

	cfg := &Config{
		Server: ServerConfig{
			Port: server.Key("port").MustInt(8083),
		},
		Matchmaking: MatchmakingConfig{
			QueueStale: milliseconds(matchmaking.Key("queue_stale_ms").MustInt64(15000)),
			MatchStale: milliseconds(matchmaking.Key("match_stale_ms").MustInt64(60000)),
		},
		GameService: GameServiceConfig{
			URL:        games.Key("url").MustString("http://localhost:8082"),
			CreatePath: games.Key("create_path").MustString("/api/games/create"),
			Timeout:    milliseconds(games.Key("timeout_ms").MustInt64(0)),
		},
		Metrics: MetricsConfig{
			Enabled: metrics.Key("enabled").MustBool(true),
			Path:    metrics.Key("path").MustString("/metrics"),
		},
		Client: ClientConfig{
			ServerURL:    client.Key("server_url").MustString("http://localhost:8083"),
			PollInterval: milliseconds(client.Key("poll_interval_ms").MustInt64(1200)),
			ErrorBackoff: milliseconds(client.Key("error_backoff_ms").MustInt64(2000)),
		},
	}

	level, err := log.ParseLevel(logging.Key("level").MustString("debug"))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg.Log.Level = level

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	case c.Matchmaking.QueueStale <= 0:
		return errors.New("matchmaking queue_stale_ms must be positive")
	case c.Matchmaking.MatchStale <= 0:
		return errors.New("matchmaking match_stale_ms must be positive")
	case c.GameService.Timeout < 0:
		return errors.New("gameservice timeout_ms must not be negative")
	case c.GameService.URL == "":
		return errors.New("gameservice url is required")
	case c.Client.PollInterval <= 0 || c.Client.ErrorBackoff <= 0:
		return errors.New("client poll_interval_ms and error_backoff_ms must be positive")
	}
	return nil
}

func milliseconds(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
