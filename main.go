package main

import (
	"os"

	"github.com/alejzeis/chess-matchmaker/client"
	"github.com/alejzeis/chess-matchmaker/common"
	"github.com/alejzeis/chess-matchmaker/config"
	"github.com/alejzeis/chess-matchmaker/gameclient"
	"github.com/alejzeis/chess-matchmaker/matchmaking"
	"github.com/alejzeis/chess-matchmaker/metrics"
	"github.com/alejzeis/chess-matchmaker/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetLevel(log.DebugLevel)

	if len(os.Args) > 1 && os.Args[1] == "-server" {
		log.WithFields(log.Fields{
			"software": common.SoftwareName,
			"version":  common.SoftwareVersion,
			"mode":     "server",
		}).Info("Starting...")

		cfg := loadConfig(true)
		log.SetLevel(cfg.Log.Level)

		runServer(cfg)
	} else {
		log.WithFields(log.Fields{
			"software": common.SoftwareName,
			"version":  common.SoftwareVersion,
			"mode":     "client",
		}).Info("Starting...")

		cfg := loadConfig(false)
		log.SetLevel(cfg.Log.Level)

		client.RunClient(cfg.Client)
	}
}

func runServer(cfg *config.Config) {
	var registry *prometheus.Registry
	recorder := metrics.Noop()
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheus(registry)
	}

	hub := server.NewHub()
	games := gameclient.New(cfg.GameService.URL, cfg.GameService.CreatePath, cfg.GameService.Timeout)
	mm := matchmaking.New(games,
		matchmaking.WithQueueStale(cfg.Matchmaking.QueueStale),
		matchmaking.WithMatchStale(cfg.Matchmaking.MatchStale),
		matchmaking.WithMetrics(recorder),
		matchmaking.WithNotifier(hub),
	)

	log.WithFields(log.Fields{
		"gameService": cfg.GameService.URL,
		"queueStale":  cfg.Matchmaking.QueueStale,
		"matchStale":  cfg.Matchmaking.MatchStale,
	}).Info("Matchmaker ready")

	server.StartControlServer(server.NewServer(cfg, mm, hub, registry))
}

// The server requires its configuration file, the client falls back to defaults
func loadConfig(required bool) *config.Config {
	configLocation := config.Path()

	var cfg *config.Config
	var err error
	if required {
		cfg, err = config.Load(configLocation)
	} else {
		cfg, err = config.LoadOrDefaults(configLocation)
	}
	if err != nil {
		log.WithField("config", configLocation).WithError(err).Error("Failed to load configuration file.")
		panic(err)
	}

	return cfg
}
