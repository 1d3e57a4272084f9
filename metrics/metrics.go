package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chess_matchmaker"

// Recorder receives matchmaking events. Implementations must be safe for concurrent use.
type Recorder interface {
	// Request counts one FindMatch call by its outcome label
	Request(outcome string)
	// StaleEntriesDiscarded counts waiting entries dropped because the player stopped polling
	StaleEntriesDiscarded(queue string, count int)
	// MatchesExpired counts matches purged before both players acknowledged
	MatchesExpired(count int)
	// GameCreation observes one call to the game service
	GameCreation(elapsed time.Duration, err error)
	// QueueDepth sets the number of entries currently waiting in a queue
	QueueDepth(queue string, depth int)
}

type prometheusRecorder struct {
	requests      *prometheus.CounterVec
	stale         *prometheus.CounterVec
	expired       prometheus.Counter
	creations     *prometheus.CounterVec
	creationTime  prometheus.Histogram
	waitingPlayer *prometheus.GaugeVec
}

// NewPrometheus registers the matchmaking collectors on registry
func NewPrometheus(registry prometheus.Registerer) Recorder {
	r := &prometheusRecorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "find_requests_total",
			Help:      "Number of find match requests by outcome",
		}, []string{"outcome"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_queue_entries_total",
			Help:      "Number of waiting entries discarded as stale",
		}, []string{"queue"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_matches_total",
			Help:      "Number of matches purged before being fully acknowledged",
		}),
		creations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_creations_total",
			Help:      "Number of game service calls by result",
		}, []string{"result"}),
		creationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_creation_duration_seconds",
			Help:      "Latency of game service calls",
			Buckets:   prometheus.DefBuckets,
		}),
		waitingPlayer: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_players",
			Help:      "Entries currently waiting per queue",
		}, []string{"queue"}),
	}

	registry.MustRegister(r.requests, r.stale, r.expired, r.creations, r.creationTime, r.waitingPlayer)
	return r
}

func (r *prometheusRecorder) Request(outcome string) {
	r.requests.WithLabelValues(outcome).Inc()
}

func (r *prometheusRecorder) StaleEntriesDiscarded(queue string, count int) {
	if count <= 0 {
		return
	}
	r.stale.WithLabelValues(queue).Add(float64(count))
}

func (r *prometheusRecorder) MatchesExpired(count int) {
	if count <= 0 {
		return
	}
	r.expired.Add(float64(count))
}

func (r *prometheusRecorder) GameCreation(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.creations.WithLabelValues(result).Inc()
	r.creationTime.Observe(elapsed.Seconds())
}

func (r *prometheusRecorder) QueueDepth(queue string, depth int) {
	r.waitingPlayer.WithLabelValues(queue).Set(float64(depth))
}

type noop struct{}

// Noop returns a Recorder that discards everything
func Noop() Recorder {
	return noop{}
}

func (noop) Request(string) {}
func (noop) StaleEntriesDiscarded(string, int) {}
func (noop) MatchesExpired(int) {}
func (noop) GameCreation(time.Duration, error) {}
func (noop) QueueDepth(string, int) {}
