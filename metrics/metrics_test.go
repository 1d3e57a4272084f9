package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorder(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewPrometheus(registry)
	r := recorder.(*prometheusRecorder)

	recorder.Request("waiting")
	recorder.Request("waiting")
	recorder.Request("matched")
	recorder.StaleEntriesDiscarded("blitz:5+0", 3)
	recorder.StaleEntriesDiscarded("blitz:5+0", 0)
	recorder.MatchesExpired(1)
	recorder.GameCreation(20*time.Millisecond, nil)
	recorder.GameCreation(time.Second, errors.New("down"))
	recorder.QueueDepth("blitz:5+0", 4)
	recorder.QueueDepth("blitz:5+0", 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("waiting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("matched")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.stale.WithLabelValues("blitz:5+0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.expired))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.creations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.creations.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.waitingPlayer.WithLabelValues("blitz:5+0")), "Depth is a gauge, the last value wins")
	assert.Equal(t, 1, testutil.CollectAndCount(r.creationTime), "One histogram series")
}

func TestNewPrometheus_TwiceOnOneRegistryPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewPrometheus(registry)

	assert.Panics(t, func() { NewPrometheus(registry) }, "Collectors must not be registered twice")
}

func TestNoop(t *testing.T) {
	recorder := Noop()

	assert.NotPanics(t, func() {
		recorder.Request("matched")
		recorder.StaleEntriesDiscarded("q", 1)
		recorder.MatchesExpired(1)
		recorder.GameCreation(time.Second, nil)
		recorder.QueueDepth("q", 1)
	})
}
