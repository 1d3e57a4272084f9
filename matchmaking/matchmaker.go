package matchmaking

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/alejzeis/chess-matchmaker/metrics"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultQueueStale is how long a waiting player may go without calling again before their entry is dropped
	DefaultQueueStale = 15 * time.Second
	// DefaultMatchStale is how long a match is kept for players who have not yet picked it up
	DefaultMatchStale = 60 * time.Second
)

// ErrClosed is carried by the Failed response returned after Close
var ErrClosed = errors.New("matchmaker closed")

// GameCreator durably creates a game for two players and returns its identifier
type GameCreator interface {
	CreateGame(ctx context.Context, white, black PlayerID) (GameID, error)
}

// Notifier is told about every match right after it is published. It must not block.
type Notifier interface {
	MatchCreated(m Matched)
}

// Request is one pairing attempt. A nil PlayerID means the caller did not supply one.
type Request struct {
	PlayerID    *PlayerID
	Mode        string
	TimeControl string
}

// Stats is a point-in-time view of the matchmaker, for status reporting
type Stats struct {
	Waiting     map[QueueKey]int
	LiveMatches int
}

// Option configures a Matchmaker
type Option func(*Matchmaker)

// WithQueueStale overrides DefaultQueueStale
func WithQueueStale(d time.Duration) Option {
	return func(mm *Matchmaker) { mm.queueStale = d }
}

// WithMatchStale overrides DefaultMatchStale
func WithMatchStale(d time.Duration) Option {
	return func(mm *Matchmaker) { mm.matchStale = d }
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(mm *Matchmaker) { mm.now = now }
}

// WithMetrics sets the recorder that receives matchmaking events
func WithMetrics(recorder metrics.Recorder) Option {
	return func(mm *Matchmaker) { mm.metrics = recorder }
}

// WithNotifier sets who is told about new matches
func WithNotifier(n Notifier) Option {
	return func(mm *Matchmaker) { mm.notifier = n }
}

// Matchmaker pairs waiting players into games. It owns all queue and match state; create one per process with New
// and share it between request handlers.
type Matchmaker struct {
	creator  GameCreator
	notifier Notifier
	metrics  metrics.Recorder

	queueStale time.Duration
	matchStale time.Duration
	now        func() time.Time

	queues  *queueRegistry
	matches *matchRegistry

	closed int32
}

// New creates a Matchmaker that creates games through creator
func New(creator GameCreator, opts ...Option) *Matchmaker {
	mm := &Matchmaker{
		creator:    creator,
		metrics:    metrics.Noop(),
		queueStale: DefaultQueueStale,
		matchStale: DefaultMatchStale,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(mm)
	}

	mm.queues = newQueueRegistry(mm.now, mm.queueStale)
	mm.matches = newMatchRegistry()
	return mm
}

// FindMatch either returns the match the player was placed into, pairs them with the longest waiting fresh player
// in their queue, or queues them. It never retries; callers are expected to call again.
func (mm *Matchmaker) FindMatch(ctx context.Context, req Request) Response {
	resp := mm.findMatch(ctx, req)
	mm.metrics.Request(resp.Outcome())
	return resp
}

func (mm *Matchmaker) findMatch(ctx context.Context, req Request) Response {
	if req.PlayerID == nil {
		return InvalidRequest{Reason: MessageMissingPlayer}
	}
	if atomic.LoadInt32(&mm.closed) == 1 {
		return Failed{Err: ErrClosed}
	}
	player := *req.PlayerID

	if resp, ok := mm.resolveExisting(player); ok {
		return resp
	}

	key := NormalizeQueueKey(req.Mode, req.TimeControl)
	queue := mm.queues.getOrCreate(key)

	// Keeps a player that is still waiting from going stale while it waits for the section
	queue.touch(player)

	queue.section.Lock()
	defer queue.section.Unlock()
	defer func() { mm.metrics.QueueDepth(string(key), queue.len()) }()

	// Someone else may have matched this player while we waited for the section
	if resp, ok := mm.resolveExisting(player); ok {
		queue.discard(player)
		return resp
	}

	for {
		opponent, stale, found := queue.pollDifferent(player)
		if stale > 0 {
			mm.metrics.StaleEntriesDiscarded(string(key), stale)
			log.WithFields(log.Fields{
				"queue": key,
				"count": stale,
			}).Debug("Dropped stale waiting entries")
		}
		if !found {
			break
		}

		if existing, ok := mm.matches.get(opponent); ok {
			if existing.expired(mm.now(), mm.matchStale) {
				mm.purgeExpired(existing)
			}
			log.WithFields(log.Fields{
				"queue":    key,
				"opponent": opponent,
			}).Debug("Skipping candidate that is already matched")
			continue
		}

		// The player who was already waiting gets white
		white, black := opponent, player

		// A game the service already created must still be delivered if the caller goes away mid-call
		gameID, err := mm.createGame(detach(ctx), white, black)
		if err != nil {
			queue.enqueueOnce(opponent)
			queue.enqueueOnce(player)
			log.WithError(err).WithFields(log.Fields{
				"queue": key,
				"white": white,
				"black": black,
			}).Warn("Failed to create game, both players put back in queue")
			return Failed{Err: err}
		}

		m := newMatch(gameID, white, black, mm.now())
		mm.matches.publish(m)
		queue.discard(player)

		log.WithFields(log.Fields{
			"queue":  key,
			"gameId": gameID,
			"white":  white,
			"black":  black,
		}).Info("Created match")

		resp, _ := m.acknowledge(player)
		if mm.notifier != nil {
			mm.notifier.MatchCreated(resp)
		}
		return resp
	}

	queue.enqueueOnce(player)
	log.WithFields(log.Fields{
		"queue":  key,
		"player": player,
	}).Debug("Player waiting for opponent")
	return Waiting{Queue: key}
}

// resolveExisting answers from the match registry when the player already has a live match. Expired matches are
// purged and reported as not found.
func (mm *Matchmaker) resolveExisting(player PlayerID) (Response, bool) {
	existing, ok := mm.matches.get(player)
	if !ok {
		return nil, false
	}
	if existing.expired(mm.now(), mm.matchStale) {
		mm.purgeExpired(existing)
		return nil, false
	}

	resp, done := existing.acknowledge(player)
	if done {
		mm.matches.purge(existing)
	}
	return resp, true
}

func (mm *Matchmaker) purgeExpired(m *match) {
	mm.matches.purge(m)
	mm.metrics.MatchesExpired(1)
	log.WithFields(log.Fields{
		"gameId": m.gameID,
		"white":  m.white,
		"black":  m.black,
	}).Debug("Purged expired match")
}

func (mm *Matchmaker) createGame(ctx context.Context, white, black PlayerID) (GameID, error) {
	started := time.Now()
	gameID, err := mm.creator.CreateGame(ctx, white, black)
	mm.metrics.GameCreation(time.Since(started), err)
	return gameID, err
}

// Snapshot reports queue depths and the number of live matches
func (mm *Matchmaker) Snapshot() Stats {
	return Stats{
		Waiting:     mm.queues.depths(),
		LiveMatches: mm.matches.live(),
	}
}

// Close stops the matchmaker. Every later FindMatch returns Failed and pending matches are dropped.
func (mm *Matchmaker) Close() {
	if !atomic.CompareAndSwapInt32(&mm.closed, 0, 1) {
		return
	}
	mm.matches.reset()
	log.Info("Matchmaker closed")
}

// detached carries the values of a request context without its deadline or cancellation
type detached struct {
	parent context.Context
}

func detach(ctx context.Context) context.Context {
	return detached{parent: ctx}
}

func (detached) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detached) Done() <-chan struct{} { return nil }
func (detached) Err() error { return nil }
func (d detached) Value(key interface{}) interface{} { return d.parent.Value(key) }
