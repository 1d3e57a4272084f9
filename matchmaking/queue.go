package matchmaking

import (
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMode is used when a request omits the game mode
	DefaultMode = "online"
	// DefaultTimeControl is used when a request omits the time control
	DefaultTimeControl = "DEFAULT"
)

// QueueKey identifies one matchmaking pool, formatted as "mode:TIMECONTROL"
type QueueKey string

// NormalizeQueueKey lower-cases the mode and upper-cases the time control, substituting defaults for blank values.
// Two requests compete for the same pool if and only if they normalize to the same key.
func NormalizeQueueKey(mode, timeControl string) QueueKey {
	m := strings.TrimSpace(mode)
	if m == "" {
		m = DefaultMode
	}
	t := strings.TrimSpace(timeControl)
	if t == "" {
		t = DefaultTimeControl
	}
	return QueueKey(strings.ToLower(m) + ":" + strings.ToUpper(t))
}

// waitingQueue is the FIFO of players waiting for an opponent in one pool.
// section serializes matching attempts for the pool, mu guards the data structures themselves so touch can
// run without entering the matching section.
type waitingQueue struct {
	section sync.Mutex

	mu       sync.Mutex
	order    []PlayerID
	members  map[PlayerID]struct{}
	lastSeen map[PlayerID]time.Time

	now        func() time.Time
	staleAfter time.Duration
}

func newWaitingQueue(now func() time.Time, staleAfter time.Duration) *waitingQueue {
	return &waitingQueue{
		members:    make(map[PlayerID]struct{}),
		lastSeen:   make(map[PlayerID]time.Time),
		now:        now,
		staleAfter: staleAfter,
	}
}

// touch records the current time as the last time the player was seen
func (q *waitingQueue) touch(player PlayerID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.lastSeen[player] = q.now()
}

// enqueueOnce refreshes the player and appends them to the back of the queue unless they are already waiting
func (q *waitingQueue) enqueueOnce(player PlayerID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.lastSeen[player] = q.now()
	if _, waiting := q.members[player]; waiting {
		return
	}
	q.members[player] = struct{}{}
	q.order = append(q.order, player)
}

// pollDifferent pops heads until it finds a fresh player other than requester. Every popped head is forgotten,
// including stale entries and the requester itself. The second return value is the number of stale entries dropped.
func (q *waitingQueue) pollDifferent(requester PlayerID) (PlayerID, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	stale := 0
	for len(q.order) > 0 {
		candidate := q.order[0]
		q.order = q.order[1:]
		delete(q.members, candidate)

		seen, ok := q.lastSeen[candidate]
		delete(q.lastSeen, candidate)
		if !ok || now.Sub(seen) > q.staleAfter {
			stale++
			continue
		}

		if candidate != requester {
			return candidate, stale, true
		}
	}

	q.order = nil
	return 0, stale, false
}

// discard forgets every trace of the player in this queue. Used once the player has been placed into a match.
func (q *waitingQueue) discard(player PlayerID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.lastSeen, player)
	if _, waiting := q.members[player]; !waiting {
		return
	}
	delete(q.members, player)
	for i, p := range q.order {
		if p == player {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

func (q *waitingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.order)
}

func (q *waitingQueue) contains(player PlayerID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, waiting := q.members[player]
	return waiting
}

// queueRegistry owns one waitingQueue per key, created lazily. Queues are never removed.
type queueRegistry struct {
	mu     sync.RWMutex
	queues map[QueueKey]*waitingQueue

	now        func() time.Time
	staleAfter time.Duration
}

func newQueueRegistry(now func() time.Time, staleAfter time.Duration) *queueRegistry {
	return &queueRegistry{
		queues:     make(map[QueueKey]*waitingQueue),
		now:        now,
		staleAfter: staleAfter,
	}
}

func (r *queueRegistry) get(key QueueKey) (*waitingQueue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.queues[key]
	return q, ok
}

func (r *queueRegistry) getOrCreate(key QueueKey) *waitingQueue {
	if q, ok := r.get(key); ok {
		return q
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have created it between the read and write lock
	if q, ok := r.queues[key]; ok {
		return q
	}
	q := newWaitingQueue(r.now, r.staleAfter)
	r.queues[key] = q
	return q
}

// depths returns the number of queued entries per key. Stale entries are counted until a poll drops them.
func (r *queueRegistry) depths() map[QueueKey]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[QueueKey]int, len(r.queues))
	for key, q := range r.queues {
		out[key] = q.len()
	}
	return out
}
