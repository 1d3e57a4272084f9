package matchmaking

import (
	"sync"
	"time"
)

// PlayerID is the externally supplied identifier of a player
type PlayerID int64

// GameID is the identifier returned by the game service for a created game
type GameID int64

// match is created once per successful pairing. Only pending shrinks after creation.
type match struct {
	gameID    GameID
	white     PlayerID
	black     PlayerID
	createdAt time.Time

	mu      sync.Mutex
	pending map[PlayerID]struct{}
}

func newMatch(gameID GameID, white, black PlayerID, createdAt time.Time) *match {
	return &match{
		gameID:    gameID,
		white:     white,
		black:     black,
		createdAt: createdAt,
		pending: map[PlayerID]struct{}{
			white: {},
			black: {},
		},
	}
}

// acknowledge marks the player as having been told about the match and returns the response they should receive.
// The boolean is true once both players have acknowledged.
func (m *match) acknowledge(player PlayerID) (Matched, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pending, player)
	return m.response(), len(m.pending) == 0
}

func (m *match) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(m.createdAt) > ttl
}

func (m *match) response() Matched {
	return Matched{
		GameID: m.gameID,
		White:  m.white,
		Black:  m.black,
	}
}

// matchRegistry maps each player to the match they were placed into. Both players reference the same match.
type matchRegistry struct {
	mu       sync.RWMutex
	byPlayer map[PlayerID]*match
}

func newMatchRegistry() *matchRegistry {
	return &matchRegistry{byPlayer: make(map[PlayerID]*match)}
}

func (r *matchRegistry) get(player PlayerID) (*match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byPlayer[player]
	return m, ok
}

func (r *matchRegistry) publish(m *match) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byPlayer[m.white] = m
	r.byPlayer[m.black] = m
}

// purge removes both player keys, but only where they still point at m. A key that was already re-published
// for a newer match is left alone.
func (r *matchRegistry) purge(m *match) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, player := range [2]PlayerID{m.white, m.black} {
		if r.byPlayer[player] == m {
			delete(r.byPlayer, player)
		}
	}
}

// live counts distinct matches currently held
func (r *matchRegistry) live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[*match]struct{}, len(r.byPlayer))
	for _, m := range r.byPlayer {
		seen[m] = struct{}{}
	}
	return len(seen)
}

func (r *matchRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byPlayer = make(map[PlayerID]*match)
}
