package server

import (
	"sync"

	"github.com/alejzeis/chess-matchmaker/common"
	"github.com/alejzeis/chess-matchmaker/matchmaking"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Pending events per subscriber before new ones are dropped
const subscriberBuffer = 4

// Hub pushes match notifications to players' websocket subscribers. Notifications are hints only: a player still
// has to call find to pick the match up.
type Hub struct {
	mutex       sync.RWMutex
	subscribers map[matchmaking.PlayerID]map[uuid.UUID]*subscriber
	closed      bool
}

// One websocket connection listening for a single player's matches
type subscriber struct {
	id         uuid.UUID
	player     matchmaking.PlayerID
	connection common.EventConnection
	events     chan common.MatchEvent
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{subscribers: make(map[matchmaking.PlayerID]map[uuid.UUID]*subscriber)}
}

// MatchCreated implements matchmaking.Notifier. It never blocks; a subscriber whose buffer is full misses the event.
func (h *Hub) MatchCreated(m matchmaking.Matched) {
	event := common.MatchEvent{
		Type:          common.MatchEventType,
		GameID:        int64(m.GameID),
		WhitePlayerID: int64(m.White),
		BlackPlayerID: int64(m.Black),
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.closed {
		return
	}
	for _, player := range [2]matchmaking.PlayerID{m.White, m.Black} {
		for _, sub := range h.subscribers[player] {
			select {
			case sub.events <- event:
			default:
				log.WithFields(log.Fields{
					"player":     player,
					"subscriber": sub.id,
					"gameId":     m.GameID,
				}).Warn("Dropped match notification, subscriber is not keeping up")
			}
		}
	}
}

// serve subscribes the connection for player and pumps events to it until either side closes. Blocks.
func (h *Hub) serve(player matchmaking.PlayerID, connection common.EventConnection) {
	sub := h.register(player, connection)
	if sub == nil {
		connection.CloseWithMessage("server shutting down")
		return
	}
	defer h.unregister(sub)

	// The client never sends anything meaningful, reading only detects it going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, err := connection.ReadEvent(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-sub.events:
			if !ok {
				connection.CloseWithMessage("server shutting down")
				return
			}
			if err := connection.WriteEvent(event); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"player":     player,
					"subscriber": sub.id,
				}).Warn("Failed to write match notification")
				connection.Close()
				return
			}
		case <-gone:
			connection.Close()
			return
		}
	}
}

func (h *Hub) register(player matchmaking.PlayerID, connection common.EventConnection) *subscriber {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return nil
	}

	sub := &subscriber{
		id:         uuid.New(),
		player:     player,
		connection: connection,
		events:     make(chan common.MatchEvent, subscriberBuffer),
	}
	if h.subscribers[player] == nil {
		h.subscribers[player] = make(map[uuid.UUID]*subscriber)
	}
	h.subscribers[player][sub.id] = sub

	log.WithFields(log.Fields{
		"player":     player,
		"subscriber": sub.id,
		"address":    connection.RemoteAddr(),
	}).Debug("New match notification subscriber")
	return sub
}

func (h *Hub) unregister(sub *subscriber) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	subs := h.subscribers[sub.player]
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(h.subscribers, sub.player)
	}
}

// count returns how many subscribers are listening for player
func (h *Hub) count(player matchmaking.PlayerID) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.subscribers[player])
}

// Close disconnects every subscriber and refuses new ones
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, subs := range h.subscribers {
		for _, sub := range subs {
			close(sub.events)
		}
	}
}
