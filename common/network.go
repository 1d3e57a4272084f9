package common

import (
	"errors"
	"net"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when closing a connection twice
var ErrConnectionClosed = errors.New("connection already closed")

// EventConnection is a connection carrying MatchEvents as JSON messages.
// Abstracted so the notification hub can be tested without a real socket.
type EventConnection interface {
	// Reads an event, blocking
	ReadEvent() (MatchEvent, error)
	// Sends an event
	WriteEvent(event MatchEvent) error
	// Sends a closing message and closes the connection
	CloseWithMessage(msg string) error
	// Closes the underlying socket
	Close() error
	// Determine if the connection has been closed or not
	IsClosed() bool
	RemoteAddr() net.Addr
}

// WebsocketEventConnection implements EventConnection over a gorilla websocket
type WebsocketEventConnection struct {
	socket *websocket.Conn

	writeMutex    sync.Mutex
	isClosedMutex sync.RWMutex
	closed        bool
}

// NewWebsocketEventConnection wraps an already upgraded or dialed websocket
func NewWebsocketEventConnection(socket *websocket.Conn) *WebsocketEventConnection {
	return &WebsocketEventConnection{socket: socket}
}

// DialEventConnection connects to a notifications websocket at address (ws:// or wss://)
func DialEventConnection(address string) (*WebsocketEventConnection, error) {
	webConn, _, err := websocket.DefaultDialer.Dial(address, nil)
	if err != nil {
		return nil, err
	}
	return NewWebsocketEventConnection(webConn), nil
}

func (connection *WebsocketEventConnection) ReadEvent() (MatchEvent, error) {
	var event MatchEvent
	err := connection.socket.ReadJSON(&event)
	return event, err
}

func (connection *WebsocketEventConnection) WriteEvent(event MatchEvent) error {
	connection.writeMutex.Lock()
	defer connection.writeMutex.Unlock()

	return connection.socket.WriteJSON(event)
}

func (connection *WebsocketEventConnection) CloseWithMessage(msg string) error {
	connection.writeMutex.Lock()
	err := connection.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, msg))
	connection.writeMutex.Unlock()
	if err != nil {
		connection.Close()
		return err
	}
	return connection.Close()
}

func (connection *WebsocketEventConnection) Close() error {
	connection.isClosedMutex.Lock()
	defer connection.isClosedMutex.Unlock()

	if connection.closed {
		return ErrConnectionClosed
	}
	connection.closed = true
	return connection.socket.Close()
}

func (connection *WebsocketEventConnection) IsClosed() bool {
	connection.isClosedMutex.RLock()
	defer connection.isClosedMutex.RUnlock()

	return connection.closed
}

func (connection *WebsocketEventConnection) RemoteAddr() net.Addr {
	return connection.socket.RemoteAddr()
}
