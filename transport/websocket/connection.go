package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/notifier"
)

// connection - one player's socket. Writes come from the read loop and from subscriptions.
type connection struct {
	ws       *websocket.Conn
	playerID string

	writeMu sync.Mutex

	subsMu        sync.Mutex
	subscriptions map[string]*notifier.Subscription
}

func newConnection(ws *websocket.Conn, playerID string) *connection {
	return &connection{
		ws:            ws,
		playerID:      playerID,
		subscriptions: make(map[string]*notifier.Subscription),
	}
}

func (that *connection) send(action string, payload ResponsePayload) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err := that.ws.WriteJSON(outgoing{Action: action, Payload: payload}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// track - returns false when channelID is already forwarded on this connection.
func (that *connection) track(channelID string, sub *notifier.Subscription) bool {
	that.subsMu.Lock()
	defer that.subsMu.Unlock()

	if _, ok := that.subscriptions[channelID]; ok {
		return false
	}

	that.subscriptions[channelID] = sub

	return true
}

func (that *connection) subscribed(channelID string) bool {
	that.subsMu.Lock()
	defer that.subsMu.Unlock()

	_, ok := that.subscriptions[channelID]

	return ok
}

func (that *connection) close() {
	that.subsMu.Lock()
	for channelID, sub := range that.subscriptions {
		_ = sub.Close()
		delete(that.subscriptions, channelID)
	}
	that.subsMu.Unlock()

	_ = that.ws.Close()
}

type outgoing struct {
	Action  string          `json:"action"`
	Payload ResponsePayload `json:"payload"`
}
