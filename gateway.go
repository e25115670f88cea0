/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Gateway is the transport boundary. Sessions address members only by
// logical room codes and connection identities, never by socket handles.
type Gateway interface {
	BroadcastToRoom(roomCode, event string, payload any)
	SendToConnection(connID, event string, payload any)
	JoinGroup(connID, roomCode string)
	LeaveGroup(connID, roomCode string)
	DropGroup(roomCode string)
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

type wsClient struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

// wsHub implements Gateway on top of gorilla/websocket. Groups are plain
// connection-id sets per room code; the hub knows nothing about game state.
type wsHub struct {
	cfg *Config

	mu     sync.RWMutex
	conns  map[string]*wsClient
	groups map[string]map[string]struct{}
}

// newInboundLimiter caps inbound events per connection; the burst covers
// the initial create/join exchange.
func newInboundLimiter() *rate.Limiter {
	return rate.NewLimiter(5, 10)
}

func newHub(cfg *Config) *wsHub {
	return &wsHub{
		cfg:    cfg,
		conns:  make(map[string]*wsClient),
		groups: make(map[string]map[string]struct{}),
	}
}

func marshalEvent(event string, payload any) []byte {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil
	}

	data, err := json.Marshal(Envelope{Type: event, Payload: body})
	if err != nil {
		return nil
	}

	return data
}

func (h *wsHub) BroadcastToRoom(roomCode, event string, payload any) {
	data := marshalEvent(event, payload)
	if data == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID := range h.groups[roomCode] {
		client, ok := h.conns[connID]
		if !ok {
			continue
		}

		select {
		case client.send <- data:
		default:
			// Slow consumer, drop the message.
		}
	}
}

func (h *wsHub) SendToConnection(connID, event string, payload any) {
	data := marshalEvent(event, payload)
	if data == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.conns[connID]
	if !ok {
		return
	}

	select {
	case client.send <- data:
	default:
	}
}

func (h *wsHub) JoinGroup(connID, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.groups[roomCode] == nil {
		h.groups[roomCode] = make(map[string]struct{})
	}
	h.groups[roomCode][connID] = struct{}{}
}

func (h *wsHub) LeaveGroup(connID, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.groups[roomCode], connID)
	if len(h.groups[roomCode]) == 0 {
		delete(h.groups, roomCode)
	}
}

func (h *wsHub) DropGroup(roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.groups, roomCode)
}

func (h *wsHub) addClient(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[client.id] = client
}

// dropClient removes the connection from every group and closes its send
// channel. Sends hold the read lock, so nothing can write to the channel
// after this returns.
func (h *wsHub) dropClient(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.conns[connID]
	if !ok {
		return
	}

	delete(h.conns, connID)
	for code, group := range h.groups {
		delete(group, connID)
		if len(group) == 0 {
			delete(h.groups, code)
		}
	}

	close(client.send)
}

func (h *wsHub) readPump(client *wsClient, registry *Registry) {
	defer func() {
		h.dropClient(client.id)
		registry.RemoveConnection(client.id)
		client.conn.Close()

		logf(h.cfg, "GAMES: Connection %s closed", client.id)
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))

		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		if !client.limiter.Allow() {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		registry.Dispatch(client.id, env)
	}
}

func (h *wsHub) writePump(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
