/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

const (
	roomCodeLength  = 4
	roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Registry maps live room codes to their sessions. It owns room creation
// and teardown; everything that happens inside a room goes through that
// room's own command inbox.
type Registry struct {
	cfg     *Config
	catalog *Catalog
	gateway Gateway

	mu    sync.Mutex
	rooms map[string]*Room
}

func newRegistry(cfg *Config, catalog *Catalog, gateway Gateway) *Registry {
	reg := &Registry{
		cfg:     cfg,
		catalog: catalog,
		gateway: gateway,
		rooms:   make(map[string]*Room),
	}

	if cfg.sessionTimeout > 0 {
		go reg.reaperLoop()
	}

	return reg
}

// Dispatch routes one inbound client event to the room it names. Events for
// unknown rooms are dropped, except joins, which get an explicit error back.
func (reg *Registry) Dispatch(connID string, env Envelope) {
	switch env.Type {
	case evRoomCreate:
		var req CreateRoomRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return
		}
		reg.CreateRoom(connID, req.TotalRounds)

	case evRoomJoin:
		var req JoinRoomRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return
		}

		room := reg.lookup(req.RoomCode)
		if room == nil {
			reg.gateway.SendToConnection(connID, evRoomJoined, RoomJoinedPayload{
				Error: ErrRoomNotFound.Error(),
			})

			return
		}
		room.post(roomCommand{kind: cmdJoin, connID: connID, name: req.Name, team: req.Team})

	case evGameStart:
		var req StartGameRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return
		}
		if room := reg.lookup(req.RoomCode); room != nil {
			room.post(roomCommand{kind: cmdStart, connID: connID})
		}

	case evAnswerSend:
		var req SendAnswerRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return
		}
		if room := reg.lookup(req.RoomCode); room != nil {
			room.post(roomCommand{kind: cmdAnswer, connID: connID, answer: req.Answer})
		}

	case evRoundSkip:
		var req SkipRoundRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return
		}
		if room := reg.lookup(req.RoomCode); room != nil {
			room.post(roomCommand{kind: cmdSkip, connID: connID})
		}
	}
}

// CreateRoom builds a new session with the creating connection as host and
// returns its code. The acknowledgment reaches the creator before the first
// membership broadcast.
func (reg *Registry) CreateRoom(connID string, totalRounds int) string {
	if totalRounds <= 0 {
		totalRounds = reg.cfg.defaultRounds
	}

	reg.mu.Lock()
	code := reg.newRoomCodeLocked()

	reg.gateway.SendToConnection(connID, evRoomCreated, RoomCreatedPayload{
		RoomCode:    code,
		TotalRounds: totalRounds,
	})

	room := newRoom(reg.cfg, reg.catalog, reg.gateway, code, connID, totalRounds, reg.removeRoom)
	reg.rooms[code] = room
	reg.mu.Unlock()

	go room.run()

	logf(reg.cfg, "GAMES: Created room %s (%d rounds)", code, totalRounds)

	return code
}

// RemoveConnection is invoked on disconnect and fans the notification out to
// every live room; each room decides whether the connection was a member.
func (reg *Registry) RemoveConnection(connID string) {
	for _, room := range reg.snapshot() {
		room.post(roomCommand{kind: cmdDisconnect, connID: connID})
	}
}

func (reg *Registry) lookup(code string) *Room {
	code = normalizeRoomCode(code)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.rooms[code]
}

func (reg *Registry) removeRoom(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.rooms, code)
}

func (reg *Registry) snapshot() []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}

	return rooms
}

// newRoomCodeLocked generates a short, human-typeable code via crypto/rand,
// regenerating on collision with any live room. Callers hold reg.mu.
func (reg *Registry) newRoomCodeLocked() string {
	for {
		buf := make([]byte, roomCodeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = roomCodeCharset[int(buf[i])%len(roomCodeCharset)]
		}
		code := string(out)

		if _, exists := reg.rooms[code]; !exists {
			return code
		}
	}
}

func normalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// reaperLoop periodically terminates rooms that have been idle longer than
// the configured session timeout.
func (reg *Registry) reaperLoop() {
	ticker := time.NewTicker(reg.cfg.sessionTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-reg.cfg.sessionTimeout).UnixNano()

		for _, room := range reg.snapshot() {
			if room.lastActive.Load() < cutoff {
				room.post(roomCommand{kind: cmdTerminate})
			}
		}
	}
}
