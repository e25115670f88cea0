/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	return data
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()

	require.Eventually(t, condition, 2*time.Second, 5*time.Millisecond)
}

func TestCreateRoomGeneratesUniqueCodes(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	reg := newRegistry(testConfig(), testCatalog(t), gw)

	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		code := reg.CreateRoom("host", 3)

		require.Len(t, code, roomCodeLength)
		for _, c := range code {
			assert.Contains(t, roomCodeCharset, string(c))
		}

		assert.False(t, seen[code], "room code %q generated twice", code)
		seen[code] = true

		require.NotNil(t, reg.lookup(code))
	}
}

func TestCreateRoomAcknowledgesHostBeforeStateBroadcast(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	reg := newRegistry(testConfig(), testCatalog(t), gw)

	code := reg.CreateRoom("host-1", 0)

	created := gw.unicasts("host-1", evRoomCreated)
	require.Len(t, created, 1)

	payload := created[0].payload.(RoomCreatedPayload)
	assert.Equal(t, code, payload.RoomCode)
	assert.Equal(t, testConfig().defaultRounds, payload.TotalRounds, "zero rounds falls back to the configured default")

	states := gw.broadcasts(evRoomState)
	require.Len(t, states, 1)
	assert.Contains(t, states[0].payload.(RoomStatePayload).Players, "host-1")
}

func TestJoinUnknownRoomReturnsNotFoundWithoutBroadcast(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	reg := newRegistry(testConfig(), testCatalog(t), gw)

	reg.Dispatch("conn-1", Envelope{
		Type:    evRoomJoin,
		Payload: mustPayload(t, JoinRoomRequest{RoomCode: "ZZZZ", Name: "Ada"}),
	})

	joined := gw.unicasts("conn-1", evRoomJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, ErrRoomNotFound.Error(), joined[0].payload.(RoomJoinedPayload).Error)
	assert.False(t, joined[0].payload.(RoomJoinedPayload).Ok)

	for _, e := range gw.broadcasts(evRoomState) {
		t.Errorf("unexpected broadcast %+v", e)
	}
}

func TestDispatchRoutesJoinCaseInsensitively(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	reg := newRegistry(testConfig(), testCatalog(t), gw)

	code := reg.CreateRoom("host-1", 3)

	reg.Dispatch("p1", Envelope{
		Type:    evRoomJoin,
		Payload: mustPayload(t, JoinRoomRequest{RoomCode: " " + strings.ToLower(code) + " ", Name: "Ada", Team: "Blue"}),
	})

	waitFor(t, func() bool {
		joined := gw.unicasts("p1", evRoomJoined)
		return len(joined) == 1 && joined[0].payload.(RoomJoinedPayload).Ok
	})
}

func TestRemoveConnectionOfHostDeletesRoom(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	reg := newRegistry(testConfig(), testCatalog(t), gw)

	code := reg.CreateRoom("host-1", 3)
	require.NotNil(t, reg.lookup(code))

	reg.RemoveConnection("host-1")

	waitFor(t, func() bool {
		return reg.lookup(code) == nil
	})

	waitFor(t, func() bool {
		return len(gw.broadcasts(evGameFinal)) == 1
	})
}

func TestRemoveConnectionOfPlayerKeepsRoom(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	reg := newRegistry(testConfig(), testCatalog(t), gw)

	code := reg.CreateRoom("host-1", 3)

	reg.Dispatch("p1", Envelope{
		Type:    evRoomJoin,
		Payload: mustPayload(t, JoinRoomRequest{RoomCode: code, Name: "Ada"}),
	})

	waitFor(t, func() bool {
		return len(gw.unicasts("p1", evRoomJoined)) == 1
	})

	reg.RemoveConnection("p1")

	waitFor(t, func() bool {
		states := gw.broadcasts(evRoomState)
		if len(states) == 0 {
			return false
		}
		last := states[len(states)-1].payload.(RoomStatePayload)
		_, present := last.Players["p1"]
		return !present
	})

	assert.NotNil(t, reg.lookup(code))
}

func TestDispatchIgnoresMalformedAndUnknownEvents(t *testing.T) {
	t.Parallel()

	gw := newFakeGateway()
	reg := newRegistry(testConfig(), testCatalog(t), gw)

	reg.Dispatch("conn-1", Envelope{Type: evRoomJoin, Payload: json.RawMessage(`{`)})
	reg.Dispatch("conn-1", Envelope{Type: "no:such:event", Payload: json.RawMessage(`{}`)})
	reg.Dispatch("conn-1", Envelope{Type: evGameStart, Payload: mustPayload(t, StartGameRequest{RoomCode: "ZZZZ"})})

	assert.Empty(t, gw.events)
}
