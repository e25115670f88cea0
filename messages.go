/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import "encoding/json"

// Client and server exchange JSON envelopes of the form {"type": ..., "payload": ...}.

// Client-to-server event types.
const (
	evRoomCreate = "room:create"
	evRoomJoin   = "room:join"
	evGameStart  = "game:start"
	evAnswerSend = "answer:send"
	evRoundSkip  = "round:skip"
)

// Server-to-client event types.
const (
	evRoomCreated    = "room:created"
	evRoomJoined     = "room:joined"
	evRoomState      = "room:state"
	evCountdownStart = "game:countdown:start"
	evRoundStart     = "round:start"
	evRoundReveal    = "round:reveal"
	evAnswerFeedback = "answer:feedback"
	evGameFinal      = "game:final"
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type CreateRoomRequest struct {
	TotalRounds int `json:"totalRounds"`
}

type JoinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
	Team     string `json:"team"`
}

type StartGameRequest struct {
	RoomCode string `json:"roomCode"`
}

type SendAnswerRequest struct {
	RoomCode string `json:"roomCode"`
	Answer   string `json:"answer"`
}

type SkipRoundRequest struct {
	RoomCode string `json:"roomCode"`
}

type RoomCreatedPayload struct {
	RoomCode    string `json:"roomCode"`
	TotalRounds int    `json:"totalRounds"`
}

type RoomJoinedPayload struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type MemberSnapshot struct {
	Name     string `json:"name"`
	Team     string `json:"team"`
	Corrects int    `json:"corrects"`
}

type RoomStatePayload struct {
	State   string                    `json:"state"`
	Players map[string]MemberSnapshot `json:"players"`
}

type CountdownPayload struct {
	Seconds int `json:"seconds"`
}

type RoundStartPayload struct {
	RoundNumber int      `json:"roundNumber"`
	TotalRounds int      `json:"totalRounds"`
	Hints       []string `json:"hints"`
	Options     []string `json:"options"`
	Duration    int      `json:"duration"`
}

type RoundRevealPayload struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type AnswerFeedbackPayload struct {
	Ok          bool   `json:"ok"`
	CorrectName string `json:"correctName"`
	Image       string `json:"image"`
}

type RankingEntry struct {
	ConnectionID string `json:"connectionId"`
	Name         string `json:"name"`
	Team         string `json:"team"`
	Corrects     int    `json:"corrects"`
}

type CharacterStat struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type GameFinalPayload struct {
	Podium    []RankingEntry  `json:"podium"`
	Ranking   []RankingEntry  `json:"ranking"`
	CharStats []CharacterStat `json:"charStats"`
}
