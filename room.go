/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// projectorName is the reserved display name a read-only projector client
// joins with. It maps to RoleProjector and never becomes a scoring member.
const projectorName = "PROJETOR"

type RoomPhase int

const (
	PhaseLobby RoomPhase = iota
	PhaseCountdown
	PhasePlaying
	PhaseRevealed
	PhaseEnded
)

func (p RoomPhase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseCountdown:
		return "countdown"
	case PhasePlaying:
		return "playing"
	case PhaseRevealed:
		return "revealed"
	case PhaseEnded:
		return "ended"
	}

	return "unknown"
}

type Role int

const (
	RolePlayer Role = iota
	RoleHost
	RoleProjector
)

// Member is one connected participant. Roles are explicit tags rather than
// display-name matches, so a player named "Host" still ranks normally.
type Member struct {
	id       string
	name     string
	team     string
	role     Role
	corrects int
	joined   int
}

// RoundState holds one guessing round. It is replaced at the next round,
// never mutated into it.
type RoundState struct {
	charID      string
	correctName string
	image       string
	options     []string
	answered    map[string]bool
}

type timerName string

const (
	timerCountdown timerName = "countdown"
	timerRound     timerName = "round"
	timerReveal    timerName = "reveal"
)

type pendingTimer struct {
	timer *time.Timer
	epoch uint64
}

type cmdKind int

const (
	cmdJoin cmdKind = iota
	cmdStart
	cmdAnswer
	cmdSkip
	cmdDisconnect
	cmdTimer
	cmdTerminate
)

type roomCommand struct {
	kind   cmdKind
	connID string
	name   string
	team   string
	answer string
	timer  timerName
	epoch  uint64
}

// Room owns one game's full lifecycle. All mutable state below is touched
// only by the room's own loop goroutine; inbound client events and timer
// firings are serialized through the inbox.
type Room struct {
	code    string
	cfg     *Config
	catalog *Catalog
	gateway Gateway
	remove  func(code string)

	phase       RoomPhase
	hostID      string
	members     map[string]*Member
	joinSeq     int
	used        map[string]bool
	usedOrder   []string
	roundNumber int
	totalRounds int
	round       *RoundState
	hits        map[string]int
	timers      map[timerName]pendingTimer
	epoch       uint64

	inbox      chan roomCommand
	lastActive atomic.Int64
}

func newRoom(cfg *Config, catalog *Catalog, gateway Gateway, code, hostID string, totalRounds int, remove func(code string)) *Room {
	if totalRounds <= 0 {
		totalRounds = cfg.defaultRounds
	}

	r := &Room{
		code:        code,
		cfg:         cfg,
		catalog:     catalog,
		gateway:     gateway,
		remove:      remove,
		phase:       PhaseLobby,
		hostID:      hostID,
		members:     make(map[string]*Member),
		used:        make(map[string]bool),
		totalRounds: totalRounds,
		hits:        make(map[string]int),
		timers:      make(map[timerName]pendingTimer),
		inbox:       make(chan roomCommand, 256),
	}
	r.lastActive.Store(time.Now().UnixNano())

	// The host appears as a member so membership broadcasts stay uniform,
	// but its role keeps it out of ranking and scoring.
	r.members[hostID] = &Member{
		id:     hostID,
		name:   "Host",
		team:   "Host",
		role:   RoleHost,
		joined: r.joinSeq,
	}
	r.joinSeq++

	gateway.JoinGroup(hostID, code)
	r.broadcastState()

	return r
}

func (r *Room) run() {
	for cmd := range r.inbox {
		if r.handle(cmd) {
			return
		}
	}
}

// post never blocks; a full inbox drops the command, matching the
// accepted-immediately-or-discarded error model.
func (r *Room) post(cmd roomCommand) {
	select {
	case r.inbox <- cmd:
	default:
	}
}

func (r *Room) handle(cmd roomCommand) (done bool) {
	r.lastActive.Store(time.Now().UnixNano())

	switch cmd.kind {
	case cmdJoin:
		r.handleJoin(cmd.connID, cmd.name, cmd.team)
	case cmdStart:
		r.handleStart(cmd.connID)
	case cmdAnswer:
		r.handleAnswer(cmd.connID, cmd.answer)
	case cmdSkip:
		r.handleSkip(cmd.connID)
	case cmdDisconnect:
		return r.handleDisconnect(cmd.connID)
	case cmdTimer:
		r.handleTimer(cmd.timer, cmd.epoch)
	case cmdTerminate:
		return r.terminate()
	}

	return false
}

func (r *Room) handleJoin(connID, name, team string) {
	if name == projectorName {
		r.gateway.JoinGroup(connID, r.code)
		r.gateway.SendToConnection(connID, evRoomJoined, RoomJoinedPayload{Ok: true})

		return
	}

	if name == "" {
		name = "Player"
	}
	if team == "" {
		team = "Team"
	}

	if m, ok := r.members[connID]; ok {
		// Rejoin with the same connection updates in place.
		m.name = name
		m.team = team
	} else {
		r.members[connID] = &Member{
			id:     connID,
			name:   name,
			team:   team,
			role:   RolePlayer,
			joined: r.joinSeq,
		}
		r.joinSeq++
	}

	r.gateway.JoinGroup(connID, r.code)
	r.gateway.SendToConnection(connID, evRoomJoined, RoomJoinedPayload{Ok: true})
	r.broadcastState()

	logf(r.cfg, "GAMES: Player %q joined %s", name, r.code)
}

func (r *Room) handleStart(connID string) {
	if connID != r.hostID || r.phase != PhaseLobby {
		return
	}

	r.phase = PhaseCountdown
	r.roundNumber = 0

	r.broadcast(evCountdownStart, CountdownPayload{
		Seconds: int(r.cfg.countdown.Seconds()),
	})
	r.arm(timerCountdown, r.cfg.countdown)

	logf(r.cfg, "GAMES: Game started in %s (%d rounds)", r.code, r.totalRounds)
}

func (r *Room) handleAnswer(connID, answer string) {
	if r.phase != PhasePlaying || r.round == nil {
		return
	}

	m, ok := r.members[connID]
	if !ok || m.role != RolePlayer {
		return
	}

	if r.round.answered[connID] {
		return
	}
	r.round.answered[connID] = true

	correct := normalizeAnswer(answer) == normalizeAnswer(r.round.correctName)

	r.gateway.SendToConnection(connID, evAnswerFeedback, AnswerFeedbackPayload{
		Ok:          correct,
		CorrectName: r.round.correctName,
		Image:       r.round.image,
	})

	if !correct {
		return
	}

	m.corrects++
	r.hits[r.round.charID]++

	// First correct answer ends the round for everyone.
	r.reveal()
	r.broadcastState()

	logf(r.cfg, "GAMES: %q answered round %d of %s correctly", m.name, r.roundNumber, r.code)
}

// handleSkip advances the game on behalf of the host: during a round it
// forces the reveal, during a reveal it moves straight to the next round.
// It never produces a duplicate reveal broadcast.
func (r *Room) handleSkip(connID string) {
	if connID != r.hostID {
		return
	}

	switch {
	case r.phase == PhasePlaying && r.round != nil:
		r.reveal()
	case r.phase == PhaseRevealed:
		r.nextRound()
	}
}

func (r *Room) handleDisconnect(connID string) (done bool) {
	m, ok := r.members[connID]
	if !ok {
		return false
	}

	delete(r.members, connID)
	r.broadcastState()

	if connID != r.hostID {
		logf(r.cfg, "GAMES: Player %q left %s", m.name, r.code)

		return false
	}

	// Host loss is fatal to the room: cancel everything, send a terminal
	// empty result, and delete the session.
	r.cancelAll()
	r.phase = PhaseEnded
	r.round = nil

	r.broadcast(evGameFinal, GameFinalPayload{
		Podium:    []RankingEntry{},
		Ranking:   []RankingEntry{},
		CharStats: []CharacterStat{},
	})

	logf(r.cfg, "GAMES: Host left %s, room closed", r.code)

	r.removeSelf()

	return true
}

func (r *Room) handleTimer(name timerName, epoch uint64) {
	p, ok := r.timers[name]
	if !ok || p.epoch != epoch {
		// Cancelled or re-armed after this firing was already in flight.
		return
	}
	delete(r.timers, name)

	switch name {
	case timerCountdown:
		r.nextRound()
	case timerRound:
		r.reveal()
	case timerReveal:
		r.nextRound()
	}
}

// terminate quietly shuts the room down (idle reap or server shutdown).
func (r *Room) terminate() (done bool) {
	r.cancelAll()
	r.removeSelf()

	logf(r.cfg, "GAMES: Room %s terminated", r.code)

	return true
}

func (r *Room) removeSelf() {
	if r.remove != nil {
		r.remove(r.code)
	}
	r.gateway.DropGroup(r.code)
}

// nextRound advances to the next playing phase, or ends the game once the
// round budget is spent.
func (r *Room) nextRound() {
	r.cancelAll()

	r.roundNumber++
	if r.roundNumber > r.totalRounds {
		r.finish()

		return
	}

	ch := r.catalog.Pick(r.used)
	if !r.used[ch.ID] {
		r.used[ch.ID] = true
		r.usedOrder = append(r.usedOrder, ch.ID)
	}

	r.round = &RoundState{
		charID:      ch.ID,
		correctName: ch.Name,
		image:       strings.TrimPrefix(ch.Image, "/"),
		options:     r.catalog.Options(ch.Name),
		answered:    make(map[string]bool),
	}
	r.phase = PhasePlaying

	r.broadcast(evRoundStart, RoundStartPayload{
		RoundNumber: r.roundNumber,
		TotalRounds: r.totalRounds,
		Hints:       ch.Hints,
		Options:     r.round.options,
		Duration:    int(r.cfg.roundTime.Seconds()),
	})
	r.arm(timerRound, r.cfg.roundTime)
}

func (r *Room) reveal() {
	r.cancel(timerRound)
	r.phase = PhaseRevealed

	r.broadcast(evRoundReveal, RoundRevealPayload{
		Name:  r.round.correctName,
		Image: r.round.image,
	})
	r.arm(timerReveal, r.cfg.revealTime)
}

func (r *Room) finish() {
	r.cancelAll()
	r.phase = PhaseEnded
	r.round = nil

	ranking := r.ranking()

	podium := ranking
	if len(podium) > 3 {
		podium = podium[:3]
	}

	r.broadcast(evGameFinal, GameFinalPayload{
		Podium:    podium,
		Ranking:   ranking,
		CharStats: r.charStats(),
	})

	logf(r.cfg, "GAMES: Game finished in %s", r.code)
}

// ranking sorts players by score, descending, stable on join order.
// Host and projector roles never rank.
func (r *Room) ranking() []RankingEntry {
	players := make([]*Member, 0, len(r.members))
	for _, m := range r.members {
		if m.role == RolePlayer {
			players = append(players, m)
		}
	}

	sort.Slice(players, func(i, j int) bool {
		return players[i].joined < players[j].joined
	})
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].corrects > players[j].corrects
	})

	ranking := make([]RankingEntry, 0, len(players))
	for _, m := range players {
		ranking = append(ranking, RankingEntry{
			ConnectionID: m.id,
			Name:         m.name,
			Team:         m.team,
			Corrects:     m.corrects,
		})
	}

	return ranking
}

// charStats lists every used character by hit count, descending, ties
// broken by first-used order.
func (r *Room) charStats() []CharacterStat {
	stats := make([]CharacterStat, 0, len(r.usedOrder))
	for _, id := range r.usedOrder {
		name := id
		if ch, ok := r.catalog.ByID(id); ok {
			name = ch.Name
		}
		stats = append(stats, CharacterStat{
			ID:    id,
			Name:  name,
			Count: r.hits[id],
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})

	return stats
}

func (r *Room) broadcast(event string, payload any) {
	r.gateway.BroadcastToRoom(r.code, event, payload)
}

func (r *Room) broadcastState() {
	players := make(map[string]MemberSnapshot, len(r.members))
	for id, m := range r.members {
		players[id] = MemberSnapshot{
			Name:     m.name,
			Team:     m.team,
			Corrects: m.corrects,
		}
	}

	r.broadcast(evRoomState, RoomStatePayload{
		State:   r.phase.String(),
		Players: players,
	})
}

// arm cancels any pending timer of the same name before scheduling a new
// one, so no two timers for the same phase ever overlap. The epoch guards
// against a firing that was already in flight when its timer was cancelled.
func (r *Room) arm(name timerName, d time.Duration) {
	r.cancel(name)

	r.epoch++
	epoch := r.epoch

	r.timers[name] = pendingTimer{
		epoch: epoch,
		timer: time.AfterFunc(d, func() {
			r.post(roomCommand{kind: cmdTimer, timer: name, epoch: epoch})
		}),
	}
}

func (r *Room) cancel(name timerName) {
	if p, ok := r.timers[name]; ok {
		p.timer.Stop()
		delete(r.timers, name)
	}
}

func (r *Room) cancelAll() {
	for name := range r.timers {
		r.cancel(name)
	}
}
