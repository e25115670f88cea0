/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

// Quizbox "Who Am I" game
//
// A host creates a room and receives a short code. Players join with the
// code (scannable via QR), and the server drives a sequence of timed rounds:
// all hints for a hidden character are revealed at once together with four
// shuffled name options, players race to answer, the first correct answer
// (or the round timer, or a host skip) triggers the reveal, and after a
// fixed number of rounds the podium, full ranking, and a most-guessed
// character leaderboard are broadcast.
//
// Features:
// - Single websocket endpoint; events carry room codes
// - Random 4-char room codes via crypto/rand, with server-side collision check
// - One goroutine per room; timers and client events share a serial inbox
// - Host-only start/skip; reserved PROJETOR name for read-only displays
// - First correct answer ends the round for everyone
// - Host disconnect ends the room; idle rooms are reaped after a timeout
// - In-browser QR button to share the join URL, backed by go-qrcode

package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS upgrades the connection, assigns it an identity, and runs the
// pumps. The read pump blocks until the client goes away.
func serveWS(cfg *Config, hub *wsHub, registry *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)

			return
		}

		client := &wsClient{
			id:      uuid.NewString(),
			conn:    conn,
			send:    make(chan []byte, sendBufferSize),
			limiter: newInboundLimiter(),
		}

		hub.addClient(client)

		logf(cfg, "GAMES: Connection %s from %s", client.id, realIP(r))

		go hub.writePump(client)
		hub.readPump(client, registry)
	}
}

// qrHandler generates a PNG QR code for a room's join URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)

		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:code/qr; strip trailing "/qr" to get the join URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func serveGamePage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte(newPage("Who Am I", "Connect a client to "+cfg.prefix+"/socket to play.")))
	}
}

func serveJoinPage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := normalizeRoomCode(ps.ByName("code"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = w.Write([]byte(newPage("Who Am I", fmt.Sprintf("Room code: %s", code))))
	}
}

// registerWhoAmI sets up routes so that:
//   - $path             → HTML landing page
//   - $path/:code       → HTML join page for a room
//   - $path/:code/qr    → PNG QR code for that room's join URL
//   - /socket           → shared WebSocket endpoint (events carry room codes)
func registerWhoAmI(cfg *Config, path string, mux *httprouter.Router, hub *wsHub, registry *Registry) {
	mux.GET(cfg.prefix+path, serveGamePage(cfg))

	mux.GET(cfg.prefix+path+"/:code", serveJoinPage(cfg))

	mux.GET(cfg.prefix+path+"/:code/qr", qrHandler)

	mux.GET(cfg.prefix+"/socket", serveWS(cfg, hub, registry))
}
