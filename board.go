// Pointsboard Leaderboard
//
// Each board tracks a roster of participants and their point totals.
// Anyone with the board URL watches the live ranking; admins (viewers who
// have entered the shared password) can add participants, award or
// subtract points, remove participants, and celebrate the current leader.
//
// Features:
// - WebSockets per board ID: /board/:boardid and /board/:boardid/ws
// - Viewers identified by cookie (viewerID)
// - Admin role granted per-cookie after a successful password login
// - Every mutation re-checks the admin set server-side; guests are read-only
// - Points are clamped at zero; ranking is a stable descending sort
// - Winner highlight auto-clears after a configurable window
// - Boards auto-reaped after configurable idle timeout
// - Random 8-char board IDs via crypto/rand, with server-side collision check
// - Downloadable PNG ranking snapshot, plus a QR button backed by go-qrcode

package main

import (
	"bytes"
	"crypto/rand"
	_ "embed"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`               // "login", "add", "adjust", "remove", "declare_winner"
	Password string `json:"password,omitempty"` // login
	Name     string `json:"name,omitempty"`     // add
	ID       string `json:"id,omitempty"`       // adjust / remove
	Delta    int    `json:"delta,omitempty"`    // adjust
}

// SessionInfoMessage is sent immediately on connect so the client knows
// its role and whether the password prompt is worth showing.
type SessionInfoMessage struct {
	Type     string `json:"type"` // "session_info"
	Title    string `json:"title"`
	IsAdmin  bool   `json:"is_admin"`
	CanLogin bool   `json:"can_login"` // false when no admin password is configured
}

// LoginResultMessage answers a "login" command. Failures are retryable.
type LoginResultMessage struct {
	Type    string `json:"type"` // "login_result"
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// RankingMessage broadcasts the current standings. WinnerID may refer to a
// participant that has since been removed; clients treat an ID that
// matches no entry as "no highlight".
type RankingMessage struct {
	Type     string        `json:"type"` // "ranking"
	Entries  []RankedEntry `json:"entries"`
	WinnerID string        `json:"winner_id,omitempty"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	viewerID string
}

type command struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	cmds     chan command

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time

	roster *Roster
	admins map[string]bool // viewerID -> admitted

	winnerID  string
	winnerGen int
}

func newHub(boardID string) *Hub {
	now := time.Now()
	return &Hub{
		id:         boardID,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		cmds:       make(chan command),
		createdAt:  now,
		lastActive: now,
		roster:     newRoster(),
		admins:     make(map[string]bool),
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true

			// Session info first, so the client decides whether to prompt
			// for the password before the first ranking arrives.
			h.sendLocked(c, SessionInfoMessage{
				Type:     "session_info",
				Title:    cfg.title,
				IsAdmin:  h.admins[c.viewerID],
				CanLogin: cfg.adminPassword != "",
			})
			h.sendLocked(c, h.rankingMessageLocked())
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case cmd := <-h.cmds:
			h.handleCommand(cfg, cmd)
		}
	}
}

// handleCommand applies one client command to the board. Commands execute
// to completion one at a time, so no mutation ever observes another
// mid-flight.
func (h *Hub) handleCommand(cfg *Config, cmd command) {
	c := cmd.client
	msg := cmd.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if msg.Type == "login" {
		h.handleLoginLocked(cfg, c, msg.Password)
		return
	}

	// The admin set is re-checked here for every mutation, regardless of
	// what controls the client chose to render. Guests are dropped
	// silently; the UI never offers them these operations.
	if !h.admins[c.viewerID] {
		return
	}

	switch msg.Type {
	case "add":
		p, ok := h.roster.Add(msg.Name)
		if !ok {
			return
		}
		logf(cfg, "BOARDS: Added participant %q to %s", p.Name, h.id)

	case "adjust":
		if !h.roster.Adjust(msg.ID, msg.Delta) {
			return
		}

	case "remove":
		// The confirmation step lives in the client; by the time this
		// message arrives the admin has already confirmed.
		if !h.roster.Remove(msg.ID) {
			return
		}
		logf(cfg, "BOARDS: Removed participant %s from %s", msg.ID, h.id)

	case "declare_winner":
		if !h.declareWinnerLocked(cfg) {
			return
		}

	default:
		return
	}

	h.broadcastRankingLocked()
}

// declareWinnerLocked highlights the top-ranked participant, if the
// ranking is non-empty and its leader has more than zero points. The
// scheduled clear is keyed by a generation counter: re-declaring bumps the
// generation, so the superseded clear fires but applies nothing, and the
// window restarts. Roster changes never cancel the timer; a highlight left
// pointing at a removed participant matches no ranked entry and clients
// render it as no highlight at all.
func (h *Hub) declareWinnerLocked(cfg *Config) bool {
	ranked := h.roster.Rank()
	if len(ranked) == 0 || ranked[0].Points <= 0 {
		return false
	}

	h.winnerID = ranked[0].ID
	h.winnerGen++
	gen := h.winnerGen

	time.AfterFunc(cfg.highlightDuration, func() {
		h.clearHighlight(gen)
	})

	logf(cfg, "BOARDS: Declared %q the winner on %s", ranked[0].Name, h.id)

	return true
}

func (h *Hub) clearHighlight(gen int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if gen != h.winnerGen || h.winnerID == "" {
		return
	}

	h.winnerID = ""
	h.broadcastRankingLocked()
}

func (h *Hub) rankingMessageLocked() RankingMessage {
	return RankingMessage{
		Type:     "ranking",
		Entries:  h.roster.Rank(),
		WinnerID: h.winnerID,
	}
}

// rankingView returns the current standings without going through a
// client channel; the snapshot handler and tests read through it.
func (h *Hub) rankingView() ([]RankedEntry, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.roster.Rank(), h.winnerID
}

func (h *Hub) broadcastRankingLocked() {
	msg := h.rankingMessageLocked()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			// Client is slow/full - drop them.
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// sendLocked delivers one message to one client, dropping the client if
// its outbox is full. A client already dropped by a broadcast has a closed
// outbox but its readPump can still race one last command in, so anything
// no longer in the membership map is skipped. Assumes h.mu is held.
func (h *Hub) sendLocked(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll disconnects all clients of this hub (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// BoardManager holds a set of hubs keyed by board ID, so each $path/$boardid
// is its own isolated leaderboard.
type BoardManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newBoardManager(idleTimeout time.Duration) *BoardManager {
	bm := &BoardManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go bm.reaperLoop()
	}
	return bm
}

func (bm *BoardManager) getHub(cfg *Config, boardID string) *Hub {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if hub, ok := bm.hubs[boardID]; ok {
		return hub
	}

	hub := newHub(boardID)
	bm.hubs[boardID] = hub
	go hub.run(cfg)
	return hub
}

// lookup returns an existing hub without creating one; snapshot and QR
// requests must not spawn boards.
func (bm *BoardManager) lookup(boardID string) (*Hub, bool) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	hub, ok := bm.hubs[boardID]
	return hub, ok
}

// newBoardID generates a crypto-random board ID and ensures it doesn't
// collide with existing boards.
func (bm *BoardManager) newBoardID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		bm.mu.Lock()
		_, exists := bm.hubs[id]
		bm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than
// idleTimeout. Reaping a board is the only way its roster state goes away
// short of stopping the process.
func (bm *BoardManager) reaperLoop() {
	ticker := time.NewTicker(bm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-bm.idleTimeout)

		bm.mu.Lock()
		for id, hub := range bm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(bm.hubs, id)
				go hub.closeAll()
			}
		}
		bm.mu.Unlock()
	}
}

// WebSocket handler that picks the hub based on :boardid
func serveWSForManager(cfg *Config, bm *BoardManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		boardID := ps.ByName("boardid")
		if boardID == "" {
			http.Error(w, "missing board id", http.StatusBadRequest)
			return
		}

		viewerID := getOrSetViewerID(w, r)
		if viewerID == "" {
			http.Error(w, "unable to assign viewer id", http.StatusInternalServerError)
			return
		}

		hub := bm.getHub(cfg, boardID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			viewerID: viewerID,
		}

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "login", "add", "adjust", "remove", "declare_winner":
			h.cmds <- command{
				client: c,
				msg:    msg,
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current board URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	boardID := ps.ByName("boardid")
	if boardID == "" {
		http.Error(w, "missing board id", http.StatusBadRequest)
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

	// We are at /.../:boardid/qr; strip trailing "/qr" to get the board URL.
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

// ---- Static file paths ----

//go:embed board/index.html
var indexHTML []byte

// prefixedIndex rewrites the embedded client's absolute asset URLs so they
// resolve behind a reverse proxy prefix.
func prefixedIndex(cfg *Config) []byte {
	if cfg.prefix == "" {
		return indexHTML
	}

	page := bytes.ReplaceAll(indexHTML, []byte(` href="/`), []byte(` href="`+cfg.prefix+`/`))
	return bytes.ReplaceAll(page, []byte(` src="/`), []byte(` src="`+cfg.prefix+`/`))
}

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page := prefixedIndex(cfg)

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetViewerID(w, r)

		_, _ = w.Write(page)
	}
}

// redirectNewBoard handles GET /path by generating a new random board ID
// (with server-side collision detection) and redirecting to /path/:boardid.
func redirectNewBoard(cfg *Config, path string, bm *BoardManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		boardID := bm.newBoardID()
		logf(cfg, "BOARDS: Created board %s/%s", path, boardID)
		http.Redirect(w, r, cfg.prefix+path+"/"+boardID, http.StatusTemporaryRedirect)
	}
}

// registerBoard sets up routes so that:
//   - $path                        → redirects to new random board (8-char ID)
//   - $path/:boardid               → HTML client
//   - $path/:boardid/ws            → WebSocket for that board
//   - $path/:boardid/qr            → PNG QR code for that board URL
//   - $path/:boardid/snapshot.png  → downloadable PNG of the current ranking
func registerBoard(cfg *Config, path string, mux *httprouter.Router, errs chan<- error) {
	bm := newBoardManager(cfg.boardTimeout)

	// Root path → redirect to new random board
	mux.GET(cfg.prefix+path, redirectNewBoard(cfg, path, bm))

	// Per-board client view (HTML)
	mux.GET(cfg.prefix+path+"/:boardid", getIndexHandler(cfg))

	// Shared assets (no boardid in route)
	mux.GET(cfg.prefix+"/assets/board/app.css", serveAssets(cfg, errs))
	mux.GET(cfg.prefix+"/assets/board/app.js", serveAssets(cfg, errs))

	// Per-board websocket
	mux.GET(cfg.prefix+path+"/:boardid/ws", serveWSForManager(cfg, bm))

	// Per-board QR code
	mux.GET(cfg.prefix+path+"/:boardid/qr", qrHandler)

	// Per-board ranking snapshot
	mux.GET(cfg.prefix+path+"/:boardid/snapshot.png", snapshotHandler(cfg, bm, errs))
}
