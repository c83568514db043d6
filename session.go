package main

// Viewer identity and the admin role gate.
//
// Every browser gets a random viewer ID in an HttpOnly session cookie on
// first contact. The cookie is the admission marker carrier: once a viewer
// submits the correct shared password over a board's websocket, its ID
// joins that board's admin set and stays there for the life of the board.
// There is no sign-out, and no lockout after failed attempts.

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
)

const viewerCookieName = "pointsboard_id"

func getOrSetViewerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(viewerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     viewerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

const loginFailedMessage = "Incorrect password. Please try again."

// handleLoginLocked processes a "login" command. The submitted password is
// compared for exact, case-sensitive equality against the configured
// secret; an empty configured secret disables admin logins entirely.
// Assumes h.mu is held.
func (h *Hub) handleLoginLocked(cfg *Config, c *Client, password string) {
	if h.admins[c.viewerID] {
		h.sendLocked(c, LoginResultMessage{Type: "login_result", OK: true})
		return
	}

	if cfg.adminPassword == "" || password != cfg.adminPassword {
		logf(cfg, "BOARDS: Rejected admin login on %s from viewer %.8s", h.id, c.viewerID)
		h.sendLocked(c, LoginResultMessage{
			Type:    "login_result",
			OK:      false,
			Message: loginFailedMessage,
		})
		return
	}

	h.admins[c.viewerID] = true
	logf(cfg, "BOARDS: Admitted admin on %s for viewer %.8s", h.id, c.viewerID)

	h.sendLocked(c, LoginResultMessage{Type: "login_result", OK: true})
}
