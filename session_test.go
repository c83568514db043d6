package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetOrSetViewerIDAssignsCookie(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/board/abc", nil)

	id := getOrSetViewerID(w, r)
	if len(id) != 32 {
		t.Fatalf("expected 32-char hex viewer ID, got %q", id)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == viewerCookieName {
			cookie = c
			break
		}
	}
	if cookie == nil {
		t.Fatalf("expected %s cookie to be set", viewerCookieName)
	}
	if cookie.Value != id {
		t.Fatalf("cookie value %q does not match returned ID %q", cookie.Value, id)
	}
	if !cookie.HttpOnly {
		t.Fatalf("expected viewer cookie to be HttpOnly")
	}
	if cookie.MaxAge != 0 || cookie.Expires.Unix() > 0 {
		t.Fatalf("expected a session-scoped cookie")
	}
}

func TestGetOrSetViewerIDReusesCookie(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/board/abc", nil)
	r.AddCookie(&http.Cookie{Name: viewerCookieName, Value: "deadbeef"})

	if id := getOrSetViewerID(w, r); id != "deadbeef" {
		t.Fatalf("expected existing viewer ID to be reused, got %q", id)
	}
	if cookies := w.Result().Cookies(); len(cookies) != 0 {
		t.Fatalf("expected no new cookie, got %d", len(cookies))
	}
}
