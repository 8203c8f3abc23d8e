package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFlashRoundtrip(t *testing.T) {
	set := httptest.NewRecorder()
	setFlash(set, "File uploaded successfully")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range set.Result().Cookies() {
		req.AddCookie(c)
	}

	take := httptest.NewRecorder()
	if msg := takeFlash(take, req); msg != "File uploaded successfully" {
		t.Fatalf("unexpected notice: %q", msg)
	}

	// taking the notice must clear the cookie
	var cleared bool
	for _, c := range take.Result().Cookies() {
		if c.Name == flashCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Errorf("flash cookie was not cleared on read")
	}
}

func TestFlashAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	if msg := takeFlash(w, req); msg != "" {
		t.Fatalf("expected empty notice, got %q", msg)
	}
}

func TestFlashGarbledCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: flashCookieName, Value: "%%%not-base64%%%"})
	w := httptest.NewRecorder()
	if msg := takeFlash(w, req); msg != "" {
		t.Fatalf("expected empty notice for garbled cookie, got %q", msg)
	}
}
