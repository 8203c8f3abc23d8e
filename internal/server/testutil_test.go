package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"filevault/internal/db"
)

// newTestServer builds a Server on a throwaway SQLite database and a
// disk blob store under t.TempDir.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	conn, err := OpenDB(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.RunMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	blobs, err := NewDiskStore(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("disk store: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	return New(Config{
		Addr:       ":0",
		SecretKey:  "test-secret",
		SessionTTL: time.Hour,
	}, conn, blobs, log)
}

// seedUser inserts a user directly. MinCost keeps the suite fast.
func seedUser(t *testing.T, srv *Server, username, password string, admin bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := srv.store.CreateUser(context.Background(), username, string(hash), admin)
	if err != nil {
		t.Fatalf("seed user %q: %v", username, err)
	}
	return u
}

// login posts the form and returns the session cookie.
func login(t *testing.T, srv *Server, username, password string) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("login: expected 302, got %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == accessTokenCookie && c.Value != "" {
			return c
		}
	}
	t.Fatalf("login: no %s cookie set", accessTokenCookie)
	return nil
}

// do runs a request with the session cookie through the full middleware
// chain.
func do(t *testing.T, srv *Server, method, path string, body io.Reader, session *http.Cookie, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if session != nil {
		req.AddCookie(session)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

// uploadFile posts multipart content to /dashboard/upload.
func uploadFile(t *testing.T, srv *Server, session *http.Cookie, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return do(t, srv, http.MethodPost, "/dashboard/upload", &buf, session, map[string]string{
		"Content-Type": mw.FormDataContentType(),
	})
}

// flashValue decodes the fv_notice cookie from a response, "" if absent.
func flashValue(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == flashCookieName && c.MaxAge >= 0 && c.Value != "" {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(c)
			rec := httptest.NewRecorder()
			return takeFlash(rec, req)
		}
	}
	return ""
}
