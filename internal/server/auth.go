// auth.go - Login and logout handlers.
//
// On successful login the server sets the access_token cookie (HttpOnly,
// SameSite=Lax) and redirects to the role-specific landing route. Failed
// logins never reveal whether the username existed.
package server

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const accessTokenCookie = "access_token"

// hashPassword generates a bcrypt hash of the password.
// Cost 12 is a good balance of security and performance.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword compares a password with its hash.
func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusFound)
}

// handleLoginPage serves a minimal built-in login form. Rendering proper is
// a frontend concern; this page exists so the flow works without one.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	notice := takeFlash(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if notice != "" {
		fmt.Fprintf(w, "<p>%s</p>", html.EscapeString(notice))
	}
	fmt.Fprint(w, `<form method="post" action="/login">
<input name="username" placeholder="username">
<input name="password" type="password" placeholder="password">
<button type="submit">Log in</button>
</form>`)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := s.store.UserByUsername(r.Context(), username)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.WithError(err).Error("login: user lookup failed")
		}
		s.metrics.RecordLoginFailure()
		// Same notice for unknown user and wrong password.
		setFlash(w, "Invalid username or password")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if !verifyPassword(password, user.PasswordHash) {
		s.metrics.RecordLoginFailure()
		setFlash(w, "Invalid username or password")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	tok, exp, err := s.tokens.Issue(*user)
	if err != nil {
		s.log.WithError(err).Error("login: token issue failed")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.SecureCookies,
	})

	s.metrics.RecordLoginSuccess()
	s.log.WithField("username", user.Username).Info("login")

	target := "/dashboard"
	if user.IsAdmin {
		target = "/admin"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// handleLogout clears the session cookie by setting an expired cookie.
// There is no server-side state to revoke.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.SecureCookies,
	})
	setFlash(w, "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusFound)
}
