// admin.go - Account lifecycle management.
//
// All handlers run behind requireAdmin. Deleting a user cascades over their
// files: metadata rows go in the same transaction as the user row, blobs
// are unlinked afterwards and a blob that is already gone counts as
// deleted.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// checkNotSelf rejects an admin deleting their own account.
func checkNotSelf(requesterID, targetID int64) error {
	if requesterID == targetID {
		return ErrSelfDeletion
	}
	return nil
}

type adminDashboardResp struct {
	User   string `json:"user"`
	Notice string `json:"notice,omitempty"`
	Users  []User `json:"users"`
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.log.WithError(err).Error("admin: list users failed")
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(adminDashboardResp{
		User:   ident.Username,
		Notice: takeFlash(w, r),
		Users:  users,
	})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	isAdmin := r.FormValue("is_admin") != ""

	if err := validateNewUser(username, password); err != nil {
		setFlash(w, "Username and password are required.")
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	hash, err := hashPassword(password)
	if err != nil {
		s.log.WithError(err).Error("create user: hash failed")
		setFlash(w, fmt.Sprintf("Error: %v", err))
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	if _, err := s.store.CreateUser(r.Context(), username, hash, isAdmin); err != nil {
		// Duplicate usernames land here via the unique constraint.
		s.log.WithError(err).WithField("username", username).Warn("create user failed")
		setFlash(w, fmt.Sprintf("Error: %v", err))
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	s.log.WithField("username", username).Info("user created")
	setFlash(w, fmt.Sprintf("User '%s' created successfully!", username))
	http.Redirect(w, r, "/admin", http.StatusFound)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	targetID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		setFlash(w, "User not found.")
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	// Checked before anything destructive happens: an admin must not be
	// able to lock themselves out.
	if err := checkNotSelf(ident.UserID, targetID); err != nil {
		s.log.WithField("target_id", targetID).Warn("delete user blocked: self deletion")
		setFlash(w, "Security alert: You cannot delete your own account.")
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	keys, err := s.store.DeleteUserAndFiles(r.Context(), targetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			setFlash(w, "User not found.")
		} else {
			s.log.WithError(err).Error("delete user failed")
			setFlash(w, fmt.Sprintf("Database error: %v", err))
		}
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	// Blob unlinks are best effort per key: one missing blob must not
	// abort the rest of the cascade.
	for _, key := range keys {
		if err := s.blobs.Remove(r.Context(), key); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("cascade: blob unlink failed")
		}
	}

	s.log.WithFields(logFields{"target_id": targetID, "files": len(keys)}).Info("user deleted")
	setFlash(w, "User account removed.")
	http.Redirect(w, r, "/admin", http.StatusFound)
}
