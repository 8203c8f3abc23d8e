// files.go - Ownership-scoped file operations.
//
// Every handler here runs behind requireUser; the identity in the request
// context scopes all queries. Download and delete filter on id AND owner in
// one predicate, so another user's file answers exactly like a missing one.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// fileEntry is the dashboard representation of a stored file.
type fileEntry struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	SizeBytes   int64     `json:"size_bytes"`
	Size        string    `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

type dashboardResp struct {
	Username string      `json:"username"`
	IsAdmin  bool        `json:"is_admin"`
	Notice   string      `json:"notice,omitempty"`
	Files    []fileEntry `json:"files"`
}

// handleDashboard returns the caller's own files. There is no path that
// lists anything else.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	files, err := s.store.FilesByOwner(r.Context(), ident.UserID)
	if err != nil {
		s.log.WithError(err).Error("dashboard: list failed")
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}

	resp := dashboardResp{
		Username: ident.Username,
		IsAdmin:  ident.Role == RoleAdmin,
		Notice:   takeFlash(w, r),
		Files:    make([]fileEntry, 0, len(files)),
	}
	for _, f := range files {
		resp.Files = append(resp.Files, fileEntry{
			ID:          f.ID,
			DisplayName: f.DisplayName,
			SizeBytes:   f.SizeBytes,
			Size:        formatSize(f.SizeBytes),
			CreatedAt:   f.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleUpload stores the multipart "file" field under a fresh storage key
// and records the metadata row. The recorded size is the byte count actually
// written to the blob store, never a client-supplied header.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		s.metrics.RecordUploadError()
		setFlash(w, "No file part")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	defer func() { _ = part.Close() }()

	if header.Filename == "" {
		s.metrics.RecordUploadError()
		setFlash(w, "No selected file")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	key := newStorageKey(header.Filename)
	written, err := s.blobs.Put(r.Context(), key, part)
	if err != nil {
		s.metrics.RecordUploadError()
		s.log.WithError(err).Error("upload: blob write failed")
		setFlash(w, fmt.Sprintf("Error: %v", err))
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	if _, err := s.store.InsertFile(r.Context(), ident.UserID, header.Filename, key, written); err != nil {
		// The metadata row is authoritative; without it the blob is garbage.
		if rmErr := s.blobs.Remove(r.Context(), key); rmErr != nil {
			s.log.WithError(rmErr).WithField("key", key).Warn("upload: orphan blob cleanup failed")
		}
		s.metrics.RecordUploadError()
		s.log.WithError(err).Error("upload: insert failed")
		setFlash(w, fmt.Sprintf("Error: %v", err))
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	s.metrics.RecordUpload(written)
	s.log.WithFields(logFields{"username": ident.Username, "bytes": written}).Info("file uploaded")
	setFlash(w, "File uploaded successfully")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	fileID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		setFlash(w, "File not found")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	f, err := s.store.FileByIDAndOwner(r.Context(), fileID, ident.UserID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.WithError(err).Error("download: lookup failed")
		}
		// Missing and not-yours answer identically.
		setFlash(w, "File not found")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	blob, err := s.blobs.Open(r.Context(), f.StorageKey)
	if err != nil {
		s.metrics.RecordDownloadError()
		s.log.WithError(err).WithField("key", f.StorageKey).Error("download: blob open failed")
		setFlash(w, "File not found")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	defer func() { _ = blob.Close() }()

	w.Header().Set("Content-Type", "application/octet-stream")
	if f.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(f.SizeBytes, 10))
	}
	// The attachment name is the display name, never the storage key.
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, sanitizeFilename(f.DisplayName)))

	w.WriteHeader(http.StatusOK)
	n, _ := io.Copy(w, blob)
	s.metrics.RecordDownload(n)
}

// handleDelete removes the metadata row first and only then unlinks the
// blob. If the unlink fails the blob is stranded garbage, which is
// recoverable; the reverse order could leave a row pointing at nothing.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	fileID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		setFlash(w, "File not found")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	key, err := s.store.DeleteFileByIDAndOwner(r.Context(), fileID, ident.UserID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.WithError(err).Error("delete: metadata delete failed")
		}
		setFlash(w, "File not found")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	if err := s.blobs.Remove(r.Context(), key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("delete: blob unlink failed")
	}

	s.log.WithFields(logFields{"username": ident.Username, "file_id": fileID}).Info("file deleted")
	setFlash(w, "File deleted successfully")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
