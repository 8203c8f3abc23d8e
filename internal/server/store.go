// store.go - Credential and file metadata persistence.
//
// All queries are parameterized; file lookups that act on behalf of a user
// always filter on id AND owner in one predicate, so a foreign file and a
// missing file produce the same ErrNotFound.
package server

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// User is an account row. Immutable after creation except for deletion.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// StoredFile is a file metadata row. DisplayName is the untrusted
// client-supplied name; StorageKey is the server-generated blob key and the
// only value ever used to address storage.
type StoredFile struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"-"`
	DisplayName string    `json:"display_name"`
	StorageKey  string    `json:"-"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store runs point lookups and ownership-scoped queries against the
// embedded database. Concurrent use is safe; conflicting writes are
// serialized by SQLite itself.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: "user_by_username", Err: err}
	}
	return &u, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: "user_by_id", Err: err}
	}
	return &u, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, &StoreError{Op: "count_users", Err: err}
	}
	return n, nil
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) (*User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, is_admin) VALUES (?, ?, ?)`,
		username, passwordHash, isAdmin,
	)
	if err != nil {
		return nil, &StoreError{Op: "create_user", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, &StoreError{Op: "create_user", Err: err}
	}
	return s.UserByID(ctx, id)
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, is_admin, created_at FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, &StoreError{Op: "list_users", Err: err}
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, &StoreError{Op: "list_users", Err: err}
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list_users", Err: err}
	}
	return users, nil
}

// DeleteUserAndFiles removes the user and all their file rows in one
// transaction and returns the storage keys of the removed files. Blob
// cleanup happens after the transaction commits: a leftover blob on disk
// is recoverable garbage, a dangling metadata row is not.
func (s *Store) DeleteUserAndFiles(ctx context.Context, id int64) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &StoreError{Op: "delete_user", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT storage_key FROM files WHERE user_id = ?`, id)
	if err != nil {
		return nil, &StoreError{Op: "delete_user", Err: err}
	}
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			_ = rows.Close()
			return nil, &StoreError{Op: "delete_user", Err: err}
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, &StoreError{Op: "delete_user", Err: err}
	}
	_ = rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE user_id = ?`, id); err != nil {
		return nil, &StoreError{Op: "delete_user", Err: err}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, &StoreError{Op: "delete_user", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, &StoreError{Op: "delete_user", Err: err}
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, &StoreError{Op: "delete_user", Err: err}
	}
	return keys, nil
}

func (s *Store) FilesByOwner(ctx context.Context, ownerID int64) ([]StoredFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, display_name, storage_key, size_bytes, created_at
		 FROM files WHERE user_id = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, &StoreError{Op: "files_by_owner", Err: err}
	}
	defer rows.Close()

	var files []StoredFile
	for rows.Next() {
		var f StoredFile
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.DisplayName, &f.StorageKey, &f.SizeBytes, &f.CreatedAt); err != nil {
			return nil, &StoreError{Op: "files_by_owner", Err: err}
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "files_by_owner", Err: err}
	}
	return files, nil
}

func (s *Store) InsertFile(ctx context.Context, ownerID int64, displayName, storageKey string, sizeBytes int64) (*StoredFile, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO files (user_id, display_name, storage_key, size_bytes) VALUES (?, ?, ?, ?)`,
		ownerID, displayName, storageKey, sizeBytes,
	)
	if err != nil {
		return nil, &StoreError{Op: "insert_file", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, &StoreError{Op: "insert_file", Err: err}
	}
	return s.FileByIDAndOwner(ctx, id, ownerID)
}

// FileByIDAndOwner looks up a file by id and owner in a single predicate.
func (s *Store) FileByIDAndOwner(ctx context.Context, id, ownerID int64) (*StoredFile, error) {
	var f StoredFile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, display_name, storage_key, size_bytes, created_at
		 FROM files WHERE id = ? AND user_id = ?`,
		id, ownerID,
	).Scan(&f.ID, &f.OwnerID, &f.DisplayName, &f.StorageKey, &f.SizeBytes, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: "file_by_id", Err: err}
	}
	return &f, nil
}

// DeleteFileByIDAndOwner atomically removes the metadata row under the same
// ownership conjunction and returns the removed row's storage key.
func (s *Store) DeleteFileByIDAndOwner(ctx context.Context, id, ownerID int64) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM files WHERE id = ? AND user_id = ? RETURNING storage_key`,
		id, ownerID,
	).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", &StoreError{Op: "delete_file", Err: err}
	}
	return key, nil
}
