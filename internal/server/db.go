package server

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDB opens the embedded SQLite database. Foreign keys are enforced and
// writers wait on the busy timeout instead of failing, which is how
// conflicting writes from concurrent requests get serialized.
func OpenDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer at a time; a small pool is plenty.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Validate connectivity immediately.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// BootstrapAdmin seeds the first admin account when the users table is
// empty, so a fresh deployment has someone who can log in and create the
// rest. No-op once any user exists.
func BootstrapAdmin(ctx context.Context, db *sql.DB, username, password string) error {
	store := NewStore(db)
	n, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if err := validateNewUser(username, password); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	_, err = store.CreateUser(ctx, username, hash, true)
	return err
}
