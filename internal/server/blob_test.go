package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDiskStoreRoundtrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	content := []byte("test content")
	n, err := store.Put(ctx, "key1", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if n != int64(len(content)) {
		t.Errorf("expected %d bytes written, got %d", len(content), n)
	}

	rc, err := store.Open(ctx, "key1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content mismatch: %q", got)
	}
}

func TestDiskStoreOpenMissing(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := store.Open(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDiskStoreRemoveIdempotent(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Put(ctx, "key1", strings.NewReader("x")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Remove(ctx, "key1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Removing an already-removed key succeeds.
	if err := store.Remove(ctx, "key1"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestDiskStoreRejectsPathKeys(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", ".", "..", "../escape", "a/b", `a\b`} {
		if _, err := store.Put(ctx, key, strings.NewReader("x")); err == nil {
			t.Errorf("Put accepted key %q", key)
		}
		if _, err := store.Open(ctx, key); err == nil {
			t.Errorf("Open accepted key %q", key)
		}
		if err := store.Remove(ctx, key); err == nil {
			t.Errorf("Remove accepted key %q", key)
		}
	}
}

func TestDiskStoreDuplicateKey(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := store.Put(ctx, "key1", strings.NewReader("a")); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Keys are collision-resistant by construction; an actual collision is
	// a bug and must not silently overwrite.
	if _, err := store.Put(ctx, "key1", strings.NewReader("b")); err == nil {
		t.Fatalf("expected error on duplicate key")
	}
}

func TestDiskStoreCheck(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := store.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
}
