//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "genomap.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	exerciseStore(t, store)
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "genomap.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	m := testManifest("persisted", NewManifest("x").CreatedAt)
	if err := store.SaveManifest(ctx, m); err != nil {
		t.Fatalf("save manifest: %v", err)
	}
	if _, err := store.AppendRows(ctx, m.ID, testRows(4)); err != nil {
		t.Fatalf("append rows: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := NewSQLiteStore(dbPath)
	if err := reopened.Init(ctx); err != nil {
		t.Fatalf("reinit: %v", err)
	}
	t.Cleanup(func() {
		_ = reopened.Close()
	})
	loaded, ok, err := reopened.GetManifest(ctx, m.ID)
	if err != nil || !ok || loaded.NumRows != 4 {
		t.Fatalf("reload manifest: ok=%v rows=%d err=%v", ok, loaded.NumRows, err)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore("")
	if err := store.Init(context.Background()); err == nil {
		t.Fatal("expected path validation")
	}
	if _, err := store.GetRows(context.Background(), "x", 0, 0); err == nil {
		t.Fatal("expected error before init")
	}
}
