package conversation

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "history.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Save(ctx, message(i)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	recent, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Recent(3) len = %d, want 3", len(recent))
	}
	if recent[0].Original != "original 2" || recent[2].Original != "original 4" {
		t.Errorf("Recent(3) = %q .. %q, want original 2 .. original 4", recent[0].Original, recent[2].Original)
	}
	if recent[0].SourceLanguage != "fr" || recent[0].Direction != SourceToTarget {
		t.Errorf("fields not round-tripped: %+v", recent[0])
	}
	if !recent[2].Timestamp.Equal(message(4).Timestamp) {
		t.Errorf("Timestamp = %v, want %v", recent[2].Timestamp, message(4).Timestamp)
	}

	all, err := store.Recent(ctx, 0)
	if err != nil || len(all) != 5 {
		t.Errorf("Recent(0) len = %d, err = %v", len(all), err)
	}
}

func TestSQLiteStore_SaveIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := message(1)

	store.Save(ctx, m)
	store.Save(ctx, m)

	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestSQLiteStore_DeleteAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		store.Save(ctx, message(i))
	}

	removed, err := store.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("DeleteAll() = %d, want 3", removed)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
