package indexer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCursorStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cursors.json")
	store := NewCursorStore(path, true)

	if _, ok, err := store.Load("SP1.mojo"); err != nil || ok {
		t.Fatalf("expected empty store, ok=%v err=%v", ok, err)
	}

	if err := store.Save("SP1.mojo", 150); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save("SP2.token", 50); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened := NewCursorStore(path, true)
	offset, ok, err := reopened.Load("SP1.mojo")
	if err != nil || !ok || offset != 150 {
		t.Fatalf("unexpected cursor offset=%d ok=%v err=%v", offset, ok, err)
	}
	offset, ok, err = reopened.Load("SP2.token")
	if err != nil || !ok || offset != 50 {
		t.Fatalf("unexpected cursor offset=%d ok=%v err=%v", offset, ok, err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind")
	}
}

func TestCursorStoreDisabled(t *testing.T) {
	store := NewCursorStore("", true)
	if err := store.Save("SP1.mojo", 10); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, _ := store.Load("SP1.mojo"); ok {
		t.Fatalf("disabled store must not load")
	}

	var nilStore *CursorStore
	if err := nilStore.Save("SP1.mojo", 10); err != nil {
		t.Fatalf("nil store save: %v", err)
	}
}

func TestCursorStoreRejectsDirectory(t *testing.T) {
	store := NewCursorStore(t.TempDir(), true)
	if _, _, err := store.Load("SP1.mojo"); err == nil {
		t.Fatalf("expected error for directory path")
	}
}
