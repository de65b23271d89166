package storage

import "testing"

func TestNewStoreKinds(t *testing.T) {
	for _, kind := range []string{"", "memory", "sqlite", "badger"} {
		if _, err := NewStore(kind, "ignored"); err != nil {
			t.Fatalf("kind %q: %v", kind, err)
		}
	}
	if _, err := NewStore("mongodb", ""); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}

func TestCloseIfSupported(t *testing.T) {
	if err := CloseIfSupported(NewMemoryStore()); err != nil {
		t.Fatalf("memory close: %v", err)
	}
	if err := CloseIfSupported(NewSQLiteStore("x.db")); err != nil {
		t.Fatalf("uninitialized sqlite close: %v", err)
	}
}
