package storage

import "fmt"

// DefaultStoreKind is the backend used when drivers do not choose one.
func DefaultStoreKind() string {
	return "memory"
}

// NewStore builds a store backend. path is the sqlite database file or the
// badger data directory; badger with an empty path runs in memory.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(path), nil
	case "badger":
		return NewBadgerStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
