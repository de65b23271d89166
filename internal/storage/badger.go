package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"molevo/internal/model"
)

// BadgerStore persists records in an embedded Badger key/value store. An
// empty directory selects Badger's in-memory mode, used by tests.
type BadgerStore struct {
	dir string

	mu sync.RWMutex
	db *badger.DB
}

func NewBadgerStore(dir string) *BadgerStore {
	return &BadgerStore{dir: dir}
}

func (s *BadgerStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	var opts badger.Options
	if s.dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(s.dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func cacheKey(collection, key string) []byte {
	return []byte("c/" + collection + "/" + key)
}

func cachePrefix(collection string) []byte {
	return []byte("c/" + collection + "/")
}

func runKey(kind, runID string) []byte {
	return []byte(kind + "/" + runID)
}

func (s *BadgerStore) PutCacheRecord(_ context.Context, collection, key string, record model.CacheRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeCacheRecord(record)
	if err != nil {
		return err
	}

	return db.Update(func(txn *badger.Txn) error {
		k := cacheKey(collection, key)
		_, err := txn.Get(k)
		if err == nil {
			// First write wins.
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(k, payload)
	})
}

func (s *BadgerStore) GetCacheRecord(_ context.Context, collection, key string) (model.CacheRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.CacheRecord{}, false, err
	}

	var payload []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(collection, key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return model.CacheRecord{}, false, nil
		}
		return model.CacheRecord{}, false, err
	}

	record, err := DecodeCacheRecord(payload)
	if err != nil {
		return model.CacheRecord{}, false, fmt.Errorf("decode cache record %s/%s: %w", collection, key, err)
	}
	return record, true, nil
}

func (s *BadgerStore) CountCacheRecords(_ context.Context, collection string) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}

	var count int64
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := cachePrefix(collection)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *BadgerStore) AllCacheRecords(_ context.Context, collection string) ([]model.CacheRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var records []model.CacheRecord
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := cachePrefix(collection)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			payload, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			record, err := DecodeCacheRecord(payload)
			if err != nil {
				return fmt.Errorf("decode cache record in %s: %w", collection, err)
			}
			records = append(records, record)
		}
		return nil
	})
	return records, err
}

func (s *BadgerStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	payload, err := EncodeFitnessHistory(history)
	if err != nil {
		return err
	}
	return s.setRunBlob("h", runID, payload)
}

func (s *BadgerStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	payload, ok, err := s.getRunBlob("h", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	history, err := DecodeFitnessHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode fitness history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *BadgerStore) SaveGenerationRecords(_ context.Context, runID string, records []model.GenerationRecord) error {
	payload, err := EncodeGenerationRecords(records)
	if err != nil {
		return err
	}
	return s.setRunBlob("g", runID, payload)
}

func (s *BadgerStore) GetGenerationRecords(_ context.Context, runID string) ([]model.GenerationRecord, bool, error) {
	payload, ok, err := s.getRunBlob("g", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	records, err := DecodeGenerationRecords(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode generation records %s: %w", runID, err)
	}
	return records, true, nil
}

func (s *BadgerStore) SaveTopCandidates(_ context.Context, runID string, top []model.TopCandidateRecord) error {
	payload, err := EncodeTopCandidates(top)
	if err != nil {
		return err
	}
	return s.setRunBlob("t", runID, payload)
}

func (s *BadgerStore) GetTopCandidates(_ context.Context, runID string) ([]model.TopCandidateRecord, bool, error) {
	payload, ok, err := s.getRunBlob("t", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	top, err := DecodeTopCandidates(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode top candidates %s: %w", runID, err)
	}
	return top, true, nil
}

func (s *BadgerStore) SaveLineage(_ context.Context, runID string, lineage []model.LineageRecord) error {
	payload, err := EncodeLineage(lineage)
	if err != nil {
		return err
	}
	return s.setRunBlob("l", runID, payload)
}

func (s *BadgerStore) GetLineage(_ context.Context, runID string) ([]model.LineageRecord, bool, error) {
	payload, ok, err := s.getRunBlob("l", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	lineage, err := DecodeLineage(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode lineage %s: %w", runID, err)
	}
	return lineage, true, nil
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *BadgerStore) setRunBlob(kind, runID string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(kind, runID), payload)
	})
}

func (s *BadgerStore) getRunBlob(kind, runID string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(kind, runID))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *BadgerStore) getDB() (*badger.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}
