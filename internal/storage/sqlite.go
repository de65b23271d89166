package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"molevo/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) PutCacheRecord(ctx context.Context, collection, key string, record model.CacheRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeCacheRecord(record)
	if err != nil {
		return err
	}

	// First write wins: cache records are immutable once committed.
	_, err = db.ExecContext(ctx, `
		INSERT INTO cache_records (collection, key, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, key) DO NOTHING
	`, collection, key, record.SchemaVersion, record.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetCacheRecord(ctx context.Context, collection, key string) (model.CacheRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.CacheRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx,
		`SELECT payload FROM cache_records WHERE collection = ? AND key = ?`,
		collection, key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLiteStore) CountCacheRecords(ctx context.Context, collection string) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}

	var count int64
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_records WHERE collection = ?`, collection,
	).Scan(&count)
	return count, err
}

func (s *SQLiteStore) AllCacheRecords(ctx context.Context, collection string) ([]model.CacheRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT payload FROM cache_records WHERE collection = ? ORDER BY key`, collection,
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []model.CacheRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		record, err := DecodeCacheRecord(payload)
		if err != nil {
			return nil, fmt.Errorf("decode cache record in %s: %w", collection, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) SaveFitnessHistory(ctx context.Context, runID string, history []float64) error {
	payload, err := EncodeFitnessHistory(history)
	if err != nil {
		return err
	}
	return s.upsertRunBlob(ctx, "fitness_history", runID, payload)
}

func (s *SQLiteStore) GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error) {
	payload, ok, err := s.getRunBlob(ctx, "fitness_history", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	history, err := DecodeFitnessHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode fitness history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *SQLiteStore) SaveGenerationRecords(ctx context.Context, runID string, records []model.GenerationRecord) error {
	payload, err := EncodeGenerationRecords(records)
	if err != nil {
		return err
	}
	return s.upsertRunBlob(ctx, "generation_records", runID, payload)
}

func (s *SQLiteStore) GetGenerationRecords(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error) {
	payload, ok, err := s.getRunBlob(ctx, "generation_records", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	records, err := DecodeGenerationRecords(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode generation records %s: %w", runID, err)
	}
	return records, true, nil
}

func (s *SQLiteStore) SaveTopCandidates(ctx context.Context, runID string, top []model.TopCandidateRecord) error {
	payload, err := EncodeTopCandidates(top)
	if err != nil {
		return err
	}
	return s.upsertRunBlob(ctx, "top_candidates", runID, payload)
}

func (s *SQLiteStore) GetTopCandidates(ctx context.Context, runID string) ([]model.TopCandidateRecord, bool, error) {
	payload, ok, err := s.getRunBlob(ctx, "top_candidates", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	top, err := DecodeTopCandidates(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode top candidates %s: %w", runID, err)
	}
	return top, true, nil
}

func (s *SQLiteStore) SaveLineage(ctx context.Context, runID string, lineage []model.LineageRecord) error {
	payload, err := EncodeLineage(lineage)
	if err != nil {
		return err
	}
	return s.upsertRunBlob(ctx, "lineage", runID, payload)
}

func (s *SQLiteStore) GetLineage(ctx context.Context, runID string) ([]model.LineageRecord, bool, error) {
	payload, ok, err := s.getRunBlob(ctx, "lineage", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	lineage, err := DecodeLineage(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode lineage %s: %w", runID, err)
	}
	return lineage, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) upsertRunBlob(ctx context.Context, table, runID string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET payload = excluded.payload
	`, table), runID, payload)
	return err
}

func (s *SQLiteStore) getRunBlob(ctx context.Context, table, runID string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT payload FROM %s WHERE run_id = ?`, table), runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cache_records (
			collection TEXT NOT NULL,
			key TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (collection, key)
		);
		CREATE TABLE IF NOT EXISTS fitness_history (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS generation_records (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS top_candidates (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS lineage (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
