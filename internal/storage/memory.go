package storage

import (
	"context"
	"sort"
	"sync"

	"molevo/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	cache       map[string]map[string]model.CacheRecord
	history     map[string][]float64
	generations map[string][]model.GenerationRecord
	top         map[string][]model.TopCandidateRecord
	lineage     map[string][]model.LineageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[string]map[string]model.CacheRecord)
	s.history = make(map[string][]float64)
	s.generations = make(map[string][]model.GenerationRecord)
	s.top = make(map[string][]model.TopCandidateRecord)
	s.lineage = make(map[string][]model.LineageRecord)
	return nil
}

func (s *MemoryStore) PutCacheRecord(_ context.Context, collection, key string, record model.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.cache[collection]
	if bucket == nil {
		bucket = make(map[string]model.CacheRecord)
		s.cache[collection] = bucket
	}
	if _, exists := bucket[key]; exists {
		return nil
	}
	bucket[key] = record
	return nil
}

func (s *MemoryStore) GetCacheRecord(_ context.Context, collection, key string) (model.CacheRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.cache[collection][key]
	return record, ok, nil
}

func (s *MemoryStore) CountCacheRecords(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.cache[collection])), nil
}

func (s *MemoryStore) AllCacheRecords(_ context.Context, collection string) ([]model.CacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.CacheRecord, 0, len(s.cache[collection]))
	for _, record := range s.cache[collection] {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Fingerprint < records[j].Fingerprint
	})
	return records, nil
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[runID] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}

func (s *MemoryStore) SaveGenerationRecords(_ context.Context, runID string, records []model.GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.GenerationRecord, len(records))
	copy(copied, records)
	s.generations[runID] = copied
	return nil
}

func (s *MemoryStore) GetGenerationRecords(_ context.Context, runID string) ([]model.GenerationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.generations[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.GenerationRecord, len(records))
	copy(copied, records)
	return copied, true, nil
}

func (s *MemoryStore) SaveTopCandidates(_ context.Context, runID string, top []model.TopCandidateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.TopCandidateRecord, len(top))
	copy(copied, top)
	s.top[runID] = copied
	return nil
}

func (s *MemoryStore) GetTopCandidates(_ context.Context, runID string) ([]model.TopCandidateRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	top, ok := s.top[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.TopCandidateRecord, len(top))
	copy(copied, top)
	return copied, true, nil
}

func (s *MemoryStore) SaveLineage(_ context.Context, runID string, lineage []model.LineageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.LineageRecord, len(lineage))
	copy(copied, lineage)
	s.lineage[runID] = copied
	return nil
}

func (s *MemoryStore) GetLineage(_ context.Context, runID string) ([]model.LineageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineage, ok := s.lineage[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.LineageRecord, len(lineage))
	copy(copied, lineage)
	return copied, true, nil
}
