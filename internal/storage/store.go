package storage

import (
	"context"

	"molevo/internal/model"
)

// Store defines persistence operations for the result cache and per-run
// artifacts. Cache records are write-once: the first PutCacheRecord for a
// (collection, key) pair wins and later writes are ignored, so a committed
// record is immutable and safe to read without further synchronization.
type Store interface {
	Init(ctx context.Context) error

	PutCacheRecord(ctx context.Context, collection, key string, record model.CacheRecord) error
	GetCacheRecord(ctx context.Context, collection, key string) (model.CacheRecord, bool, error)
	CountCacheRecords(ctx context.Context, collection string) (int64, error)
	AllCacheRecords(ctx context.Context, collection string) ([]model.CacheRecord, error)

	SaveFitnessHistory(ctx context.Context, runID string, history []float64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error)
	SaveGenerationRecords(ctx context.Context, runID string, records []model.GenerationRecord) error
	GetGenerationRecords(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error)
	SaveTopCandidates(ctx context.Context, runID string, top []model.TopCandidateRecord) error
	GetTopCandidates(ctx context.Context, runID string) ([]model.TopCandidateRecord, bool, error)
	SaveLineage(ctx context.Context, runID string, lineage []model.LineageRecord) error
	GetLineage(ctx context.Context, runID string) ([]model.LineageRecord, bool, error)
}
