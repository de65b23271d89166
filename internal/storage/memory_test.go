package storage

import (
	"context"
	"testing"

	"molevo/internal/model"
)

func testCacheRecord(fingerprint string, fitness float64) model.CacheRecord {
	return model.CacheRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Fingerprint:     fingerprint,
		Fitness:         fitness,
		Objective:       "rotatable_bonds",
		CreatedAtUTC:    "2026-01-01T00:00:00Z",
	}
}

func TestMemoryStoreCacheRecordWriteOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	first := testCacheRecord("fp-1", 3.5)
	if err := store.PutCacheRecord(ctx, "runs", "fp-1", first); err != nil {
		t.Fatalf("put: %v", err)
	}

	overwrite := testCacheRecord("fp-1", -99)
	if err := store.PutCacheRecord(ctx, "runs", "fp-1", overwrite); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, ok, err := store.GetCacheRecord(ctx, "runs", "fp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected record")
	}
	if got.Fitness != first.Fitness {
		t.Fatalf("record mutated by second write: fitness=%f", got.Fitness)
	}

	count, err := store.CountCacheRecords(ctx, "runs")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestMemoryStoreCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := store.PutCacheRecord(ctx, "a", "k", testCacheRecord("k", 1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, ok, err := store.GetCacheRecord(ctx, "b", "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("record leaked across collections")
	}
}

func TestMemoryStoreAllCacheRecordsSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, fp := range []string{"c", "a", "b"} {
		if err := store.PutCacheRecord(ctx, "runs", fp, testCacheRecord(fp, 0)); err != nil {
			t.Fatalf("put %s: %v", fp, err)
		}
	}
	records, err := store.AllCacheRecords(ctx, "runs")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(records) != 3 || records[0].Fingerprint != "a" || records[2].Fingerprint != "c" {
		t.Fatalf("unexpected iteration order: %+v", records)
	}
}

func TestMemoryStoreRunArtifactsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	history := []float64{1, 2, 3}
	if err := store.SaveFitnessHistory(ctx, "run-1", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	gotHistory, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%v err=%v", ok, err)
	}
	if len(gotHistory) != 3 || gotHistory[2] != 3 {
		t.Fatalf("unexpected history: %v", gotHistory)
	}

	records := []model.GenerationRecord{{Generation: 1, BestFitness: 2.5, Evaluated: 4, Failures: 1}}
	if err := store.SaveGenerationRecords(ctx, "run-1", records); err != nil {
		t.Fatalf("save records: %v", err)
	}
	gotRecords, ok, err := store.GetGenerationRecords(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get records: ok=%v err=%v", ok, err)
	}
	if gotRecords[0].Failures != 1 {
		t.Fatalf("unexpected records: %+v", gotRecords)
	}

	lineage := []model.LineageRecord{{CandidateID: "c1", Generation: 1, Operation: "seed"}}
	if err := store.SaveLineage(ctx, "run-1", lineage); err != nil {
		t.Fatalf("save lineage: %v", err)
	}
	gotLineage, ok, err := store.GetLineage(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get lineage: ok=%v err=%v", ok, err)
	}
	if gotLineage[0].CandidateID != "c1" {
		t.Fatalf("unexpected lineage: %+v", gotLineage)
	}

	if _, ok, _ := store.GetFitnessHistory(ctx, "run-unknown"); ok {
		t.Fatal("unexpected hit for unknown run")
	}
}
