package evo

import (
	"context"
	"errors"
	"testing"

	"molevo/internal/assembly"
	"molevo/internal/cache"
	"molevo/internal/model"
	"molevo/internal/objective"
	"molevo/internal/storage"
)

func newTestCache(t *testing.T, collection string) *cache.ResultCache {
	t.Helper()
	store := storage.NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	rc, err := cache.New(store, cache.Config{Collection: collection})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return rc
}

func newTestEvaluator(t *testing.T, obj objective.Objective) *Evaluator {
	t.Helper()
	builder := assembly.LibraryBuilder{Library: assembly.DefaultLibrary()}
	ev, err := NewEvaluator(builder, obj, newTestCache(t, obj.Name()))
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	return ev
}

type failingObjective struct{}

func (failingObjective) Name() string {
	return "failing"
}

func (failingObjective) Score(context.Context, model.Structure) (float64, error) {
	return 0, errors.New("quantum solver crashed")
}

func TestEvaluateScoresCandidate(t *testing.T) {
	ev := newTestEvaluator(t, objective.RotatableBonds{})
	candidate := model.Candidate{ID: "c1", Genotype: testGenotype("ethylene", "ether", "amine")}

	scored, err := ev.Evaluate(context.Background(), candidate)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !scored.Scored() {
		t.Fatalf("expected valid score, got failure=%q", scored.Failure)
	}
	if scored.Fingerprint == "" {
		t.Fatal("fingerprint must be populated")
	}
	if scored.Structure == nil {
		t.Fatal("structure must be populated")
	}
}

func TestEvaluateContainsConstructionFailure(t *testing.T) {
	ev := newTestEvaluator(t, objective.RotatableBonds{})
	candidate := model.Candidate{ID: "c1", Genotype: testGenotype("no_such_block")}

	scored, err := ev.Evaluate(context.Background(), candidate)
	if err != nil {
		t.Fatalf("construction failure must be contained, got %v", err)
	}
	if scored.Failure != model.FailureConstruction {
		t.Fatalf("expected construction failure, got %q", scored.Failure)
	}
	if scored.Fitness != nil {
		t.Fatal("failed candidate must not carry fitness")
	}
}

func TestEvaluateContainsEvaluationFailure(t *testing.T) {
	ev := newTestEvaluator(t, failingObjective{})
	candidate := model.Candidate{ID: "c1", Genotype: testGenotype("ethylene", "ether")}

	scored, err := ev.Evaluate(context.Background(), candidate)
	if err != nil {
		t.Fatalf("evaluation failure must be contained, got %v", err)
	}
	if scored.Failure != model.FailureEvaluation {
		t.Fatalf("expected evaluation failure, got %q", scored.Failure)
	}

	if _, ok, err := ev.Cache.Peek(context.Background(), scored.Fingerprint); err != nil {
		t.Fatalf("peek: %v", err)
	} else if ok {
		t.Fatal("failed evaluation must not be cached")
	}
}

func TestEvaluateHitsCacheOnSecondCall(t *testing.T) {
	ev := newTestEvaluator(t, objective.RotatableBonds{})
	candidate := model.Candidate{ID: "c1", Genotype: testGenotype("ethylene", "ether", "amine")}

	first, err := ev.Evaluate(context.Background(), candidate)
	if err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	second, err := ev.Evaluate(context.Background(), candidate)
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}

	if *first.Fitness != *second.Fitness {
		t.Fatalf("cached fitness mismatch: %g vs %g", *first.Fitness, *second.Fitness)
	}
	stats := ev.Cache.Stats()
	if stats.Computes != 1 {
		t.Fatalf("expected a single computation, got %d", stats.Computes)
	}
	if stats.Hits == 0 {
		t.Fatal("second evaluation must hit the cache")
	}
}

type unreachableStore struct {
	storage.Store
}

func (unreachableStore) GetCacheRecord(context.Context, string, string) (model.CacheRecord, bool, error) {
	return model.CacheRecord{}, false, errors.New("connection refused")
}

func TestEvaluateSurfacesCacheUnavailable(t *testing.T) {
	rc, err := cache.New(unreachableStore{Store: storage.NewMemoryStore()}, cache.Config{Collection: "x"})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	builder := assembly.LibraryBuilder{Library: assembly.DefaultLibrary()}
	ev, err := NewEvaluator(builder, objective.RotatableBonds{}, rc)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}

	_, err = ev.Evaluate(context.Background(), model.Candidate{ID: "c1", Genotype: testGenotype("ethylene")})
	if !errors.Is(err, cache.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
