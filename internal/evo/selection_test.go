package evo

import (
	"errors"
	"math/rand"
	"testing"

	"molevo/internal/model"
)

func scoredCandidate(id, fingerprint string, fitness float64) model.Candidate {
	return model.Candidate{
		ID:          id,
		Fingerprint: fingerprint,
		Fitness:     &fitness,
	}
}

func testPool() []model.Candidate {
	return []model.Candidate{
		scoredCandidate("a", "fp-a", 10),
		scoredCandidate("b", "fp-b", 5),
		scoredCandidate("c", "fp-c", 1),
	}
}

func TestRankByFitnessOrdersBestFirst(t *testing.T) {
	ranked := RankByFitness([]model.Candidate{
		scoredCandidate("low", "fp-l", 1),
		scoredCandidate("high", "fp-h", 10),
		scoredCandidate("mid", "fp-m", 5),
	})
	if ranked[0].ID != "high" || ranked[1].ID != "mid" || ranked[2].ID != "low" {
		t.Fatalf("wrong order: %s %s %s", ranked[0].ID, ranked[1].ID, ranked[2].ID)
	}
}

func TestRankByFitnessBreaksTiesByFingerprint(t *testing.T) {
	ranked := RankByFitness([]model.Candidate{
		scoredCandidate("second", "fp-z", 5),
		scoredCandidate("first", "fp-a", 5),
	})
	if ranked[0].ID != "first" {
		t.Fatalf("tie must go to smaller fingerprint, got %s", ranked[0].ID)
	}
}

func TestSelectorsRejectEmptyPool(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, s := range []ParentSelector{RouletteSelector{}, TournamentSelector{}, RankSelector{}} {
		if _, err := s.PickParent(rng, nil); !errors.Is(err, ErrNoParents) {
			t.Fatalf("%s: expected ErrNoParents, got %v", s.Name(), err)
		}
	}
}

func TestSelectorsRequireRand(t *testing.T) {
	for _, s := range []ParentSelector{RouletteSelector{}, TournamentSelector{}, RankSelector{}} {
		if _, err := s.PickParent(nil, testPool()); err == nil {
			t.Fatalf("%s: expected error for nil rng", s.Name())
		}
	}
}

func TestRouletteHandlesNegativeFitness(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	pool := []model.Candidate{
		scoredCandidate("a", "fp-a", -1),
		scoredCandidate("b", "fp-b", -5),
		scoredCandidate("c", "fp-c", -10),
	}

	counts := map[string]int{}
	for i := 0; i < 2000; i++ {
		parent, err := RouletteSelector{}.PickParent(rng, pool)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		counts[parent.ID]++
	}
	if counts["a"] <= counts["c"] {
		t.Fatalf("least-negative candidate must be favored: a=%d c=%d", counts["a"], counts["c"])
	}
	if counts["c"] == 0 {
		t.Fatal("worst candidate must retain a nonzero share")
	}
}

func TestTournamentFavorsBetter(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pool := testPool()

	counts := map[string]int{}
	for i := 0; i < 2000; i++ {
		parent, err := TournamentSelector{Size: 2}.PickParent(rng, pool)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		counts[parent.ID]++
	}
	if counts["a"] <= counts["c"] {
		t.Fatalf("best candidate must win more tournaments: a=%d c=%d", counts["a"], counts["c"])
	}
}

func TestRankSelectorWeightsByPosition(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	pool := testPool()

	counts := map[string]int{}
	for i := 0; i < 3000; i++ {
		parent, err := RankSelector{}.PickParent(rng, pool)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		counts[parent.ID]++
	}
	if counts["a"] <= counts["b"] || counts["b"] <= counts["c"] {
		t.Fatalf("rank weights must decrease: a=%d b=%d c=%d", counts["a"], counts["b"], counts["c"])
	}
}

func TestParentSelectorFromName(t *testing.T) {
	for _, name := range []string{"", "roulette", "tournament", "rank"} {
		if _, err := ParentSelectorFromName(name, 3); err != nil {
			t.Fatalf("%q: %v", name, err)
		}
	}
	if _, err := ParentSelectorFromName("bogus", 0); err == nil {
		t.Fatal("expected error for unknown selector")
	}
}
