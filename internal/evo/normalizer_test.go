package evo

import (
	"testing"

	"molevo/internal/model"
)

func TestNoopNormalizerLeavesScoresAlone(t *testing.T) {
	scored := []model.Candidate{scoredCandidate("a", "fp-a", 3.5)}
	out := NoopNormalizer{}.Normalize(scored)
	if *out[0].Fitness != 3.5 {
		t.Fatalf("noop changed fitness: %g", *out[0].Fitness)
	}
}

func TestSizePenaltySubtractsPerBlock(t *testing.T) {
	small := scoredCandidate("small", "fp-s", 10)
	small.Genotype = testGenotype("ethylene", "ether")
	large := scoredCandidate("large", "fp-l", 10)
	large.Genotype = testGenotype("ethylene", "ether", "amine", "carbonyl")

	out := SizePenaltyNormalizer{PerBlock: 1}.Normalize([]model.Candidate{small, large})
	if *out[0].Fitness != 8 {
		t.Fatalf("small: got %g want 8", *out[0].Fitness)
	}
	if *out[1].Fitness != 6 {
		t.Fatalf("large: got %g want 6", *out[1].Fitness)
	}
	if *small.Fitness != 10 {
		t.Fatal("input candidate was modified")
	}
}

func TestSizePenaltySkipsUnscored(t *testing.T) {
	out := SizePenaltyNormalizer{}.Normalize([]model.Candidate{{ID: "failed", Failure: model.FailureConstruction}})
	if out[0].Fitness != nil {
		t.Fatal("unscored candidate must stay unscored")
	}
}

func TestNormalizerFromName(t *testing.T) {
	for _, name := range []string{"", "none", "size_penalty"} {
		if _, err := NormalizerFromName(name); err != nil {
			t.Fatalf("%q: %v", name, err)
		}
	}
	if _, err := NormalizerFromName("bogus"); err == nil {
		t.Fatal("expected error for unknown normalizer")
	}
}
