package evo

import (
	"fmt"
	"math"

	"molevo/internal/model"
)

const sizePenaltyPerBlock = 0.05

// FitnessNormalizer adjusts raw objective scores after evaluation and before
// ranking. Raw scores stay in the cache untouched; normalization applies per
// run, so the same cached record can feed runs with different normalizers.
type FitnessNormalizer interface {
	Name() string
	Normalize(scored []model.Candidate) []model.Candidate
}

type NoopNormalizer struct{}

func (NoopNormalizer) Name() string {
	return "none"
}

func (NoopNormalizer) Normalize(scored []model.Candidate) []model.Candidate {
	return cloneScored(scored)
}

// SizePenaltyNormalizer subtracts a per-block penalty so block-count growth
// has to pay for itself in raw fitness. Works for both signs of score.
type SizePenaltyNormalizer struct {
	PerBlock float64
}

func (SizePenaltyNormalizer) Name() string {
	return "size_penalty"
}

func (n SizePenaltyNormalizer) Normalize(scored []model.Candidate) []model.Candidate {
	perBlock := n.PerBlock
	if perBlock <= 0 {
		perBlock = sizePenaltyPerBlock
	}
	out := cloneScored(scored)
	for i := range out {
		if out[i].Fitness == nil {
			continue
		}
		normalized := *out[i].Fitness - perBlock*math.Max(1, float64(len(out[i].Genotype.Blocks)))
		out[i].Fitness = &normalized
	}
	return out
}

// NormalizerFromName resolves the configured normalizer.
func NormalizerFromName(name string) (FitnessNormalizer, error) {
	switch name {
	case "", "none":
		return NoopNormalizer{}, nil
	case "size_penalty":
		return SizePenaltyNormalizer{}, nil
	default:
		return nil, fmt.Errorf("unknown fitness normalizer: %s", name)
	}
}

func cloneScored(scored []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, len(scored))
	for i := range scored {
		out[i] = scored[i].Clone()
	}
	return out
}
