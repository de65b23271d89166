package evo

import (
	"errors"
	"math/rand"

	"molevo/internal/model"
)

// OnePointCrossover cuts both parents at one point and swaps the suffixes,
// producing two offspring. Topology is inherited from the respective head
// parent.
type OnePointCrossover struct{}

func (OnePointCrossover) Name() string {
	return "one_point"
}

func (OnePointCrossover) Apply(rng *rand.Rand, a, b model.Genotype) ([]model.Genotype, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if len(a.Blocks) == 0 || len(b.Blocks) == 0 {
		return nil, ErrEmptyGenotype
	}
	if len(a.Blocks) < 2 || len(b.Blocks) < 2 {
		return nil, ErrNoMutationSite
	}

	cutA := 1 + rng.Intn(len(a.Blocks)-1)
	cutB := 1 + rng.Intn(len(b.Blocks)-1)

	first := model.Genotype{Topology: a.Topology}
	first.Blocks = append(append([]string{}, a.Blocks[:cutA]...), b.Blocks[cutB:]...)
	second := model.Genotype{Topology: b.Topology}
	second.Blocks = append(append([]string{}, b.Blocks[:cutB]...), a.Blocks[cutA:]...)

	return []model.Genotype{first, second}, nil
}

// UniformCrossover picks each position independently from either parent,
// over the shorter parent's length, producing one offspring per parent
// orientation.
type UniformCrossover struct{}

func (UniformCrossover) Name() string {
	return "uniform"
}

func (UniformCrossover) Apply(rng *rand.Rand, a, b model.Genotype) ([]model.Genotype, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if len(a.Blocks) == 0 || len(b.Blocks) == 0 {
		return nil, ErrEmptyGenotype
	}

	n := len(a.Blocks)
	if len(b.Blocks) < n {
		n = len(b.Blocks)
	}

	first := model.Genotype{Topology: a.Topology, Blocks: make([]string, n)}
	second := model.Genotype{Topology: b.Topology, Blocks: make([]string, n)}
	for i := 0; i < n; i++ {
		if rng.Intn(2) == 0 {
			first.Blocks[i] = a.Blocks[i]
			second.Blocks[i] = b.Blocks[i]
		} else {
			first.Blocks[i] = b.Blocks[i]
			second.Blocks[i] = a.Blocks[i]
		}
	}

	return []model.Genotype{first, second}, nil
}

// BlockExchange swaps one random block between the parents, keeping each
// parent's length and topology. This is the smallest possible recombination
// step.
type BlockExchange struct{}

func (BlockExchange) Name() string {
	return "block_exchange"
}

func (BlockExchange) Apply(rng *rand.Rand, a, b model.Genotype) ([]model.Genotype, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if len(a.Blocks) == 0 || len(b.Blocks) == 0 {
		return nil, ErrEmptyGenotype
	}

	i := rng.Intn(len(a.Blocks))
	j := rng.Intn(len(b.Blocks))

	first := a.Clone()
	second := b.Clone()
	first.Blocks[i], second.Blocks[j] = second.Blocks[j], first.Blocks[i]

	return []model.Genotype{first, second}, nil
}
