package evo

import (
	"errors"
	"math/rand"

	"molevo/internal/model"
)

var (
	// ErrNoMutationSite signals that the genotype offers no position the
	// operator can act on. Callers treat it as a skippable condition, not
	// a run failure.
	ErrNoMutationSite = errors.New("genotype has no applicable mutation site")

	ErrEmptyGenotype = errors.New("genotype has no blocks")
)

// Mutation rewrites a single genotype. Implementations never modify the
// input; they return a fresh genotype built from a clone.
type Mutation interface {
	Name() string
	Apply(rng *rand.Rand, g model.Genotype) (model.Genotype, error)
}

// Crossover combines two parent genotypes into one or more offspring
// genotypes. Parents are never modified.
type Crossover interface {
	Name() string
	Apply(rng *rand.Rand, a, b model.Genotype) ([]model.Genotype, error)
}

// WeightedMutation pairs a mutation with its selection weight inside a
// mutation policy.
type WeightedMutation struct {
	Operator Mutation
	Weight   float64
}

// WeightedCrossover pairs a crossover with its selection weight inside a
// crossover policy.
type WeightedCrossover struct {
	Operator Crossover
	Weight   float64
}
