package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"molevo/internal/model"
)

// ErrNoParents signals an empty parent pool: every candidate in the current
// generation failed, so breeding cannot proceed.
var ErrNoParents = errors.New("no validly scored candidates to select from")

// ParentSelector chooses a parent from the ranked pool of validly scored
// candidates. The pool is sorted by fitness descending with fingerprint
// tie-breaks; failed candidates are never in the pool.
type ParentSelector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked []model.Candidate) (model.Candidate, error)
}

// RouletteSelector picks parents with probability proportional to fitness.
// Non-positive fitness values are handled by shifting all weights so the
// worst candidate still has a small positive share.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return "roulette"
}

func (RouletteSelector) PickParent(rng *rand.Rand, ranked []model.Candidate) (model.Candidate, error) {
	if rng == nil {
		return model.Candidate{}, errors.New("random source is required")
	}
	if len(ranked) == 0 {
		return model.Candidate{}, ErrNoParents
	}

	minFitness := *ranked[0].Fitness
	maxFitness := minFitness
	for _, c := range ranked[1:] {
		if *c.Fitness < minFitness {
			minFitness = *c.Fitness
		}
		if *c.Fitness > maxFitness {
			maxFitness = *c.Fitness
		}
	}
	shift := 0.0
	if minFitness <= 0 {
		// Floor proportional to the fitness range so the worst candidate
		// keeps a small but real share instead of collapsing to zero.
		shift = -minFitness + 0.05*(maxFitness-minFitness)
	}

	total := 0.0
	for _, c := range ranked {
		total += *c.Fitness + shift
	}
	if total <= 0 {
		return ranked[rng.Intn(len(ranked))], nil
	}

	pick := rng.Float64() * total
	acc := 0.0
	for _, c := range ranked {
		acc += *c.Fitness + shift
		if pick <= acc {
			return c, nil
		}
	}
	return ranked[len(ranked)-1], nil
}

// TournamentSelector samples Size candidates uniformly and returns the best
// among them. Ties go to the lexicographically smaller fingerprint so runs
// stay deterministic under a fixed seed.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked []model.Candidate) (model.Candidate, error) {
	if rng == nil {
		return model.Candidate{}, errors.New("random source is required")
	}
	if len(ranked) == 0 {
		return model.Candidate{}, ErrNoParents
	}

	size := s.Size
	if size <= 0 {
		size = 3
	}
	if size > len(ranked) {
		size = len(ranked)
	}

	best := ranked[rng.Intn(len(ranked))]
	for i := 1; i < size; i++ {
		candidate := ranked[rng.Intn(len(ranked))]
		if betterScored(candidate, best) {
			best = candidate
		}
	}
	return best, nil
}

// RankSelector picks by linear rank: the best candidate has weight n, the
// worst weight 1. Less greedy than roulette when fitness values span orders
// of magnitude.
type RankSelector struct{}

func (RankSelector) Name() string {
	return "rank"
}

func (RankSelector) PickParent(rng *rand.Rand, ranked []model.Candidate) (model.Candidate, error) {
	if rng == nil {
		return model.Candidate{}, errors.New("random source is required")
	}
	if len(ranked) == 0 {
		return model.Candidate{}, ErrNoParents
	}

	n := len(ranked)
	total := n * (n + 1) / 2
	pick := rng.Intn(total)
	acc := 0
	for i, c := range ranked {
		acc += n - i
		if pick < acc {
			return c, nil
		}
	}
	return ranked[n-1], nil
}

// ParentSelectorFromName resolves the configured selector name.
func ParentSelectorFromName(name string, tournamentSize int) (ParentSelector, error) {
	switch name {
	case "", "roulette":
		return RouletteSelector{}, nil
	case "tournament":
		return TournamentSelector{Size: tournamentSize}, nil
	case "rank":
		return RankSelector{}, nil
	default:
		return nil, fmt.Errorf("unknown parent selector: %s", name)
	}
}

// betterScored orders two validly scored candidates: higher fitness wins,
// fingerprint breaks ties.
func betterScored(a, b model.Candidate) bool {
	if *a.Fitness != *b.Fitness {
		return *a.Fitness > *b.Fitness
	}
	return a.Fingerprint < b.Fingerprint
}

// RankByFitness sorts scored candidates best-first with deterministic
// fingerprint tie-breaks and returns a new slice.
func RankByFitness(scored []model.Candidate) []model.Candidate {
	ranked := make([]model.Candidate, len(scored))
	copy(ranked, scored)
	sort.Slice(ranked, func(i, j int) bool {
		return betterScored(ranked[i], ranked[j])
	})
	return ranked
}
