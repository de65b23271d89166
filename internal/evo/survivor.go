package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"molevo/internal/model"
)

// SurvivorSelector builds the next working population from the current
// generation's validly scored candidates plus the freshly bred, not yet
// evaluated offspring. It must return exactly target candidates; offspring
// carry no fitness and are evaluated at the start of the next generation.
type SurvivorSelector interface {
	Name() string
	ChooseSurvivors(rng *rand.Rand, evaluated, offspring []model.Candidate, target int) ([]model.Candidate, error)
}

// ElitistSurvivors keeps the top EliteCount evaluated candidates, deduplicated
// by fingerprint, then fills with offspring and finally with the best of the
// remaining evaluated pool.
type ElitistSurvivors struct {
	EliteCount int
}

func (ElitistSurvivors) Name() string {
	return "elitist"
}

func (s ElitistSurvivors) ChooseSurvivors(rng *rand.Rand, evaluated, offspring []model.Candidate, target int) ([]model.Candidate, error) {
	if target <= 0 {
		return nil, fmt.Errorf("target population must be > 0, got %d", target)
	}
	if s.EliteCount < 0 {
		return nil, fmt.Errorf("elite count must be >= 0, got %d", s.EliteCount)
	}

	ranked := RankByFitness(evaluated)
	next := make([]model.Candidate, 0, target)
	seen := make(map[string]struct{}, s.EliteCount)

	for _, c := range ranked {
		if len(next) >= s.EliteCount || len(next) >= target {
			break
		}
		if _, dup := seen[c.Fingerprint]; dup {
			continue
		}
		seen[c.Fingerprint] = struct{}{}
		next = append(next, c.Clone())
	}

	for _, c := range offspring {
		if len(next) >= target {
			break
		}
		next = append(next, c.Clone())
	}

	for _, c := range ranked {
		if len(next) >= target {
			break
		}
		if _, dup := seen[c.Fingerprint]; dup {
			continue
		}
		seen[c.Fingerprint] = struct{}{}
		next = append(next, c.Clone())
	}

	// Degenerate pools (mass failures plus too few offspring) fall back to
	// repeating the best survivor so the population size invariant holds.
	if len(next) == 0 {
		return nil, errors.New("no candidates available to form the next generation")
	}
	for len(next) < target {
		next = append(next, next[0].Clone())
	}
	return next, nil
}

// GenerationalSurvivors replaces the population with offspring first, topping
// up from the evaluated pool only when too few offspring were bred.
type GenerationalSurvivors struct{}

func (GenerationalSurvivors) Name() string {
	return "generational"
}

func (GenerationalSurvivors) ChooseSurvivors(rng *rand.Rand, evaluated, offspring []model.Candidate, target int) ([]model.Candidate, error) {
	if target <= 0 {
		return nil, fmt.Errorf("target population must be > 0, got %d", target)
	}

	next := make([]model.Candidate, 0, target)
	for _, c := range offspring {
		if len(next) >= target {
			break
		}
		next = append(next, c.Clone())
	}
	for _, c := range RankByFitness(evaluated) {
		if len(next) >= target {
			break
		}
		next = append(next, c.Clone())
	}

	if len(next) == 0 {
		return nil, errors.New("no candidates available to form the next generation")
	}
	for len(next) < target {
		next = append(next, next[0].Clone())
	}
	return next, nil
}

// ElitistRandomSurvivors keeps the elites and fills the remainder uniformly
// at random from the combined offspring and non-elite evaluated pool. Keeps
// more diversity than pure elitism at the cost of slower convergence.
type ElitistRandomSurvivors struct {
	EliteCount int
}

func (ElitistRandomSurvivors) Name() string {
	return "elitist_random"
}

func (s ElitistRandomSurvivors) ChooseSurvivors(rng *rand.Rand, evaluated, offspring []model.Candidate, target int) ([]model.Candidate, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if target <= 0 {
		return nil, fmt.Errorf("target population must be > 0, got %d", target)
	}
	if s.EliteCount < 0 {
		return nil, fmt.Errorf("elite count must be >= 0, got %d", s.EliteCount)
	}

	ranked := RankByFitness(evaluated)
	next := make([]model.Candidate, 0, target)
	seen := make(map[string]struct{}, s.EliteCount)

	eliteEnd := 0
	for _, c := range ranked {
		if len(next) >= s.EliteCount || len(next) >= target {
			break
		}
		if _, dup := seen[c.Fingerprint]; dup {
			eliteEnd++
			continue
		}
		seen[c.Fingerprint] = struct{}{}
		next = append(next, c.Clone())
		eliteEnd++
	}

	pool := make([]model.Candidate, 0, len(offspring)+len(ranked)-eliteEnd)
	pool = append(pool, offspring...)
	pool = append(pool, ranked[eliteEnd:]...)

	for len(next) < target && len(pool) > 0 {
		idx := rng.Intn(len(pool))
		next = append(next, pool[idx].Clone())
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	if len(next) == 0 {
		return nil, errors.New("no candidates available to form the next generation")
	}
	for len(next) < target {
		next = append(next, next[0].Clone())
	}
	return next, nil
}

// SurvivorSelectorFromName resolves the configured survivor strategy.
func SurvivorSelectorFromName(name string, eliteCount int) (SurvivorSelector, error) {
	switch name {
	case "", "elitist":
		return ElitistSurvivors{EliteCount: eliteCount}, nil
	case "generational":
		return GenerationalSurvivors{}, nil
	case "elitist_random":
		return ElitistRandomSurvivors{EliteCount: eliteCount}, nil
	default:
		return nil, fmt.Errorf("unknown survivor selector: %s", name)
	}
}
