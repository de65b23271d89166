// Package genotype seeds initial populations of buildable, structurally
// distinct candidates.
package genotype

import (
	"errors"
	"fmt"
	"math/rand"

	"molevo/internal/assembly"
	"molevo/internal/chem"
	"molevo/internal/model"
)

// SeedConfig controls random population seeding.
type SeedConfig struct {
	Library    *assembly.Library
	Builder    assembly.Builder
	Topologies []string
	Size       int
	MinBlocks  int
	MaxBlocks  int
	Seed       int64

	// MaxAttempts bounds the rejection sampling; zero picks Size * 50.
	MaxAttempts int
}

// SeedPopulation draws random genotypes, assembles them, and keeps only
// candidates whose structures are buildable and pairwise distinct by
// fingerprint. Seeds carry their structure and fingerprint so the first
// Evaluating phase skips reassembly.
func SeedPopulation(cfg SeedConfig) ([]model.Candidate, error) {
	if cfg.Library == nil {
		return nil, errors.New("block library is required")
	}
	if cfg.Builder == nil {
		return nil, errors.New("builder is required")
	}
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("population size must be > 0, got %d", cfg.Size)
	}
	if cfg.MinBlocks <= 0 {
		cfg.MinBlocks = 1
	}
	if cfg.MaxBlocks < cfg.MinBlocks {
		return nil, fmt.Errorf("max blocks (%d) must be >= min blocks (%d)", cfg.MaxBlocks, cfg.MinBlocks)
	}
	if len(cfg.Topologies) == 0 {
		cfg.Topologies = []string{assembly.TopologyLinear}
	}
	names := cfg.Library.Names()
	if len(names) == 0 {
		return nil, errors.New("block library is empty")
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = cfg.Size * 50
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	seen := make(map[string]struct{}, cfg.Size)
	population := make([]model.Candidate, 0, cfg.Size)

	for attempt := 0; attempt < maxAttempts && len(population) < cfg.Size; attempt++ {
		g := randomGenotype(rng, names, cfg.Topologies, cfg.MinBlocks, cfg.MaxBlocks)
		structure, err := cfg.Builder.Build(g)
		if err != nil {
			continue
		}
		fingerprint := chem.Fingerprint(structure)
		if _, dup := seen[fingerprint]; dup {
			continue
		}
		seen[fingerprint] = struct{}{}
		population = append(population, model.Candidate{
			ID:          fmt.Sprintf("seed-%d", len(population)),
			Genotype:    g,
			Structure:   &structure,
			Fingerprint: fingerprint,
		})
	}

	if len(population) < cfg.Size {
		return nil, fmt.Errorf("seeding exhausted %d attempts with %d of %d distinct candidates",
			maxAttempts, len(population), cfg.Size)
	}
	return population, nil
}

func randomGenotype(rng *rand.Rand, names, topologies []string, minBlocks, maxBlocks int) model.Genotype {
	topology := topologies[rng.Intn(len(topologies))]
	floor := minBlocks
	if topology == assembly.TopologyRing && floor < assembly.MinRingBlocks {
		floor = assembly.MinRingBlocks
	}
	size := floor
	if maxBlocks > floor {
		size = floor + rng.Intn(maxBlocks-floor+1)
	}
	blocks := make([]string, size)
	for i := range blocks {
		blocks[i] = names[rng.Intn(len(names))]
	}
	return model.Genotype{Blocks: blocks, Topology: topology}
}
