package evo

import (
	"errors"
	"math/rand"

	"molevo/internal/assembly"
	"molevo/internal/model"
)

// SubstituteBlock replaces one block with a different block drawn from the
// library.
type SubstituteBlock struct {
	Library *assembly.Library
}

func (o SubstituteBlock) Name() string {
	return "substitute_block"
}

func (o SubstituteBlock) Apply(rng *rand.Rand, g model.Genotype) (model.Genotype, error) {
	if rng == nil {
		return model.Genotype{}, errors.New("random source is required")
	}
	if o.Library == nil {
		return model.Genotype{}, errors.New("block library is required")
	}
	if len(g.Blocks) == 0 {
		return model.Genotype{}, ErrEmptyGenotype
	}

	idx := rng.Intn(len(g.Blocks))
	replacement, ok := pickOtherBlock(rng, o.Library, g.Blocks[idx])
	if !ok {
		return model.Genotype{}, ErrNoMutationSite
	}

	mutated := g.Clone()
	mutated.Blocks[idx] = replacement
	return mutated, nil
}

// InsertBlock inserts a random library block at a random position, growing
// the genotype by one block. MaxBlocks of zero means unbounded.
type InsertBlock struct {
	Library   *assembly.Library
	MaxBlocks int
}

func (o InsertBlock) Name() string {
	return "insert_block"
}

func (o InsertBlock) Apply(rng *rand.Rand, g model.Genotype) (model.Genotype, error) {
	if rng == nil {
		return model.Genotype{}, errors.New("random source is required")
	}
	if o.Library == nil {
		return model.Genotype{}, errors.New("block library is required")
	}
	if o.MaxBlocks > 0 && len(g.Blocks) >= o.MaxBlocks {
		return model.Genotype{}, ErrNoMutationSite
	}

	names := o.Library.Names()
	if len(names) == 0 {
		return model.Genotype{}, ErrNoMutationSite
	}
	block := names[rng.Intn(len(names))]
	pos := rng.Intn(len(g.Blocks) + 1)

	mutated := g.Clone()
	mutated.Blocks = append(mutated.Blocks[:pos], append([]string{block}, mutated.Blocks[pos:]...)...)
	return mutated, nil
}

// RemoveBlock removes one block at a random position. The genotype must
// keep at least MinBlocks blocks after removal; a ring topology keeps at
// least the assembly minimum regardless.
type RemoveBlock struct {
	MinBlocks int
}

func (o RemoveBlock) Name() string {
	return "remove_block"
}

func (o RemoveBlock) Apply(rng *rand.Rand, g model.Genotype) (model.Genotype, error) {
	if rng == nil {
		return model.Genotype{}, errors.New("random source is required")
	}
	if len(g.Blocks) == 0 {
		return model.Genotype{}, ErrEmptyGenotype
	}

	floor := o.MinBlocks
	if floor < 1 {
		floor = 1
	}
	if g.Topology == assembly.TopologyRing && floor < assembly.MinRingBlocks {
		floor = assembly.MinRingBlocks
	}
	if len(g.Blocks) <= floor {
		return model.Genotype{}, ErrNoMutationSite
	}

	idx := rng.Intn(len(g.Blocks))
	mutated := g.Clone()
	mutated.Blocks = append(mutated.Blocks[:idx], mutated.Blocks[idx+1:]...)
	return mutated, nil
}

// SwapBlocks exchanges the positions of two distinct blocks.
type SwapBlocks struct{}

func (SwapBlocks) Name() string {
	return "swap_blocks"
}

func (SwapBlocks) Apply(rng *rand.Rand, g model.Genotype) (model.Genotype, error) {
	if rng == nil {
		return model.Genotype{}, errors.New("random source is required")
	}
	if len(g.Blocks) == 0 {
		return model.Genotype{}, ErrEmptyGenotype
	}
	if len(g.Blocks) < 2 {
		return model.Genotype{}, ErrNoMutationSite
	}

	i := rng.Intn(len(g.Blocks))
	j := rng.Intn(len(g.Blocks) - 1)
	if j >= i {
		j++
	}

	mutated := g.Clone()
	mutated.Blocks[i], mutated.Blocks[j] = mutated.Blocks[j], mutated.Blocks[i]
	return mutated, nil
}

// ChangeTopology flips the genotype between linear and ring assembly. A
// linear genotype too short to close into a ring has no mutation site.
type ChangeTopology struct{}

func (ChangeTopology) Name() string {
	return "change_topology"
}

func (ChangeTopology) Apply(rng *rand.Rand, g model.Genotype) (model.Genotype, error) {
	if rng == nil {
		return model.Genotype{}, errors.New("random source is required")
	}
	if len(g.Blocks) == 0 {
		return model.Genotype{}, ErrEmptyGenotype
	}

	mutated := g.Clone()
	switch g.Topology {
	case assembly.TopologyLinear:
		if len(g.Blocks) < assembly.MinRingBlocks {
			return model.Genotype{}, ErrNoMutationSite
		}
		mutated.Topology = assembly.TopologyRing
	case assembly.TopologyRing:
		mutated.Topology = assembly.TopologyLinear
	default:
		return model.Genotype{}, ErrNoMutationSite
	}
	return mutated, nil
}

func pickOtherBlock(rng *rand.Rand, library *assembly.Library, current string) (string, bool) {
	names := library.Names()
	others := make([]string, 0, len(names))
	for _, name := range names {
		if name != current {
			others = append(others, name)
		}
	}
	if len(others) == 0 {
		return "", false
	}
	return others[rng.Intn(len(others))], true
}
