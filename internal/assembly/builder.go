package assembly

import (
	"errors"
	"fmt"

	"molevo/internal/chem"
	"molevo/internal/model"
)

// Topology graph names understood by LibraryBuilder.
const (
	TopologyLinear = "linear"
	TopologyRing   = "ring"
)

// MinRingBlocks is the smallest block count that can close into a ring.
const MinRingBlocks = 3

var (
	ErrUnknownBlock    = errors.New("unknown building block")
	ErrEmptyGenotype   = errors.New("genotype has no building blocks")
	ErrUnknownTopology = errors.New("unknown topology")
	ErrRingTooSmall    = errors.New("ring topology requires at least 3 blocks")
)

// Builder assembles a molecular structure from a genotype. Failures are
// construction failures in the engine's error taxonomy: the candidate is
// marked failed and nothing is cached.
type Builder interface {
	Name() string
	Build(genotype model.Genotype) (model.Structure, error)
}

// LibraryBuilder assembles fragments from a Library by joining consecutive
// blocks tail-to-head with single bonds; ring topologies additionally close
// the last tail back onto the first head.
type LibraryBuilder struct {
	Library *Library
}

func (b LibraryBuilder) Name() string {
	return "library"
}

func (b LibraryBuilder) Build(genotype model.Genotype) (model.Structure, error) {
	if b.Library == nil {
		return model.Structure{}, errors.New("builder has no library")
	}
	if len(genotype.Blocks) == 0 {
		return model.Structure{}, ErrEmptyGenotype
	}
	switch genotype.Topology {
	case TopologyLinear:
	case TopologyRing:
		if len(genotype.Blocks) < MinRingBlocks {
			return model.Structure{}, ErrRingTooSmall
		}
	default:
		return model.Structure{}, fmt.Errorf("%w: %s", ErrUnknownTopology, genotype.Topology)
	}

	var structure model.Structure
	heads := make([]int, 0, len(genotype.Blocks))
	tails := make([]int, 0, len(genotype.Blocks))

	for _, name := range genotype.Blocks {
		block, ok := b.Library.Get(name)
		if !ok {
			return model.Structure{}, fmt.Errorf("%w: %s", ErrUnknownBlock, name)
		}
		offset := len(structure.Atoms)
		structure.Atoms = append(structure.Atoms, block.Atoms...)
		for _, bond := range block.Bonds {
			structure.Bonds = append(structure.Bonds, model.Bond{
				A:     bond.A + offset,
				B:     bond.B + offset,
				Order: bond.Order,
			})
		}
		heads = append(heads, block.Head+offset)
		tails = append(tails, block.Tail+offset)
	}

	for i := 1; i < len(genotype.Blocks); i++ {
		structure.Bonds = append(structure.Bonds, model.Bond{A: tails[i-1], B: heads[i], Order: 1})
	}
	if genotype.Topology == TopologyRing {
		structure.Bonds = append(structure.Bonds, model.Bond{A: tails[len(tails)-1], B: heads[0], Order: 1})
	}

	if err := chem.Validate(structure); err != nil {
		return model.Structure{}, fmt.Errorf("assembled structure invalid: %w", err)
	}
	return structure, nil
}
