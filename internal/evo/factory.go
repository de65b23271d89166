package evo

import (
	"errors"
	"fmt"

	"molevo/internal/assembly"
)

// MutationFromName resolves a mutation by name, checking the registry first
// so externally registered operators shadow the built-ins.
func MutationFromName(name string, library *assembly.Library, minBlocks, maxBlocks int) (Mutation, error) {
	if op, err := ResolveMutation(name); err == nil {
		return op, nil
	} else if !errors.Is(err, ErrOperatorNotFound) {
		return nil, err
	}

	switch name {
	case "substitute_block":
		return SubstituteBlock{Library: library}, nil
	case "insert_block":
		return InsertBlock{Library: library, MaxBlocks: maxBlocks}, nil
	case "remove_block":
		return RemoveBlock{MinBlocks: minBlocks}, nil
	case "swap_blocks":
		return SwapBlocks{}, nil
	case "change_topology":
		return ChangeTopology{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
}

// CrossoverFromName resolves a crossover by name, checking the registry
// first.
func CrossoverFromName(name string) (Crossover, error) {
	if op, err := ResolveCrossover(name); err == nil {
		return op, nil
	} else if !errors.Is(err, ErrOperatorNotFound) {
		return nil, err
	}

	switch name {
	case "one_point":
		return OnePointCrossover{}, nil
	case "uniform":
		return UniformCrossover{}, nil
	case "block_exchange":
		return BlockExchange{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
}

// DefaultMutationPolicy is the operator mix used when a run configures none.
func DefaultMutationPolicy(library *assembly.Library, minBlocks, maxBlocks int) []WeightedMutation {
	return []WeightedMutation{
		{Operator: SubstituteBlock{Library: library}, Weight: 4},
		{Operator: InsertBlock{Library: library, MaxBlocks: maxBlocks}, Weight: 2},
		{Operator: RemoveBlock{MinBlocks: minBlocks}, Weight: 2},
		{Operator: SwapBlocks{}, Weight: 1},
		{Operator: ChangeTopology{}, Weight: 1},
	}
}

// DefaultCrossoverPolicy is the crossover mix used when a run enables
// crossover without naming operators.
func DefaultCrossoverPolicy() []WeightedCrossover {
	return []WeightedCrossover{
		{Operator: OnePointCrossover{}, Weight: 2},
		{Operator: BlockExchange{}, Weight: 1},
	}
}
