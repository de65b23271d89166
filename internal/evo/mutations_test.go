package evo

import (
	"errors"
	"math/rand"
	"testing"

	"molevo/internal/assembly"
	"molevo/internal/model"
)

func testGenotype(blocks ...string) model.Genotype {
	return model.Genotype{Blocks: blocks, Topology: assembly.TopologyLinear}
}

func TestSubstituteBlockReplacesOneBlock(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	op := SubstituteBlock{Library: assembly.DefaultLibrary()}
	original := testGenotype("ethylene", "ether", "amine")

	mutated, err := op.Apply(rng, original)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(mutated.Blocks) != len(original.Blocks) {
		t.Fatalf("block count changed: got=%d want=%d", len(mutated.Blocks), len(original.Blocks))
	}

	changed := 0
	for i := range mutated.Blocks {
		if mutated.Blocks[i] != original.Blocks[i] {
			changed++
		}
	}
	if changed != 1 {
		t.Fatalf("expected exactly one substitution, got %d", changed)
	}
	if original.Blocks[0] != "ethylene" || original.Blocks[1] != "ether" || original.Blocks[2] != "amine" {
		t.Fatalf("input genotype was modified: %v", original.Blocks)
	}
}

func TestSubstituteBlockEmptyGenotype(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	op := SubstituteBlock{Library: assembly.DefaultLibrary()}
	if _, err := op.Apply(rng, model.Genotype{Topology: assembly.TopologyLinear}); !errors.Is(err, ErrEmptyGenotype) {
		t.Fatalf("expected ErrEmptyGenotype, got %v", err)
	}
}

func TestInsertBlockGrowsByOne(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	op := InsertBlock{Library: assembly.DefaultLibrary()}
	original := testGenotype("ethylene", "ether")

	mutated, err := op.Apply(rng, original)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(mutated.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(mutated.Blocks))
	}
}

func TestInsertBlockRespectsMaxBlocks(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	op := InsertBlock{Library: assembly.DefaultLibrary(), MaxBlocks: 2}
	if _, err := op.Apply(rng, testGenotype("ethylene", "ether")); !errors.Is(err, ErrNoMutationSite) {
		t.Fatalf("expected ErrNoMutationSite at max size, got %v", err)
	}
}

func TestRemoveBlockShrinksByOne(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	op := RemoveBlock{MinBlocks: 1}
	mutated, err := op.Apply(rng, testGenotype("ethylene", "ether", "amine"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(mutated.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(mutated.Blocks))
	}
}

func TestRemoveBlockRespectsFloor(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	op := RemoveBlock{MinBlocks: 2}
	if _, err := op.Apply(rng, testGenotype("ethylene", "ether")); !errors.Is(err, ErrNoMutationSite) {
		t.Fatalf("expected ErrNoMutationSite at floor, got %v", err)
	}
}

func TestRemoveBlockKeepsRingViable(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	op := RemoveBlock{MinBlocks: 1}
	g := model.Genotype{Blocks: []string{"ethylene", "ether", "amine"}, Topology: assembly.TopologyRing}
	if _, err := op.Apply(rng, g); !errors.Is(err, ErrNoMutationSite) {
		t.Fatalf("removing below ring minimum must have no site, got %v", err)
	}
}

func TestSwapBlocksExchangesTwoPositions(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	original := testGenotype("ethylene", "ether", "amine", "carbonyl")

	mutated, err := SwapBlocks{}.Apply(rng, original)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	moved := 0
	for i := range mutated.Blocks {
		if mutated.Blocks[i] != original.Blocks[i] {
			moved++
		}
	}
	if moved != 2 {
		t.Fatalf("expected exactly two positions to change, got %d", moved)
	}
}

func TestSwapBlocksNeedsTwoBlocks(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	if _, err := (SwapBlocks{}).Apply(rng, testGenotype("ethylene")); !errors.Is(err, ErrNoMutationSite) {
		t.Fatalf("expected ErrNoMutationSite for single block, got %v", err)
	}
}

func TestChangeTopologyFlips(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	linear := testGenotype("ethylene", "ether", "amine")

	ring, err := ChangeTopology{}.Apply(rng, linear)
	if err != nil {
		t.Fatalf("linear to ring: %v", err)
	}
	if ring.Topology != assembly.TopologyRing {
		t.Fatalf("expected ring topology, got %s", ring.Topology)
	}

	back, err := ChangeTopology{}.Apply(rng, ring)
	if err != nil {
		t.Fatalf("ring to linear: %v", err)
	}
	if back.Topology != assembly.TopologyLinear {
		t.Fatalf("expected linear topology, got %s", back.Topology)
	}
}

func TestChangeTopologyTooShortForRing(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	if _, err := (ChangeTopology{}).Apply(rng, testGenotype("ethylene", "ether")); !errors.Is(err, ErrNoMutationSite) {
		t.Fatalf("expected ErrNoMutationSite for short chain, got %v", err)
	}
}
