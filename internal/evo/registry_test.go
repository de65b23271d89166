package evo

import (
	"errors"
	"reflect"
	"testing"

	"molevo/internal/assembly"
)

func TestRegisterAndResolveMutation(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	if err := RegisterMutation("swap", SwapBlocks{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	op, err := ResolveMutation("swap")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if op.Name() != "swap_blocks" {
		t.Fatalf("resolved wrong operator: %s", op.Name())
	}
}

func TestRegisterMutationRejectsDuplicates(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	if err := RegisterMutation("swap", SwapBlocks{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterMutation("swap", SwapBlocks{}); !errors.Is(err, ErrOperatorExists) {
		t.Fatalf("expected ErrOperatorExists, got %v", err)
	}
}

func TestResolveUnknownOperator(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	if _, err := ResolveMutation("missing"); !errors.Is(err, ErrOperatorNotFound) {
		t.Fatalf("expected ErrOperatorNotFound, got %v", err)
	}
	if _, err := ResolveCrossover("missing"); !errors.Is(err, ErrOperatorNotFound) {
		t.Fatalf("expected ErrOperatorNotFound, got %v", err)
	}
}

func TestListOperatorsSorted(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := RegisterMutation(name, SwapBlocks{}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	if got := ListMutations(); !reflect.DeepEqual(got, []string{"alpha", "mid", "zeta"}) {
		t.Fatalf("unexpected order: %v", got)
	}

	if err := RegisterCrossover("one_point", OnePointCrossover{}); err != nil {
		t.Fatalf("register crossover: %v", err)
	}
	if got := ListCrossovers(); !reflect.DeepEqual(got, []string{"one_point"}) {
		t.Fatalf("unexpected crossovers: %v", got)
	}
}

func TestMutationFromNameBuiltins(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	library := assembly.DefaultLibrary()
	for _, name := range []string{"substitute_block", "insert_block", "remove_block", "swap_blocks", "change_topology"} {
		op, err := MutationFromName(name, library, 1, 8)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if op.Name() != name {
			t.Fatalf("wrong operator for %s: %s", name, op.Name())
		}
	}
	if _, err := MutationFromName("bogus", library, 1, 8); !errors.Is(err, ErrOperatorNotFound) {
		t.Fatalf("expected ErrOperatorNotFound, got %v", err)
	}
}

func TestMutationFromNamePrefersRegistry(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	if err := RegisterMutation("substitute_block", SwapBlocks{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	op, err := MutationFromName("substitute_block", assembly.DefaultLibrary(), 1, 8)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if op.Name() != "swap_blocks" {
		t.Fatalf("registry must shadow built-ins, got %s", op.Name())
	}
}

func TestCrossoverFromNameBuiltins(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	for _, name := range []string{"one_point", "uniform", "block_exchange"} {
		op, err := CrossoverFromName(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if op.Name() != name {
			t.Fatalf("wrong operator for %s: %s", name, op.Name())
		}
	}
}
