package evo

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrOperatorExists   = errors.New("operator already registered")
	ErrOperatorNotFound = errors.New("operator not found")
)

var operatorRegistry = struct {
	mu        sync.RWMutex
	mutations map[string]Mutation
	crossover map[string]Crossover
}{
	mutations: make(map[string]Mutation),
	crossover: make(map[string]Crossover),
}

// RegisterMutation makes a mutation resolvable by name, for CLI and config
// driven operator policies.
func RegisterMutation(name string, op Mutation) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	if op == nil {
		return errors.New("operator is required")
	}

	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.mutations[name]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, name)
	}
	operatorRegistry.mutations[name] = op
	return nil
}

// RegisterCrossover makes a crossover resolvable by name.
func RegisterCrossover(name string, op Crossover) error {
	if name == "" {
		return errors.New("operator name is required")
	}
	if op == nil {
		return errors.New("operator is required")
	}

	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.crossover[name]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, name)
	}
	operatorRegistry.crossover[name] = op
	return nil
}

func ResolveMutation(name string) (Mutation, error) {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	op, ok := operatorRegistry.mutations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	return op, nil
}

func ResolveCrossover(name string) (Crossover, error) {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	op, ok := operatorRegistry.crossover[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	return op, nil
}

func ListMutations() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	names := make([]string, 0, len(operatorRegistry.mutations))
	for name := range operatorRegistry.mutations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListCrossovers() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	names := make([]string, 0, len(operatorRegistry.crossover))
	for name := range operatorRegistry.crossover {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetOperatorRegistryForTests() {
	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()
	operatorRegistry.mutations = make(map[string]Mutation)
	operatorRegistry.crossover = make(map[string]Crossover)
}
