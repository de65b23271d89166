package main

import (
	"encoding/json"
	"fmt"
	"os"

	"molevo/internal/assembly"
	"molevo/internal/map2rec"
	"molevo/internal/model"
	"molevo/pkg/molevo"
)

// loadRunRequestFromConfig reads a run config file. The top level holds
// run spec keys, an optional "seed" object for population seeding, and an
// optional "blocks" list that replaces the default building block library.
func loadRunRequestFromConfig(path string) (molevo.RunRequest, *assembly.Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return molevo.RunRequest{}, nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return molevo.RunRequest{}, nil, err
	}

	spec := map2rec.ConvertRunSpec(raw)
	req := molevo.RunRequest{
		RunID:            spec.RunID,
		Builder:          spec.Builder,
		Objective:        spec.Objective,
		ObjectiveParam:   spec.ObjectiveParam,
		Population:       spec.PopulationSize,
		Generations:      spec.Generations,
		OffspringCount:   spec.OffspringCount,
		Seed:             spec.Seed,
		Workers:          spec.Workers,
		MutationRate:     spec.MutationRate,
		CrossoverRate:    spec.CrossoverRate,
		ParentSelector:   spec.ParentSelector,
		TournamentSize:   spec.TournamentSize,
		SurvivorSelector: spec.SurvivorSelector,
		EliteCount:       spec.EliteCount,
		Normalizer:       spec.Normalizer,
		SizePenalty:      spec.SizePenalty,
		PlateauWindow:    spec.PlateauWindow,
		PlateauEpsilon:   spec.PlateauEpsilon,
		GetLRUSize:       spec.GetLRUSize,
		PutLRUSize:       spec.PutLRUSize,
		TopCount:         spec.TopCount,
	}
	for _, op := range spec.MutationOperators {
		req.MutationOperators = append(req.MutationOperators, molevo.OperatorWeight{Name: op.Name, Weight: op.Weight})
	}
	for _, op := range spec.CrossoverOperators {
		req.CrossoverOperators = append(req.CrossoverOperators, molevo.OperatorWeight{Name: op.Name, Weight: op.Weight})
	}

	if seedMap, ok := raw["seed_spec"].(map[string]any); ok {
		seedSpec := map2rec.ConvertSeedSpec(seedMap)
		if _, hasPopulation := raw["population_size"]; !hasPopulation && seedSpec.Size > 0 {
			req.Population = seedSpec.Size
		}
		req.MinBlocks = seedSpec.MinBlocks
		req.MaxBlocks = seedSpec.MaxBlocks
		req.Topologies = append([]string(nil), seedSpec.Topologies...)
		if _, hasSeed := raw["seed"]; !hasSeed && seedSpec.Seed != 0 {
			req.Seed = seedSpec.Seed
		}
	}
	if v, ok := raw["supervised"].(bool); ok {
		req.Supervised = v
	}

	library, err := libraryFromConfig(raw)
	if err != nil {
		return molevo.RunRequest{}, nil, err
	}
	return req, library, nil
}

// libraryFromConfig builds a custom block library from a "blocks" list.
// A config without blocks returns nil so the default library applies.
func libraryFromConfig(raw map[string]any) (*assembly.Library, error) {
	list, ok := raw["blocks"].([]any)
	if !ok || len(list) == 0 {
		return nil, nil
	}
	blocks := make([]assembly.BuildingBlock, 0, len(list))
	for i, item := range list {
		blockMap, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("blocks[%d] is not an object", i)
		}
		rec := map2rec.ConvertBlock(blockMap)
		blocks = append(blocks, buildingBlockFromRecord(rec))
	}
	library, err := assembly.NewLibrary(blocks...)
	if err != nil {
		return nil, fmt.Errorf("config blocks: %w", err)
	}
	return library, nil
}

func buildingBlockFromRecord(rec map2rec.BlockRecord) assembly.BuildingBlock {
	block := assembly.BuildingBlock{
		Name: rec.Name,
		Head: rec.Head,
		Tail: rec.Tail,
	}
	for _, atom := range rec.Atoms {
		block.Atoms = append(block.Atoms, model.Atom{Element: atom.Element, Charge: atom.Charge})
	}
	for _, bond := range rec.Bonds {
		block.Bonds = append(block.Bonds, model.Bond{A: bond.A, B: bond.B, Order: bond.Order})
	}
	return block
}

func loadOrDefaultRunRequest(configPath string) (molevo.RunRequest, *assembly.Library, error) {
	if configPath == "" {
		return molevo.RunRequest{}, nil, nil
	}
	req, library, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return molevo.RunRequest{}, nil, fmt.Errorf("load config: %w", err)
	}
	return req, library, nil
}

// overrideFromFlags applies explicitly set command line flags on top of a
// loaded config. With no config every flag counts as set, so defaults apply.
func overrideFromFlags(req *molevo.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "objective":
			req.Objective = v.(string)
		case "objective-param":
			req.ObjectiveParam = v.(float64)
		case "builder":
			req.Builder = v.(string)
		case "pop":
			req.Population = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "offspring":
			req.OffspringCount = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "workers":
			req.Workers = v.(int)
		case "mutation-rate":
			req.MutationRate = v.(float64)
		case "crossover-rate":
			req.CrossoverRate = v.(float64)
		case "parent-selector":
			req.ParentSelector = v.(string)
		case "tournament-size":
			req.TournamentSize = v.(int)
		case "survivor-selector":
			req.SurvivorSelector = v.(string)
		case "elite-count":
			req.EliteCount = v.(int)
		case "normalizer":
			req.Normalizer = v.(string)
		case "size-penalty":
			req.SizePenalty = v.(float64)
		case "plateau-window":
			req.PlateauWindow = v.(int)
		case "plateau-epsilon":
			req.PlateauEpsilon = v.(float64)
		case "min-blocks":
			req.MinBlocks = v.(int)
		case "max-blocks":
			req.MaxBlocks = v.(int)
		case "top-count":
			req.TopCount = v.(int)
		case "supervised":
			req.Supervised = v.(bool)
		}
	}
	return nil
}
