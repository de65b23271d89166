package map2rec

func Convert(kind string, in map[string]any) (any, error) {
	switch kind {
	case "run":
		return ConvertRunSpec(in), nil
	case "seed":
		return ConvertSeedSpec(in), nil
	case "block":
		return ConvertBlock(in), nil
	default:
		return nil, ErrUnsupportedKind
	}
}

func ConvertRunSpec(in map[string]any) RunSpecRecord {
	out := defaultRunSpecRecord()
	for key, val := range in {
		switch key {
		case "run_id":
			if s, ok := asString(val); ok {
				out.RunID = s
			}
		case "builder":
			if s, ok := asString(val); ok {
				out.Builder = s
			}
		case "objective":
			if s, ok := asString(val); ok {
				out.Objective = s
			}
		case "objective_param":
			if f, ok := asFloat64(val); ok {
				out.ObjectiveParam = f
			}
		case "population_size":
			if n, ok := asInt(val); ok {
				out.PopulationSize = n
			}
		case "generations":
			if n, ok := asInt(val); ok {
				out.Generations = n
			}
		case "offspring_count":
			if n, ok := asInt(val); ok {
				out.OffspringCount = n
			}
		case "workers":
			if n, ok := asInt(val); ok {
				out.Workers = n
			}
		case "seed":
			if n, ok := asInt64(val); ok {
				out.Seed = n
			}
		case "mutation_rate":
			if f, ok := asFloat64(val); ok {
				out.MutationRate = f
			}
		case "crossover_rate":
			if f, ok := asFloat64(val); ok {
				out.CrossoverRate = f
			}
		case "mutation_operators":
			if xs, ok := asWeightedOperators(val); ok {
				out.MutationOperators = xs
			}
		case "crossover_operators":
			if xs, ok := asWeightedOperators(val); ok {
				out.CrossoverOperators = xs
			}
		case "parent_selector":
			if s, ok := asString(val); ok {
				out.ParentSelector = s
			}
		case "tournament_size":
			if n, ok := asInt(val); ok {
				out.TournamentSize = n
			}
		case "survivor_selector":
			if s, ok := asString(val); ok {
				out.SurvivorSelector = s
			}
		case "elite_count":
			if n, ok := asInt(val); ok {
				out.EliteCount = n
			}
		case "normalizer":
			if s, ok := asString(val); ok {
				out.Normalizer = s
			}
		case "size_penalty":
			if f, ok := asFloat64(val); ok {
				out.SizePenalty = f
			}
		case "plateau_window":
			if n, ok := asInt(val); ok {
				out.PlateauWindow = n
			}
		case "plateau_epsilon":
			if f, ok := asFloat64(val); ok {
				out.PlateauEpsilon = f
			}
		case "get_lru_size":
			if n, ok := asInt(val); ok {
				out.GetLRUSize = n
			}
		case "put_lru_size":
			if n, ok := asInt(val); ok {
				out.PutLRUSize = n
			}
		case "top_count":
			if n, ok := asInt(val); ok {
				out.TopCount = n
			}
		}
	}
	return out
}

func ConvertSeedSpec(in map[string]any) SeedSpecRecord {
	out := defaultSeedSpecRecord()
	for key, val := range in {
		switch key {
		case "size":
			if n, ok := asInt(val); ok {
				out.Size = n
			}
		case "min_blocks":
			if n, ok := asInt(val); ok {
				out.MinBlocks = n
			}
		case "max_blocks":
			if n, ok := asInt(val); ok {
				out.MaxBlocks = n
			}
		case "topologies":
			if xs, ok := asStrings(val); ok {
				out.Topologies = xs
			}
		case "seed":
			if n, ok := asInt64(val); ok {
				out.Seed = n
			}
		}
	}
	return out
}

func ConvertBlock(in map[string]any) BlockRecord {
	out := defaultBlockRecord()
	for key, val := range in {
		switch key {
		case "name":
			if s, ok := asString(val); ok {
				out.Name = s
			}
		case "atoms":
			if xs, ok := asAtomSpecs(val); ok {
				out.Atoms = xs
			}
		case "bonds":
			if xs, ok := asBondSpecs(val); ok {
				out.Bonds = xs
			}
		case "head":
			if n, ok := asInt(val); ok {
				out.Head = n
			}
		case "tail":
			if n, ok := asInt(val); ok {
				out.Tail = n
			}
		}
	}
	return out
}
