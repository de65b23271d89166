// Package map2rec converts loosely typed JSON maps into the typed records
// the CLI feeds to the engine. Unknown keys are ignored and missing keys
// keep their defaults, so old config files stay loadable.
package map2rec

type WeightedOperator struct {
	Name   string
	Weight float64
}

// RunSpecRecord is the full driver configuration of one evolution run.
type RunSpecRecord struct {
	RunID              string
	Builder            string
	Objective          string
	ObjectiveParam     float64
	PopulationSize     int
	Generations        int
	OffspringCount     int
	Workers            int
	Seed               int64
	MutationRate       float64
	CrossoverRate      float64
	MutationOperators  []WeightedOperator
	CrossoverOperators []WeightedOperator
	ParentSelector     string
	TournamentSize     int
	SurvivorSelector   string
	EliteCount         int
	Normalizer         string
	SizePenalty        float64
	PlateauWindow      int
	PlateauEpsilon     float64
	GetLRUSize         int
	PutLRUSize         int
	TopCount           int
}

// SeedSpecRecord describes how the initial population is sampled.
type SeedSpecRecord struct {
	Size       int
	MinBlocks  int
	MaxBlocks  int
	Topologies []string
	Seed       int64
}

// AtomSpec and BondSpec mirror the model graph types for config files.
type AtomSpec struct {
	Element string
	Charge  int
}

type BondSpec struct {
	A     int
	B     int
	Order int
}

// BlockRecord is a custom building block fragment supplied via config.
type BlockRecord struct {
	Name  string
	Atoms []AtomSpec
	Bonds []BondSpec
	Head  int
	Tail  int
}

func defaultRunSpecRecord() RunSpecRecord {
	return RunSpecRecord{
		PopulationSize:   20,
		Generations:      50,
		Workers:          4,
		MutationRate:     0.3,
		CrossoverRate:    0.5,
		ParentSelector:   "roulette",
		SurvivorSelector: "elitist",
		EliteCount:       1,
		Normalizer:       "none",
		TopCount:         5,
	}
}

func defaultSeedSpecRecord() SeedSpecRecord {
	return SeedSpecRecord{
		Size:       20,
		MinBlocks:  1,
		MaxBlocks:  6,
		Topologies: []string{"linear"},
	}
}

func defaultBlockRecord() BlockRecord {
	return BlockRecord{}
}
