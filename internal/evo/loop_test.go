package evo

import (
	"context"
	"reflect"
	"testing"

	"molevo/internal/assembly"
	"molevo/internal/model"
	"molevo/internal/objective"
)

func testLoopConfig(t *testing.T, obj objective.Objective) Config {
	t.Helper()
	library := assembly.DefaultLibrary()
	return Config{
		Evaluator:        newTestEvaluator(t, obj),
		PopulationSize:   6,
		Generations:      5,
		OffspringCount:   4,
		Workers:          3,
		Seed:             42,
		MutationRate:     0.3,
		CrossoverRate:    0.5,
		MutationPolicy:   DefaultMutationPolicy(library, 1, 8),
		CrossoverPolicy:  DefaultCrossoverPolicy(),
		ParentSelector:   TournamentSelector{Size: 2},
		SurvivorSelector: ElitistSurvivors{EliteCount: 2},
	}
}

func seedCandidates(n int) []model.Candidate {
	blocks := [][]string{
		{"ethylene", "ether"},
		{"ethylene", "amine", "ether"},
		{"propylene", "carbonyl"},
		{"thioether", "ethylene", "ether"},
		{"amine", "amine"},
		{"carbonyl", "ether", "propylene"},
	}
	out := make([]model.Candidate, n)
	for i := 0; i < n; i++ {
		out[i] = model.Candidate{Genotype: testGenotype(blocks[i%len(blocks)]...)}
	}
	return out
}

func TestLoopRunsToCompletion(t *testing.T) {
	loop, err := NewLoop(testLoopConfig(t, objective.RotatableBonds{}))
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	result, err := loop.Run(context.Background(), seedCandidates(6))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StopReason != StopCompleted {
		t.Fatalf("expected completed, got %s", result.StopReason)
	}
	if len(result.Records) != 5 {
		t.Fatalf("expected 5 generation records, got %d", len(result.Records))
	}
	if result.Best == nil || !result.Best.Scored() {
		t.Fatal("run must produce a scored best candidate")
	}
	for i, record := range result.Records {
		if record.Generation != i+1 {
			t.Fatalf("record %d has generation %d", i, record.Generation)
		}
		if record.PopulationSize != 6 {
			t.Fatalf("generation %d: population size invariant violated: %d", record.Generation, record.PopulationSize)
		}
	}
}

func TestLoopIsDeterministicUnderFixedSeed(t *testing.T) {
	run := func() RunResult {
		loop, err := NewLoop(testLoopConfig(t, objective.RotatableBonds{}))
		if err != nil {
			t.Fatalf("new loop: %v", err)
		}
		result, err := loop.Run(context.Background(), seedCandidates(6))
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return result
	}

	first := run()
	second := run()

	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Fatalf("records diverged under fixed seed:\n%+v\n%+v", first.Records, second.Records)
	}
	if first.Best.Fingerprint != second.Best.Fingerprint {
		t.Fatalf("best candidate diverged: %s vs %s", first.Best.Fingerprint, second.Best.Fingerprint)
	}
	if !reflect.DeepEqual(first.Lineage, second.Lineage) {
		t.Fatal("lineage diverged under fixed seed")
	}
}

func TestLoopElitismNeverLosesTheBest(t *testing.T) {
	cfg := testLoopConfig(t, objective.RotatableBonds{})
	cfg.Generations = 8
	loop, err := NewLoop(cfg)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	result, err := loop.Run(context.Background(), seedCandidates(6))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i := 1; i < len(result.Records); i++ {
		if result.Records[i].BestFitness < result.Records[i-1].BestFitness {
			t.Fatalf("best fitness regressed at generation %d: %g -> %g",
				result.Records[i].Generation, result.Records[i-1].BestFitness, result.Records[i].BestFitness)
		}
	}
}

func TestLoopCountsFailuresAndExcludesThemFromBreeding(t *testing.T) {
	cfg := testLoopConfig(t, objective.RotatableBonds{})
	cfg.Generations = 2
	loop, err := NewLoop(cfg)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	initial := seedCandidates(6)
	initial[0].Genotype = testGenotype("no_such_block")

	result, err := loop.Run(context.Background(), initial)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Records[0].Failures != 1 {
		t.Fatalf("expected 1 failure in generation 1, got %d", result.Records[0].Failures)
	}
	if result.Records[0].Evaluated != 5 {
		t.Fatalf("expected 5 successful evaluations in generation 1, got %d", result.Records[0].Evaluated)
	}
	if result.Records[0].Evaluated+result.Records[0].Failures != result.Records[0].PopulationSize {
		t.Fatalf("evaluated and failures must partition the population: %+v", result.Records[0])
	}
	for _, c := range result.FinalPopulation {
		if c.Failure != model.FailureNone {
			t.Fatalf("failed candidate survived into the final population: %s", c.ID)
		}
	}
}

func TestLoopCacheHitsAccumulateAcrossGenerations(t *testing.T) {
	cfg := testLoopConfig(t, objective.RotatableBonds{})
	loop, err := NewLoop(cfg)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	result, err := loop.Run(context.Background(), seedCandidates(6))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	total := int64(0)
	for _, record := range result.Records {
		total += record.CacheHits
	}
	stats := cfg.Evaluator.Cache.Stats()
	if total != stats.Hits {
		t.Fatalf("per-generation cache hits (%d) must sum to cache stats (%d)", total, stats.Hits)
	}
}

type constObjective struct{}

func (constObjective) Name() string {
	return "const"
}

func (constObjective) Score(context.Context, model.Structure) (float64, error) {
	return 1, nil
}

func TestLoopStopsOnPlateau(t *testing.T) {
	cfg := testLoopConfig(t, constObjective{})
	cfg.Generations = 50
	cfg.PlateauWindow = 3
	cfg.PlateauEpsilon = 1e-9
	loop, err := NewLoop(cfg)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	result, err := loop.Run(context.Background(), seedCandidates(6))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StopReason != StopPlateau {
		t.Fatalf("expected plateau stop, got %s", result.StopReason)
	}
	if len(result.Records) != cfg.PlateauWindow+1 {
		t.Fatalf("expected stop after %d records, got %d", cfg.PlateauWindow+1, len(result.Records))
	}
}

func TestLoopCancellationReturnsPartialResult(t *testing.T) {
	cfg := testLoopConfig(t, objective.RotatableBonds{})
	loop, err := NewLoop(cfg)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := loop.Run(ctx, seedCandidates(6))
	if err != nil {
		t.Fatalf("cancellation must yield a partial result, got %v", err)
	}
	if result.StopReason != StopCancelled {
		t.Fatalf("expected cancelled stop, got %s", result.StopReason)
	}
}

func TestLoopCancellationAbandonsWhenConfigured(t *testing.T) {
	cfg := testLoopConfig(t, objective.RotatableBonds{})
	cfg.AbandonOnCancel = true
	loop, err := NewLoop(cfg)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := loop.Run(ctx, seedCandidates(6)); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestLoopLineageParentsAreFingerprints(t *testing.T) {
	cfg := testLoopConfig(t, objective.RotatableBonds{})
	cfg.Generations = 2
	loop, err := NewLoop(cfg)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	result, err := loop.Run(context.Background(), seedCandidates(6))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	known := map[string]bool{}
	for _, rec := range result.Lineage {
		if rec.Generation == 0 && rec.Fingerprint != "" {
			known[rec.Fingerprint] = true
		}
	}
	if len(known) == 0 {
		t.Fatal("seed lineage records must carry fingerprints")
	}

	bred := 0
	for _, rec := range result.Lineage {
		if rec.Generation != 1 {
			continue
		}
		bred++
		if len(rec.Parents) == 0 {
			t.Fatalf("bred candidate %s has no parents", rec.CandidateID)
		}
		for _, parent := range rec.Parents {
			if !known[parent] {
				t.Fatalf("parent %q of %s is not a fingerprint of generation 1's scored pool", parent, rec.CandidateID)
			}
		}
	}
	if bred == 0 {
		t.Fatal("expected bred lineage records for generation 1")
	}
}

func TestLoopEmitsRecordsToSink(t *testing.T) {
	cfg := testLoopConfig(t, objective.RotatableBonds{})
	sink := &RecordLog{}
	cfg.Sink = sink
	loop, err := NewLoop(cfg)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	result, err := loop.Run(context.Background(), seedCandidates(6))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(sink.Records(), result.Records) {
		t.Fatal("sink records must match run records")
	}
}

func TestNewLoopValidation(t *testing.T) {
	base := testLoopConfig(t, objective.RotatableBonds{})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing evaluator", func(c *Config) { c.Evaluator = nil }},
		{"zero population", func(c *Config) { c.PopulationSize = 0 }},
		{"zero generations", func(c *Config) { c.Generations = 0 }},
		{"bad mutation rate", func(c *Config) { c.MutationRate = 1.5 }},
		{"bad crossover rate", func(c *Config) { c.CrossoverRate = -0.1 }},
		{"empty mutation policy", func(c *Config) { c.MutationPolicy = nil }},
		{"nil policy operator", func(c *Config) { c.MutationPolicy = []WeightedMutation{{Operator: nil, Weight: 1}} }},
		{"all-zero weights", func(c *Config) { c.MutationPolicy = []WeightedMutation{{Operator: SwapBlocks{}, Weight: 0}} }},
		{"crossover rate without operators", func(c *Config) { c.CrossoverPolicy = nil }},
		{"negative plateau window", func(c *Config) { c.PlateauWindow = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if _, err := NewLoop(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoopRejectsPopulationMismatch(t *testing.T) {
	loop, err := NewLoop(testLoopConfig(t, objective.RotatableBonds{}))
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	if _, err := loop.Run(context.Background(), seedCandidates(3)); err == nil {
		t.Fatal("expected population mismatch error")
	}
}
