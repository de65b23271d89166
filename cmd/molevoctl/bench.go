package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"molevo/internal/stats"
	"molevo/pkg/molevo"
)

// runBench executes the same run shape across consecutive seeds and
// aggregates the fitness series into per-objective graphs under the
// artifacts directory.
func runBench(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	objectiveName := fs.String("objective", "rotatable_bonds", "objective name: rotatable_bonds|mw_target")
	objectiveParam := fs.Float64("objective-param", 0, "objective parameter (target weight for mw_target)")
	runCount := fs.Int("runs", 5, "runs per benchmark")
	seed := fs.Int64("seed", 1, "base rng seed, incremented per run")
	population := fs.Int("pop", 20, "population size")
	generations := fs.Int("gens", 50, "generation count")
	workers := fs.Int("workers", 4, "worker count")
	maxBlocks := fs.Int("max-blocks", 6, "maximum blocks per seeded genotype")
	storeKind, dbPath := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runCount <= 0 {
		return errors.New("runs must be > 0")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runIDs := make([]string, 0, *runCount)
	for i := 0; i < *runCount; i++ {
		summary, err := client.Run(ctx, molevo.RunRequest{
			Objective:      *objectiveName,
			ObjectiveParam: *objectiveParam,
			Population:     *population,
			Generations:    *generations,
			Seed:           *seed + int64(i),
			Workers:        *workers,
			MaxBlocks:      *maxBlocks,
		})
		if err != nil {
			return fmt.Errorf("bench run %d/%d: %w", i+1, *runCount, err)
		}
		runIDs = append(runIDs, summary.RunID)
		fmt.Printf("bench run=%d/%d run_id=%s final_best=%.6f stop=%s\n",
			i+1, *runCount, summary.RunID, summary.FinalBestFitness, summary.StopReason)
	}

	graphs, err := stats.BuildObjectiveGraphs(artifactsDir, runIDs)
	if err != nil {
		return err
	}
	if err := stats.WriteObjectiveGraphs(artifactsDir, graphs); err != nil {
		return err
	}

	for _, graph := range graphs {
		fmt.Printf("objective=%s runs=%d\n", graph.Objective, graph.Runs)
		for i, gen := range graph.Generations {
			fmt.Printf("generation=%d avg_best=%.6f std=%.6f max=%.6f min=%.6f\n",
				gen, graph.AvgBest[i], graph.BestStd[i], graph.MaxBest[i], graph.MinBest[i])
		}
	}
	return nil
}
