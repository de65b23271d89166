package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"molevo/internal/storage"
	"molevo/pkg/molevo"
)

const (
	artifactsDir = "artifacts"
	exportsDir   = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "bench":
		return runBench(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "records":
		return runRecords(ctx, args[1:])
	case "top":
		return runTop(ctx, args[1:])
	case "lineage":
		return runLineage(ctx, args[1:])
	case "cache":
		return runCache(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newClient(storeKind, dbPath string) (*molevo.Client, error) {
	return molevo.New(molevo.Options{
		StoreKind:    storeKind,
		DBPath:       dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
	})
}

func addStoreFlags(fs *flag.FlagSet) (*string, *string) {
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite|badger")
	dbPath := fs.String("db-path", "molevo.db", "database path")
	return storeKind, dbPath
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind, dbPath := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}

	builders, err := client.Builders(ctx)
	if err != nil {
		return err
	}
	objectives, err := client.Objectives(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("initialized store=%s builders=%v objectives=%v\n", *storeKind, builders, objectives)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	objectiveName := fs.String("objective", "rotatable_bonds", "objective name: rotatable_bonds|mw_target")
	objectiveParam := fs.Float64("objective-param", 0, "objective parameter (target weight for mw_target)")
	builderName := fs.String("builder", "library", "structure builder name")
	population := fs.Int("pop", 20, "population size")
	generations := fs.Int("gens", 50, "generation count")
	offspring := fs.Int("offspring", 0, "offspring per generation (0 matches population)")
	seed := fs.Int64("seed", 1, "rng seed")
	workers := fs.Int("workers", 4, "worker count")
	mutationRate := fs.Float64("mutation-rate", 0.3, "post-crossover mutation probability")
	crossoverRate := fs.Float64("crossover-rate", 0.5, "crossover probability per offspring pair")
	parentSelector := fs.String("parent-selector", "roulette", "parent selection: roulette|tournament|rank")
	tournamentSize := fs.Int("tournament-size", 3, "tournament size for parent-selector=tournament")
	survivorSelector := fs.String("survivor-selector", "elitist", "survivor selection: elitist|generational|elitist_random")
	eliteCount := fs.Int("elite-count", 1, "elites carried per generation")
	normalizer := fs.String("normalizer", "none", "fitness normalizer: none|size_penalty")
	sizePenalty := fs.Float64("size-penalty", 0, "per-block penalty for normalizer=size_penalty")
	plateauWindow := fs.Int("plateau-window", 0, "early-stop window in generations (0 disables)")
	plateauEpsilon := fs.Float64("plateau-epsilon", 0, "minimum best-fitness gain over the window")
	minBlocks := fs.Int("min-blocks", 1, "minimum blocks per seeded genotype")
	maxBlocks := fs.Int("max-blocks", 6, "maximum blocks per seeded genotype")
	topCount := fs.Int("top-count", 5, "top candidates persisted per run")
	supervised := fs.Bool("supervised", false, "retry the run with backoff when the store drops out")
	storeKind, dbPath := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, library, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}

	setFlags := map[string]bool{}
	if *configPath == "" {
		fs.VisitAll(func(f *flag.Flag) { setFlags[f.Name] = true })
	} else {
		fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	}
	flagValue := map[string]any{
		"run-id":            *runID,
		"objective":         *objectiveName,
		"objective-param":   *objectiveParam,
		"builder":           *builderName,
		"pop":               *population,
		"gens":              *generations,
		"offspring":         *offspring,
		"seed":              *seed,
		"workers":           *workers,
		"mutation-rate":     *mutationRate,
		"crossover-rate":    *crossoverRate,
		"parent-selector":   *parentSelector,
		"tournament-size":   *tournamentSize,
		"survivor-selector": *survivorSelector,
		"elite-count":       *eliteCount,
		"normalizer":        *normalizer,
		"size-penalty":      *sizePenalty,
		"plateau-window":    *plateauWindow,
		"plateau-epsilon":   *plateauEpsilon,
		"min-blocks":        *minBlocks,
		"max-blocks":        *maxBlocks,
		"top-count":         *topCount,
		"supervised":        *supervised,
	}
	if err := overrideFromFlags(&req, setFlags, flagValue); err != nil {
		return err
	}

	client, err := molevo.New(molevo.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: artifactsDir,
		ExportsDir:   exportsDir,
		Library:      library,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run finished run_id=%s objective=%s stop=%s\n", summary.RunID, req.Objective, summary.StopReason)
	for i, best := range summary.BestByGeneration {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i+1, best)
	}
	fmt.Printf("final_best_fitness=%.6f\n", summary.FinalBestFitness)
	fmt.Printf("cache hits=%s misses=%s computes=%s\n",
		humanize.Comma(summary.Cache.Hits),
		humanize.Comma(summary.Cache.Misses),
		humanize.Comma(summary.Cache.Computes),
	)
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind, dbPath := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, molevo.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, r := range runs {
		created := r.CreatedAtUTC
		if ts, err := time.Parse(time.RFC3339Nano, r.CreatedAtUTC); err == nil {
			created = humanize.Time(ts)
		}
		fmt.Printf("run_id=%s created=%s objective=%s builder=%s gens=%d final_best_fitness=%.6f stop=%s\n",
			r.RunID,
			created,
			r.Objective,
			r.Builder,
			r.Generations,
			r.FinalBestFitness,
			r.StopReason,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "query the most recent run from the run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind, dbPath := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, molevo.RunQuery{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i+1, best)
	}
	return nil
}

func runRecords(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("records", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "query the most recent run from the run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit generation records as JSON")
	storeKind, dbPath := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	records, err := client.Records(ctx, molevo.RunQuery{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no generation records")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	for _, r := range records {
		fmt.Printf("generation=%d pop=%d evaluated=%d failures=%d cache_hits=%d best=%.6f mean=%.6f min=%.6f best_fingerprint=%s\n",
			r.Generation,
			r.PopulationSize,
			r.Evaluated,
			r.Failures,
			r.CacheHits,
			r.BestFitness,
			r.MeanFitness,
			r.MinFitness,
			r.BestFingerprint,
		)
	}
	return nil
}

func runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "query the most recent run from the run index")
	limit := fs.Int("limit", 5, "max candidates to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit top candidates as JSON")
	storeKind, dbPath := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	top, err := client.TopCandidates(ctx, molevo.RunQuery{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(top) == 0 {
		fmt.Println("no top candidates")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(top)
	}

	for _, t := range top {
		fmt.Printf("rank=%d fitness=%.6f candidate_id=%s fingerprint=%s blocks=%v topology=%s\n",
			t.Rank,
			t.Fitness,
			t.Candidate.ID,
			t.Candidate.Fingerprint,
			t.Candidate.Genotype.Blocks,
			t.Candidate.Genotype.Topology,
		)
	}
	return nil
}

func runLineage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lineage", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "query the most recent run from the run index")
	limit := fs.Int("limit", 50, "max lineage rows to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit lineage rows as JSON")
	storeKind, dbPath := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	lineage, err := client.Lineage(ctx, molevo.RunQuery{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(lineage) == 0 {
		fmt.Println("no lineage records")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lineage)
	}

	for _, rec := range lineage {
		fmt.Printf("gen=%d candidate_id=%s parents=%v op=%s fingerprint=%s\n",
			rec.Generation,
			rec.CandidateID,
			rec.Parents,
			rec.Operation,
			rec.Fingerprint,
		)
	}
	return nil
}

func runCache(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cache", flag.ContinueOnError)
	objectiveName := fs.String("objective", "", "objective collection to inspect")
	limit := fs.Int("limit", 20, "max cache records to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit cache records as JSON")
	storeKind, dbPath := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *objectiveName == "" {
		return errors.New("cache requires -objective")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Cache(ctx, molevo.CacheRequest{Objective: *objectiveName, Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("objective=%s cached_records=%s\n", summary.Objective, humanize.Comma(summary.Count))
	for _, rec := range summary.Records {
		fmt.Printf("fingerprint=%s fitness=%.6f elapsed_us=%d created_at=%s\n",
			rec.Fingerprint,
			rec.Fitness,
			rec.ElapsedMicros,
			rec.CreatedAtUTC,
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from the run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	storeKind, dbPath := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, molevo.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: molevoctl <init|run|bench|runs|fitness|records|top|lineage|cache|export> [flags]", msg)
}
