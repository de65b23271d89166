// Package molevo is the public facade over the engine: one Client owns a
// store, a lab and an artifacts directory, and exposes runs and queries as
// plain request/response methods.
package molevo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"molevo/internal/assembly"
	"molevo/internal/evo"
	"molevo/internal/genotype"
	"molevo/internal/model"
	"molevo/internal/objective"
	"molevo/internal/platform"
	"molevo/internal/stats"
	"molevo/internal/storage"
)

const (
	defaultArtifactsDir = "artifacts"
	defaultExportsDir   = "exports"
	defaultDBPath       = "molevo.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string

	// Library overrides the default building block set.
	Library *assembly.Library
}

type Client struct {
	store   storage.Store
	lab     *platform.Lab
	library *assembly.Library

	artifactsDir string
	exportsDir   string
}

// OperatorWeight names a variation operator and its selection weight.
type OperatorWeight struct {
	Name   string
	Weight float64
}

type RunRequest struct {
	RunID          string
	Builder        string
	Objective      string
	ObjectiveParam float64

	Population     int
	Generations    int
	OffspringCount int
	Seed           int64
	Workers        int

	MutationRate       float64
	CrossoverRate      float64
	MutationOperators  []OperatorWeight
	CrossoverOperators []OperatorWeight

	ParentSelector   string
	TournamentSize   int
	SurvivorSelector string
	EliteCount       int
	Normalizer       string
	SizePenalty      float64

	PlateauWindow  int
	PlateauEpsilon float64

	GetLRUSize int
	PutLRUSize int
	TopCount   int

	// Seeding knobs for the initial population.
	MinBlocks  int
	MaxBlocks  int
	Topologies []string

	// Supervised retries the run with backoff when the store drops out.
	Supervised bool
}

// CacheStats mirrors the run cache counters.
type CacheStats struct {
	Hits     int64
	Misses   int64
	Computes int64
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	StopReason       string
	BestByGeneration []float64
	FinalBestFitness float64
	Cache            CacheStats
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Objective        string
	Builder          string
	Generations      int
	FinalBestFitness float64
	StopReason       string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

// RunQuery addresses one stored run, either by id or as the newest run.
type RunQuery struct {
	RunID  string
	Latest bool
	Limit  int
}

type CacheRequest struct {
	Objective string
	Limit     int
}

type CacheSummary struct {
	Objective string
	Count     int64
	Records   []model.CacheRecord
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	library := opts.Library
	if library == nil {
		library = assembly.DefaultLibrary()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		library:      library,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureLab(ctx)
	return err
}

// Builders lists the registered structure builders.
func (c *Client) Builders(ctx context.Context) ([]string, error) {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return nil, err
	}
	return lab.RegisteredBuilders(), nil
}

// Objectives lists the registered scoring objectives.
func (c *Client) Objectives(ctx context.Context) ([]string, error) {
	lab, err := c.ensureLab(ctx)
	if err != nil {
		return nil, err
	}
	return lab.RegisteredObjectives(), nil
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Builder == "" {
		req.Builder = "library"
	}
	if req.Objective == "" {
		req.Objective = "rotatable_bonds"
	}
	if req.Population <= 0 {
		req.Population = 20
	}
	if req.Generations <= 0 {
		req.Generations = 50
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}
	if req.MutationRate <= 0 {
		req.MutationRate = 0.3
	}
	if req.CrossoverRate < 0 {
		return RunSummary{}, errors.New("crossover rate must be >= 0")
	}
	if req.CrossoverRate == 0 {
		req.CrossoverRate = 0.5
	}
	if req.TopCount <= 0 {
		req.TopCount = 5
	}
	if req.MinBlocks <= 0 {
		req.MinBlocks = 1
	}
	if req.MaxBlocks <= 0 {
		req.MaxBlocks = 6
	}
	if len(req.Topologies) == 0 {
		req.Topologies = []string{assembly.TopologyLinear}
	}

	lab, err := c.ensureLab(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	if err := c.ensureObjective(lab, req.Objective, req.ObjectiveParam); err != nil {
		return RunSummary{}, err
	}
	builder, ok := lab.GetBuilder(req.Builder)
	if !ok {
		return RunSummary{}, fmt.Errorf("builder not registered: %s", req.Builder)
	}

	mutationPolicy, err := c.mutationPolicy(req)
	if err != nil {
		return RunSummary{}, err
	}
	crossoverPolicy, err := crossoverPolicy(req)
	if err != nil {
		return RunSummary{}, err
	}
	parentSelector, err := evo.ParentSelectorFromName(req.ParentSelector, req.TournamentSize)
	if err != nil {
		return RunSummary{}, err
	}
	survivorSelector, err := evo.SurvivorSelectorFromName(req.SurvivorSelector, req.EliteCount)
	if err != nil {
		return RunSummary{}, err
	}
	normalizer, err := normalizerFromRequest(req)
	if err != nil {
		return RunSummary{}, err
	}

	initial, err := genotype.SeedPopulation(genotype.SeedConfig{
		Library:    c.library,
		Builder:    builder,
		Topologies: req.Topologies,
		Size:       req.Population,
		MinBlocks:  req.MinBlocks,
		MaxBlocks:  req.MaxBlocks,
		Seed:       req.Seed,
	})
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	runID := req.RunID
	if runID == "" {
		runID = fmt.Sprintf("%s-%d-%s", req.Objective, req.Seed, uuid.NewString()[:8])
	}

	runConfig := platform.RunConfig{
		RunID:            runID,
		BuilderName:      req.Builder,
		ObjectiveName:    req.Objective,
		PopulationSize:   req.Population,
		Generations:      req.Generations,
		OffspringCount:   req.OffspringCount,
		Workers:          req.Workers,
		Seed:             req.Seed,
		MutationRate:     req.MutationRate,
		CrossoverRate:    req.CrossoverRate,
		MutationPolicy:   mutationPolicy,
		CrossoverPolicy:  crossoverPolicy,
		ParentSelector:   parentSelector,
		SurvivorSelector: survivorSelector,
		Normalizer:       normalizer,
		PlateauWindow:    req.PlateauWindow,
		PlateauEpsilon:   req.PlateauEpsilon,
		GetLRUSize:       req.GetLRUSize,
		PutLRUSize:       req.PutLRUSize,
		TopCount:         req.TopCount,
		Initial:          initial,
	}

	var result platform.RunResult
	if req.Supervised {
		result, err = lab.RunEvolutionSupervised(ctx, runConfig, platform.SupervisorPolicy{})
	} else {
		result, err = lab.RunEvolution(ctx, runConfig)
	}
	if err != nil {
		return RunSummary{}, err
	}

	lineage, _, err := c.store.GetLineage(ctx, runID)
	if err != nil {
		return RunSummary{}, err
	}

	history := make([]float64, 0, len(result.Records))
	for _, record := range result.Records {
		history = append(history, record.BestFitness)
	}
	finalBest := 0.0
	if len(history) > 0 {
		finalBest = history[len(history)-1]
	}

	artifactConfig := stats.RunConfig{
		RunID:            runID,
		Builder:          req.Builder,
		Objective:        req.Objective,
		PopulationSize:   req.Population,
		Generations:      req.Generations,
		OffspringCount:   req.OffspringCount,
		Workers:          req.Workers,
		Seed:             req.Seed,
		MutationRate:     req.MutationRate,
		CrossoverRate:    req.CrossoverRate,
		ParentSelector:   parentSelector.Name(),
		SurvivorSelector: survivorSelector.Name(),
		Normalizer:       normalizer.Name(),
		PlateauWindow:    req.PlateauWindow,
		PlateauEpsilon:   req.PlateauEpsilon,
		GetLRUSize:       req.GetLRUSize,
		PutLRUSize:       req.PutLRUSize,
		TopCount:         req.TopCount,
	}
	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config:           artifactConfig,
		BestByGeneration: history,
		FinalBestFitness: finalBest,
		StopReason:       string(result.StopReason),
		Records:          result.Records,
		Top:              result.Top,
		Lineage:          lineage,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if len(result.Records) > 0 {
		summary, err := stats.BuildRunSummary(artifactConfig, result.Records, string(result.StopReason))
		if err != nil {
			return RunSummary{}, err
		}
		if err := stats.WriteRunSummary(runDir, summary); err != nil {
			return RunSummary{}, err
		}
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:            runID,
		Objective:        req.Objective,
		Builder:          req.Builder,
		Generations:      len(result.Records),
		FinalBestFitness: finalBest,
		StopReason:       string(result.StopReason),
		CreatedAtUTC:     now.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     filepath.Clean(runDir),
		StopReason:       string(result.StopReason),
		BestByGeneration: history,
		FinalBestFitness: finalBest,
		Cache: CacheStats{
			Hits:     result.CacheStats.Hits,
			Misses:   result.CacheStats.Misses,
			Computes: result.CacheStats.Computes,
		},
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Objective:        e.Objective,
			Builder:          e.Builder,
			Generations:      e.Generations,
			FinalBestFitness: e.FinalBestFitness,
			StopReason:       e.StopReason,
		})
	}
	return out, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req RunQuery) ([]float64, error) {
	runID, err := c.resolveRunID(req)
	if err != nil {
		return nil, err
	}
	if _, err := c.ensureLab(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Records(ctx context.Context, req RunQuery) ([]model.GenerationRecord, error) {
	runID, err := c.resolveRunID(req)
	if err != nil {
		return nil, err
	}
	if _, err := c.ensureLab(ctx); err != nil {
		return nil, err
	}
	records, ok, err := c.store.GetGenerationRecords(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("generation records not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(records) > req.Limit {
		records = records[:req.Limit]
	}
	out := make([]model.GenerationRecord, len(records))
	copy(out, records)
	return out, nil
}

func (c *Client) TopCandidates(ctx context.Context, req RunQuery) ([]model.TopCandidateRecord, error) {
	runID, err := c.resolveRunID(req)
	if err != nil {
		return nil, err
	}
	if _, err := c.ensureLab(ctx); err != nil {
		return nil, err
	}
	top, ok, err := c.store.GetTopCandidates(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("top candidates not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(top) > req.Limit {
		top = top[:req.Limit]
	}
	out := make([]model.TopCandidateRecord, len(top))
	copy(out, top)
	return out, nil
}

func (c *Client) Lineage(ctx context.Context, req RunQuery) ([]model.LineageRecord, error) {
	runID, err := c.resolveRunID(req)
	if err != nil {
		return nil, err
	}
	if _, err := c.ensureLab(ctx); err != nil {
		return nil, err
	}
	lineage, ok, err := c.store.GetLineage(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("lineage not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(lineage) > req.Limit {
		lineage = lineage[:req.Limit]
	}
	out := make([]model.LineageRecord, len(lineage))
	copy(out, lineage)
	return out, nil
}

// Cache reports the persisted result cache for one objective collection.
func (c *Client) Cache(ctx context.Context, req CacheRequest) (CacheSummary, error) {
	if req.Objective == "" {
		return CacheSummary{}, errors.New("objective is required")
	}
	if _, err := c.ensureLab(ctx); err != nil {
		return CacheSummary{}, err
	}

	count, err := c.store.CountCacheRecords(ctx, req.Objective)
	if err != nil {
		return CacheSummary{}, err
	}
	records, err := c.store.AllCacheRecords(ctx, req.Objective)
	if err != nil {
		return CacheSummary{}, err
	}
	if req.Limit > 0 && len(records) > req.Limit {
		records = records[:req.Limit]
	}
	return CacheSummary{Objective: req.Objective, Count: count, Records: records}, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) resolveRunID(req RunQuery) (string, error) {
	if req.RunID != "" && req.Latest {
		return "", errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return "", errors.New("limit must be >= 0")
	}
	if req.RunID != "" {
		return req.RunID, nil
	}
	if !req.Latest {
		return "", errors.New("query requires run id or latest")
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) ensureLab(ctx context.Context) (*platform.Lab, error) {
	if c.lab != nil {
		return c.lab, nil
	}
	lab := platform.NewLab(platform.Config{
		Store:      c.store,
		Builders:   []assembly.Builder{assembly.LibraryBuilder{Library: c.library}},
		Objectives: []objective.Objective{objective.RotatableBonds{}},
	})
	if err := lab.Init(ctx); err != nil {
		return nil, err
	}
	c.lab = lab
	return c.lab, nil
}

// ensureObjective registers the requested objective on demand. The first
// registration of a name wins; later runs reuse it and its collection.
func (c *Client) ensureObjective(lab *platform.Lab, name string, param float64) error {
	if _, ok := lab.GetObjective(name); ok {
		return nil
	}
	obj, err := objective.FromName(name, param)
	if err != nil {
		return err
	}
	if err := lab.RegisterObjective(obj); err != nil {
		// A concurrent run registered the name first; reuse its objective.
		if _, ok := lab.GetObjective(name); ok {
			return nil
		}
		return err
	}
	return nil
}

func (c *Client) mutationPolicy(req RunRequest) ([]evo.WeightedMutation, error) {
	if len(req.MutationOperators) == 0 {
		return evo.DefaultMutationPolicy(c.library, req.MinBlocks, req.MaxBlocks), nil
	}
	policy := make([]evo.WeightedMutation, 0, len(req.MutationOperators))
	for _, op := range req.MutationOperators {
		mutation, err := evo.MutationFromName(op.Name, c.library, req.MinBlocks, req.MaxBlocks)
		if err != nil {
			return nil, err
		}
		policy = append(policy, evo.WeightedMutation{Operator: mutation, Weight: op.Weight})
	}
	return policy, nil
}

func crossoverPolicy(req RunRequest) ([]evo.WeightedCrossover, error) {
	if len(req.CrossoverOperators) == 0 {
		return evo.DefaultCrossoverPolicy(), nil
	}
	policy := make([]evo.WeightedCrossover, 0, len(req.CrossoverOperators))
	for _, op := range req.CrossoverOperators {
		crossover, err := evo.CrossoverFromName(op.Name)
		if err != nil {
			return nil, err
		}
		policy = append(policy, evo.WeightedCrossover{Operator: crossover, Weight: op.Weight})
	}
	return policy, nil
}

func normalizerFromRequest(req RunRequest) (evo.FitnessNormalizer, error) {
	if req.Normalizer == "size_penalty" && req.SizePenalty > 0 {
		return evo.SizePenaltyNormalizer{PerBlock: req.SizePenalty}, nil
	}
	return evo.NormalizerFromName(req.Normalizer)
}
