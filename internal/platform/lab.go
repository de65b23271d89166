// Package platform hosts the Lab: the long-lived coordinator that owns the
// shared store, the registered builders and objectives, and the active
// evolution runs.
package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"molevo/internal/assembly"
	"molevo/internal/cache"
	"molevo/internal/evo"
	"molevo/internal/model"
	"molevo/internal/objective"
	"molevo/internal/storage"
)

type Config struct {
	Store      storage.Store
	Builders   []assembly.Builder
	Objectives []objective.Objective
}

// RunConfig is the full driver configuration for one evolution run.
type RunConfig struct {
	RunID         string
	BuilderName   string
	ObjectiveName string

	PopulationSize int
	Generations    int
	OffspringCount int
	Workers        int
	Seed           int64

	MutationRate  float64
	CrossoverRate float64

	MutationPolicy  []evo.WeightedMutation
	CrossoverPolicy []evo.WeightedCrossover

	ParentSelector   evo.ParentSelector
	SurvivorSelector evo.SurvivorSelector
	Normalizer       evo.FitnessNormalizer

	PlateauWindow  int
	PlateauEpsilon float64

	GetLRUSize int
	PutLRUSize int

	TopCount int

	Sink evo.ProgressSink

	Initial []model.Candidate
}

// RunResult is an evolution run's outcome plus its persistence identity.
type RunResult struct {
	RunID      string
	StopReason evo.StopReason
	Records    []model.GenerationRecord
	Best       *model.Candidate
	Top        []model.TopCandidateRecord
	CacheStats cache.Stats
}

// Lab coordinates concurrent evolution runs over one shared store. Runs
// share nothing but the store; the result cache's write-once semantics keep
// them coherent.
type Lab struct {
	store storage.Store

	mu         sync.RWMutex
	builders   map[string]assembly.Builder
	objectives map[string]objective.Objective
	runs       map[string]context.CancelFunc
	started    bool

	config Config
}

func NewLab(cfg Config) *Lab {
	return &Lab{
		store:      cfg.Store,
		builders:   make(map[string]assembly.Builder),
		objectives: make(map[string]objective.Objective),
		runs:       make(map[string]context.CancelFunc),
		config:     cfg,
	}
}

func (l *Lab) Init(ctx context.Context) error {
	if l.store == nil {
		return fmt.Errorf("store is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	if err := l.store.Init(ctx); err != nil {
		return err
	}

	for i, builder := range l.config.Builders {
		if builder == nil {
			l.builders = make(map[string]assembly.Builder)
			return fmt.Errorf("builder is nil at index %d", i)
		}
		name := builder.Name()
		if name == "" {
			l.builders = make(map[string]assembly.Builder)
			return fmt.Errorf("builder name is required at index %d", i)
		}
		if _, exists := l.builders[name]; exists {
			l.builders = make(map[string]assembly.Builder)
			return fmt.Errorf("duplicate builder: %s", name)
		}
		l.builders[name] = builder
	}
	for i, obj := range l.config.Objectives {
		if obj == nil {
			l.builders = make(map[string]assembly.Builder)
			l.objectives = make(map[string]objective.Objective)
			return fmt.Errorf("objective is nil at index %d", i)
		}
		name := obj.Name()
		if name == "" {
			l.builders = make(map[string]assembly.Builder)
			l.objectives = make(map[string]objective.Objective)
			return fmt.Errorf("objective name is required at index %d", i)
		}
		if _, exists := l.objectives[name]; exists {
			l.builders = make(map[string]assembly.Builder)
			l.objectives = make(map[string]objective.Objective)
			return fmt.Errorf("duplicate objective: %s", name)
		}
		l.objectives[name] = obj
	}

	l.started = true
	return nil
}

// RegisterBuilder adds a builder after Init. Names are first-wins: a second
// registration under an existing name is rejected.
func (l *Lab) RegisterBuilder(b assembly.Builder) error {
	if b == nil {
		return fmt.Errorf("builder is nil")
	}
	name := b.Name()
	if name == "" {
		return fmt.Errorf("builder name is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return fmt.Errorf("lab is not initialized")
	}
	if _, exists := l.builders[name]; exists {
		return fmt.Errorf("builder already registered: %s", name)
	}
	l.builders[name] = b
	return nil
}

func (l *Lab) RegisterObjective(o objective.Objective) error {
	if o == nil {
		return fmt.Errorf("objective is nil")
	}
	name := o.Name()
	if name == "" {
		return fmt.Errorf("objective name is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return fmt.Errorf("lab is not initialized")
	}
	if _, exists := l.objectives[name]; exists {
		return fmt.Errorf("objective already registered: %s", name)
	}
	l.objectives[name] = o
	return nil
}

func (l *Lab) GetBuilder(name string) (assembly.Builder, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.builders[name]
	return b, ok
}

func (l *Lab) GetObjective(name string) (objective.Objective, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.objectives[name]
	return o, ok
}

func (l *Lab) RegisteredBuilders() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.builders))
	for name := range l.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Lab) RegisteredObjectives() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.objectives))
	for name := range l.objectives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunEvolution executes one run end to end and persists its artifacts under
// the run ID: best-fitness history, generation records, top candidates, and
// lineage.
func (l *Lab) RunEvolution(ctx context.Context, cfg RunConfig) (RunResult, error) {
	if cfg.BuilderName == "" {
		return RunResult{}, fmt.Errorf("builder name is required")
	}
	if cfg.ObjectiveName == "" {
		return RunResult{}, fmt.Errorf("objective name is required")
	}

	l.mu.RLock()
	builder, builderOK := l.builders[cfg.BuilderName]
	obj, objectiveOK := l.objectives[cfg.ObjectiveName]
	started := l.started
	l.mu.RUnlock()

	if !started {
		return RunResult{}, fmt.Errorf("lab is not initialized")
	}
	if !builderOK {
		return RunResult{}, fmt.Errorf("builder not registered: %s", cfg.BuilderName)
	}
	if !objectiveOK {
		return RunResult{}, fmt.Errorf("objective not registered: %s", cfg.ObjectiveName)
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := l.registerRun(runID, cancel); err != nil {
		return RunResult{}, err
	}
	defer l.unregisterRun(runID)

	resultCache, err := cache.New(l.store, cache.Config{
		Collection: cfg.ObjectiveName,
		GetLRUSize: cfg.GetLRUSize,
		PutLRUSize: cfg.PutLRUSize,
	})
	if err != nil {
		return RunResult{}, err
	}
	evaluator, err := evo.NewEvaluator(builder, obj, resultCache)
	if err != nil {
		return RunResult{}, err
	}

	loop, err := evo.NewLoop(evo.Config{
		Evaluator:        evaluator,
		PopulationSize:   cfg.PopulationSize,
		Generations:      cfg.Generations,
		OffspringCount:   cfg.OffspringCount,
		Workers:          cfg.Workers,
		Seed:             cfg.Seed,
		MutationRate:     cfg.MutationRate,
		CrossoverRate:    cfg.CrossoverRate,
		MutationPolicy:   cfg.MutationPolicy,
		CrossoverPolicy:  cfg.CrossoverPolicy,
		ParentSelector:   cfg.ParentSelector,
		SurvivorSelector: cfg.SurvivorSelector,
		Normalizer:       cfg.Normalizer,
		PlateauWindow:    cfg.PlateauWindow,
		PlateauEpsilon:   cfg.PlateauEpsilon,
		Sink:             cfg.Sink,
	})
	if err != nil {
		return RunResult{}, err
	}

	result, err := loop.Run(runCtx, cfg.Initial)
	if err != nil {
		return RunResult{}, err
	}

	history := make([]float64, 0, len(result.Records))
	for _, record := range result.Records {
		history = append(history, record.BestFitness)
	}
	top := topCandidates(result.FinalPopulation, cfg.TopCount)

	if err := l.store.SaveFitnessHistory(ctx, runID, history); err != nil {
		return RunResult{}, err
	}
	if err := l.store.SaveGenerationRecords(ctx, runID, result.Records); err != nil {
		return RunResult{}, err
	}
	if err := l.store.SaveTopCandidates(ctx, runID, top); err != nil {
		return RunResult{}, err
	}
	if err := l.store.SaveLineage(ctx, runID, result.Lineage); err != nil {
		return RunResult{}, err
	}

	return RunResult{
		RunID:      runID,
		StopReason: result.StopReason,
		Records:    result.Records,
		Best:       result.Best,
		Top:        top,
		CacheStats: resultCache.Stats(),
	}, nil
}

// CancelRun cancels an active run. The run finishes with a partial result.
func (l *Lab) CancelRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	l.mu.RLock()
	cancel, ok := l.runs[runID]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run not active: %s", runID)
	}
	cancel()
	return nil
}

func (l *Lab) ActiveRuns() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.runs))
	for id := range l.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Lab) Started() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.started
}

func (l *Lab) Store() storage.Store {
	return l.store
}

func (l *Lab) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, cancel := range l.runs {
		cancel()
	}
	l.runs = make(map[string]context.CancelFunc)
	l.started = false
}

func (l *Lab) registerRun(runID string, cancel context.CancelFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return fmt.Errorf("lab is not initialized")
	}
	if _, exists := l.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	l.runs[runID] = cancel
	return nil
}

func (l *Lab) unregisterRun(runID string) {
	l.mu.Lock()
	delete(l.runs, runID)
	l.mu.Unlock()
}

func topCandidates(final []model.Candidate, count int) []model.TopCandidateRecord {
	if count <= 0 {
		count = 5
	}
	ranked := evo.RankByFitness(final)
	if len(ranked) < count {
		count = len(ranked)
	}
	out := make([]model.TopCandidateRecord, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, model.TopCandidateRecord{
			Rank:      i + 1,
			Fitness:   *ranked[i].Fitness,
			Candidate: ranked[i],
		})
	}
	return out
}
