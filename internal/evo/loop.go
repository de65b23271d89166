package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"molevo/internal/model"
)

// StopReason explains why a run terminated.
type StopReason string

const (
	StopCompleted StopReason = "completed"
	StopPlateau   StopReason = "plateau"
	StopCancelled StopReason = "cancelled"
)

// ProgressSink receives generation records as the run produces them.
type ProgressSink interface {
	RecordGeneration(record model.GenerationRecord)
}

// RecordLog is an in-memory ProgressSink.
type RecordLog struct {
	mu      sync.Mutex
	records []model.GenerationRecord
}

func (l *RecordLog) RecordGeneration(record model.GenerationRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

func (l *RecordLog) Records() []model.GenerationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.GenerationRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Config drives a Loop. Zero values pick conservative defaults where a
// default makes sense; required fields fail construction.
type Config struct {
	Evaluator *Evaluator

	PopulationSize int
	Generations    int
	OffspringCount int
	Workers        int
	Seed           int64

	MutationRate  float64
	CrossoverRate float64

	MutationPolicy  []WeightedMutation
	CrossoverPolicy []WeightedCrossover

	ParentSelector   ParentSelector
	SurvivorSelector SurvivorSelector
	Normalizer       FitnessNormalizer

	// PlateauWindow of zero disables plateau detection.
	PlateauWindow  int
	PlateauEpsilon float64

	// AbandonOnCancel makes cancellation an error instead of a partial
	// result with StopCancelled.
	AbandonOnCancel bool

	Sink ProgressSink
}

// RunResult is everything a finished (or stopped) run produced.
type RunResult struct {
	Records         []model.GenerationRecord
	FinalPopulation []model.Candidate
	Best            *model.Candidate
	StopReason      StopReason
	Lineage         []model.LineageRecord
}

// Loop runs the generational cycle: evaluate the working population, rank,
// record, breed offspring, and select survivors. Offspring bred in one
// generation are evaluated at the start of the next.
type Loop struct {
	cfg Config
	rng *rand.Rand
}

func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0, got %d", cfg.PopulationSize)
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0, got %d", cfg.Generations)
	}
	if cfg.OffspringCount <= 0 {
		cfg.OffspringCount = cfg.PopulationSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return nil, fmt.Errorf("mutation rate must be in [0, 1], got %g", cfg.MutationRate)
	}
	if cfg.CrossoverRate < 0 || cfg.CrossoverRate > 1 {
		return nil, fmt.Errorf("crossover rate must be in [0, 1], got %g", cfg.CrossoverRate)
	}
	if len(cfg.MutationPolicy) == 0 {
		return nil, errors.New("at least one mutation operator is required")
	}
	positive := false
	for i, item := range cfg.MutationPolicy {
		if item.Operator == nil {
			return nil, fmt.Errorf("mutation policy operator is required at index %d", i)
		}
		if item.Weight < 0 {
			return nil, fmt.Errorf("mutation policy weight must be >= 0 at index %d", i)
		}
		if item.Weight > 0 {
			positive = true
		}
	}
	if !positive {
		return nil, errors.New("mutation policy requires at least one positive weight")
	}
	for i, item := range cfg.CrossoverPolicy {
		if item.Operator == nil {
			return nil, fmt.Errorf("crossover policy operator is required at index %d", i)
		}
		if item.Weight < 0 {
			return nil, fmt.Errorf("crossover policy weight must be >= 0 at index %d", i)
		}
	}
	if cfg.CrossoverRate > 0 && len(cfg.CrossoverPolicy) == 0 {
		return nil, errors.New("crossover rate is positive but no crossover operators are configured")
	}
	if cfg.PlateauWindow < 0 {
		return nil, fmt.Errorf("plateau window must be >= 0, got %d", cfg.PlateauWindow)
	}
	if cfg.ParentSelector == nil {
		cfg.ParentSelector = RouletteSelector{}
	}
	if cfg.SurvivorSelector == nil {
		cfg.SurvivorSelector = ElitistSurvivors{EliteCount: 1}
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = NoopNormalizer{}
	}

	return &Loop{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run executes the loop over the initial population. The initial candidates
// need only genotypes; structures and fitness are resolved during the first
// Evaluating phase.
func (l *Loop) Run(ctx context.Context, initial []model.Candidate) (RunResult, error) {
	if len(initial) != l.cfg.PopulationSize {
		return RunResult{}, fmt.Errorf("initial population mismatch: got=%d want=%d", len(initial), l.cfg.PopulationSize)
	}

	population := make([]model.Candidate, len(initial))
	for i := range initial {
		population[i] = initial[i].Clone()
		if population[i].ID == "" {
			population[i].ID = fmt.Sprintf("c-g0-i%d", i)
		}
	}

	records := make([]model.GenerationRecord, 0, l.cfg.Generations)
	lineage := make([]model.LineageRecord, 0, len(initial)*(l.cfg.Generations+1))
	for _, c := range population {
		lineage = append(lineage, model.LineageRecord{
			CandidateID: c.ID,
			Generation:  0,
			Operation:   "seed",
		})
	}

	var scoredRaw []model.Candidate
	stop := StopCompleted

	for gen := 1; gen <= l.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return l.finishCancelled(records, scoredRaw, lineage, err)
		}

		statsBefore := l.cfg.Evaluator.Cache.Stats()
		evaluated, evaluatedCount, err := l.evaluatePopulation(ctx, population)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return l.finishCancelled(records, scoredRaw, lineage, err)
			}
			return RunResult{}, err
		}
		statsAfter := l.cfg.Evaluator.Cache.Stats()

		scoredRaw = scoredRaw[:0]
		failures := 0
		for _, c := range evaluated {
			if c.Scored() {
				scoredRaw = append(scoredRaw, c)
			} else {
				failures++
			}
		}
		if len(scoredRaw) == 0 {
			return RunResult{}, fmt.Errorf("generation %d: every candidate failed", gen)
		}

		fillLineageFingerprints(lineage, evaluated)

		ranked := l.rankByNormalized(scoredRaw)
		record := summarizeGeneration(gen, ranked, l.cfg.Normalizer)
		record.PopulationSize = len(population)
		record.Evaluated = evaluatedCount - failures
		record.Failures = failures
		record.CacheHits = statsAfter.Hits - statsBefore.Hits
		records = append(records, record)
		if l.cfg.Sink != nil {
			l.cfg.Sink.RecordGeneration(record)
		}

		if l.plateaued(records) {
			stop = StopPlateau
			break
		}
		if gen == l.cfg.Generations {
			break
		}

		offspring, breedLineage, err := l.breed(ctx, ranked, gen)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return l.finishCancelled(records, scoredRaw, lineage, err)
			}
			return RunResult{}, err
		}
		lineage = append(lineage, breedLineage...)

		population, err = l.cfg.SurvivorSelector.ChooseSurvivors(l.rng, ranked, offspring, l.cfg.PopulationSize)
		if err != nil {
			return RunResult{}, err
		}
	}

	final := RankByFitness(scoredRaw)
	best := final[0].Clone()
	return RunResult{
		Records:         records,
		FinalPopulation: final,
		Best:            &best,
		StopReason:      stop,
		Lineage:         lineage,
	}, nil
}

func (l *Loop) finishCancelled(records []model.GenerationRecord, scoredRaw []model.Candidate, lineage []model.LineageRecord, err error) (RunResult, error) {
	if l.cfg.AbandonOnCancel {
		return RunResult{}, err
	}
	result := RunResult{
		Records:    records,
		StopReason: StopCancelled,
		Lineage:    lineage,
	}
	if len(scoredRaw) > 0 {
		final := RankByFitness(scoredRaw)
		best := final[0].Clone()
		result.FinalPopulation = final
		result.Best = &best
	}
	return result, nil
}

// evaluatePopulation scores every candidate that does not already carry a
// valid fitness, fanning work out over the configured worker count. The
// second return value counts attempted evaluations, failures included; the
// generation record reports successes only.
func (l *Loop) evaluatePopulation(ctx context.Context, population []model.Candidate) ([]model.Candidate, int, error) {
	type job struct {
		idx       int
		candidate model.Candidate
	}
	type result struct {
		idx       int
		candidate model.Candidate
		err       error
	}

	pending := make([]job, 0, len(population))
	out := make([]model.Candidate, len(population))
	for i, c := range population {
		if c.Scored() {
			out[i] = c
			continue
		}
		pending = append(pending, job{idx: i, candidate: c})
	}
	if len(pending) == 0 {
		return out, 0, nil
	}

	jobs := make(chan job)
	results := make(chan result, len(pending))

	workerCount := l.cfg.Workers
	if workerCount > len(pending) {
		workerCount = len(pending)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				evaluated, err := l.cfg.Evaluator.Evaluate(ctx, j.candidate)
				results <- result{idx: j.idx, candidate: evaluated, err: err}
			}
		}()
	}

	for _, j := range pending {
		jobs <- j
	}
	close(jobs)

	wg.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			return nil, 0, res.err
		}
		out[res.idx] = res.candidate
	}
	return out, len(pending), nil
}

// rankByNormalized orders the raw-scored pool by normalized fitness with
// fingerprint tie-breaks, keeping raw scores on the returned candidates so
// survivors carry cacheable values forward.
func (l *Loop) rankByNormalized(scoredRaw []model.Candidate) []model.Candidate {
	normalized := l.cfg.Normalizer.Normalize(scoredRaw)
	indexByID := make(map[string]int, len(scoredRaw))
	for i, c := range scoredRaw {
		indexByID[c.ID] = i
	}
	orderedNormalized := RankByFitness(normalized)
	ranked := make([]model.Candidate, 0, len(orderedNormalized))
	for _, c := range orderedNormalized {
		ranked = append(ranked, scoredRaw[indexByID[c.ID]].Clone())
	}
	return ranked
}

func (l *Loop) plateaued(records []model.GenerationRecord) bool {
	window := l.cfg.PlateauWindow
	if window <= 0 || len(records) <= window {
		return false
	}
	current := records[len(records)-1].BestFitness
	past := records[len(records)-1-window].BestFitness
	return current-past < l.cfg.PlateauEpsilon
}

// breed produces offspring genotypes for the next generation. Offspring are
// returned unevaluated; the next Evaluating phase assembles and scores them.
func (l *Loop) breed(ctx context.Context, ranked []model.Candidate, generation int) ([]model.Candidate, []model.LineageRecord, error) {
	offspring := make([]model.Candidate, 0, l.cfg.OffspringCount)
	lineage := make([]model.LineageRecord, 0, l.cfg.OffspringCount)

	nextIdx := 0
	for len(offspring) < l.cfg.OffspringCount {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		var children []model.Genotype
		var parents []string
		var operation string

		if len(l.cfg.CrossoverPolicy) > 0 && l.rng.Float64() < l.cfg.CrossoverRate && len(ranked) >= 2 {
			op := l.chooseCrossover()
			a, err := l.cfg.ParentSelector.PickParent(l.rng, ranked)
			if err != nil {
				return nil, nil, err
			}
			b, err := l.cfg.ParentSelector.PickParent(l.rng, ranked)
			if err != nil {
				return nil, nil, err
			}
			out, err := op.Apply(l.rng, a.Genotype, b.Genotype)
			switch {
			case err == nil:
				children = out
				parents = []string{a.Fingerprint, b.Fingerprint}
				operation = op.Name()
			case errors.Is(err, ErrNoMutationSite) || errors.Is(err, ErrEmptyGenotype):
				// Parents too short for this operator; fall through to
				// mutation-only breeding.
			default:
				return nil, nil, err
			}
		}

		if children == nil {
			parent, err := l.cfg.ParentSelector.PickParent(l.rng, ranked)
			if err != nil {
				return nil, nil, err
			}
			child, opName, err := l.mutateGenotype(parent.Genotype)
			if err != nil {
				return nil, nil, err
			}
			children = []model.Genotype{child}
			parents = []string{parent.Fingerprint}
			operation = opName
		} else if l.cfg.MutationRate > 0 {
			for i := range children {
				if l.rng.Float64() >= l.cfg.MutationRate {
					continue
				}
				mutated, opName, err := l.mutateGenotype(children[i])
				if err != nil {
					return nil, nil, err
				}
				children[i] = mutated
				operation = operation + "+" + opName
			}
		}

		for _, child := range children {
			if len(offspring) >= l.cfg.OffspringCount {
				break
			}
			id := fmt.Sprintf("c-g%d-i%d", generation, nextIdx)
			nextIdx++
			offspring = append(offspring, model.Candidate{
				ID:       id,
				Genotype: child,
				Lineage:  append([]string(nil), parents...),
			})
			lineage = append(lineage, model.LineageRecord{
				CandidateID: id,
				Parents:     append([]string(nil), parents...),
				Generation:  generation,
				Operation:   operation,
			})
		}
	}

	return offspring, lineage, nil
}

// mutateGenotype applies one weighted mutation; operators without an
// applicable site are retried with the remaining policy before giving up
// and returning the genotype unchanged.
func (l *Loop) mutateGenotype(g model.Genotype) (model.Genotype, string, error) {
	tried := make(map[string]struct{}, len(l.cfg.MutationPolicy))
	for range l.cfg.MutationPolicy {
		op := l.chooseMutation()
		if _, done := tried[op.Name()]; done {
			continue
		}
		tried[op.Name()] = struct{}{}

		mutated, err := op.Apply(l.rng, g)
		if err == nil {
			return mutated, op.Name(), nil
		}
		if errors.Is(err, ErrNoMutationSite) {
			continue
		}
		return model.Genotype{}, "", err
	}
	return g.Clone(), "noop(no_mutation_site)", nil
}

func (l *Loop) chooseMutation() Mutation {
	total := 0.0
	for _, item := range l.cfg.MutationPolicy {
		total += item.Weight
	}
	pick := l.rng.Float64() * total
	acc := 0.0
	for _, item := range l.cfg.MutationPolicy {
		acc += item.Weight
		if pick <= acc {
			return item.Operator
		}
	}
	return l.cfg.MutationPolicy[len(l.cfg.MutationPolicy)-1].Operator
}

func (l *Loop) chooseCrossover() Crossover {
	total := 0.0
	for _, item := range l.cfg.CrossoverPolicy {
		total += item.Weight
	}
	if total <= 0 {
		return l.cfg.CrossoverPolicy[0].Operator
	}
	pick := l.rng.Float64() * total
	acc := 0.0
	for _, item := range l.cfg.CrossoverPolicy {
		acc += item.Weight
		if pick <= acc {
			return item.Operator
		}
	}
	return l.cfg.CrossoverPolicy[len(l.cfg.CrossoverPolicy)-1].Operator
}

func summarizeGeneration(generation int, ranked []model.Candidate, normalizer FitnessNormalizer) model.GenerationRecord {
	normalized := normalizer.Normalize(ranked)
	ordered := RankByFitness(normalized)

	best := *ordered[0].Fitness
	minFitness := best
	total := 0.0
	for _, c := range ordered {
		total += *c.Fitness
		if *c.Fitness < minFitness {
			minFitness = *c.Fitness
		}
	}

	return model.GenerationRecord{
		Generation:      generation,
		BestFitness:     best,
		MeanFitness:     total / float64(len(ordered)),
		MinFitness:      minFitness,
		BestFingerprint: ordered[0].Fingerprint,
	}
}

func fillLineageFingerprints(lineage []model.LineageRecord, evaluated []model.Candidate) {
	byID := make(map[string]string, len(evaluated))
	for _, c := range evaluated {
		if c.Fingerprint != "" {
			byID[c.ID] = c.Fingerprint
		}
	}
	for i := range lineage {
		if lineage[i].Fingerprint != "" {
			continue
		}
		if fp, ok := byID[lineage[i].CandidateID]; ok {
			lineage[i].Fingerprint = fp
		}
	}
}
