package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"molevo/internal/model"
)

// RunSummary condenses one run's best-by-generation series into the numbers
// a comparison table needs.
type RunSummary struct {
	RunID          string  `json:"run_id"`
	Objective      string  `json:"objective"`
	Builder        string  `json:"builder"`
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	Seed           int64   `json:"seed"`
	StopReason     string  `json:"stop_reason"`
	InitialBest    float64 `json:"initial_best"`
	FinalBest      float64 `json:"final_best"`
	BestMean       float64 `json:"best_mean"`
	BestStd        float64 `json:"best_std"`
	BestMax        float64 `json:"best_max"`
	BestMin        float64 `json:"best_min"`
	Evaluated      int     `json:"evaluated"`
	Failures       int     `json:"failures"`
	CacheHits      int64   `json:"cache_hits"`
}

func BuildRunSummary(cfg RunConfig, records []model.GenerationRecord, stopReason string) (RunSummary, error) {
	if len(records) == 0 {
		return RunSummary{}, fmt.Errorf("run summary requires at least one generation record")
	}

	best := make([]float64, 0, len(records))
	summary := RunSummary{
		RunID:          cfg.RunID,
		Objective:      cfg.Objective,
		Builder:        cfg.Builder,
		PopulationSize: cfg.PopulationSize,
		Generations:    len(records),
		Seed:           cfg.Seed,
		StopReason:     stopReason,
	}
	for _, record := range records {
		best = append(best, record.BestFitness)
		summary.Evaluated += record.Evaluated
		summary.Failures += record.Failures
		summary.CacheHits += record.CacheHits
	}

	summary.InitialBest = best[0]
	summary.FinalBest = best[len(best)-1]
	summary.BestMean, summary.BestStd = meanStd(best)
	summary.BestMax = maxFloat(best)
	summary.BestMin = minFloat(best)
	return summary, nil
}

func WriteRunSummary(runDir string, summary RunSummary) error {
	return writeJSON(filepath.Join(runDir, "summary.json"), summary)
}

func ReadRunSummary(baseDir, runID string) (RunSummary, bool, error) {
	path := filepath.Join(baseDir, runID, "summary.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunSummary{}, false, nil
		}
		return RunSummary{}, false, err
	}
	var summary RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return RunSummary{}, false, err
	}
	return summary, true, nil
}

// ObjectiveGraph aggregates fitness series across runs of the same
// objective, column by column, for plotting mean and spread per generation.
type ObjectiveGraph struct {
	Objective   string    `json:"objective"`
	Runs        int       `json:"runs"`
	Generations []int     `json:"generations"`
	AvgBest     []float64 `json:"avg_best"`
	BestStd     []float64 `json:"best_std"`
	MaxBest     []float64 `json:"max_best"`
	MinBest     []float64 `json:"min_best"`
}

// BuildObjectiveGraphs reads the fitness series of each run under baseDir,
// groups runs by objective and aggregates per generation. Shorter runs drop
// out of later columns instead of padding them.
func BuildObjectiveGraphs(baseDir string, runIDs []string) ([]ObjectiveGraph, error) {
	if len(runIDs) == 0 {
		return []ObjectiveGraph{}, nil
	}

	seriesByObjective := make(map[string][][]float64)
	for _, runID := range runIDs {
		cfg, ok, err := ReadRunConfig(baseDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("run config not found for run id: %s", runID)
		}
		series, ok, err := ReadFitnessSeries(baseDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("fitness series not found for run id: %s", runID)
		}
		objective := strings.TrimSpace(cfg.Objective)
		if objective == "" {
			objective = "unknown"
		}
		seriesByObjective[objective] = append(seriesByObjective[objective], series)
	}

	objectives := make([]string, 0, len(seriesByObjective))
	for objective := range seriesByObjective {
		objectives = append(objectives, objective)
	}
	sort.Strings(objectives)

	graphs := make([]ObjectiveGraph, 0, len(objectives))
	for _, objective := range objectives {
		series := seriesByObjective[objective]
		graph := ObjectiveGraph{Objective: objective, Runs: len(series)}
		for gen := 0; ; gen++ {
			column := make([]float64, 0, len(series))
			for _, run := range series {
				if gen < len(run) {
					column = append(column, run[gen])
				}
			}
			if len(column) == 0 {
				break
			}
			mean, std := meanStd(column)
			graph.Generations = append(graph.Generations, gen+1)
			graph.AvgBest = append(graph.AvgBest, mean)
			graph.BestStd = append(graph.BestStd, std)
			graph.MaxBest = append(graph.MaxBest, maxFloat(column))
			graph.MinBest = append(graph.MinBest, minFloat(column))
		}
		graphs = append(graphs, graph)
	}
	return graphs, nil
}

func WriteObjectiveGraphs(baseDir string, graphs []ObjectiveGraph) error {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(baseDir, "objective_graphs.json"), graphs)
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

func maxFloat(values []float64) float64 {
	best := math.Inf(-1)
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return best
}

func minFloat(values []float64) float64 {
	worst := math.Inf(1)
	for _, v := range values {
		if v < worst {
			worst = v
		}
	}
	return worst
}
