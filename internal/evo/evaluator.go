package evo

import (
	"context"
	"errors"
	"time"

	"molevo/internal/assembly"
	"molevo/internal/cache"
	"molevo/internal/chem"
	"molevo/internal/model"
	"molevo/internal/objective"
	"molevo/internal/storage"
)

// Evaluator resolves a candidate to a scored candidate: assemble the
// structure if needed, fingerprint it, and fetch or compute the fitness
// through the result cache.
//
// Construction and evaluation failures are contained: the returned candidate
// carries the failure kind and the error is nil. Only cache unavailability
// surfaces as an error, which aborts the run.
type Evaluator struct {
	Builder   assembly.Builder
	Objective objective.Objective
	Cache     *cache.ResultCache
}

func NewEvaluator(builder assembly.Builder, obj objective.Objective, resultCache *cache.ResultCache) (*Evaluator, error) {
	if builder == nil {
		return nil, errors.New("builder is required")
	}
	if obj == nil {
		return nil, errors.New("objective is required")
	}
	if resultCache == nil {
		return nil, errors.New("result cache is required")
	}
	return &Evaluator{Builder: builder, Objective: obj, Cache: resultCache}, nil
}

func (e *Evaluator) Evaluate(ctx context.Context, candidate model.Candidate) (model.Candidate, error) {
	out := candidate.Clone()
	out.Failure = ""
	out.Fitness = nil

	if out.Structure == nil {
		structure, err := e.Builder.Build(out.Genotype)
		if err != nil {
			out.Failure = model.FailureConstruction
			return out, nil
		}
		out.Structure = &structure
	}
	if out.Fingerprint == "" {
		out.Fingerprint = chem.Fingerprint(*out.Structure)
	}

	record, _, err := e.Cache.GetOrCompute(ctx, out.Fingerprint, func(ctx context.Context) (model.CacheRecord, error) {
		started := time.Now()
		score, err := e.Objective.Score(ctx, *out.Structure)
		if err != nil {
			return model.CacheRecord{}, err
		}
		return model.CacheRecord{
			VersionedRecord: model.VersionedRecord{
				SchemaVersion: storage.CurrentSchemaVersion,
				CodecVersion:  storage.CurrentCodecVersion,
			},
			Fingerprint:   out.Fingerprint,
			Fitness:       score,
			Objective:     e.Objective.Name(),
			ElapsedMicros: time.Since(started).Microseconds(),
			CreatedAtUTC:  time.Now().UTC().Format(time.RFC3339Nano),
		}, nil
	})
	if err != nil {
		if errors.Is(err, cache.ErrUnavailable) {
			return model.Candidate{}, err
		}
		if ctx.Err() != nil {
			return model.Candidate{}, ctx.Err()
		}
		out.Failure = model.FailureEvaluation
		return out, nil
	}

	fitness := record.Fitness
	out.Fitness = &fitness
	return out, nil
}
