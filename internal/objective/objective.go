package objective

import (
	"context"
	"fmt"
	"math"

	"molevo/internal/chem"
	"molevo/internal/model"
)

// Objective scores an assembled structure. Implementations may be slow or
// expensive; the engine only ever invokes them through the cache-guarded
// evaluation path. Higher scores are better.
type Objective interface {
	Name() string
	Score(ctx context.Context, s model.Structure) (float64, error)
}

// RotatableBonds rewards rigid molecules: score is the negated count of
// rotatable bonds, so zero is the best achievable value.
type RotatableBonds struct{}

func (RotatableBonds) Name() string {
	return "rotatable_bonds"
}

func (RotatableBonds) Score(_ context.Context, s model.Structure) (float64, error) {
	return -float64(chem.CountRotatableBonds(s)), nil
}

// MolecularWeightTarget rewards structures close to a target weight.
type MolecularWeightTarget struct {
	Target float64
}

func (MolecularWeightTarget) Name() string {
	return "mw_target"
}

func (o MolecularWeightTarget) Score(_ context.Context, s model.Structure) (float64, error) {
	if o.Target <= 0 {
		return 0, fmt.Errorf("mw target must be > 0")
	}
	return -math.Abs(chem.MolecularWeight(s) - o.Target), nil
}

// FromName resolves a named objective for driver configuration. param feeds
// objectives that take one numeric knob.
func FromName(name string, param float64) (Objective, error) {
	switch name {
	case "rotatable_bonds":
		return RotatableBonds{}, nil
	case "mw_target":
		if param <= 0 {
			return nil, fmt.Errorf("objective mw_target requires param > 0")
		}
		return MolecularWeightTarget{Target: param}, nil
	default:
		return nil, fmt.Errorf("unsupported objective: %s", name)
	}
}
