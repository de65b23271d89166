package platform

import (
	"context"
	"errors"
	"time"

	"molevo/internal/cache"
)

// SupervisorPolicy controls how failed runs are retried. A run failure is
// retryable only when the shared store was unavailable; configuration and
// population errors fail permanently on the first attempt.
type SupervisorPolicy struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	MaxRestarts    int
}

func defaultSupervisorPolicy() SupervisorPolicy {
	return SupervisorPolicy{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		MaxRestarts:    3,
	}
}

func normalizeSupervisorPolicy(policy SupervisorPolicy) SupervisorPolicy {
	def := defaultSupervisorPolicy()
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = def.InitialBackoff
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = def.MaxBackoff
	}
	if policy.MaxBackoff < policy.InitialBackoff {
		policy.MaxBackoff = policy.InitialBackoff
	}
	if policy.BackoffFactor < 1 {
		policy.BackoffFactor = def.BackoffFactor
	}
	if policy.MaxRestarts < 0 {
		policy.MaxRestarts = 0
	}
	return policy
}

// RunEvolutionSupervised runs an evolution like RunEvolution but retries
// when the backing store drops out mid-run. Retries restart the run from its
// initial population; already-computed fitness values are served from the
// cache, so completed work is not repeated.
func (l *Lab) RunEvolutionSupervised(ctx context.Context, cfg RunConfig, policy SupervisorPolicy) (RunResult, error) {
	policy = normalizeSupervisorPolicy(policy)
	backoff := policy.InitialBackoff

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRestarts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return RunResult{}, ctx.Err()
			case <-timer.C:
			}
			backoff = time.Duration(float64(backoff) * policy.BackoffFactor)
			if backoff > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			}
		}

		result, err := l.RunEvolution(ctx, cfg)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, cache.ErrUnavailable) {
			return RunResult{}, err
		}
		lastErr = err
	}
	return RunResult{}, lastErr
}
