package autotune

import (
	"context"
	"math"
	"math/rand"
	"os"
)

// epsilonState is one key's ε-greedy cache entry. Epsilon never transitions
// to a terminal "decided" state: candidate is the current best guess, but
// exploration continues forever at a decaying rate.
type epsilonState struct {
	candidate *Config
	epsilon   float64
	bestTime  float64
}

// epsilon is the ε-greedy-with-decay exploration policy.
type epsilon struct {
	*base
	epsilon0 float64
	decay    float64
	cache    map[string]*epsilonState
}

func newEpsilon(b *base, epsilon0, decay float64) *epsilon {
	return &epsilon{base: b, epsilon0: epsilon0, decay: decay, cache: make(map[string]*epsilonState)}
}

func (e *epsilon) Run(ctx context.Context, args []any, kwargs map[string]any) error {
	e.bindNargs(args)
	defer e.clearNargs()

	key := e.keyFor(kwargs)

	for {
		state, ok := e.cache[key]
		var isExplore bool
		var candidate *Config
		var eps, best float64
		if ok {
			candidate, eps, best = state.candidate, state.epsilon, state.bestTime
			isExplore = rand.Float64() < eps
		} else {
			isExplore = true
			candidate = nil
			eps = e.epsilon0
			best = math.Inf(1)
		}

		var config *Config
		if isExplore {
			pruned := e.pruner.Prune(e.nargs, kwargs)
			if len(pruned) == 0 {
				return ErrNoCandidates
			}
			var pool []*Config
			for _, c := range pruned {
				if c != candidate {
					pool = append(pool, c)
				}
			}
			if len(pool) > 0 {
				config = pool[rand.Intn(len(pool))]
			}
		}
		if config == nil {
			config = candidate
		}
		if config == nil {
			return ErrNoCandidates
		}

		if isExplore {
			timeMs, err := measureWithDevicePreHookOnly(ctx, e.base, args, kwargs, config)
			if err != nil {
				if isOutOfResources(err) {
					if os.Getenv("TRITON_PRINT_AUTOTUNING") == "1" {
						e.logger.Warn("autotuning candidate failed", map[string]any{
							"function": e.fn.Name(),
							"config":   config.String(),
							"key_args": e.keyedArgs(),
						})
					}
					continue
				}
				return err
			}
			if timeMs < best {
				candidate, eps, best = config, e.epsilon0, timeMs
				e.recordDecision(key, candidate, false)
			} else {
				eps = eps * (1 - e.decay)
			}
			e.cache[key] = &epsilonState{candidate: candidate, epsilon: eps, bestTime: best}
			e.recordEpsilon(key, eps)
			return nil
		}

		if err := launchPreHookOnly(ctx, e.base, args, kwargs, config); err != nil {
			if isOutOfResources(err) {
				if os.Getenv("TRITON_PRINT_AUTOTUNING") == "1" {
					e.logger.Warn("autotuning candidate failed", map[string]any{
						"function": e.fn.Name(),
						"config":   config.String(),
						"key_args": e.keyedArgs(),
					})
				}
				continue
			}
			return err
		}
		return nil
	}
}

func (e *epsilon) Warmup(ctx context.Context, args []any, kwargs map[string]any) error {
	return warmup(ctx, e.base, args, kwargs)
}
