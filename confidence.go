package autotune

import (
	"context"
	"math"
	"os"
)

// confidence is the interval-elimination policy: a candidate commits only
// once its pessimistic (upper) bound is no greater than every competitor's
// optimistic (lower) bound.
type confidence struct {
	*base
	ratio float64
	cache map[string]*stepState // same shape as Stepwise's per-key cache
}

func newConfidence(b *base, ratio float64) *confidence {
	return &confidence{base: b, ratio: ratio, cache: make(map[string]*stepState)}
}

func (c *confidence) Run(ctx context.Context, args []any, kwargs map[string]any) error {
	c.bindNargs(args)
	defer c.clearNargs()

	key := c.keyFor(kwargs)
	state, ok := c.cache[key]
	if !ok {
		state = newStepState()
		c.cache[key] = state
	}

	for {
		if state.decided != nil {
			return launchPreHookOnly(ctx, c.base, args, kwargs, state.decided)
		}

		pruned := c.pruner.Prune(c.nargs, kwargs)
		if len(pruned) == 0 {
			return ErrNoCandidates
		}
		var candidates []*Config
		for _, cfg := range pruned {
			if !state.failed[cfg] {
				candidates = append(candidates, cfg)
			}
		}
		if len(candidates) == 0 {
			return ErrNoCandidates
		}

		best := candidates[0]
		bestLower := lowerBound(state.samples[best], c.ratio)
		for _, cfg := range candidates[1:] {
			if l := lowerBound(state.samples[cfg], c.ratio); l < bestLower {
				best, bestLower = cfg, l
			}
		}
		bestUpper := upperBound(state.samples[best], c.ratio)

		dominates := true
		for _, cfg := range candidates {
			if cfg == best {
				continue
			}
			if lowerBound(state.samples[cfg], c.ratio) < bestUpper {
				dominates = false
				break
			}
		}
		if dominates {
			state.decided = best
			c.recordDecision(key, best, true)
			return launchPreHookOnly(ctx, c.base, args, kwargs, best)
		}

		timeMs, err := measureWithDevicePreHookOnly(ctx, c.base, args, kwargs, best)
		if err != nil {
			if !isOutOfResources(err) {
				return err
			}
			state.failed[best] = true
			delete(state.samples, best)
			c.recordCacheEvent("failed")
			if os.Getenv("TRITON_PRINT_AUTOTUNING") == "1" {
				c.logger.Warn("autotuning candidate failed", map[string]any{
					"function": c.fn.Name(),
					"config":   best.String(),
					"key_args": c.keyedArgs(),
				})
			}
			continue
		}
		state.samples[best] = append(state.samples[best], timeMs)
	}
}

func (c *confidence) Warmup(ctx context.Context, args []any, kwargs map[string]any) error {
	return warmup(ctx, c.base, args, kwargs)
}

func meanOf(samples []float64) float64 {
	if len(samples) == 0 {
		return math.Inf(1)
	}
	return sum(samples) / float64(len(samples))
}

// sampleVariance is Bessel-corrected (n-1 divisor), matching Python's
// statistics.variance used by the original ConfidenceAutotuner.
func sampleVariance(samples []float64) float64 {
	n := len(samples)
	if n >= 2 {
		m := meanOf(samples)
		var ss float64
		for _, x := range samples {
			d := x - m
			ss += d * d
		}
		return ss / float64(n-1)
	}
	if n == 1 {
		return math.Inf(1)
	}
	return 0
}

func lowerBound(samples []float64, ratio float64) float64 {
	return meanOf(samples) - ratio*sampleVariance(samples)
}

func upperBound(samples []float64, ratio float64) float64 {
	return meanOf(samples) + ratio*sampleVariance(samples)
}
