package autotune

import (
	"context"
	"os"
	"time"
)

// exhaustive is the "benchmark-all-then-cache" policy. Its cache payload
// is, per key, either absent (never tuned) or a single decided *Config —
// there is no intermediate "exploring" state, because tuning for a key
// happens in full on the first call for that key.
type exhaustive struct {
	*base
	cache map[string]*Config
}

func newExhaustive(b *base) *exhaustive {
	e := &exhaustive{base: b, cache: make(map[string]*Config)}
	if env, err := DetectBenchEnvironment(); err == nil && env.Noisy() {
		b.logger.Warn("benchmarking inside a CPU-throttled container; widening measurement windows", map[string]any{
			"function":  b.fn.Name(),
			"cpu_limit": env.CPULimit,
		})
		b.benchmarker = noiseResistantBenchmarker(b.benchmarker)
	}
	return e
}

// noiseResistantBenchmarker wraps an existing Benchmarker to run several
// independent measurement windows instead of one, taking the median of
// their medians. A single throttle window skews one sample; it is far less
// likely to skew the median across several.
func noiseResistantBenchmarker(b Benchmarker) Benchmarker {
	const windows = 3
	return func(closure func() error, quantiles [3]float64) (q50, qLo, qHi float64, err error) {
		medians := make([]float64, 0, windows)
		for i := 0; i < windows; i++ {
			m, lo, hi, werr := b(closure, quantiles)
			if werr != nil {
				return 0, 0, 0, werr
			}
			medians = append(medians, m)
			qLo, qHi = lo, hi
		}
		return quantile(medians, 0.5), qLo, qHi, nil
	}
}

func (e *exhaustive) Run(ctx context.Context, args []any, kwargs map[string]any) error {
	e.bindNargs(args)
	defer e.clearNargs()

	if len(e.configs) == 1 {
		return e.launchFinal(ctx, args, kwargs, e.configs[0])
	}

	key := e.keyFor(kwargs)
	config, ok := e.cache[key]
	if !ok {
		e.recordCacheEvent("miss")
		pruned := e.pruner.Prune(e.nargs, kwargs)
		if len(pruned) == 0 {
			return ErrNoCandidates
		}
		start := time.Now()

		best := pruned[0]
		bestMedian := -1.0
		for _, c := range pruned {
			median, _, _, err := e.bench(ctx, args, kwargs, c)
			if err != nil {
				return err
			}
			if bestMedian < 0 || median < bestMedian {
				bestMedian = median
				best = c
			}
		}
		elapsed := time.Since(start)
		e.recordLatency(bestMedian)

		e.cache[key] = best
		config = best
		e.recordDecision(key, config, true)

		fullNargs := mergeMaps(e.fullBound(kwargs), config.AllKwargs())
		e.hooks.pre(fullNargs, true)

		if os.Getenv("TRITON_PRINT_AUTOTUNING") == "1" {
			e.logger.Info("autotuning finished", map[string]any{
				"function":    e.fn.Name(),
				"elapsed_sec": elapsed.Seconds(),
				"best_config": config.String(),
			})
		}
	} else {
		e.recordCacheEvent("hit")
	}

	return e.launchFinal(ctx, args, kwargs, config)
}

// launchFinal runs the user-visible launch for the decided (or sole)
// config: only the config's own PreHook fires here, not the tunable's
// pre/post hooks — those run during benchmarking, plus the one reset-only
// pre-hook call Run makes after caching a decision.
func (e *exhaustive) launchFinal(ctx context.Context, args []any, kwargs map[string]any, config *Config) error {
	current := mergeMaps(kwargs, config.AllKwargs())
	if config.PreHook != nil {
		config.PreHook(mergeMaps(e.fullBound(kwargs), config.AllKwargs()))
	}
	return e.fn.Run(ctx, args, current)
}

func (e *exhaustive) Warmup(ctx context.Context, args []any, kwargs map[string]any) error {
	return warmup(ctx, e.base, args, kwargs)
}
