package autotune

import (
	"context"
	"math/rand"
	"os"
)

// stepState is one key's Stepwise cache entry: either decided holds
// the committed Config, or samples/failed track per-candidate trial data.
type stepState struct {
	decided *Config
	samples map[*Config][]float64
	failed  map[*Config]bool
}

func newStepState() *stepState {
	return &stepState{samples: make(map[*Config][]float64), failed: make(map[*Config]bool)}
}

// stepwise is the bounded-trial random-exploration policy: it samples each
// surviving candidate up to minTry times, then commits to whichever has the
// lowest mean measured time.
type stepwise struct {
	*base
	minTry int
	cache  map[string]*stepState
}

func newStepwise(b *base, minTry int) *stepwise {
	return &stepwise{base: b, minTry: minTry, cache: make(map[string]*stepState)}
}

func (s *stepwise) Run(ctx context.Context, args []any, kwargs map[string]any) error {
	s.bindNargs(args)
	defer s.clearNargs()

	key := s.keyFor(kwargs)
	state, ok := s.cache[key]
	if !ok {
		state = newStepState()
		s.cache[key] = state
	}

	for {
		if state.decided != nil {
			return s.runConfig(ctx, args, kwargs, state.decided, false)
		}

		pruned := s.pruner.Prune(s.nargs, kwargs)
		if len(pruned) == 0 {
			return ErrNoCandidates
		}
		var eligible []*Config
		for _, c := range pruned {
			if state.failed[c] {
				continue
			}
			if len(state.samples[c]) < s.minTry {
				eligible = append(eligible, c)
			}
		}

		var config *Config
		exploring := true
		if len(eligible) > 0 {
			config = eligible[rand.Intn(len(eligible))]
		} else {
			config = bestByMean(pruned, state)
			if config == nil {
				return ErrNoCandidates
			}
			state.decided = config
			exploring = false
			s.recordDecision(key, config, true)
		}

		err := s.runConfig(ctx, args, kwargs, config, exploring)
		if err == nil {
			return nil
		}
		if !isOutOfResources(err) {
			return err
		}

		state.failed[config] = true
		delete(state.samples, config)
		s.recordCacheEvent("failed")
		if os.Getenv("TRITON_PRINT_AUTOTUNING") == "1" {
			s.logger.Warn("autotuning candidate failed", map[string]any{
				"function": s.fn.Name(),
				"config":   config.String(),
				"key_args": s.keyedArgs(),
			})
		}
		if !exploring {
			state.decided = nil
		}
	}
}

// runConfig launches config once, only running the tunable's pre-hook —
// the post-hook is never invoked around measured launches here. When
// exploring it also times the launch with the device interface and records
// the sample on success.
func (s *stepwise) runConfig(ctx context.Context, args []any, kwargs map[string]any, config *Config, exploring bool) error {
	if !exploring {
		return s.launchWithPreHookOnly(ctx, args, kwargs, config)
	}

	timeMs, err := s.measureWithDeviceNoPost(ctx, args, kwargs, config)
	if err != nil {
		return err
	}
	key := s.keyFor(kwargs)
	state := s.cache[key]
	state.samples[config] = append(state.samples[config], timeMs)
	return nil
}

// launchWithPreHookOnly runs config.PreHook and the tunable pre-hook, then
// the kernel, without invoking the post-hook — used for the decided
// fast-path, matching the original's lack of a post_hook call anywhere in
// StepwiseAutotuner/EpsilonAutotuner/ConfidenceAutotuner.run.
func (s *stepwise) launchWithPreHookOnly(ctx context.Context, args []any, kwargs map[string]any, config *Config) error {
	return launchPreHookOnly(ctx, s.base, args, kwargs, config)
}

func (s *stepwise) measureWithDeviceNoPost(ctx context.Context, args []any, kwargs map[string]any, config *Config) (float64, error) {
	return measureWithDevicePreHookOnly(ctx, s.base, args, kwargs, config)
}

func (s *stepwise) Warmup(ctx context.Context, args []any, kwargs map[string]any) error {
	return warmup(ctx, s.base, args, kwargs)
}

func bestByMean(pruned []*Config, state *stepState) *Config {
	var best *Config
	bestMean := 0.0
	for _, c := range pruned {
		if state.failed[c] {
			continue
		}
		samples := state.samples[c]
		if len(samples) == 0 {
			continue
		}
		mean := sum(samples) / float64(len(samples))
		if best == nil || mean < bestMean {
			best = c
			bestMean = mean
		}
	}
	return best
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}
