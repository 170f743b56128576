package autotune

import (
	"context"
	"math"
	"time"
)

// base holds everything the four policies share: the kernel under tune, its
// declared arg names, the configured candidates, the key names that
// partition the cache, the resolved pre/post hooks, the pruning pipeline,
// and the collaborators (benchmarker, device interface, logger) used to
// measure a launch. Each policy embeds *base and adds its own per-key cache.
//
// nargs is populated at the start of Run/Warmup and cleared at the end; it
// is scoped to a single call and never retained across invocations.
type base struct {
	fn       Kernel
	argNames []string
	configs  []*Config
	keys     []string

	hooks  *hookSet
	pruner *pruner

	benchmarker  Benchmarker
	device       DeviceInterface
	logger       Logger
	recorder     *Recorder
	alertManager *AlertManager
	policyName   string

	nargs map[string]any
}

func newBase(fn Kernel, configs []*Config, keys []string, opts *dispatchOptions) *base {
	if len(configs) == 0 {
		configs = []*Config{defaultConfig()}
	}
	hooks := newHookSet(opts.resetToZero, opts.restoreValue, opts.preHook, opts.postHook)
	return &base{
		fn:           fn,
		argNames:     fn.ArgNames(),
		configs:      configs,
		keys:         keys,
		hooks:        hooks,
		pruner:       newPruner(configs, opts.pruneConfigsBy),
		benchmarker:  opts.benchmarker,
		device:       opts.device,
		logger:       opts.logger,
		recorder:     opts.recorder,
		alertManager: opts.alertManager,
	}
}

// recordCacheEvent is a nil-safe hook into an optional Recorder, used by
// each policy to report hit/miss/failed-candidate events without every
// policy needing its own nil check. A "failed" event also notifies an
// attached AlertManager, since repeated OutOfResources failures for the
// same key are exactly what an operator wants paged on.
func (b *base) recordCacheEvent(event string) {
	if b.recorder != nil {
		b.recorder.RecordCacheEvent(b.fn.Name(), b.policyName, event)
	}
	if event == "failed" && b.alertManager != nil {
		b.alertManager.NotifyCandidateFailed(b.fn.Name(), cacheKey(b.keyedArgsAsAny()))
	}
}

func (b *base) keyedArgsAsAny() []any {
	ka := b.keyedArgs()
	out := make([]any, len(ka))
	for i, k := range ka {
		out[i] = k.Value
	}
	return out
}

func (b *base) recordLatency(ms float64) {
	if b.recorder != nil {
		b.recorder.RecordLatency(b.fn.Name(), b.policyName, ms)
	}
}

func (b *base) recordEpsilon(key string, eps float64) {
	if b.recorder != nil {
		b.recorder.RecordEpsilon(b.fn.Name(), key, eps)
	}
}

func (b *base) recordDecision(key string, config *Config, committed bool) {
	if b.recorder != nil {
		b.recorder.RecordDecision(TuningDecision{
			Function:  b.fn.Name(),
			Policy:    b.policyName,
			Key:       key,
			Config:    config.String(),
			Committed: committed,
			Timestamp: time.Now(),
		})
	}
}

// bindNargs populates b.nargs from the positional args, using fn.ArgNames()
// positionally the way Python's dict(zip(arg_names, args)) does.
func (b *base) bindNargs(args []any) {
	b.nargs = make(map[string]any, len(args))
	for i, name := range b.argNames {
		if i >= len(args) {
			break
		}
		b.nargs[name] = args[i]
	}
}

func (b *base) clearNargs() { b.nargs = nil }

func (b *base) fullBound(kwargs map[string]any) map[string]any {
	out := make(map[string]any, len(b.nargs)+len(kwargs))
	for k, v := range b.nargs {
		out[k] = v
	}
	for k, v := range kwargs {
		out[k] = v
	}
	return out
}

func (b *base) keyFor(kwargs map[string]any) string {
	return cacheKey(extractKey(b.argNames, b.keys, b.fullBound(kwargs)))
}

// keyedArgs returns the (name, value) pairs bound to this tunable's `key`
// names, for diagnostic logging on OutOfResources.
func (b *base) keyedArgs() []keyedArg {
	out := make([]keyedArg, 0, len(b.keys))
	for _, k := range b.keys {
		if v, ok := b.nargs[k]; ok {
			out = append(out, keyedArg{Name: k, Value: v})
		}
	}
	return out
}

type keyedArg struct {
	Name  string
	Value any
}

// launchPreHookOnly runs config.PreHook and the tunable's own pre-hook, then
// the kernel — but never the post-hook. Stepwise, Epsilon, and Confidence
// all launch this way, preserving the original's omission of post_hook
// around their measured launches.
func launchPreHookOnly(ctx context.Context, b *base, args []any, kwargs map[string]any, config *Config) error {
	if conflicts := conflictingNames(kwargs, config.Kwargs); len(conflicts) > 0 {
		return &ConflictingMetaParametersError{Names: conflicts}
	}

	current := mergeMaps(kwargs, config.AllKwargs())
	fullNargs := b.fullBound(current)

	if config.PreHook != nil {
		config.PreHook(fullNargs)
	}
	b.hooks.pre(fullNargs, false)

	return b.fn.Run(ctx, args, current)
}

// bench wraps one candidate invocation with the benchmarker: it builds a
// call closure (config pre-hook, tunable pre-hook, launch, tunable
// post-hook), hands it to the configured Benchmarker, and
// converts OutOfResources/CompileTimeAssertionFailure into an infinite
// timing rather than propagating.
func (b *base) bench(ctx context.Context, args []any, kwargs map[string]any, config *Config) (q50, qLo, qHi float64, err error) {
	if conflicts := conflictingNames(kwargs, config.Kwargs); len(conflicts) > 0 {
		return 0, 0, 0, &ConflictingMetaParametersError{Names: conflicts}
	}

	current := mergeMaps(kwargs, config.AllKwargs())
	fullNargs := b.fullBound(current)

	closure := func() error {
		if config.PreHook != nil {
			config.PreHook(fullNargs)
		}
		b.hooks.pre(fullNargs, false)
		runErr := b.fn.Run(ctx, args, current)
		if runErr != nil {
			b.hooks.post(fullNargs, runErr)
			return runErr
		}
		b.hooks.post(fullNargs, nil)
		return nil
	}

	q50, qLo, qHi, err = b.benchmarker(closure, Quantiles)
	if err != nil {
		if isSoftFailure(err) {
			return math.Inf(1), math.Inf(1), math.Inf(1), nil
		}
		return 0, 0, 0, err
	}
	return q50, qLo, qHi, nil
}

// measureWithDevicePreHookOnly launches one candidate and times it with the
// device interface's event pair, used by Stepwise/Epsilon/Confidence instead
// of the benchmarker: those policies measure a single real launch rather
// than a repeated-trial median.
func measureWithDevicePreHookOnly(ctx context.Context, b *base, args []any, kwargs map[string]any, config *Config) (elapsedMs float64, err error) {
	start := b.device.NewEvent(true)
	end := b.device.NewEvent(true)
	start.Record()
	err = launchPreHookOnly(ctx, b, args, kwargs, config)
	if err != nil {
		return 0, err
	}
	end.Record()
	b.device.Synchronize()
	return float64(end.ElapsedTime(start)) / float64(1e6), nil
}

func conflictingNames(kwargs map[string]any, configKwargs map[string]any) []string {
	var out []string
	for k := range kwargs {
		if _, ok := configKwargs[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func mergeMaps(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
