// Package autotune provides a pluggable autotuning core for GPU-kernel-style
// computations: given a finite set of candidate configurations, it decides
// at each invocation which one to run, measures it, and converges over
// repeated invocations toward the best configuration for each distinct
// input-shape class (its cache key). Four interchangeable selection
// policies — Exhaustive, Stepwise, Epsilon, Confidence — sit behind the
// uniform Tuner interface produced by the dispatch facade, Dispatch.
package autotune

import (
	"context"
)

// Tuner is the uniform dispatch interface every selection policy
// implements. Run is not reentrant: concurrent invocations on the same
// Tuner from distinct goroutines are undefined.
type Tuner interface {
	// Run decides (explore-and-measure, or exploit-cached) a configuration
	// for this call's shape class, launches the kernel, and returns any
	// error the launch raised.
	Run(ctx context.Context, args []any, kwargs map[string]any) error
	// Warmup bypasses measurement entirely: it prunes the candidate set
	// and ahead-of-time compiles every surviving candidate via
	// Kernel.Warmup.
	Warmup(ctx context.Context, args []any, kwargs map[string]any) error
}

// Policy names accepted by Dispatch.
const (
	PolicyDefault    = "default"
	PolicyStepwise   = "stepwise"
	PolicyEpsilon    = "epsilon"
	PolicyConfidence = "confidence"
)

// dispatchOptions collects every knob the dispatch facade accepts, mirroring
// BaseAutotuner.__init__'s parameter list.
type dispatchOptions struct {
	resetToZero    []string
	restoreValue   []string
	preHook        PreHook
	postHook       PostHook
	pruneConfigsBy *PruneConfigsBy

	benchmarker Benchmarker
	device      DeviceInterface
	logger       Logger
	recorder     *Recorder
	alertManager *AlertManager

	// policy-specific hyperparameters
	minTry  int     // stepwise
	epsilon float64 // epsilon
	decay   float64 // epsilon
	ratio   float64 // confidence
}

// DispatchOption configures Dispatch; see With* constructors below.
type DispatchOption func(*dispatchOptions)

func WithResetToZero(names ...string) DispatchOption {
	return func(o *dispatchOptions) { o.resetToZero = names }
}

func WithRestoreValue(names ...string) DispatchOption {
	return func(o *dispatchOptions) { o.restoreValue = names }
}

func WithPreHook(h PreHook) DispatchOption { return func(o *dispatchOptions) { o.preHook = h } }

func WithPostHook(h PostHook) DispatchOption { return func(o *dispatchOptions) { o.postHook = h } }

func WithPruneConfigsBy(p *PruneConfigsBy) DispatchOption {
	return func(o *dispatchOptions) { o.pruneConfigsBy = p }
}

func WithBenchmarker(b Benchmarker) DispatchOption {
	return func(o *dispatchOptions) { o.benchmarker = b }
}

func WithDeviceInterface(d DeviceInterface) DispatchOption {
	return func(o *dispatchOptions) { o.device = d }
}

func WithLogger(l Logger) DispatchOption { return func(o *dispatchOptions) { o.logger = l } }

// WithRecorder attaches a Recorder so Dispatch's Tuner reports cache
// events, launch latencies, and committed decisions to it. Unset, a Tuner
// runs with no observability overhead.
func WithRecorder(r *Recorder) DispatchOption { return func(o *dispatchOptions) { o.recorder = r } }

// WithAlertManager attaches an AlertManager so repeated OutOfResources
// failures for one key are surfaced as alerts.
func WithAlertManager(a *AlertManager) DispatchOption {
	return func(o *dispatchOptions) { o.alertManager = a }
}

// WithMinTry sets Stepwise's min_try (default 20 if unset/<=0).
func WithMinTry(n int) DispatchOption { return func(o *dispatchOptions) { o.minTry = n } }

// WithEpsilon sets Epsilon's starting exploration probability ε₀.
func WithEpsilon(epsilon float64) DispatchOption {
	return func(o *dispatchOptions) { o.epsilon = epsilon }
}

// WithDecay sets Epsilon's per-non-improving-step decay rate.
func WithDecay(decay float64) DispatchOption { return func(o *dispatchOptions) { o.decay = decay } }

// WithRatio sets Confidence's aggressiveness ratio (larger => more
// exploration before committing).
func WithRatio(ratio float64) DispatchOption { return func(o *dispatchOptions) { o.ratio = ratio } }

func resolveOptions(opts []DispatchOption) *dispatchOptions {
	o := &dispatchOptions{
		benchmarker: WallClockBenchmarker(10),
		device:      NewHostDeviceInterface(),
		logger:      noopLogger{},
		minTry:      20,
		epsilon:     1.0,
		decay:       0.001,
		ratio:       3.0,
	}
	for _, f := range opts {
		f(o)
	}
	if o.benchmarker == nil {
		o.benchmarker = WallClockBenchmarker(10)
	}
	if o.device == nil {
		o.device = NewHostDeviceInterface()
	}
	if o.logger == nil {
		o.logger = noopLogger{}
	}
	if o.minTry <= 0 {
		o.minTry = 20
	}
	return o
}

// Dispatch is the dispatch facade: it binds fn to one of the four named
// policies, constructed with the supplied candidate list, key names, and
// reset/restore/pruning/hyperparameter configuration. An unknown policy
// name returns an error wrapping ErrUnknownPolicy.
func Dispatch(policy string, fn Kernel, configs []*Config, keys []string, opts ...DispatchOption) (Tuner, error) {
	o := resolveOptions(opts)
	b := newBase(fn, configs, keys, o)

	switch policy {
	case PolicyDefault, "":
		b.policyName = PolicyDefault
		return newExhaustive(b), nil
	case PolicyStepwise:
		b.policyName = PolicyStepwise
		return newStepwise(b, o.minTry), nil
	case PolicyEpsilon:
		b.policyName = PolicyEpsilon
		return newEpsilon(b, o.epsilon, o.decay), nil
	case PolicyConfidence:
		b.policyName = PolicyConfidence
		return newConfidence(b, o.ratio), nil
	default:
		return nil, newUnknownPolicyError(policy)
	}
}

// warmup is shared by all four policies: prune the candidate set and warm
// up every survivor.
func warmup(ctx context.Context, b *base, args []any, kwargs map[string]any) error {
	b.bindNargs(args)
	defer b.clearNargs()

	for _, config := range b.pruner.Prune(b.nargs, kwargs) {
		full := mergeMaps(kwargs, config.AllKwargs())
		if err := b.fn.Warmup(ctx, args, full); err != nil {
			return err
		}
	}
	return nil
}
