package autotune

import (
	"fmt"
	"sort"
	"strings"
)

// Config represents one candidate parameterization for the autotuner to
// try: a set of kernel meta-parameters (Kwargs) plus compiler hints that
// control how the kernel is compiled and launched.
//
// Two Configs are always distinct cache entries even if every field is
// equal — the tuning cache keys on Config identity (pointer identity in
// Go), never on field equality.
type Config struct {
	// Kwargs holds meta-parameters passed to the kernel as keyword
	// arguments, e.g. {"BLOCK_SIZE": 128}.
	Kwargs map[string]any

	// NumWarps is the number of warps used to execute the kernel once
	// compiled for GPUs. Defaults to 4.
	NumWarps int
	// NumStages is the number of pipeline stages the compiler software-
	// pipelines loops into. Defaults to 2.
	NumStages int
	// NumCTAs is the number of blocks in a block cluster (SM90+ only).
	// Defaults to 1.
	NumCTAs int
	// NumBuffersWarpSpec, NumConsumerGroups, RegDecProducer, and
	// RegIncConsumer are warp-specialization hints; all default to 0.
	NumBuffersWarpSpec int
	NumConsumerGroups  int
	RegDecProducer     int
	RegIncConsumer     int

	// MaxNReg is the maximum number of registers one thread may use. Nil
	// means unset; it is only added to AllKwargs when non-nil.
	MaxNReg *int

	// PreHook runs before the kernel launch for this candidate, given the
	// full bound-argument mapping. Optional.
	PreHook func(fullNargs map[string]any)
}

// compilerHintNames lists, in the fixed order used by String and
// AllKwargs, the field names Triton calls "compiler hints".
var compilerHintNames = []string{
	"num_warps",
	"num_ctas",
	"num_stages",
	"num_buffers_warp_spec",
	"num_consumer_groups",
	"reg_dec_producer",
	"reg_inc_consumer",
	"maxnreg",
}

// NewConfig builds a Config with the default compiler hints (NumWarps=4,
// NumStages=2, NumCTAs=1) and validates that kwargs does not collide with a
// compiler-hint name.
func NewConfig(kwargs map[string]any, opts ...ConfigOption) (*Config, error) {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	c := &Config{
		Kwargs:    kwargs,
		NumWarps:  4,
		NumStages: 2,
		NumCTAs:   1,
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, name := range compilerHintNames {
		if _, ok := kwargs[name]; ok {
			return nil, fmt.Errorf("autotune: kwargs name %q collides with a compiler hint field", name)
		}
	}
	return c, nil
}

// ConfigOption mutates a Config during construction via NewConfig.
type ConfigOption func(*Config)

func WithNumWarps(n int) ConfigOption             { return func(c *Config) { c.NumWarps = n } }
func WithNumStages(n int) ConfigOption            { return func(c *Config) { c.NumStages = n } }
func WithNumCTAs(n int) ConfigOption              { return func(c *Config) { c.NumCTAs = n } }
func WithNumBuffersWarpSpec(n int) ConfigOption   { return func(c *Config) { c.NumBuffersWarpSpec = n } }
func WithNumConsumerGroups(n int) ConfigOption    { return func(c *Config) { c.NumConsumerGroups = n } }
func WithRegDecProducer(n int) ConfigOption       { return func(c *Config) { c.RegDecProducer = n } }
func WithRegIncConsumer(n int) ConfigOption       { return func(c *Config) { c.RegIncConsumer = n } }
func WithMaxNReg(n int) ConfigOption              { return func(c *Config) { c.MaxNReg = &n } }
func WithConfigPreHook(h func(map[string]any)) ConfigOption {
	return func(c *Config) { c.PreHook = h }
}

// defaultConfig synthesizes the single candidate used when a tunable is
// registered with zero configs, mirroring the original BaseAutotuner
// constructor's fallback.
func defaultConfig() *Config {
	return &Config{
		Kwargs:    map[string]any{},
		NumWarps:  4,
		NumStages: 2,
		NumCTAs:   1,
	}
}

// AllKwargs returns Kwargs unioned with every non-nil compiler hint field,
// keyed by its compilerHintNames name. It never contains a null-valued
// entry: MaxNReg only appears when set.
func (c *Config) AllKwargs() map[string]any {
	out := make(map[string]any, len(c.Kwargs)+len(compilerHintNames))
	for k, v := range c.Kwargs {
		out[k] = v
	}
	out["num_warps"] = c.NumWarps
	out["num_ctas"] = c.NumCTAs
	out["num_stages"] = c.NumStages
	out["num_buffers_warp_spec"] = c.NumBuffersWarpSpec
	out["num_consumer_groups"] = c.NumConsumerGroups
	out["reg_dec_producer"] = c.RegDecProducer
	out["reg_inc_consumer"] = c.RegIncConsumer
	if c.MaxNReg != nil {
		out["maxnreg"] = *c.MaxNReg
	}
	return out
}

// String renders a lexical "k: v" listing of every Kwargs entry (sorted for
// determinism — Go map iteration is unordered, unlike CPython's dicts)
// followed by the compiler hints in the fixed order above.
func (c *Config) String() string {
	var b strings.Builder
	names := make([]string, 0, len(c.Kwargs))
	for k := range c.Kwargs {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+len(compilerHintNames))
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", k, c.Kwargs[k]))
	}
	parts = append(parts,
		fmt.Sprintf("num_warps: %d", c.NumWarps),
		fmt.Sprintf("num_ctas: %d", c.NumCTAs),
		fmt.Sprintf("num_stages: %d", c.NumStages),
		fmt.Sprintf("num_buffers_warp_spec: %d", c.NumBuffersWarpSpec),
		fmt.Sprintf("num_consumer_groups: %d", c.NumConsumerGroups),
		fmt.Sprintf("reg_dec_producer: %d", c.RegDecProducer),
		fmt.Sprintf("reg_inc_consumer: %d", c.RegIncConsumer),
	)
	if c.MaxNReg != nil {
		parts = append(parts, fmt.Sprintf("maxnreg: %d", *c.MaxNReg))
	} else {
		parts = append(parts, "maxnreg: <nil>")
	}
	b.WriteString(strings.Join(parts, ", "))
	return b.String()
}
