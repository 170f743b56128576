package autotune

import "sort"

// EarlyConfigPrune replaces the candidate list wholesale, given the full
// configured set, the bound positional args (nargs), and the call's kwargs.
type EarlyConfigPrune func(configs []*Config, nargs map[string]any, kwargs map[string]any) []*Config

// PerfModel predicts a candidate's runtime given the bound positional args,
// the call kwargs, and the candidate's own AllKwargs(). Lower is better.
type PerfModel func(nargs map[string]any, kwargs map[string]any, configKwargs map[string]any) float64

// TopK selects how many candidates survive perf-model pruning. Float values
// in (0, 1] are a fraction of the *original* candidate count (floored);
// integer values (Int set) are used directly.
type TopK struct {
	Float float64
	Int   int
	IsInt bool
}

// FloatTopK returns a TopK expressing a fraction of the original candidate
// count, e.g. FloatTopK(1.0) keeps everything.
func FloatTopK(f float64) TopK { return TopK{Float: f} }

// IntTopK returns a TopK expressing an absolute candidate count.
func IntTopK(n int) TopK { return TopK{Int: n, IsInt: true} }

// PruneConfigsBy configures the optional pruning pipeline.
type PruneConfigsBy struct {
	EarlyConfigPrune EarlyConfigPrune
	PerfModel        PerfModel
	TopK             TopK // zero value (Float: 0) is treated as 1.0, i.e. no perf-model pruning
}

// pruner runs the two-stage pruning pipeline. It is pure: no device
// interaction, no mutation of the original candidate list.
type pruner struct {
	original []*Config
	cfg      *PruneConfigsBy
}

func newPruner(original []*Config, cfg *PruneConfigsBy) *pruner {
	return &pruner{original: original, cfg: cfg}
}

// Prune runs early pruning (if configured) followed by perf-model top-k
// selection (if configured) and returns the surviving candidates.
func (p *pruner) Prune(nargs map[string]any, kwargs map[string]any) []*Config {
	candidates := p.original
	if p.cfg == nil {
		return candidates
	}
	if p.cfg.EarlyConfigPrune != nil {
		candidates = p.cfg.EarlyConfigPrune(candidates, nargs, kwargs)
	}
	if p.cfg.PerfModel == nil {
		return candidates
	}

	topK := p.resolveTopK()
	if len(candidates) <= topK {
		return candidates
	}

	type timed struct {
		config *Config
		t      float64
		order  int
	}
	timings := make([]timed, 0, len(candidates))
	for i, c := range candidates {
		est := p.cfg.PerfModel(nargs, kwargs, c.AllKwargs())
		timings = append(timings, timed{config: c, t: est, order: i})
	}
	sort.SliceStable(timings, func(i, j int) bool {
		return timings[i].t < timings[j].t
	})
	if topK > len(timings) {
		topK = len(timings)
	}
	out := make([]*Config, 0, topK)
	for i := 0; i < topK; i++ {
		out = append(out, timings[i].config)
	}
	return out
}

func (p *pruner) resolveTopK() int {
	tk := p.cfg.TopK
	if tk.IsInt {
		return tk.Int
	}
	f := tk.Float
	if f <= 0 {
		f = 1.0
	}
	return int(float64(len(p.original)) * f)
}
