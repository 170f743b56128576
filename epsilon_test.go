package autotune

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEpsilonConvergesAndDecays exercises the core ε-greedy dynamics
// (improve on a better explore, decay on a non-improving one) with exactly
// two candidates. The first call picks either at random; after that,
// excluding the current candidate from the explore pool always leaves
// exactly one choice, so after two calls the 50ms candidate is current
// whichever came first.
func TestEpsilonConvergesAndDecays(t *testing.T) {
	kernel := newFakeKernel()
	device := newFakeDevice(kernel, map[string][]float64{
		"slow": repeat(100, 50),
		"fast": repeat(50, 50),
	})

	configs := []*Config{configWithID("slow"), configWithID("fast")}
	tuner, err := Dispatch(PolicyEpsilon, kernel, configs, nil,
		WithEpsilon(1.0),
		WithDecay(0.5),
		WithDeviceInterface(device),
	)
	require.NoError(t, err)
	e := tuner.(*epsilon)

	ctx := context.Background()
	require.NoError(t, tuner.Run(ctx, []any{1}, nil))
	require.NoError(t, tuner.Run(ctx, []any{1}, nil))

	key := e.keyFor(nil)
	state := e.cache[key]
	require.NotNil(t, state)
	assert.Equal(t, "fast", state.candidate.Kwargs["id"], "the 50ms candidate always wins")
	assert.Equal(t, 50.0, state.bestTime)

	epsAfterTwo := state.epsilon
	for i := 0; i < 10; i++ {
		require.NoError(t, tuner.Run(ctx, []any{1}, nil))
	}
	state = e.cache[key]
	assert.LessOrEqual(t, state.epsilon, epsAfterTwo, "epsilon should only shrink once converged")
	assert.Equal(t, "fast", state.candidate.Kwargs["id"])
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
