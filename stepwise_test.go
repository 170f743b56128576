package autotune

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStepwiseCommitsToBestAfterFailureAndMinTry covers a failing
// candidate mixed with two healthy ones: C2 always fails with
// OutOfResources; C1 times [10,12,12,...], C3 times [20,22,22,...];
// minTry=2. After enough successful runs plus the C2 failure, the cache
// must decide C1 (lower mean).
func TestStepwiseCommitsToBestAfterFailureAndMinTry(t *testing.T) {
	kernel := newFakeKernel()
	kernel.failIDs["C2"] = true
	device := newFakeDevice(kernel, map[string][]float64{
		"C1": {10, 12},
		"C3": {20, 22},
	})

	configs := []*Config{configWithID("C1"), configWithID("C2"), configWithID("C3")}
	tuner, err := Dispatch(PolicyStepwise, kernel, configs, nil,
		WithMinTry(2),
		WithDeviceInterface(device),
	)
	require.NoError(t, err)

	ctx := context.Background()
	var decided bool
	for i := 0; i < 20 && !decided; i++ {
		err := tuner.Run(ctx, []any{1}, nil)
		require.NoError(t, err)
		if kernel.lastID == "C1" || kernel.lastID == "C3" {
			// keep running until the policy commits
		}
		s := tuner.(*stepwise)
		if s.cache[s.keyFor(nil)].decided != nil {
			decided = true
		}
	}

	require.True(t, decided, "stepwise should commit within 20 calls")
	s := tuner.(*stepwise)
	state := s.cache[s.keyFor(nil)]
	assert.Equal(t, "C1", state.decided.Kwargs["id"])
	assert.True(t, state.failed[configs[1]], "C2 must be marked failed")
}
